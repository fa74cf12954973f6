package model

import "time"

// Incident categories and severities accepted by the API.  Kept as plain
// string sets so validation stays in one place.
var (
	IncidentCategories = map[string]bool{
		"theft": true, "assault": true, "harassment": true,
		"accident": true, "suspicious_activity": true, "other": true,
	}
	IncidentSeverities = map[string]bool{
		"low": true, "medium": true, "high": true, "critical": true,
	}
)

// Incident is a reported safety incident (`incidents` table).  Reports may
// be anonymous: in that case ReportedBy stays nil and only ReporterName is
// shown.  Handlers must blank ReportedBy before serializing anonymous rows.
type Incident struct {
	ID             uint64            `json:"id"`
	PublicID       string            `json:"public_id"` // uuid shared in links
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Category       string            `json:"category"`
	Severity       string            `json:"severity"`
	Lat            float64           `json:"lat"`
	Lng            float64           `json:"lng"`
	Address        string            `json:"address,omitempty"`
	ReportedBy     *uint64           `json:"reported_by,omitempty"`
	ReporterName   string            `json:"reporter_name,omitempty"`
	IsAnonymous    bool              `json:"is_anonymous"`
	Photos         []string          `json:"photos"`
	DateOfIncident time.Time         `json:"date_of_incident"`
	Comments       []IncidentComment `json:"comments,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// IncidentComment is a comment under an incident (`incident_comments`).
// Anonymous comments keep UserID nil, mirroring anonymous reports.
type IncidentComment struct {
	ID            uint64    `json:"id"`
	IncidentID    uint64    `json:"incident_id"`
	UserID        *uint64   `json:"user_id,omitempty"`
	IsAnonymous   bool      `json:"is_anonymous"`
	CommenterName string    `json:"commenter_name,omitempty"`
	Comment       string    `json:"comment"`
	CreatedAt     time.Time `json:"created_at"`
}
