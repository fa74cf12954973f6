package model

import "time"

// SOS alert status lifecycle: pending -> notified -> resolved.
const (
	SOSPending  = "pending"
	SOSNotified = "notified"
	SOSResolved = "resolved"
)

// SOSAlert is an emergency alert raised by a user (`sos_alerts` table).
// Contacts chosen for fan-out are linked through `sos_alert_contacts` and
// loaded into Contacts for responses.
type SOSAlert struct {
	ID        uint64    `json:"id"`
	UserID    uint64    `json:"user_id"`
	UserName  string    `json:"user_name,omitempty"`
	Message   string    `json:"message"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	MediaURL  string    `json:"media_url,omitempty"`
	Status    string    `json:"status"`
	Contacts  []Contact `json:"contacts,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Contact is an emergency contact saved by a user (`contacts` table).
type Contact struct {
	ID           uint64    `json:"id"`
	UserID       uint64    `json:"user_id"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone,omitempty"`
	Email        string    `json:"email,omitempty"`
	Relationship string    `json:"relationship,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
