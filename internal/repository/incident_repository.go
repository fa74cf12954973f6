package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/safepath/safepath-server/internal/model"
)

type IncidentRepo struct{ DB *sql.DB }

func NewIncidentRepo(db *sql.DB) *IncidentRepo { return &IncidentRepo{DB: db} }

// IncidentFilter narrows List results.  When Lat/Lng are present the
// listing is restricted to incidents within RadiusKm (default 5km).
type IncidentFilter struct {
	Category string
	Severity string
	Lat      *float64
	Lng      *float64
	RadiusKm float64
	Limit    int
	Skip     int
}

const incidentCols = `i.id, i.public_id, i.title, i.description, i.category, i.severity,
	i.lat, i.lng, i.address, i.reported_by, i.reporter_name, i.is_anonymous,
	i.date_of_incident, i.created_at, i.updated_at`

// Create inserts an incident and its photo URLs in one transaction,
// assigning a public UUID for shareable links.
func (r *IncidentRepo) Create(ctx context.Context, in *model.Incident) error {
	in.PublicID = uuid.NewString()
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO incidents (public_id, title, description, category, severity, lat, lng, address,
		 reported_by, reporter_name, is_anonymous, date_of_incident) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		in.PublicID, in.Title, in.Description, in.Category, in.Severity, in.Lat, in.Lng,
		nullStr(in.Address), in.ReportedBy, nullStr(in.ReporterName), in.IsAnonymous, in.DateOfIncident)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	in.ID = uint64(id)
	for _, url := range in.Photos {
		if strings.TrimSpace(url) == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO incident_photos (incident_id, url) VALUES (?,?)", in.ID, url); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// List returns filtered incidents newest-first plus the unfiltered total
// under the same conditions.  Comments are loaded per incident.
func (r *IncidentRepo) List(ctx context.Context, f IncidentFilter) ([]model.Incident, int64, error) {
	where := []string{"1=1"}
	args := []any{}
	if f.Category != "" {
		where = append(where, "i.category=?")
		args = append(args, f.Category)
	}
	if f.Severity != "" {
		where = append(where, "i.severity=?")
		args = append(args, f.Severity)
	}
	if f.Lat != nil && f.Lng != nil {
		radius := f.RadiusKm
		if radius <= 0 {
			radius = 5 // default radius in km
		}
		where = append(where, haversineKm("i.lat", "i.lng")+" <= ?")
		args = append(args, *f.Lat, *f.Lng, *f.Lat, radius)
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM incidents i WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	skip := f.Skip
	if skip < 0 {
		skip = 0
	}
	args = append(args, limit, skip)
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+incidentCols+" FROM incidents i WHERE "+cond+" ORDER BY i.created_at DESC LIMIT ? OFFSET ?",
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []model.Incident{}
	for rows.Next() {
		in, err := scanIncident(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for i := range out {
		if err := r.attach(ctx, &out[i]); err != nil {
			return nil, 0, err
		}
	}
	return out, total, nil
}

// GetByID loads a single incident with photos and comments.
func (r *IncidentRepo) GetByID(ctx context.Context, id uint64) (model.Incident, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+incidentCols+" FROM incidents i WHERE i.id=? LIMIT 1", id)
	in, err := scanIncident(row)
	if err != nil {
		return model.Incident{}, err
	}
	if err := r.attach(ctx, &in); err != nil {
		return model.Incident{}, err
	}
	return in, nil
}

// ListByReporter returns all non-anonymous reports filed by a user.
func (r *IncidentRepo) ListByReporter(ctx context.Context, userID uint64) ([]model.Incident, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+incidentCols+" FROM incidents i WHERE i.reported_by=? ORDER BY i.created_at DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Incident{}
	for rows.Next() {
		in, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// AddComment appends a comment to an incident.
func (r *IncidentRepo) AddComment(ctx context.Context, c *model.IncidentComment) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO incident_comments (incident_id, user_id, is_anonymous, commenter_name, comment) VALUES (?,?,?,?,?)",
		c.IncidentID, c.UserID, c.IsAnonymous, nullStr(c.CommenterName), c.Comment)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

func (r *IncidentRepo) attach(ctx context.Context, in *model.Incident) error {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT url FROM incident_photos WHERE incident_id=?", in.ID)
	if err != nil {
		return err
	}
	in.Photos = []string{}
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			rows.Close()
			return err
		}
		in.Photos = append(in.Photos, url)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	crows, err := r.DB.QueryContext(ctx,
		`SELECT id, incident_id, user_id, is_anonymous, commenter_name, comment, created_at
		 FROM incident_comments WHERE incident_id=? ORDER BY created_at ASC`, in.ID)
	if err != nil {
		return err
	}
	defer crows.Close()
	in.Comments = []model.IncidentComment{}
	for crows.Next() {
		var c model.IncidentComment
		var name sql.NullString
		if err := crows.Scan(&c.ID, &c.IncidentID, &c.UserID, &c.IsAnonymous, &name, &c.Comment, &c.CreatedAt); err != nil {
			return err
		}
		if name.Valid {
			c.CommenterName = name.String
		}
		in.Comments = append(in.Comments, c)
	}
	return crows.Err()
}

func scanIncident(row rowScanner) (model.Incident, error) {
	var in model.Incident
	var address, reporterName sql.NullString
	err := row.Scan(&in.ID, &in.PublicID, &in.Title, &in.Description, &in.Category, &in.Severity,
		&in.Lat, &in.Lng, &address, &in.ReportedBy, &reporterName, &in.IsAnonymous,
		&in.DateOfIncident, &in.CreatedAt, &in.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Incident{}, ErrNotFound
	}
	if address.Valid {
		in.Address = address.String
	}
	if reporterName.Valid {
		in.ReporterName = reporterName.String
	}
	return in, err
}
