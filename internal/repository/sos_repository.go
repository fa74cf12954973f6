package repository

import (
	"context"
	"database/sql"

	"github.com/safepath/safepath-server/internal/model"
)

type SOSRepo struct{ DB *sql.DB }

func NewSOSRepo(db *sql.DB) *SOSRepo { return &SOSRepo{DB: db} }

const sosCols = "id, user_id, message, lat, lng, media_url, status, created_at, updated_at"

// Create inserts an alert and links the contacts chosen for fan-out in a
// single transaction.
func (r *SOSRepo) Create(ctx context.Context, a *model.SOSAlert, contactIDs []uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO sos_alerts (user_id, message, lat, lng, media_url, status) VALUES (?,?,?,?,?,?)",
		a.UserID, a.Message, a.Lat, a.Lng, nullStr(a.MediaURL), a.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)

	for _, cid := range contactIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO sos_alert_contacts (alert_id, contact_id) VALUES (?,?)", a.ID, cid); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetByID loads an alert with its linked contacts.
func (r *SOSRepo) GetByID(ctx context.Context, id uint64) (model.SOSAlert, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+sosCols+" FROM sos_alerts WHERE id=? LIMIT 1", id)
	a, err := scanSOS(row)
	if err != nil {
		return model.SOSAlert{}, err
	}
	if err := r.attachContacts(ctx, &a); err != nil {
		return model.SOSAlert{}, err
	}
	return a, nil
}

// ListByUser returns a user's alerts, newest first.
func (r *SOSRepo) ListByUser(ctx context.Context, userID uint64) ([]model.SOSAlert, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+sosCols+" FROM sos_alerts WHERE user_id=? ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.SOSAlert{}
	for rows.Next() {
		a, err := scanSOS(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if err := r.attachContacts(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// UpdateStatus moves an alert through its lifecycle, scoped to the owner for
// user-initiated transitions. Pass 0 as userID to skip the owner check (used
// by the queue consumer after notification).
func (r *SOSRepo) UpdateStatus(ctx context.Context, id, userID uint64, status string) error {
	var (
		res sql.Result
		err error
	)
	if userID == 0 {
		res, err = r.DB.ExecContext(ctx,
			"UPDATE sos_alerts SET status=? WHERE id=?", status, id)
	} else {
		res, err = r.DB.ExecContext(ctx,
			"UPDATE sos_alerts SET status=? WHERE id=? AND user_id=?", status, id, userID)
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkNotified flips an alert to notified once the contact fan-out ran.
func (r *SOSRepo) MarkNotified(ctx context.Context, id uint64) error {
	return r.UpdateStatus(ctx, id, 0, model.SOSNotified)
}

func (r *SOSRepo) attachContacts(ctx context.Context, a *model.SOSAlert) error {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT c.id, c.user_id, c.name, c.phone, c.email, c.relationship, c.created_at, c.updated_at
		 FROM contacts c
		 JOIN sos_alert_contacts sc ON sc.contact_id = c.id
		 WHERE sc.alert_id=?`, a.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	a.Contacts = []model.Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return err
		}
		a.Contacts = append(a.Contacts, c)
	}
	return rows.Err()
}

func scanSOS(row rowScanner) (model.SOSAlert, error) {
	var a model.SOSAlert
	var media sql.NullString
	err := row.Scan(&a.ID, &a.UserID, &a.Message, &a.Lat, &a.Lng, &media, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.SOSAlert{}, ErrNotFound
	}
	if media.Valid {
		a.MediaURL = media.String
	}
	return a, err
}
