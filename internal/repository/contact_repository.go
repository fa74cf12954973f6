package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/safepath/safepath-server/internal/model"
)

type ContactRepo struct{ DB *sql.DB }

func NewContactRepo(db *sql.DB) *ContactRepo { return &ContactRepo{DB: db} }

const contactCols = "id, user_id, name, phone, email, relationship, created_at, updated_at"

// Create inserts an emergency contact for a user.
func (r *ContactRepo) Create(ctx context.Context, c *model.Contact) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO contacts (user_id, name, phone, email, relationship) VALUES (?,?,?,?,?)",
		c.UserID, c.Name, nullStr(c.Phone), nullStr(c.Email), nullStr(c.Relationship))
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

// GetByIDAndUser fetches one contact, scoped to its owner.
func (r *ContactRepo) GetByIDAndUser(ctx context.Context, id, userID uint64) (model.Contact, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+contactCols+" FROM contacts WHERE id=? AND user_id=? LIMIT 1", id, userID)
	return scanContact(row)
}

// ListByUser returns all contacts belonging to a user.
func (r *ContactRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Contact, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+contactCols+" FROM contacts WHERE user_id=? ORDER BY name", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListByIDs returns the subset of ids that belong to the user, used when
// fanning out an SOS to chosen contacts.
func (r *ContactRepo) ListByIDs(ctx context.Context, userID uint64, ids []uint64) ([]model.Contact, error) {
	if len(ids) == 0 {
		return []model.Contact{}, nil
	}
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(ids)+1)
	args = append(args, userID)
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+contactCols+" FROM contacts WHERE user_id=? AND id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Update rewrites the provided non-empty fields of a contact.
func (r *ContactRepo) Update(ctx context.Context, c model.Contact) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE contacts SET name=?, phone=?, email=?, relationship=? WHERE id=? AND user_id=?",
		c.Name, nullStr(c.Phone), nullStr(c.Email), nullStr(c.Relationship), c.ID, c.UserID)
	return err
}

// Delete removes a contact, scoped to its owner.
func (r *ContactRepo) Delete(ctx context.Context, id, userID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM contacts WHERE id=? AND user_id=?", id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanContact(row rowScanner) (model.Contact, error) {
	var c model.Contact
	var phone, email, rel sql.NullString
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &phone, &email, &rel, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Contact{}, ErrNotFound
	}
	if phone.Valid {
		c.Phone = phone.String
	}
	if email.Valid {
		c.Email = email.String
	}
	if rel.Valid {
		c.Relationship = rel.String
	}
	return c, err
}
