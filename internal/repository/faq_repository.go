package repository

import (
	"context"
	"database/sql"

	"github.com/safepath/safepath-server/internal/model"
)

type FAQRepo struct{ DB *sql.DB }

func NewFAQRepo(db *sql.DB) *FAQRepo { return &FAQRepo{DB: db} }

// List returns FAQs, optionally filtered by category.
func (r *FAQRepo) List(ctx context.Context, category string) ([]model.FAQ, error) {
	q := "SELECT id, question, answer, category FROM faqs"
	args := []any{}
	if category != "" {
		q += " WHERE category=?"
		args = append(args, category)
	}
	q += " ORDER BY id"
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.FAQ{}
	for rows.Next() {
		var f model.FAQ
		if err := rows.Scan(&f.ID, &f.Question, &f.Answer, &f.Category); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Count reports how many FAQ rows exist. Used to decide whether to seed.
func (r *FAQRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM faqs").Scan(&n)
	return n, err
}

// Seed inserts the given FAQs if the table is empty.
func (r *FAQRepo) Seed(ctx context.Context, faqs []model.FAQ) error {
	n, err := r.Count(ctx)
	if err != nil || n > 0 {
		return err
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, f := range faqs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO faqs (question, answer, category) VALUES (?,?,?)",
			f.Question, f.Answer, f.Category); err != nil {
			return err
		}
	}
	return tx.Commit()
}
