package repository

import (
	"context"
	"database/sql"

	"github.com/safepath/safepath-server/internal/model"
)

type ReplyRepo struct{ DB *sql.DB }

func NewReplyRepo(db *sql.DB) *ReplyRepo { return &ReplyRepo{DB: db} }

// Create inserts a reply and bumps the parent discussion's reply_count in
// the same transaction.
func (r *ReplyRepo) Create(ctx context.Context, rep *model.Reply) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO replies (discussion_id, author_id, content) VALUES (?,?,?)",
		rep.DiscussionID, rep.AuthorID, rep.Content)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rep.ID = uint64(id)
	if _, err := tx.ExecContext(ctx,
		"UPDATE discussions SET reply_count = reply_count + 1 WHERE id=?", rep.DiscussionID); err != nil {
		return err
	}
	return tx.Commit()
}

// GetByID loads a single reply with its author name.
func (r *ReplyRepo) GetByID(ctx context.Context, id uint64) (model.Reply, error) {
	var rep model.Reply
	err := r.DB.QueryRowContext(ctx,
		`SELECT r.id, r.discussion_id, r.author_id, u.name, r.content, r.upvotes, r.downvotes, r.created_at, r.updated_at
		 FROM replies r JOIN users u ON u.id = r.author_id WHERE r.id=? LIMIT 1`, id).
		Scan(&rep.ID, &rep.DiscussionID, &rep.AuthorID, &rep.AuthorName, &rep.Content,
			&rep.Upvotes, &rep.Downvotes, &rep.CreatedAt, &rep.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Reply{}, ErrNotFound
	}
	return rep, err
}

// ListByDiscussion returns a page of replies plus the unpaged total.
// Sort is "recent" (default) or "popular".
func (r *ReplyRepo) ListByDiscussion(ctx context.Context, discussionID uint64, sort string, page, limit int) ([]model.Reply, int64, error) {
	var total int64
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM replies WHERE discussion_id=?", discussionID).Scan(&total); err != nil {
		return nil, 0, err
	}
	order := "r.created_at DESC"
	if sort == "popular" {
		order = "r.upvotes DESC"
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if page < 1 {
		page = 1
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT r.id, r.discussion_id, r.author_id, u.name, r.content, r.upvotes, r.downvotes, r.created_at, r.updated_at
		 FROM replies r JOIN users u ON u.id = r.author_id WHERE r.discussion_id=?
		 ORDER BY `+order+` LIMIT ? OFFSET ?`,
		discussionID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []model.Reply{}
	for rows.Next() {
		var rep model.Reply
		if err := rows.Scan(&rep.ID, &rep.DiscussionID, &rep.AuthorID, &rep.AuthorName, &rep.Content,
			&rep.Upvotes, &rep.Downvotes, &rep.CreatedAt, &rep.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, rep)
	}
	return out, total, rows.Err()
}
