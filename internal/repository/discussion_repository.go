package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/safepath/safepath-server/internal/model"
)

type DiscussionRepo struct{ DB *sql.DB }

func NewDiscussionRepo(db *sql.DB) *DiscussionRepo { return &DiscussionRepo{DB: db} }

// DiscussionFilter narrows List results.  Zero values mean "no filter".
// When Lat/Lng are set with RadiusKm > 0 the listing is restricted to
// discussions tagged with a location inside the radius.
type DiscussionFilter struct {
	Category string
	Search   string
	Sort     string // recent (default) | popular | trending
	Lat      *float64
	Lng      *float64
	RadiusKm float64
	Page     int
	Limit    int
}

const discussionCols = `d.id, d.author_id, u.name, d.title, d.content, d.category,
	d.image_url, d.lat, d.lng, d.upvotes, d.downvotes, d.views, d.reply_count,
	d.is_pinned, d.is_closed, d.created_at, d.updated_at`

// Create inserts a discussion and its tags, returning the stored row.
func (r *DiscussionRepo) Create(ctx context.Context, d *model.Discussion) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO discussions (author_id, title, content, category, image_url, lat, lng) VALUES (?,?,?,?,?,?,?)",
		d.AuthorID, d.Title, d.Content, d.Category, nullStr(d.ImageURL), d.Lat, d.Lng)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = uint64(id)
	for _, tag := range d.Tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO discussion_tags (discussion_id, tag) VALUES (?,?)", d.ID, tag); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetByID loads one discussion with author name and tags, bumping the view
// counter atomically in the same call.
func (r *DiscussionRepo) GetByID(ctx context.Context, id uint64, countView bool) (model.Discussion, error) {
	if countView {
		if _, err := r.DB.ExecContext(ctx,
			"UPDATE discussions SET views = views + 1 WHERE id=?", id); err != nil {
			return model.Discussion{}, err
		}
	}
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+discussionCols+" FROM discussions d JOIN users u ON u.id = d.author_id WHERE d.id=? LIMIT 1", id)
	d, err := scanDiscussion(row)
	if err != nil {
		return model.Discussion{}, err
	}
	d.Tags, err = r.tags(ctx, d.ID)
	return d, err
}

// List returns a page of discussions plus the unpaged total.
func (r *DiscussionRepo) List(ctx context.Context, f DiscussionFilter) ([]model.Discussion, int64, error) {
	where := []string{"1=1"}
	args := []any{}
	if f.Category != "" && f.Category != "all" {
		where = append(where, "d.category=?")
		args = append(args, f.Category)
	}
	if f.Search != "" {
		where = append(where, "(d.title LIKE ? OR d.content LIKE ?)")
		pat := "%" + f.Search + "%"
		args = append(args, pat, pat)
	}
	if f.Lat != nil && f.Lng != nil && f.RadiusKm > 0 {
		where = append(where, "d.lat IS NOT NULL AND "+haversineKm("d.lat", "d.lng")+" <= ?")
		args = append(args, *f.Lat, *f.Lng, *f.Lat, f.RadiusKm)
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM discussions d WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := "d.created_at DESC"
	switch f.Sort {
	case "popular":
		order = "d.upvotes DESC, d.views DESC"
	case "trending":
		order = "d.reply_count DESC, d.upvotes DESC"
	}
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	args = append(args, limit, (page-1)*limit)

	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+discussionCols+" FROM discussions d JOIN users u ON u.id = d.author_id WHERE "+cond+
			" ORDER BY "+order+" LIMIT ? OFFSET ?", args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.Discussion
	for rows.Next() {
		d, err := scanDiscussion(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for i := range out {
		if out[i].Tags, err = r.tags(ctx, out[i].ID); err != nil {
			return nil, 0, err
		}
	}
	return out, total, nil
}

// Update rewrites the editable fields of a discussion.  Tags, when non-nil,
// replace the existing set.
func (r *DiscussionRepo) Update(ctx context.Context, d model.Discussion) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"UPDATE discussions SET title=?, content=? WHERE id=?", d.Title, d.Content, d.ID); err != nil {
		return err
	}
	if d.Tags != nil {
		if _, err := tx.ExecContext(ctx, "DELETE FROM discussion_tags WHERE discussion_id=?", d.ID); err != nil {
			return err
		}
		for _, tag := range d.Tags {
			tag = strings.ToLower(strings.TrimSpace(tag))
			if tag == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO discussion_tags (discussion_id, tag) VALUES (?,?)", d.ID, tag); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// Delete removes a discussion with its replies, votes and tags in one
// transaction so readers never observe a half-deleted thread.
func (r *DiscussionRepo) Delete(ctx context.Context, votes *VoteRepo, id uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Reply votes go first, then the replies themselves.
	if _, err := tx.ExecContext(ctx,
		"DELETE v FROM votes v JOIN replies rp ON rp.id = v.target_id AND v.target_type=? WHERE rp.discussion_id=?",
		model.TargetReply, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM replies WHERE discussion_id=?", id); err != nil {
		return err
	}
	if err := votes.DeleteForTarget(ctx, tx, model.TargetDiscussion, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM discussion_tags WHERE discussion_id=?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM discussions WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

func (r *DiscussionRepo) tags(ctx context.Context, id uint64) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT tag FROM discussion_tags WHERE discussion_id=? ORDER BY tag", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tags := []string{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

type rowScanner interface{ Scan(dest ...any) error }

func scanDiscussion(row rowScanner) (model.Discussion, error) {
	var d model.Discussion
	var imageURL sql.NullString
	err := row.Scan(&d.ID, &d.AuthorID, &d.AuthorName, &d.Title, &d.Content, &d.Category,
		&imageURL, &d.Lat, &d.Lng, &d.Upvotes, &d.Downvotes, &d.Views, &d.ReplyCount,
		&d.IsPinned, &d.IsClosed, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Discussion{}, ErrNotFound
	}
	if imageURL.Valid {
		d.ImageURL = imageURL.String
	}
	return d, err
}

// haversineKm builds the great-circle distance expression in kilometers for
// the given lat/lng columns.  Bind order: lat, lng, lat.
func haversineKm(latCol, lngCol string) string {
	return "(6371 * ACOS(LEAST(1.0, COS(RADIANS(?)) * COS(RADIANS(" + latCol + ")) * COS(RADIANS(" + lngCol + ") - RADIANS(?)) + SIN(RADIANS(?)) * SIN(RADIANS(" + latCol + ")))))"
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
