package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/safepath/safepath-server/internal/model"
)

// VoteRepo stores individual discussion/reply votes in the `votes` table.
// The unique index over (user_id, target_id, target_type) is load-bearing:
// it is what makes two simultaneous first-votes from the same account safe,
// since exactly one insert can win.
type VoteRepo struct{ DB *sql.DB }

func NewVoteRepo(db *sql.DB) *VoteRepo { return &VoteRepo{DB: db} }

// Find returns the caller's vote on a target, or ErrNotFound.
func (r *VoteRepo) Find(ctx context.Context, userID, targetID uint64, targetType string) (model.Vote, error) {
	var v model.Vote
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,user_id,target_id,target_type,vote_type,created_at FROM votes WHERE user_id=? AND target_id=? AND target_type=? LIMIT 1",
		userID, targetID, targetType).
		Scan(&v.ID, &v.UserID, &v.TargetID, &v.TargetType, &v.VoteType, &v.CreatedAt)
	if err == sql.ErrNoRows {
		return model.Vote{}, ErrNotFound
	}
	return v, err
}

// Create inserts a new vote row.  A unique-index violation is reported as
// ErrDuplicateVote so the service can retry the operation as an update.
func (r *VoteRepo) Create(ctx context.Context, v model.Vote) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO votes (user_id, target_id, target_type, vote_type) VALUES (?,?,?,?)",
		v.UserID, v.TargetID, v.TargetType, v.VoteType)
	if isDuplicateKey(err) {
		return ErrDuplicateVote
	}
	return err
}

// UpdateType flips an existing vote row to the other vote kind.
func (r *VoteRepo) UpdateType(ctx context.Context, id uint64, voteType string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE votes SET vote_type=? WHERE id=?", voteType, id)
	return err
}

// Delete removes a vote row (toggle-off).
func (r *VoteRepo) Delete(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM votes WHERE id=?", id)
	return err
}

// ListForTargets returns the caller's votes over a set of targets as a
// targetID -> voteType map.  Targets the user has not voted on are absent.
func (r *VoteRepo) ListForTargets(ctx context.Context, userID uint64, targetIDs []uint64, targetType string) (map[uint64]string, error) {
	out := make(map[uint64]string, len(targetIDs))
	if len(targetIDs) == 0 {
		return out, nil
	}
	placeholders := strings.Repeat("?,", len(targetIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(targetIDs)+2)
	args = append(args, userID, targetType)
	for _, id := range targetIDs {
		args = append(args, id)
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT target_id, vote_type FROM votes WHERE user_id=? AND target_type=? AND target_id IN ("+placeholders+")",
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uint64
		var vt string
		if err := rows.Scan(&id, &vt); err != nil {
			return nil, err
		}
		out[id] = vt
	}
	return out, rows.Err()
}

// tallyTable maps a vote target type onto the table holding its tallies.
// Only the two known types are accepted; anything else is a programming
// error caught by the service's argument validation before reaching here.
func tallyTable(targetType string) (string, error) {
	switch targetType {
	case model.TargetDiscussion:
		return "discussions", nil
	case model.TargetReply:
		return "replies", nil
	}
	return "", fmt.Errorf("unknown vote target type %q", targetType)
}

// TargetExists reports whether the vote target row is present.
func (r *VoteRepo) TargetExists(ctx context.Context, targetType string, id uint64) (bool, error) {
	table, err := tallyTable(targetType)
	if err != nil {
		return false, err
	}
	var one int
	err = r.DB.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id=? LIMIT 1", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// ApplyTallyDelta adjusts the denormalized counters on the target row.
// The increments happen inside MySQL, never as a read-modify-write in Go,
// so concurrent votes from different users cannot lose updates.  Decrements
// are floored at zero.
func (r *VoteRepo) ApplyTallyDelta(ctx context.Context, targetType string, id uint64, up, down int) error {
	table, err := tallyTable(targetType)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		"UPDATE "+table+" SET upvotes = GREATEST(CAST(upvotes AS SIGNED) + ?, 0), downvotes = GREATEST(CAST(downvotes AS SIGNED) + ?, 0) WHERE id=?",
		up, down, id)
	return err
}

// Tally reads the current counters for a target, used to build the
// post-toggle snapshot returned to clients.
func (r *VoteRepo) Tally(ctx context.Context, targetType string, id uint64) (int64, int64, error) {
	table, err := tallyTable(targetType)
	if err != nil {
		return 0, 0, err
	}
	var up, down int64
	err = r.DB.QueryRowContext(ctx, "SELECT upvotes, downvotes FROM "+table+" WHERE id=? LIMIT 1", id).Scan(&up, &down)
	if err == sql.ErrNoRows {
		return 0, 0, ErrNotFound
	}
	return up, down, err
}

// DeleteForTarget removes every vote row referencing a target, used when a
// discussion or reply is deleted.
func (r *VoteRepo) DeleteForTarget(ctx context.Context, tx *sql.Tx, targetType string, id uint64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM votes WHERE target_id=? AND target_type=?", id, targetType)
	return err
}
