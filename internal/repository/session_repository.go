package repository

import (
	"context"
	"database/sql"
	"time"
)

// SessionRepo persists the per-user refresh-token set in the
// `user_refresh_tokens` table.  Each row is one live refresh identifier;
// a refresh JWT is honored only while its identifier row exists.  The
// primary key (user_id, token_id) makes removal an atomic claim: the first
// concurrent rotation to delete the row wins, the loser sees zero rows
// affected and reports the token as revoked.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// Add inserts a refresh identifier into the user's set.
func (r *SessionRepo) Add(ctx context.Context, userID uint64, tokenID string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO user_refresh_tokens (user_id, token_id, expires_at) VALUES (?,?,?)",
		userID, tokenID, exp)
	return err
}

// Remove deletes one refresh identifier.  The boolean reports whether the
// identifier was present, which logout treats as informational and rotation
// treats as the replay gate.
func (r *SessionRepo) Remove(ctx context.Context, userID uint64, tokenID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM user_refresh_tokens WHERE user_id=? AND token_id=?",
		userID, tokenID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Rotate atomically swaps oldID for newID in the user's set.  It returns
// false when oldID was not present, meaning the token was already consumed
// by a concurrent rotation or revoked by logout.  The delete and insert run
// in one transaction so a cancelled request can never leave the set with
// the old identifier removed but no successor installed.
func (r *SessionRepo) Rotate(ctx context.Context, userID uint64, oldID, newID string, exp time.Time) (bool, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"DELETE FROM user_refresh_tokens WHERE user_id=? AND token_id=?",
		userID, oldID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO user_refresh_tokens (user_id, token_id, expires_at) VALUES (?,?,?)",
		userID, newID, exp); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

// DeleteExpired prunes identifiers whose tokens have passed their natural
// expiry.  Without pruning the set grows unbounded across logins that never
// log out.
func (r *SessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM user_refresh_tokens WHERE expires_at < UTC_TIMESTAMP()")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
