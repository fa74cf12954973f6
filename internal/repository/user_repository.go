package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/safepath/safepath-server/internal/model"
	"github.com/safepath/safepath-server/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a user and returns its ID.  Email is normalized to lower
// case; the unique index on email turns duplicate signups into
// ErrEmailExists.  An initial location is optional.
func (r *UserRepo) Create(ctx context.Context, name, email, password string, cost int, lat, lng *float64) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, lat, lng) VALUES (?,?,?,?,?)",
		name, email, hash, lat, lng)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(ctx,
		"SELECT id,name,email,password_hash,lat,lng,created_at,updated_at FROM users WHERE email=? LIMIT 1", email)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanOne(ctx,
		"SELECT id,name,email,password_hash,lat,lng,created_at,updated_at FROM users WHERE id=? LIMIT 1", id)
}

// UpdateLocation stores the user's last shared coordinates.
func (r *UserRepo) UpdateLocation(ctx context.Context, id uint64, lat, lng float64) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET lat=?, lng=? WHERE id=?", lat, lng, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// The row may exist with identical coordinates; distinguish from a
		// missing user before reporting not found.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// UpdateName renames the user.
func (r *UserRepo) UpdateName(ctx context.Context, id uint64, name string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET name=? WHERE id=?", name, id)
	return err
}

// UpdatePasswordHash replaces the stored credential.
func (r *UserRepo) UpdatePasswordHash(ctx context.Context, id uint64, hash string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET password_hash=? WHERE id=?", hash, id)
	return err
}

func (r *UserRepo) scanOne(ctx context.Context, query string, args ...any) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx, query, args...).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Lat, &u.Lng, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.User{}, ErrNotFound
	}
	return u, err
}
