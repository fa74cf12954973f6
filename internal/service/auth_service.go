package service

import (
	"context"
	"errors"
	"time"

	"github.com/safepath/safepath-server/internal/model"
	"github.com/safepath/safepath-server/internal/repository"
	"github.com/safepath/safepath-server/internal/utils"
)

// SessionStore is the persistence surface the auth service needs for the
// per-account refresh-token set. Implemented by repository.SessionRepo.
type SessionStore interface {
	Add(ctx context.Context, userID uint64, tokenID string, exp time.Time) error
	Remove(ctx context.Context, userID uint64, tokenID string) (bool, error)
	Rotate(ctx context.Context, userID uint64, oldID, newID string, exp time.Time) (bool, error)
}

// AccountStore resolves user rows for login and for the snapshot returned by
// rotation. Implemented by repository.UserRepo.
type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// TokenPair is what every successful login, registration or refresh returns.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	AccessExp    time.Time `json:"access_expires_at"`
	RefreshExp   time.Time `json:"refresh_expires_at"`
}

// AuthService owns the session lifecycle: issuing token pairs, rotating
// refresh tokens with replay detection, and revoking sessions. Access token
// verification is purely cryptographic and never touches the stores.
type AuthService struct {
	Sessions      SessionStore
	Accounts      AccountStore
	AccessSecret  string
	RefreshSecret string
	AccessTTLMin  int
	RefreshTTLDys int
}

func NewAuthService(sessions SessionStore, accounts AccountStore, accessSecret, refreshSecret string, accessTTLMin, refreshTTLDays int) *AuthService {
	return &AuthService{
		Sessions:      sessions,
		Accounts:      accounts,
		AccessSecret:  accessSecret,
		RefreshSecret: refreshSecret,
		AccessTTLMin:  accessTTLMin,
		RefreshTTLDys: refreshTTLDays,
	}
}

// IssuePair mints a fresh access+refresh pair for a user and persists the
// refresh identifier into the account's refresh set. Used on register and
// login; each call adds a new session without disturbing existing ones, so a
// user can stay signed in on several devices.
func (s *AuthService) IssuePair(ctx context.Context, userID uint64) (TokenPair, error) {
	access, err := utils.NewAccessToken(s.AccessSecret, userID, s.AccessTTLMin)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := utils.NewRefreshToken(s.RefreshSecret, userID, s.RefreshTTLDys)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.Sessions.Add(ctx, userID, refresh.TokenID, refresh.Exp); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access.Token,
		RefreshToken: refresh.Token,
		AccessExp:    access.Exp,
		RefreshExp:   refresh.Exp,
	}, nil
}

// Rotate exchanges a refresh token for a new pair. The presented token's
// identifier is atomically swapped for a new one; if the identifier was not
// in the set the token was already used or revoked and the call fails with
// ErrRevokedToken. Returns the fresh pair and a snapshot of the account.
func (s *AuthService) Rotate(ctx context.Context, rawRefresh string) (TokenPair, model.User, error) {
	userID, oldID, err := utils.ParseRefreshToken(s.RefreshSecret, rawRefresh)
	if err != nil {
		return TokenPair{}, model.User{}, utils.ErrInvalidToken
	}

	user, err := s.Accounts.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return TokenPair{}, model.User{}, ErrUnknownAccount
	}
	if err != nil {
		return TokenPair{}, model.User{}, err
	}

	access, err := utils.NewAccessToken(s.AccessSecret, userID, s.AccessTTLMin)
	if err != nil {
		return TokenPair{}, model.User{}, err
	}
	refresh, err := utils.NewRefreshToken(s.RefreshSecret, userID, s.RefreshTTLDys)
	if err != nil {
		return TokenPair{}, model.User{}, err
	}

	rotated, err := s.Sessions.Rotate(ctx, userID, oldID, refresh.TokenID, refresh.Exp)
	if err != nil {
		return TokenPair{}, model.User{}, err
	}
	if !rotated {
		return TokenPair{}, model.User{}, ErrRevokedToken
	}

	return TokenPair{
		AccessToken:  access.Token,
		RefreshToken: refresh.Token,
		AccessExp:    access.Exp,
		RefreshExp:   refresh.Exp,
	}, user, nil
}

// Revoke logs out the session a refresh token belongs to. It is idempotent
// and deliberately never reports failure to the caller: a malformed token, an
// already-revoked identifier or an unknown user all end in the same state,
// the token no longer works.
func (s *AuthService) Revoke(ctx context.Context, rawRefresh string) {
	userID, tokenID, err := utils.ParseRefreshToken(s.RefreshSecret, rawRefresh)
	if err != nil {
		return
	}
	_, _ = s.Sessions.Remove(ctx, userID, tokenID)
}

// Authenticate verifies an access token and returns the account id it
// carries. Purely cryptographic, no store lookups, so it stays cheap on every
// protected request.
func (s *AuthService) Authenticate(raw string) (uint64, error) {
	return utils.ParseAccessToken(s.AccessSecret, raw)
}
