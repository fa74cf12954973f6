package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safepath/safepath-server/internal/model"
	"github.com/safepath/safepath-server/internal/repository"
	"github.com/safepath/safepath-server/internal/utils"
)

// fakeSessionStore keeps the refresh set in memory, mimicking the semantics
// of the user_refresh_tokens table.
type fakeSessionStore struct {
	sessions map[uint64]map[string]time.Time
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[uint64]map[string]time.Time{}}
}

func (f *fakeSessionStore) Add(_ context.Context, userID uint64, tokenID string, exp time.Time) error {
	if f.sessions[userID] == nil {
		f.sessions[userID] = map[string]time.Time{}
	}
	f.sessions[userID][tokenID] = exp
	return nil
}

func (f *fakeSessionStore) Remove(_ context.Context, userID uint64, tokenID string) (bool, error) {
	if _, ok := f.sessions[userID][tokenID]; !ok {
		return false, nil
	}
	delete(f.sessions[userID], tokenID)
	return true, nil
}

func (f *fakeSessionStore) Rotate(ctx context.Context, userID uint64, oldID, newID string, exp time.Time) (bool, error) {
	present, err := f.Remove(ctx, userID, oldID)
	if err != nil || !present {
		return false, err
	}
	return true, f.Add(ctx, userID, newID, exp)
}

func (f *fakeSessionStore) count(userID uint64) int { return len(f.sessions[userID]) }

type fakeAccountStore struct {
	users map[uint64]model.User
}

func (f *fakeAccountStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeAccountStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func newTestAuth() (*AuthService, *fakeSessionStore, *fakeAccountStore) {
	sessions := newFakeSessionStore()
	accounts := &fakeAccountStore{users: map[uint64]model.User{
		1: {ID: 1, Name: "Ada", Email: "ada@example.com"},
	}}
	return NewAuthService(sessions, accounts, "access-secret", "refresh-secret", 15, 7), sessions, accounts
}

func TestIssuePairPersistsSession(t *testing.T) {
	svc, sessions, _ := newTestAuth()

	pair, err := svc.IssuePair(context.Background(), 1)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, 1, sessions.count(1))

	uid, err := svc.Authenticate(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), uid)
}

func TestIssuePairMultipleDevices(t *testing.T) {
	svc, sessions, _ := newTestAuth()

	_, err := svc.IssuePair(context.Background(), 1)
	require.NoError(t, err)
	_, err = svc.IssuePair(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, sessions.count(1), "second login must not evict the first session")
}

func TestRotateReturnsFreshPair(t *testing.T) {
	svc, sessions, _ := newTestAuth()
	ctx := context.Background()

	pair, err := svc.IssuePair(ctx, 1)
	require.NoError(t, err)

	next, user, err := svc.Rotate(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), user.ID)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)
	assert.Equal(t, 1, sessions.count(1), "rotation swaps, never grows the set")
}

func TestRotateReplayDetected(t *testing.T) {
	svc, _, _ := newTestAuth()
	ctx := context.Background()

	pair, err := svc.IssuePair(ctx, 1)
	require.NoError(t, err)

	_, _, err = svc.Rotate(ctx, pair.RefreshToken)
	require.NoError(t, err)

	// Presenting the consumed token again must fail as revoked.
	_, _, err = svc.Rotate(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrRevokedToken)
}

func TestRotateAfterLogout(t *testing.T) {
	svc, _, _ := newTestAuth()
	ctx := context.Background()

	pair, err := svc.IssuePair(ctx, 1)
	require.NoError(t, err)

	svc.Revoke(ctx, pair.RefreshToken)

	_, _, err = svc.Rotate(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrRevokedToken)
}

func TestRotateMalformedToken(t *testing.T) {
	svc, _, _ := newTestAuth()

	_, _, err := svc.Rotate(context.Background(), "garbage")
	assert.ErrorIs(t, err, utils.ErrInvalidToken)
}

func TestRotateUnknownAccount(t *testing.T) {
	svc, _, accounts := newTestAuth()
	ctx := context.Background()

	pair, err := svc.IssuePair(ctx, 1)
	require.NoError(t, err)

	delete(accounts.users, 1)

	_, _, err = svc.Rotate(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrUnknownAccount)
}

func TestRevokeIdempotent(t *testing.T) {
	svc, sessions, _ := newTestAuth()
	ctx := context.Background()

	pair, err := svc.IssuePair(ctx, 1)
	require.NoError(t, err)

	// Repeated revokes and garbage input never panic or error.
	svc.Revoke(ctx, pair.RefreshToken)
	svc.Revoke(ctx, pair.RefreshToken)
	svc.Revoke(ctx, "garbage")
	svc.Revoke(ctx, "")
	assert.Equal(t, 0, sessions.count(1))
}

func TestRevokeLeavesOtherSessions(t *testing.T) {
	svc, sessions, _ := newTestAuth()
	ctx := context.Background()

	a, err := svc.IssuePair(ctx, 1)
	require.NoError(t, err)
	b, err := svc.IssuePair(ctx, 1)
	require.NoError(t, err)

	svc.Revoke(ctx, a.RefreshToken)
	assert.Equal(t, 1, sessions.count(1))

	// The untouched session still rotates.
	_, _, err = svc.Rotate(ctx, b.RefreshToken)
	assert.NoError(t, err)
}

func TestAuthenticateRejectsRefreshToken(t *testing.T) {
	svc, _, _ := newTestAuth()

	pair, err := svc.IssuePair(context.Background(), 1)
	require.NoError(t, err)

	_, err = svc.Authenticate(pair.RefreshToken)
	assert.ErrorIs(t, err, utils.ErrInvalidToken)
}
