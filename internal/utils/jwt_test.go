package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAccessSecret  = "access-secret"
	testRefreshSecret = "refresh-secret"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken(testAccessSecret, 42, 15)
	require.NoError(t, err)
	require.NotEmpty(t, tok.Token)

	uid, err := ParseAccessToken(testAccessSecret, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), uid)
}

func TestAccessTokenWrongSecret(t *testing.T) {
	tok, err := NewAccessToken(testAccessSecret, 42, 15)
	require.NoError(t, err)

	_, err = ParseAccessToken("other-secret", tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAccessTokenExpired(t *testing.T) {
	tok, err := NewAccessToken(testAccessSecret, 42, -1)
	require.NoError(t, err)

	_, err = ParseAccessToken(testAccessSecret, tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	tok, err := NewRefreshToken(testRefreshSecret, 7, 30)
	require.NoError(t, err)
	require.Len(t, tok.TokenID, 32)

	uid, tid, err := ParseRefreshToken(testRefreshSecret, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), uid)
	assert.Equal(t, tok.TokenID, tid)
}

func TestRefreshTokenNotValidAsAccess(t *testing.T) {
	// Different secrets keep the two token kinds from being interchangeable.
	tok, err := NewRefreshToken(testRefreshSecret, 7, 30)
	require.NoError(t, err)

	_, err = ParseAccessToken(testAccessSecret, tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAccessTokenNotValidAsRefresh(t *testing.T) {
	tok, err := NewAccessToken(testAccessSecret, 42, 15)
	require.NoError(t, err)

	// Even with the right secret an access token has no tid claim.
	_, _, err = ParseRefreshToken(testAccessSecret, tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseGarbage(t *testing.T) {
	_, err := ParseAccessToken(testAccessSecret, "not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, _, err = ParseRefreshToken(testRefreshSecret, "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokenIDsUnique(t *testing.T) {
	a, err := NewRefreshTokenID()
	require.NoError(t, err)
	b, err := NewRefreshTokenID()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
