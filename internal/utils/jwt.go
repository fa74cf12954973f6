package utils // package utils provides helper functions for token creation and verification

import (
	"crypto/rand"   // secure random number generation for refresh identifiers
	"encoding/hex"  // hex encoding for refresh identifiers
	"errors"        // sentinel errors for token verification
	"fmt"           // claim formatting
	"strconv"       // subject claim parsing
	"time"          // expiration arithmetic

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens
)

// ErrInvalidToken is returned whenever a token fails verification for any
// reason: bad signature, wrong signing method, expiry, or malformed claims.
// Callers never learn which check failed.
var ErrInvalidToken = errors.New("invalid token")

// AccessToken represents a signed JWT access token along with its expiry.
// Access tokens are short-lived, self-contained, and presented in the
// Authorization header on protected endpoints.  They cannot be revoked
// before natural expiry, which bounds the blast radius of a leaked token
// to its lifetime.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// RefreshToken represents a long-lived signed JWT used to obtain new token
// pairs.  The TokenID is also embedded in the claims; server-side membership
// of that identifier in the user's refresh set is what makes the token
// revocable and single-use.
type RefreshToken struct {
	Token   string    // the serialized JWT string
	TokenID string    // 128-bit hex identifier embedded in the claims
	Exp     time.Time // UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT for a user.  The JWT carries
// the user ID as the subject (sub), expiration (exp) and issued at (iat).
func NewAccessToken(secret string, userID uint64, ttlMin int) (AccessToken, error) {
	exp := time.Now().UTC().Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(userID, 10),
		"exp": exp.Unix(),
		"iat": time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// NewRefreshToken builds and signs an HS256 refresh JWT embedding the user
// ID and a freshly generated random token identifier.  The identifier must
// be persisted into the user's refresh-token set by the caller; the token is
// only honored while that membership holds.
func NewRefreshToken(secret string, userID uint64, ttlDays int) (RefreshToken, error) {
	tokenID, err := NewRefreshTokenID()
	if err != nil {
		return RefreshToken{}, err
	}
	exp := time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour)
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(userID, 10),
		"tid": tokenID,
		"exp": exp.Unix(),
		"iat": time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{Token: signed, TokenID: tokenID, Exp: exp}, nil
}

// NewRefreshTokenID returns a 128-bit cryptographically random identifier
// encoded as 32 hex characters.  Collision probability is negligible, so
// generation is never retried.
func NewRefreshTokenID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// ParseAccessToken verifies an access JWT and returns the embedded user ID.
// Expired, malformed or wrongly signed tokens all yield ErrInvalidToken.
func ParseAccessToken(secret, raw string) (uint64, error) {
	claims, err := parseHS256(secret, raw)
	if err != nil {
		return 0, err
	}
	return subjectID(claims)
}

// ParseRefreshToken verifies a refresh JWT and returns the embedded user ID
// and token identifier.  Verification here is purely cryptographic; whether
// the identifier is still a live member of the user's refresh set is the
// caller's check.
func ParseRefreshToken(secret, raw string) (uint64, string, error) {
	claims, err := parseHS256(secret, raw)
	if err != nil {
		return 0, "", err
	}
	uid, err := subjectID(claims)
	if err != nil {
		return 0, "", err
	}
	tid, ok := claims["tid"].(string)
	if !ok || tid == "" {
		return 0, "", ErrInvalidToken
	}
	return uid, tid, nil
}

// parseHS256 parses a token, enforcing the HMAC signing method so tokens
// signed with a different algorithm are rejected.
func parseHS256(secret, raw string) (jwt.MapClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// subjectID extracts the numeric user ID from the sub claim.  Tokens issued
// by this service always encode the subject as a decimal string, but float64
// is accepted for robustness since JSON numbers decode that way.
func subjectID(claims jwt.MapClaims) (uint64, error) {
	switch v := claims["sub"].(type) {
	case string:
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n, nil
		}
	case float64:
		return uint64(v), nil
	}
	return 0, ErrInvalidToken
}
