package model

import "time"

// User represents an application user record as stored in the `users`
// table.  The password hash and the refresh-token set are never serialized
// to clients; handlers build response shapes from the exported JSON fields.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Name         – display name.
//	Email        – unique email address.
//	PasswordHash – bcrypt hashed password (never serialized).
//	Lat, Lng     – last shared location, nil until the user shares one.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Lat          *float64  `json:"lat,omitempty"`
	Lng          *float64  `json:"lng,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RefreshSession models a row in the `user_refresh_tokens` table.  Each row
// is one member of a user's refresh-token set: an opaque token identifier
// that is also embedded in the signed refresh JWT handed to the client.
// A refresh token is valid only while its identifier row exists; rotation
// deletes the consumed row and inserts the successor in one transaction.
//
// Fields:
//
//	UserID    – owner of the session.
//	TokenID   – 128-bit hex identifier embedded in the refresh JWT.
//	ExpiresAt – expiry mirroring the JWT exp claim, used for pruning.
//	CreatedAt – timestamp of creation.
type RefreshSession struct {
	UserID    uint64
	TokenID   string
	ExpiresAt time.Time
	CreatedAt time.Time
}
