package service

import "errors"

var (
	// ErrRevokedToken means a refresh token was cryptographically valid but
	// its identifier is no longer in the account's refresh set. Either it was
	// already rotated (replay) or the session was logged out.
	ErrRevokedToken = errors.New("revoked token")

	// ErrUnknownAccount means a token referenced an account that no longer
	// exists.
	ErrUnknownAccount = errors.New("unknown account")

	// ErrInvalidCredentials covers both a missing email and a wrong password
	// on login, deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrInvalidArgument = errors.New("invalid argument")
	ErrTargetNotFound  = errors.New("target not found")
	ErrForbidden       = errors.New("forbidden")
)
