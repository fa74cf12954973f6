// Package repository implements MySQL persistence for all application
// entities.  Sentinel errors defined here let handlers and services map
// storage failures to the right HTTP responses without string matching.
package repository

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a requested row does not exist.  Handlers
// translate this into HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned by user creation when the email is already
// registered.  Handlers translate this into HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrDuplicateVote is returned when a vote insert loses a race against an
// identical concurrent insert and hits the (user, target, target type)
// unique index.  The voting service re-reads the winner's row and proceeds
// as if the vote already existed.
var ErrDuplicateVote = errors.New("duplicate vote")

// isDuplicateKey reports whether err is a MySQL duplicate-entry violation
// (error 1062).
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(err.Error(), "1062")
}
