package account

import "errors"

var (
	// ErrNotFound signals an unknown account identity or email.
	ErrNotFound = errors.New("account not found")

	// ErrConflict signals a duplicate registration for an email.
	ErrConflict = errors.New("account already exists")

	// ErrUnauthenticated signals a failed credential check.
	ErrUnauthenticated = errors.New("invalid credentials")
)
