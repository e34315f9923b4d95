package session

import "errors"

var (
	// ErrNotFound signals that no session exists for the identity.
	ErrNotFound = errors.New("session not found")

	// ErrClientUnavailable signals that the protocol client could not be
	// constructed or started for the identity.
	ErrClientUnavailable = errors.New("client unavailable")

	// ErrSendFailed signals a message dispatch outside the ready state or a
	// transport failure during send.
	ErrSendFailed = errors.New("send failed")

	// ErrNoArtifact signals that no pairing image is available, either
	// because the session is not pairing or no code has arrived yet.
	ErrNoArtifact = errors.New("no pairing code available")

	// ErrResourceCleanup signals that a destroy completed but storage
	// removal failed. The session is gone; the error is a warning.
	ErrResourceCleanup = errors.New("resource cleanup failed")
)
