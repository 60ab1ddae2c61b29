package session

import "errors"

// Sentinel kinds for session errors.
var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrClosed            = errors.New("session closed")
	ErrNotStarted        = errors.New("session event loop not started")
)
