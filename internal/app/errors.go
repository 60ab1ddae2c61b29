package service

import "errors"

var (
	// ErrNotStarted is returned before Start or after Stop.
	ErrNotStarted = errors.New("service not started")
	// ErrNotFound is returned for unknown session ids.
	ErrNotFound = errors.New("session not found")
	// ErrCapacity is returned when the session limit is reached.
	ErrCapacity = errors.New("session capacity reached")
)
