package recording

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionFailed is returned when the camera and microphone could not
	// be acquired. The session cannot be used afterwards.
	ErrSessionFailed = errors.New("session failed")
	// ErrSubmissionFailed is returned when an answer could not be submitted.
	ErrSubmissionFailed = errors.New("submission failed")
	// ErrClosed is returned after teardown.
	ErrClosed = errors.New("session closed")
)

// User-facing messages.
const (
	MsgPermissionDenied = "Unable to access camera and microphone. Please grant permissions and try again."
	MsgNoDevice         = "No camera or microphone was found."
	MsgAcquireFailed    = "Unable to start the camera and microphone."
	MsgSubmitFailed     = "Failed to submit answer. Please try again."
)

// Error is a failure surfaced to the user.
type Error struct {
	Message   string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
