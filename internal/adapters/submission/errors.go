package submission

import "errors"

var (
	// ErrInvalidRequest is returned when a request fails validation.
	ErrInvalidRequest = errors.New("invalid submission request")
	// ErrTransport is returned when the endpoint could not be reached.
	ErrTransport = errors.New("submission transport failed")
	// ErrRejected is returned when the endpoint answers with an error.
	ErrRejected = errors.New("submission rejected")
	// ErrInvalidResponse is returned when the answer cannot be understood.
	ErrInvalidResponse = errors.New("invalid submission response")
)
