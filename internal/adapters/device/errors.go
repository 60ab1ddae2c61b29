package device

import "errors"

// Sentinel kinds for device errors.
var (
	ErrUnsupported      = errors.New("capability unsupported")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNoDevice         = errors.New("no capture device")
	ErrClosed           = errors.New("device closed")
	ErrAlreadyStarted   = errors.New("already started")
)
