package logger

import "io"

// Rotation defaults for the optional log file.
const (
	defaultMaxSizeMB  = 50
	defaultMaxBackups = 5
	defaultMaxAgeDays = 14
)

type options struct {
	writer     io.Writer
	file       string
	maxSizeMB  int
	maxBackups int
	maxAgeDays int
	compress   bool
}

// Option configures Init.
type Option func(*options)

// WithWriter replaces stdout as the primary log destination.
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.writer = w
		}
	}
}

// WithOutputFile tees log output into a rotating file at path.
func WithOutputFile(path string) Option {
	return func(o *options) {
		o.file = path
	}
}

// WithRotation overrides the rotation limits of the log file.
func WithRotation(maxSizeMB, maxBackups, maxAgeDays int, compress bool) Option {
	return func(o *options) {
		if maxSizeMB > 0 {
			o.maxSizeMB = maxSizeMB
		}
		if maxBackups >= 0 {
			o.maxBackups = maxBackups
		}
		if maxAgeDays >= 0 {
			o.maxAgeDays = maxAgeDays
		}
		o.compress = compress
	}
}
