package worker

import (
	"github.com/okian/intervue/pkg/logger"
)

type options struct {
	name   string
	logger logger.Logger
}

// Option applies a configuration option to a worker.
type Option func(*options)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(logger logger.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
