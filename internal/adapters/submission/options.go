package submission

import (
	"time"

	"github.com/okian/intervue/pkg/logger"
)

// Default client configuration constants.
const (
	DefaultPath    = "/submit_answer"
	DefaultTimeout = 30 * time.Second
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithPath sets the submission endpoint path relative to the base URL.
func WithPath(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.path = path
		}
	}
}

// WithTimeout bounds each submission call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}
