package ws

import (
	"time"

	"github.com/okian/intervue/pkg/logger"
)

// Default hub configuration constants.
const (
	defaultSendBuffer   = 256
	defaultWriteTimeout = 10 * time.Second
	defaultPingInterval = 30 * time.Second
)

// Option applies a configuration option to the Hub.
type Option func(*Hub)

// WithSendBuffer sets how many messages may wait for a slow client before
// it is dropped.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// WithPingInterval sets the keepalive period.
func WithPingInterval(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.pingInterval = d
		}
	}
}

// WithLogger sets a custom logger for the hub.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}
