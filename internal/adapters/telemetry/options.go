package telemetry

import (
	"time"

	"github.com/okian/intervue/internal/domain/dedupe"
	"github.com/okian/intervue/pkg/logger"
)

// Default persister configuration constants.
const (
	DefaultPath    = "/save_face_analysis"
	DefaultTimeout = 5 * time.Second
)

// Option applies a configuration option to the Persister.
type Option func(*Persister)

// WithPath sets the collector endpoint path relative to the base URL.
func WithPath(path string) Option {
	return func(p *Persister) {
		if path != "" {
			p.path = path
		}
	}
}

// WithTimeout bounds each persistence call.
func WithTimeout(d time.Duration) Option {
	return func(p *Persister) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithDeduper sets the deduper guarding against persisting a tick twice.
func WithDeduper(d dedupe.Deduper) Option {
	return func(p *Persister) {
		if d != nil {
			p.dedupe = d
		}
	}
}

// WithLogger sets a custom logger for the persister.
func WithLogger(l logger.Logger) Option {
	return func(p *Persister) {
		if l != nil {
			p.logger = l
		}
	}
}
