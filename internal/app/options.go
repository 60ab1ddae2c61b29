package service

import (
	"github.com/okian/intervue/internal/adapters/device"
	"github.com/okian/intervue/internal/adapters/telemetry"
	"github.com/okian/intervue/internal/recording"
	"github.com/okian/intervue/pkg/logger"
)

// Default service configuration constants.
const (
	defaultMaxSessions = 64
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithPlatform sets the device platform sessions acquire devices from.
func WithPlatform(p device.Platform) Option {
	return func(s *Service) {
		if p != nil {
			s.platform = p
		}
	}
}

// WithSubmitter sets the answer submission client.
func WithSubmitter(sub recording.Submitter) Option {
	return func(s *Service) {
		if sub != nil {
			s.submitter = sub
		}
	}
}

// WithTelemetry sets the persister every session's frames are shipped to.
func WithTelemetry(p *telemetry.Persister) Option {
	return func(s *Service) {
		s.telemetry = p
	}
}

// WithMediaSink sets where recorded answers are stored.
func WithMediaSink(m recording.MediaSink) Option {
	return func(s *Service) {
		s.media = m
	}
}

// WithProjector sets the UI projector shared by every session.
func WithProjector(p recording.Projector) Option {
	return func(s *Service) {
		s.projector = p
	}
}

// WithMaxSessions caps concurrently open sessions.
func WithMaxSessions(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSessions = n
		}
	}
}

// WithControllerOptions passes options to every session controller.
func WithControllerOptions(opts ...recording.Option) Option {
	return func(s *Service) {
		s.controllerOpts = append(s.controllerOpts, opts...)
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
