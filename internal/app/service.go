// Package service keeps the open interview sessions of the process and
// the collaborators they share.
package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/intervue/internal/adapters/device"
	"github.com/okian/intervue/internal/adapters/device/synthetic"
	"github.com/okian/intervue/internal/adapters/telemetry"
	"github.com/okian/intervue/internal/domain/session"
	"github.com/okian/intervue/internal/recording"
	"github.com/okian/intervue/pkg/logger"
)

// Service is the registry of open sessions.
type Service struct {
	mu sync.RWMutex

	// Collaborators
	platform  device.Platform
	submitter recording.Submitter
	telemetry *telemetry.Persister
	media     recording.MediaSink
	projector recording.Projector

	// Configuration
	maxSessions    int
	controllerOpts []recording.Option

	// State
	started  bool
	sessions map[string]*recording.Controller

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		maxSessions: defaultMaxSessions,
		sessions:    make(map[string]*recording.Controller),
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	if s.platform == nil {
		s.platform = synthetic.New()
	}
	return s
}

// Start makes the service accept sessions.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.submitter == nil {
		return fmt.Errorf("start service: no submitter configured")
	}

	s.started = true
	s.logger.Info(ctx, "interview service started",
		logger.Int("maxSessions", s.maxSessions),
		logger.Bool("telemetry", s.telemetry != nil),
		logger.Bool("media", s.media != nil),
	)
	return nil
}

// Stop tears down every open session and waits for in-flight telemetry.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	open := s.sessions
	s.sessions = make(map[string]*recording.Controller)
	s.mu.Unlock()

	s.logger.Info(ctx, "stopping interview service...", logger.Int("sessions", len(open)))

	var g errgroup.Group
	for _, c := range open {
		g.Go(func() error {
			return c.Close(ctx)
		})
	}
	err := g.Wait()

	if s.telemetry != nil {
		if werr := s.telemetry.Wait(ctx); werr != nil && err == nil {
			err = werr
		}
	}
	s.logger.Info(ctx, "interview service stopped")
	return err
}

// CreateSession opens and initializes a session for one question. When
// initialization fails the session stays registered in its Failed state
// and is returned together with the error.
func (s *Service) CreateSession(ctx context.Context, questionID, interviewID string) (*recording.Controller, error) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil, ErrNotStarted
	}
	if len(s.sessions) >= s.maxSessions {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %d open", ErrCapacity, s.maxSessions)
	}
	id := uuid.NewString()
	opts := append([]recording.Option{}, s.controllerOpts...)
	opts = append(opts, recording.WithQuestion(questionID, interviewID))
	if s.projector != nil {
		opts = append(opts, recording.WithProjector(s.projector))
	}
	if s.telemetry != nil {
		opts = append(opts, recording.WithSinks(s.telemetry.Sink(interviewID)))
	}
	if s.media != nil {
		opts = append(opts, recording.WithMediaSink(s.media))
	}
	c := recording.New(id, s.platform, s.submitter, opts...)
	s.sessions[id] = c
	s.mu.Unlock()

	if err := c.Initialize(ctx); err != nil {
		return c, err
	}
	return c, nil
}

// Session returns an open session.
func (s *Service) Session(id string) (*recording.Controller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c, nil
}

// CloseSession tears a session down and forgets it.
func (s *Service) CloseSession(ctx context.Context, id string) (session.Snapshot, error) {
	s.mu.Lock()
	c, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return session.Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := c.Close(ctx); err != nil {
		return session.Snapshot{}, err
	}
	return c.Snapshot(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	started := s.started
	open := make([]*recording.Controller, 0, len(s.sessions))
	for _, c := range s.sessions {
		open = append(open, c)
	}
	s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     started,
		"maxSessions": s.maxSessions,
		"sessions":    len(open),
	}

	byStatus := make(map[string]int)
	for _, c := range open {
		snap, err := c.Snapshot(context.Background())
		if err != nil {
			continue
		}
		byStatus[snap.Status.String()]++
	}
	stats["byStatus"] = byStatus
	return stats
}
