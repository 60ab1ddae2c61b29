// Package telemetry ships signal frames to the backend collector. Delivery
// is best effort: each frame is posted once, in the background, and any
// failure is logged and dropped.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/okian/intervue/internal/domain/dedupe"
	"github.com/okian/intervue/internal/domain/session"
	"github.com/okian/intervue/internal/domain/signal"
	"github.com/okian/intervue/pkg/logger"
	"github.com/okian/intervue/pkg/metrics"
)

// Payload is the body accepted by the collector.
type Payload struct {
	SessionID   string       `json:"session_id"`
	InterviewID string       `json:"interview_id,omitempty"`
	Timestamp   float64      `json:"timestamp"`
	Analysis    signal.Frame `json:"analysis"`
}

// Persister posts frames to the collector endpoint.
type Persister struct {
	client  *resty.Client
	path    string
	timeout time.Duration
	dedupe  dedupe.Deduper
	logger  logger.Logger

	wg sync.WaitGroup
}

// New creates a persister for the collector at baseURL with configuration options.
func New(baseURL string, opts ...Option) *Persister {
	p := &Persister{
		path:    DefaultPath,
		timeout: DefaultTimeout,
	}

	// Apply all options
	for _, opt := range opts {
		opt(p)
	}

	if p.dedupe == nil {
		p.dedupe = dedupe.NewInMemoryDeduper()
	}
	if p.logger == nil {
		p.logger = logger.Get().Named("telemetry")
	}
	p.client = resty.New().
		SetBaseURL(baseURL).
		SetTimeout(p.timeout).
		SetHeader("Content-Type", "application/json")
	return p
}

// Persist dispatches one frame and returns immediately. A frame whose tick
// was already persisted for the session is skipped.
func (p *Persister) Persist(ctx context.Context, sessionID, interviewID string, f signal.Frame) {
	if p.dedupe.SeenAndRecord(ctx, dedupe.TickKey(sessionID, f.Timestamp)) {
		metrics.RecordTelemetryResult("duplicate")
		return
	}
	payload := Payload{
		SessionID:   sessionID,
		InterviewID: interviewID,
		Timestamp:   f.Timestamp,
		Analysis:    f,
	}
	// Detached from the sampling tick; only the timeout bounds it.
	dctx := context.WithoutCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.send(dctx, payload)
	}()
}

// Wait blocks until every dispatched frame has been answered or ctx ends.
func (p *Persister) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sink returns a session sink persisting the frames of one interview.
func (p *Persister) Sink(interviewID string) session.Sink {
	return &sink{persister: p, interviewID: interviewID}
}

func (p *Persister) send(ctx context.Context, payload Payload) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post(p.path)
	metrics.RecordTelemetryLatency(float64(time.Since(start).Milliseconds()))

	switch {
	case err != nil:
		metrics.RecordTelemetryResult("error")
		p.logger.Warn(ctx, "telemetry dropped",
			logger.String("sessionID", payload.SessionID),
			logger.Float64("timestamp", payload.Timestamp),
			logger.Error(err),
		)
	case resp.IsError():
		metrics.RecordTelemetryResult("rejected")
		p.logger.Warn(ctx, "telemetry rejected",
			logger.String("sessionID", payload.SessionID),
			logger.Float64("timestamp", payload.Timestamp),
			logger.Int("status", resp.StatusCode()),
		)
	default:
		metrics.RecordTelemetryResult("ok")
	}
}

type sink struct {
	session.NopSink
	persister   *Persister
	interviewID string
}

func (s *sink) FrameSampled(ctx context.Context, sessionID string, f signal.Frame) {
	s.persister.Persist(ctx, sessionID, s.interviewID, f)
}
