package session

import (
	"context"
	"time"

	"github.com/okian/intervue/internal/domain/signal"
)

// Sink observes applied session changes. Methods run on the consumer
// goroutine, in apply order, and must not call back into the store.
type Sink interface {
	FrameSampled(ctx context.Context, sessionID string, f signal.Frame)
	LevelSampled(ctx context.Context, sessionID string, l signal.AudioLevel)
	TranscriptReceived(ctx context.Context, sessionID string, f signal.Fragment, transcript string)
	ElapsedTicked(ctx context.Context, sessionID string, elapsed time.Duration)
	Transitioned(ctx context.Context, t Transition)
}

// NopSink ignores every notification. Embed it to implement a subset.
type NopSink struct{}

// FrameSampled does nothing.
func (NopSink) FrameSampled(context.Context, string, signal.Frame) {}

// LevelSampled does nothing.
func (NopSink) LevelSampled(context.Context, string, signal.AudioLevel) {}

// TranscriptReceived does nothing.
func (NopSink) TranscriptReceived(context.Context, string, signal.Fragment, string) {}

// ElapsedTicked does nothing.
func (NopSink) ElapsedTicked(context.Context, string, time.Duration) {}

// Transitioned does nothing.
func (NopSink) Transitioned(context.Context, Transition) {}

// Fanout forwards every notification to each sink in order.
type Fanout []Sink

var _ Sink = Fanout(nil)

// FrameSampled forwards to every sink.
func (f Fanout) FrameSampled(ctx context.Context, id string, fr signal.Frame) {
	for _, s := range f {
		s.FrameSampled(ctx, id, fr)
	}
}

// LevelSampled forwards to every sink.
func (f Fanout) LevelSampled(ctx context.Context, id string, l signal.AudioLevel) {
	for _, s := range f {
		s.LevelSampled(ctx, id, l)
	}
}

// TranscriptReceived forwards to every sink.
func (f Fanout) TranscriptReceived(ctx context.Context, id string, fr signal.Fragment, transcript string) {
	for _, s := range f {
		s.TranscriptReceived(ctx, id, fr, transcript)
	}
}

// ElapsedTicked forwards to every sink.
func (f Fanout) ElapsedTicked(ctx context.Context, id string, elapsed time.Duration) {
	for _, s := range f {
		s.ElapsedTicked(ctx, id, elapsed)
	}
}

// Transitioned forwards to every sink.
func (f Fanout) Transitioned(ctx context.Context, t Transition) {
	for _, s := range f {
		s.Transitioned(ctx, t)
	}
}
