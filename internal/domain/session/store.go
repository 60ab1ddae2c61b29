package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/okian/intervue/internal/adapters/mq/queue"
	"github.com/okian/intervue/internal/adapters/mq/worker"
	"github.com/okian/intervue/pkg/clock"
	"github.com/okian/intervue/pkg/logger"
	"github.com/okian/intervue/pkg/metrics"
)

const queueName = "session_events"

// Store owns a State and applies every write to it from one consumer
// goroutine, in the order the writes were enqueued.
type Store struct {
	state  State
	sink   Fanout
	clock  clock.Clock
	buffer int
	logger logger.Logger

	queue  *queue.InMemoryQueue[Event]
	worker *worker.InMemoryWorker[Event]

	startOnce sync.Once
	closeOnce sync.Once
	started   atomic.Bool
	cancel    context.CancelFunc
	final     atomic.Pointer[Snapshot]
}

// NewStore creates an Idle session with configuration options.
func NewStore(id string, opts ...Option) *Store {
	s := &Store{
		clock:  clock.Real(),
		buffer: defaultBuffer,
	}
	s.state.ID = id

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("session")
	}
	s.queue = queue.NewInMemoryQueue[Event](queue.WithCapacity(s.buffer), queue.WithName(queueName))
	s.worker = worker.NewInMemoryWorker[Event](s.queue, worker.HandlerFunc[Event](s.handle),
		worker.WithName("session-"+id), worker.WithLogger(s.logger))
	return s
}

// ID returns the session identifier.
func (s *Store) ID() string { return s.state.ID }

// Start runs the consumer until Close.
func (s *Store) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		// Consumer outlives request contexts; Close cancels it.
		cctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		s.cancel = cancel
		s.started.Store(true)
		go s.worker.Run(cctx)
	})
}

// Publish enqueues a sample event, blocking while the queue is full.
func (s *Store) Publish(ctx context.Context, e Event) error {
	if err := s.queue.EnqueueWait(ctx, e); err != nil {
		if errors.Is(err, queue.ErrClosed) {
			return ErrClosed
		}
		return err
	}
	return nil
}

// Do runs fn on the consumer goroutine after every previously enqueued
// event has been applied, and returns its error.
func (s *Store) Do(ctx context.Context, fn func(*State) error) error {
	return s.await(ctx, Event{Kind: kindCommand, command: fn})
}

// Transition validates and applies a status change, then notifies sinks.
func (s *Store) Transition(ctx context.Context, c Change) error {
	return s.await(ctx, Event{Kind: kindTransition, change: c})
}

// Snapshot returns a consistent view of the state. After Close it returns
// the final view.
func (s *Store) Snapshot(ctx context.Context) (Snapshot, error) {
	if f := s.final.Load(); f != nil {
		return *f, nil
	}
	var snap Snapshot
	err := s.Do(ctx, func(st *State) error {
		snap = st.Snapshot()
		return nil
	})
	if errors.Is(err, ErrClosed) {
		if f := s.final.Load(); f != nil {
			return *f, nil
		}
	}
	return snap, err
}

// Close stops accepting writes, applies what is queued and stops the
// consumer. Sinks are not notified after Close returns.
func (s *Store) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		_ = s.queue.Close()
		if !s.started.Load() {
			snap := s.state.Snapshot()
			s.final.Store(&snap)
			return
		}
		select {
		case <-s.worker.Done():
		case <-ctx.Done():
			err = fmt.Errorf("close session %s: %w", s.state.ID, ctx.Err())
		}
		s.cancel()
		<-s.worker.Done()
		snap := s.state.Snapshot()
		s.final.Store(&snap)
	})
	return err
}

func (s *Store) await(ctx context.Context, e Event) error {
	if !s.started.Load() {
		return ErrNotStarted
	}
	e.reply = make(chan error, 1)
	if err := s.Publish(ctx, e); err != nil {
		return err
	}
	// A queued event is always applied, so its result is awaited even
	// after ctx ends.
	select {
	case err := <-e.reply:
		return err
	case <-s.worker.Done():
		select {
		case err := <-e.reply:
			return err
		default:
			return ErrClosed
		}
	}
}

// handle applies one event. It only runs on the consumer goroutine.
func (s *Store) handle(ctx context.Context, e Event) error {
	st := &s.state
	switch e.Kind {
	case KindFrame:
		if !st.Status.AcceptsSamples() {
			s.drop(ctx, e)
			return nil
		}
		f := e.Frame.WithTimestamp(st.ResponseTime(e.At).Seconds())
		st.LastFrame = &f
		st.Summary.Add(f)
		s.sink.FrameSampled(ctx, st.ID, f)

	case KindLevel:
		if !st.Status.AcceptsLevels() {
			s.drop(ctx, e)
			return nil
		}
		st.LastLevel = e.Level
		metrics.UpdateAudioLevel(e.Level.Percentage)
		s.sink.LevelSampled(ctx, st.ID, e.Level)

	case KindTranscript:
		if !st.Status.AcceptsSamples() {
			s.drop(ctx, e)
			return nil
		}
		for _, f := range e.Fragments {
			if f.IsFinal {
				if !st.Transcript.Append(f) {
					continue
				}
				st.Interim = ""
				metrics.RecordTranscriptFragment("final")
			} else {
				st.Interim = f.Text
				metrics.RecordTranscriptFragment("interim")
			}
			s.sink.TranscriptReceived(ctx, st.ID, f, st.Transcript.String())
		}

	case KindChunk:
		if !st.Status.AcceptsSamples() {
			s.drop(ctx, e)
			return nil
		}
		st.MediaChunks = append(st.MediaChunks, e.Chunk)
		metrics.RecordMediaChunk()

	case KindElapsed:
		if !st.Status.AcceptsSamples() {
			s.drop(ctx, e)
			return nil
		}
		st.Elapsed = st.ResponseTime(e.At)
		s.sink.ElapsedTicked(ctx, st.ID, st.Elapsed)

	case kindTransition:
		t, err := s.transition(e.change)
		if err == nil {
			s.logger.Info(ctx, "session transition",
				logger.String("sessionID", st.ID),
				logger.String("from", t.From.String()),
				logger.String("to", t.To.String()),
				logger.String("reason", t.Reason),
			)
			// Observers see the change before the caller is released.
			s.sink.Transitioned(ctx, t)
		}
		e.reply <- err

	case kindCommand:
		e.reply <- e.command(st)

	default:
		return fmt.Errorf("unknown event kind %d", e.Kind)
	}
	return nil
}

func (s *Store) transition(c Change) (Transition, error) {
	st := &s.state
	from := st.Status
	if !CanTransition(from, c.To) || (from == Failed && !st.FailureRetryable) {
		return Transition{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, c.To)
	}
	now := s.clock.Now()
	switch c.To {
	case Recording:
		st.resetRecording(now)
	case Stopped:
		if from == Recording {
			st.StoppedAt = now
		}
	case Submitting:
		st.Failure = ""
		st.FailureRetryable = false
	case Failed:
		st.Failure = c.Reason
		st.FailureRetryable = c.Retryable
	}
	if c.Apply != nil {
		c.Apply(st)
	}
	st.Status = c.To
	metrics.RecordTransition(from.String(), c.To.String())
	return Transition{
		SessionID: st.ID,
		From:      from,
		To:        c.To,
		At:        now,
		Reason:    c.Reason,
		Retryable: c.Retryable,
	}, nil
}

func (s *Store) drop(ctx context.Context, e Event) {
	metrics.RecordStaleDrop(e.Kind.String())
	s.logger.Debug(ctx, "dropping stale event",
		logger.String("sessionID", s.state.ID),
		logger.String("kind", e.Kind.String()),
		logger.String("status", s.state.Status.String()),
	)
}
