package session

import (
	"github.com/okian/intervue/pkg/clock"
	"github.com/okian/intervue/pkg/logger"
)

// Default store configuration constants.
const (
	defaultBuffer = 256
)

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithQuestion sets the question and interview the recording answers.
func WithQuestion(questionID, interviewID string) Option {
	return func(s *Store) {
		s.state.QuestionID = questionID
		s.state.InterviewID = interviewID
	}
}

// WithClock sets the clock used to stamp transitions.
func WithClock(c clock.Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithSinks sets the observers notified after each applied change.
func WithSinks(sinks ...Sink) Option {
	return func(s *Store) {
		s.sink = append(s.sink, sinks...)
	}
}

// WithBuffer sets the capacity of the write queue.
func WithBuffer(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.buffer = n
		}
	}
}

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}
