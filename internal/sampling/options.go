package sampling

import (
	"time"

	"github.com/okian/intervue/internal/adapters/device"
	"github.com/okian/intervue/pkg/clock"
	"github.com/okian/intervue/pkg/logger"
)

// Default sampling cadences.
const (
	DefaultFaceInterval  = 2000 * time.Millisecond
	DefaultAudioInterval = 16 * time.Millisecond
)

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithClock sets the clock driving the periodic activities.
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithFaceInterval sets the face/emotion sampling period.
func WithFaceInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.faceInterval = d
		}
	}
}

// WithAudioInterval sets the audio level re-arm period.
func WithAudioInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.audioInterval = d
		}
	}
}

// WithVideo sets the video track sampled by the face activity.
func WithVideo(v device.VideoSource) Option {
	return func(s *Scheduler) {
		s.video = v
	}
}

// WithAnalyser sets the spectrum analyser read by the audio activity.
func WithAnalyser(a device.AudioAnalyser) Option {
	return func(s *Scheduler) {
		s.analyser = a
	}
}

// WithSpeech sets the recognizer driving the transcript activity.
func WithSpeech(r device.SpeechRecognizer) Option {
	return func(s *Scheduler) {
		s.speech = r
	}
}

// WithLogger sets a custom logger for the scheduler.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}
