package recording

import (
	"time"

	"github.com/okian/intervue/internal/domain/estimator"
	"github.com/okian/intervue/internal/domain/session"
	"github.com/okian/intervue/internal/sampling"
	"github.com/okian/intervue/pkg/clock"
	"github.com/okian/intervue/pkg/logger"
)

// Default controller configuration constants.
const (
	DefaultChunkInterval   = 1000 * time.Millisecond
	DefaultElapsedInterval = 1000 * time.Millisecond
	DefaultLanguage        = "en-US"
)

// Option applies a configuration option to the Controller.
type Option func(*Controller)

// WithQuestion sets the question being answered and its interview.
func WithQuestion(questionID, interviewID string) Option {
	return func(c *Controller) {
		c.questionID = questionID
		c.interviewID = interviewID
	}
}

// WithClock sets the clock driving every timer of the session.
func WithClock(cl clock.Clock) Option {
	return func(c *Controller) {
		if cl != nil {
			c.clock = cl
		}
	}
}

// WithProjector sets the UI projector.
func WithProjector(p Projector) Option {
	return func(c *Controller) {
		if p != nil {
			c.projector = p
		}
	}
}

// WithSinks adds observers of the session, such as telemetry.
func WithSinks(sinks ...session.Sink) Option {
	return func(c *Controller) {
		c.sinks = append(c.sinks, sinks...)
	}
}

// WithMediaSink sets where recorded chunks are stored on submit.
func WithMediaSink(m MediaSink) Option {
	return func(c *Controller) {
		c.media = m
	}
}

// WithFaceInterval sets the face/emotion sampling period.
func WithFaceInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.faceInterval = d
		}
	}
}

// WithAudioInterval sets the audio level period.
func WithAudioInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.audioInterval = d
		}
	}
}

// WithChunkInterval sets the media chunk boundary.
func WithChunkInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.chunkInterval = d
		}
	}
}

// WithElapsedInterval sets the elapsed-time timer period.
func WithElapsedInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.elapsedInterval = d
		}
	}
}

// WithAcquireTimeout bounds device acquisition. Zero waits indefinitely.
func WithAcquireTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.acquireTimeout = d
		}
	}
}

// WithLanguage sets the speech recognition language.
func WithLanguage(lang string) Option {
	return func(c *Controller) {
		if lang != "" {
			c.language = lang
		}
	}
}

// WithNativeFaceDetection enables or disables probing the native detector.
func WithNativeFaceDetection(enabled bool) Option {
	return func(c *Controller) {
		c.nativeFace = enabled
	}
}

// WithEstimatorOptions passes options to the selected estimator.
func WithEstimatorOptions(opts ...estimator.Option) Option {
	return func(c *Controller) {
		c.estimatorOpts = append(c.estimatorOpts, opts...)
	}
}

// WithBuffer sets the capacity of the session write queue.
func WithBuffer(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.buffer = n
		}
	}
}

// WithLogger sets a custom logger for the controller.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

func (c *Controller) samplingOptions() []sampling.Option {
	opts := []sampling.Option{
		sampling.WithClock(c.clock),
		sampling.WithFaceInterval(c.faceInterval),
		sampling.WithAudioInterval(c.audioInterval),
		sampling.WithLogger(c.logger.Named("sampling")),
	}
	if c.stream != nil {
		opts = append(opts, sampling.WithVideo(c.stream.Video()))
	}
	if c.analyser != nil {
		opts = append(opts, sampling.WithAnalyser(c.analyser))
	}
	if c.speech != nil {
		opts = append(opts, sampling.WithSpeech(c.speech))
	}
	return opts
}
