package synthetic

import (
	"time"

	"github.com/okian/intervue/internal/adapters/device"
	"github.com/okian/intervue/pkg/clock"
)

// Option applies a configuration option to the Platform.
type Option func(*Platform)

// WithClock sets the clock driving speech scripts and media chunks.
func WithClock(c clock.Clock) Option {
	return func(p *Platform) {
		if c != nil {
			p.clock = c
		}
	}
}

// WithSeed seeds the jitter applied to face boxes and audio bins.
func WithSeed(seed int64) Option {
	return func(p *Platform) {
		p.seed = seed
	}
}

// WithPermissionDenied makes AcquireStream fail with device.ErrPermissionDenied.
func WithPermissionDenied() Option {
	return func(p *Platform) {
		p.deny = true
	}
}

// WithoutDevices makes AcquireStream fail with device.ErrNoDevice.
func WithoutDevices() Option {
	return func(p *Platform) {
		p.noDevice = true
	}
}

// WithoutVideo yields a stream with no video track.
func WithoutVideo() Option {
	return func(p *Platform) {
		p.noVideo = true
	}
}

// WithoutFaceDetector disables the native face detection capability.
func WithoutFaceDetector() Option {
	return func(p *Platform) {
		p.noFace = true
	}
}

// WithoutSpeech disables the speech recognition capability.
func WithoutSpeech() Option {
	return func(p *Platform) {
		p.noSpeech = true
	}
}

// WithoutAnalyser disables the audio analysis capability.
func WithoutAnalyser() Option {
	return func(p *Platform) {
		p.noAnalyser = true
	}
}

// WithoutRecorder disables the media recording capability.
func WithoutRecorder() Option {
	return func(p *Platform) {
		p.noRecorder = true
	}
}

// WithAcquireDelay delays stream acquisition, modeling a pending permission prompt.
func WithAcquireDelay(d time.Duration) Option {
	return func(p *Platform) {
		if d > 0 {
			p.acquireDelay = d
		}
	}
}

// WithFaceBox fixes the box reported by the face detector.
func WithFaceBox(b device.Box) Option {
	return func(p *Platform) {
		p.faceBox = b
	}
}

// WithNoFace makes the face detector report an empty result.
func WithNoFace() Option {
	return func(p *Platform) {
		p.noFaceFound = true
	}
}

// WithDetectFailureEvery makes every n-th detection fail.
func WithDetectFailureEvery(n int) Option {
	return func(p *Platform) {
		if n > 0 {
			p.detectFailEvery = n
		}
	}
}

// WithAudioLevel sets the mean bin magnitude reported by the analyser.
func WithAudioLevel(level byte) Option {
	return func(p *Platform) {
		p.level = level
	}
}

// WithSpeechScript makes the recognizer emit each line, interim then final,
// every interval of clock time.
func WithSpeechScript(interval time.Duration, lines ...string) Option {
	return func(p *Platform) {
		if interval > 0 {
			p.scriptEvery = interval
			p.script = append([]string(nil), lines...)
		}
	}
}

// WithChunkSize sets the size of generated media chunks.
func WithChunkSize(n int) Option {
	return func(p *Platform) {
		if n > 0 {
			p.chunkSize = n
		}
	}
}
