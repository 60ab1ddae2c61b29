// Package config defines the process configuration and how it is loaded.
package config

import "time"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error"`

	// LogFile, when set, also writes logs to a size-rotated file.
	LogFile string `koanf:"log_file"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// BackendURL is the base URL of the telemetry and submission endpoints.
	BackendURL string `koanf:"backend_url" validate:"required,url"`

	// TelemetryPath and SubmissionPath are relative to BackendURL.
	TelemetryPath  string `koanf:"telemetry_path" validate:"required,startswith=/"`
	SubmissionPath string `koanf:"submission_path" validate:"required,startswith=/"`

	// Sampling cadences.
	FaceSampleIntervalMS  int `koanf:"face_sample_interval_ms" validate:"gt=0"`
	AudioSampleIntervalMS int `koanf:"audio_sample_interval_ms" validate:"gt=0"`
	ChunkIntervalMS       int `koanf:"chunk_interval_ms" validate:"gt=0"`
	ElapsedTickMS         int `koanf:"elapsed_tick_ms" validate:"gt=0"`

	// Timeouts. AcquireTimeoutMS of zero waits for device permission indefinitely.
	TelemetryTimeoutMS  int `koanf:"telemetry_timeout_ms" validate:"gt=0"`
	SubmissionTimeoutMS int `koanf:"submission_timeout_ms" validate:"gt=0"`
	AcquireTimeoutMS    int `koanf:"acquire_timeout_ms" validate:"gte=0"`

	// EventBuffer bounds each session's write queue.
	EventBuffer int `koanf:"event_buffer" validate:"gt=0"`

	// TelemetryDedupeSize bounds the persisted-tick memory.
	TelemetryDedupeSize int `koanf:"telemetry_dedupe_size" validate:"gte=0"`

	// MediaDir stores recorded answers; empty disables media storage.
	MediaDir string `koanf:"media_dir"`

	// NativeFaceDetection enables probing the platform face detector.
	NativeFaceDetection bool `koanf:"native_face_detection"`

	// SpeechLanguage is the recognition language.
	SpeechLanguage string `koanf:"speech_language" validate:"required"`

	// MaxSessions caps concurrently open sessions.
	MaxSessions int `koanf:"max_sessions" validate:"gt=0"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		Addr:                  ":9080",
		BackendURL:            "http://localhost:5000",
		TelemetryPath:         "/save_face_analysis",
		SubmissionPath:        "/submit_answer",
		FaceSampleIntervalMS:  2000,
		AudioSampleIntervalMS: 16,
		ChunkIntervalMS:       1000,
		ElapsedTickMS:         1000,
		TelemetryTimeoutMS:    5000,
		SubmissionTimeoutMS:   30000,
		AcquireTimeoutMS:      0,
		EventBuffer:           256,
		TelemetryDedupeSize:   4096,
		NativeFaceDetection:   true,
		SpeechLanguage:        "en-US",
		MaxSessions:           64,
	}
}

// FaceSampleInterval returns the face/emotion sampling period.
func (c *Config) FaceSampleInterval() time.Duration { return ms(c.FaceSampleIntervalMS) }

// AudioSampleInterval returns the audio level period.
func (c *Config) AudioSampleInterval() time.Duration { return ms(c.AudioSampleIntervalMS) }

// ChunkInterval returns the media chunk boundary.
func (c *Config) ChunkInterval() time.Duration { return ms(c.ChunkIntervalMS) }

// ElapsedTick returns the elapsed-time timer period.
func (c *Config) ElapsedTick() time.Duration { return ms(c.ElapsedTickMS) }

// TelemetryTimeout bounds one telemetry call.
func (c *Config) TelemetryTimeout() time.Duration { return ms(c.TelemetryTimeoutMS) }

// SubmissionTimeout bounds one submission call.
func (c *Config) SubmissionTimeout() time.Duration { return ms(c.SubmissionTimeoutMS) }

// AcquireTimeout bounds device acquisition; zero means no bound.
func (c *Config) AcquireTimeout() time.Duration { return ms(c.AcquireTimeoutMS) }

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }
