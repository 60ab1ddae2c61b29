// Package drill runs simulated interview sessions end to end against an
// interview backend, or against an in-process stub of one.
package drill

import "time"

// Default drill settings.
const (
	DefaultSessions      = 8
	DefaultWorkers       = 4
	DefaultDuration      = 5 * time.Second
	DefaultFaceInterval  = 500 * time.Millisecond
	DefaultSpeechEvery   = 700 * time.Millisecond
	DefaultSubmitRetries = 1
	DefaultTimeout       = 2 * time.Minute
)

// DefaultAnswer is spoken by every simulated candidate.
var DefaultAnswer = []string{
	"I have five years of experience",
	"mostly building distributed systems in Go",
	"and leading a small platform team",
}

// Config holds configuration for a drill.
type Config struct {
	BackendURL    string        // Base URL of the interview backend; empty starts the stub
	Sessions      int           // Number of sessions to run
	Workers       int           // Number of sessions run concurrently
	Duration      time.Duration // Recording time per session
	FaceInterval  time.Duration // Face sampling period
	SpeechEvery   time.Duration // Interval between scripted transcript lines
	Answer        []string      // Scripted answer lines
	SubmitRetries int           // Extra attempts after a retryable submission failure
	FailEvery     int           // Stub only: reject every n-th submission
	MediaDir      string        // Where recordings are stored; empty disables storage
	Timeout       time.Duration // Bound on the whole drill
}

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	if c.Sessions <= 0 {
		c.Sessions = DefaultSessions
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.Duration <= 0 {
		c.Duration = DefaultDuration
	}
	if c.FaceInterval <= 0 {
		c.FaceInterval = DefaultFaceInterval
	}
	if c.SpeechEvery <= 0 {
		c.SpeechEvery = DefaultSpeechEvery
	}
	if len(c.Answer) == 0 {
		c.Answer = DefaultAnswer
	}
	if c.SubmitRetries < 0 {
		c.SubmitRetries = 0
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Report holds drill statistics.
type Report struct {
	Sessions       int
	Submitted      int
	Failed         int
	Retries        int
	Completed      int
	FramesSampled  int
	FramesReceived int
	Duration       time.Duration
}
