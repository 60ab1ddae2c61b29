// Package session holds the mutable record of one question-answer
// recording and the single-consumer event loop that serializes every
// write to it.
package session

import (
	"time"

	"github.com/okian/intervue/internal/domain/signal"
)

// State is the single source of truth for one recording. It is only
// touched from the store's consumer goroutine.
type State struct {
	ID          string
	QuestionID  string
	InterviewID string

	Status    Status
	StartedAt time.Time
	StoppedAt time.Time
	Elapsed   time.Duration

	MediaChunks [][]byte
	Transcript  signal.Transcript
	Interim     string
	LastFrame   *signal.Frame
	LastLevel   signal.AudioLevel
	Summary     signal.Aggregator

	Failure          string
	FailureRetryable bool
}

// MediaSize returns the total size of the buffered chunks.
func (s *State) MediaSize() int {
	var n int
	for _, c := range s.MediaChunks {
		n += len(c)
	}
	return n
}

// ResponseTime returns the latency between recording start and at.
func (s *State) ResponseTime(at time.Time) time.Duration {
	if s.StartedAt.IsZero() || at.Before(s.StartedAt) {
		return 0
	}
	return at.Sub(s.StartedAt)
}

// resetRecording clears the per-recording buffers.
func (s *State) resetRecording(startedAt time.Time) {
	s.StartedAt = startedAt
	s.StoppedAt = time.Time{}
	s.Elapsed = 0
	s.MediaChunks = nil
	s.Transcript.Reset()
	s.Interim = ""
	s.LastFrame = nil
	s.Summary.Reset()
	s.Failure = ""
	s.FailureRetryable = false
}

// Snapshot is an immutable view of State.
type Snapshot struct {
	ID             string            `json:"id"`
	QuestionID     string            `json:"question_id"`
	InterviewID    string            `json:"interview_id,omitempty"`
	Status         Status            `json:"status"`
	StartedAt      *time.Time        `json:"started_at,omitempty"`
	ElapsedSeconds float64           `json:"elapsed_seconds"`
	Transcript     string            `json:"transcript"`
	Interim        string            `json:"interim,omitempty"`
	LastFrame      *signal.Frame     `json:"last_frame,omitempty"`
	AudioLevel     float64           `json:"audio_level"`
	Engagement     signal.Engagement `json:"engagement"`
	MediaChunks    int               `json:"media_chunks"`
	MediaBytes     int               `json:"media_bytes"`
	Summary        signal.Summary    `json:"summary"`
	Error          string            `json:"error,omitempty"`
	Retryable      bool              `json:"retryable,omitempty"`
}

// Snapshot copies the state.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		ID:             s.ID,
		QuestionID:     s.QuestionID,
		InterviewID:    s.InterviewID,
		Status:         s.Status,
		ElapsedSeconds: s.Elapsed.Seconds(),
		Transcript:     s.Transcript.String(),
		Interim:        s.Interim,
		AudioLevel:     s.LastLevel.Percentage,
		Engagement:     s.LastLevel.Engagement(),
		MediaChunks:    len(s.MediaChunks),
		MediaBytes:     s.MediaSize(),
		Summary:        s.Summary.Summary(),
		Error:          s.Failure,
		Retryable:      s.FailureRetryable,
	}
	if !s.StartedAt.IsZero() {
		t := s.StartedAt
		snap.StartedAt = &t
	}
	if s.LastFrame != nil {
		f := *s.LastFrame
		snap.LastFrame = &f
	}
	return snap
}
