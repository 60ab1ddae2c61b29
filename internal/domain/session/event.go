package session

import (
	"time"

	"github.com/okian/intervue/internal/domain/signal"
)

// Kind identifies what an Event carries.
type Kind int

// Event kinds.
const (
	KindFrame Kind = iota + 1
	KindLevel
	KindTranscript
	KindChunk
	KindElapsed
	kindTransition
	kindCommand
)

var kindNames = map[Kind]string{
	KindFrame:      "frame",
	KindLevel:      "level",
	KindTranscript: "transcript",
	KindChunk:      "chunk",
	KindElapsed:    "elapsed",
	kindTransition: "transition",
	kindCommand:    "command",
}

// String returns the kind name used in logs and metrics.
func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

// Event is one item on the session's write queue.
type Event struct {
	Kind Kind
	// At is the clock time the sample was taken.
	At        time.Time
	Frame     signal.Frame
	Level     signal.AudioLevel
	Fragments []signal.Fragment
	Chunk     []byte

	change  Change
	command func(*State) error
	reply   chan error
}

// FrameSampled builds a face/emotion sample event.
func FrameSampled(at time.Time, f signal.Frame) Event {
	return Event{Kind: KindFrame, At: at, Frame: f}
}

// LevelSampled builds an audio level event.
func LevelSampled(at time.Time, l signal.AudioLevel) Event {
	return Event{Kind: KindLevel, At: at, Level: l}
}

// TranscriptReceived builds a speech recognition event.
func TranscriptReceived(at time.Time, fragments []signal.Fragment) Event {
	return Event{Kind: KindTranscript, At: at, Fragments: fragments}
}

// ChunkRecorded builds a media chunk event.
func ChunkRecorded(at time.Time, chunk []byte) Event {
	return Event{Kind: KindChunk, At: at, Chunk: chunk}
}

// ElapsedTicked builds an elapsed-time tick event.
func ElapsedTicked(at time.Time) Event {
	return Event{Kind: KindElapsed, At: at}
}

// Change describes a status transition.
type Change struct {
	To        Status
	Reason    string
	Retryable bool
	// Apply runs against the state after validation and before the
	// status changes.
	Apply func(*State)
}

// Transition is what sinks observe for a status change.
type Transition struct {
	SessionID string    `json:"session_id"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	At        time.Time `json:"at"`
	Reason    string    `json:"reason,omitempty"`
	Retryable bool      `json:"retryable,omitempty"`
}
