package session

import (
	"fmt"
	"strings"
)

// Status is the recording lifecycle state of one question-answer cycle.
type Status int

// Lifecycle states.
const (
	Idle Status = iota
	Initializing
	Ready
	Recording
	Stopped
	Submitting
	Submitted
	Failed
)

var statusNames = [...]string{
	Idle:         "idle",
	Initializing: "initializing",
	Ready:        "ready",
	Recording:    "recording",
	Stopped:      "stopped",
	Submitting:   "submitting",
	Submitted:    "submitted",
	Failed:       "failed",
}

// String returns the lower-case state name.
func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("status(%d)", int(s))
	}
	return statusNames[s]
}

// MarshalText encodes the state name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *Status) UnmarshalText(b []byte) error {
	name := strings.ToLower(string(b))
	for i, n := range statusNames {
		if n == name {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", string(b))
}

// transitions lists the legal successors of each state. Failed to Stopped
// is only legal when the failure was a retryable submission failure.
var transitions = map[Status][]Status{
	Idle:         {Initializing},
	Initializing: {Ready, Failed},
	Ready:        {Recording},
	Recording:    {Stopped},
	Stopped:      {Submitting},
	Submitting:   {Submitted, Failed},
	Failed:       {Stopped},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// AcceptsSamples reports whether face frames, transcript fragments and
// media chunks are applied in this state.
func (s Status) AcceptsSamples() bool {
	return s == Recording
}

// AcceptsLevels reports whether audio levels are applied in this state.
func (s Status) AcceptsLevels() bool {
	return s == Ready || s == Recording
}
