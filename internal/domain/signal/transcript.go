package signal

import "strings"

// Fragment is one speech-recognition result.
type Fragment struct {
	Text       string  `json:"text"`
	IsFinal    bool    `json:"is_final"`
	Confidence float64 `json:"confidence"`
}

// Transcript accumulates finalized fragments for the current question.
// It is append-only; interim fragments are rejected.
type Transcript struct {
	text string
}

// Append adds a finalized fragment and reports whether it was accepted.
func (t *Transcript) Append(f Fragment) bool {
	if !f.IsFinal {
		return false
	}
	text := strings.TrimSpace(f.Text)
	if text == "" {
		return false
	}
	if t.text != "" {
		t.text += " "
	}
	t.text += text
	return true
}

// String returns the accumulated text.
func (t *Transcript) String() string {
	return t.text
}

// Reset clears the transcript for a new recording.
func (t *Transcript) Reset() {
	t.text = ""
}
