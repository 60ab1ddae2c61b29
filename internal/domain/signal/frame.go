// Package signal defines the normalized observations produced while a
// question is being answered: signal frames, audio levels and transcript
// fragments.
package signal

import "math"

// Frame is one normalized observation at a sampling tick.
//
// Every emotional field is clamped to [0,1] and head offsets to [-1,1] by
// the constructors in this package; consumers never re-clamp.
type Frame struct {
	// Timestamp is seconds elapsed since recording start.
	Timestamp       float64 `json:"timestamp"`
	Confidence      float64 `json:"confidence"`
	Happiness       float64 `json:"happiness"`
	Nervousness     float64 `json:"nervousness"`
	Concentration   float64 `json:"concentration"`
	LookingAtCamera bool    `json:"looking_at_camera"`
	HeadPositionX   float64 `json:"head_position_x"`
	HeadPositionY   float64 `json:"head_position_y"`
	// FaceDetected false marks the emotional fields as stale.
	FaceDetected bool `json:"face_detected"`
}

// Emotions groups the four emotional estimates of a frame.
type Emotions struct {
	Confidence    float64
	Happiness     float64
	Nervousness   float64
	Concentration float64
}

// NewFrame builds a Frame, clamping every field into its legal range.
func NewFrame(ts float64, e Emotions, looking bool, headX, headY float64, faceDetected bool) Frame {
	return Frame{
		Timestamp:       math.Max(0, ts),
		Confidence:      Unit(e.Confidence),
		Happiness:       Unit(e.Happiness),
		Nervousness:     Unit(e.Nervousness),
		Concentration:   Unit(e.Concentration),
		LookingAtCamera: looking,
		HeadPositionX:   Offset(headX),
		HeadPositionY:   Offset(headY),
		FaceDetected:    faceDetected,
	}
}

// Emotions returns the emotional fields of f.
func (f Frame) Emotions() Emotions {
	return Emotions{
		Confidence:    f.Confidence,
		Happiness:     f.Happiness,
		Nervousness:   f.Nervousness,
		Concentration: f.Concentration,
	}
}

// WithTimestamp returns a copy of f stamped with ts seconds.
func (f Frame) WithTimestamp(ts float64) Frame {
	f.Timestamp = math.Max(0, ts)
	return f
}

// Unit clamps v to [0,1]. NaN maps to 0.
func Unit(v float64) float64 {
	return clamp(v, 0, 1)
}

// Offset clamps v to [-1,1]. NaN maps to 0.
func Offset(v float64) float64 {
	return clamp(v, -1, 1)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(lo, math.Min(hi, v))
}
