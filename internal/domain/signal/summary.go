package signal

// Defaults reported when a recording produced no fresh frames.
const (
	DefaultEyeContact  = 0.5
	DefaultConfidence  = 0.6
	DefaultNervousness = 0.3
)

// Summary aggregates the frames of one recording.
type Summary struct {
	Frames         int     `json:"frames"`
	EyeContact     float64 `json:"eye_contact"`
	AvgConfidence  float64 `json:"avg_confidence"`
	AvgNervousness float64 `json:"avg_nervousness"`
}

// Aggregator folds frames into a Summary. Frames without a detected face
// are counted but do not contribute to the averages.
type Aggregator struct {
	frames      int
	fresh       int
	looking     int
	confidence  float64
	nervousness float64
}

// Add folds f into the aggregate.
func (a *Aggregator) Add(f Frame) {
	a.frames++
	if !f.FaceDetected {
		return
	}
	a.fresh++
	if f.LookingAtCamera {
		a.looking++
	}
	a.confidence += f.Confidence
	a.nervousness += f.Nervousness
}

// Reset clears the aggregate.
func (a *Aggregator) Reset() {
	*a = Aggregator{}
}

// Summary returns the current aggregate.
func (a *Aggregator) Summary() Summary {
	if a.fresh == 0 {
		return Summary{
			Frames:         a.frames,
			EyeContact:     DefaultEyeContact,
			AvgConfidence:  DefaultConfidence,
			AvgNervousness: DefaultNervousness,
		}
	}
	n := float64(a.fresh)
	return Summary{
		Frames:         a.frames,
		EyeContact:     float64(a.looking) / n,
		AvgConfidence:  a.confidence / n,
		AvgNervousness: a.nervousness / n,
	}
}
