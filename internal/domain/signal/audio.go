package signal

// Engagement is the coarse coloring bucket of an audio level.
type Engagement string

const (
	// EngagementDanger is used above 70 percent.
	EngagementDanger Engagement = "danger"
	// EngagementSuccess is used above 40 percent.
	EngagementSuccess Engagement = "success"
	// EngagementWarning is used otherwise.
	EngagementWarning Engagement = "warning"
)

const (
	dangerThreshold  = 70
	successThreshold = 40
	// binFullScale is the bin magnitude mapped to 100 percent.
	binFullScale = 128
)

// AudioLevel is a transient microphone loudness sample. It is never persisted.
type AudioLevel struct {
	Percentage float64 `json:"percentage"`
}

// Engagement returns the coloring bucket for the level.
func (a AudioLevel) Engagement() Engagement {
	switch {
	case a.Percentage > dangerThreshold:
		return EngagementDanger
	case a.Percentage > successThreshold:
		return EngagementSuccess
	default:
		return EngagementWarning
	}
}

// LevelFromBins computes the mean frequency-bin magnitude over bins and
// normalizes it to [0,100]. An empty window yields zero.
func LevelFromBins(bins []byte) AudioLevel {
	if len(bins) == 0 {
		return AudioLevel{}
	}
	var sum int
	for _, b := range bins {
		sum += int(b)
	}
	mean := float64(sum) / float64(len(bins))
	return AudioLevel{Percentage: clamp(mean/binFullScale*100, 0, 100)}
}
