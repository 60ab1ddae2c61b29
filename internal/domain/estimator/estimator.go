// Package estimator produces signal frames from video samples. Two
// variants share one contract: the native detector, backed by a platform
// face detection capability, and the simulated estimator used when no such
// capability exists or a native call fails.
package estimator

import (
	"context"
	"math"

	"github.com/okian/intervue/internal/adapters/device"
	"github.com/okian/intervue/internal/domain/signal"
)

// Variant names an estimator implementation.
type Variant string

const (
	// VariantNative uses the platform face detector.
	VariantNative Variant = "native"
	// VariantSimulated perturbs fixed baselines.
	VariantSimulated Variant = "simulated"
)

// Eye contact decision thresholds.
const (
	MinReliableFaceSize = 0.1
	MaxCenterDistance   = 0.3
)

// Estimator turns one video sample into a frame. It never fails: internal
// errors yield a synthesized frame. The returned frame carries a zero
// timestamp; the caller stamps it.
type Estimator interface {
	Estimate(ctx context.Context, video device.VideoSource) signal.Frame
	Variant() Variant
}

// Select picks the variant once at setup. A nil detector selects the
// simulated estimator.
func Select(detector device.FaceDetector, opts ...Option) Estimator {
	sim := NewSimulated(opts...)
	if detector == nil {
		return sim
	}
	return NewNative(detector, sim, opts...)
}

// LookingAtCamera is the eye contact rule: the face must be large enough
// to be reliable and close enough to the frame center.
func LookingAtCamera(faceSize, headX, headY float64) bool {
	return faceSize > MinReliableFaceSize && Distance(headX, headY) < MaxCenterDistance
}

// Distance is the Euclidean distance of a head offset from the frame center.
func Distance(headX, headY float64) float64 {
	return math.Hypot(headX, headY)
}

// Heuristic derives emotional estimates from face size and centeredness.
// It is monotonic: a larger, more centered face raises confidence and
// concentration. noiseH and noiseN perturb happiness and nervousness.
func Heuristic(faceSize, distance, noiseH, noiseN float64) signal.Emotions {
	confidence := math.Max(0.3, 0.9-0.5*distance-0.3*(1-faceSize))
	return signal.Emotions{
		Confidence:    confidence,
		Happiness:     math.Max(0.2, 0.8*confidence+noiseH),
		Nervousness:   math.Max(0.1, 0.6*(1-confidence)+noiseN),
		Concentration: math.Max(0.4, 0.9-0.3*distance),
	}
}
