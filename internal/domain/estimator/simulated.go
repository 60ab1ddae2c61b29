package estimator

import (
	"context"
	"math/rand"
	"sync"

	"github.com/okian/intervue/internal/adapters/device"
	"github.com/okian/intervue/internal/domain/signal"
	"github.com/okian/intervue/pkg/metrics"
)

// Simulated perturbs fixed baselines with uniform noise. It always
// reports a detected face.
type Simulated struct {
	mu          sync.Mutex
	rng         *rand.Rand
	noise       float64
	lookingProb float64
	headJitter  float64
}

var _ Estimator = (*Simulated)(nil)

// NewSimulated creates a simulated estimator with configuration options.
func NewSimulated(opts ...Option) *Simulated {
	o := defaultOptions()

	// Apply all options
	for _, opt := range opts {
		opt(&o)
	}

	return &Simulated{
		rng:         rand.New(rand.NewSource(o.seed)), //nolint:gosec // deterministic seed for reproducible testing
		noise:       o.noise,
		lookingProb: o.lookingProb,
		headJitter:  o.headJitter,
	}
}

// Estimate returns a synthesized frame; the video source is ignored.
func (s *Simulated) Estimate(_ context.Context, _ device.VideoSource) signal.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := signal.Emotions{
		Confidence:    defaultConfidence + s.uniform(s.noise),
		Happiness:     defaultHappiness + s.uniform(s.noise),
		Nervousness:   defaultNervousness + s.uniform(s.noise),
		Concentration: defaultConcentrated + s.uniform(s.noise),
	}
	looking := s.rng.Float64() < s.lookingProb
	metrics.RecordFrameSampled(string(VariantSimulated))
	return signal.NewFrame(0, e, looking, s.uniform(s.headJitter), s.uniform(s.headJitter), true)
}

// Variant reports VariantSimulated.
func (s *Simulated) Variant() Variant { return VariantSimulated }

// uniform draws from [-a, a]. Callers hold s.mu.
func (s *Simulated) uniform(a float64) float64 {
	return (s.rng.Float64()*2 - 1) * a
}

// noisePair draws two noise values for the native heuristic.
func (s *Simulated) noisePair() (float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uniform(s.noise), s.uniform(s.noise)
}
