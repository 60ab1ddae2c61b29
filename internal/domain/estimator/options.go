package estimator

// Default estimator configuration constants.
const (
	defaultRandomSeed   = 42
	defaultNoise        = 0.1
	defaultLookingProb  = 0.75
	defaultHeadJitter   = 0.1
	defaultConfidence   = 0.6
	defaultHappiness    = 0.5
	defaultNervousness  = 0.3
	defaultConcentrated = 0.7
)

type options struct {
	seed        int64
	noise       float64
	lookingProb float64
	headJitter  float64
}

func defaultOptions() options {
	return options{
		seed:        defaultRandomSeed,
		noise:       defaultNoise,
		lookingProb: defaultLookingProb,
		headJitter:  defaultHeadJitter,
	}
}

// Option applies a configuration option to an estimator.
type Option func(*options)

// WithSeed seeds the estimator noise source.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// WithNoise sets the amplitude of the uniform noise applied to emotions.
func WithNoise(amplitude float64) Option {
	return func(o *options) {
		if amplitude >= 0 {
			o.noise = amplitude
		}
	}
}

// WithLookingProbability sets how often the simulated estimator reports eye contact.
func WithLookingProbability(p float64) Option {
	return func(o *options) {
		if p >= 0 && p <= 1 {
			o.lookingProb = p
		}
	}
}

// WithHeadJitter sets the amplitude of simulated head position noise.
func WithHeadJitter(amplitude float64) Option {
	return func(o *options) {
		if amplitude >= 0 && amplitude <= 1 {
			o.headJitter = amplitude
		}
	}
}
