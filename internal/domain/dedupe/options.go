package dedupe

// Option applies a configuration option to the Deduper.
type Option func(*inMemoryDeduper)

// WithMaxSize sets the maximum number of keys to remember.
// If maxSize > 0: bounded mode, the oldest key is forgotten first.
// If maxSize <= 0: unbounded mode (no eviction, no size limit).
func WithMaxSize(maxSize int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = maxSize
	}
}
