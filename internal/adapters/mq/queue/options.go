package queue

// Option applies a configuration option to the InMemoryQueue.
type Option func(*options)

type options struct {
	capacity int
	name     string
}

// WithCapacity sets the maximum capacity of the queue.
func WithCapacity(capacity int) Option {
	return func(o *options) {
		if capacity > 0 {
			o.capacity = capacity
		}
	}
}

// WithName sets the queue name used as the metrics label.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}
