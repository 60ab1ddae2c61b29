// Package worker defines consumers that drain a queue through a handler.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/intervue/pkg/logger"
	"github.com/okian/intervue/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	poolShutdownTimeout     = 30 * time.Second
)

// Source defines how workers receive items.
type Source[T any] interface {
	Dequeue(ctx context.Context) <-chan T
}

// Handler processes one item.
type Handler[T any] interface {
	Handle(ctx context.Context, item T) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc[T any] func(ctx context.Context, item T) error

// Handle calls f(ctx, item).
func (f HandlerFunc[T]) Handle(ctx context.Context, item T) error {
	return f(ctx, item)
}

// Worker processes items from a source.
type Worker interface {
	// Run starts the worker loop until ctx is canceled, the source closes
	// or Shutdown is called.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker. Items are handled one at a time in
// the order the source delivers them.
type InMemoryWorker[T any] struct {
	source  Source[T]
	handler Handler[T]
	name    string

	// Shutdown control
	shutdown chan struct{}
	once     sync.Once
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker[T any](source Source[T], handler Handler[T], opts ...Option) *InMemoryWorker[T] {
	o := options{name: "worker"}

	// Apply all options
	for _, opt := range opts {
		opt(&o)
	}

	if o.logger == nil {
		o.logger = logger.Get().Named(o.name)
	}

	return &InMemoryWorker[T]{
		source:   source,
		handler:  handler,
		name:     o.name,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   o.logger,
	}
}

// Run starts the worker loop.
func (w *InMemoryWorker[T]) Run(ctx context.Context) {
	metrics.AddWorkerActiveCount(1)
	defer func() {
		metrics.AddWorkerActiveCount(-1)
		close(w.done)
	}()

	items := w.source.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case item, ok := <-items:
			if !ok {
				// Source closed and drained
				return
			}
			if err := w.process(ctx, item); err != nil {
				w.logger.Error(ctx, "error processing item", logger.Error(err))
			}
		}
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker[T]) Done() <-chan struct{} {
	return w.done
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker[T]) Shutdown(ctx context.Context) error {
	// Signal shutdown
	w.once.Do(func() { close(w.shutdown) })

	// Wait for worker to finish or context to timeout
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker[T]) process(ctx context.Context, item T) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := w.handler.Handle(ctx, item); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "handler_error")
		return fmt.Errorf("%s: %w", w.name, err)
	}
	return nil
}

// Pool manages multiple workers sharing one source.
type Pool[T any] struct {
	workers []*InMemoryWorker[T]
	source  Source[T]

	// Logging
	logger logger.Logger
}

// NewPool creates a new worker pool. A non-positive count scales with the CPU count.
func NewPool[T any](workerCount int, source Source[T], handler Handler[T]) *Pool[T] {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool[T]{
		workers: make([]*InMemoryWorker[T], workerCount),
		source:  source,
		logger:  logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(source, handler, WithName("worker-"+strconv.Itoa(i)))
	}

	return pool
}

// Size returns the number of workers.
func (p *Pool[T]) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool.
func (p *Pool[T]) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
}

// Wait blocks until every worker has returned, typically after the source
// was closed and drained.
func (p *Pool[T]) Wait(ctx context.Context) error {
	for _, worker := range p.workers {
		select {
		case <-worker.done:
		case <-ctx.Done():
			return fmt.Errorf("pool wait: %w", ctx.Err())
		}
	}
	return nil
}

// Shutdown closes the source if it can be closed and stops every worker.
func (p *Pool[T]) Shutdown(ctx context.Context) error {
	// First close the source to stop new items
	if closer, ok := p.source.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, worker := range p.workers {
		if err := worker.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	return nil
}
