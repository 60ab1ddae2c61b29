// Package queue defines the contract for enqueuing and consuming items.
//
// The in-memory implementation is a bounded FIFO over a buffered channel.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/intervue/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 1024
	defaultQueueName     = "default"
)

// Queue provides enqueue and channel-based dequeue semantics.
type Queue[T any] interface {
	// Enqueue adds an item without blocking.
	// Returns false if the queue is full or closed.
	Enqueue(ctx context.Context, item T) bool

	// EnqueueWait adds an item, blocking until there is room, ctx ends or
	// the queue is closed.
	EnqueueWait(ctx context.Context, item T) error

	// Dequeue returns a channel that will receive items in FIFO order.
	// The channel will be closed when the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan T

	// Len returns the current number of queued items.
	Len(ctx context.Context) int

	// Close gracefully shuts down the queue.
	// After closing, no new items can be enqueued.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue[T any] struct {
	items    chan T
	capacity int
	name     string

	mu      sync.RWMutex
	closed  bool
	closing chan struct{}
	once    sync.Once
}

var _ Queue[int] = (*InMemoryQueue[int])(nil)

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue[T any](opts ...Option) *InMemoryQueue[T] {
	o := options{
		capacity: defaultQueueCapacity,
		name:     defaultQueueName,
	}

	// Apply all options
	for _, opt := range opts {
		opt(&o)
	}

	return &InMemoryQueue[T]{
		items:    make(chan T, o.capacity),
		capacity: o.capacity,
		name:     o.name,
		closing:  make(chan struct{}),
	}
}

// Enqueue adds an item to the queue if there is room.
func (q *InMemoryQueue[T]) Enqueue(ctx context.Context, item T) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.rejected("closed")
		return false
	}

	select {
	case q.items <- item:
		q.accepted()
		return true
	case <-ctx.Done():
		q.rejected("context_cancelled")
		return false
	default:
		q.rejected("queue_full")
		return false
	}
}

// EnqueueWait adds an item, waiting for room.
func (q *InMemoryQueue[T]) EnqueueWait(ctx context.Context, item T) error {
	start := time.Now()
	defer func() {
		metrics.RecordQueueProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.rejected("closed")
		return ErrClosed
	}

	select {
	case q.items <- item:
		q.accepted()
		return nil
	case <-q.closing:
		q.rejected("closed")
		return ErrClosed
	case <-ctx.Done():
		q.rejected("context_cancelled")
		return fmt.Errorf("enqueue on %s: %w", q.name, ctx.Err())
	}
}

// Dequeue returns a channel that will receive items as they become available.
func (q *InMemoryQueue[T]) Dequeue(ctx context.Context) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for item := range q.items {
			select {
			case out <- item:
				metrics.RecordQueueDequeue(q.name)
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued items.
func (q *InMemoryQueue[T]) Len(ctx context.Context) int {
	return len(q.items)
}

// Cap returns the queue capacity.
func (q *InMemoryQueue[T]) Cap() int {
	return q.capacity
}

// Close gracefully shuts down the queue. Items already queued are still
// delivered to consumers.
func (q *InMemoryQueue[T]) Close() error {
	// Release blocked writers before taking the write lock.
	q.once.Do(func() { close(q.closing) })

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil // already closed
	}
	close(q.items)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue[T]) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

func (q *InMemoryQueue[T]) accepted() {
	metrics.RecordQueueEnqueue(q.name)
	metrics.RecordQueueDepth(q.name, len(q.items))
}

func (q *InMemoryQueue[T]) rejected(reason string) {
	metrics.RecordQueueEnqueueError(q.name)
	metrics.RecordErrorByComponent("queue", reason)
}
