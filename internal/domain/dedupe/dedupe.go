// Package dedupe tracks keys that were already handled so that a side
// effect happens at most once per key.
package dedupe

import (
	"context"
	"strconv"
	"sync"
)

const defaultMaxSize = 4096

// Deduper records seen keys.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	// Forget removes a key so that it may be handled again.
	Forget(ctx context.Context, key string)

	// Size returns the number of remembered keys.
	Size() int64
}

// TickKey identifies one sampling tick of one session.
func TickKey(sessionID string, timestamp float64) string {
	// Millisecond resolution; ticks are at least one frame apart.
	return sessionID + "@" + strconv.FormatInt(int64(timestamp*1000), 10)
}

// inMemoryDeduper keeps keys in a map. In bounded mode a ring of keys in
// insertion order decides what to forget when full.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]int // key -> ring slot, -1 in unbounded mode
	ring    []string
	next    int
	maxSize int
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
	}

	// Apply all options
	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[string]int)
	if d.maxSize > 0 {
		d.ring = make([]string, d.maxSize)
	}
	return d
}

// SeenAndRecord atomically checks and records key.
func (d *inMemoryDeduper) SeenAndRecord(ctx context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[key]; exists {
		return true
	}

	if d.maxSize <= 0 {
		d.seen[key] = -1
		return false
	}

	// Slot is either empty or holds the oldest key.
	if old := d.ring[d.next]; old != "" {
		delete(d.seen, old)
	}
	d.ring[d.next] = key
	d.seen[key] = d.next
	d.next = (d.next + 1) % d.maxSize
	return false
}

// Forget removes key from the remembered set.
func (d *inMemoryDeduper) Forget(ctx context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	slot, exists := d.seen[key]
	if !exists {
		return
	}
	delete(d.seen, key)
	if slot >= 0 {
		d.ring[slot] = ""
	}
}

// Size returns the current number of remembered keys.
func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
