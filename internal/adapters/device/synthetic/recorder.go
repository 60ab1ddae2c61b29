package synthetic

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/okian/intervue/internal/adapters/device"
	"github.com/okian/intervue/pkg/clock"
)

const chunkBuffer = 4

// chunkMagic prefixes every generated chunk.
var chunkMagic = []byte{0x1a, 0x45, 0xdf, 0xa3}

// Recorder is a simulated chunked media recorder.
type Recorder struct {
	clock clock.Clock
	size  int

	mu      sync.Mutex
	started bool
	emitted int
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// Start emits one chunk per timeslice of clock time until Stop.
func (r *Recorder) Start(timeslice time.Duration) (<-chan []byte, error) {
	if timeslice <= 0 {
		return nil, fmt.Errorf("timeslice %s: %w", timeslice, device.ErrUnsupported)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil, device.ErrAlreadyStarted
	}
	r.started = true
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	out := make(chan []byte, chunkBuffer)
	t := r.clock.NewTicker(timeslice)
	go r.loop(t, out)
	return out, nil
}

// Stop flushes the buffered chunk and closes the chunk channel.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return nil
	}
	stop := r.stop
	r.mu.Unlock()
	r.once.Do(func() { close(stop) })
	return nil
}

// Emitted returns the number of chunks produced so far.
func (r *Recorder) Emitted() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.emitted
}

func (r *Recorder) loop(t clock.Ticker, out chan<- []byte) {
	defer close(out)
	defer close(r.done)
	defer t.Stop()
	for {
		select {
		case <-t.C():
			out <- r.chunk()
		case <-r.stop:
			out <- r.chunk()
			return
		}
	}
}

func (r *Recorder) chunk() []byte {
	r.mu.Lock()
	seq := r.emitted
	r.emitted++
	r.mu.Unlock()
	c := make([]byte, r.size)
	copy(c, chunkMagic)
	if r.size >= len(chunkMagic)+4 {
		binary.BigEndian.PutUint32(c[len(chunkMagic):], uint32(seq)) //nolint:gosec // sequence fits
	}
	return c
}

// Stopped reports whether the recorder has closed its chunk channel.
func (r *Recorder) Stopped() bool {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return true
	default:
		return false
	}
}
