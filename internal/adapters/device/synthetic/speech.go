package synthetic

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/okian/intervue/internal/adapters/device"
	"github.com/okian/intervue/internal/domain/signal"
	"github.com/okian/intervue/pkg/clock"
)

const (
	interimConfidence = 0.6
	finalConfidence   = 0.92
)

// Recognizer is a simulated continuous speech recognizer. It replays an
// optional script on its clock and accepts manual pushes through Emit.
type Recognizer struct {
	clock  clock.Clock
	every  time.Duration
	script []string
	manual chan []device.SpeechEvent

	mu      sync.Mutex
	started bool
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// Start begins streaming recognition events.
func (r *Recognizer) Start(ctx context.Context) (<-chan device.SpeechEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil, device.ErrAlreadyStarted
	}
	r.started = true
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	out := make(chan device.SpeechEvent, speechBuffer)
	var t clock.Ticker
	if r.every > 0 && len(r.script) > 0 {
		t = r.clock.NewTicker(r.every)
	}
	go r.pump(ctx, t, out)
	return out, nil
}

// Stop ends recognition and waits for the event channel to close.
func (r *Recognizer) Stop() error {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return nil
	}
	stop, done := r.stop, r.done
	r.mu.Unlock()
	r.once.Do(func() { close(stop) })
	<-done
	return nil
}

// Stopped reports whether the recognizer has finished streaming.
func (r *Recognizer) Stopped() bool {
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

// Emit pushes one recognition event carrying results.
func (r *Recognizer) Emit(ctx context.Context, results ...signal.Fragment) error {
	r.mu.Lock()
	stop := r.stop
	r.mu.Unlock()
	if stop == nil {
		return device.ErrClosed
	}
	select {
	case r.manual <- []device.SpeechEvent{{Results: results}}:
		return nil
	case <-stop:
		return device.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recognizer) pump(ctx context.Context, t clock.Ticker, out chan<- device.SpeechEvent) {
	defer close(r.done)
	defer close(out)

	var tick <-chan time.Time
	if t != nil {
		defer t.Stop()
		tick = t.C()
	}

	send := func(ev device.SpeechEvent) bool {
		select {
		case out <- ev:
			return true
		case <-r.stop:
			return false
		case <-ctx.Done():
			return false
		}
	}

	next := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		case evs := <-r.manual:
			for _, ev := range evs {
				if !send(ev) {
					return
				}
			}
		case <-tick:
			if next >= len(r.script) {
				continue
			}
			line := r.script[next]
			next++
			if !send(device.SpeechEvent{Results: []signal.Fragment{{Text: interimOf(line), Confidence: interimConfidence}}}) {
				return
			}
			if !send(device.SpeechEvent{Results: []signal.Fragment{{Text: line, IsFinal: true, Confidence: finalConfidence}}}) {
				return
			}
		}
	}
}

func interimOf(line string) string {
	words := strings.Fields(line)
	if len(words) < 2 {
		return line
	}
	return strings.Join(words[:len(words)/2], " ")
}
