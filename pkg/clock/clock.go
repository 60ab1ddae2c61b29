// Package clock abstracts wall-clock time and tickers so that sampling
// loops and session timers can be driven deterministically in tests.
package clock

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock provides the current time and periodic tickers.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker delivers ticks on C until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Real returns a Clock backed by the time package.
func Real() Clock { return wrap{c: clockwork.NewRealClock()} }

type wrap struct{ c clockwork.Clock }

func (w wrap) Now() time.Time { return w.c.Now() }

func (w wrap) NewTicker(d time.Duration) Ticker {
	return ticker{t: w.c.NewTicker(d)}
}

type ticker struct{ t clockwork.Ticker }

func (t ticker) C() <-chan time.Time { return t.t.Chan() }
func (t ticker) Stop()               { t.t.Stop() }

// Fake is a manually advanced Clock. Tickers created from it fire only when
// Advance moves time past their next deadline. Like time.Ticker, a tick is
// dropped when the previous one has not been received yet.
type Fake struct {
	fc     *clockwork.FakeClock
	active atomic.Int64
}

// NewFake creates a Fake clock starting at start.
func NewFake(start time.Time) *Fake {
	return &Fake{fc: clockwork.NewFakeClockAt(start)}
}

// Now returns the fake current time.
func (f *Fake) Now() time.Time { return f.fc.Now() }

// NewTicker creates a ticker that fires every d of fake time.
func (f *Fake) NewTicker(d time.Duration) Ticker {
	if d <= 0 {
		panic("clock: non-positive ticker interval")
	}
	f.active.Add(1)
	return &fakeTicker{Ticker: ticker{t: f.fc.NewTicker(d)}, clock: f}
}

// Tickers returns the number of tickers that have not been stopped.
func (f *Fake) Tickers() int { return int(f.active.Load()) }

// Advance moves time forward by d, firing every ticker deadline crossed on
// the way in chronological order.
func (f *Fake) Advance(d time.Duration) { f.fc.Advance(d) }

type fakeTicker struct {
	Ticker
	clock *Fake
	once  sync.Once
}

func (t *fakeTicker) Stop() {
	t.once.Do(func() {
		t.Ticker.Stop()
		t.clock.active.Add(-1)
	})
}
