package engine

import (
	"sync"
	"time"
)

// timerBackend drives ticks from a fixed-interval time.Ticker at
// round(1000/frameRate) milliseconds. The ticker is torn down whenever the
// active-animation count drops to zero and rebuilt on the next activation,
// and it is rescheduled whenever the frame rate changes at runtime.
//
// The backend never needs to cancel a superseded leg explicitly: the store
// recomputes every position from absolute elapsed time under its phase
// lock, so a tick that raced a retarget or reconfiguration can only emit
// the current leg's position, never a stale one.
type timerBackend struct {
	tick func(now time.Time)

	mu       sync.Mutex
	interval time.Duration
	stop     chan struct{} // nil while idle
	closed   bool
}

func newTimerBackend(interval time.Duration, tick func(time.Time)) *timerBackend {
	return &timerBackend{interval: interval, tick: tick}
}

func (b *timerBackend) resume() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.startLocked()
}

func (b *timerBackend) startLocked() {
	if b.closed || b.stop != nil {
		return
	}
	stop := make(chan struct{})
	b.stop = stop

	go func(interval time.Duration) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case now := <-ticker.C:
				select {
				case <-stop:
					return
				default:
				}
				b.tick(now)
			}
		}
	}(b.interval)
}

func (b *timerBackend) pause() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopLocked()
}

func (b *timerBackend) stopLocked() {
	if b.stop != nil {
		close(b.stop)
		b.stop = nil
	}
}

// setFrameRate reschedules the ticker at the new interval. If the backend
// is currently delivering ticks, the old ticker is stopped and a fresh one
// started so the new cadence takes effect immediately.
func (b *timerBackend) setFrameRate(rate int) error {
	if rate < 1 || rate > 120 {
		return ErrFrameRateOutOfRange
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.interval = tickInterval(rate)
	if b.stop != nil {
		b.stopLocked()
		b.startLocked()
	}
	return nil
}

// currentInterval returns the tick interval in effect.
func (b *timerBackend) currentInterval() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.interval
}

func (b *timerBackend) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.stopLocked()
}
