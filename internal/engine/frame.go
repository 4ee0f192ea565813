package engine

import (
	"sync"
	"time"

	"github.com/mapmotion/mapmotion/internal/frameclock"
)

// frameBackend drives ticks from the host's frame clock. It subscribes only
// while the active-animation count is non-zero and cancels the subscription
// otherwise, so an idle engine holds no frame callback.
type frameBackend struct {
	clock frameclock.Clock
	tick  func(now time.Time)

	mu     sync.Mutex
	cancel func()
	closed bool
}

func newFrameBackend(clock frameclock.Clock, tick func(time.Time)) *frameBackend {
	return &frameBackend{clock: clock, tick: tick}
}

func (b *frameBackend) resume() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || b.cancel != nil {
		return
	}
	b.cancel = b.clock.Subscribe(b.tick)
}

func (b *frameBackend) pause() {
	b.mu.Lock()
	cancel := b.cancel
	b.cancel = nil
	b.mu.Unlock()
	// Cancel outside the lock: pause is reached from within a frame
	// callback when the last animation completes.
	if cancel != nil {
		cancel()
	}
}

func (b *frameBackend) setFrameRate(int) error {
	// Pinned to the host's native cadence.
	return ErrFrameRateNotSupported
}

func (b *frameBackend) close() {
	b.mu.Lock()
	b.closed = true
	cancel := b.cancel
	b.cancel = nil
	b.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
