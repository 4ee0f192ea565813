// Package frameclock abstracts the host's per-frame callback. The engine's
// frame-driven backend subscribes while animations are active and cancels
// the subscription when the active count drops to zero, so an idle engine
// consumes nothing.
package frameclock

import (
	"sync"
	"time"
)

// Clock delivers per-frame callbacks at the host's native cadence.
type Clock interface {
	// Subscribe registers fn to be called once per frame with the frame
	// timestamp. The returned cancel function unregisters fn and must not
	// block, because the subscriber may cancel from inside a frame
	// callback. A frame already in flight when cancel returns may still
	// invoke fn once; subscribers that need a hard cutoff guard their own
	// disposed state.
	Subscribe(fn func(now time.Time)) (cancel func())
}

// DefaultCadence approximates a 60 Hz display.
const DefaultCadence = 16667 * time.Microsecond

// Wall is a Clock driven by a time.Ticker at a fixed cadence. It stands in
// for a real display vsync when the embedding renderer does not supply one.
type Wall struct {
	Cadence time.Duration
}

// Subscribe starts a ticker goroutine delivering frames to fn.
func (w *Wall) Subscribe(fn func(now time.Time)) func() {
	cadence := w.Cadence
	if cadence <= 0 {
		cadence = DefaultCadence
	}

	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(cadence)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case now := <-ticker.C:
				select {
				case <-done:
					return
				default:
				}
				fn(now)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}

// Manual is a Clock advanced explicitly by the caller. Tests use it to
// drive frames deterministically.
type Manual struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(time.Time)
}

// NewManual creates an empty manual clock.
func NewManual() *Manual {
	return &Manual{subs: make(map[int]func(time.Time))}
}

// Subscribe registers fn; frames are delivered from Fire.
func (m *Manual) Subscribe(fn func(now time.Time)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// Fire synchronously delivers one frame at now to all subscribers.
func (m *Manual) Fire(now time.Time) {
	m.mu.Lock()
	fns := make([]func(time.Time), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn(now)
	}
}

// SubscriberCount returns the number of live subscriptions.
func (m *Manual) SubscriberCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}
