package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/mapmotion/mapmotion/internal/diff"
	"github.com/mapmotion/mapmotion/pkg/core"
	"github.com/mapmotion/mapmotion/pkg/curve"
)

// EmitFunc receives the fully materialized marker set after every diff
// application and after every tick that moved at least one marker. It is
// invoked while the store's phase lock is held, so emissions are totally
// ordered with respect to updates and ticks and never observe a partially
// mutated collection. The callback must not call back into the engine.
type EmitFunc func(markers []core.MarkerSnapshot)

// Store owns the id-to-state mapping and the latest non-positional payload
// per marker. The scheduling backends mutate it only through Tick; external
// updates only through Apply. A mutex serializes the two alternating phases
// because Go delivers ticks on a backend goroutine.
type Store struct {
	mu        sync.Mutex
	duration  time.Duration
	curve     curve.Curve
	snapUnder time.Duration
	states    map[string]*AnimatedMarkerState
	payloads  map[string]core.MarkerPayload
	emit      EmitFunc
	now       func() time.Time
	closed    bool
}

// NewStore creates a store with the given leg duration and curve. A nil
// curve means linear.
func NewStore(duration time.Duration, c curve.Curve) *Store {
	if c == nil {
		c = curve.Linear
	}
	return &Store{
		duration: duration,
		curve:    c,
		states:   make(map[string]*AnimatedMarkerState),
		payloads: make(map[string]core.MarkerPayload),
		now:      time.Now,
	}
}

// SetEmit installs the render emission callback.
func (s *Store) SetEmit(fn EmitFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emit = fn
}

// SetNow overrides the wall clock used to stamp new legs. Tests use it.
func (s *Store) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SetDuration changes the leg duration. In-flight legs keep their original
// start, target, and timestamp; only the remaining portion is affected.
func (s *Store) SetDuration(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.duration = d
}

// SetCurve changes the easing curve for the remaining portion of any
// in-flight leg.
func (s *Store) SetCurve(c curve.Curve) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c == nil {
		c = curve.Linear
	}
	s.curve = c
}

// SetSnapUnder sets the duration threshold below which legs snap straight
// to target on their first tick. The timer backend keeps it equal to its
// tick interval; the frame backend leaves it at zero.
func (s *Store) SetSnapUnder(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapUnder = d
}

// Apply diffs the incoming collection against the live id set and mutates
// state: added ids appear instantly at their supplied position, removed ids
// are deleted outright, and retained ids whose position differs from the
// stored target are retargeted from their current interpolated position.
// Payloads are always refreshed from the incoming snapshot. One emission
// fires after the mutation completes.
//
// Apply reports whether any animation is active afterwards (so the caller
// can wake the scheduling backend) and how many retargets were issued.
func (s *Store) Apply(next []core.MarkerSnapshot) (animating bool, retargets int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, 0
	}

	prev := make(map[string]struct{}, len(s.states))
	for id := range s.states {
		prev[id] = struct{}{}
	}
	d := diff.Compute(prev, next)

	for _, id := range d.Removed {
		delete(s.states, id)
		delete(s.payloads, id)
	}
	for _, m := range d.Added {
		s.states[m.ID] = newPinnedState(m.ID, m.Position)
		s.payloads[m.ID] = m.Payload
	}
	now := s.now()
	for _, m := range d.Retained {
		s.payloads[m.ID] = m.Payload
		st := s.states[m.ID]
		if m.Position != st.Target {
			st.retarget(m.Position, now)
			retargets++
		}
	}

	s.emitLocked()
	return s.activeLocked() > 0, retargets
}

// Tick advances every active state to now. It reports whether any marker
// moved (an emission fired) and whether the store went idle so the backend
// can unsubscribe.
func (s *Store) Tick(now time.Time) (moved bool, idle bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, true
	}

	for _, st := range s.states {
		if st.advance(now, s.duration, s.curve, s.snapUnder) {
			moved = true
		}
	}
	if moved {
		s.emitLocked()
	}
	return moved, s.activeLocked() == 0
}

// Rendered returns the current materialized marker set: one snapshot per
// live id with its interpolated position and latest payload, ordered by id.
func (s *Store) Rendered() []core.MarkerSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renderedLocked()
}

// ActiveCount returns the number of in-flight animations.
func (s *Store) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeLocked()
}

// Close marks the store disposed. Later Apply and Tick calls are no-ops,
// which makes any tick already in flight at dispose time harmless.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *Store) activeLocked() int {
	n := 0
	for _, st := range s.states {
		if st.Active {
			n++
		}
	}
	return n
}

func (s *Store) renderedLocked() []core.MarkerSnapshot {
	out := make([]core.MarkerSnapshot, 0, len(s.states))
	for id, st := range s.states {
		out = append(out, core.MarkerSnapshot{
			ID:       id,
			Position: st.Current,
			Payload:  s.payloads[id],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) emitLocked() {
	if s.emit != nil {
		s.emit(s.renderedLocked())
	}
}
