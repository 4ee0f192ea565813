package engine

import (
	"time"

	"github.com/mapmotion/mapmotion/pkg/core"
	"github.com/mapmotion/mapmotion/pkg/curve"
)

// AnimatedMarkerState is one marker's animation lifecycle, owned exclusively
// by the Store. While Active, Current lies on the segment between Start and
// Target and moves monotonically toward Target as time advances; once the
// elapsed time reaches the store's duration, Current equals Target exactly
// and the state deactivates.
//
// Duration and curve deliberately live on the Store, not here: runtime
// reconfiguration applies to the remaining portion of an in-flight leg
// using the leg's original Start/Target/StartedAt.
type AnimatedMarkerState struct {
	ID        string
	Start     core.Position
	Target    core.Position
	StartedAt time.Time
	Current   core.Position
	Active    bool
}

// newPinnedState creates the state for a marker appearing for the first
// time: pinned at its supplied position, inactive. There is no animate-in.
func newPinnedState(id string, pos core.Position) *AnimatedMarkerState {
	return &AnimatedMarkerState{
		ID:      id,
		Start:   pos,
		Target:  pos,
		Current: pos,
	}
}

// retarget abandons any in-flight leg and starts a new one toward target
// from the current interpolated position, so mid-flight retargets never
// jump.
func (s *AnimatedMarkerState) retarget(target core.Position, now time.Time) {
	s.Start = s.Current
	s.Target = target
	s.StartedAt = now
	s.Active = true
}

// advance recomputes Current at now and reports whether it moved. The
// fraction is always derived from absolute elapsed time against StartedAt,
// never accumulated per-tick deltas, so a delayed tick simply catches up.
//
// A duration of zero snaps without dividing. A duration at or below
// snapUnder (the timer backend's tick interval) snaps on the first tick of
// the leg, since fractional progress at that granularity would overshoot
// or stall at the start position.
func (s *AnimatedMarkerState) advance(now time.Time, duration time.Duration, c curve.Curve, snapUnder time.Duration) bool {
	if !s.Active {
		return false
	}
	if duration <= 0 || duration <= snapUnder {
		return s.snap()
	}

	elapsed := now.Sub(s.StartedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed >= duration {
		return s.snap()
	}

	eased := c(curve.Clamp(float64(elapsed) / float64(duration)))
	next := core.Lerp(s.Start, s.Target, eased)
	moved := next != s.Current
	s.Current = next
	return moved
}

// snap completes the leg: Current becomes Target exactly and the state
// deactivates.
func (s *AnimatedMarkerState) snap() bool {
	moved := s.Current != s.Target
	s.Current = s.Target
	s.Active = false
	return moved
}
