package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapmotion/mapmotion/pkg/core"
	"github.com/mapmotion/mapmotion/pkg/curve"
)

var testBase = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(d time.Duration, c curve.Curve) *Store {
	s := NewStore(d, c)
	s.SetNow(func() time.Time { return testBase })
	return s
}

func marker(id string, x, y float64) core.MarkerSnapshot {
	return core.MarkerSnapshot{ID: id, Position: core.Position{X: x, Y: y}}
}

func renderedPos(t *testing.T, s *Store, id string) core.Position {
	t.Helper()
	for _, m := range s.Rendered() {
		if m.ID == id {
			return m.Position
		}
	}
	t.Fatalf("marker %q not in rendered output", id)
	return core.Position{}
}

func TestStore_Apply_AddedAppearsInstantly(t *testing.T) {
	s := newTestStore(time.Second, nil)

	animating, retargets := s.Apply([]core.MarkerSnapshot{marker("1", 3, 4)})

	assert.False(t, animating, "no animate-in")
	assert.Zero(t, retargets)
	assert.Equal(t, core.Position{X: 3, Y: 4}, renderedPos(t, s, "1"))
	assert.Zero(t, s.ActiveCount())
}

func TestStore_Apply_RemovedDisappearsInstantly(t *testing.T) {
	s := newTestStore(time.Second, nil)
	s.Apply([]core.MarkerSnapshot{marker("1", 0, 0), marker("2", 1, 1)})

	s.Apply([]core.MarkerSnapshot{marker("2", 1, 1)})

	rendered := s.Rendered()
	require.Len(t, rendered, 1)
	assert.Equal(t, "2", rendered[0].ID)
}

func TestStore_Apply_RetargetStartsAnimation(t *testing.T) {
	s := newTestStore(time.Second, nil)
	s.Apply([]core.MarkerSnapshot{marker("1", 0, 0)})

	animating, retargets := s.Apply([]core.MarkerSnapshot{marker("1", 10, 0)})

	assert.True(t, animating)
	assert.Equal(t, 1, retargets)
	// Position does not move until the first tick.
	assert.Equal(t, core.Position{X: 0, Y: 0}, renderedPos(t, s, "1"))
}

func TestStore_Apply_Idempotent(t *testing.T) {
	s := newTestStore(time.Second, nil)
	s.Apply([]core.MarkerSnapshot{marker("1", 5, 5)})
	before := s.Rendered()

	animating, retargets := s.Apply([]core.MarkerSnapshot{marker("1", 5, 5)})

	assert.False(t, animating)
	assert.Zero(t, retargets)
	assert.Equal(t, before, s.Rendered())
}

func TestStore_Apply_PayloadPropagatesWithoutAnimation(t *testing.T) {
	s := newTestStore(time.Second, nil)
	s.Apply([]core.MarkerSnapshot{marker("1", 5, 5)})

	updated := marker("1", 5, 5)
	updated.Payload.Rotation = 90
	updated.Payload.Visible = true
	animating, _ := s.Apply([]core.MarkerSnapshot{updated})

	assert.False(t, animating, "unchanged position must not animate")
	rendered := s.Rendered()
	require.Len(t, rendered, 1)
	assert.Equal(t, 90.0, rendered[0].Payload.Rotation)
	assert.True(t, rendered[0].Payload.Visible)
}

func TestStore_ScenarioA_LinearInterpolation(t *testing.T) {
	// {1 at (0,0)} -> {1 at (10,0)}, duration 1000ms, linear curve.
	s := newTestStore(time.Second, curve.Linear)
	s.Apply([]core.MarkerSnapshot{marker("1", 0, 0)})
	s.Apply([]core.MarkerSnapshot{marker("1", 10, 0)})

	moved, idle := s.Tick(testBase.Add(500 * time.Millisecond))
	require.True(t, moved)
	assert.False(t, idle)
	pos := renderedPos(t, s, "1")
	assert.InDelta(t, 5.0, pos.X, 1e-9)
	assert.InDelta(t, 0.0, pos.Y, 1e-9)

	moved, idle = s.Tick(testBase.Add(time.Second))
	require.True(t, moved)
	assert.True(t, idle)
	assert.Equal(t, core.Position{X: 10, Y: 0}, renderedPos(t, s, "1"),
		"elapsed >= duration must land exactly on target")
	assert.Zero(t, s.ActiveCount())
}

func TestStore_Tick_LateTickCatchesUp(t *testing.T) {
	s := newTestStore(time.Second, nil)
	s.Apply([]core.MarkerSnapshot{marker("1", 0, 0)})
	s.Apply([]core.MarkerSnapshot{marker("1", 10, 0)})

	// A single tick long after the deadline must land on target exactly,
	// not drift from accumulated deltas.
	s.Tick(testBase.Add(10 * time.Second))
	assert.Equal(t, core.Position{X: 10, Y: 0}, renderedPos(t, s, "1"))
}

func TestStore_RetargetContinuity(t *testing.T) {
	s := newTestStore(time.Second, nil)
	s.Apply([]core.MarkerSnapshot{marker("1", 0, 0)})
	s.Apply([]core.MarkerSnapshot{marker("1", 10, 0)})

	s.Tick(testBase.Add(500 * time.Millisecond))
	mid := renderedPos(t, s, "1")
	require.InDelta(t, 5.0, mid.X, 1e-9)

	// Retarget mid-flight; the new leg starts at the interpolated position.
	s.SetNow(func() time.Time { return testBase.Add(500 * time.Millisecond) })
	s.Apply([]core.MarkerSnapshot{marker("1", 0, 20)})

	assert.Equal(t, mid, renderedPos(t, s, "1"), "no discontinuous jump at retarget")

	// Halfway through the new leg: between mid and the new target.
	s.Tick(testBase.Add(1000 * time.Millisecond))
	pos := renderedPos(t, s, "1")
	assert.InDelta(t, 2.5, pos.X, 1e-9)
	assert.InDelta(t, 10.0, pos.Y, 1e-9)

	s.Tick(testBase.Add(1500 * time.Millisecond))
	assert.Equal(t, core.Position{X: 0, Y: 20}, renderedPos(t, s, "1"))
}

func TestStore_LatestWinsUnderRapidRetargeting(t *testing.T) {
	s := newTestStore(time.Second, nil)
	s.Apply([]core.MarkerSnapshot{marker("1", 0, 0)})

	for i, target := range []core.Position{{X: 2}, {X: 4}, {X: 100, Y: 100}} {
		at := testBase.Add(time.Duration(i) * 10 * time.Millisecond)
		s.SetNow(func() time.Time { return at })
		s.Apply([]core.MarkerSnapshot{{ID: "1", Position: target}})
	}

	s.Tick(testBase.Add(time.Hour))
	assert.Equal(t, core.Position{X: 100, Y: 100}, renderedPos(t, s, "1"),
		"only the final target may be the resting position")
	assert.Zero(t, s.ActiveCount())
}

func TestStore_MonotonicConvergence(t *testing.T) {
	s := newTestStore(time.Second, curve.EaseInOut)
	s.Apply([]core.MarkerSnapshot{marker("1", 0, 0)})
	s.Apply([]core.MarkerSnapshot{marker("1", 10, 7)})
	target := core.Position{X: 10, Y: 7}

	prev := core.Distance(core.Position{X: 0, Y: 0}, target)
	for ms := 50; ms <= 1100; ms += 50 {
		s.Tick(testBase.Add(time.Duration(ms) * time.Millisecond))
		d := core.Distance(renderedPos(t, s, "1"), target)
		assert.LessOrEqual(t, d, prev, "distance to target must not increase")
		prev = d
	}
	assert.Zero(t, prev)
}

func TestStore_ZeroDurationSnapsWithoutDivision(t *testing.T) {
	s := newTestStore(0, nil)
	s.Apply([]core.MarkerSnapshot{marker("1", 0, 0)})
	s.Apply([]core.MarkerSnapshot{marker("1", 10, 0)})

	// First tick after the leg starts, at any timestamp.
	moved, idle := s.Tick(testBase)
	assert.True(t, moved)
	assert.True(t, idle)
	assert.Equal(t, core.Position{X: 10, Y: 0}, renderedPos(t, s, "1"))
}

func TestStore_SnapUnderCoarseTicks(t *testing.T) {
	// Timer hardening: a leg no longer than the tick interval snaps on its
	// first tick instead of attempting fractional progress.
	s := newTestStore(10*time.Millisecond, nil)
	s.SetSnapUnder(20 * time.Millisecond)
	s.Apply([]core.MarkerSnapshot{marker("1", 0, 0)})
	s.Apply([]core.MarkerSnapshot{marker("1", 10, 0)})

	s.Tick(testBase.Add(time.Millisecond))
	assert.Equal(t, core.Position{X: 10, Y: 0}, renderedPos(t, s, "1"))
	assert.Zero(t, s.ActiveCount())
}

func TestStore_RuntimeDurationAppliesToRemainingLeg(t *testing.T) {
	s := newTestStore(time.Second, nil)
	s.Apply([]core.MarkerSnapshot{marker("1", 0, 0)})
	s.Apply([]core.MarkerSnapshot{marker("1", 10, 0)})
	s.Tick(testBase.Add(250 * time.Millisecond))

	// Halving the duration does not restart the leg: the original start
	// timestamp now sits at the midpoint.
	s.SetDuration(500 * time.Millisecond)
	s.Tick(testBase.Add(250 * time.Millisecond))
	pos := renderedPos(t, s, "1")
	assert.InDelta(t, 5.0, pos.X, 1e-9)

	s.Tick(testBase.Add(600 * time.Millisecond))
	assert.Equal(t, core.Position{X: 10, Y: 0}, renderedPos(t, s, "1"))
}

func TestStore_EmissionOrdering(t *testing.T) {
	s := newTestStore(time.Second, nil)

	var emissions [][]core.MarkerSnapshot
	s.SetEmit(func(ms []core.MarkerSnapshot) { emissions = append(emissions, ms) })

	s.Apply([]core.MarkerSnapshot{marker("1", 0, 0)})
	require.Len(t, emissions, 1, "one emission per diff application")

	s.Apply([]core.MarkerSnapshot{marker("1", 10, 0)})
	require.Len(t, emissions, 2)

	s.Tick(testBase.Add(500 * time.Millisecond))
	require.Len(t, emissions, 3, "a tick that moved a marker emits")

	// A tick with nothing active must not emit.
	s.Tick(testBase.Add(2 * time.Second))
	s.Tick(testBase.Add(3 * time.Second))
	assert.Len(t, emissions, 4, "post-completion ticks are silent")
}

func TestStore_ScenarioC_SetReplacement(t *testing.T) {
	s := newTestStore(time.Second, nil)
	s.Apply([]core.MarkerSnapshot{marker("1", 1, 1), marker("2", 2, 2)})

	s.Apply([]core.MarkerSnapshot{marker("2", 2, 2), marker("3", 3, 3)})

	rendered := s.Rendered()
	require.Len(t, rendered, 2)
	assert.Equal(t, "2", rendered[0].ID)
	assert.Equal(t, "3", rendered[1].ID)
	assert.Equal(t, core.Position{X: 3, Y: 3}, rendered[1].Position, "id 3 appears instantly")
	assert.Zero(t, s.ActiveCount(), "id 2 unchanged shows no motion")
}

func TestStore_CloseMakesPhasesNoOps(t *testing.T) {
	s := newTestStore(time.Second, nil)
	s.Apply([]core.MarkerSnapshot{marker("1", 0, 0)})
	s.Apply([]core.MarkerSnapshot{marker("1", 10, 0)})

	var emissions int
	s.SetEmit(func([]core.MarkerSnapshot) { emissions++ })

	s.Close()

	animating, _ := s.Apply([]core.MarkerSnapshot{marker("9", 1, 1)})
	assert.False(t, animating)
	moved, idle := s.Tick(testBase.Add(time.Second))
	assert.False(t, moved)
	assert.True(t, idle)
	assert.Zero(t, emissions, "nothing fires after dispose")
}
