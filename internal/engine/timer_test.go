package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapmotion/mapmotion/pkg/core"
	"github.com/mapmotion/mapmotion/pkg/curve"
)

func newTimerEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	cfg.Backend = BackendTimer
	e, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func timerOf(t *testing.T, e *Engine) *timerBackend {
	t.Helper()
	tb, ok := e.backend.(*timerBackend)
	require.True(t, ok)
	return tb
}

func TestTimerEngine_ConvergesToTarget(t *testing.T) {
	e := newTimerEngine(t, Config{Duration: 50 * time.Millisecond, FrameRate: 100})

	e.SetMarkers([]core.MarkerSnapshot{marker("1", 0, 0)})
	e.SetMarkers([]core.MarkerSnapshot{marker("1", 10, 0)})

	require.Eventually(t, func() bool {
		r := e.Rendered()
		return len(r) == 1 && r[0].Position == core.Position{X: 10, Y: 0}
	}, time.Second, 5*time.Millisecond)
	assert.Zero(t, e.ActiveAnimations())
}

func TestTimerEngine_CoarseTickSnapsDirectly(t *testing.T) {
	// Scenario B at test scale: with the leg no longer than the tick
	// interval, every emission shows either the start or the target
	// position, never fractional progress.
	e := newTimerEngine(t, Config{Duration: 5 * time.Millisecond, FrameRate: 100})

	log := &emissionLog{}
	e.OnRender(log.record)

	e.SetMarkers([]core.MarkerSnapshot{marker("1", 0, 0)})
	e.SetMarkers([]core.MarkerSnapshot{marker("1", 10, 0)})

	require.Eventually(t, func() bool {
		last := log.last()
		return len(last) == 1 && last[0].Position == core.Position{X: 10, Y: 0}
	}, time.Second, 5*time.Millisecond)

	log.mu.Lock()
	defer log.mu.Unlock()
	for _, set := range log.sets {
		for _, m := range set {
			ok := m.Position == core.Position{X: 0, Y: 0} || m.Position == core.Position{X: 10, Y: 0}
			assert.True(t, ok, "unexpected intermediate position %v", m.Position)
		}
	}
}

func TestTimerEngine_IdleTeardown(t *testing.T) {
	e := newTimerEngine(t, Config{Duration: 20 * time.Millisecond, FrameRate: 100})
	tb := timerOf(t, e)

	e.SetMarkers([]core.MarkerSnapshot{marker("1", 0, 0)})
	tb.mu.Lock()
	running := tb.stop != nil
	tb.mu.Unlock()
	assert.False(t, running, "no ticker while nothing animates")

	e.SetMarkers([]core.MarkerSnapshot{marker("1", 10, 0)})

	require.Eventually(t, func() bool {
		tb.mu.Lock()
		defer tb.mu.Unlock()
		return tb.stop == nil
	}, time.Second, 5*time.Millisecond, "ticker torn down once idle")
}

func TestTimerEngine_SetFrameRate(t *testing.T) {
	e := newTimerEngine(t, Config{Duration: time.Second, FrameRate: 50})
	tb := timerOf(t, e)
	require.Equal(t, 20*time.Millisecond, tb.currentInterval())

	require.NoError(t, e.SetFrameRate(100))
	assert.Equal(t, 10*time.Millisecond, tb.currentInterval())

	assert.ErrorIs(t, e.SetFrameRate(0), ErrFrameRateOutOfRange)
	assert.ErrorIs(t, e.SetFrameRate(121), ErrFrameRateOutOfRange)
}

func TestTimerEngine_SetFrameRateWhileRunning(t *testing.T) {
	e := newTimerEngine(t, Config{Duration: 200 * time.Millisecond, FrameRate: 50})

	e.SetMarkers([]core.MarkerSnapshot{marker("1", 0, 0)})
	e.SetMarkers([]core.MarkerSnapshot{marker("1", 10, 0)})

	// Reschedule mid-flight; the animation still converges on the final
	// target with no stale emission of a superseded position.
	require.NoError(t, e.SetFrameRate(100))
	e.SetMarkers([]core.MarkerSnapshot{marker("1", 4, 4)})

	require.Eventually(t, func() bool {
		r := e.Rendered()
		return len(r) == 1 && r[0].Position == core.Position{X: 4, Y: 4}
	}, time.Second, 5*time.Millisecond)
}

func TestTimerEngine_RejectsCurveChange(t *testing.T) {
	e := newTimerEngine(t, Config{Duration: time.Second})

	assert.ErrorIs(t, e.SetCurve(curve.EaseOut), ErrCurveNotSupported)
	assert.NoError(t, e.SetCurve(curve.Linear))
}

func TestTimerEngine_DisposeStopsTicks(t *testing.T) {
	e := newTimerEngine(t, Config{Duration: 500 * time.Millisecond, FrameRate: 100})

	log := &emissionLog{}
	e.OnRender(log.record)

	e.SetMarkers([]core.MarkerSnapshot{marker("1", 0, 0)})
	e.SetMarkers([]core.MarkerSnapshot{marker("1", 10, 0)})

	e.Close()
	settled := log.count()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, log.count(), "no emission after dispose")
}
