package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapmotion/mapmotion/internal/frameclock"
	"github.com/mapmotion/mapmotion/pkg/core"
	"github.com/mapmotion/mapmotion/pkg/curve"
)

// emissionLog records render emissions; the timer backend delivers them
// from its own goroutine.
type emissionLog struct {
	mu   sync.Mutex
	sets [][]core.MarkerSnapshot
}

func (l *emissionLog) record(ms []core.MarkerSnapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sets = append(l.sets, ms)
}

func (l *emissionLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sets)
}

func (l *emissionLog) last() []core.MarkerSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.sets) == 0 {
		return nil
	}
	return l.sets[len(l.sets)-1]
}

func newFrameEngine(t *testing.T, cfg Config, clock *frameclock.Manual) *Engine {
	t.Helper()
	e, err := New(cfg, WithClock(clock), WithNow(func() time.Time { return testBase }))
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func TestEngine_FrameBackend_SubscribesOnlyWhileAnimating(t *testing.T) {
	clock := frameclock.NewManual()
	e := newFrameEngine(t, Config{Duration: time.Second}, clock)

	e.SetMarkers([]core.MarkerSnapshot{marker("1", 0, 0)})
	assert.Equal(t, 0, clock.SubscriberCount(), "instant appearance needs no frames")

	e.SetMarkers([]core.MarkerSnapshot{marker("1", 10, 0)})
	assert.Equal(t, 1, clock.SubscriberCount(), "retarget wakes the frame subscription")

	clock.Fire(testBase.Add(2 * time.Second))
	assert.Equal(t, 0, clock.SubscriberCount(), "subscription released when idle")

	// A later retarget resubscribes.
	e.SetMarkers([]core.MarkerSnapshot{marker("1", 20, 0)})
	assert.Equal(t, 1, clock.SubscriberCount())
}

func TestEngine_FrameBackend_ScenarioA(t *testing.T) {
	clock := frameclock.NewManual()
	e := newFrameEngine(t, Config{Duration: time.Second, Curve: curve.Linear}, clock)

	log := &emissionLog{}
	e.OnRender(log.record)

	e.SetMarkers([]core.MarkerSnapshot{marker("1", 0, 0)})
	e.SetMarkers([]core.MarkerSnapshot{marker("1", 10, 0)})

	clock.Fire(testBase.Add(500 * time.Millisecond))
	last := log.last()
	require.Len(t, last, 1)
	assert.InDelta(t, 5.0, last[0].Position.X, 1e-9)

	clock.Fire(testBase.Add(time.Second))
	assert.Equal(t, core.Position{X: 10, Y: 0}, log.last()[0].Position)
	assert.Zero(t, e.ActiveAnimations())
}

func TestEngine_FrameBackend_CustomCurve(t *testing.T) {
	clock := frameclock.NewManual()
	e := newFrameEngine(t, Config{Duration: time.Second, Curve: curve.EaseIn}, clock)

	e.SetMarkers([]core.MarkerSnapshot{marker("1", 0, 0)})
	e.SetMarkers([]core.MarkerSnapshot{marker("1", 10, 0)})

	clock.Fire(testBase.Add(500 * time.Millisecond))
	// easeIn(0.5) = 0.25
	pos := e.Rendered()[0].Position
	assert.InDelta(t, 2.5, pos.X, 1e-9)
}

func TestEngine_FrameBackend_RejectsFrameRateChange(t *testing.T) {
	clock := frameclock.NewManual()
	e := newFrameEngine(t, Config{}, clock)

	assert.ErrorIs(t, e.SetFrameRate(30), ErrFrameRateNotSupported)
}

func TestEngine_SetCurve_RuntimeChange(t *testing.T) {
	clock := frameclock.NewManual()
	e := newFrameEngine(t, Config{Duration: time.Second}, clock)

	e.SetMarkers([]core.MarkerSnapshot{marker("1", 0, 0)})
	e.SetMarkers([]core.MarkerSnapshot{marker("1", 10, 0)})

	require.NoError(t, e.SetCurve(curve.EaseIn))

	// The in-flight leg keeps its start/target/timestamp; only the easing
	// of the remaining portion changes.
	clock.Fire(testBase.Add(500 * time.Millisecond))
	assert.InDelta(t, 2.5, e.Rendered()[0].Position.X, 1e-9)
}

func TestEngine_DisposeSafety(t *testing.T) {
	clock := frameclock.NewManual()
	e := newFrameEngine(t, Config{Duration: time.Second}, clock)

	log := &emissionLog{}
	e.OnRender(log.record)

	e.SetMarkers([]core.MarkerSnapshot{marker("1", 0, 0)})
	e.SetMarkers([]core.MarkerSnapshot{marker("1", 10, 0)})
	before := log.count()

	e.Close()

	assert.Equal(t, 0, clock.SubscriberCount(), "dispose cancels the frame subscription")

	// A frame already in flight must be a no-op even if it lands.
	clock.Fire(testBase.Add(500 * time.Millisecond))
	assert.Equal(t, before, log.count(), "nothing fires after dispose")

	e.SetMarkers([]core.MarkerSnapshot{marker("2", 1, 1)})
	assert.Equal(t, before, log.count())

	// Close is idempotent.
	e.Close()
}

func TestEngine_ScenarioC_EndToEnd(t *testing.T) {
	clock := frameclock.NewManual()
	e := newFrameEngine(t, Config{Duration: time.Second}, clock)

	e.SetMarkers([]core.MarkerSnapshot{marker("1", 1, 1), marker("2", 2, 2)})
	e.SetMarkers([]core.MarkerSnapshot{marker("2", 2, 2), marker("3", 3, 3)})

	rendered := e.Rendered()
	require.Len(t, rendered, 2)
	assert.Equal(t, "2", rendered[0].ID)
	assert.Equal(t, "3", rendered[1].ID)
	assert.Zero(t, e.ActiveAnimations())
	assert.Equal(t, 0, clock.SubscriberCount())
}
