// Package engine animates marker positions between successive snapshots of
// a marker collection. Incoming collections are diffed by id, each marker
// carries its own animation lifecycle, and one of two interchangeable
// scheduling backends recomputes interpolated positions until every leg
// completes: a frame-clock-driven backend supporting arbitrary curves, and
// a fixed-interval timer backend pinned to the linear curve. The two are
// behaviorally equivalent except for timing granularity and curve support.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mapmotion/mapmotion/internal/frameclock"
	"github.com/mapmotion/mapmotion/pkg/core"
	"github.com/mapmotion/mapmotion/pkg/curve"
)

// backend is the single contract both scheduling strategies implement: keep
// ticks flowing into the store while animations are active, go quiet when
// the count drops to zero. At most one backend is live per engine.
type backend interface {
	resume()
	pause()
	setFrameRate(rate int) error
	close()
}

// Engine is the marker-position animation engine. Construct with New; a
// Config violation is fatal and New returns an error instead of an engine.
type Engine struct {
	cfg     Config
	store   *Store
	backend backend
	log     *slog.Logger
	metrics *instruments

	closeOnce sync.Once
}

// Option customizes engine construction.
type Option func(*options)

type options struct {
	clock  frameclock.Clock
	logger *slog.Logger
	now    func() time.Time
}

// WithClock supplies the frame clock the frame backend subscribes to.
// Defaults to a wall clock at the native display cadence.
func WithClock(c frameclock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger supplies a structured logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithNow overrides the timestamp source for new legs. Tests use it to
// drive the engine deterministically.
func WithNow(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New validates cfg and builds an engine with the selected backend. The
// engine is never instantiated in an invalid state.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.clock == nil {
		o.clock = &frameclock.Wall{}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	c := cfg.Curve
	if c == nil {
		c = curve.Linear
	}

	e := &Engine{
		cfg:   cfg,
		store: NewStore(cfg.Duration, c),
		log:   o.logger,
	}
	if o.now != nil {
		e.store.SetNow(o.now)
	}

	switch cfg.kind() {
	case BackendFrame:
		e.backend = newFrameBackend(o.clock, e.handleTick)
	case BackendTimer:
		tb := newTimerBackend(tickInterval(cfg.frameRate()), e.handleTick)
		e.store.SetSnapUnder(tb.currentInterval())
		e.backend = tb
	}

	ins, err := newInstruments(e.store.ActiveCount)
	if err != nil {
		return nil, err
	}
	e.metrics = ins

	e.log.Debug("engine created",
		"backend", string(cfg.kind()),
		"duration", cfg.Duration,
		"frameRate", cfg.frameRate(),
	)
	return e, nil
}

// OnRender installs the render emission callback. See EmitFunc for the
// ordering contract.
func (e *Engine) OnRender(fn EmitFunc) {
	e.store.SetEmit(func(markers []core.MarkerSnapshot) {
		if e.metrics != nil {
			e.metrics.emissions.Add(context.Background(), 1)
		}
		fn(markers)
	})
}

// SetMarkers submits a new snapshot of the marker collection. The diff is
// applied synchronously and one emission fires before SetMarkers returns;
// if the update started any animation the scheduling backend wakes up.
func (e *Engine) SetMarkers(markers []core.MarkerSnapshot) {
	animating, retargets := e.store.Apply(markers)
	if retargets > 0 && e.metrics != nil {
		e.metrics.retargets.Add(context.Background(), int64(retargets))
	}
	if animating {
		e.backend.resume()
	}
}

// Rendered returns the current materialized marker set.
func (e *Engine) Rendered() []core.MarkerSnapshot {
	return e.store.Rendered()
}

// ActiveAnimations returns the number of in-flight legs.
func (e *Engine) ActiveAnimations() int {
	return e.store.ActiveCount()
}

// SetDuration changes the leg duration at runtime. In-flight legs keep
// their original start, target, and timestamp; only the remaining portion
// is affected.
func (e *Engine) SetDuration(d time.Duration) error {
	if d < 0 {
		return ErrNegativeDuration
	}
	e.store.SetDuration(d)
	return nil
}

// SetCurve changes the easing curve at runtime. The timer backend rejects
// everything but the linear curve.
func (e *Engine) SetCurve(c curve.Curve) error {
	if e.cfg.kind() == BackendTimer && !curve.IsLinear(c) {
		return ErrCurveNotSupported
	}
	e.store.SetCurve(c)
	return nil
}

// SetFrameRate reschedules the timer backend's ticker at runtime. The
// frame backend rejects it: it is pinned to the host's frame cadence.
func (e *Engine) SetFrameRate(rate int) error {
	if err := e.backend.setFrameRate(rate); err != nil {
		return err
	}
	e.store.SetSnapUnder(tickInterval(rate))
	return nil
}

// Close disposes the engine: the store stops accepting phases first, then
// the backend's subscription or ticker is cancelled, so a callback already
// in flight is a guaranteed no-op and nothing fires afterwards. Close is
// idempotent.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.store.Close()
		e.backend.close()
		e.log.Debug("engine closed")
	})
}

func (e *Engine) handleTick(now time.Time) {
	_, idle := e.store.Tick(now)
	if e.metrics != nil {
		e.metrics.ticks.Add(context.Background(), 1)
	}
	if idle {
		e.backend.pause()
	}
}
