// Package recorder connects an animation engine's emissions to a storage
// backend. Emissions arrive on the engine's render path, which must never
// block, so they are buffered on a channel and drained by a single worker
// goroutine. A full buffer drops the oldest pressure point: the incoming
// emission is discarded and counted.
package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/mapmotion/mapmotion/internal/influx"
	"github.com/mapmotion/mapmotion/internal/storage"
	"github.com/mapmotion/mapmotion/pkg/core"
)

const defaultBufferSize = 4096

// Recorder persists engine emissions for one session at a time.
type Recorder struct {
	backend storage.Backend
	influx  *influx.Manager // optional
	log     *slog.Logger

	buf      chan core.Emission
	done     chan struct{}
	flushReq chan chan struct{}
	wg       sync.WaitGroup

	mu        sync.Mutex
	session   *core.SessionInfo
	startedAt time.Time
	recorded  uint64
	seq       atomic.Uint64

	metrics recorderInstruments
}

type recorderInstruments struct {
	recorded metric.Int64Counter
	dropped  metric.Int64Counter
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithInflux enables telemetry writes alongside storage.
func WithInflux(m *influx.Manager) Option {
	return func(r *Recorder) { r.influx = m }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Recorder) { r.log = log }
}

// New creates a recorder over the given backend and starts its worker.
func New(backend storage.Backend, opts ...Option) (*Recorder, error) {
	r := &Recorder{
		backend:  backend,
		log:      slog.Default(),
		buf:      make(chan core.Emission, defaultBufferSize),
		done:     make(chan struct{}),
		flushReq: make(chan chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	m := meter()
	var err error
	if r.metrics.recorded, err = m.Int64Counter("recorder.emissions.recorded"); err != nil {
		return nil, err
	}
	if r.metrics.dropped, err = m.Int64Counter("recorder.emissions.dropped"); err != nil {
		return nil, err
	}

	r.wg.Add(1)
	go r.drain()
	return r, nil
}

// StartSession opens the backend session. Emissions received before
// StartSession are dropped.
func (r *Recorder) StartSession(info core.SessionInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != nil {
		return fmt.Errorf("session %q already in progress", r.session.Name)
	}
	if err := r.backend.StartSession(info); err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	r.session = &info
	r.startedAt = info.StartedAt
	if r.startedAt.IsZero() {
		r.startedAt = time.Now()
	}
	r.recorded = 0
	r.seq.Store(0)
	r.log.Info("recording started", "session", info.Name, "backend", info.Backend)
	return nil
}

// Observe adapts the engine's render callback: it stamps the marker set
// with a timestamp and session sequence number and enqueues it. Sequence 1
// is the first emission of the session.
func (r *Recorder) Observe(markers []core.MarkerSnapshot) {
	r.Record(core.Emission{
		Time:     time.Now(),
		Sequence: r.seq.Add(1),
		Markers:  markers,
	})
}

// Record enqueues one emission. Safe to call from the engine's render
// callback: it never blocks, and drops with a counter when the buffer is
// full or no session is in progress.
func (r *Recorder) Record(e core.Emission) {
	r.mu.Lock()
	active := r.session != nil
	r.mu.Unlock()
	if !active {
		return
	}

	select {
	case r.buf <- e:
	default:
		r.metrics.dropped.Add(context.Background(), 1)
		r.log.Warn("emission buffer full, dropping", "sequence", e.Sequence)
	}
}

// EndSession flushes buffered emissions and closes the backend session.
func (r *Recorder) EndSession() error {
	r.mu.Lock()
	session := r.session
	r.session = nil
	startedAt := r.startedAt
	r.mu.Unlock()

	if session == nil {
		return nil
	}

	// Intake is stopped, so the buffer can only shrink from here.
	r.flush()

	r.mu.Lock()
	recorded := r.recorded
	r.mu.Unlock()

	if r.influx != nil {
		elapsed := time.Since(startedAt)
		if err := r.influx.WriteSessionSummary(context.Background(), session.Name, recorded, elapsed); err != nil {
			r.log.Warn("session summary telemetry failed", "error", err)
		}
	}

	if err := r.backend.EndSession(); err != nil {
		return fmt.Errorf("ending session: %w", err)
	}
	r.log.Info("recording ended", "session", session.Name, "emissions", recorded)
	return nil
}

// Close ends any active session and stops the worker.
func (r *Recorder) Close() error {
	err := r.EndSession()

	r.mu.Lock()
	select {
	case <-r.done:
	default:
		close(r.done)
	}
	r.mu.Unlock()

	r.wg.Wait()
	return err
}

// flush hands the worker a drain request and waits for it to persist
// everything buffered ahead of it. The request travels through the same
// select the worker dequeues from, so it cannot overtake an emission the
// worker has already pulled off the buffer.
func (r *Recorder) flush() {
	ack := make(chan struct{})
	select {
	case r.flushReq <- ack:
		<-ack
	case <-r.done:
	}
}

func (r *Recorder) drain() {
	defer r.wg.Done()
	for {
		select {
		case e := <-r.buf:
			r.persist(e)
		case ack := <-r.flushReq:
			r.drainBuffered()
			close(ack)
		case <-r.done:
			r.drainBuffered()
			return
		}
	}
}

// drainBuffered persists whatever is in the buffer without blocking for more.
func (r *Recorder) drainBuffered() {
	for {
		select {
		case e := <-r.buf:
			r.persist(e)
		default:
			return
		}
	}
}

func (r *Recorder) persist(e core.Emission) {
	if err := r.backend.RecordEmission(e); err != nil {
		r.log.Error("recording emission failed", "sequence", e.Sequence, "error", err)
		return
	}

	r.mu.Lock()
	r.recorded++
	var name string
	if r.session != nil {
		name = r.session.Name
	}
	r.mu.Unlock()

	r.metrics.recorded.Add(context.Background(), 1)

	if r.influx != nil && name != "" {
		if err := r.influx.WriteEmissionStats(context.Background(), name, e.Sequence, len(e.Markers), 0); err != nil {
			r.log.Debug("emission telemetry failed", "error", err)
		}
	}
}
