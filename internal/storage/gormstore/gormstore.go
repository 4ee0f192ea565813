// Package gormstore records sessions through gorm. It is dialect-agnostic:
// the sqlitestore and postgresstore packages wrap it with their
// connections. Marker rows are created lazily on first appearance and
// cached by name so the per-emission path never reads the database.
package gormstore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/mapmotion/mapmotion/internal/geo"
	"github.com/mapmotion/mapmotion/internal/model"
	"github.com/mapmotion/mapmotion/pkg/core"
)

// markerIDCache maps marker names to their database IDs for the current
// session. Latency on the emission path is critical, so registration hits
// the cache before the database.
type markerIDCache struct {
	mu  sync.RWMutex
	ids map[string]uint
}

func newMarkerIDCache() *markerIDCache {
	return &markerIDCache{ids: make(map[string]uint)}
}

func (c *markerIDCache) get(name string) (uint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.ids[name]
	return id, ok
}

func (c *markerIDCache) set(name string, id uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids[name] = id
}

func (c *markerIDCache) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = make(map[string]uint)
}

// Backend records sessions into a gorm-managed database.
type Backend struct {
	db      *gorm.DB
	log     *slog.Logger
	markers *markerIDCache

	mu      sync.Mutex
	session *model.Session
}

// New creates a gorm recorder over an open connection.
func New(db *gorm.DB, log *slog.Logger) *Backend {
	if log == nil {
		log = slog.Default()
	}
	return &Backend{
		db:      db,
		log:     log,
		markers: newMarkerIDCache(),
	}
}

// Init migrates the schema.
func (b *Backend) Init() error {
	if b.db == nil {
		return fmt.Errorf("gormstore: no database connection")
	}
	if err := b.db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

// Close is a no-op; the connection owner closes it.
func (b *Backend) Close() error {
	return nil
}

// StartSession inserts the session row and resets the marker cache.
func (b *Backend) StartSession(info core.SessionInfo) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	session := &model.Session{
		Name:       info.Name,
		StartedAt:  info.StartedAt,
		Backend:    info.Backend,
		DurationMs: info.Duration.Milliseconds(),
		FrameRate:  info.FrameRate,
	}
	if err := b.db.Create(session).Error; err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	b.session = session
	b.markers.reset()
	b.log.Info("recording session started", "session", session.ID, "name", info.Name)
	return nil
}

// EndSession stamps the session end time.
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return nil
	}
	err := b.db.Model(b.session).Update("ended_at", gorm.Expr("CURRENT_TIMESTAMP")).Error
	b.session = nil
	if err != nil {
		return fmt.Errorf("ending session: %w", err)
	}
	return nil
}

// RecordEmission inserts one frame row per marker in the emission.
func (b *Backend) RecordEmission(e core.Emission) error {
	b.mu.Lock()
	session := b.session
	b.mu.Unlock()
	if session == nil {
		return fmt.Errorf("gormstore: no session in progress")
	}

	frames := make([]model.MarkerFrame, 0, len(e.Markers))
	for _, m := range e.Markers {
		markerID, err := b.registerMarker(session.ID, m.ID, e)
		if err != nil {
			return err
		}

		payload, err := json.Marshal(m.Payload)
		if err != nil {
			return fmt.Errorf("marshaling payload for %q: %w", m.ID, err)
		}

		frames = append(frames, model.MarkerFrame{
			SessionID: session.ID,
			MarkerID:  markerID,
			Time:      e.Time,
			Sequence:  e.Sequence,
			X:         m.Position.X,
			Y:         m.Position.Y,
			Position:  geo.MarshalWKB(m.Position),
			Payload:   datatypes.JSON(payload),
		})
	}

	if len(frames) == 0 {
		return nil
	}
	if err := b.db.Create(&frames).Error; err != nil {
		return fmt.Errorf("inserting %d marker frames: %w", len(frames), err)
	}
	return nil
}

// registerMarker returns the database ID for a marker name, inserting the
// row on first appearance.
func (b *Backend) registerMarker(sessionID uint, name string, e core.Emission) (uint, error) {
	if id, ok := b.markers.get(name); ok {
		return id, nil
	}

	row := &model.Marker{
		SessionID: sessionID,
		Name:      name,
		FirstSeen: e.Time,
	}
	if err := b.db.Create(row).Error; err != nil {
		return 0, fmt.Errorf("registering marker %q: %w", name, err)
	}
	b.markers.set(name, row.ID)
	return row.ID, nil
}
