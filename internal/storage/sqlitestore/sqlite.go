// Package sqlitestore records sessions into an in-memory SQLite database
// with periodic disk dumps via VACUUM INTO, so a crash loses at most one
// dump interval. It wraps the gormstore backend; the only SQLite-specific
// concerns are creating the in-memory DB and the dump loop.
package sqlitestore

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mapmotion/mapmotion/internal/config"
	"github.com/mapmotion/mapmotion/internal/database"
	"github.com/mapmotion/mapmotion/internal/storage/gormstore"
)

// Backend wraps the gorm recorder for SQLite-specific behavior.
type Backend struct {
	*gormstore.Backend
	dbm      *database.Manager
	cfg      config.SqliteConfig
	log      *slog.Logger
	stopChan chan struct{}
	stopOnce sync.Once
}

// New creates a new SQLite recording backend.
func New(cfg config.SqliteConfig, log *slog.Logger) (*Backend, error) {
	if log == nil {
		log = slog.Default()
	}

	dbm := database.NewManager(zerolog.Nop())
	db, err := dbm.GetSqliteDB("")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}
	dbm.DB = db
	dbm.SqliteFilePath = cfg.DumpPath

	return &Backend{
		Backend:  gormstore.New(db, log),
		dbm:      dbm,
		cfg:      cfg,
		log:      log,
		stopChan: make(chan struct{}),
	}, nil
}

// Init migrates the schema and starts the dump loop when configured.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}
	if b.cfg.DumpPath != "" && b.cfg.DumpIntervalMs > 0 {
		go b.dumpLoop()
	}
	return nil
}

// Close stops the dump loop and writes a final dump.
func (b *Backend) Close() error {
	b.stopOnce.Do(func() { close(b.stopChan) })
	if b.cfg.DumpPath != "" {
		if err := b.dbm.DumpMemoryToDisk(); err != nil {
			return fmt.Errorf("final dump: %w", err)
		}
	}
	return b.Backend.Close()
}

func (b *Backend) dumpLoop() {
	interval := time.Duration(b.cfg.DumpIntervalMs) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.dbm.DumpMemoryToDisk(); err != nil {
				b.log.Error("periodic sqlite dump failed", "error", err)
			}
		}
	}
}
