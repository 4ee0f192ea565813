// Package postgresstore records sessions into Postgres, with a local SQLite
// fallback when the server is unreachable so recordings are never lost.
package postgresstore

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/mapmotion/mapmotion/internal/database"
	"github.com/mapmotion/mapmotion/internal/storage/gormstore"
)

// Backend wraps the gorm recorder with a managed Postgres connection.
type Backend struct {
	*gormstore.Backend
	dbm *database.Manager
	log *slog.Logger
}

// New connects to Postgres (falling back to local SQLite) and returns a
// recording backend over that connection.
func New(log *slog.Logger) (*Backend, error) {
	if log == nil {
		log = slog.Default()
	}

	dbm := database.NewManager(zerolog.New(os.Stderr).With().Timestamp().Logger())
	if err := dbm.Connect(); err != nil {
		return nil, fmt.Errorf("database connect: %w", err)
	}
	if dbm.ShouldSaveLocal {
		dbm.SqliteFilePath = fmt.Sprintf("mapmotion_fallback_%s.db",
			time.Now().UTC().Format("20060102_150405"))
		log.Warn("postgres unreachable, recording to local sqlite",
			"path", dbm.SqliteFilePath)
	}

	return &Backend{
		Backend: gormstore.New(dbm.DB, log),
		dbm:     dbm,
		log:     log,
	}, nil
}

// ExportedFilePath returns the fallback SQLite path, or empty when the
// session was recorded to Postgres directly.
func (b *Backend) ExportedFilePath() string {
	if !b.dbm.ShouldSaveLocal {
		return ""
	}
	return b.dbm.SqliteFilePath
}

// Close dumps the fallback database to disk if one was used.
func (b *Backend) Close() error {
	if b.dbm.ShouldSaveLocal {
		if err := b.dbm.DumpMemoryToDisk(); err != nil {
			return fmt.Errorf("dumping fallback db: %w", err)
		}
	}
	if b.dbm.SqlDB != nil {
		if err := b.dbm.SqlDB.Close(); err != nil {
			return err
		}
	}
	return b.Backend.Close()
}
