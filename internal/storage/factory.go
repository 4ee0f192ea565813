package storage

import (
	"fmt"
	"log/slog"

	"github.com/mapmotion/mapmotion/internal/config"
	"github.com/mapmotion/mapmotion/internal/storage/memory"
	"github.com/mapmotion/mapmotion/internal/storage/postgresstore"
	"github.com/mapmotion/mapmotion/internal/storage/sqlitestore"
	"github.com/mapmotion/mapmotion/internal/storage/websocket"
)

// NewBackend creates a storage backend based on configuration.
func NewBackend(cfg config.StorageConfig, log *slog.Logger) (Backend, error) {
	switch cfg.Type {
	case "memory":
		return memory.New(cfg.Memory), nil
	case "sqlite":
		return sqlitestore.New(cfg.Sqlite, log)
	case "postgres":
		return postgresstore.New(log)
	case "websocket":
		return websocket.New(cfg.Websocket, log), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
