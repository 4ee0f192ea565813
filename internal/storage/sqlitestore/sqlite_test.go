package sqlitestore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapmotion/mapmotion/internal/config"
	"github.com/mapmotion/mapmotion/pkg/core"
)

func TestBackend_DumpsToDiskOnClose(t *testing.T) {
	dumpPath := filepath.Join(t.TempDir(), "session.db")
	b, err := New(config.SqliteConfig{DumpPath: dumpPath}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())

	require.NoError(t, b.StartSession(core.SessionInfo{
		Name:      "convoy",
		StartedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Backend:   "timer",
		FrameRate: 60,
	}))

	em := core.Emission{
		Time:     time.Date(2026, 8, 1, 12, 0, 1, 0, time.UTC),
		Sequence: 1,
		Markers: []core.MarkerSnapshot{
			{ID: "alpha", Position: core.Position{X: 1, Y: 2}},
		},
	}
	require.NoError(t, b.RecordEmission(em))
	require.NoError(t, b.EndSession())
	require.NoError(t, b.Close())

	info, err := os.Stat(dumpPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestBackend_CloseWithoutDumpPath(t *testing.T) {
	b, err := New(config.SqliteConfig{}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	require.NoError(t, b.Close())
	// Close is idempotent.
	require.NoError(t, b.Close())
}
