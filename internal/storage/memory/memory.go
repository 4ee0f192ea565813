// Package memory records a session in memory and exports it to a JSON
// file (optionally gzipped) when the session ends.
package memory

import (
	"errors"
	"sync"

	"github.com/mapmotion/mapmotion/internal/config"
	"github.com/mapmotion/mapmotion/pkg/core"
)

// MarkerTrack groups one marker's recorded positions over the session.
type MarkerTrack struct {
	ID        string             `json:"id"`
	FirstSeen uint64             `json:"firstSeen"` // sequence of first appearance
	LastSeen  uint64             `json:"lastSeen"`
	Payload   core.MarkerPayload `json:"payload"`   // latest payload
	Positions [][3]float64       `json:"positions"` // [sequence, x, y]
}

// Backend stores session data in memory and exports to JSON.
type Backend struct {
	cfg     config.MemoryConfig
	session core.SessionInfo
	started bool

	tracks    map[string]*MarkerTrack
	emissions uint64

	exportedPath string
	mu           sync.Mutex
}

// New creates a new memory backend.
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:    cfg,
		tracks: make(map[string]*MarkerTrack),
	}
}

// Init initializes the backend.
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources.
func (b *Backend) Close() error {
	return nil
}

// StartSession begins recording a new session.
func (b *Backend) StartSession(info core.SessionInfo) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.session = info
	b.started = true
	b.tracks = make(map[string]*MarkerTrack)
	b.emissions = 0
	return nil
}

// RecordEmission appends one rendered marker set to the per-marker tracks.
func (b *Backend) RecordEmission(e core.Emission) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.started {
		return errors.New("memory: no session in progress")
	}
	for _, m := range e.Markers {
		track, ok := b.tracks[m.ID]
		if !ok {
			track = &MarkerTrack{ID: m.ID, FirstSeen: e.Sequence}
			b.tracks[m.ID] = track
		}
		track.LastSeen = e.Sequence
		track.Payload = m.Payload
		track.Positions = append(track.Positions, [3]float64{float64(e.Sequence), m.Position.X, m.Position.Y})
	}
	b.emissions++
	return nil
}

// EndSession exports the recorded data to disk.
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.started {
		return nil
	}
	b.started = false
	return b.exportJSON()
}

// ExportedFilePath returns the path written by the last EndSession.
func (b *Backend) ExportedFilePath() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exportedPath
}

// EmissionCount returns the number of emissions recorded so far.
func (b *Backend) EmissionCount() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.emissions
}
