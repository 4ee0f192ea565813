package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SessionExport is the root JSON structure written on EndSession.
type SessionExport struct {
	Name       string        `json:"name"`
	StartedAt  string        `json:"startedAt"`
	Backend    string        `json:"backend"`
	DurationMs int64         `json:"durationMs"`
	FrameRate  int           `json:"frameRate"`
	Emissions  uint64        `json:"emissions"`
	Markers    []MarkerTrack `json:"markers"`
}

// buildExport assembles the export document with markers ordered by id.
// Caller holds b.mu.
func (b *Backend) buildExport() SessionExport {
	markers := make([]MarkerTrack, 0, len(b.tracks))
	for _, t := range b.tracks {
		markers = append(markers, *t)
	}
	sort.Slice(markers, func(i, j int) bool { return markers[i].ID < markers[j].ID })

	return SessionExport{
		Name:       b.session.Name,
		StartedAt:  b.session.StartedAt.UTC().Format("2006-01-02T15:04:05Z"),
		Backend:    b.session.Backend,
		DurationMs: b.session.Duration.Milliseconds(),
		FrameRate:  b.session.FrameRate,
		Emissions:  b.emissions,
		Markers:    markers,
	}
}

// exportJSON writes the session data to a (optionally gzipped) JSON file.
// Caller holds b.mu.
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	name := strings.ReplaceAll(b.session.Name, " ", "_")
	name = strings.ReplaceAll(name, ":", "_")
	if name == "" {
		name = "session"
	}
	timestamp := b.session.StartedAt.Format("20060102_150405")

	var filename string
	if b.cfg.CompressOutput {
		filename = fmt.Sprintf("%s_%s.json.gz", name, timestamp)
	} else {
		filename = fmt.Sprintf("%s_%s.json", name, timestamp)
	}

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	path := filepath.Join(b.cfg.OutputDir, filename)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	defer f.Close()

	if b.cfg.CompressOutput {
		gz := gzip.NewWriter(f)
		if err := json.NewEncoder(gz).Encode(export); err != nil {
			gz.Close()
			return fmt.Errorf("encoding export: %w", err)
		}
		if err := gz.Close(); err != nil {
			return fmt.Errorf("closing gzip writer: %w", err)
		}
	} else {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		if err := enc.Encode(export); err != nil {
			return fmt.Errorf("encoding export: %w", err)
		}
	}

	b.exportedPath = path
	return nil
}
