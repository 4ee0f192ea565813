// Package scenario loads replay scripts: JSON files describing timed marker
// sets to feed the engine. Positions are "x,y" strings so files stay
// hand-editable.
package scenario

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mapmotion/mapmotion/internal/geo"
	"github.com/mapmotion/mapmotion/pkg/core"
)

var validate = validator.New()

// Marker is one marker entry in a step.
type Marker struct {
	ID       string             `json:"id" validate:"required"`
	Position string             `json:"position" validate:"required"`
	Payload  core.MarkerPayload `json:"payload"`
}

// Step is a full marker set applied at AtMs milliseconds into the replay.
type Step struct {
	AtMs    int      `json:"atMs" validate:"min=0"`
	Markers []Marker `json:"markers" validate:"dive"`
}

// Scenario is a named sequence of steps.
type Scenario struct {
	Name  string `json:"name" validate:"required"`
	Steps []Step `json:"steps" validate:"required,min=1,dive"`
}

// At returns the step's offset from replay start.
func (s Step) At() time.Duration {
	return time.Duration(s.AtMs) * time.Millisecond
}

// Snapshots converts the step's markers into engine input.
func (s Step) Snapshots() ([]core.MarkerSnapshot, error) {
	out := make([]core.MarkerSnapshot, 0, len(s.Markers))
	for _, m := range s.Markers {
		pos, err := geo.PositionFromString(m.Position)
		if err != nil {
			return nil, fmt.Errorf("marker %q: %w", m.ID, err)
		}
		out = append(out, core.MarkerSnapshot{
			ID:       m.ID,
			Position: pos,
			Payload:  m.Payload,
		})
	}
	return out, nil
}

// Load reads and validates a scenario file. Steps are returned sorted by
// offset so callers can replay them in order.
func Load(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}

	var s Scenario
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if err := validate.Struct(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	// Positions must parse up front, not halfway through a replay.
	for i, step := range s.Steps {
		if _, err := step.Snapshots(); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	sort.SliceStable(s.Steps, func(i, j int) bool {
		return s.Steps[i].AtMs < s.Steps[j].AtMs
	})
	return &s, nil
}
