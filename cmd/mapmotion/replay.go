package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/mapmotion/mapmotion/internal/engine"
	"github.com/mapmotion/mapmotion/internal/scenario"
)

// settlePoll is how often replay checks for animation completion after the
// last step has been applied.
const settlePoll = 50 * time.Millisecond

// replay applies scenario steps at their offsets, then waits for all
// animations to settle. A cancelled context stops the replay between steps.
func replay(ctx context.Context, log *slog.Logger, eng *engine.Engine, sc *scenario.Scenario) error {
	start := time.Now()

	for i, step := range sc.Steps {
		wait := step.At() - time.Since(start)
		if wait > 0 {
			select {
			case <-ctx.Done():
				log.Info("replay interrupted", "step", i)
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		snaps, err := step.Snapshots()
		if err != nil {
			return err
		}
		eng.SetMarkers(snaps)
		log.Debug("step applied", "step", i, "offset", step.At(), "markers", len(snaps))
	}

	// Let the final animations run to completion.
	for eng.ActiveAnimations() > 0 {
		select {
		case <-ctx.Done():
			log.Info("replay interrupted while settling")
			return ctx.Err()
		case <-time.After(settlePoll):
		}
	}

	log.Info("replay complete", "elapsed", time.Since(start))
	return nil
}
