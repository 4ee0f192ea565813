package engine

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mapmotion/mapmotion/pkg/curve"
)

// BackendKind selects the scheduling backend driving position recomputation.
type BackendKind string

const (
	// BackendFrame synchronizes ticks to the host's per-frame callback.
	BackendFrame BackendKind = "frame"
	// BackendTimer synchronizes ticks to a fixed-interval timer.
	BackendTimer BackendKind = "timer"
)

// Configuration violations. All are fatal: New refuses to build an engine
// from an invalid Config.
var (
	ErrUnknownBackend        = errors.New("unknown scheduling backend")
	ErrNegativeDuration      = errors.New("animation duration must not be negative")
	ErrFrameRateNotSupported = errors.New("frame rate can only be customized with the timer backend")
	ErrFrameRateOutOfRange   = errors.New("frame rate must be within [1,120]")
	ErrCurveNotSupported     = errors.New("the timer backend only supports the linear curve")
)

// DefaultFrameRate is the timer backend's tick rate when none is configured.
const DefaultFrameRate = 60

// Config holds the validated, immutable animation parameters.
//
// Zero values select defaults: frame backend, linear curve, and (for the
// timer backend) a 60 Hz tick rate. A zero Duration is legal and means
// markers snap to their target on the next tick.
type Config struct {
	Backend   BackendKind   `json:"backend" validate:"omitempty,oneof=frame timer"`
	Duration  time.Duration `json:"duration" validate:"min=0"`
	Curve     curve.Curve   `json:"-" validate:"-"`
	FrameRate int           `json:"frameRate" validate:"omitempty,min=1,max=120"`
}

var validate = validator.New()

// Validate enforces the configuration invariants. The frame backend is
// pinned to the host's native frame cadence and rejects an explicit frame
// rate; the timer backend rejects non-linear curves and frame rates
// outside [1,120].
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			switch verrs[0].StructField() {
			case "Backend":
				return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
			case "Duration":
				return fmt.Errorf("%w: %s", ErrNegativeDuration, c.Duration)
			case "FrameRate":
				return fmt.Errorf("%w: got %d", ErrFrameRateOutOfRange, c.FrameRate)
			}
		}
		return err
	}

	switch c.kind() {
	case BackendFrame:
		if c.FrameRate != 0 {
			return fmt.Errorf("%w: got %d", ErrFrameRateNotSupported, c.FrameRate)
		}
	case BackendTimer:
		if !curve.IsLinear(c.Curve) {
			return ErrCurveNotSupported
		}
	}
	return nil
}

// kind resolves the backend selector, defaulting to frame-driven.
func (c Config) kind() BackendKind {
	if c.Backend == "" {
		return BackendFrame
	}
	return c.Backend
}

// frameRate resolves the timer tick rate, defaulting to DefaultFrameRate.
func (c Config) frameRate() int {
	if c.FrameRate == 0 {
		return DefaultFrameRate
	}
	return c.FrameRate
}

// tickInterval converts a frame rate to the timer backend's repeat
// interval, rounding 1000/rate to whole milliseconds.
func tickInterval(frameRate int) time.Duration {
	return time.Duration(math.Round(1000/float64(frameRate))) * time.Millisecond
}
