package core

import (
	"fmt"
	"math"
)

// Position is a 2D map coordinate. For geographic markers X is longitude
// and Y is latitude, but the engine itself treats both axes as plain
// floating-point values.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Lerp linearly interpolates between a and b. t=0 yields a, t=1 yields b.
// t is not clamped; callers clamp the animation fraction before easing.
func Lerp(a, b Position, t float64) Position {
	return Position{
		X: a.X + (b.X-a.X)*t,
		Y: a.Y + (b.Y-a.Y)*t,
	}
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Position) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

func (p Position) String() string {
	return fmt.Sprintf("%g,%g", p.X, p.Y)
}
