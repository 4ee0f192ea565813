// Package curve provides easing functions for position animation.
// A Curve maps an animation fraction in [0,1] to an eased fraction in
// [0,1] and is monotonic by convention. Curves are plain function values
// so callers can inject their own without implementing an interface.
package curve

import (
	"fmt"
	"reflect"
)

// Curve is a pure easing function, fraction in -> fraction out.
type Curve func(t float64) float64

// Linear is the identity curve. It is the only curve the timer-driven
// backend accepts.
func Linear(t float64) float64 { return t }

// EaseIn starts slow and accelerates.
func EaseIn(t float64) float64 { return t * t }

// EaseOut starts fast and decelerates.
func EaseOut(t float64) float64 { return t * (2 - t) }

// EaseInOut accelerates through the first half and decelerates through
// the second.
func EaseInOut(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	return -1 + (4-2*t)*t
}

// IsLinear reports whether c is nil (the default) or the package Linear
// function. A user-supplied function that happens to be the identity is
// not recognized; backends that require linearity require curve.Linear
// itself.
func IsLinear(c Curve) bool {
	if c == nil {
		return true
	}
	return reflect.ValueOf(c).Pointer() == reflect.ValueOf(Curve(Linear)).Pointer()
}

// ByName resolves a curve from its configuration name.
func ByName(name string) (Curve, error) {
	switch name {
	case "", "linear":
		return Linear, nil
	case "easeIn":
		return EaseIn, nil
	case "easeOut":
		return EaseOut, nil
	case "easeInOut":
		return EaseInOut, nil
	default:
		return nil, fmt.Errorf("unknown curve: %q", name)
	}
}

// Clamp bounds t to [0,1].
func Clamp(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
