// Package geo converts between the engine's plain 2D positions and the
// geometry representations the recording backends persist. Positions are
// stored as EPSG:3857 points in WKB so the SQLite recorder, which has no
// spatial awareness, can still round-trip them byte for byte.
package geo

import (
	"errors"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"

	"github.com/mapmotion/mapmotion/pkg/core"
)

// ErrInvalidCoordinates is returned when a coordinate string cannot be parsed.
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// PositionFromString parses an "x,y" string into a core.Position. Scenario
// files and external feeds supply positions in this form.
func PositionFromString(coords string) (core.Position, error) {
	parts := strings.Split(coords, ",")
	if len(parts) != 2 {
		return core.Position{}, ErrInvalidCoordinates
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return core.Position{}, ErrInvalidCoordinates
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return core.Position{}, ErrInvalidCoordinates
	}
	return core.Position{X: x, Y: y}, nil
}

// Point3857 projects a position (longitude X, latitude Y, EPSG:4326) to a
// web-mercator point.
func Point3857(p core.Position) geom.Point {
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ := f(p.X, p.Y, 0)
	// A plain XY point cannot fail validation.
	pt, _ := geom.NewPoint(geom.Coordinates{
		XY: geom.XY{X: x, Y: y},
	})
	return pt
}

// MarshalWKB encodes a position as a WKB point in EPSG:3857.
func MarshalWKB(p core.Position) []byte {
	return Point3857(p).AsBinary()
}
