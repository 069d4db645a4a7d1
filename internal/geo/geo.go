// Package geo holds the planar geometry used for navigation over the short
// distances a rover covers.
package geo

import (
	"math"

	"github.com/autopeer-io/rover/internal/rover/core"
)

const earthRadius = 6378137.0 // metres, WGS84 equatorial

// Point is a local position in metres: X east, Y north.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the planar distance between a and b.
func Distance(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// Project maps fix onto a plane tangent at ref (equirectangular).
func Project(ref, fix core.Fix) Point {
	lat0 := ref.Lat * math.Pi / 180
	return Point{
		X: (fix.Lon - ref.Lon) * math.Pi / 180 * earthRadius * math.Cos(lat0),
		Y: (fix.Lat - ref.Lat) * math.Pi / 180 * earthRadius,
	}
}

// Unproject is the inverse of Project.
func Unproject(ref core.Fix, p Point) core.Fix {
	lat0 := ref.Lat * math.Pi / 180
	return core.Fix{
		Lat: ref.Lat + p.Y/earthRadius*180/math.Pi,
		Lon: ref.Lon + p.X/(earthRadius*math.Cos(lat0))*180/math.Pi,
		Alt: ref.Alt,
	}
}

// Bearing returns the compass bearing from a to b in degrees [0, 360).
func Bearing(a, b Point) float64 {
	deg := math.Atan2(b.X-a.X, b.Y-a.Y) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}

// NormalizeAngle wraps deg into (-180, 180].
func NormalizeAngle(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg > 180 {
		deg -= 360
	} else if deg <= -180 {
		deg += 360
	}
	return deg
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
