package detect

import (
	"github.com/autopeer-io/rover/internal/geo"
)

// PositionWindow keeps the most recent accepted positions and tells whether
// the rover has stopped making progress.
type PositionWindow struct {
	// Size is the number of positions kept.
	Size int
	// MinFixes is the number of positions required before Stuck may report true.
	MinFixes int
	// StuckDistance is the spread below which the rover counts as stationary.
	StuckDistance float64
	// OutlierDistance is the largest plausible move between two consecutive fixes.
	// Zero disables outlier handling.
	OutlierDistance float64

	points []geo.Point
	last   *geo.Point
}

// Add records a fix. A fix farther than OutlierDistance from the previous fix
// is a discontinuity: the history before the jump is discarded and the new fix
// starts a fresh window. It returns false when such a discontinuity occurred.
func (w *PositionWindow) Add(p geo.Point) bool {
	continuous := true
	if w.last != nil && w.OutlierDistance > 0 && geo.Distance(*w.last, p) > w.OutlierDistance {
		w.points = w.points[:0]
		continuous = false
	}

	prev := p
	w.last = &prev

	w.points = append(w.points, p)
	if w.Size > 0 && len(w.points) > w.Size {
		w.points = w.points[len(w.points)-w.Size:]
	}
	return continuous
}

// Len returns the number of positions held.
func (w *PositionWindow) Len() int { return len(w.points) }

// Points returns a copy of the held positions, oldest first.
func (w *PositionWindow) Points() []geo.Point {
	return append([]geo.Point(nil), w.points...)
}

// Spread returns the largest pairwise distance among the held positions.
func (w *PositionWindow) Spread() float64 {
	var spread float64
	for i := range w.points {
		for j := i + 1; j < len(w.points); j++ {
			if d := geo.Distance(w.points[i], w.points[j]); d > spread {
				spread = d
			}
		}
	}
	return spread
}

// Stuck reports whether enough positions are held and all lie within StuckDistance.
func (w *PositionWindow) Stuck() bool {
	need := w.MinFixes
	if need < 2 {
		need = 2
	}
	return len(w.points) >= need && w.Spread() < w.StuckDistance
}

// Heading returns the compass bearing of the most recent move longer than minMove.
func (w *PositionWindow) Heading(minMove float64) (float64, bool) {
	n := len(w.points)
	if n < 2 {
		return 0, false
	}
	latest := w.points[n-1]
	for i := n - 2; i >= 0; i-- {
		if geo.Distance(w.points[i], latest) >= minMove {
			return geo.Bearing(w.points[i], latest), true
		}
	}
	return 0, false
}

// Reset drops every position.
func (w *PositionWindow) Reset() {
	w.points = w.points[:0]
	w.last = nil
}
