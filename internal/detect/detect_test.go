package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/autopeer-io/rover/internal/geo"
)

func TestDebounceFiresOnceAtThreshold(t *testing.T) {
	d := NewDebounce(3)
	inputs := []bool{true, true, false, true, true, true, true, true}
	want := []bool{false, false, false, false, false, true, false, false}

	for i, in := range inputs {
		assert.Equal(t, want[i], d.Observe(in), "observation %d", i)
	}
	assert.True(t, d.Reached())

	d.Observe(false)
	assert.Zero(t, d.Count())
}

func TestDebounceThresholdFloor(t *testing.T) {
	d := NewDebounce(0)
	assert.True(t, d.Observe(true))
}

func TestPositionWindowStationary(t *testing.T) {
	w := &PositionWindow{Size: 4, MinFixes: 3, StuckDistance: 1.0, OutlierDistance: 3.0}
	for _, p := range []geo.Point{{X: 0}, {X: 0.2}, {X: 0.3}, {X: 0.4}} {
		assert.True(t, w.Add(p))
	}

	assert.Equal(t, 4, w.Len())
	assert.InDelta(t, 0.4, w.Spread(), 1e-9)
	assert.True(t, w.Stuck())
}

func TestPositionWindowRejectsJump(t *testing.T) {
	w := &PositionWindow{Size: 4, MinFixes: 3, StuckDistance: 1.0, OutlierDistance: 3.0}

	assert.True(t, w.Add(geo.Point{X: 0}))
	assert.False(t, w.Add(geo.Point{X: 5}), "a 5 m jump is a discontinuity")
	assert.True(t, w.Add(geo.Point{X: 5.1}))
	assert.True(t, w.Add(geo.Point{X: 5.2}))

	assert.Equal(t, 3, w.Len())
	assert.InDelta(t, 0.2, w.Spread(), 1e-9)
	assert.True(t, w.Stuck())
}

func TestPositionWindowMoving(t *testing.T) {
	w := &PositionWindow{Size: 4, MinFixes: 3, StuckDistance: 1.0, OutlierDistance: 3.0}
	for _, p := range []geo.Point{{Y: 0}, {Y: 1}, {Y: 2}, {Y: 3}, {Y: 4}} {
		w.Add(p)
	}

	assert.Equal(t, 4, w.Len())
	assert.False(t, w.Stuck())

	heading, ok := w.Heading(0.5)
	assert.True(t, ok)
	assert.InDelta(t, 0, heading, 1e-9)
}

func TestPositionWindowNeedsMinFixes(t *testing.T) {
	w := &PositionWindow{Size: 4, MinFixes: 3, StuckDistance: 1.0}
	w.Add(geo.Point{})
	w.Add(geo.Point{})
	assert.False(t, w.Stuck())
	w.Add(geo.Point{})
	assert.True(t, w.Stuck())

	w.Reset()
	assert.Zero(t, w.Len())
	_, ok := w.Heading(0.1)
	assert.False(t, ok)
}

func TestPulseWatch(t *testing.T) {
	p := &PulseWatch{Threshold: 10}

	_, _, stalled := p.Observe(100, 100)
	assert.False(t, stalled, "first observation only primes")

	dl, dr, stalled := p.Observe(150, 140)
	assert.Equal(t, uint64(50), dl)
	assert.Equal(t, uint64(40), dr)
	assert.False(t, stalled)

	_, _, stalled = p.Observe(152, 145)
	assert.True(t, stalled)

	dl, _, _ = p.Observe(3, 150)
	assert.Equal(t, uint64(3), dl, "counter reset counts from zero")
}
