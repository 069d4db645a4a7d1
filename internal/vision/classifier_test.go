package vision

import (
	"bytes"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/rover/internal/rover/core"
)

type fakeBuzzer struct{ periods []int }

func (b *fakeBuzzer) Start(period int) { b.periods = append(b.periods, period) }

func newClassifier(b Buzzer) *Classifier {
	return NewClassifier(DefaultConfig(), b, rand.New(rand.NewPCG(1, 2)))
}

func TestNilFrameDegradesGracefully(t *testing.T) {
	c := newClassifier(nil)

	assert.True(t, c.IsParaExist(nil), "assume the parachute is still there")
	assert.False(t, c.IsSky(nil))
	assert.False(t, c.IsWadachiExist(nil))
	_, ok := c.GoalBlob(nil)
	assert.False(t, ok)

	for i := 0; i < 20; i++ {
		dir := c.WadachiExiting(nil)
		assert.Contains(t, []int{-1, 1}, dir)
	}
}

func TestParaAndSky(t *testing.T) {
	c := newClassifier(nil)

	assert.True(t, c.IsParaExist(&core.Frame{ParaRatio: 0.2}))
	assert.False(t, c.IsParaExist(&core.Frame{ParaRatio: 0.01}))
	assert.True(t, c.IsSky(&core.Frame{SkyRatio: 0.9}))
	assert.False(t, c.IsSky(&core.Frame{SkyRatio: 0.89}))
}

func TestIsWadachiExist(t *testing.T) {
	b := &fakeBuzzer{}
	c := newClassifier(b)

	flat := make([]float64, 15)
	for i := range flat {
		flat[i] = 100
	}
	assert.False(t, c.IsWadachiExist(&core.Frame{StripEdges: flat}))
	assert.Empty(t, b.periods)

	rut := append([]float64(nil), flat...)
	rut[9] = 400 // dense strip followed by a sparse one
	rut[10] = 120
	assert.True(t, c.IsWadachiExist(&core.Frame{StripEdges: rut}))
	assert.Equal(t, []int{100}, b.periods, "a rut raises the buzzer")
}

func TestWadachiExiting(t *testing.T) {
	c := newClassifier(nil)
	horizon := []float64{100, 100, 100, 100, 100}

	left := &core.Frame{Height: 240, Horizon: horizon, ColumnEdges: []float64{10, 50, 50, 50, 90}}
	assert.Equal(t, -1, c.WadachiExiting(left))

	right := &core.Frame{Height: 240, Horizon: horizon, ColumnEdges: []float64{90, 50, 50, 50, 10}}
	assert.Equal(t, 1, c.WadachiExiting(right))

	tilted := &core.Frame{Height: 240, Horizon: []float64{20, 60, 100, 140, 200}, ColumnEdges: []float64{10, 50, 50, 50, 90}}
	assert.Equal(t, 0, c.WadachiExiting(tilted), "a horizon spread over the limit has no trusted side")
}

func TestWadachiExitingNormalisesByHeight(t *testing.T) {
	c := newClassifier(nil)
	// The left column sees twice the ground of the right, so its raw density is halved.
	f := &core.Frame{
		Height:      240,
		Horizon:     []float64{40, 90, 90, 90, 140},
		ColumnEdges: []float64{60, 50, 50, 50, 40},
	}
	assert.Equal(t, -1, c.WadachiExiting(f))
}

func TestImageTaskCommands(t *testing.T) {
	c := newClassifier(nil)
	task := NewTask(c, stubSensors{frame: &core.Frame{SkyRatio: 1}})

	var out bytes.Buffer
	require.True(t, task.Command(&out, []string{"image", "sky"}))
	assert.Equal(t, "sky: true\n", out.String())

	out.Reset()
	assert.False(t, task.Command(&out, []string{"image", "bogus"}))
	assert.Contains(t, out.String(), "image [predict/exit/sky/para]")

	out.Reset()
	assert.True(t, task.Command(&out, []string{"image"}))
	assert.Contains(t, out.String(), "image [predict/exit/sky/para]")
}

type stubSensors struct{ frame *core.Frame }

func (s stubSensors) Position() (core.Fix, bool) { return core.Fix{}, false }
func (s stubSensors) Attitude() core.Attitude    { return core.Attitude{} }
func (s stubSensors) AngularRate() core.Vector3  { return core.Vector3{} }
func (s stubSensors) Pressure() float64          { return 0 }
func (s stubSensors) Light() bool                { return false }
func (s stubSensors) Pulses() (uint64, uint64)   { return 0, 0 }
func (s stubSensors) Frame() *core.Frame         { return s.frame }
