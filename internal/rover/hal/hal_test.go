package hal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/autopeer-io/rover/internal/rover/sim"
)

func TestPinConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultPins().Validate())

	tests := []struct {
		name   string
		mutate func(*PinConfig)
		want   string
	}{
		{"off header", func(p *PinConfig) { p.Buzzer = 40 }, "not on the header"},
		{"shared", func(p *PinConfig) { p.Light = p.Buzzer }, "share GPIO 22"},
		{"servo without pwm", func(p *PinConfig) { p.Servo = 17 }, "no hardware PWM"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pins := DefaultPins()
			tt.mutate(&pins)
			err := pins.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestBridge(t *testing.T) {
	clk := testingclock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	b := NewBridge(clk, 2*time.Second, time.Second)

	_, ok := b.Position()
	assert.False(t, ok)
	assert.Nil(t, b.Frame())

	require.NoError(t, b.Handle(SensorGPS, []byte(`{"lat":40.1,"lon":-119.2,"alt":1200,"fix":true}`)))
	require.NoError(t, b.Handle(SensorIMU, []byte(`{"roll":1,"pitch":2,"yaw":-90,"rate":{"x":0,"y":0,"z":3}}`)))
	require.NoError(t, b.Handle(SensorPressure, []byte(`{"hpa":1009.5}`)))
	require.NoError(t, b.Handle(SensorEncoder, []byte(`{"left":120,"right":118}`)))
	require.NoError(t, b.Handle(SensorLight, []byte(`{"on":true}`)))
	require.NoError(t, b.Handle(SensorCamera, []byte(`{"seq":7,"width":320,"height":240,"paraRatio":0.01,"blob":{"cx":0.1,"area":0.2},"jpeg":"/9j/"}`)))

	fix, ok := b.Position()
	require.True(t, ok)
	assert.Equal(t, 40.1, fix.Lat)
	assert.Equal(t, -90.0, b.Attitude().Yaw)
	assert.Equal(t, 3.0, b.AngularRate().Z)
	assert.Equal(t, 1009.5, b.Pressure())
	l, r := b.Pulses()
	assert.Equal(t, uint64(120), l)
	assert.Equal(t, uint64(118), r)
	assert.True(t, b.Light())

	f := b.Frame()
	require.NotNil(t, f)
	assert.Equal(t, uint64(7), f.Seq)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, f.JPEG)
	require.NotNil(t, f.Blob)
	assert.Equal(t, 0.2, f.Blob.Area)

	clk.Step(1500 * time.Millisecond)
	assert.Nil(t, b.Frame(), "frame expired")
	_, ok = b.Position()
	assert.True(t, ok)

	clk.Step(time.Second)
	_, ok = b.Position()
	assert.False(t, ok, "fix expired")

	b.SetLightPin(func() bool { return false })
	assert.False(t, b.Light())
}

func TestBridgeRejectsBadReadings(t *testing.T) {
	b := NewBridge(testingclock.NewFakeClock(time.Now()), time.Second, time.Second)

	assert.ErrorContains(t, b.Handle("lidar", []byte(`{}`)), "unknown sensor kind")
	assert.ErrorContains(t, b.Handle(SensorGPS, []byte(`{"lat":`)), "decode gps")

	require.NoError(t, b.Handle(SensorGPS, []byte(`{"lat":1,"lon":2,"fix":false}`)))
	_, ok := b.Position()
	assert.False(t, ok, "receiver without a fix")
}

func TestMockClose(t *testing.T) {
	clk := testingclock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	world := sim.New(sim.DefaultConfig(), clk)
	h := NewMock("", world)

	assert.Equal(t, "rover-sim-001", h.RoverID())
	h.Buzzer().Set(true)
	h.Servo().Write(0.1)
	h.Motors().Drive(1, 1)

	require.NoError(t, h.Close())
	buzzer, radio, servo := world.Outputs()
	assert.False(t, buzzer)
	assert.False(t, radio)
	assert.Zero(t, servo)
}
