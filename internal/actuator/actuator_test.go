package actuator

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSwitch struct {
	on      bool
	changes int
}

func (s *fakeSwitch) Set(on bool) {
	if s.on != on {
		s.changes++
	}
	s.on = on
}

type fakePWM struct{ duty []float64 }

func (p *fakePWM) Write(d float64) { p.duty = append(p.duty, d) }

type fakeMotors struct{ l, r float64 }

func (m *fakeMotors) Drive(l, r float64) { m.l, m.r = l, r }

func TestBuzzerSingleBeep(t *testing.T) {
	pin := &fakeSwitch{}
	b := NewBuzzer(pin)
	require.NoError(t, b.Init(testTime))

	b.Start(3)
	assert.True(t, pin.on)

	b.Update(nil) // 3 -> 2
	b.Update(nil) // 2 -> 1
	assert.True(t, pin.on)
	b.Update(nil) // 1 -> stop
	assert.False(t, pin.on)
	assert.False(t, b.Busy())
}

func TestBuzzerCycles(t *testing.T) {
	pin := &fakeSwitch{}
	b := NewBuzzer(pin)
	require.NoError(t, b.Init(testTime))

	b.StartCycles(2, 3, 2)
	var trace []bool
	for i := 0; i < 8; i++ {
		b.Update(nil)
		trace = append(trace, pin.on)
	}

	assert.Equal(t, []bool{true, false, false, false, true, false, false, false}, trace)
	assert.False(t, b.Busy())
	assert.Equal(t, 4, pin.changes)
}

func TestBuzzerIgnoresInvalidOrOverlappingStart(t *testing.T) {
	pin := &fakeSwitch{}
	b := NewBuzzer(pin)

	b.Start(1)
	assert.False(t, pin.on, "period must exceed one update")
	b.StartCycles(10, 1, 1)
	assert.False(t, pin.on)
	b.StartCycles(10, 10, 0)
	assert.False(t, pin.on)

	b.Start(5)
	b.Start(50)
	assert.Equal(t, 5, b.onPeriod, "a running beep is not replaced")
}

func TestBuzzerCommand(t *testing.T) {
	pin := &fakeSwitch{}
	b := NewBuzzer(pin)

	tests := []struct {
		args    []string
		handled bool
		on      bool
	}{
		{[]string{"buzzer"}, true, false},
		{[]string{"buzzer", "loud"}, false, false},
		{[]string{"buzzer", "100"}, true, true},
		{[]string{"buzzer", "stop"}, true, false},
		{[]string{"buzzer", "100", "3"}, true, true},
		{[]string{"buzzer", "stop"}, true, false},
		{[]string{"buzzer", "1", "2", "3", "4"}, false, false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		assert.Equal(t, tt.handled, b.Command(&out, tt.args), "%v", tt.args)
		assert.Equal(t, tt.on, pin.on, "%v", tt.args)
		assert.NotEmpty(t, out.String())
	}
	assert.Equal(t, DefaultOffPeriod, b.offPeriod, "stopping a counted beep schedules the next one")
}

func TestServoClampsAngle(t *testing.T) {
	pwm := &fakePWM{}
	s := NewServo(DefaultServoConfig(), pwm)

	s.Start(2)
	s.Start(-1)
	s.Start(0.5)
	s.Stop()
	require.Len(t, pwm.duty, 4)
	assert.InDelta(t, 0.10, pwm.duty[0], 1e-9)
	assert.InDelta(t, 0.05, pwm.duty[1], 1e-9)
	assert.InDelta(t, 0.075, pwm.duty[2], 1e-9)
	assert.Zero(t, pwm.duty[3])

	var out bytes.Buffer
	assert.True(t, s.Command(&out, []string{"servo", "0.25"}))
	angle, holding := s.Angle()
	assert.InDelta(t, 0.25, angle, 1e-9)
	assert.True(t, holding)
	assert.False(t, s.Command(&out, []string{"servo", "wide"}))
}

func TestXBeeSleep(t *testing.T) {
	pin := &fakeSwitch{}
	x := NewXBeeSleep(pin)

	var out bytes.Buffer
	assert.True(t, x.Command(&out, []string{"xbee", "sleep"}))
	assert.True(t, pin.on)
	assert.True(t, x.Command(&out, []string{"xbee", "wake"}))
	assert.False(t, pin.on)
	assert.False(t, x.Command(&out, []string{"xbee", "nap"}))

	x.SetState(true)
	x.Clean()
	assert.False(t, x.Asleep(), "cleanup leaves the radio awake")
}

func TestMotorSlew(t *testing.T) {
	hw := &fakeMotors{}
	m := NewMotor(MotorConfig{Slew: 0.25}, hw)
	require.NoError(t, m.Init(testTime))

	m.Forward(0.6)
	m.Update(nil)
	assert.InDelta(t, 0.25, hw.l, 1e-9)
	m.Update(nil)
	assert.InDelta(t, 0.5, hw.l, 1e-9)
	m.Update(nil)
	assert.InDelta(t, 0.6, hw.l, 1e-9)
	assert.InDelta(t, 0.6, hw.r, 1e-9)

	m.Brake()
	assert.Zero(t, hw.l)
	assert.True(t, m.Idle())
}

func TestMotorCommand(t *testing.T) {
	hw := &fakeMotors{}
	m := NewMotor(MotorConfig{}, hw)

	var out bytes.Buffer
	assert.True(t, m.Command(&out, []string{"motor", "0.5", "-2"}))
	l, r := m.Target()
	assert.Equal(t, 0.5, l)
	assert.Equal(t, -1.0, r)

	assert.True(t, m.Command(&out, []string{"motor", "right", "0.4"}))
	l, r = m.Target()
	assert.Equal(t, 0.4, l)
	assert.Equal(t, -0.4, r)

	assert.True(t, m.Command(&out, []string{"motor", "stop"}))
	assert.False(t, m.Command(&out, []string{"motor", "sideways"}))
	assert.True(t, m.Command(&out, []string{"motor"}))
}
