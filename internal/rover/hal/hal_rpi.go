//go:build linux

package hal

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/stianeikeland/go-rpio/v4"

	"github.com/autopeer-io/rover/internal/rover/core"
	"github.com/autopeer-io/rover/pkg/log"
)

const (
	// servoCycle is the PWM resolution of one 50 Hz servo period.
	servoCycle = 400
	servoFreq  = 50

	// motorSlots is the resolution of one software PWM frame.
	motorSlots = 20
	motorSlot  = time.Millisecond
)

var _ core.HAL = (*RPi)(nil)

// RPi drives the airframe through the Raspberry Pi GPIO header. The light
// sensor is read from a pin; every other sensor arrives over the bridge.
type RPi struct {
	id     string
	bridge *Bridge

	buzzer rpio.Pin
	xbee   rpio.Pin
	servo  rpio.Pin
	motors *softMotors

	cancel context.CancelFunc
	done   chan struct{}
}

// NewRPi claims the GPIO lines and leaves every output off.
func NewRPi(id string, pins PinConfig, bridge *Bridge) (core.HAL, error) {
	if err := pins.Validate(); err != nil {
		return nil, err
	}
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open gpio: %w", err)
	}

	h := &RPi{
		id:     id,
		bridge: bridge,
		buzzer: output(pins.Buzzer),
		xbee:   output(pins.XBeeSleep),
		servo:  rpio.Pin(pins.Servo),
		motors: &softMotors{
			pins: [2][2]rpio.Pin{
				{output(pins.LeftForward), output(pins.LeftBackward)},
				{output(pins.RightForward), output(pins.RightBackward)},
			},
		},
		done: make(chan struct{}),
	}

	light := rpio.Pin(pins.Light)
	light.Input()
	light.PullDown()
	bridge.SetLightPin(func() bool { return light.Read() == rpio.High })

	h.servo.Mode(rpio.Pwm)
	h.servo.Freq(servoFreq * servoCycle)
	h.servo.DutyCycle(0, servoCycle)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() {
		defer close(h.done)
		h.motors.run(ctx)
	}()

	log.Info("GPIO claimed", "rover", id, "servo", pins.Servo, "light", pins.Light)
	return h, nil
}

func output(n int) rpio.Pin {
	p := rpio.Pin(n)
	p.Output()
	p.Low()
	return p
}

func (h *RPi) RoverID() string         { return h.id }
func (h *RPi) Sensors() core.Sensors   { return h.bridge }
func (h *RPi) Buzzer() core.Switch     { return pinSwitch(h.buzzer) }
func (h *RPi) RadioSleep() core.Switch { return pinSwitch(h.xbee) }
func (h *RPi) Servo() core.PWM         { return servoPWM(h.servo) }
func (h *RPi) Motors() core.Motors     { return h.motors }

// Close stops the outputs and releases the GPIO memory.
func (h *RPi) Close() error {
	h.cancel()
	<-h.done
	h.motors.stop()
	h.buzzer.Low()
	h.xbee.Low()
	h.servo.DutyCycle(0, servoCycle)
	return rpio.Close()
}

type pinSwitch rpio.Pin

func (p pinSwitch) Set(on bool) {
	if on {
		rpio.Pin(p).High()
		return
	}
	rpio.Pin(p).Low()
}

type servoPWM rpio.Pin

func (p servoPWM) Write(duty float64) {
	duty = math.Max(0, math.Min(1, duty))
	rpio.Pin(p).DutyCycle(uint32(math.Round(duty*servoCycle)), servoCycle)
}

// softMotors drives each wheel with a forward and a backward line, pulsing the
// active one in software.
type softMotors struct {
	pins [2][2]rpio.Pin

	mu   sync.Mutex
	duty [2]float64
}

func (m *softMotors) Drive(left, right float64) {
	m.mu.Lock()
	m.duty = [2]float64{left, right}
	m.mu.Unlock()
}

func (m *softMotors) run(ctx context.Context) {
	ticker := time.NewTicker(motorSlot)
	defer ticker.Stop()

	for slot := 0; ; slot = (slot + 1) % motorSlots {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		m.mu.Lock()
		duty := m.duty
		m.mu.Unlock()

		for i, d := range duty {
			fwd, back := m.pins[i][0], m.pins[i][1]
			on := slot < int(math.Round(math.Abs(d)*motorSlots))
			switch {
			case on && d > 0:
				back.Low()
				fwd.High()
			case on && d < 0:
				fwd.Low()
				back.High()
			default:
				fwd.Low()
				back.Low()
			}
		}
	}
}

func (m *softMotors) stop() {
	for _, wheel := range m.pins {
		wheel[0].Low()
		wheel[1].Low()
	}
}
