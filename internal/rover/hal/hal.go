// Package hal provides the core.HAL implementations: the Raspberry Pi
// airframe and a mock backed by the simulated world.
package hal

import (
	"fmt"
)

// HAL kinds selectable with --rover.hal.
const (
	KindMock = "mock"
	KindRPi  = "rpi"
)

// PinConfig maps the rover lines onto BCM GPIO numbers.
type PinConfig struct {
	Buzzer    int `json:"buzzer" mapstructure:"buzzer"`
	XBeeSleep int `json:"xbee-sleep" mapstructure:"xbee-sleep"`
	Light     int `json:"light" mapstructure:"light"`
	// Servo must be a hardware PWM capable pin.
	Servo int `json:"servo" mapstructure:"servo"`

	LeftForward   int `json:"left-forward" mapstructure:"left-forward"`
	LeftBackward  int `json:"left-backward" mapstructure:"left-backward"`
	RightForward  int `json:"right-forward" mapstructure:"right-forward"`
	RightBackward int `json:"right-backward" mapstructure:"right-backward"`
}

// DefaultPins returns the wiring of the flight board.
func DefaultPins() PinConfig {
	return PinConfig{
		Buzzer:        22,
		XBeeSleep:     27,
		Light:         4,
		Servo:         18,
		LeftForward:   5,
		LeftBackward:  6,
		RightForward:  20,
		RightBackward: 21,
	}
}

// Validate rejects pins outside the header and lines wired twice.
func (p PinConfig) Validate() error {
	seen := make(map[int]string)
	for name, pin := range map[string]int{
		"buzzer": p.Buzzer, "xbee-sleep": p.XBeeSleep, "light": p.Light, "servo": p.Servo,
		"left-forward": p.LeftForward, "left-backward": p.LeftBackward,
		"right-forward": p.RightForward, "right-backward": p.RightBackward,
	} {
		if pin < 2 || pin > 27 {
			return fmt.Errorf("pin %s: GPIO %d is not on the header", name, pin)
		}
		if other, ok := seen[pin]; ok {
			return fmt.Errorf("pins %s and %s share GPIO %d", other, name, pin)
		}
		seen[pin] = name
	}
	switch p.Servo {
	case 12, 13, 18, 19:
	default:
		return fmt.Errorf("pin servo: GPIO %d has no hardware PWM", p.Servo)
	}
	return nil
}
