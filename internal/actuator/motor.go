package actuator

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/autopeer-io/rover/internal/geo"
	"github.com/autopeer-io/rover/internal/rover/core"
	"github.com/autopeer-io/rover/internal/scheduler"
	"github.com/autopeer-io/rover/pkg/log"
)

// MotorConfig shapes how the wheel powers follow their targets.
type MotorConfig struct {
	// Slew is the largest power change applied per update. Zero applies targets immediately.
	Slew float64 `json:"slew" mapstructure:"slew"`
}

// DefaultMotorConfig ramps from stop to full power in ten updates.
func DefaultMotorConfig() MotorConfig {
	return MotorConfig{Slew: 0.1}
}

// Motor drives the wheel pair toward the most recent target powers.
type Motor struct {
	scheduler.Base
	cfg    MotorConfig
	motors core.Motors
	log    log.Logger

	targetL, targetR float64
	outL, outR       float64
}

// NewMotor creates the motor task driving motors.
func NewMotor(cfg MotorConfig, motors core.Motors) *Motor {
	return &Motor{
		Base:   scheduler.NewBase("motor", scheduler.KindActuator, scheduler.PriorityActuator, 0),
		cfg:    cfg,
		motors: motors,
		log:    log.WithName("motor"),
	}
}

func (m *Motor) Init(time.Time) error {
	m.Brake()
	return nil
}

func (m *Motor) Clean() { m.Brake() }

func (m *Motor) Update(*scheduler.Tick) {
	l := step(m.outL, m.targetL, m.cfg.Slew)
	r := step(m.outR, m.targetR, m.cfg.Slew)
	if l == m.outL && r == m.outR {
		return
	}
	m.outL, m.outR = l, r
	m.motors.Drive(l, r)
}

// Drive sets the target wheel powers, each clamped to [-1, 1].
func (m *Motor) Drive(left, right float64) {
	m.targetL = geo.Clamp(left, -1, 1)
	m.targetR = geo.Clamp(right, -1, 1)
}

// Forward drives both wheels at power.
func (m *Motor) Forward(power float64) { m.Drive(power, power) }

// Backward drives both wheels in reverse at power.
func (m *Motor) Backward(power float64) { m.Drive(-power, -power) }

// Pivot turns in place, clockwise for dir > 0.
func (m *Motor) Pivot(dir int, power float64) {
	if dir > 0 {
		m.Drive(power, -power)
		return
	}
	m.Drive(-power, power)
}

// Stop ramps both wheels down to zero.
func (m *Motor) Stop() { m.Drive(0, 0) }

// Brake cuts both wheels immediately.
func (m *Motor) Brake() {
	m.targetL, m.targetR = 0, 0
	m.outL, m.outR = 0, 0
	m.motors.Drive(0, 0)
}

// Target returns the commanded powers.
func (m *Motor) Target() (left, right float64) { return m.targetL, m.targetR }

// Output returns the powers currently applied.
func (m *Motor) Output() (left, right float64) { return m.outL, m.outR }

// Idle reports whether no wheel is commanded or turning.
func (m *Motor) Idle() bool {
	return m.targetL == 0 && m.targetR == 0 && m.outL == 0 && m.outR == 0
}

func step(cur, target, slew float64) float64 {
	if slew <= 0 || math.Abs(target-cur) <= slew {
		return target
	}
	if target > cur {
		return cur + slew
	}
	return cur - slew
}

const motorUsage = `motor [left] [right]          : set wheel powers (-1 to 1)
motor forward|backward [power] : drive straight
motor left|right [power]       : pivot in place
motor stop                     : ramp down
motor brake                    : stop immediately`

func (m *Motor) Command(out io.Writer, args []string) bool {
	switch {
	case len(args) == 2 && args[1] == "stop":
		m.Stop()
	case len(args) == 2 && args[1] == "brake":
		m.Brake()
	case len(args) == 3 && isNumber(args[1]) && isNumber(args[2]):
		l, _ := strconv.ParseFloat(args[1], 64)
		r, _ := strconv.ParseFloat(args[2], 64)
		m.Drive(l, r)
	case len(args) == 2 || len(args) == 3:
		power := 1.0
		if len(args) == 3 {
			p, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				fmt.Fprintln(out, motorUsage)
				return false
			}
			power = p
		}
		switch args[1] {
		case "forward":
			m.Forward(power)
		case "backward":
			m.Backward(power)
		case "left":
			m.Pivot(-1, power)
		case "right":
			m.Pivot(1, power)
		default:
			fmt.Fprintln(out, motorUsage)
			return false
		}
	default:
		fmt.Fprintln(out, motorUsage)
		return len(args) < 2
	}
	fmt.Fprintln(out, "Command Executed!")
	return true
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
