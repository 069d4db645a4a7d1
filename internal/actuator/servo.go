package actuator

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/autopeer-io/rover/internal/geo"
	"github.com/autopeer-io/rover/internal/rover/core"
	"github.com/autopeer-io/rover/internal/scheduler"
	"github.com/autopeer-io/rover/pkg/log"
)

// ServoConfig maps a [0, 1] angle onto a PWM duty.
type ServoConfig struct {
	// BaseDuty is the duty for angle 0.
	BaseDuty float64 `json:"base-duty" mapstructure:"base-duty"`
	// RangeDuty is added to BaseDuty at angle 1.
	RangeDuty float64 `json:"range-duty" mapstructure:"range-duty"`
}

// DefaultServoConfig is a 1-2 ms pulse at 50 Hz.
func DefaultServoConfig() ServoConfig {
	return ServoConfig{BaseDuty: 0.05, RangeDuty: 0.05}
}

// Servo positions the separation servo. It is never updated; callers set it directly.
type Servo struct {
	scheduler.Base
	cfg ServoConfig
	pwm core.PWM
	log log.Logger

	angle   float64
	holding bool
}

// NewServo creates the servo task driving pwm.
func NewServo(cfg ServoConfig, pwm core.PWM) *Servo {
	return &Servo{
		Base: scheduler.NewBase("servo", scheduler.KindActuator, scheduler.PriorityActuator, scheduler.IntervalNever),
		cfg:  cfg,
		pwm:  pwm,
		log:  log.WithName("servo"),
	}
}

func (s *Servo) Init(time.Time) error {
	s.Stop()
	return nil
}

func (s *Servo) Clean() { s.Stop() }

// Start moves the servo to angle, clamped to [0, 1].
func (s *Servo) Start(angle float64) {
	s.angle = geo.Clamp(angle, 0, 1)
	s.holding = true
	s.pwm.Write(s.cfg.BaseDuty + s.angle*s.cfg.RangeDuty)
	s.log.Debug("Servo start", "angle", s.angle)
}

// Stop releases the servo.
func (s *Servo) Stop() {
	s.holding = false
	s.pwm.Write(0)
	s.log.Debug("Servo stop")
}

// Angle returns the last commanded angle and whether the servo is holding it.
func (s *Servo) Angle() (float64, bool) { return s.angle, s.holding }

const servoUsage = `servo [0-1]          : set servo angle
servo stop           : stop servo`

func (s *Servo) Command(out io.Writer, args []string) bool {
	if len(args) == 2 {
		if args[1] == "stop" {
			s.Stop()
			fmt.Fprintln(out, "Command Executed!")
			return true
		}
		if angle, err := strconv.ParseFloat(args[1], 64); err == nil {
			s.Start(angle)
			fmt.Fprintln(out, "Command Executed!")
			return true
		}
	}
	fmt.Fprintln(out, servoUsage)
	return len(args) < 2
}
