package mission

import (
	"math/rand/v2"
	"time"

	"github.com/autopeer-io/rover/internal/geo"
	"github.com/autopeer-io/rover/internal/rover/core"
)

// Driver commands the wheel pair. actuator.Motor implements it.
type Driver interface {
	Drive(left, right float64)
	Forward(power float64)
	Backward(power float64)
	Pivot(dir int, power float64)
	Stop()
	Brake()
}

// Releaser commands the parachute release servo. actuator.Servo implements it.
type Releaser interface {
	Start(angle float64)
	Stop()
}

// Beeper commands the buzzer. actuator.Buzzer implements it.
type Beeper interface {
	Start(period int)
	StartCount(period, count int)
	Stop()
}

// Radio commands the radio sleep line. actuator.XBeeSleep implements it.
type Radio interface {
	SetState(sleep bool)
}

// PictureSink stores pictures taken by the mission. Save must not block.
type PictureSink interface {
	Save(name string, jpeg []byte)
}

// Devices groups the outputs driven by mission states.
type Devices struct {
	Motor  Driver
	Servo  Releaser
	Buzzer Beeper
	Radio  Radio
}

// env is shared by every mission task.
type env struct {
	cfg     *Config
	sup     *Supervisor
	dev     Devices
	vision  core.Vision
	sensors core.Sensors
	rnd     *rand.Rand
}

func (e *env) randomSide() int {
	if e.rnd.IntN(2) == 0 {
		return -1
	}
	return 1
}

// goalOffset projects fix into metres relative to the goal.
func (e *env) goalOffset(fix core.Fix) geo.Point {
	return geo.Project(e.sup.Memory().Goal, fix)
}

// stepper tracks the current step of a maneuver and when it began.
type stepper[S ~int] struct {
	step  S
	since time.Time
}

func (s *stepper[S]) to(step S, now time.Time) {
	s.step, s.since = step, now
}

func (s *stepper[S]) elapsed(now time.Time) time.Duration {
	return now.Sub(s.since)
}
