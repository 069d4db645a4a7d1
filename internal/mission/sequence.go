package mission

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/autopeer-io/rover/internal/detect"
	"github.com/autopeer-io/rover/internal/scheduler"
	"github.com/autopeer-io/rover/pkg/log"
)

// Testing is the bench state. The mission only starts on `testing start`.
type Testing struct {
	scheduler.Base
	*env
}

func newTesting(e *env) *Testing {
	return &Testing{
		Base: scheduler.NewBase(StateTesting, scheduler.KindMission, scheduler.PriorityMission, scheduler.IntervalNever),
		env:  e,
	}
}

func (s *Testing) Init(time.Time) error {
	s.dev.Motor.Brake()
	log.Info("Bench mode, send 'testing start' to begin the mission")
	return nil
}

func (s *Testing) Command(out io.Writer, args []string) bool {
	if len(args) == 2 && args[1] == "start" {
		s.sup.Signal(EventStart)
		fmt.Fprintln(out, "Command Executed!")
		return true
	}
	fmt.Fprintln(out, "testing start : start the mission")
	return len(args) < 2
}

// Waiting holds the rover in its container until light is seen.
type Waiting struct {
	scheduler.Base
	*env
	log log.Logger

	start time.Time
	light *detect.Debounce
}

func newWaiting(e *env) *Waiting {
	return &Waiting{
		Base: scheduler.NewBase(StateWaiting, scheduler.KindMission, scheduler.PriorityMission, 0),
		env:  e,
		log:  log.WithName(StateWaiting),
	}
}

func (s *Waiting) Init(now time.Time) error {
	s.start = now
	s.light = detect.NewDebounce(s.cfg.Waiting.LightCount)
	s.dev.Motor.Brake()
	s.dev.Radio.SetState(true)
	return nil
}

// Clean wakes the radio.
func (s *Waiting) Clean() {
	s.dev.Radio.SetState(false)
}

func (s *Waiting) Update(t *scheduler.Tick) {
	if s.light.Observe(t.Snapshot.Light) {
		s.log.Info("Light detected, rover released", "count", s.light.Count())
		s.sup.Signal(EventLight)
		return
	}
	if timeout := s.cfg.Waiting.Timeout; timeout > 0 && t.Now.Sub(s.start) >= timeout {
		s.log.Warn("No light before timeout, assuming release", "timeout", timeout)
		s.sup.Signal(EventLight)
	}
}

// Falling waits for the landing. Pressure, gyro and wheel pulses are each
// debounced over consecutive checks.
type Falling struct {
	scheduler.Base
	*env
	log log.Logger

	start        time.Time
	primed       bool
	lastPressure float64
	pulses       detect.PulseWatch

	pressure, gyro, spin *detect.Debounce
}

func newFalling(e *env) *Falling {
	return &Falling{
		Base: scheduler.NewBase(StateFalling, scheduler.KindMission, scheduler.PriorityMission, e.cfg.Falling.CheckInterval),
		env:  e,
		log:  log.WithName(StateFalling),
	}
}

func (s *Falling) Init(now time.Time) error {
	cfg := s.cfg.Falling
	s.start = now
	s.primed = false
	s.pulses.Reset()
	s.pressure = detect.NewDebounce(cfg.PressureCount)
	s.gyro = detect.NewDebounce(cfg.GyroCount)
	s.spin = detect.NewDebounce(cfg.PulseCount)
	s.dev.Motor.Brake()
	return nil
}

func (s *Falling) Update(t *scheduler.Tick) {
	cfg := s.cfg.Falling
	snap := t.Snapshot

	if cfg.Timeout > 0 && t.Now.Sub(s.start) >= cfg.Timeout {
		s.log.Warn("Landing not detected before timeout, continuing", "timeout", cfg.Timeout)
		s.sup.Signal(EventLanded)
		return
	}

	if !s.primed {
		s.primed = true
		s.lastPressure = snap.Pressure
		s.pulses.Observe(snap.PulseLeft, snap.PulseRight)
		return
	}

	dp := math.Abs(snap.Pressure - s.lastPressure)
	s.lastPressure = snap.Pressure
	dl, dr, _ := s.pulses.Observe(snap.PulseLeft, snap.PulseRight)

	s.pressure.Observe(dp < cfg.PressureDelta)
	s.gyro.Observe(snap.Rate.Norm() < cfg.GyroRate)
	s.spin.Observe((dl+dr)/2 >= cfg.PulseDelta)

	s.log.Debug("Landing check",
		"pressureDelta", dp, "pressureCount", s.pressure.Count(),
		"rate", snap.Rate.Norm(), "gyroCount", s.gyro.Count(),
		"pulses", (dl+dr)/2, "pulseCount", s.spin.Count())

	if s.landed(cfg.Rule) {
		s.log.Info("Landing detected",
			"pressure", s.pressure.Reached(), "gyro", s.gyro.Reached(), "pulse", s.spin.Reached())
		s.sup.Signal(EventLanded)
	}
}

func (s *Falling) landed(rule string) bool {
	if rule == RuleAny {
		return s.pressure.Reached() || s.gyro.Reached() || s.spin.Reached()
	}
	return (s.pressure.Reached() && s.gyro.Reached()) || s.spin.Reached()
}

type separatingStep int

const (
	stepSeparate separatingStep = iota
	stepPreParaJudge
	stepParaJudge
	stepParaDodge
	stepGoForward
)

// Separating works the release servo, then checks the camera for the
// parachute before driving away from it.
type Separating struct {
	scheduler.Base
	*env
	log log.Logger

	st         stepper[separatingStep]
	open       bool
	servoCount int
	judgeTries int
	dodges     int
}

func newSeparating(e *env) *Separating {
	return &Separating{
		Base: scheduler.NewBase(StateSeparating, scheduler.KindMission, scheduler.PriorityMission, 0),
		env:  e,
		log:  log.WithName(StateSeparating),
	}
}

func (s *Separating) Init(now time.Time) error {
	s.st.to(stepSeparate, now)
	s.open = false
	s.servoCount, s.judgeTries, s.dodges = 0, 0, 0
	s.dev.Motor.Brake()
	return nil
}

func (s *Separating) Clean() {
	s.dev.Servo.Stop()
	s.dev.Motor.Stop()
}

func (s *Separating) Update(t *scheduler.Tick) {
	cfg := s.cfg.Separating
	now := t.Now

	switch s.st.step {
	case stepSeparate:
		if s.st.elapsed(now) < cfg.ServoInterval {
			return
		}
		s.open = !s.open
		s.dev.Servo.Start(servoAngle(s.open))
		s.servoCount++
		s.st.to(stepSeparate, now)
		if s.servoCount >= cfg.ServoCycles {
			s.dev.Servo.Stop()
			s.st.to(stepPreParaJudge, now)
		}

	case stepPreParaJudge:
		if s.st.elapsed(now) >= cfg.JudgeDelay {
			s.st.to(stepParaJudge, now)
		}

	case stepParaJudge:
		frame := t.Snapshot.Frame
		switch {
		case frame == nil:
			s.log.Warn("Camera unavailable, skipping parachute check")
			s.goForward(now)
		case !s.vision.IsParaExist(frame):
			s.log.Info("Parachute clear", "tries", s.judgeTries+1)
			s.goForward(now)
		default:
			s.judgeTries++
			s.log.Info("Parachute still in sight", "tries", s.judgeTries)
			if s.judgeTries < cfg.JudgeRetries {
				s.st.to(stepPreParaJudge, now)
				return
			}
			if s.dodges >= cfg.DodgeMax {
				s.log.Warn("Parachute not cleared, continuing anyway", "dodges", s.dodges)
				s.goForward(now)
				return
			}
			s.dodges++
			s.judgeTries = 0
			s.dev.Servo.Start(1)
			s.dev.Motor.Backward(0.5)
			s.st.to(stepParaDodge, now)
		}

	case stepParaDodge:
		switch elapsed := s.st.elapsed(now); {
		case elapsed >= 2*cfg.ServoInterval:
			s.dev.Servo.Stop()
			s.dev.Motor.Stop()
			s.st.to(stepPreParaJudge, now)
		case elapsed >= cfg.ServoInterval:
			s.dev.Servo.Start(0)
		}

	case stepGoForward:
		if s.st.elapsed(now) >= cfg.Forward {
			s.dev.Motor.Stop()
			s.sup.Signal(EventSeparated)
		}
	}
}

func (s *Separating) goForward(now time.Time) {
	s.dev.Motor.Forward(1)
	s.st.to(stepGoForward, now)
}

func servoAngle(open bool) float64 {
	if open {
		return 1
	}
	return 0
}
