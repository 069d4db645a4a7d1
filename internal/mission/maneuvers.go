package mission

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

// progress remembers where an escape attempt started.
type progress struct {
	marked      bool
	fix         core.Fix
	hasFix      bool
	left, right uint64
}

func (p *progress) mark(snap *core.Snapshot) {
	p.marked = true
	p.fix, p.hasFix = snap.Fix, snap.HasFix
	p.left, p.right = snap.PulseLeft, snap.PulseRight
}

// made reports whether the rover moved since mark: by GPS when fixes exist, by encoders otherwise.
func (p *progress) made(snap *core.Snapshot, cfg EscapingConfig) bool {
	if !p.marked {
		return false
	}
	if p.hasFix && snap.HasFix {
		return geo.Distance(geo.Point{}, geo.Project(p.fix, snap.Fix)) >= cfg.ProgressDistance
	}
	moved := (pulseDelta(p.left, snap.PulseLeft) + pulseDelta(p.right, snap.PulseRight)) / 2
	return moved >= cfg.ProgressPulses
}

func pulseDelta(prev, cur uint64) uint64 {
	if cur < prev {
		return cur
	}
	return cur - prev
}

// yawTracker measures the rotation since the first observed attitude.
type yawTracker struct {
	set   bool
	start float64
}

func (y *yawTracker) turned(yaw float64) float64 {
	if !y.set {
		y.set, y.start = true, yaw
	}
	return math.Abs(geo.NormalizeAngle(yaw - y.start))
}

type escapingStep int

const (
	escBackward escapingStep = iota
	escAfterBackward
	escPreCamera
	escCamera
	escCameraTurn
	escCameraForward
	escCameraTurnHere
)

// Escaping backs out of a rut and turns toward the exit the camera shows.
// After MaxTries attempts without progress it falls back to EscapingRandom.
type Escaping struct {
	scheduler.Base
	*env
	log log.Logger

	st    stepper[escapingStep]
	tries int
	dir   int
	moved progress
}

func newEscaping(e *env) *Escaping {
	return &Escaping{
		Base: scheduler.NewBase(StateEscaping, scheduler.KindMission, scheduler.PriorityMission, 0),
		env:  e,
		log:  log.WithName(StateEscaping),
	}
}

func (s *Escaping) Init(now time.Time) error {
	s.tries = 0
	s.begin(now)
	return nil
}

func (s *Escaping) Clean() { s.dev.Motor.Stop() }

// Tries returns the number of finished attempts.
func (s *Escaping) Tries() int { return s.tries }

// Direction returns the side of the last turn.
func (s *Escaping) Direction() int { return s.dir }

func (s *Escaping) begin(now time.Time) {
	s.moved = progress{}
	s.dev.Motor.Backward(1)
	s.st.to(escBackward, now)
}

func (s *Escaping) Update(t *scheduler.Tick) {
	cfg := s.cfg.Escaping
	now := t.Now
	snap := &t.Snapshot

	switch s.st.step {
	case escBackward:
		if !s.moved.marked {
			s.moved.mark(snap)
		}
		if s.st.elapsed(now) >= cfg.Backward {
			s.dev.Motor.Stop()
			s.st.to(escAfterBackward, now)
		}

	case escAfterBackward:
		if s.st.elapsed(now) >= cfg.Pause {
			s.st.to(escPreCamera, now)
		}

	case escPreCamera:
		// The frame of this tick may still show the backward run.
		s.st.to(escCamera, now)

	case escCamera:
		frame := snap.Frame
		if frame == nil {
			s.dir = s.vision.WadachiExiting(nil)
			s.log.Info("Camera unavailable, pivoting", "direction", s.dir, "try", s.tries+1)
			s.dev.Motor.Pivot(s.dir, 1)
			s.st.to(escCameraTurnHere, now)
			return
		}
		if dir := s.vision.WadachiExiting(frame); dir != 0 {
			s.dir = dir
			s.log.Info("Exit found, turning", "direction", s.dir, "try", s.tries+1)
			s.dev.Motor.Pivot(s.dir, 1)
			s.st.to(escCameraTurn, now)
			return
		}
		s.dir = s.randomSide()
		s.log.Info("No exit in sight, pivoting", "direction", s.dir, "try", s.tries+1)
		s.dev.Motor.Pivot(s.dir, 1)
		s.st.to(escCameraTurnHere, now)

	case escCameraTurn, escCameraTurnHere:
		limit := cfg.Turn
		if s.st.step == escCameraTurnHere {
			limit = cfg.Pivot
		}
		if s.st.elapsed(now) >= limit {
			s.dev.Motor.Forward(1)
			s.st.to(escCameraForward, now)
		}

	case escCameraForward:
		if s.st.elapsed(now) < cfg.Forward {
			return
		}
		s.dev.Motor.Stop()
		s.tries++
		switch {
		case s.moved.made(snap, cfg):
			s.log.Info("Escaped", "tries", s.tries)
			s.sup.Signal(EventRecovered)
		case s.tries >= cfg.MaxTries:
			s.log.Warn("Camera escape failed, switching to random escape", "tries", s.tries)
			s.sup.Signal(EventFallback)
		default:
			s.begin(now)
		}
	}
}

type randomStep int

const (
	rndBackward randomStep = iota
	rndTurn
	rndForward
)

// EscapingRandom backs up, turns to a random side for a random time and drives on.
// It needs no camera.
type EscapingRandom struct {
	scheduler.Base
	*env
	log log.Logger

	st      stepper[randomStep]
	tries   int
	dir     int
	turnFor time.Duration
	moved   progress
}

func newEscapingRandom(e *env) *EscapingRandom {
	return &EscapingRandom{
		Base: scheduler.NewBase(StateEscapingRandom, scheduler.KindMission, scheduler.PriorityMission, 0),
		env:  e,
		log:  log.WithName(StateEscapingRandom),
	}
}

func (s *EscapingRandom) Init(now time.Time) error {
	s.tries = 0
	s.begin(now)
	return nil
}

func (s *EscapingRandom) Clean() { s.dev.Motor.Stop() }

func (s *EscapingRandom) begin(now time.Time) {
	s.moved = progress{}
	s.dev.Motor.Backward(1)
	s.st.to(rndBackward, now)
}

func (s *EscapingRandom) Update(t *scheduler.Tick) {
	cfg := s.cfg.Escaping
	now := t.Now
	snap := &t.Snapshot

	switch s.st.step {
	case rndBackward:
		if !s.moved.marked {
			s.moved.mark(snap)
		}
		if s.st.elapsed(now) < cfg.Backward {
			return
		}
		s.dir = s.randomSide()
		s.turnFor = cfg.Turn * time.Duration(1+s.rnd.IntN(3))
		s.log.Info("Random turn", "direction", s.dir, "duration", s.turnFor, "try", s.tries+1)
		s.dev.Motor.Pivot(s.dir, 1)
		s.st.to(rndTurn, now)

	case rndTurn:
		if s.st.elapsed(now) >= s.turnFor {
			s.dev.Motor.Forward(1)
			s.st.to(rndForward, now)
		}

	case rndForward:
		if s.st.elapsed(now) < cfg.Forward {
			return
		}
		s.dev.Motor.Stop()
		s.tries++
		switch {
		case s.moved.made(snap, cfg):
			s.log.Info("Escaped", "tries", s.tries)
			s.sup.Signal(EventRecovered)
		case s.tries >= s.cfg.Random.MaxTries:
			s.log.Warn("Random escape did not free the rover, resuming navigation", "tries", s.tries)
			s.sup.Signal(EventRecovered)
		default:
			s.begin(now)
		}
	}
}

type avoidingStep int

const (
	avTurn avoidingStep = iota
	avForward
)

// Avoiding turns away from a rut ahead and drives past it.
type Avoiding struct {
	scheduler.Base
	*env
	log log.Logger

	st  stepper[avoidingStep]
	dir int
	yaw yawTracker
}

func newAvoiding(e *env) *Avoiding {
	return &Avoiding{
		Base: scheduler.NewBase(StateAvoiding, scheduler.KindMission, scheduler.PriorityMission, 0),
		env:  e,
		log:  log.WithName(StateAvoiding),
	}
}

func (s *Avoiding) Prepare(req Request) { s.dir = req.Direction }

func (s *Avoiding) Init(now time.Time) error {
	if s.dir == 0 {
		s.dir = s.randomSide()
	}
	s.yaw = yawTracker{}
	s.dev.Motor.Pivot(s.dir, s.cfg.Turning.Power)
	s.st.to(avTurn, now)
	return nil
}

func (s *Avoiding) Clean() {
	s.dev.Motor.Stop()
	s.dir = 0
}

func (s *Avoiding) Update(t *scheduler.Tick) {
	cfg := s.cfg.Avoiding
	now := t.Now

	switch s.st.step {
	case avTurn:
		turned := s.yaw.turned(t.Snapshot.Attitude.Yaw)
		timedOut := s.st.elapsed(now) >= cfg.TurnTimeout
		if turned < cfg.Angle && !timedOut {
			return
		}
		s.log.Info("Turned away from rut", "direction", s.dir, "turned", turned, "timeout", timedOut)
		s.dev.Motor.Forward(s.cfg.Navigating.BasePower)
		s.st.to(avForward, now)

	case avForward:
		if s.st.elapsed(now) >= cfg.Forward {
			s.dev.Motor.Stop()
			s.sup.Signal(EventRecovered)
		}
	}
}

// Turning turns in place until the gyro shows the requested angle.
type Turning struct {
	scheduler.Base
	*env
	log log.Logger

	start time.Time
	dir   int
	angle float64
	yaw   yawTracker
}

func newTurning(e *env) *Turning {
	return &Turning{
		Base: scheduler.NewBase(StateTurning, scheduler.KindMission, scheduler.PriorityMission, 0),
		env:  e,
		log:  log.WithName(StateTurning),
	}
}

func (s *Turning) Prepare(req Request) {
	s.dir, s.angle = req.Direction, req.Angle
}

func (s *Turning) Init(now time.Time) error {
	if s.dir == 0 {
		s.dir = 1
	}
	if s.angle <= 0 {
		s.angle = s.cfg.Turning.Angle
	}
	s.start = now
	s.yaw = yawTracker{}
	s.dev.Motor.Pivot(s.dir, s.cfg.Turning.Power)
	s.log.Info("Turning", "direction", s.dir, "angle", s.angle)
	return nil
}

func (s *Turning) Clean() {
	s.dev.Motor.Stop()
	s.dir, s.angle = 0, 0
}

func (s *Turning) Update(t *scheduler.Tick) {
	turned := s.yaw.turned(t.Snapshot.Attitude.Yaw)
	switch {
	case turned >= s.angle:
		s.log.Info("Turn complete", "turned", turned)
	case t.Now.Sub(s.start) >= s.cfg.Turning.Timeout:
		s.log.Warn("Turn timed out", "turned", turned, "target", s.angle)
	default:
		return
	}
	s.dev.Motor.Stop()
	s.sup.Signal(EventRecovered)
}

func (s *Turning) Command(out io.Writer, args []string) bool {
	if len(args) == 2 || len(args) == 3 {
		req := Request{}
		switch args[1] {
		case "left":
			req.Direction = -1
		case "right":
			req.Direction = 1
		}
		if len(args) == 3 {
			angle, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				req.Direction = 0
			}
			req.Angle = angle
		}
		if req.Direction != 0 {
			if err := s.sup.Goto(StateTurning, req); err != nil {
				fmt.Fprintf(out, "%v\n", err)
				return false
			}
			fmt.Fprintln(out, "Command Executed!")
			return true
		}
	}
	fmt.Fprintln(out, "turning [left/right] [angle] : turn in place")
	return len(args) < 2
}

type wakingStep int

const (
	wkStart wakingStep = iota
	wkStop
	wkVerify
)

// Waking rights an overturned rover by kicking the wheels, alternating direction.
type Waking struct {
	scheduler.Base
	*env
	log log.Logger

	st      stepper[wakingStep]
	retries int
}

func newWaking(e *env) *Waking {
	return &Waking{
		Base: scheduler.NewBase(StateWaking, scheduler.KindMission, scheduler.PriorityMission, 0),
		env:  e,
		log:  log.WithName(StateWaking),
	}
}

func (s *Waking) Init(now time.Time) error {
	s.retries = 0
	s.kick(now)
	return nil
}

func (s *Waking) Clean() { s.dev.Motor.Stop() }

func (s *Waking) kick(now time.Time) {
	power := s.cfg.Waking.Power
	if s.retries%2 == 1 {
		power = -power
	}
	s.dev.Motor.Drive(power, power)
	s.st.to(wkStart, now)
}

func (s *Waking) Update(t *scheduler.Tick) {
	cfg := s.cfg.Waking
	now := t.Now

	switch s.st.step {
	case wkStart:
		if s.st.elapsed(now) >= cfg.Start {
			s.dev.Motor.Brake()
			s.st.to(wkStop, now)
		}

	case wkStop:
		if s.st.elapsed(now) >= cfg.Settle {
			s.st.to(wkVerify, now)
		}

	case wkVerify:
		att := t.Snapshot.Attitude
		if math.Abs(att.Roll) <= cfg.Tolerance && math.Abs(att.Pitch) <= cfg.Tolerance {
			s.log.Info("Rover upright", "roll", att.Roll, "pitch", att.Pitch, "retries", s.retries)
			s.sup.Signal(EventRecovered)
			return
		}
		s.retries++
		if s.retries >= cfg.MaxRetries {
			s.log.Warn("Rover still not upright, resuming navigation", "roll", att.Roll, "pitch", att.Pitch)
			s.sup.Signal(EventRecovered)
			return
		}
		s.kick(now)
	}
}
