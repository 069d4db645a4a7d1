package mission

import (
	"math"
	"time"

	"github.com/autopeer-io/rover/internal/geo"
	"github.com/autopeer-io/rover/internal/rover/core"
	"github.com/autopeer-io/rover/internal/scheduler"
	"github.com/autopeer-io/rover/pkg/log"
)

type colorStep int

const (
	colStarting colorStep = iota
	colTurning
	colStoppingFast
	colStoppingLong
	colChecking
	colDeaccelerate
	colGoBack
	colChangeOfDirection
	colLeaving
	colDisplace
)

var colorStepNames = map[colorStep]string{
	colStarting:          "starting",
	colTurning:           "turning",
	colStoppingFast:      "stopping_fast",
	colStoppingLong:      "stopping_long",
	colChecking:          "checking",
	colDeaccelerate:      "deaccelerate",
	colGoBack:            "go_back",
	colChangeOfDirection: "change_of_direction",
	colLeaving:           "leaving",
	colDisplace:          "displace",
}

func (c colorStep) String() string { return colorStepNames[c] }

// motion classifies the encoder counts of one forward run.
type motion int

const (
	motionUnknown motion = iota
	motionStraight
	motionCurved
	motionStalled
)

// ColorAccessing homes onto the goal marker with the camera, alternating
// centring turns and forward runs. GPS stands in when the camera is unavailable.
type ColorAccessing struct {
	scheduler.Base
	*env
	log log.Logger

	st     stepper[colorStep]
	start  time.Time
	power  float64
	misses int
	dir    int
	near   bool

	ran        bool
	runL, runR uint64
	dl, dr     uint64
	from       geo.Point
}

func newColorAccessing(e *env) *ColorAccessing {
	return &ColorAccessing{
		Base: scheduler.NewBase(StateColorAccessing, scheduler.KindMission, scheduler.PriorityMission, 0),
		env:  e,
		log:  log.WithName(StateColorAccessing),
	}
}

func (s *ColorAccessing) Init(now time.Time) error {
	s.start = now
	s.power = s.cfg.Color.MinPower
	s.misses = 0
	s.dir = 1
	s.near = false
	s.ran = false
	s.dev.Motor.Stop()
	s.st.to(colStarting, now)
	s.log.Info("Colour approach started", "renavigations", s.sup.Memory().Renavigations)
	return nil
}

func (s *ColorAccessing) Clean() { s.dev.Motor.Stop() }

// Step returns the current approach step.
func (s *ColorAccessing) Step() string { return s.st.step.String() }

func (s *ColorAccessing) Update(t *scheduler.Tick) {
	cfg := s.cfg.Color
	now := t.Now
	snap := &t.Snapshot

	if s.st.step != colDisplace && s.st.step != colLeaving && now.Sub(s.start) >= cfg.MaxTime {
		s.log.Warn("Colour approach timed out, moving away", "step", s.st.step.String(), "elapsed", now.Sub(s.start))
		s.dev.Motor.Forward(cfg.MaxPower)
		s.st.to(colDisplace, now)
		return
	}

	switch s.st.step {
	case colStarting:
		s.st.to(colChecking, now)

	case colTurning, colChangeOfDirection:
		if s.st.elapsed(now) >= cfg.TurnBurst {
			s.dev.Motor.Stop()
			s.st.to(colChecking, now)
		}

	case colStoppingFast, colStoppingLong:
		limit := cfg.LongRun
		if s.st.step == colStoppingFast {
			limit = cfg.ShortRun
		}
		if s.st.elapsed(now) >= limit {
			s.dev.Motor.Stop()
			s.dl = pulseDelta(s.runL, snap.PulseLeft)
			s.dr = pulseDelta(s.runR, snap.PulseRight)
			s.st.to(colChecking, now)
		}

	case colGoBack:
		if s.st.elapsed(now) >= cfg.ShortRun {
			s.dev.Motor.Stop()
			s.st.to(colChecking, now)
		}

	case colChecking:
		s.check(now, snap)

	case colDeaccelerate:
		s.run(now, snap)

	case colLeaving:
		s.dev.Motor.Stop()
		s.log.Info("Goal reached", "elapsed", now.Sub(s.start))
		s.sup.Signal(EventArrived)

	case colDisplace:
		if s.st.elapsed(now) < cfg.Displace {
			return
		}
		s.dev.Motor.Stop()
		mem := s.sup.Memory()
		mem.Renavigations++
		if mem.Renavigations > cfg.MaxRenav {
			s.log.Warn("Goal approach failed, giving up", "renavigations", mem.Renavigations)
			s.sup.Signal(EventGiveUp)
			return
		}
		s.log.Info("Restarting approach from navigation", "renavigations", mem.Renavigations)
		s.sup.Signal(EventRenavigate)
	}
}

func (s *ColorAccessing) check(now time.Time, snap *core.Snapshot) {
	cfg := s.cfg.Color

	frame := snap.Frame
	if frame == nil {
		s.blind(now, snap)
		return
	}

	blob, ok := s.vision.GoalBlob(frame)
	if !ok {
		s.misses++
		s.ran = false
		if s.misses > cfg.Retries {
			s.log.Info("Goal lost, backing up", "misses", s.misses)
			s.misses = 0
			s.dev.Motor.Backward(s.power)
			s.st.to(colGoBack, now)
			return
		}
		s.dev.Motor.Pivot(s.dir, s.power)
		s.st.to(colTurning, now)
		return
	}
	s.misses = 0

	if blob.Area >= cfg.ArriveArea {
		s.st.to(colLeaving, now)
		return
	}
	if math.Abs(blob.CX) > cfg.CenterTolerance {
		s.dir = sign(blob.CX)
		s.ran = false
		s.dev.Motor.Pivot(s.dir, s.power)
		s.st.to(colTurning, now)
		return
	}

	s.near = blob.Area >= cfg.CloseArea
	switch s.motion() {
	case motionStraight:
		s.power = math.Max(cfg.MinPower, s.power-cfg.RampStep)
		s.st.to(colDeaccelerate, now)
	case motionStalled:
		s.ran = false
		s.dev.Motor.Backward(s.power)
		s.st.to(colGoBack, now)
	case motionCurved:
		s.power = math.Min(cfg.MaxPower, s.power+cfg.RampStep)
		s.ran = false
		// The slower wheel is on the inside of the curve; turn the other way.
		if s.dl < s.dr {
			s.dev.Motor.Pivot(1, s.power)
		} else {
			s.dev.Motor.Pivot(-1, s.power)
		}
		s.st.to(colChangeOfDirection, now)
	default:
		s.run(now, snap)
	}
}

// blind homes on the GPS bearing when there is no frame. The fixes at both
// ends of a forward run give the heading to correct with a pivot burst.
func (s *ColorAccessing) blind(now time.Time, snap *core.Snapshot) {
	cfg := s.cfg.Color
	if !snap.HasFix {
		s.ran = false
		return
	}

	p := s.goalOffset(snap.Fix)
	dist := math.Hypot(p.X, p.Y)
	if dist <= s.cfg.Navigating.GoalRadius {
		s.log.Info("Camera unavailable, goal confirmed by GPS", "distance", dist)
		s.st.to(colLeaving, now)
		return
	}

	if s.ran && geo.Distance(s.from, p) >= cfg.HeadingRun {
		heading := geo.Bearing(s.from, p)
		diff := geo.NormalizeAngle(geo.Bearing(p, geo.Point{}) - heading)
		s.log.Debug("Homing on GPS", "distance", dist, "heading", heading, "error", diff)
		if math.Abs(diff) > cfg.HeadingTolerance {
			s.ran = false
			s.dir = sign(diff)
			s.dev.Motor.Pivot(s.dir, s.power)
			s.st.to(colTurning, now)
			return
		}
	}

	// Long runs only, short ones fall under the heading distance.
	s.from = p
	s.near = false
	s.run(now, snap)
}

func (s *ColorAccessing) motion() motion {
	cfg := s.cfg.Color
	switch {
	case !s.ran:
		return motionUnknown
	case s.dl >= cfg.PulseHigh && s.dr >= cfg.PulseHigh:
		return motionStraight
	case s.dl < cfg.PulseLow && s.dr < cfg.PulseLow:
		return motionStalled
	default:
		return motionCurved
	}
}

// run starts a forward run toward the centred goal, short when it is close.
func (s *ColorAccessing) run(now time.Time, snap *core.Snapshot) {
	s.ran = true
	s.runL, s.runR = snap.PulseLeft, snap.PulseRight
	s.dev.Motor.Forward(s.power)
	if s.near {
		s.st.to(colStoppingFast, now)
		return
	}
	s.st.to(colStoppingLong, now)
}
