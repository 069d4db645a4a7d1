package mission

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/autopeer-io/rover/internal/detect"
	"github.com/autopeer-io/rover/internal/geo"
	"github.com/autopeer-io/rover/internal/rover/core"
	"github.com/autopeer-io/rover/internal/scheduler"
	"github.com/autopeer-io/rover/pkg/log"
)

// Navigating steers toward the goal and watches for a stuck rover, both
// through the GPS window and through the wheel encoders.
type Navigating struct {
	scheduler.Base
	*env
	log log.Logger

	lastCheck time.Time
	window    detect.PositionWindow
	pulses    detect.PulseWatch
	gpsStuck  *detect.Debounce
	stall     *detect.Debounce
}

func newNavigating(e *env) *Navigating {
	return &Navigating{
		Base: scheduler.NewBase(StateNavigating, scheduler.KindMission, scheduler.PriorityMission, 0),
		env:  e,
		log:  log.WithName(StateNavigating),
	}
}

func (s *Navigating) Init(now time.Time) error {
	cfg := s.cfg.Navigating
	s.lastCheck = now
	s.window = detect.PositionWindow{
		Size:            cfg.Window,
		MinFixes:        cfg.MinFixes,
		StuckDistance:   cfg.StuckDistance,
		OutlierDistance: cfg.OutlierDistance,
	}
	s.pulses = detect.PulseWatch{Threshold: cfg.PulseStall}
	s.gpsStuck = detect.NewDebounce(cfg.StuckCount)
	s.stall = detect.NewDebounce(cfg.PulseCount)

	if !s.sup.Memory().HasGoal {
		s.log.Warn("No goal set, holding position")
	}
	return nil
}

func (s *Navigating) Clean() { s.dev.Motor.Stop() }

func (s *Navigating) Update(t *scheduler.Tick) {
	cfg := s.cfg.Navigating
	snap := t.Snapshot

	if !s.sup.Memory().HasGoal {
		s.dev.Motor.Stop()
		return
	}
	if math.Abs(snap.Attitude.Roll) > cfg.OverturnAngle || math.Abs(snap.Attitude.Pitch) > cfg.OverturnAngle {
		s.log.Warn("Rover overturned", "roll", snap.Attitude.Roll, "pitch", snap.Attitude.Pitch)
		s.sup.Signal(EventOverturned)
		return
	}
	if t.Now.Sub(s.lastCheck) < cfg.CheckInterval {
		return
	}
	s.lastCheck = t.Now
	s.check(&snap)
}

func (s *Navigating) check(snap *core.Snapshot) {
	cfg := s.cfg.Navigating

	dl, dr, stalled := s.pulses.Observe(snap.PulseLeft, snap.PulseRight)
	wheelsStuck := s.stall.Observe(stalled)

	if !snap.HasFix {
		s.log.Debug("No GPS fix, driving straight", "pulseLeft", dl, "pulseRight", dr)
		if wheelsStuck {
			s.stuck(snap, "encoder")
			return
		}
		s.dev.Motor.Forward(cfg.BasePower)
		return
	}

	p := s.goalOffset(snap.Fix)
	if !s.window.Add(p) {
		s.log.Info("GPS jump, restarting stuck window", "x", p.X, "y", p.Y)
	}

	dist := math.Hypot(p.X, p.Y)
	if dist <= cfg.GoalRadius {
		s.log.Info("Goal reached", "distance", dist)
		s.sup.Signal(EventArrived)
		return
	}
	if dist <= cfg.ApproachDistance {
		s.log.Info("Goal close, starting colour approach", "distance", dist)
		s.sup.Signal(EventApproach)
		return
	}

	gpsStuck := s.gpsStuck.Observe(s.window.Stuck())
	if gpsStuck || wheelsStuck {
		source := "gps"
		if !gpsStuck {
			source = "encoder"
		}
		s.stuck(snap, source)
		return
	}

	heading, ok := s.window.Heading(cfg.StuckDistance)
	if !ok {
		s.dev.Motor.Forward(cfg.BasePower)
		return
	}

	diff := geo.NormalizeAngle(geo.Bearing(p, geo.Point{}) - heading)
	s.log.Debug("Navigation check", "distance", dist, "heading", heading, "error", diff)
	if math.Abs(diff) > cfg.PivotAngle {
		s.sup.Signal(EventPivot, Request{Direction: sign(diff), Angle: math.Abs(diff)})
		return
	}
	// The correction never reverses a wheel, so steering cannot spin the rover in place.
	steer := geo.Clamp(cfg.SteerGain*diff, -cfg.BasePower, cfg.BasePower)
	s.dev.Motor.Drive(cfg.BasePower+steer, cfg.BasePower-steer)
}

func (s *Navigating) stuck(snap *core.Snapshot, source string) {
	if snap.Frame != nil {
		s.log.Warn("Rover stuck, escaping with the camera", "source", source, "spread", s.window.Spread())
		s.sup.Signal(EventStuck)
		return
	}
	s.log.Warn("Rover stuck and camera unavailable, escaping at random", "source", source, "spread", s.window.Spread())
	s.sup.Signal(EventStuckBlind)
}

const navigatingUsage = `navigating                   : show goal
navigating goal [lat] [lon]  : set goal
navigating here              : set goal to the current position`

func (s *Navigating) Command(out io.Writer, args []string) bool {
	mem := s.sup.Memory()
	switch {
	case len(args) == 1:
		if !mem.HasGoal {
			fmt.Fprintln(out, "goal: none")
			return true
		}
		fmt.Fprintf(out, "goal: %s,%s\n", formatDeg(mem.Goal.Lat), formatDeg(mem.Goal.Lon))
		return true
	case len(args) == 2 && args[1] == "here":
		fix, ok := s.sensors.Position()
		if !ok {
			fmt.Fprintln(out, "no GPS fix")
			return true
		}
		s.sup.SetGoal(fix)
		fmt.Fprintln(out, "Command Executed!")
		return true
	case len(args) == 4 && args[1] == "goal":
		lat, err1 := strconv.ParseFloat(args[2], 64)
		lon, err2 := strconv.ParseFloat(args[3], 64)
		if err1 != nil || err2 != nil {
			break
		}
		s.sup.SetGoal(core.Fix{Lat: lat, Lon: lon})
		fmt.Fprintln(out, "Command Executed!")
		return true
	}
	fmt.Fprintln(out, navigatingUsage)
	return false
}

func sign(v float64) int {
	if v < 0 {
		return -1
	}
	return 1
}

// Predicting scans the camera for ruts while the rover navigates and hands
// control to Avoiding when one is ahead.
type Predicting struct {
	scheduler.Base
	*env
	log     log.Logger
	enabled bool
}

func newPredicting(e *env) *Predicting {
	return &Predicting{
		Base:    scheduler.NewBase("predicting", scheduler.KindBackground, scheduler.PriorityBackground, e.cfg.Predicting.Interval),
		env:     e,
		log:     log.WithName("predicting"),
		enabled: e.cfg.Predicting.Enabled,
	}
}

func (s *Predicting) Update(t *scheduler.Tick) {
	if !s.enabled || s.sup.Current() != StateNavigating {
		return
	}
	frame := t.Snapshot.Frame
	if frame == nil || !s.vision.IsWadachiExist(frame) {
		return
	}

	dir := s.vision.WadachiExiting(frame)
	if dir == 0 {
		dir = s.randomSide()
	}
	s.log.Info("Rut ahead, avoiding", "direction", dir)
	s.sup.Signal(EventHazard, Request{Direction: dir})
}

// Enabled reports whether the scan may interrupt navigation.
func (s *Predicting) Enabled() bool { return s.enabled }

func (s *Predicting) Command(out io.Writer, args []string) bool {
	if len(args) == 2 {
		switch args[1] {
		case "enable":
			s.enabled = true
			fmt.Fprintln(out, "rut avoidance enabled")
			return true
		case "disable":
			s.enabled = false
			fmt.Fprintln(out, "rut avoidance disabled")
			return true
		}
	}
	fmt.Fprintln(out, "predicting [enable/disable] : switch rut avoidance")
	return len(args) < 2
}
