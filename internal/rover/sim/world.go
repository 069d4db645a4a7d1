// Package sim is a kinematic model of the rover, its drop and the landing
// field. The mock HAL reads its sensors from a World and drives its wheels.
package sim

import (
	"bytes"
	"image"
	"image/jpeg"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/rover/internal/geo"
	"github.com/autopeer-io/rover/internal/rover/core"
)

// Rut is a soft patch that traps forward motion.
type Rut struct {
	Center geo.Point `json:"center" mapstructure:"center"`
	Radius float64   `json:"radius" mapstructure:"radius"`
}

// Config describes the simulated flight and field. Positions are metres from the goal.
type Config struct {
	Goal    core.Fix  `json:"goal" mapstructure:"goal"`
	Start   geo.Point `json:"start" mapstructure:"start"`
	Heading float64   `json:"heading" mapstructure:"heading"`

	// ContainedFor is the dark time in the container before release.
	ContainedFor time.Duration `json:"contained-for" mapstructure:"contained-for"`
	// DropFor is the descent time under the parachute.
	DropFor time.Duration `json:"drop-for" mapstructure:"drop-for"`
	// ParaFor is how long the parachute covers the camera after landing.
	ParaFor time.Duration `json:"para-for" mapstructure:"para-for"`

	GroundPressure float64 `json:"ground-pressure" mapstructure:"ground-pressure"`
	DropPressure   float64 `json:"drop-pressure" mapstructure:"drop-pressure"`

	// Speed is the ground speed at full power in m/s.
	Speed          float64 `json:"speed" mapstructure:"speed"`
	TrackWidth     float64 `json:"track-width" mapstructure:"track-width"`
	PulsesPerMetre float64 `json:"pulses-per-metre" mapstructure:"pulses-per-metre"`

	GPS          bool    `json:"gps" mapstructure:"gps"`
	GPSNoise     float64 `json:"gps-noise" mapstructure:"gps-noise"`
	Camera       bool    `json:"camera" mapstructure:"camera"`
	FieldOfView  float64 `json:"field-of-view" mapstructure:"field-of-view"`
	ViewDistance float64 `json:"view-distance" mapstructure:"view-distance"`

	Ruts []Rut  `json:"ruts" mapstructure:"ruts"`
	Seed uint64 `json:"seed" mapstructure:"seed"`
}

// DefaultConfig returns a 30 m run on flat ground.
func DefaultConfig() Config {
	return Config{
		Goal:           core.Fix{Lat: 40.142, Lon: -119.175},
		Start:          geo.Point{X: -20, Y: -22},
		Heading:        0,
		ContainedFor:   5 * time.Second,
		DropFor:        20 * time.Second,
		ParaFor:        2 * time.Second,
		GroundPressure: 1013.25,
		DropPressure:   1001.3,
		Speed:          0.5,
		TrackWidth:     0.3,
		PulsesPerMetre: 400,
		GPS:            true,
		GPSNoise:       0.1,
		Camera:         true,
		FieldOfView:    60,
		ViewDistance:   8,
		Seed:           1,
	}
}

type phase int

const (
	phaseContained phase = iota
	phaseFalling
	phaseLanded
)

// World implements core.Sensors and core.Motors. It advances lazily to the
// clock time of every call and is safe for concurrent use.
type World struct {
	cfg Config
	clk clock.PassiveClock
	rnd *rand.Rand

	mu      sync.Mutex
	start   time.Time
	last    time.Time
	pos     geo.Point
	heading float64
	yawRate float64
	roll    float64
	kicked  time.Duration
	left    float64
	right   float64
	pulseL  float64
	pulseR  float64
	seq     uint64
	buzzer  bool
	radio   bool
	servo   float64
	jpeg    []byte
}

// New places the rover in its container at the current clock time.
func New(cfg Config, clk clock.PassiveClock) *World {
	now := clk.Now()
	return &World{
		cfg:     cfg,
		clk:     clk,
		rnd:     rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		start:   now,
		last:    now,
		pos:     cfg.Start,
		heading: cfg.Heading,
		jpeg:    placeholderJPEG(),
	}
}

func placeholderJPEG() []byte {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		return nil
	}
	return buf.Bytes()
}

func (w *World) phase(now time.Time) phase {
	switch elapsed := now.Sub(w.start); {
	case elapsed < w.cfg.ContainedFor:
		return phaseContained
	case elapsed < w.cfg.ContainedFor+w.cfg.DropFor:
		return phaseFalling
	default:
		return phaseLanded
	}
}

func (w *World) landedAt() time.Time {
	return w.start.Add(w.cfg.ContainedFor + w.cfg.DropFor)
}

// advance integrates the wheel motion up to now. Caller holds mu.
func (w *World) advance() time.Time {
	now := w.clk.Now()
	from := w.last
	if landed := w.landedAt(); from.Before(landed) {
		from = landed
	}
	if now.After(from) {
		w.integrate(now.Sub(from).Seconds())
	}
	w.last = now
	return now
}

func (w *World) integrate(dt float64) {
	vl, vr := w.left*w.cfg.Speed, w.right*w.cfg.Speed
	w.pulseL += math.Abs(vl) * dt * w.cfg.PulsesPerMetre
	w.pulseR += math.Abs(vr) * dt * w.cfg.PulsesPerMetre

	if w.roll > 60 {
		// Full-power kicks roll the body back over.
		w.yawRate = 0
		if math.Abs(w.left) >= 0.9 && math.Abs(w.right) >= 0.9 {
			w.kicked += time.Duration(dt * float64(time.Second))
			if w.kicked >= time.Second {
				w.roll, w.kicked = 0, 0
			}
		}
		return
	}

	v := (vl + vr) / 2
	if v > 0 && w.inRut(w.pos) {
		v *= 0.05
	}
	w.yawRate = (vl - vr) / w.cfg.TrackWidth * 180 / math.Pi
	mid := (w.heading + w.yawRate*dt/2) * math.Pi / 180
	w.pos.X += v * dt * math.Sin(mid)
	w.pos.Y += v * dt * math.Cos(mid)
	w.heading = math.Mod(w.heading+w.yawRate*dt+360, 360)
}

func (w *World) inRut(p geo.Point) bool {
	for _, r := range w.cfg.Ruts {
		if geo.Distance(p, r.Center) <= r.Radius {
			return true
		}
	}
	return false
}

// Drive sets the wheel powers.
func (w *World) Drive(left, right float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.advance()
	w.left, w.right = geo.Clamp(left, -1, 1), geo.Clamp(right, -1, 1)
}

// Overturn flips the rover onto its side.
func (w *World) Overturn() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.advance()
	w.roll, w.kicked = 120, 0
}

// Pose returns the local position and compass heading.
func (w *World) Pose() (geo.Point, float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.advance()
	return w.pos, w.heading
}

func (w *World) Position() (core.Fix, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.cfg.GPS {
		return core.Fix{}, false
	}
	w.advance()
	p := w.pos
	if n := w.cfg.GPSNoise; n > 0 {
		p.X += w.rnd.NormFloat64() * n
		p.Y += w.rnd.NormFloat64() * n
	}
	return geo.Unproject(w.cfg.Goal, p), true
}

func (w *World) Attitude() core.Attitude {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := w.advance()
	yaw := w.heading
	if w.phase(now) == phaseFalling {
		yaw = math.Mod(yaw+now.Sub(w.start).Seconds()*120, 360)
	}
	return core.Attitude{Roll: w.roll, Yaw: geo.NormalizeAngle(yaw)}
}

func (w *World) AngularRate() core.Vector3 {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.phase(w.advance()) == phaseFalling {
		return core.Vector3{X: 15, Y: 10, Z: 120}
	}
	return core.Vector3{Z: w.yawRate}
}

func (w *World) Pressure() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := w.advance()
	switch w.phase(now) {
	case phaseContained:
		return w.cfg.DropPressure
	case phaseFalling:
		frac := float64(now.Sub(w.start)-w.cfg.ContainedFor) / float64(w.cfg.DropFor)
		return w.cfg.DropPressure + (w.cfg.GroundPressure-w.cfg.DropPressure)*frac
	default:
		return w.cfg.GroundPressure
	}
}

func (w *World) Light() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.phase(w.advance()) != phaseContained
}

func (w *World) Pulses() (uint64, uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.advance()
	return uint64(w.pulseL), uint64(w.pulseR)
}

// Frame renders the features the capture pipeline would extract at the current pose.
func (w *World) Frame() *core.Frame {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.cfg.Camera {
		return nil
	}
	now := w.advance()
	w.seq++

	f := &core.Frame{
		Seq:         w.seq,
		Width:       320,
		Height:      240,
		JPEG:        w.jpeg,
		StripEdges:  []float64{0.2, 0.2, 0.2, 0.2},
		ColumnEdges: []float64{0.2, 0.2},
		Horizon:     []float64{120, 120},
	}
	switch ph := w.phase(now); {
	case ph == phaseContained:
		return f
	case ph == phaseFalling:
		f.SkyRatio = 1
		f.ParaRatio = 0.4
		return f
	case now.Sub(w.landedAt()) < w.cfg.ParaFor:
		f.ParaRatio = 0.3
	}
	f.SkyRatio = 0.4

	half := w.cfg.FieldOfView / 2
	for _, r := range w.cfg.Ruts {
		d := geo.Distance(w.pos, r.Center) - r.Radius
		rel := geo.NormalizeAngle(geo.Bearing(w.pos, r.Center) - w.heading)
		if d > 0 && d < 3 && math.Abs(rel) <= half {
			f.StripEdges = []float64{0.4, 0.2, 0.2, 0.2}
			// More edges on the rut side.
			if rel < 0 {
				f.ColumnEdges = []float64{0.4, 0.2}
			} else {
				f.ColumnEdges = []float64{0.2, 0.4}
			}
			break
		}
	}

	d := geo.Distance(w.pos, geo.Point{})
	rel := geo.NormalizeAngle(geo.Bearing(w.pos, geo.Point{}) - w.heading)
	if d <= w.cfg.ViewDistance && math.Abs(rel) <= half {
		f.Blob = &core.Blob{
			CX:   rel / half,
			Area: math.Min(1, 0.25*math.Pow(2/math.Max(d, 0.1), 2)),
		}
	}
	return f
}

// BuzzerLine returns the buzzer output.
func (w *World) BuzzerLine() core.Switch {
	return switchFunc(func(on bool) { w.set(&w.buzzer, on) })
}

// RadioLine returns the radio sleep output.
func (w *World) RadioLine() core.Switch {
	return switchFunc(func(on bool) { w.set(&w.radio, on) })
}

// ServoLine returns the servo output.
func (w *World) ServoLine() core.PWM {
	return pwmFunc(func(duty float64) {
		w.mu.Lock()
		w.servo = duty
		w.mu.Unlock()
	})
}

func (w *World) set(line *bool, on bool) {
	w.mu.Lock()
	*line = on
	w.mu.Unlock()
}

// Outputs returns the last state of the buzzer, radio sleep and servo lines.
func (w *World) Outputs() (buzzer, radioAsleep bool, servo float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buzzer, w.radio, w.servo
}

type switchFunc func(on bool)

func (f switchFunc) Set(on bool) { f(on) }

type pwmFunc func(duty float64)

func (f pwmFunc) Write(duty float64) { f(duty) }
