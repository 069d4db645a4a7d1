package core

import (
	"math"
	"time"
)

// Vector3 is a three-axis reading.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Norm returns the Euclidean length of v.
func (v Vector3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Fix is a GPS position.
type Fix struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	Alt float64 `json:"alt"`
}

// Attitude is the integrated orientation in degrees.
type Attitude struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// Snapshot is an immutable set of readings taken once per scheduler tick.
// Every task updated in the same tick observes the same Snapshot.
type Snapshot struct {
	Time       time.Time `json:"time"`
	Fix        Fix       `json:"fix"`
	HasFix     bool      `json:"hasFix"`
	Attitude   Attitude  `json:"attitude"`
	Rate       Vector3   `json:"rate"`
	Pressure   float64   `json:"pressure"`
	Light      bool      `json:"light"`
	PulseLeft  uint64    `json:"pulseLeft"`
	PulseRight uint64    `json:"pulseRight"`
	Frame      *Frame    `json:"-"`
}

// Capture reads every sensor once.
func Capture(s Sensors, now time.Time) Snapshot {
	snap := Snapshot{
		Time:     now,
		Attitude: s.Attitude(),
		Rate:     s.AngularRate(),
		Pressure: s.Pressure(),
		Light:    s.Light(),
		Frame:    s.Frame(),
	}
	snap.Fix, snap.HasFix = s.Position()
	snap.PulseLeft, snap.PulseRight = s.Pulses()
	return snap
}
