package hal

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/rover/internal/rover/core"
	"github.com/autopeer-io/rover/pkg/log"
	"github.com/autopeer-io/rover/pkg/mqtt"
	"github.com/autopeer-io/rover/pkg/mqtt/topic"
)

// Sensor kinds, the last level of {root}/rover/sensor/{roverID}/{kind}.
const (
	SensorGPS      = "gps"
	SensorIMU      = "imu"
	SensorPressure = "pressure"
	SensorEncoder  = "encoder"
	SensorCamera   = "camera"
	SensorLight    = "light"
)

var _ core.Sensors = (*Bridge)(nil)

type gpsReading struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	Alt float64 `json:"alt"`
	Fix bool    `json:"fix"`
}

type imuReading struct {
	Roll  float64      `json:"roll"`
	Pitch float64      `json:"pitch"`
	Yaw   float64      `json:"yaw"`
	Rate  core.Vector3 `json:"rate"`
}

type pressureReading struct {
	HPa float64 `json:"hpa"`
}

type encoderReading struct {
	Left  uint64 `json:"left"`
	Right uint64 `json:"right"`
}

type cameraReading struct {
	core.Frame
	JPEG []byte `json:"jpeg"`
}

type lightReading struct {
	On bool `json:"on"`
}

// Bridge caches the readings published by the external sensor drivers and
// serves them as core.Sensors. Fixes and frames expire so a dead driver reads
// as an absent sensor.
type Bridge struct {
	clk         clock.PassiveClock
	maxFixAge   time.Duration
	maxFrameAge time.Duration

	mu       sync.RWMutex
	fix      core.Fix
	hasFix   bool
	fixAt    time.Time
	att      core.Attitude
	rate     core.Vector3
	pressure float64
	left     uint64
	right    uint64
	frame    *core.Frame
	frameAt  time.Time
	light    bool
	lightPin func() bool
}

// NewBridge creates an empty Bridge.
func NewBridge(clk clock.PassiveClock, maxFixAge, maxFrameAge time.Duration) *Bridge {
	return &Bridge{clk: clk, maxFixAge: maxFixAge, maxFrameAge: maxFrameAge}
}

// SetLightPin reads the light sensor from a GPIO line instead of the bridge.
func (b *Bridge) SetLightPin(read func() bool) {
	b.mu.Lock()
	b.lightPin = read
	b.mu.Unlock()
}

// Subscribe routes every sensor topic of the rover into the bridge.
func (b *Bridge) Subscribe(ctx context.Context, client mqtt.Client, tb *topic.TopicBuilder, roverID string) error {
	return client.Subscribe(ctx, tb.SensorWildcard(roverID), mqtt.AtMostOnce, func(_ context.Context, t string, payload []byte) {
		kind := topic.LastSegment(t)
		if err := b.Handle(kind, payload); err != nil {
			log.Warn("Dropped sensor reading", "kind", kind, "err", err.Error())
		}
	})
}

// Handle decodes one reading of kind.
func (b *Bridge) Handle(kind string, payload []byte) error {
	now := b.clk.Now()

	switch kind {
	case SensorGPS:
		var r gpsReading
		if err := json.Unmarshal(payload, &r); err != nil {
			return fmt.Errorf("decode %s: %w", kind, err)
		}
		b.mu.Lock()
		b.fix, b.hasFix, b.fixAt = core.Fix{Lat: r.Lat, Lon: r.Lon, Alt: r.Alt}, r.Fix, now
		b.mu.Unlock()

	case SensorIMU:
		var r imuReading
		if err := json.Unmarshal(payload, &r); err != nil {
			return fmt.Errorf("decode %s: %w", kind, err)
		}
		b.mu.Lock()
		b.att, b.rate = core.Attitude{Roll: r.Roll, Pitch: r.Pitch, Yaw: r.Yaw}, r.Rate
		b.mu.Unlock()

	case SensorPressure:
		var r pressureReading
		if err := json.Unmarshal(payload, &r); err != nil {
			return fmt.Errorf("decode %s: %w", kind, err)
		}
		b.mu.Lock()
		b.pressure = r.HPa
		b.mu.Unlock()

	case SensorEncoder:
		var r encoderReading
		if err := json.Unmarshal(payload, &r); err != nil {
			return fmt.Errorf("decode %s: %w", kind, err)
		}
		b.mu.Lock()
		b.left, b.right = r.Left, r.Right
		b.mu.Unlock()

	case SensorCamera:
		var r cameraReading
		if err := json.Unmarshal(payload, &r); err != nil {
			return fmt.Errorf("decode %s: %w", kind, err)
		}
		frame := r.Frame
		frame.JPEG = r.JPEG
		b.mu.Lock()
		b.frame, b.frameAt = &frame, now
		b.mu.Unlock()

	case SensorLight:
		var r lightReading
		if err := json.Unmarshal(payload, &r); err != nil {
			return fmt.Errorf("decode %s: %w", kind, err)
		}
		b.mu.Lock()
		b.light = r.On
		b.mu.Unlock()

	default:
		return fmt.Errorf("unknown sensor kind %q", kind)
	}
	return nil
}

func (b *Bridge) Position() (core.Fix, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.hasFix || b.clk.Since(b.fixAt) > b.maxFixAge {
		return core.Fix{}, false
	}
	return b.fix, true
}

func (b *Bridge) Attitude() core.Attitude {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.att
}

func (b *Bridge) AngularRate() core.Vector3 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rate
}

func (b *Bridge) Pressure() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.pressure
}

func (b *Bridge) Light() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.lightPin != nil {
		return b.lightPin()
	}
	return b.light
}

func (b *Bridge) Pulses() (uint64, uint64) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.left, b.right
}

func (b *Bridge) Frame() *core.Frame {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.frame == nil || b.clk.Since(b.frameAt) > b.maxFrameAge {
		return nil
	}
	return b.frame
}
