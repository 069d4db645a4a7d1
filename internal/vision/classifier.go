// Package vision turns the features of a camera frame into mission decisions.
// Pixel work (colour thresholds, Sobel edges, horizon search) happens in the
// capture pipeline; this package only reasons about its output.
package vision

import (
	"math/rand/v2"

	"github.com/autopeer-io/rover/internal/rover/core"
	"github.com/autopeer-io/rover/pkg/log"
)

var _ core.Vision = (*Classifier)(nil)

// Buzzer is the alert raised when a rut is seen.
type Buzzer interface {
	Start(period int)
}

// Config holds the decision thresholds.
type Config struct {
	// ParaThreshold is the parachute pixel share above which the parachute counts as present.
	ParaThreshold float64 `json:"para-threshold" mapstructure:"para-threshold"`
	// SkyThreshold is the sky pixel share at or above which the camera faces the sky.
	SkyThreshold float64 `json:"sky-threshold" mapstructure:"sky-threshold"`
	// RutRate is the edge share ratio between adjacent strips that marks a rut edge.
	RutRate float64 `json:"rut-rate" mapstructure:"rut-rate"`
	// RutAverageRate scales the mean strip density a rut strip must exceed.
	RutAverageRate float64 `json:"rut-average-rate" mapstructure:"rut-average-rate"`
	// HorizonSpread is the horizon height spread, in pixels, above which no exit side is trusted.
	HorizonSpread float64 `json:"horizon-spread" mapstructure:"horizon-spread"`
	// AlertPeriod is the buzzer period started on a rut.
	AlertPeriod int `json:"alert-period" mapstructure:"alert-period"`
}

// DefaultConfig returns the thresholds tuned on the field camera.
func DefaultConfig() Config {
	return Config{
		ParaThreshold:  0.05,
		SkyThreshold:   0.9,
		RutRate:        1.6,
		RutAverageRate: 0.7,
		HorizonSpread:  150,
		AlertPeriod:    100,
	}
}

// Classifier implements core.Vision.
type Classifier struct {
	cfg    Config
	buzzer Buzzer
	rnd    *rand.Rand
	log    log.Logger
}

// NewClassifier creates a Classifier. buzzer may be nil.
func NewClassifier(cfg Config, buzzer Buzzer, rnd *rand.Rand) *Classifier {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Classifier{cfg: cfg, buzzer: buzzer, rnd: rnd, log: log.WithName("vision")}
}

// IsParaExist assumes the parachute is present when there is no frame.
func (c *Classifier) IsParaExist(f *core.Frame) bool {
	if f == nil {
		c.log.Info("Para detection: unable to get image")
		return true
	}
	c.log.Debug("Para ratio", "ratio", f.ParaRatio)
	return f.ParaRatio > c.cfg.ParaThreshold
}

func (c *Classifier) IsSky(f *core.Frame) bool {
	if f == nil {
		c.log.Info("Sky detection: unable to get image")
		return false
	}
	c.log.Debug("Sky ratio", "ratio", f.SkyRatio)
	return f.SkyRatio >= c.cfg.SkyThreshold
}

// IsWadachiExist looks for a strip whose edge share drops sharply below the
// strip above it while still carrying more than the average share of edges.
func (c *Classifier) IsWadachiExist(f *core.Frame) bool {
	if f == nil {
		c.log.Info("Wadachi predicting: unable to get image")
		return false
	}

	risk := f.StripEdges
	n := len(risk)
	if n < 2 {
		return false
	}

	var sum float64
	for _, r := range risk {
		sum += r
	}
	avg := sum / float64(n)
	if avg == 0 {
		avg = 1
	}
	if sum == 0 {
		sum = 1
	}

	rate := make([]float64, n)
	for i := range risk {
		rate[i] = risk[i] / sum
	}

	found := false
	for i := n - 1; i > 0; i-- {
		if rate[i] == 0 {
			rate[i] = 1
		}
		if rate[i-1]/rate[i] > c.cfg.RutRate && risk[i] > avg*c.cfg.RutAverageRate {
			found = true
		}
	}

	if found {
		c.log.Info("Wadachi found", "frame", f.Seq)
		if c.buzzer != nil {
			c.buzzer.Start(c.cfg.AlertPeriod)
		}
	}
	return found
}

// WadachiExiting picks the side with the lower height-normalised edge density.
// Without a frame it picks a side at random.
func (c *Classifier) WadachiExiting(f *core.Frame) int {
	if f == nil || len(f.ColumnEdges) < 2 || len(f.Horizon) != len(f.ColumnEdges) {
		c.log.Info("Escaping: unable to get image, choosing a random side")
		return c.randomSide()
	}

	maxH, minH := f.Horizon[0], f.Horizon[0]
	for _, h := range f.Horizon[1:] {
		maxH = max(maxH, h)
		minH = min(minH, h)
	}
	if maxH-minH > c.cfg.HorizonSpread {
		return 0
	}

	n := len(f.ColumnEdges)
	heights := make([]float64, n)
	var avgHeight float64
	for i, h := range f.Horizon {
		heights[i] = float64(f.Height) - h
		if heights[i] <= 0 {
			heights[i] = 1
		}
		avgHeight += heights[i]
	}
	avgHeight /= float64(n)

	first := f.ColumnEdges[0] * avgHeight / heights[0]
	last := f.ColumnEdges[n-1] * avgHeight / heights[n-1]
	if first < last {
		c.log.Debug("Exit direction", "side", "left", "left", first, "right", last)
		return -1
	}
	c.log.Debug("Exit direction", "side", "right", "left", first, "right", last)
	return 1
}

func (c *Classifier) GoalBlob(f *core.Frame) (core.Blob, bool) {
	if f == nil || f.Blob == nil {
		return core.Blob{}, false
	}
	return *f.Blob, true
}

func (c *Classifier) randomSide() int {
	if c.rnd.IntN(2) != 0 {
		return 1
	}
	return -1
}
