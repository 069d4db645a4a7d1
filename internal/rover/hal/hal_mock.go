package hal

import (
	"github.com/autopeer-io/rover/internal/rover/core"
	"github.com/autopeer-io/rover/internal/rover/sim"
	"github.com/autopeer-io/rover/pkg/log"
)

var _ core.HAL = (*Mock)(nil)

// Mock flies the mission against a simulated world.
type Mock struct {
	id    string
	world *sim.World
}

func NewMock(id string, world *sim.World) *Mock {
	if id == "" {
		id = "rover-sim-001"
	}
	log.Info("[HAL-Mock] Using the simulated world", "rover", id)
	return &Mock{id: id, world: world}
}

func (h *Mock) RoverID() string         { return h.id }
func (h *Mock) Sensors() core.Sensors   { return h.world }
func (h *Mock) Buzzer() core.Switch     { return h.world.BuzzerLine() }
func (h *Mock) RadioSleep() core.Switch { return h.world.RadioLine() }
func (h *Mock) Servo() core.PWM         { return h.world.ServoLine() }
func (h *Mock) Motors() core.Motors     { return h.world }
func (h *Mock) World() *sim.World       { return h.world }

func (h *Mock) Close() error {
	h.world.Drive(0, 0)
	h.world.BuzzerLine().Set(false)
	h.world.RadioLine().Set(false)
	h.world.ServoLine().Write(0)
	pos, heading := h.world.Pose()
	log.Info("[HAL-Mock] Released", "x", pos.X, "y", pos.Y, "heading", heading)
	return nil
}
