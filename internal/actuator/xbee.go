package actuator

import (
	"fmt"
	"io"
	"time"

	"github.com/autopeer-io/rover/internal/rover/core"
	"github.com/autopeer-io/rover/internal/scheduler"
)

// XBeeSleep drives the radio sleep request line.
type XBeeSleep struct {
	scheduler.Base
	pin    core.Switch
	asleep bool
}

// NewXBeeSleep creates the radio sleep task driving pin.
func NewXBeeSleep(pin core.Switch) *XBeeSleep {
	return &XBeeSleep{
		Base: scheduler.NewBase("xbee", scheduler.KindActuator, scheduler.PriorityActuator, scheduler.IntervalNever),
		pin:  pin,
	}
}

func (x *XBeeSleep) Init(time.Time) error {
	x.SetState(false)
	return nil
}

// Clean leaves the radio awake.
func (x *XBeeSleep) Clean() { x.SetState(false) }

// SetState puts the radio to sleep or wakes it.
func (x *XBeeSleep) SetState(sleep bool) {
	x.asleep = sleep
	x.pin.Set(sleep)
}

// Asleep reports the commanded radio state.
func (x *XBeeSleep) Asleep() bool { return x.asleep }

func (x *XBeeSleep) Command(out io.Writer, args []string) bool {
	if len(args) == 2 {
		switch args[1] {
		case "sleep":
			x.SetState(true)
			fmt.Fprintln(out, "Command Executed!")
			return true
		case "wake":
			x.SetState(false)
			fmt.Fprintln(out, "Command Executed!")
			return true
		}
	}
	fmt.Fprintln(out, "xbee [sleep/wake] : set sleep mode")
	return len(args) < 2
}
