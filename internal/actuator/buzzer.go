// Package actuator holds the tasks that own the rover's output lines.
package actuator

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/autopeer-io/rover/internal/rover/core"
	"github.com/autopeer-io/rover/internal/scheduler"
	"github.com/autopeer-io/rover/pkg/log"
)

// DefaultOffPeriod is the silence between beeps when only an on period is given.
const DefaultOffPeriod = 500

// Buzzer beeps in on/off cycles. Periods are counted in buzzer updates.
type Buzzer struct {
	scheduler.Base
	pin core.Switch
	log log.Logger

	onPeriod, offPeriod int
	onMemory, offMemory int
	count               int
}

// NewBuzzer creates the buzzer task driving pin.
func NewBuzzer(pin core.Switch) *Buzzer {
	return &Buzzer{
		Base: scheduler.NewBase("buzzer", scheduler.KindActuator, scheduler.PriorityActuator, 0),
		pin:  pin,
		log:  log.WithName("buzzer"),
	}
}

func (b *Buzzer) Init(time.Time) error {
	b.onPeriod, b.offPeriod, b.count = 0, 0, 0
	b.pin.Set(false)
	return nil
}

func (b *Buzzer) Clean() {
	b.onPeriod, b.offPeriod, b.count = 0, 0, 0
	b.pin.Set(false)
}

func (b *Buzzer) Update(*scheduler.Tick) {
	if b.offPeriod == 1 {
		b.restart()
	} else if b.offPeriod > 0 {
		b.offPeriod--
		return
	}

	if b.onPeriod == 1 {
		b.Stop()
	} else if b.onPeriod > 0 {
		b.onPeriod--
	}
}

// Start beeps once for period updates.
func (b *Buzzer) Start(period int) {
	b.StartCycles(period, DefaultOffPeriod, 1)
}

// StartCount beeps count times for period updates, separated by DefaultOffPeriod.
func (b *Buzzer) StartCount(period, count int) {
	b.StartCycles(period, DefaultOffPeriod, count)
}

// StartCycles beeps count times. A request while a beep is sounding is ignored.
func (b *Buzzer) StartCycles(on, off, count int) {
	if b.onPeriod != 0 || on <= 1 || off <= 1 || count < 1 {
		return
	}
	b.log.Debug("Buzzer start", "on", on, "off", off, "count", count)
	b.onMemory, b.onPeriod = on, on
	b.offMemory, b.offPeriod = off, 0
	b.count = count
	b.pin.Set(true)
}

func (b *Buzzer) restart() {
	b.pin.Set(true)
	b.onPeriod = b.onMemory
	b.offPeriod = 0
}

// Stop silences the current beep. Remaining cycles resume after the off period.
func (b *Buzzer) Stop() {
	b.onPeriod = 0
	b.pin.Set(false)

	if b.count == 1 {
		b.log.Debug("Buzzer stop")
		b.count = 0
	} else if b.count > 0 {
		b.offPeriod = b.offMemory
		b.count--
	}
}

// Sounding reports whether the buzzer is on.
func (b *Buzzer) Sounding() bool { return b.onPeriod > 0 }

// Busy reports whether a beep sequence is still running.
func (b *Buzzer) Busy() bool { return b.onPeriod > 0 || b.offPeriod > 0 || b.count > 0 }

const buzzerUsage = `buzzer [period]                         : wake buzzer while period
buzzer [period] [count]                 : wake buzzer several times (COUNT)
buzzer [on period] [off period] [count] : wake buzzer several times (COUNT)
buzzer stop                             : stop buzzer`

func (b *Buzzer) Command(out io.Writer, args []string) bool {
	if len(args) == 2 && args[1] == "stop" {
		b.Stop()
		fmt.Fprintln(out, "Command Executed!")
		return true
	}

	nums, ok := atois(args[1:])
	if !ok || len(nums) == 0 || len(nums) > 3 {
		fmt.Fprintln(out, buzzerUsage)
		return len(args) < 2
	}

	switch len(nums) {
	case 1:
		b.Start(nums[0])
	case 2:
		b.StartCount(nums[0], nums[1])
	case 3:
		b.StartCycles(nums[0], nums[1], nums[2])
	}
	fmt.Fprintln(out, "Command Executed!")
	return true
}

func atois(args []string) ([]int, bool) {
	out := make([]int, 0, len(args))
	for _, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}
