package vision

import (
	"fmt"
	"io"

	"github.com/autopeer-io/rover/internal/rover/core"
	"github.com/autopeer-io/rover/internal/scheduler"
)

// Task exposes the classifier on the console as `image predict|exit|sky|para`.
type Task struct {
	scheduler.Base
	vision  core.Vision
	sensors core.Sensors
}

// NewTask creates the console task for v.
func NewTask(v core.Vision, sensors core.Sensors) *Task {
	return &Task{
		Base:    scheduler.NewBase("image", scheduler.KindBackground, scheduler.PriorityManual, scheduler.IntervalNever),
		vision:  v,
		sensors: sensors,
	}
}

func (t *Task) Command(out io.Writer, args []string) bool {
	if len(args) == 2 {
		frame := t.sensors.Frame()
		switch args[1] {
		case "predict":
			fmt.Fprintf(out, "wadachi: %t\n", t.vision.IsWadachiExist(frame))
			return true
		case "exit":
			fmt.Fprintf(out, "exit direction: %d\n", t.vision.WadachiExiting(frame))
			return true
		case "sky":
			fmt.Fprintf(out, "sky: %t\n", t.vision.IsSky(frame))
			return true
		case "para":
			fmt.Fprintf(out, "para: %t\n", t.vision.IsParaExist(frame))
			return true
		}
		fmt.Fprintln(out, usage)
		return false
	}
	fmt.Fprintln(out, usage)
	return true
}

const usage = "image [predict/exit/sky/para]  : test program"
