// Package telemetry reports the mission to the ground station and accepts
// console lines from it.
package telemetry

import (
	"context"
	"time"

	"github.com/autopeer-io/rover/internal/mission"
	"github.com/autopeer-io/rover/internal/rover/core"
	"github.com/autopeer-io/rover/internal/scheduler"
)

// Status is the periodic summary of a rover.
type Status struct {
	Rover    string         `json:"rover"`
	Time     time.Time      `json:"time"`
	Mission  mission.Status `json:"mission"`
	Active   []string       `json:"active"`
	Fix      *core.Fix      `json:"fix,omitempty"`
	Attitude core.Attitude  `json:"attitude"`
	Pressure float64        `json:"pressure"`
	Light    bool           `json:"light"`
}

// TaskInfo describes one registered task.
type TaskInfo struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Priority uint32 `json:"priority"`
	Interval string `json:"interval"`
	Active   bool   `json:"active"`
}

// Reporter reads scheduler owned state from other goroutines.
type Reporter struct {
	roverID string
	sched   *scheduler.Scheduler
	sup     *mission.Supervisor
	sensors core.Sensors
}

// NewReporter creates a Reporter for one rover.
func NewReporter(roverID string, sched *scheduler.Scheduler, sup *mission.Supervisor, sensors core.Sensors) *Reporter {
	return &Reporter{roverID: roverID, sched: sched, sup: sup, sensors: sensors}
}

// RoverID returns the id of the reported rover.
func (r *Reporter) RoverID() string { return r.roverID }

// Status collects the current status between two ticks.
func (r *Reporter) Status(ctx context.Context) (Status, error) {
	st := Status{Rover: r.roverID}
	err := r.sched.Do(ctx, func() {
		st.Time = r.sched.Now()
		st.Mission = r.sup.Status()
		for _, t := range r.sched.Tasks() {
			if r.sched.IsActive(t) {
				st.Active = append(st.Active, t.Name())
			}
		}
	})
	if err != nil {
		return Status{}, err
	}

	if fix, ok := r.sensors.Position(); ok {
		st.Fix = &fix
	}
	st.Attitude = r.sensors.Attitude()
	st.Pressure = r.sensors.Pressure()
	st.Light = r.sensors.Light()
	return st, nil
}

// Tasks lists every registered task in registration order.
func (r *Reporter) Tasks(ctx context.Context) ([]TaskInfo, error) {
	var out []TaskInfo
	err := r.sched.Do(ctx, func() {
		for _, t := range r.sched.Tasks() {
			interval := t.Interval().String()
			if t.Interval() == scheduler.IntervalNever {
				interval = "never"
			}
			out = append(out, TaskInfo{
				Name:     t.Name(),
				Kind:     t.Kind().String(),
				Priority: uint32(t.Priority()),
				Interval: interval,
				Active:   r.sched.IsActive(t),
			})
		}
	})
	return out, err
}

// Submit runs a console line on the scheduler goroutine.
func (r *Reporter) Submit(ctx context.Context, line string) (string, error) {
	return r.sched.Submit(ctx, line)
}
