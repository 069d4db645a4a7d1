package scheduler

import (
	"io"
	"math"
	"time"

	"github.com/autopeer-io/rover/internal/rover/core"
)

// Priority orders tasks within a tick; lower runs first.
type Priority uint32

// PriorityManual marks a task that is never updated by the scheduler.
// It only reacts to activation and console commands.
const PriorityManual Priority = math.MaxUint32

// Priority bands. Mission states run first so actuators apply their commands in the same tick.
const (
	PriorityMission    Priority = 10
	PriorityActuator   Priority = 20
	PriorityBackground Priority = 30
)

// IntervalNever marks a task whose update is never invoked automatically.
const IntervalNever time.Duration = -1

// Kind groups tasks by the invariant the scheduler enforces on them.
type Kind int

const (
	// KindBackground tasks run alongside everything else.
	KindBackground Kind = iota
	// KindActuator tasks own one output line.
	KindActuator
	// KindMission tasks are mission states; at most one is active.
	KindMission
)

func (k Kind) String() string {
	switch k {
	case KindBackground:
		return "background"
	case KindActuator:
		return "actuator"
	case KindMission:
		return "mission"
	default:
		return "unknown"
	}
}

// Tick is passed to every update callback of one scheduler pass.
type Tick struct {
	// Now is the scheduler clock at the start of the tick.
	Now time.Time
	// Seq increases by one per tick.
	Seq uint64
	// Snapshot holds the sensor readings shared by the whole tick.
	Snapshot core.Snapshot
}

// Task is the capability interface every schedulable unit implements.
type Task interface {
	Name() string
	Kind() Kind
	Priority() Priority
	Interval() time.Duration

	// Init runs on activation. A non-nil error aborts the activation.
	Init(now time.Time) error

	// Update runs when the task is active and its interval elapsed.
	Update(t *Tick)

	// Clean runs once on deactivation and must leave owned outputs safe.
	Clean()

	// Command handles a console line whose first token is the task name.
	// It writes any reply to out and reports whether args were understood.
	Command(out io.Writer, args []string) bool
}

// Base carries the static task attributes and no-op callbacks.
// Tasks embed it and override what they need.
type Base struct {
	name     string
	kind     Kind
	priority Priority
	interval time.Duration
}

// NewBase returns the attributes of a task.
func NewBase(name string, kind Kind, priority Priority, interval time.Duration) Base {
	return Base{name: name, kind: kind, priority: priority, interval: interval}
}

func (b *Base) Name() string            { return b.name }
func (b *Base) Kind() Kind              { return b.kind }
func (b *Base) Priority() Priority      { return b.priority }
func (b *Base) Interval() time.Duration { return b.interval }

func (b *Base) Init(time.Time) error             { return nil }
func (b *Base) Update(*Tick)                     {}
func (b *Base) Clean()                           {}
func (b *Base) Command(io.Writer, []string) bool { return false }

// scheduled reports whether the scheduler ever invokes the task's update on its own.
func scheduled(t Task) bool {
	return t.Priority() != PriorityManual && t.Interval() != IntervalNever
}
