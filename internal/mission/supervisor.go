// Package mission holds the mission states of the rover and the supervisor
// that moves between them.
package mission

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"

	"github.com/autopeer-io/rover/internal/pkg/metrics"
	fsmutil "github.com/autopeer-io/rover/internal/pkg/util/fsm"
	"github.com/autopeer-io/rover/internal/rover/core"
	"github.com/autopeer-io/rover/internal/scheduler"
	"github.com/autopeer-io/rover/pkg/log"
)

// Mission states. Every state except StateCompleted and StateAborted is backed by a task of the same name.
const (
	StateTesting        = "testing"
	StateWaiting        = "waiting"
	StateFalling        = "falling"
	StateSeparating     = "separating"
	StateNavigating     = "navigating"
	StateEscaping       = "escaping"
	StateEscapingRandom = "escaping_random"
	StateAvoiding       = "avoiding"
	StateTurning        = "turning"
	StateWaking         = "waking"
	StateColorAccessing = "color_accessing"
	StateCompleted      = "completed"
	StateAborted        = "aborted"
)

// Mission events.
const (
	EventStart      = "start"
	EventLight      = "light"
	EventLanded     = "landed"
	EventSeparated  = "separated"
	EventStuck      = "stuck"
	EventStuckBlind = "stuck_blind"
	EventFallback   = "fallback"
	EventHazard     = "hazard"
	EventPivot      = "pivot"
	EventOverturned = "overturned"
	EventRecovered  = "recovered"
	EventApproach   = "approach"
	EventRenavigate = "renavigate"
	EventArrived    = "arrived"
	EventGiveUp     = "give_up"
	EventFault      = "fault"

	// eventBoot and eventGoto label transitions that bypass the graph.
	eventBoot = "boot"
	eventGoto = "goto"
)

// ErrInvalidTransition is returned when an event does not apply to the current state.
var ErrInvalidTransition = errors.New("invalid mission transition")

var maneuvers = []string{StateEscaping, StateEscapingRandom, StateAvoiding, StateTurning, StateWaking}

// States lists every mission state in mission order.
func States() []string {
	return []string{
		StateTesting, StateWaiting, StateFalling, StateSeparating, StateNavigating,
		StateEscaping, StateEscapingRandom, StateAvoiding, StateTurning, StateWaking,
		StateColorAccessing, StateCompleted, StateAborted,
	}
}

func events() fsm.Events {
	return fsm.Events{
		{Name: EventStart, Src: []string{StateTesting}, Dst: StateWaiting},
		{Name: EventLight, Src: []string{StateWaiting}, Dst: StateFalling},
		{Name: EventLanded, Src: []string{StateFalling}, Dst: StateSeparating},
		{Name: EventSeparated, Src: []string{StateSeparating}, Dst: StateNavigating},

		// Navigation hands control to a maneuver, which hands it back.
		{Name: EventStuck, Src: []string{StateNavigating}, Dst: StateEscaping},
		{Name: EventStuckBlind, Src: []string{StateNavigating}, Dst: StateEscapingRandom},
		{Name: EventHazard, Src: []string{StateNavigating}, Dst: StateAvoiding},
		{Name: EventPivot, Src: []string{StateNavigating}, Dst: StateTurning},
		{Name: EventOverturned, Src: []string{StateNavigating}, Dst: StateWaking},
		{Name: EventFallback, Src: []string{StateEscaping}, Dst: StateEscapingRandom},
		{Name: EventRecovered, Src: maneuvers, Dst: StateNavigating},

		// Terminal approach.
		{Name: EventApproach, Src: []string{StateNavigating}, Dst: StateColorAccessing},
		{Name: EventRenavigate, Src: []string{StateColorAccessing}, Dst: StateNavigating},
		{Name: EventArrived, Src: []string{StateNavigating, StateColorAccessing}, Dst: StateCompleted},
		{Name: EventGiveUp, Src: []string{StateColorAccessing}, Dst: StateAborted},

		// A mission task that cannot start ends the mission.
		{Name: EventFault, Src: slices.DeleteFunc(States(), terminal), Dst: StateAborted},
	}
}

func terminal(state string) bool { return state == StateCompleted || state == StateAborted }

// Request carries parameters to the state entered by a transition.
type Request struct {
	// Direction is -1 for left and +1 for right. Zero lets the state choose.
	Direction int
	// Angle overrides the configured turn angle when positive.
	Angle float64
}

// preparer is implemented by states that take a Request.
type preparer interface {
	Prepare(req Request)
}

// Transition describes one change of mission state.
type Transition struct {
	Run    string    `json:"run"`
	From   string    `json:"from"`
	To     string    `json:"to"`
	Event  string    `json:"event"`
	Forced bool      `json:"forced,omitempty"`
	Time   time.Time `json:"time"`
}

// Memory is the mission state kept across state activations.
type Memory struct {
	// RunID identifies this mission run.
	RunID string
	// Goal is the navigation target. HasGoal is false when none is set.
	Goal    core.Fix
	HasGoal bool
	// Renavigations counts colour approaches restarted from navigation.
	Renavigations int
}

// Status is a point-in-time view of the supervisor.
type Status struct {
	Run           string    `json:"run"`
	State         string    `json:"state"`
	Since         time.Time `json:"since"`
	Goal          *core.Fix `json:"goal,omitempty"`
	Renavigations int       `json:"renavigations"`
}

type pendingEvent struct {
	name string
	req  Request
}

// Supervisor owns the mission graph and switches the active mission task on
// every transition. It must only be used from the scheduler goroutine.
type Supervisor struct {
	scheduler.Base
	sched *scheduler.Scheduler
	fsm   *fsm.FSM
	log   log.Logger

	tasks     map[string]scheduler.Task
	listeners []func(Transition)
	onDone    func(state string)

	memory Memory
	since  time.Time

	firing  bool
	pending []pendingEvent
}

// NewSupervisor creates a supervisor in initial state. No task is activated until Start.
func NewSupervisor(sched *scheduler.Scheduler, initial string) (*Supervisor, error) {
	if !slices.Contains(States(), initial) {
		return nil, fmt.Errorf("unknown mission state %q", initial)
	}

	s := &Supervisor{
		Base:   scheduler.NewBase("mission", scheduler.KindBackground, scheduler.PriorityManual, scheduler.IntervalNever),
		sched:  sched,
		log:    log.WithName("mission"),
		tasks:  make(map[string]scheduler.Task),
		memory: Memory{RunID: uuid.NewString()},
	}
	s.fsm = fsm.NewFSM(initial, events(), fsm.Callbacks{
		"enter_state": fsmutil.WrapEvent(s.onEnter),
	})
	return s, nil
}

// Bind attaches the task that runs while the mission is in state.
func (s *Supervisor) Bind(state string, t scheduler.Task) {
	s.tasks[state] = t
}

// OnTransition registers fn to be called after every transition.
func (s *Supervisor) OnTransition(fn func(Transition)) {
	s.listeners = append(s.listeners, fn)
}

// OnDone registers fn to be called when a terminal state is entered.
func (s *Supervisor) OnDone(fn func(state string)) {
	s.onDone = fn
}

// Start activates the task of the current state.
func (s *Supervisor) Start() error {
	state := s.fsm.Current()
	s.log.Info("Mission started", "run", s.memory.RunID, "state", state)
	return s.enter("", state, eventBoot, Request{}, false)
}

// Current returns the current mission state.
func (s *Supervisor) Current() string { return s.fsm.Current() }

// Memory returns the cross-state mission memory.
func (s *Supervisor) Memory() *Memory { return &s.memory }

// SetGoal replaces the navigation goal. A zero position clears it.
func (s *Supervisor) SetGoal(goal core.Fix) {
	s.memory.Goal = goal
	s.memory.HasGoal = goal.Lat != 0 || goal.Lon != 0
	s.log.Info("Navigation goal set", "lat", goal.Lat, "lon", goal.Lon, "enabled", s.memory.HasGoal)
}

// Status returns the supervisor state.
func (s *Supervisor) Status() Status {
	st := Status{
		Run:           s.memory.RunID,
		State:         s.fsm.Current(),
		Since:         s.since,
		Renavigations: s.memory.Renavigations,
	}
	if s.memory.HasGoal {
		goal := s.memory.Goal
		st.Goal = &goal
	}
	return st
}

// Signal requests a transition once the current task callback returns.
// A request that does not apply to the current state is logged and dropped.
func (s *Supervisor) Signal(event string, req ...Request) {
	var r Request
	if len(req) > 0 {
		r = req[0]
	}
	s.sched.Defer(func() {
		if err := s.Fire(event, r); err != nil {
			s.log.Warn("Mission event dropped", "event", event, "state", s.Current(), "err", err.Error())
		}
	})
}

// Fire applies event synchronously. Events fired while a transition is in progress
// are applied after it.
func (s *Supervisor) Fire(event string, req Request) error {
	if s.firing {
		s.pending = append(s.pending, pendingEvent{name: event, req: req})
		return nil
	}

	s.firing = true
	err := s.fire(event, req)
	for len(s.pending) > 0 {
		next := s.pending[0]
		s.pending = s.pending[1:]
		if perr := s.fire(next.name, next.req); perr != nil {
			s.log.Warn("Queued mission event dropped", "event", next.name, "err", perr.Error())
		}
	}
	s.firing = false
	return err
}

func (s *Supervisor) fire(event string, req Request) error {
	err := s.fsm.Event(context.Background(), event, req)
	if err != nil && fsmutil.IsRejected(err) {
		return fmt.Errorf("%w: %s in %s: %w", ErrInvalidTransition, event, s.fsm.Current(), err)
	}
	return err
}

// fault aborts the mission once the transition in progress has completed.
func (s *Supervisor) fault() {
	if s.firing {
		s.pending = append(s.pending, pendingEvent{name: EventFault})
		return
	}
	if err := s.Fire(EventFault, Request{}); err != nil {
		s.log.Warn("Mission abort failed", "state", s.Current(), "err", err.Error())
	}
}

// Goto forces the mission into state regardless of the graph.
func (s *Supervisor) Goto(state string, req Request) error {
	if !slices.Contains(States(), state) {
		return fmt.Errorf("%w: unknown state %q", ErrInvalidTransition, state)
	}
	from := s.fsm.Current()
	if from == state {
		return nil
	}
	s.fsm.SetState(state)
	s.log.Warn("Mission state forced", "from", from, "to", state)
	return s.enter(from, state, eventGoto, req, true)
}

func (s *Supervisor) onEnter(_ context.Context, e *fsm.Event) error {
	var req Request
	if len(e.Args) > 0 {
		if r, ok := e.Args[0].(Request); ok {
			req = r
		}
	}
	return s.enter(e.Src, e.Dst, e.Event, req, false)
}

// enter swaps the mission task. The outgoing task is cleaned before the incoming one is initialised.
func (s *Supervisor) enter(from, to, event string, req Request, forced bool) error {
	now := s.sched.Now()
	s.since = now

	if from != "" {
		metrics.MissionState.WithLabelValues(from).Set(0)
		metrics.MissionTransitions.WithLabelValues(from, to, event).Inc()
	}
	metrics.MissionState.WithLabelValues(to).Set(1)
	s.log.Info("Mission transition", "from", from, "to", to, "event", event, "forced", forced)

	prev := s.tasks[from]
	next := s.tasks[to]
	if p, ok := next.(preparer); ok {
		p.Prepare(req)
	}

	var err error
	if next == nil {
		for _, t := range s.sched.Tasks() {
			if t.Kind() == scheduler.KindMission {
				s.sched.Deactivate(t)
			}
		}
	} else {
		err = s.sched.Switch(prev, next)
	}

	tr := Transition{Run: s.memory.RunID, From: from, To: to, Event: event, Forced: forced, Time: now}
	for _, fn := range s.listeners {
		fn(tr)
	}
	if terminal(to) && s.onDone != nil {
		s.onDone(to)
	}

	if err != nil {
		s.log.Error(err, "Mission task failed to start, aborting", "state", to)
		s.fault()
		return fmt.Errorf("enter %s: %w", to, err)
	}
	return nil
}

const supervisorUsage = `mission                      : show mission state
mission goto [state]         : force a mission state
mission event [event]        : fire a mission event
mission states               : list mission states`

func (s *Supervisor) Command(out io.Writer, args []string) bool {
	switch {
	case len(args) == 1:
		st := s.Status()
		fmt.Fprintf(out, "run %s: %s since %s, renavigations %d\n", st.Run, st.State, st.Since.Format(time.RFC3339), st.Renavigations)
		if st.Goal != nil {
			fmt.Fprintf(out, "goal %s,%s\n", formatDeg(st.Goal.Lat), formatDeg(st.Goal.Lon))
		}
		return true
	case len(args) == 2 && args[1] == "states":
		fmt.Fprintln(out, strings.Join(States(), " "))
		return true
	case len(args) == 3 && args[1] == "goto":
		if err := s.Goto(args[2], Request{}); err != nil {
			fmt.Fprintf(out, "%v\n", err)
			return false
		}
		fmt.Fprintf(out, "mission forced to %s\n", args[2])
		return true
	case len(args) == 3 && args[1] == "event":
		if err := s.Fire(args[2], Request{}); err != nil {
			fmt.Fprintf(out, "%v\n", err)
			return false
		}
		fmt.Fprintf(out, "mission is %s\n", s.Current())
		return true
	}
	fmt.Fprintln(out, supervisorUsage)
	return false
}

func formatDeg(v float64) string {
	return strconv.FormatFloat(v, 'f', 7, 64)
}
