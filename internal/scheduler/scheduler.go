package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/rover/internal/pkg/metrics"
	"github.com/autopeer-io/rover/internal/rover/core"
	"github.com/autopeer-io/rover/pkg/log"
)

var (
	ErrUnknownTask    = errors.New("unknown task")
	ErrDuplicateTask  = errors.New("duplicate task")
	ErrUnknownCommand = errors.New("unknown command")
	ErrInitFailed     = errors.New("task init failed")
)

type entry struct {
	task  Task
	order int

	active bool
	// epoch changes on every activation, so a task activated mid-tick waits for the next tick.
	epoch   uint64
	ran     bool
	lastRun time.Time
}

type request struct {
	fn   func()
	done chan struct{}
}

// Scheduler runs registered tasks cooperatively on a single goroutine.
// Task callbacks, activation changes and console commands all execute on
// the goroutine that calls Run (or Tick directly in tests).
type Scheduler struct {
	clock   clock.WithTicker
	sensors core.Sensors
	log     log.Logger

	entries []*entry
	sorted  []*entry
	byName  map[string]*entry

	seq      uint64
	epoch    uint64
	depth    int
	deferred []func()

	requests chan request
}

// New creates a scheduler that snapshots sensors once per tick.
func New(clk clock.WithTicker, sensors core.Sensors) *Scheduler {
	return &Scheduler{
		clock:    clk,
		sensors:  sensors,
		log:      log.WithName("scheduler"),
		byName:   make(map[string]*entry),
		requests: make(chan request),
	}
}

// Register adds tasks in construction order. Registered tasks start inactive.
func (s *Scheduler) Register(tasks ...Task) error {
	for _, t := range tasks {
		if _, ok := s.byName[t.Name()]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateTask, t.Name())
		}
		e := &entry{task: t, order: len(s.entries)}
		s.entries = append(s.entries, e)
		s.byName[t.Name()] = e
	}

	s.sorted = append(s.sorted[:0], s.entries...)
	sort.SliceStable(s.sorted, func(i, j int) bool {
		return s.sorted[i].task.Priority() < s.sorted[j].task.Priority()
	})
	return nil
}

// Now returns the scheduler clock.
func (s *Scheduler) Now() time.Time {
	return s.clock.Now()
}

// Lookup returns the registered task with the given name.
func (s *Scheduler) Lookup(name string) (Task, bool) {
	e, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return e.task, true
}

// Tasks returns every task in registration order.
func (s *Scheduler) Tasks() []Task {
	out := make([]Task, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.task)
	}
	return out
}

// IsActive reports whether t is active.
func (s *Scheduler) IsActive(t Task) bool {
	e, ok := s.byName[t.Name()]
	return ok && e.active
}

// Activate initializes t and makes it eligible for updates.
// Activating a mission task first deactivates every other active mission task.
// If Init fails the task stays inactive and the error wraps ErrInitFailed.
func (s *Scheduler) Activate(t Task) error {
	e, ok := s.byName[t.Name()]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, t.Name())
	}
	if e.active {
		return nil
	}

	if t.Kind() == KindMission {
		for _, other := range s.entries {
			if other != e && other.active && other.task.Kind() == KindMission {
				s.deactivate(other)
			}
		}
	}

	now := s.clock.Now()
	var initErr error
	if perr := s.call(t, func() { initErr = t.Init(now) }); perr != nil {
		initErr = perr
	}
	if initErr != nil {
		metrics.TaskActivations.WithLabelValues(t.Name(), "failed").Inc()
		s.log.Error(initErr, "Task init failed, leaving it inactive", "task", t.Name())
		return fmt.Errorf("%w: %s: %w", ErrInitFailed, t.Name(), initErr)
	}

	s.epoch++
	e.active = true
	e.epoch = s.epoch
	e.ran = false
	e.lastRun = now

	metrics.TaskActivations.WithLabelValues(t.Name(), "ok").Inc()
	s.log.Debug("Task activated", "task", t.Name(), "kind", t.Kind())
	return nil
}

// Deactivate runs t's Clean synchronously if it is active.
func (s *Scheduler) Deactivate(t Task) {
	if e, ok := s.byName[t.Name()]; ok {
		s.deactivate(e)
	}
}

func (s *Scheduler) deactivate(e *entry) {
	if !e.active {
		return
	}
	e.active = false
	_ = s.call(e.task, e.task.Clean)
	s.log.Debug("Task deactivated", "task", e.task.Name())
}

// Switch deactivates from and activates to. Clean of from completes before Init of to.
func (s *Scheduler) Switch(from, to Task) error {
	if from != nil {
		s.Deactivate(from)
	}
	if to == nil {
		return nil
	}
	return s.Activate(to)
}

// Defer queues fn to run once the current task callback returns.
// Outside a callback fn runs immediately.
func (s *Scheduler) Defer(fn func()) {
	if s.depth == 0 {
		fn()
		return
	}
	s.deferred = append(s.deferred, fn)
}

// Tick takes one sensor snapshot and updates every due task in priority order.
func (s *Scheduler) Tick() {
	start := time.Now()
	now := s.clock.Now()
	s.seq++

	tick := &Tick{Now: now, Seq: s.seq}
	if s.sensors != nil {
		tick.Snapshot = core.Capture(s.sensors, now)
	} else {
		tick.Snapshot.Time = now
	}

	type due struct {
		e     *entry
		epoch uint64
	}
	pass := make([]due, 0, len(s.sorted))
	for _, e := range s.sorted {
		if e.active && scheduled(e.task) {
			pass = append(pass, due{e: e, epoch: e.epoch})
		}
	}

	for _, d := range pass {
		e := d.e
		if !e.active || e.epoch != d.epoch {
			continue
		}
		if e.ran && now.Sub(e.lastRun) < e.task.Interval() {
			continue
		}
		e.ran = true
		e.lastRun = now

		metrics.TaskUpdates.WithLabelValues(e.task.Name()).Inc()
		if err := s.call(e.task, func() { e.task.Update(tick) }); err != nil {
			s.deactivate(e)
		}
	}

	metrics.SchedulerTicks.Inc()
	metrics.TickDuration.Observe(time.Since(start).Seconds())
}

// Run ticks every period until ctx ends, serving queued requests between ticks.
// Every task is deactivated before Run returns.
func (s *Scheduler) Run(ctx context.Context, period time.Duration) error {
	if period <= 0 {
		return fmt.Errorf("tick period must be positive, got %s", period)
	}

	ticker := s.clock.NewTicker(period)
	defer ticker.Stop()
	defer s.Shutdown()

	s.log.Info("Scheduler started", "period", period, "tasks", len(s.entries))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("Scheduler stopping")
			return nil
		case <-ticker.C():
			s.Tick()
		case req := <-s.requests:
			req.fn()
			close(req.done)
		}
	}
}

// Do runs fn on the scheduler goroutine between ticks and waits for it.
func (s *Scheduler) Do(ctx context.Context, fn func()) error {
	req := request{fn: fn, done: make(chan struct{})}
	select {
	case s.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown deactivates every active task, mission tasks first.
func (s *Scheduler) Shutdown() {
	for _, kind := range []Kind{KindMission, KindBackground, KindActuator} {
		for _, e := range s.entries {
			if e.task.Kind() == kind {
				s.deactivate(e)
			}
		}
	}
}

// call runs a task callback, flushing deferred work once the outermost callback returns.
// A panicking callback is logged and reported as an error.
func (s *Scheduler) call(t Task, fn func()) (err error) {
	s.depth++
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("task %s panicked: %v", t.Name(), r)
				s.log.Error(err, "Recovered task panic", "task", t.Name())
			}
		}()
		fn()
	}()
	s.depth--

	if s.depth == 0 {
		s.flush()
	}
	return err
}

func (s *Scheduler) flush() {
	for len(s.deferred) > 0 {
		fn := s.deferred[0]
		s.deferred = s.deferred[1:]
		func() {
			s.depth++
			defer func() {
				s.depth--
				if r := recover(); r != nil {
					s.log.Error(fmt.Errorf("%v", r), "Recovered panic in deferred work")
				}
			}()
			fn()
		}()
	}
}
