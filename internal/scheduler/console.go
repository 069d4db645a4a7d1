package scheduler

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gosuri/uitable"

	"github.com/autopeer-io/rover/internal/pkg/metrics"
)

// Console commands handled by the scheduler itself.
const (
	CommandTasks      = "tasks"
	CommandActivate   = "activate"
	CommandDeactivate = "deactivate"
)

// Dispatch executes one console line. The first token names a task, or one
// of the scheduler commands. Replies and usage text are written to out.
func (s *Scheduler) Dispatch(out io.Writer, line string) error {
	args := strings.Fields(line)
	if len(args) == 0 {
		return nil
	}

	err := s.dispatch(out, args)
	switch {
	case err == nil:
		metrics.ConsoleCommands.WithLabelValues("ok").Inc()
	case errors.Is(err, ErrUnknownCommand):
		metrics.ConsoleCommands.WithLabelValues("unknown").Inc()
		s.log.Info("Unknown console command", "line", line)
	default:
		metrics.ConsoleCommands.WithLabelValues("failed").Inc()
		s.log.Error(err, "Console command failed", "line", line)
	}
	return err
}

func (s *Scheduler) dispatch(out io.Writer, args []string) error {
	switch args[0] {
	case CommandTasks:
		s.writeTasks(out)
		return nil
	case CommandActivate, CommandDeactivate:
		if len(args) != 2 {
			fmt.Fprintf(out, "usage: %s <task>\n", args[0])
			return fmt.Errorf("%w: %s", ErrUnknownCommand, strings.Join(args, " "))
		}
		t, ok := s.Lookup(args[1])
		if !ok {
			fmt.Fprintf(out, "unknown task: %s\n", args[1])
			return fmt.Errorf("%w: %s", ErrUnknownTask, args[1])
		}
		if args[0] == CommandDeactivate {
			s.Deactivate(t)
			fmt.Fprintf(out, "%s deactivated\n", t.Name())
			return nil
		}
		if err := s.Activate(t); err != nil {
			fmt.Fprintf(out, "%s failed to activate: %v\n", t.Name(), err)
			return err
		}
		fmt.Fprintf(out, "%s activated\n", t.Name())
		return nil
	}

	e, ok := s.byName[args[0]]
	if !ok {
		fmt.Fprintf(out, "unknown command: %s\n", args[0])
		return fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
	}

	var handled bool
	if err := s.call(e.task, func() { handled = e.task.Command(out, args) }); err != nil {
		return err
	}
	if !handled {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, strings.Join(args, " "))
	}
	return nil
}

func (s *Scheduler) writeTasks(out io.Writer) {
	table := uitable.New()
	table.MaxColWidth = 32
	table.AddRow("NAME", "KIND", "PRIORITY", "INTERVAL", "ACTIVE")
	for _, e := range s.entries {
		t := e.task

		prio := fmt.Sprint(uint32(t.Priority()))
		if t.Priority() == PriorityManual {
			prio = "manual"
		}
		interval := t.Interval().String()
		if t.Interval() == IntervalNever {
			interval = "never"
		}

		table.AddRow(t.Name(), t.Kind(), prio, interval, e.active)
	}
	fmt.Fprintln(out, table)
}

// Submit runs a console line on the scheduler goroutine and returns its output.
func (s *Scheduler) Submit(ctx context.Context, line string) (string, error) {
	var buf bytes.Buffer
	var cmdErr error
	if err := s.Do(ctx, func() { cmdErr = s.Dispatch(&buf, line) }); err != nil {
		return "", err
	}
	return buf.String(), cmdErr
}

// Serve reads console lines from r until EOF or ctx ends, writing replies to out.
func (s *Scheduler) Serve(ctx context.Context, r io.Reader, out io.Writer) error {
	lines := make(chan string)
	errCh := make(chan error, 1)

	go func() {
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errCh <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			return err
		case line := <-lines:
			reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			reply, _ := s.Submit(reqCtx, line)
			cancel()
			if reply != "" {
				fmt.Fprint(out, reply)
			}
		}
	}
}
