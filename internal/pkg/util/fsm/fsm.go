package fsm

import (
	"context"
	"errors"

	"github.com/looplab/fsm"
)

// WrapEvent adapts an error-returning callback; the error is surfaced by FSM.Event.
func WrapEvent(fn func(ctx context.Context, event *fsm.Event) error) fsm.Callback {
	return func(ctx context.Context, event *fsm.Event) {
		if err := fn(ctx, event); err != nil {
			event.Err = err
		}
	}
}

// IsRejected reports whether err means the event did not apply in the current state.
func IsRejected(err error) bool {
	var invalid fsm.InvalidEventError
	var unknown fsm.UnknownEventError
	var none fsm.NoTransitionError
	var canceled fsm.CanceledError
	return errors.As(err, &invalid) || errors.As(err, &unknown) || errors.As(err, &none) || errors.As(err, &canceled)
}
