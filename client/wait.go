package client

import (
	"context"
	"time"

	"github.com/reglet-dev/oneshot/domain/ports"
)

// signal is a completion flag written by a callback and read by a waiter.
// Callbacks and waiters share one goroutine, so no locking is involved.
type signal struct {
	fired bool
}

func (s *signal) fire()       { s.fired = true }
func (s *signal) reset()      { s.fired = false }
func (s *signal) isSet() bool { return s.fired }

// waiter suspends the caller until a signal fires, yielding to the stack's
// event loop in between so callbacks get to run.
type waiter struct {
	loop ports.EventLoop
	step time.Duration
}

// await returns the index of the first fired signal. The signals are checked
// before the first step, so a callback that already ran costs no step.
func (w waiter) await(ctx context.Context, sigs ...*signal) (int, error) {
	for {
		for i, s := range sigs {
			if s.isSet() {
				return i, nil
			}
		}
		if err := ctx.Err(); err != nil {
			return -1, err
		}
		if err := w.loop.Step(ctx, w.step); err != nil {
			return -1, err
		}
	}
}

// withOptionalTimeout bounds ctx by d when d is positive.
func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
