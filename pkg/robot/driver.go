package robot

import (
	"context"
	"time"
)

// Driver is the actuator capability the arm writes through. SetDuty commands
// one joint with a bus-level duty register value.
type Driver interface {
	SetDuty(ctx context.Context, j Joint, register uint32) error
	Close() error
}

// Clock paces the control loop. Sleep returns early with ctx.Err() when the
// context is cancelled; it never interrupts a write because it is only called
// between ticks.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock sleeps on the wall clock.
type SystemClock struct{}

func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
