package player

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gwillem/smootharm/internal/log"
	"github.com/gwillem/smootharm/pkg/actuator"
	"github.com/gwillem/smootharm/pkg/motion"
	"github.com/gwillem/smootharm/pkg/robot"
)

// instantClock returns immediately
type instantClock struct{}

func (instantClock) Sleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// blockingClock waits for cancellation
type blockingClock struct{}

func (blockingClock) Sleep(ctx context.Context, _ time.Duration) error {
	<-ctx.Done()
	return ctx.Err()
}

func newPlayer(t *testing.T, cfg Config) (*Player, *actuator.Recorder) {
	t.Helper()
	p := robot.DefaultParams()
	rec := actuator.NewRecorder(p.Duty())
	arm, err := robot.NewArm(rec, p, robot.DefaultCalibration())
	if err != nil {
		t.Fatalf("NewArm: %v", err)
	}
	cfg.Logger = log.Discard()
	return New(arm, cfg), rec
}

func sweep(ticks int) []motion.Phase {
	return []motion.Phase{{
		Name:    "base out",
		Ticks:   ticks,
		Delay:   3 * time.Millisecond,
		Profile: motion.Smooth,
		Motion:  motion.Sweep{{Joint: robot.Base, To: 160}},
	}}
}

func drainLogs(p *Player) []string {
	var out []string
	for {
		select {
		case l := <-p.Logs():
			out = append(out, l)
		default:
			return out
		}
	}
}

func TestPlayer_Start(t *testing.T) {
	p, rec := newPlayer(t, Config{Phases: sweep(10), Clock: instantClock{}})

	res, err := p.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if res.Phases != 1 || res.Ticks != 11 {
		t.Errorf("Result = %+v, want 1 phase of 11 ticks", res)
	}
	if p.Running() {
		t.Error("Running() = true after Start returned")
	}
	if p.Result().Run != res.Run {
		t.Errorf("Result().Run = %q, want %q", p.Result().Run, res.Run)
	}

	s := <-p.States()
	if !s.Done || s.Error != nil {
		t.Errorf("final state = %+v, want done without error", s)
	}
	if s.Run != res.Run {
		t.Errorf("state run = %q, want %q", s.Run, res.Run)
	}
	if rec.Count(robot.Base) == 0 {
		t.Error("no base writes recorded")
	}

	logs := strings.Join(drainLogs(p), "\n")
	for _, want := range []string{"Homed", "Phase 1/1 base out: 10 ticks", "Sequence complete"} {
		if !strings.Contains(logs, want) {
			t.Errorf("logs missing %q:\n%s", want, logs)
		}
	}
}

func TestPlayer_ForwardsToObserver(t *testing.T) {
	var kinds []motion.EventKind
	p, _ := newPlayer(t, Config{
		Phases:   sweep(2),
		Clock:    instantClock{},
		Observer: func(e motion.Event) { kinds = append(kinds, e.Kind) },
	})
	if _, err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(kinds) == 0 || kinds[0] != motion.EventRunStart || kinds[len(kinds)-1] != motion.EventRunEnd {
		t.Errorf("observed %v, want run_start ... run_end", kinds)
	}
}

func TestPlayer_AlreadyRunning(t *testing.T) {
	p, _ := newPlayer(t, Config{Phases: sweep(10), Clock: blockingClock{}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := p.Start(ctx)
		done <- err
	}()

	// the first state arrives once the run has started
	<-p.States()
	if _, err := p.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start = %v, want ErrAlreadyRunning", err)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Start after cancel = %v, want context.Canceled", err)
	}
	if p.Running() {
		t.Error("Running() = true after cancel")
	}
}

func TestPlayer_HoldAfterRun(t *testing.T) {
	p, _ := newPlayer(t, Config{Phases: sweep(2), Clock: &holdClock{}, Hold: true})

	if _, err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	logs := strings.Join(drainLogs(p), "\n")
	if strings.Count(logs, "Holding at home") != 1 {
		t.Errorf("logs should announce holding once:\n%s", logs)
	}
}

// holdClock lets the run finish, then cancels the hold on the fourth one
// second sleep. The first is the home settle.
type holdClock struct {
	seconds int
}

func (c *holdClock) Sleep(ctx context.Context, d time.Duration) error {
	if d == time.Second {
		c.seconds++
		if c.seconds > 3 {
			return context.Canceled
		}
	}
	return ctx.Err()
}
