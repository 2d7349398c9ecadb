// Package player runs a motion sequence in the background and streams its
// progress to a user interface.
package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gwillem/smootharm/pkg/motion"
	"github.com/gwillem/smootharm/pkg/robot"
)

// ErrAlreadyRunning is returned by Start while a run is in progress.
var ErrAlreadyRunning = errors.New("already running")

// State is the latest snapshot of a run.
type State struct {
	Run       string
	Phase     string
	Index     int
	Total     int
	Tick      int
	Ticks     int
	Angles    robot.Angles
	Codes     [robot.NumJoints]int
	Stats     robot.Stats
	Holding   bool
	Done      bool
	Timestamp time.Time
	Error     error
}

// Config holds configuration for the player.
type Config struct {
	Phases   []motion.Phase
	Hold     bool            // idle at home after the last phase until cancelled
	Clock    robot.Clock     // nil for the wall clock
	Logger   *slog.Logger    // nil for the default logger
	Observer motion.Observer // extra observer, e.g. a telemetry hub
}

// Player owns an arm and plays one sequence on it at a time.
type Player struct {
	arm *robot.Arm
	cfg Config

	mu      sync.RWMutex
	state   State
	running bool
	result  motion.Result
	stateCh chan State
	logCh   chan string
}

// New creates a player for arm.
func New(arm *robot.Arm, cfg Config) *Player {
	return &Player{
		arm:     arm,
		cfg:     cfg,
		stateCh: make(chan State, 1),
		logCh:   make(chan string, 10),
	}
}

// Close releases the arm's driver.
func (p *Player) Close() error {
	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return p.arm.Close()
}

// States returns a channel that receives state updates. Stale states are
// dropped when the reader falls behind.
func (p *Player) States() <-chan State {
	return p.stateCh
}

// Logs returns a channel that receives human readable progress lines.
func (p *Player) Logs() <-chan string {
	return p.logCh
}

// State returns the most recent snapshot.
func (p *Player) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Running reports whether a run is in progress.
func (p *Player) Running() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// Result returns the summary of the last finished run.
func (p *Player) Result() motion.Result {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.result
}

func (p *Player) log(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case p.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Start plays the configured phases and blocks until the run ends, or, with
// Hold set, until ctx is cancelled.
func (p *Player) Start(ctx context.Context) (motion.Result, error) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return motion.Result{}, ErrAlreadyRunning
	}
	p.running = true
	p.mu.Unlock()

	opts := []motion.Option{motion.WithObserver(p.observe)}
	if p.cfg.Clock != nil {
		opts = append(opts, motion.WithClock(p.cfg.Clock))
	}
	if p.cfg.Logger != nil {
		opts = append(opts, motion.WithLogger(p.cfg.Logger))
	}
	if p.cfg.Observer != nil {
		opts = append(opts, motion.WithObserver(p.cfg.Observer))
	}
	seq := motion.NewSequencer(p.arm, opts...)

	res, err := seq.Run(ctx, p.cfg.Phases, p.cfg.Hold)

	p.mu.Lock()
	p.running = false
	p.result = res
	s := p.state
	p.mu.Unlock()

	s.Done = true
	s.Holding = false
	s.Error = err
	s.Timestamp = time.Now()
	p.sendState(s)
	if err != nil && !errors.Is(err, context.Canceled) {
		p.log("Stopped: %v", err)
	} else {
		p.log("Stopped")
	}
	return res, err
}

// observe runs on the control loop and must not block.
func (p *Player) observe(e motion.Event) {
	p.mu.Lock()
	s := p.state
	wasHolding := s.Holding
	s.Run = e.Run
	s.Angles = e.Angles
	s.Codes = e.Codes
	s.Stats = e.Stats
	s.Timestamp = time.Now()
	switch e.Kind {
	case motion.EventRunStart:
		s = State{Run: e.Run, Total: e.Total, Angles: e.Angles, Codes: e.Codes, Timestamp: s.Timestamp}
		wasHolding = false
	case motion.EventPhaseStart, motion.EventTick, motion.EventPhaseEnd:
		s.Phase, s.Index, s.Total = e.Phase, e.Index, e.Total
		s.Tick, s.Ticks = e.Tick, e.Ticks
	case motion.EventIdle:
		s.Holding = true
	case motion.EventWriteError:
		s.Error = e.Err
	}
	p.state = s
	p.mu.Unlock()

	switch e.Kind {
	case motion.EventRunStart:
		p.log("Run %s: %d phases", short(e.Run), e.Total)
	case motion.EventHome:
		p.log("Homed")
	case motion.EventPhaseStart:
		p.log("Phase %d/%d %s: %d ticks", e.Index+1, e.Total, e.Phase, e.Ticks)
	case motion.EventWriteError:
		p.log("Write error: %v", e.Err)
	case motion.EventRunEnd:
		if e.Err == nil {
			p.log("Sequence complete: %d writes, %d suppressed, %d failed",
				e.Stats.Writes, e.Stats.Suppressed, e.Stats.Failures)
		}
	case motion.EventIdle:
		if !wasHolding {
			p.log("Holding at home")
		}
	}
	p.sendState(s)
}

func (p *Player) sendState(s State) {
	select {
	case p.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-p.stateCh:
		default:
		}
		select {
		case p.stateCh <- s:
		default:
		}
	}
}

func short(run string) string {
	if len(run) > 8 {
		return run[:8]
	}
	return run
}
