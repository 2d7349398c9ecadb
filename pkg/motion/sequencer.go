package motion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gwillem/smootharm/internal/log"
	"github.com/gwillem/smootharm/pkg/robot"
)

// EventKind tags an Event.
type EventKind int

const (
	EventRunStart EventKind = iota
	EventHome
	EventPhaseStart
	EventTick
	EventWriteError
	EventPhaseEnd
	EventIdle
	EventRunEnd
)

var eventNames = [...]string{"run_start", "home", "phase_start", "tick", "write_error", "phase_end", "idle", "run_end"}

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventNames) {
		return fmt.Sprintf("event(%d)", int(k))
	}
	return eventNames[k]
}

func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Event is a snapshot of the run, emitted to observers. Observers run on the
// control loop and must not block.
type Event struct {
	Kind   EventKind            `json:"kind"`
	Run    string               `json:"run"`
	Phase  string               `json:"phase,omitempty"`
	Index  int                  `json:"index"`
	Total  int                  `json:"total"`
	Tick   int                  `json:"tick"`
	Ticks  int                  `json:"ticks"`
	Angles robot.Angles         `json:"angles"`
	Codes  [robot.NumJoints]int `json:"codes"`
	Stats  robot.Stats          `json:"stats"`
	Err    error                `json:"-"`
}

// Observer receives run events.
type Observer func(Event)

// Observers fans one event out to several observers.
func Observers(obs ...Observer) Observer {
	return func(e Event) {
		for _, o := range obs {
			if o != nil {
				o(e)
			}
		}
	}
}

// Result summarises a run.
type Result struct {
	Run    string        `json:"run"`
	Phases int           `json:"phases"`
	Ticks  int           `json:"ticks"`
	Paced  time.Duration `json:"paced"` // total time handed to the clock
	Stats  robot.Stats   `json:"stats"`
}

// Sequencer plays phases on an arm, one tick at a time. It is the only
// caller of the arm while it runs.
type Sequencer struct {
	arm      *robot.Arm
	clock    robot.Clock
	logger   *slog.Logger
	observer Observer
	policy   robot.WritePolicy
	speed    float32
	pause    time.Duration
	settle   time.Duration
	idle     time.Duration

	run     string
	base    robot.Stats
	result  Result
	targets []Target
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithClock replaces the wall clock, e.g. with a fake in tests.
func WithClock(c robot.Clock) Option {
	return func(s *Sequencer) { s.clock = c }
}

// WithObserver registers an observer for run events.
func WithObserver(o Observer) Option {
	return func(s *Sequencer) {
		if s.observer == nil {
			s.observer = o
			return
		}
		s.observer = Observers(s.observer, o)
	}
}

// WithLogger sets the logger for phase boundaries and failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sequencer) { s.logger = l }
}

// NewSequencer creates a sequencer driving arm with the arm's parameters.
func NewSequencer(arm *robot.Arm, opts ...Option) *Sequencer {
	p := arm.Params()
	s := &Sequencer{
		arm:    arm,
		clock:  robot.SystemClock{},
		policy: p.OnWriteError,
		speed:  p.Speed,
		pause:  p.PhasePause(),
		settle: p.HomeSettle(),
		idle:   p.IdleInterval(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.L()
	}
	return s
}

// Validate checks every phase before any of them is played.
func (s *Sequencer) Validate(phases []Phase) error {
	cal := s.arm.Calibration()
	for i, p := range phases {
		if err := p.Validate(cal); err != nil {
			return fmt.Errorf("phase %d: %w", i+1, err)
		}
	}
	return nil
}

// Run homes the arm, plays phases, returns every joint home and, if hold is
// set, idles until ctx is cancelled.
func (s *Sequencer) Run(ctx context.Context, phases []Phase, hold bool) (Result, error) {
	if err := s.Validate(phases); err != nil {
		return Result{}, err
	}
	s.begin()
	s.logger.Info("run started", "run", s.run, "phases", len(phases), "speed", s.speed)
	s.emit(Event{Kind: EventRunStart, Total: len(phases)})

	if err := s.Home(ctx); err != nil {
		return s.finish(err)
	}
	if err := s.play(ctx, phases); err != nil {
		return s.finish(err)
	}
	if err := s.home(ctx, 0); err != nil {
		return s.finish(err)
	}
	res, err := s.finish(nil)
	if hold {
		s.Hold(ctx)
	}
	return res, err
}

// Play runs phases in order without homing around them.
func (s *Sequencer) Play(ctx context.Context, phases []Phase) (Result, error) {
	if err := s.Validate(phases); err != nil {
		return Result{}, err
	}
	s.begin()
	return s.finish(s.play(ctx, phases))
}

func (s *Sequencer) begin() {
	s.run = uuid.NewString()
	s.base = s.arm.Stats()
	s.result = Result{Run: s.run}
}

func (s *Sequencer) finish(err error) (Result, error) {
	s.result.Stats = s.arm.Stats().Sub(s.base)
	attrs := []any{"run", s.run, "phases", s.result.Phases, "ticks", s.result.Ticks,
		"writes", s.result.Stats.Writes, "suppressed", s.result.Stats.Suppressed}
	if err != nil {
		s.logger.Error("run failed", append(attrs, "err", err)...)
	} else {
		s.logger.Info("run complete", attrs...)
	}
	s.emit(Event{Kind: EventRunEnd, Err: err})
	return s.result, err
}

func (s *Sequencer) play(ctx context.Context, phases []Phase) error {
	for i, p := range phases {
		if err := s.runPhase(ctx, i, len(phases), p); err != nil {
			return err
		}
		s.result.Phases++
	}
	return nil
}

// RunPhase validates and plays one phase: Ticks+1 ticks at t = i/Ticks, then
// the pause. Cancellation is noticed between ticks, never during a write.
func (s *Sequencer) RunPhase(ctx context.Context, index, total int, p Phase) error {
	if err := p.Validate(s.arm.Calibration()); err != nil {
		return err
	}
	return s.runPhase(ctx, index, total, p)
}

func (s *Sequencer) runPhase(ctx context.Context, index, total int, p Phase) error {
	p = p.Scale(s.speed)
	start := s.arm.Angles()

	s.logger.Info("phase", "run", s.run, "phase", p.Name, "index", index+1, "of", total,
		"ticks", p.Ticks, "mode", p.Mode, "profile", p.Profile)
	s.emit(Event{Kind: EventPhaseStart, Phase: p.Name, Index: index, Total: total, Ticks: p.Ticks})

	for i := 0; i <= p.Ticks; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		t := float32(i) / float32(p.Ticks)
		s.targets = p.Motion.Targets(s.targets[:0], p.Profile.At(t), start)
		for _, tgt := range s.targets {
			if err := s.apply(ctx, p.Mode, tgt); err != nil {
				return fmt.Errorf("phase %q tick %d: %w", p.Name, i, err)
			}
		}
		s.result.Ticks++
		s.emit(Event{Kind: EventTick, Phase: p.Name, Index: index, Total: total, Tick: i, Ticks: p.Ticks})
		if err := s.sleep(ctx, p.Delay); err != nil {
			return err
		}
	}

	s.emit(Event{Kind: EventPhaseEnd, Phase: p.Name, Index: index, Total: total, Ticks: p.Ticks})
	pause := p.Pause
	if pause == 0 {
		pause = s.pause
	}
	if pause > 0 {
		return s.sleep(ctx, pause)
	}
	return nil
}

func (s *Sequencer) apply(ctx context.Context, mode Mode, tgt Target) error {
	var err error
	if mode == Direct {
		err = s.arm.Set(ctx, tgt.Joint, tgt.Angle)
	} else {
		err = s.arm.Step(ctx, tgt.Joint, tgt.Angle)
	}
	return s.writeFailed(err)
}

// writeFailed applies the write policy. It returns nil when the failure is
// to be skipped.
func (s *Sequencer) writeFailed(err error) error {
	if err == nil {
		return nil
	}
	var we *robot.WriteError
	if !errors.As(err, &we) {
		return err
	}
	s.emit(Event{Kind: EventWriteError, Err: err})
	if s.policy == robot.Skip {
		s.logger.Warn("write failed, skipping", "run", s.run, "joint", we.Joint, "register", we.Register, "err", we.Err)
		return nil
	}
	return err
}

// Home writes every joint to the home angle and waits for the arm to settle.
func (s *Sequencer) Home(ctx context.Context) error {
	return s.home(ctx, s.settle)
}

func (s *Sequencer) home(ctx context.Context, settle time.Duration) error {
	s.logger.Info("homing", "run", s.run, "home", s.arm.Params().Home)
	var errs []error
	for _, j := range robot.AllJoints() {
		if err := s.writeFailed(s.arm.Set(ctx, j, s.arm.Params().Home)); err != nil {
			errs = append(errs, err)
		}
	}
	s.emit(Event{Kind: EventHome})
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("home: %w", err)
	}
	return s.sleep(ctx, settle)
}

// Hold idles with no motion until ctx is cancelled.
func (s *Sequencer) Hold(ctx context.Context) {
	s.logger.Info("holding", "run", s.run, "interval", s.idle)
	for {
		s.emit(Event{Kind: EventIdle})
		if err := s.clock.Sleep(ctx, s.idle); err != nil {
			return
		}
		if s.idle <= 0 {
			<-ctx.Done()
			return
		}
	}
}

func (s *Sequencer) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	s.result.Paced += d
	return s.clock.Sleep(ctx, d)
}

func (s *Sequencer) emit(e Event) {
	if s.observer == nil {
		return
	}
	e.Run = s.run
	e.Angles = s.arm.Angles()
	e.Codes = s.arm.Codes()
	e.Stats = s.arm.Stats().Sub(s.base)
	s.observer(e)
}
