package motion

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gwillem/smootharm/pkg/robot"
)

// Mode selects how a phase's targets reach the arm.
type Mode int

const (
	// Filtered runs every target through the smoother.
	Filtered Mode = iota
	// Direct writes targets straight into the smoothed angle, for crisp
	// catch and release motions.
	Direct
)

func (m Mode) String() string {
	if m == Direct {
		return "direct"
	}
	return "filtered"
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "", "filtered":
		*m = Filtered
	case "direct":
		*m = Direct
	default:
		return fmt.Errorf("unknown mode %q", b)
	}
	return nil
}

// NoPause as a Phase.Pause disables the pause after the phase.
const NoPause time.Duration = -1

// Phase is one timed segment of motion. Ticks+1 evaluations run, at
// t = 0, 1/Ticks, ..., 1, each followed by Delay.
type Phase struct {
	Name    string
	Ticks   int
	Delay   time.Duration
	Pause   time.Duration // settle time after the phase; zero uses the run default
	Mode    Mode
	Profile Profile
	Motion  Motion
}

// Validate checks the phase against the joint calibration. An invalid phase
// is an authoring bug and is reported before anything moves.
func (p Phase) Validate(cal robot.Calibration) error {
	if p.Ticks < 1 {
		return fmt.Errorf("%w %q: ticks must be at least 1", ErrInvalidPhase, p.Name)
	}
	if p.Delay < 0 {
		return fmt.Errorf("%w %q: negative delay", ErrInvalidPhase, p.Name)
	}
	if err := p.Profile.Validate(); err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidPhase, p.Name, err)
	}
	if p.Motion == nil {
		return fmt.Errorf("%w %q: no motion", ErrInvalidPhase, p.Name)
	}
	if err := p.Motion.Validate(cal); err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidPhase, p.Name, err)
	}
	return nil
}

// Scale stretches the phase by speed: tick count and per-tick delay are
// both multiplied, with at least one tick.
func (p Phase) Scale(speed float32) Phase {
	if speed == 1 || speed <= 0 {
		return p
	}
	p.Ticks = max(1, int(math.Round(float64(p.Ticks)*float64(speed))))
	p.Delay = time.Duration(float64(p.Delay) * float64(speed))
	return p
}

// Duration is the nominal wall-clock time of the phase, pause excluded.
func (p Phase) Duration() time.Duration {
	return time.Duration(p.Ticks+1) * p.Delay
}

// Target is one commanded joint angle.
type Target struct {
	Joint robot.Joint
	Angle float32
}

// Motion computes the targets of a phase from the shaped progress s. start
// holds the arm's smoothed angles when the phase began.
type Motion interface {
	Targets(dst []Target, s float32, start robot.Angles) []Target
	Validate(cal robot.Calibration) error
}

// Move drives one joint between two angles. A nil From starts from wherever
// the joint is when the phase begins.
type Move struct {
	Joint robot.Joint `json:"joint"`
	From  *float32    `json:"from,omitempty"`
	To    float32     `json:"to"`
}

// From returns a pointer to deg, for Move literals.
func From(deg float32) *float32 {
	return &deg
}

// Sweep moves each listed joint independently along the shaped progress.
type Sweep []Move

func (sw Sweep) Targets(dst []Target, s float32, start robot.Angles) []Target {
	for _, m := range sw {
		from := start[m.Joint]
		if m.From != nil {
			from = *m.From
		}
		dst = append(dst, Target{Joint: m.Joint, Angle: from + (m.To-from)*s})
	}
	return dst
}

func (sw Sweep) Validate(cal robot.Calibration) error {
	if len(sw) == 0 {
		return fmt.Errorf("sweep moves no joint")
	}
	seen := make(map[robot.Joint]bool, len(sw))
	for _, m := range sw {
		if !m.Joint.Valid() {
			return fmt.Errorf("%w: %d", robot.ErrUnknownJoint, int(m.Joint))
		}
		if seen[m.Joint] {
			return fmt.Errorf("%s moved twice", m.Joint)
		}
		seen[m.Joint] = true
		jc := cal.For(m.Joint)
		if m.From != nil && !jc.Contains(*m.From) {
			return fmt.Errorf("%s from %g: %w", m.Joint, *m.From, robot.ErrAngleOutOfRange)
		}
		if !jc.Contains(m.To) {
			return fmt.Errorf("%s to %g: %w", m.Joint, m.To, robot.ErrAngleOutOfRange)
		}
	}
	return nil
}

// Axis is one joint of an Orbit: Center + Amplitude·sin(θ + Offset).
type Axis struct {
	Joint     robot.Joint `json:"joint"`
	Center    float32     `json:"center"`
	Amplitude float32     `json:"amplitude"`
	Offset    float32     `json:"offset"` // radians
}

// Orbit couples joints through one shared angle θ = 2π·Revolutions·s. A
// shoulder at Offset 0 and an elbow at Offset π/2 trace a circle.
type Orbit struct {
	Revolutions float32 `json:"revolutions"`
	Axes        []Axis  `json:"axes"`
}

// Circle returns the two-joint orbit of radius r around center.
func Circle(a, b robot.Joint, center, r, revolutions float32) Orbit {
	return Orbit{
		Revolutions: revolutions,
		Axes: []Axis{
			{Joint: a, Center: center, Amplitude: r},
			{Joint: b, Center: center, Amplitude: r, Offset: math.Pi / 2},
		},
	}
}

func (o Orbit) Targets(dst []Target, s float32, _ robot.Angles) []Target {
	theta := 2 * math.Pi * float64(o.Revolutions) * float64(s)
	for _, ax := range o.Axes {
		angle := ax.Center + ax.Amplitude*float32(math.Sin(theta+float64(ax.Offset)))
		dst = append(dst, Target{Joint: ax.Joint, Angle: angle})
	}
	return dst
}

func (o Orbit) Validate(cal robot.Calibration) error {
	if o.Revolutions <= 0 {
		return fmt.Errorf("orbit needs positive revolutions")
	}
	if len(o.Axes) == 0 {
		return fmt.Errorf("orbit moves no joint")
	}
	seen := make(map[robot.Joint]bool, len(o.Axes))
	for _, ax := range o.Axes {
		if !ax.Joint.Valid() {
			return fmt.Errorf("%w: %d", robot.ErrUnknownJoint, int(ax.Joint))
		}
		if seen[ax.Joint] {
			return fmt.Errorf("%s on two axes", ax.Joint)
		}
		seen[ax.Joint] = true
		amp := float32(math.Abs(float64(ax.Amplitude)))
		jc := cal.For(ax.Joint)
		if !jc.Contains(ax.Center-amp) || !jc.Contains(ax.Center+amp) {
			return fmt.Errorf("%s orbit [%g,%g]: %w", ax.Joint, ax.Center-amp, ax.Center+amp, robot.ErrAngleOutOfRange)
		}
	}
	return nil
}

// Hold keeps joints where they were at the start of the phase.
type Hold []robot.Joint

func (h Hold) Targets(dst []Target, _ float32, start robot.Angles) []Target {
	for _, j := range h {
		dst = append(dst, Target{Joint: j, Angle: start[j]})
	}
	return dst
}

func (h Hold) Validate(robot.Calibration) error {
	for _, j := range h {
		if !j.Valid() {
			return fmt.Errorf("%w: %d", robot.ErrUnknownJoint, int(j))
		}
	}
	return nil
}
