// Package motion authors and plays time-parameterized motion for the arm.
//
// A motion is an ordered list of phases. Each phase runs a fixed number of
// ticks; at tick i the progress t = i/Ticks is remapped by the phase's
// shaping profile and turned into per-joint targets, which the arm smooths,
// quantizes and writes through its change gate.
package motion

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MinimumJerk is the quintic 10t³ − 15t⁴ + 6t⁵. It has zero velocity and
// zero acceleration at both ends.
func MinimumJerk(t float32) float32 {
	x := float64(t)
	return float32(x * x * x * (10 - 15*x + 6*x*x))
}

// Linear returns t unchanged.
func Linear(t float32) float32 {
	return t
}

// EaseIn is t^p. With p < 1 the motion starts fast.
func EaseIn(t, p float32) float32 {
	return float32(math.Pow(float64(t), float64(p)))
}

// EaseOut is 1 − (1−t)^p. With p < 1 the motion approaches fast and settles
// slowly.
func EaseOut(t, p float32) float32 {
	return 1 - float32(math.Pow(float64(1-t), float64(p)))
}

// ProfileKind selects a shaping function.
type ProfileKind int

const (
	KindMinimumJerk ProfileKind = iota
	KindLinear
	KindEaseIn
	KindEaseOut
)

var kindNames = map[ProfileKind]string{
	KindMinimumJerk: "minimum_jerk",
	KindLinear:      "linear",
	KindEaseIn:      "ease_in",
	KindEaseOut:     "ease_out",
}

// Profile is a shaping function with its parameter. The zero value is
// minimum jerk.
type Profile struct {
	Kind  ProfileKind
	Power float32
}

// Shaping profiles used by the built-in routines.
var (
	Smooth = Profile{Kind: KindMinimumJerk}
	Steady = Profile{Kind: KindLinear}
)

// Snap is a fast-start ease-in.
func Snap(p float32) Profile {
	return Profile{Kind: KindEaseIn, Power: p}
}

// Settle is a fast-then-slow ease-out.
func Settle(p float32) Profile {
	return Profile{Kind: KindEaseOut, Power: p}
}

// At evaluates the profile at progress t in [0,1]. The result is clamped to
// [0,1] so float32 rounding near the ends cannot overshoot an endpoint.
func (p Profile) At(t float32) float32 {
	var s float32
	switch p.Kind {
	case KindLinear:
		s = Linear(t)
	case KindEaseIn:
		s = EaseIn(t, p.Power)
	case KindEaseOut:
		s = EaseOut(t, p.Power)
	default:
		s = MinimumJerk(t)
	}
	return min(max(s, 0), 1)
}

// Validate rejects unknown kinds and non-positive powers.
func (p Profile) Validate() error {
	if _, ok := kindNames[p.Kind]; !ok {
		return fmt.Errorf("unknown profile kind %d", p.Kind)
	}
	if (p.Kind == KindEaseIn || p.Kind == KindEaseOut) && p.Power <= 0 {
		return fmt.Errorf("%s needs a positive power", kindNames[p.Kind])
	}
	return nil
}

func (p Profile) String() string {
	name, ok := kindNames[p.Kind]
	if !ok {
		return fmt.Sprintf("profile(%d)", p.Kind)
	}
	if p.Kind == KindEaseIn || p.Kind == KindEaseOut {
		return fmt.Sprintf("%s(%s)", name, strconv.FormatFloat(float64(p.Power), 'g', -1, 32))
	}
	return name
}

// ParseProfile parses "minimum_jerk", "linear", "ease_in(0.3)" or
// "ease_out(0.4)".
func ParseProfile(s string) (Profile, error) {
	s = strings.TrimSpace(s)
	name, arg, hasArg := strings.Cut(s, "(")
	var kind ProfileKind
	found := false
	for k, n := range kindNames {
		if n == name {
			kind, found = k, true
			break
		}
	}
	if !found {
		return Profile{}, fmt.Errorf("unknown profile %q", s)
	}

	p := Profile{Kind: kind}
	if hasArg {
		arg, ok := strings.CutSuffix(arg, ")")
		if !ok {
			return Profile{}, fmt.Errorf("profile %q: missing ')'", s)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(arg), 32)
		if err != nil {
			return Profile{}, fmt.Errorf("profile %q: %w", s, err)
		}
		p.Power = float32(v)
	}
	return p, p.Validate()
}

func (p Profile) MarshalText() ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return []byte(p.String()), nil
}

func (p *Profile) UnmarshalText(b []byte) error {
	parsed, err := ParseProfile(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
