package motion

import (
	"fmt"
	"time"

	"github.com/gwillem/smootharm/pkg/robot"
)

// Routine is a named, built-in choreography.
type Routine struct {
	Name        string
	Description string
	build       func(home float32) []Phase
}

// Phases returns the routine's phase table for the given home angle.
func (r Routine) Phases(home float32) []Phase {
	return r.build(home)
}

// RoutineGap separates routines played back to back by "all".
const RoutineGap = 2 * time.Second

var catalogue = []Routine{
	{"test", "each joint 90 → 60 → 120 → 90 in 2° steps", testPhases},
	{"circles", "ten shoulder/elbow circles, then back to centre", circlePhases},
	{"base", "base sweep right, whip left, return", basePhases},
	{"gripper", "snap open, grab, release and catch, pulse, release", gripperPhases},
	{"wave", "three phase-offset waves across all joints", wavePhases},
	{"demo", "circles, base and gripper", demoPhases},
	{"all", "test, circles, base, gripper and wave", allPhases},
	{"stop", "ease shoulder, elbow and gripper back home", stopPhases},
}

// Routines lists the built-in routines.
func Routines() []Routine {
	return append([]Routine(nil), catalogue...)
}

// Lookup finds a routine by name.
func Lookup(name string) (Routine, error) {
	for _, r := range catalogue {
		if r.Name == name {
			return r, nil
		}
	}
	return Routine{}, fmt.Errorf("%w: %q", ErrUnknownRoutine, name)
}

func testPhases(home float32) []Phase {
	var phases []Phase
	for _, j := range robot.AllJoints() {
		step := func(name string, from, to float32, pause time.Duration) Phase {
			return Phase{
				Name:    fmt.Sprintf("%s %s", j, name),
				Ticks:   max(1, int(abs(to-from)/2)),
				Delay:   20 * time.Millisecond,
				Pause:   pause,
				Mode:    Direct,
				Profile: Steady,
				Motion:  Sweep{{Joint: j, From: From(from), To: to}},
			}
		}
		phases = append(phases,
			step("to 60", home, 60, 200*time.Millisecond),
			step("to 120", 60, 120, 200*time.Millisecond),
			step("back", 120, home, 300*time.Millisecond),
		)
	}
	return phases
}

func circlePhases(home float32) []Phase {
	return []Phase{
		{
			Name:    "arm circles",
			Ticks:   2500,
			Delay:   4 * time.Millisecond,
			Pause:   NoPause,
			Profile: Steady,
			Motion:  Circle(robot.Shoulder, robot.Elbow, 90, 30, 10),
		},
		{
			Name:    "return to centre",
			Ticks:   100,
			Delay:   4 * time.Millisecond,
			Pause:   300 * time.Millisecond,
			Mode:    Direct,
			Profile: Smooth,
			Motion:  Sweep{{Joint: robot.Shoulder, To: home}, {Joint: robot.Elbow, To: home}},
		},
	}
}

func basePhases(home float32) []Phase {
	sweep := func(name string, from, to float32, ticks int, delay, pause time.Duration) Phase {
		return Phase{
			Name:    name,
			Ticks:   ticks,
			Delay:   delay,
			Pause:   pause,
			Profile: Smooth,
			Motion:  Sweep{{Joint: robot.Base, From: From(from), To: to}},
		}
	}
	return []Phase{
		sweep("base sweep right", home, 160, 300, 3*time.Millisecond, 100*time.Millisecond),
		sweep("base whip left", 160, 20, 300, 3*time.Millisecond, 100*time.Millisecond),
		sweep("base return", 20, home, 200, 4*time.Millisecond, 300*time.Millisecond),
	}
}

func gripperPhases(home float32) []Phase {
	move := func(name string, from, to float32, ticks int, delay, pause time.Duration, mode Mode, prof Profile) Phase {
		return Phase{
			Name:    name,
			Ticks:   ticks,
			Delay:   delay,
			Pause:   pause,
			Mode:    mode,
			Profile: prof,
			Motion:  Sweep{{Joint: robot.Gripper, From: From(from), To: to}},
		}
	}
	ms := time.Millisecond
	phases := []Phase{
		move("snap open", home, 120, 80, 3*ms, 200*ms, Filtered, Snap(0.3)),
		move("gentle grab", 120, 40, 200, 5*ms, 300*ms, Filtered, Settle(0.4)),
		move("quick release", 40, 100, 60, 3*ms, 50*ms, Direct, Smooth),
		move("catch", 100, 45, 80, 4*ms, 200*ms, Direct, Settle(0.5)),
	}
	for i := 1; i <= 4; i++ {
		relax := NoPause
		if i == 4 {
			relax = 200 * ms
		}
		phases = append(phases,
			move(fmt.Sprintf("squeeze %d", i), 45, 35, 50, 4*ms, NoPause, Direct, Smooth),
			move(fmt.Sprintf("relax %d", i), 35, 50, 50, 4*ms, relax, Direct, Smooth),
		)
	}
	return append(phases, move("smooth release", 50, home, 150, 5*ms, 0, Direct, Smooth))
}

func wavePhases(home float32) []Phase {
	return []Phase{
		{
			Name:    "wave",
			Ticks:   900,
			Delay:   6 * time.Millisecond,
			Pause:   NoPause,
			Profile: Steady,
			Motion: Orbit{
				Revolutions: 3,
				Axes: []Axis{
					{Joint: robot.Base, Center: 90, Amplitude: 15},
					{Joint: robot.Shoulder, Center: 90, Amplitude: 12, Offset: 0.8},
					{Joint: robot.Elbow, Center: 90, Amplitude: 15, Offset: 1.6},
					{Joint: robot.Gripper, Center: 75, Amplitude: 12, Offset: 2.4},
				},
			},
		},
		{
			Name:    "wave return",
			Ticks:   100,
			Delay:   5 * time.Millisecond,
			Profile: Smooth,
			Motion:  homeSweep(home, robot.AllJoints()...),
		},
	}
}

func demoPhases(home float32) []Phase {
	return concat(home, circlePhases, basePhases, gripperPhases)
}

func allPhases(home float32) []Phase {
	return concat(home, testPhases, circlePhases, basePhases, gripperPhases, wavePhases)
}

func stopPhases(home float32) []Phase {
	return []Phase{{
		Name:    "stop",
		Ticks:   100,
		Delay:   5 * time.Millisecond,
		Mode:    Direct,
		Profile: Smooth,
		Motion:  homeSweep(home, robot.Shoulder, robot.Elbow, robot.Gripper),
	}}
}

// concat joins routines, separating them by RoutineGap.
func concat(home float32, builds ...func(float32) []Phase) []Phase {
	var phases []Phase
	for i, build := range builds {
		part := build(home)
		if i < len(builds)-1 && len(part) > 0 {
			part[len(part)-1].Pause = RoutineGap
		}
		phases = append(phases, part...)
	}
	return phases
}

func homeSweep(home float32, joints ...robot.Joint) Sweep {
	sw := make(Sweep, 0, len(joints))
	for _, j := range joints {
		sw = append(sw, Move{Joint: j, To: home})
	}
	return sw
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
