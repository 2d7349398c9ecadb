package motion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gwillem/smootharm/pkg/robot"
)

func TestRoutines_Validate(t *testing.T) {
	cal := robot.DefaultCalibration()
	for _, r := range Routines() {
		phases := r.Phases(90)
		if len(phases) == 0 {
			t.Errorf("%s: no phases", r.Name)
			continue
		}
		for i, p := range phases {
			if err := p.Validate(cal); err != nil {
				t.Errorf("%s phase %d: %v", r.Name, i+1, err)
			}
		}
	}
}

func TestLookup(t *testing.T) {
	r, err := Lookup("circles")
	if err != nil {
		t.Fatalf("Lookup(circles): %v", err)
	}
	if r.Name != "circles" {
		t.Errorf("Lookup(circles).Name = %q", r.Name)
	}

	if _, err := Lookup("moonwalk"); !errors.Is(err, ErrUnknownRoutine) {
		t.Errorf("Lookup(moonwalk) = %v, want ErrUnknownRoutine", err)
	}
}

func TestRoutines_Composition(t *testing.T) {
	count := func(name string) int {
		r, err := Lookup(name)
		if err != nil {
			t.Fatal(err)
		}
		return len(r.Phases(90))
	}

	if got, want := count("demo"), count("circles")+count("base")+count("gripper"); got != want {
		t.Errorf("demo has %d phases, want %d", got, want)
	}

	all, _ := Lookup("all")
	gaps := 0
	for _, p := range all.Phases(90) {
		if p.Pause == RoutineGap {
			gaps++
		}
	}
	if gaps != 4 {
		t.Errorf("all has %d routine gaps, want 4", gaps)
	}
}

func TestRoutines_TestStepsTwoDegrees(t *testing.T) {
	r, _ := Lookup("test")
	phases := r.Phases(90)
	if len(phases) != 3*robot.NumJoints {
		t.Fatalf("test has %d phases, want %d", len(phases), 3*robot.NumJoints)
	}
	first := phases[0]
	if first.Ticks != 15 || first.Mode != Direct || first.Delay != 20*time.Millisecond {
		t.Errorf("first phase = %d ticks %s %v, want 15 ticks direct 20ms", first.Ticks, first.Mode, first.Delay)
	}
}

func TestRoutines_BasePlaysToHome(t *testing.T) {
	f := newFixture(t, nil)
	r, _ := Lookup("base")

	res, err := f.seq.Play(context.Background(), r.Phases(90))
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if res.Ticks != 301+301+201 {
		t.Errorf("Ticks = %d, want 803", res.Ticks)
	}
	// 301×3ms + 100ms + 301×3ms + 100ms + 201×4ms + 300ms
	if want := 3110 * time.Millisecond; res.Paced != want {
		t.Errorf("Paced = %v, want %v", res.Paced, want)
	}
	if got := f.arm.Angle(robot.Base); got < 89 || got > 91 {
		t.Errorf("base ended at %v, want ~90", got)
	}

	minAngle := float32(180)
	for _, e := range f.ticks() {
		minAngle = min(minAngle, e.Angles[robot.Base])
	}
	if minAngle > 21 {
		t.Errorf("base never reached the left end: min %v", minAngle)
	}
}

func TestRoutines_StopLeavesBase(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	start := robot.Angles{150, 40, 130, 60}
	for j, a := range start {
		if err := f.arm.Set(ctx, robot.Joint(j), a); err != nil {
			t.Fatal(err)
		}
	}

	r, _ := Lookup("stop")
	if _, err := f.seq.Play(ctx, r.Phases(90)); err != nil {
		t.Fatalf("Play: %v", err)
	}

	if got := f.arm.Angle(robot.Base); got != 150 {
		t.Errorf("base moved to %v, want untouched 150", got)
	}
	for _, j := range []robot.Joint{robot.Shoulder, robot.Elbow, robot.Gripper} {
		if got := f.arm.Angle(j); got != 90 {
			t.Errorf("%s at %v, want 90", j, got)
		}
	}
}
