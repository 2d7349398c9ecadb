package motion

import (
	"errors"
	"testing"
	"time"

	"github.com/gwillem/smootharm/pkg/robot"
)

func TestPhase_Scale(t *testing.T) {
	p := Phase{Ticks: 300, Delay: 3 * time.Millisecond}

	tests := []struct {
		speed float32
		ticks int
		delay time.Duration
	}{
		{1, 300, 3 * time.Millisecond},
		{2, 600, 6 * time.Millisecond},
		{0.5, 150, 1500 * time.Microsecond},
		{0.001, 1, 3 * time.Microsecond},
	}

	for _, tt := range tests {
		got := p.Scale(tt.speed)
		if got.Ticks != tt.ticks || got.Delay != tt.delay {
			t.Errorf("Scale(%v) = %d ticks %v, want %d ticks %v", tt.speed, got.Ticks, got.Delay, tt.ticks, tt.delay)
		}
	}
}

func TestPhase_Duration(t *testing.T) {
	p := Phase{Ticks: 99, Delay: 5 * time.Millisecond}
	if got := p.Duration(); got != 500*time.Millisecond {
		t.Errorf("Duration() = %v, want 500ms", got)
	}
}

func TestPhase_Validate(t *testing.T) {
	cal := robot.DefaultCalibration()
	cal[robot.Gripper] = robot.JointCalibration{Channel: 3, Min: 30, Max: 130}

	tests := []struct {
		name  string
		phase Phase
		is    error
	}{
		{"zero ticks", Phase{Ticks: 0, Motion: Sweep{{Joint: robot.Base, To: 90}}}, ErrInvalidPhase},
		{"no motion", Phase{Ticks: 10}, ErrInvalidPhase},
		{"bad profile", Phase{Ticks: 10, Profile: Snap(0), Motion: Sweep{{Joint: robot.Base, To: 90}}}, ErrInvalidPhase},
		{"target out of range", Phase{Ticks: 10, Motion: Sweep{{Joint: robot.Gripper, To: 150}}}, robot.ErrAngleOutOfRange},
		{"from out of range", Phase{Ticks: 10, Motion: Sweep{{Joint: robot.Gripper, From: From(10), To: 90}}}, robot.ErrAngleOutOfRange},
		{"unknown joint", Phase{Ticks: 10, Motion: Sweep{{Joint: robot.Joint(8), To: 90}}}, robot.ErrUnknownJoint},
		{"orbit leaves range", Phase{Ticks: 10, Motion: Circle(robot.Shoulder, robot.Gripper, 110, 30, 1)}, robot.ErrAngleOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.phase.Validate(cal)
			if !errors.Is(err, tt.is) {
				t.Errorf("Validate() = %v, want %v", err, tt.is)
			}
		})
	}

	ok := Phase{Name: "ok", Ticks: 10, Motion: Circle(robot.Shoulder, robot.Elbow, 90, 30, 2)}
	if err := ok.Validate(cal); err != nil {
		t.Errorf("Validate(circle) = %v", err)
	}
}

func TestSweep_Targets(t *testing.T) {
	start := robot.Uniform(90)
	start[robot.Elbow] = 40
	sw := Sweep{
		{Joint: robot.Base, From: From(20), To: 160},
		{Joint: robot.Elbow, To: 140},
	}

	tests := []struct {
		s     float32
		base  float32
		elbow float32
	}{
		{0, 20, 40},
		{0.5, 90, 90},
		{1, 160, 140},
	}

	for _, tt := range tests {
		got := sw.Targets(nil, tt.s, start)
		if len(got) != 2 {
			t.Fatalf("Targets(%v) returned %d targets", tt.s, len(got))
		}
		if got[0].Joint != robot.Base || got[0].Angle != tt.base {
			t.Errorf("Targets(%v)[0] = %+v, want base %v", tt.s, got[0], tt.base)
		}
		if got[1].Joint != robot.Elbow || got[1].Angle != tt.elbow {
			t.Errorf("Targets(%v)[1] = %+v, want elbow %v", tt.s, got[1], tt.elbow)
		}
	}
}

func TestCircle_Targets(t *testing.T) {
	c := Circle(robot.Shoulder, robot.Elbow, 90, 30, 1)

	tests := []struct {
		s        float32
		shoulder float32
		elbow    float32
	}{
		{0, 90, 120},
		{0.25, 120, 90},
		{0.5, 90, 60},
		{0.75, 60, 90},
		{1, 90, 120},
	}

	for _, tt := range tests {
		got := c.Targets(nil, tt.s, robot.Angles{})
		if !near(got[0].Angle, tt.shoulder, 1e-3) || !near(got[1].Angle, tt.elbow, 1e-3) {
			t.Errorf("Targets(%v) = %v/%v, want %v/%v", tt.s, got[0].Angle, got[1].Angle, tt.shoulder, tt.elbow)
		}
	}
}

func TestHold_Targets(t *testing.T) {
	start := robot.Angles{10, 20, 30, 40}
	got := Hold{robot.Elbow, robot.Base}.Targets(nil, 0.7, start)
	if len(got) != 2 || got[0] != (Target{robot.Elbow, 30}) || got[1] != (Target{robot.Base, 10}) {
		t.Errorf("Targets = %+v", got)
	}
}

func TestMode_Text(t *testing.T) {
	var m Mode
	if err := m.UnmarshalText([]byte("direct")); err != nil || m != Direct {
		t.Errorf("UnmarshalText(direct) = %v, %v", m, err)
	}
	if err := m.UnmarshalText([]byte("sideways")); err == nil {
		t.Error("UnmarshalText(sideways) accepted")
	}
	if Filtered.String() != "filtered" {
		t.Errorf("Filtered.String() = %q", Filtered.String())
	}
}
