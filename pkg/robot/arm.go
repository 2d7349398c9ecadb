package robot

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/gwillem/smootharm/pkg/duty"
)

// Arm owns the state of every joint and is the only thing that mutates it.
// An Arm belongs to one control loop and is not safe for concurrent use.
type Arm struct {
	driver      Driver
	params      Params
	calibration Calibration
	quantizer   duty.Quantizer
	smoother    Smoother
	gate        *Gate
	joints      [NumJoints]JointState
}

// NewArm creates an arm with every joint resting at the home angle. Nothing
// is written until the first Step, Set or Home.
func NewArm(d Driver, p Params, cal Calibration) (*Arm, error) {
	if d == nil {
		return nil, fmt.Errorf("nil driver")
	}
	if cal == nil {
		cal = DefaultCalibration()
	}
	cfg := Config{Params: p, Calibration: cal}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("arm config: %w", err)
	}

	a := &Arm{
		driver:      d,
		params:      p,
		calibration: cal,
		quantizer:   duty.NewQuantizer(p.Duty()),
		smoother:    Smoother{Alpha: p.Smoothing},
		gate:        NewGate(d),
	}
	for i := range a.joints {
		a.joints[i] = NewJointState(p.Home)
	}
	return a, nil
}

// Close closes the underlying driver.
func (a *Arm) Close() error {
	return a.driver.Close()
}

// Step runs one filtered tick for joint j: the smoothed angle moves toward
// target, is clamped to the joint range and passed to the gate.
func (a *Arm) Step(ctx context.Context, j Joint, target float32) error {
	if !j.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownJoint, int(j))
	}
	if !finite(target) {
		return fmt.Errorf("%s target %v: %w", j, target, ErrAngleOutOfRange)
	}
	st := &a.joints[j]
	st.Smoothed = a.calibration.For(j).Clamp(a.smoother.Step(st.Smoothed, target))
	return a.commit(ctx, j)
}

// Set runs one direct tick for joint j: target replaces the smoothed angle
// without filtering.
func (a *Arm) Set(ctx context.Context, j Joint, target float32) error {
	if !j.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownJoint, int(j))
	}
	if !finite(target) {
		return fmt.Errorf("%s target %v: %w", j, target, ErrAngleOutOfRange)
	}
	a.joints[j].Smoothed = a.calibration.For(j).Clamp(target)
	return a.commit(ctx, j)
}

func (a *Arm) commit(ctx context.Context, j Joint) error {
	st := &a.joints[j]
	code, register := a.quantizer.Quantize(a.calibration.For(j).Physical(st.Smoothed))
	_, err := a.gate.Submit(ctx, j, st, code, register)
	return err
}

// Home sets every joint directly to the home angle. All joints are attempted
// even if one write fails.
func (a *Arm) Home(ctx context.Context) error {
	var errs []error
	for _, j := range AllJoints() {
		if err := a.Set(ctx, j, a.params.Home); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Angle returns the smoothed angle of joint j.
func (a *Arm) Angle(j Joint) float32 {
	return a.joints[j].Smoothed
}

// Angles returns the smoothed angle of every joint.
func (a *Arm) Angles() Angles {
	var out Angles
	for i, st := range a.joints {
		out[i] = st.Smoothed
	}
	return out
}

// State returns a copy of the state of joint j.
func (a *Arm) State(j Joint) JointState {
	return a.joints[j]
}

// Codes returns the last duty code written to each joint.
func (a *Arm) Codes() [NumJoints]int {
	var out [NumJoints]int
	for i, st := range a.joints {
		out[i] = st.LastWritten
	}
	return out
}

// Stats returns the gate counters.
func (a *Arm) Stats() Stats {
	return a.gate.Stats()
}

// Params returns the parameters the arm runs with.
func (a *Arm) Params() Params {
	return a.params
}

// Calibration returns the joint calibration.
func (a *Arm) Calibration() Calibration {
	return a.calibration
}

// Quantizer returns the quantizer the arm converts angles with.
func (a *Arm) Quantizer() duty.Quantizer {
	return a.quantizer
}

func finite(deg float32) bool {
	return !math.IsNaN(float64(deg)) && !math.IsInf(float64(deg), 0)
}
