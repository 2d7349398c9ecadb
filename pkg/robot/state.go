package robot

import (
	"context"
)

// Unwritten is the LastWritten sentinel of a joint that has never been
// written. It differs from every valid duty code, so the first write always
// goes through.
const Unwritten = -1

// JointState is the persistent per-joint state of the pipeline.
type JointState struct {
	Smoothed    float32 // filter output in degrees, within the joint range
	LastWritten int     // last duty code sent to the actuator
}

// NewJointState returns a joint resting at home that has not been written.
func NewJointState(home float32) JointState {
	return JointState{Smoothed: home, LastWritten: Unwritten}
}

// Smoother is a first-order exponential low-pass filter.
type Smoother struct {
	Alpha float32
}

// Step moves smoothed toward target by a fraction Alpha of the distance.
func (s Smoother) Step(smoothed, target float32) float32 {
	return smoothed*(1-s.Alpha) + target*s.Alpha
}

// Stats counts what the change gate did.
type Stats struct {
	Writes     int `json:"writes"`
	Suppressed int `json:"suppressed"`
	Failures   int `json:"failures"`
}

// Add returns the sum of two Stats.
func (s Stats) Add(o Stats) Stats {
	return Stats{
		Writes:     s.Writes + o.Writes,
		Suppressed: s.Suppressed + o.Suppressed,
		Failures:   s.Failures + o.Failures,
	}
}

// Sub returns s minus an earlier snapshot.
func (s Stats) Sub(o Stats) Stats {
	return Stats{
		Writes:     s.Writes - o.Writes,
		Suppressed: s.Suppressed - o.Suppressed,
		Failures:   s.Failures - o.Failures,
	}
}

// Gate forwards a write to the driver only when the duty code changed. It is
// the only place the tick pipeline touches hardware.
type Gate struct {
	driver Driver
	stats  Stats
}

// NewGate creates a change gate writing through d.
func NewGate(d Driver) *Gate {
	return &Gate{driver: d}
}

// Submit writes register for joint j if code differs from st.LastWritten. On
// success LastWritten becomes code. A failed write leaves st untouched and
// returns a *WriteError.
func (g *Gate) Submit(ctx context.Context, j Joint, st *JointState, code int, register uint32) (bool, error) {
	if code == st.LastWritten {
		g.stats.Suppressed++
		return false, nil
	}
	if err := g.driver.SetDuty(ctx, j, register); err != nil {
		g.stats.Failures++
		return false, &WriteError{Joint: j, Register: register, Err: err}
	}
	st.LastWritten = code
	g.stats.Writes++
	return true, nil
}

// Stats returns the counters accumulated so far.
func (g *Gate) Stats() Stats {
	return g.stats
}
