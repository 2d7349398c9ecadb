// Package duty converts joint angles into actuator duty codes and bus-level
// duty register values.
//
// A duty code is an 8-bit-scale integer describing the commanded pulse width.
// The register value is the same pulse width expressed at the width of the PWM
// peripheral's duty register (14 bits on the reference board).
package duty

import (
	"fmt"
	"math"
	"time"
)

// Params describes the actuator's duty range and the register scaling.
type Params struct {
	MinDuty           float32 // duty code at 0 degrees
	MaxDuty           float32 // duty code at 180 degrees
	CodeFullScale     uint32  // full scale of the duty code (255)
	RegisterFullScale uint32  // full scale of the duty register (16384 for 14 bits)
	Frequency         int     // PWM frequency in Hz
}

// DefaultParams returns the values measured for the reference hobby servos
// driven at 50 Hz by a 14-bit PWM peripheral.
func DefaultParams() Params {
	return Params{
		MinDuty:           26,
		MaxDuty:           128,
		CodeFullScale:     255,
		RegisterFullScale: 16384,
		Frequency:         50,
	}
}

// Validate reports whether the parameters describe a usable mapping.
func (p Params) Validate() error {
	if p.MinDuty < 0 || p.MaxDuty <= p.MinDuty {
		return fmt.Errorf("duty range [%g,%g] is empty", p.MinDuty, p.MaxDuty)
	}
	if p.CodeFullScale == 0 || p.RegisterFullScale == 0 {
		return fmt.Errorf("full scale must be positive")
	}
	if p.MaxDuty > float32(p.CodeFullScale) {
		return fmt.Errorf("max duty %g exceeds code full scale %d", p.MaxDuty, p.CodeFullScale)
	}
	if p.Frequency <= 0 {
		return fmt.Errorf("frequency must be positive")
	}
	return nil
}

// Period returns the PWM period.
func (p Params) Period() time.Duration {
	return time.Second / time.Duration(p.Frequency)
}

// PulseWidth converts a register value into the pulse width it commands.
func (p Params) PulseWidth(register uint32) time.Duration {
	return time.Duration(uint64(register) * uint64(p.Period()) / uint64(p.RegisterFullScale))
}

// Angle converts a register value back to the angle that produced it.
// Drivers for position-commanded servos use it to recover the target.
func (p Params) Angle(register uint32) float32 {
	code := float64(register) * float64(p.CodeFullScale) / float64(p.RegisterFullScale)
	code = math.Round(code)
	deg := (float32(code) - p.MinDuty) / (p.MaxDuty - p.MinDuty) * 180
	return min(max(deg, 0), 180)
}

// Quantizer maps degrees to duty codes and register values. It is pure and
// holds no per-joint state.
type Quantizer struct {
	params  Params
	minCode int
	maxCode int
}

// NewQuantizer creates a quantizer for the given parameters.
func NewQuantizer(p Params) Quantizer {
	return Quantizer{
		params:  p,
		minCode: int(math.Round(float64(p.MinDuty))),
		maxCode: int(math.Round(float64(p.MaxDuty))),
	}
}

// Params returns the parameters the quantizer was built with.
func (q Quantizer) Params() Params {
	return q.params
}

// MinCode returns the code for 0 degrees.
func (q Quantizer) MinCode() int {
	return q.minCode
}

// MaxCode returns the code for 180 degrees.
func (q Quantizer) MaxCode() int {
	return q.maxCode
}

// Code converts an angle in degrees to a duty code, rounding half away from
// zero. The result always lies in [MinCode, MaxCode].
func (q Quantizer) Code(deg float32) int {
	p := q.params
	d := p.MinDuty + (deg/180)*(p.MaxDuty-p.MinDuty)
	code := int(math.Round(float64(d)))
	return min(max(code, q.minCode), q.maxCode)
}

// Register scales a duty code to the register width. The integer division
// truncates; the error is below one register LSB.
func (q Quantizer) Register(code int) uint32 {
	return uint32(code) * q.params.RegisterFullScale / q.params.CodeFullScale
}

// Quantize returns both the duty code and the register value for an angle.
func (q Quantizer) Quantize(deg float32) (code int, register uint32) {
	code = q.Code(deg)
	return code, q.Register(code)
}
