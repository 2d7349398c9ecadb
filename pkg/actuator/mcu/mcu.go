//go:build tinygo

// Package mcu drives the arm's servos straight from microcontroller PWM
// peripherals. It only builds with TinyGo.
package mcu

import (
	"context"
	"fmt"
	"machine"

	"tinygo.org/x/drivers/servo"

	"github.com/gwillem/smootharm/pkg/duty"
	"github.com/gwillem/smootharm/pkg/robot"
)

// Output is the PWM slice and pin a joint's servo signal is wired to.
type Output struct {
	PWM servo.PWM
	Pin machine.Pin
}

// Driver sets servo pulse widths on MCU pins.
type Driver struct {
	servos [robot.NumJoints]servo.Servo
	params duty.Params
}

// New configures one servo per joint. Pins on the same PWM slice share a
// servo array, so the slice is configured once.
func New(outputs [robot.NumJoints]Output, p duty.Params) (*Driver, error) {
	d := &Driver{params: p}
	arrays := make(map[servo.PWM]servo.Array)
	for j, out := range outputs {
		array, ok := arrays[out.PWM]
		if !ok {
			var err error
			array, err = servo.NewArray(out.PWM)
			if err != nil {
				return nil, fmt.Errorf("%s: servo array: %w", robot.Joint(j), err)
			}
			arrays[out.PWM] = array
		}
		s, err := array.Add(out.Pin)
		if err != nil {
			return nil, fmt.Errorf("%s: add servo: %w", robot.Joint(j), err)
		}
		d.servos[j] = s
	}
	return d, nil
}

func (d *Driver) SetDuty(_ context.Context, j robot.Joint, register uint32) error {
	us := d.params.PulseWidth(register).Microseconds()
	d.servos[j].SetMicroseconds(int16(us))
	return nil
}

func (d *Driver) Close() error {
	return nil
}
