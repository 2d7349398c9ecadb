//go:build tinygo && rp2040

// Command firmware plays the demo routine on a Raspberry Pi Pico, driving the
// four servos straight from its PWM slices, then holds at home.
package main

import (
	"context"
	"machine"
	"time"

	"github.com/gwillem/smootharm/internal/log"
	"github.com/gwillem/smootharm/pkg/actuator/mcu"
	"github.com/gwillem/smootharm/pkg/motion"
	"github.com/gwillem/smootharm/pkg/robot"
)

func main() {
	// give a serial monitor time to attach
	time.Sleep(2 * time.Second)
	log.Init("info")

	params := robot.DefaultParams()
	// hobby servo pulses of 0.5 to 2.5 ms
	params.CodeFullScale = 1023

	outputs := [robot.NumJoints]mcu.Output{
		robot.Base:     {PWM: machine.PWM2, Pin: machine.GP4},
		robot.Shoulder: {PWM: machine.PWM2, Pin: machine.GP5},
		robot.Elbow:    {PWM: machine.PWM3, Pin: machine.GP6},
		robot.Gripper:  {PWM: machine.PWM3, Pin: machine.GP7},
	}
	driver, err := mcu.New(outputs, params.Duty())
	if err != nil {
		panic(err)
	}

	arm, err := robot.NewArm(driver, params, robot.DefaultCalibration())
	if err != nil {
		panic(err)
	}

	routine, err := motion.Lookup("demo")
	if err != nil {
		panic(err)
	}

	seq := motion.NewSequencer(arm)
	if _, err := seq.Run(context.Background(), routine.Phases(params.Home), true); err != nil {
		log.Error("demo failed", "err", err)
	}
	// keep the last pulses going after a failure
	select {}
}
