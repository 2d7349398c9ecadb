// Package smootharm plays smooth, timed choreography on a four-joint hobby
// servo arm (base, shoulder, elbow, gripper).
//
// Motion is authored as a table of phases. Each phase maps normalized time
// through a shaping function (minimum jerk, linear, ease in or ease out),
// feeds the per-joint targets through an exponential smoother, quantizes the
// result into actuator duty codes and writes only the codes that changed.
//
// # Installation
//
//	go install github.com/gwillem/smootharm/cmd/smootharm@latest
//
// # Usage
//
// Pick a driver and mark inverted joints:
//
//	smootharm setup
//
// Then play a routine, optionally with a live chart:
//
//	smootharm run --routine demo --tui
//	smootharm run --dry-run --instant --routine all
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/smootharm: CLI with setup, run, phases and ports commands
//   - cmd/firmware: TinyGo build for a Raspberry Pi Pico
//   - pkg/duty: angle to duty code and register conversion
//   - pkg/robot: joints, calibration, configuration, smoother, change gate and the Arm
//   - pkg/motion: shaping functions, phases, the sequencer and built-in routines
//   - pkg/actuator: drivers for Feetech, Maestro, PCA9685, sysfs PWM and dry runs
//   - pkg/player: background runner feeding the TUI
//   - pkg/telemetry: websocket stream of run events
package smootharm
