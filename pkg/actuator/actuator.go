// Package actuator implements robot.Driver for the servo controllers the arm
// can be wired to. Every driver receives bus-level duty register values and
// converts them to its native unit: pulse width, PWM counts or a bus servo
// position.
package actuator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.bug.st/serial"

	"github.com/gwillem/smootharm/pkg/duty"
	"github.com/gwillem/smootharm/pkg/robot"
)

// Driver kinds accepted by Open.
const (
	KindRecord  = "record"
	KindFeetech = "feetech"
	KindMaestro = "maestro"
	KindPCA9685 = "pca9685"
	KindSysfs   = "sysfs"
)

// ErrUnknownDriver is returned by Open for an unsupported kind.
var ErrUnknownDriver = errors.New("unknown driver")

// Kinds lists the driver kinds Open understands.
func Kinds() []string {
	return []string{KindRecord, KindFeetech, KindMaestro, KindPCA9685, KindSysfs}
}

// Open creates the driver selected by cfg. Serial drivers with no port fall
// back to the first serial port found.
func Open(ctx context.Context, cfg robot.DriverConfig, p duty.Params, cal robot.Calibration) (robot.Driver, error) {
	if cal == nil {
		cal = robot.DefaultCalibration()
	}
	switch cfg.Kind {
	case "", KindRecord:
		return NewRecorder(p), nil
	case KindFeetech, KindMaestro:
		port := cfg.Port
		if port == "" {
			var err error
			if port, err = DefaultPort(); err != nil {
				return nil, err
			}
		}
		if cfg.Kind == KindFeetech {
			return OpenFeetech(ctx, port, cfg.Baud, p, cal)
		}
		return OpenMaestro(port, cfg.Baud, p, cal)
	case KindPCA9685:
		return OpenPCA9685(cfg.Bus, cfg.Address, p, cal)
	case KindSysfs:
		return OpenSysfs(SysfsRoot, cfg.Chip, p, cal)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Kind)
	}
}

// Ports lists serial ports, skipping macOS Bluetooth pseudo ports.
func Ports() ([]string, error) {
	all, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	ports := make([]string, 0, len(all))
	for _, p := range all {
		if strings.Contains(p, "Bluetooth") {
			continue
		}
		ports = append(ports, p)
	}
	return ports, nil
}

// DefaultPort returns the first usable serial port.
func DefaultPort() (string, error) {
	ports, err := Ports()
	if err != nil {
		return "", err
	}
	if len(ports) == 0 {
		return "", fmt.Errorf("no serial port found")
	}
	return ports[0], nil
}
