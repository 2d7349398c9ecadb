package actuator

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"

	"github.com/gwillem/smootharm/pkg/duty"
	"github.com/gwillem/smootharm/pkg/robot"
)

const (
	feetechBaud = 1_000_000
	// STS servos count 4096 steps per turn with 2048 at the centre.
	stsStepsPerTurn = 4096
	stsCentre       = 2048
)

// Feetech drives STS bus servos. A joint on channel n is the servo with
// bus ID n+1. Register values are mapped back to the commanded angle and
// sent as an absolute position.
type Feetech struct {
	bus    *feetech.Bus
	group  *feetech.ServoGroup
	ids    [robot.NumJoints]int
	params duty.Params
}

// OpenFeetech opens the bus on port and enables torque on the arm's servos.
func OpenFeetech(ctx context.Context, port string, baud int, p duty.Params, cal robot.Calibration) (*Feetech, error) {
	if baud == 0 {
		baud = feetechBaud
	}
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: baud,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	f := &Feetech{bus: bus, params: p}
	ids := make([]int, 0, robot.NumJoints)
	for _, j := range robot.AllJoints() {
		f.ids[j] = cal.For(j).Channel + 1
		ids = append(ids, f.ids[j])
	}
	f.group = feetech.NewServoGroupByIDs(bus, ids...)

	if err := f.group.EnableAll(ctx); err != nil {
		bus.Close()
		return nil, fmt.Errorf("enable servos: %w", err)
	}
	return f, nil
}

func (f *Feetech) SetDuty(ctx context.Context, j robot.Joint, register uint32) error {
	pos := stsPosition(f.params.Angle(register))
	if err := f.group.SetPositions(ctx, feetech.PositionMap{f.ids[j]: pos}); err != nil {
		return fmt.Errorf("write position: %w", err)
	}
	return nil
}

// Close disables torque and closes the bus.
func (f *Feetech) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	f.group.DisableAll(ctx)
	return f.bus.Close()
}

// stsPosition converts a servo angle in [0,180] to an STS position, with
// 90° at the centre of travel.
func stsPosition(deg float32) int {
	steps := float64(deg-90) * stsStepsPerTurn / 360
	return stsCentre + int(math.Round(steps))
}

// ScanFeetech lists the servos answering on port with IDs 1 to 6.
func ScanFeetech(ctx context.Context, port string) ([]feetech.FoundServo, error) {
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: feetechBaud,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, err
	}
	defer bus.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return bus.Scan(ctx, 1, 6)
}
