package actuator

import (
	"context"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/pca9685"
	"periph.io/x/host/v3"

	"github.com/gwillem/smootharm/pkg/duty"
	"github.com/gwillem/smootharm/pkg/robot"
)

const (
	pca9685Address = 0x40
	pca9685Counts  = 4096
)

// PCA9685 drives servos from a 16-channel I2C PWM expander.
type PCA9685 struct {
	mu       sync.Mutex
	bus      i2c.BusCloser
	dev      *pca9685.Dev
	channels [robot.NumJoints]int
	params   duty.Params
}

// OpenPCA9685 opens the expander at address on the named I2C bus ("" picks
// the first bus) and sets the PWM frequency.
func OpenPCA9685(busName string, address uint16, p duty.Params, cal robot.Calibration) (*PCA9685, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host: %w", err)
	}
	if address == 0 {
		address = pca9685Address
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
	}
	dev, err := pca9685.NewI2C(bus, address)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("open pca9685 at %#x: %w", address, err)
	}
	if err := dev.SetPwmFreq(physic.Frequency(p.Frequency) * physic.Hertz); err != nil {
		bus.Close()
		return nil, fmt.Errorf("set pwm frequency: %w", err)
	}

	d := &PCA9685{bus: bus, dev: dev, params: p}
	for _, j := range robot.AllJoints() {
		ch := cal.For(j).Channel
		if ch < 0 || ch > 15 {
			bus.Close()
			return nil, fmt.Errorf("%s: pca9685 channel %d out of range", j, ch)
		}
		d.channels[j] = ch
	}
	return d, nil
}

func (d *PCA9685) SetDuty(_ context.Context, j robot.Joint, register uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	off := pwmCounts(register, d.params.RegisterFullScale, pca9685Counts)
	if err := d.dev.SetPwm(d.channels[j], 0, gpio.Duty(off)); err != nil {
		return fmt.Errorf("set pwm: %w", err)
	}
	return nil
}

func (d *PCA9685) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bus.Close()
}

// pwmCounts rescales a register value to a peripheral with a different
// counter width.
func pwmCounts(register, fullScale, counts uint32) uint32 {
	return uint32(uint64(register) * uint64(counts) / uint64(fullScale))
}
