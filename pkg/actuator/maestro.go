package actuator

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tarm/serial"

	"github.com/gwillem/smootharm/pkg/duty"
	"github.com/gwillem/smootharm/pkg/robot"
)

// Pololu Maestro compact protocol
const (
	cmdSetTarget = 0x84
	maxTarget    = 0x3fff
	maestroBaud  = 9600
)

// Maestro drives a Pololu Maestro servo controller over its serial port.
// Targets are pulse widths in quarter microseconds.
type Maestro struct {
	mu       sync.Mutex
	port     io.ReadWriteCloser
	channels [robot.NumJoints]uint8
	params   duty.Params
}

// OpenMaestro opens the controller's command port.
func OpenMaestro(name string, baud int, p duty.Params, cal robot.Calibration) (*Maestro, error) {
	if baud == 0 {
		baud = maestroBaud
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        name,
		Baud:        baud,
		ReadTimeout: 100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return newMaestro(port, p, cal)
}

func newMaestro(port io.ReadWriteCloser, p duty.Params, cal robot.Calibration) (*Maestro, error) {
	m := &Maestro{port: port, params: p}
	for _, j := range robot.AllJoints() {
		ch := cal.For(j).Channel
		if ch < 0 || ch > 23 {
			port.Close()
			return nil, fmt.Errorf("%s: maestro channel %d out of range", j, ch)
		}
		m.channels[j] = uint8(ch)
	}
	return m, nil
}

func (m *Maestro) SetDuty(_ context.Context, j robot.Joint, register uint32) error {
	quarters := m.params.PulseWidth(register) / (250 * time.Nanosecond)
	if quarters > maxTarget {
		return fmt.Errorf("pulse %v exceeds the 14-bit target range", m.params.PulseWidth(register))
	}
	target := uint16(quarters)
	cmd := []byte{cmdSetTarget, m.channels[j], lo7(target), hi7(target)}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.port.Write(cmd); err != nil {
		return fmt.Errorf("set target: %w", err)
	}
	return nil
}

func (m *Maestro) Close() error {
	return m.port.Close()
}

func lo7(x uint16) byte {
	return byte(x & 0x7f)
}

func hi7(x uint16) byte {
	return byte((x >> 7) & 0x7f)
}
