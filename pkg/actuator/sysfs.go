package actuator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/gwillem/smootharm/pkg/duty"
	"github.com/gwillem/smootharm/pkg/robot"
)

// SysfsRoot is where the kernel exposes PWM chips.
var SysfsRoot = "/sys/class/pwm"

const verifyTimeout = 2 * time.Second

// Sysfs drives hardware PWM channels through the Linux sysfs interface.
// Joint channels are PWM units of one chip.
type Sysfs struct {
	mu     sync.Mutex
	chip   string
	units  [robot.NumJoints]int
	files  [robot.NumJoints]*os.File
	params duty.Params
}

// OpenSysfs exports and enables one PWM unit per joint on pwmchip<chip>.
func OpenSysfs(root string, chip int, p duty.Params, cal robot.Calibration) (*Sysfs, error) {
	s := &Sysfs{
		chip:   filepath.Join(root, fmt.Sprintf("pwmchip%d", chip)),
		params: p,
	}
	period := strconv.FormatInt(p.Period().Nanoseconds(), 10)

	for _, j := range robot.AllJoints() {
		unit := cal.For(j).Channel
		s.units[j] = unit
		dir := s.unitDir(unit)

		if err := export(filepath.Join(dir, "period"), filepath.Join(s.chip, "export"), unit); err != nil {
			s.Close()
			return nil, fmt.Errorf("%s: export pwm%d: %w", j, unit, err)
		}
		if err := writeFile(filepath.Join(dir, "period"), period); err != nil {
			s.Close()
			return nil, fmt.Errorf("%s: set period: %w", j, err)
		}
		f, err := os.OpenFile(filepath.Join(dir, "duty_cycle"), os.O_RDWR, 0600)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("%s: %w", j, err)
		}
		s.files[j] = f
		if err := writeFile(filepath.Join(dir, "enable"), "1"); err != nil {
			s.Close()
			return nil, fmt.Errorf("%s: enable: %w", j, err)
		}
	}
	return s, nil
}

func (s *Sysfs) unitDir(unit int) string {
	return filepath.Join(s.chip, fmt.Sprintf("pwm%d", unit))
}

func (s *Sysfs) SetDuty(_ context.Context, j robot.Joint, register uint32) error {
	ns := strconv.FormatInt(s.params.PulseWidth(register).Nanoseconds(), 10)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.files[j] == nil {
		return fmt.Errorf("pwm%d is closed", s.units[j])
	}
	if _, err := s.files[j].WriteAt([]byte(ns), 0); err != nil {
		return fmt.Errorf("write duty_cycle: %w", err)
	}
	return nil
}

// Close disables and unexports every unit that was opened.
func (s *Sysfs) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for j, f := range s.files {
		if f == nil {
			continue
		}
		dir := s.unitDir(s.units[j])
		writeFile(filepath.Join(dir, "enable"), "0")
		f.Close()
		writeFile(filepath.Join(s.chip, "unexport"), strconv.Itoa(s.units[j]))
		s.files[j] = nil
	}
	return nil
}

// export writes unit to the export file unless f is already accessible, then
// waits for f to become writable. udev may take a moment to fix permissions.
func export(f, exportFile string, unit int) error {
	if unix.Access(f, unix.W_OK|unix.R_OK) == nil {
		return nil
	}
	if err := writeFile(exportFile, strconv.Itoa(unit)); err != nil {
		return err
	}
	return verifyFile(f)
}

func writeFile(name, s string) error {
	f, err := os.OpenFile(name, os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write([]byte(s))
	return err
}

func verifyFile(f string) error {
	const step = time.Millisecond
	for waited := time.Duration(0); waited < verifyTimeout; waited += step {
		if unix.Access(f, unix.W_OK) == nil {
			return nil
		}
		time.Sleep(step)
	}
	return fmt.Errorf("%s: not writable", f)
}
