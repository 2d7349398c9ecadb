package robot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gwillem/smootharm/pkg/duty"
)

const DefaultConfigFile = "smootharm.json"

// EnvPort overrides the driver port from the config file.
const EnvPort = "SMOOTHARM_PORT"

// WritePolicy decides what a run does when an actuator write fails.
type WritePolicy string

const (
	// Abort stops the sequence and returns the write error.
	Abort WritePolicy = "abort"
	// Skip logs the failure and carries on with the next tick.
	Skip WritePolicy = "skip"
)

// Config holds the arm configuration
type Config struct {
	Driver      DriverConfig `json:"driver"`
	Params      Params       `json:"params"`
	Calibration Calibration  `json:"calibration,omitempty"`
}

// DriverConfig selects and addresses the actuator driver.
type DriverConfig struct {
	Kind    string `json:"kind"`
	Port    string `json:"port,omitempty"`
	Baud    int    `json:"baud,omitempty"`
	Bus     string `json:"bus,omitempty"`
	Address uint16 `json:"address,omitempty"`
	Chip    int    `json:"chip,omitempty"`
}

// Params are the tunable knobs of the motion pipeline. They are fixed for the
// duration of a run.
type Params struct {
	Smoothing         float32     `json:"smoothing"`
	MinDuty           float32     `json:"min_duty"`
	MaxDuty           float32     `json:"max_duty"`
	CodeFullScale     uint32      `json:"code_full_scale"`
	RegisterFullScale uint32      `json:"register_full_scale"`
	Home              float32     `json:"home"`
	Hz                int         `json:"hz"`
	Speed             float32     `json:"speed"`
	PhasePauseMS      int         `json:"phase_pause_ms"`
	HomeSettleMS      int         `json:"home_settle_ms"`
	IdleIntervalMS    int         `json:"idle_interval_ms"`
	OnWriteError      WritePolicy `json:"on_write_error"`
}

// DefaultParams returns the reference values of the four-servo arm.
func DefaultParams() Params {
	p := Params{}
	p.applyDefaults()
	return p
}

// DefaultConfig returns a config for a dry run with default wiring.
func DefaultConfig() *Config {
	return &Config{
		Driver:      DriverConfig{Kind: "record"},
		Params:      DefaultParams(),
		Calibration: DefaultCalibration(),
	}
}

func (p *Params) applyDefaults() {
	dp := duty.DefaultParams()
	if p.Smoothing == 0 {
		p.Smoothing = 0.5
	}
	if p.MinDuty == 0 {
		p.MinDuty = dp.MinDuty
	}
	if p.MaxDuty == 0 {
		p.MaxDuty = dp.MaxDuty
	}
	if p.CodeFullScale == 0 {
		p.CodeFullScale = dp.CodeFullScale
	}
	if p.RegisterFullScale == 0 {
		p.RegisterFullScale = dp.RegisterFullScale
	}
	if p.Home == 0 {
		p.Home = 90
	}
	if p.Hz == 0 {
		p.Hz = dp.Frequency
	}
	if p.Speed == 0 {
		p.Speed = 1
	}
	if p.PhasePauseMS == 0 {
		p.PhasePauseMS = 200
	}
	if p.HomeSettleMS == 0 {
		p.HomeSettleMS = 1000
	}
	if p.IdleIntervalMS == 0 {
		p.IdleIntervalMS = 1000
	}
	if p.OnWriteError == "" {
		p.OnWriteError = Abort
	}
}

// Validate rejects parameter sets the pipeline cannot run with.
func (p Params) Validate() error {
	var errs []error
	if p.Smoothing <= 0 || p.Smoothing > 1 {
		errs = append(errs, fmt.Errorf("smoothing %g not in (0,1]", p.Smoothing))
	}
	if err := p.Duty().Validate(); err != nil {
		errs = append(errs, err)
	}
	if p.Home < 0 || p.Home > 180 {
		errs = append(errs, fmt.Errorf("home %g: %w", p.Home, ErrAngleOutOfRange))
	}
	if p.Speed <= 0 {
		errs = append(errs, fmt.Errorf("speed must be positive"))
	}
	if p.PhasePauseMS < 0 || p.HomeSettleMS < 0 || p.IdleIntervalMS < 0 {
		errs = append(errs, fmt.Errorf("durations must not be negative"))
	}
	switch p.OnWriteError {
	case Abort, Skip:
	default:
		errs = append(errs, fmt.Errorf("on_write_error %q: want abort or skip", p.OnWriteError))
	}
	return errors.Join(errs...)
}

// Duty returns the quantizer parameters.
func (p Params) Duty() duty.Params {
	return duty.Params{
		MinDuty:           p.MinDuty,
		MaxDuty:           p.MaxDuty,
		CodeFullScale:     p.CodeFullScale,
		RegisterFullScale: p.RegisterFullScale,
		Frequency:         p.Hz,
	}
}

func (p Params) PhasePause() time.Duration {
	return time.Duration(p.PhasePauseMS) * time.Millisecond
}

func (p Params) HomeSettle() time.Duration {
	return time.Duration(p.HomeSettleMS) * time.Millisecond
}

func (p Params) IdleInterval() time.Duration {
	return time.Duration(p.IdleIntervalMS) * time.Millisecond
}

// Validate checks the whole config, including home against every joint range.
func (c *Config) Validate() error {
	if err := c.Params.Validate(); err != nil {
		return err
	}
	if err := c.Calibration.Validate(); err != nil {
		return err
	}
	for _, j := range AllJoints() {
		if !c.Calibration.For(j).Contains(c.Params.Home) {
			return fmt.Errorf("home %g outside %s range: %w", c.Params.Home, j, ErrAngleOutOfRange)
		}
	}
	return nil
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	// zero is a valid home and turns the phase pause off, so only absent
	// fields take their defaults
	var set struct {
		Params struct {
			Home         *float32 `json:"home"`
			PhasePauseMS *int     `json:"phase_pause_ms"`
		} `json:"params"`
	}
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	if set.Params.Home != nil {
		cfg.Params.Home = *set.Params.Home
	}
	if set.Params.PhasePauseMS != nil {
		cfg.Params.PhasePauseMS = *set.Params.PhasePauseMS
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	c.Params.applyDefaults()
	if c.Driver.Kind == "" {
		c.Driver.Kind = "record"
	}
	if port := os.Getenv(EnvPort); port != "" {
		c.Driver.Port = port
	}
	if c.Calibration == nil {
		c.Calibration = DefaultCalibration()
	}
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the default config file exists
func ConfigExists() bool {
	_, err := os.Stat(DefaultConfigFile)
	return err == nil
}
