package robot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()

	if p.Smoothing != 0.5 {
		t.Errorf("Smoothing = %v, want 0.5", p.Smoothing)
	}
	if p.MinDuty != 26 || p.MaxDuty != 128 {
		t.Errorf("duty range = [%v,%v], want [26,128]", p.MinDuty, p.MaxDuty)
	}
	if p.Home != 90 {
		t.Errorf("Home = %v, want 90", p.Home)
	}
	if p.Hz != 50 {
		t.Errorf("Hz = %d, want 50", p.Hz)
	}
	if p.OnWriteError != Abort {
		t.Errorf("OnWriteError = %q, want abort", p.OnWriteError)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"smoothing zero", func(p *Params) { p.Smoothing = 0 }},
		{"smoothing above one", func(p *Params) { p.Smoothing = 1.5 }},
		{"empty duty range", func(p *Params) { p.MaxDuty = p.MinDuty }},
		{"home out of range", func(p *Params) { p.Home = 200 }},
		{"zero hz", func(p *Params) { p.Hz = 0 }},
		{"negative speed", func(p *Params) { p.Speed = -1 }},
		{"unknown policy", func(p *Params) { p.OnWriteError = "retry" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestConfig_HomeOutsideJointRange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Calibration[Gripper] = JointCalibration{Channel: 3, Min: 100, Max: 150}

	if err := cfg.Validate(); !errors.Is(err, ErrAngleOutOfRange) {
		t.Errorf("Validate() = %v, want ErrAngleOutOfRange", err)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFile)

	cfg := DefaultConfig()
	cfg.Driver = DriverConfig{Kind: "maestro", Port: "/dev/ttyACM0", Baud: 9600}
	cfg.Params.Speed = 2
	cfg.Calibration[Shoulder] = JointCalibration{Channel: 1, Inverted: true, Max: 180}

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	t.Setenv(EnvPort, "")
	got, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("LoadConfigFrom: %v", err)
	}
	if got.Driver != cfg.Driver {
		t.Errorf("Driver = %+v, want %+v", got.Driver, cfg.Driver)
	}
	if got.Params != cfg.Params {
		t.Errorf("Params = %+v, want %+v", got.Params, cfg.Params)
	}
	if !got.Calibration[Shoulder].Inverted {
		t.Error("shoulder inversion lost in round trip")
	}
}

func TestLoadConfigFrom_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.json")
	if err := os.WriteFile(path, []byte(`{"params": {"smoothing": 0.25}}`), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv(EnvPort, "/dev/ttyUSB7")
	cfg, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("LoadConfigFrom: %v", err)
	}
	if cfg.Params.Smoothing != 0.25 {
		t.Errorf("Smoothing = %v, want 0.25", cfg.Params.Smoothing)
	}
	if cfg.Params.Home != 90 {
		t.Errorf("Home = %v, want default 90", cfg.Params.Home)
	}
	if cfg.Driver.Kind != "record" {
		t.Errorf("Driver.Kind = %q, want record", cfg.Driver.Kind)
	}
	if cfg.Driver.Port != "/dev/ttyUSB7" {
		t.Errorf("Driver.Port = %q, want env override", cfg.Driver.Port)
	}
	if len(cfg.Calibration) != NumJoints {
		t.Errorf("Calibration has %d joints, want %d", len(cfg.Calibration), NumJoints)
	}
}

func TestLoadConfigFrom_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`{"params": {"smoothing": 3}}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfigFrom(path); err == nil {
		t.Error("LoadConfigFrom accepted smoothing 3")
	}
}

func TestLoadConfigFrom_ExplicitZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zero.json")
	if err := os.WriteFile(path, []byte(`{"params": {"home": 0, "phase_pause_ms": 0}}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("LoadConfigFrom: %v", err)
	}
	if cfg.Params.Home != 0 {
		t.Errorf("Home = %v, want explicit 0", cfg.Params.Home)
	}
	if cfg.Params.PhasePause() != 0 {
		t.Errorf("PhasePause() = %v, want 0", cfg.Params.PhasePause())
	}
	if cfg.Params.HomeSettleMS != 1000 {
		t.Errorf("HomeSettleMS = %d, want default 1000", cfg.Params.HomeSettleMS)
	}
}
