package duty

import (
	"testing"
	"time"
)

func TestQuantizer_Code(t *testing.T) {
	q := NewQuantizer(DefaultParams())

	tests := []struct {
		deg      float32
		expected int
	}{
		{0, 26},
		{180, 128},
		{90, 77},  // 26 + 51
		{60, 60},  // 26 + 34
		{120, 94}, // 26 + 68
		{45, 52},  // 26 + 25.5 rounds away from zero
		{1, 27},   // 26.567
	}

	for _, tt := range tests {
		got := q.Code(tt.deg)
		if got != tt.expected {
			t.Errorf("Code(%v) = %d, want %d", tt.deg, got, tt.expected)
		}
	}
}

func TestQuantizer_Endpoints(t *testing.T) {
	q := NewQuantizer(DefaultParams())

	if got := q.Code(0); got != q.MinCode() {
		t.Errorf("Code(0) = %d, want MinCode %d", got, q.MinCode())
	}
	if got := q.Code(180); got != q.MaxCode() {
		t.Errorf("Code(180) = %d, want MaxCode %d", got, q.MaxCode())
	}
}

func TestQuantizer_Monotonic(t *testing.T) {
	q := NewQuantizer(DefaultParams())

	prev := q.Code(0)
	for i := 1; i <= 1800; i++ {
		deg := float32(i) / 10
		code := q.Code(deg)
		if code < prev {
			t.Fatalf("Code(%v) = %d, below Code of previous angle %d", deg, code, prev)
		}
		prev = code
	}
}

func TestQuantizer_ClampsCodeRange(t *testing.T) {
	q := NewQuantizer(DefaultParams())

	if got := q.Code(-20); got != 26 {
		t.Errorf("Code(-20) = %d, want 26", got)
	}
	if got := q.Code(200); got != 128 {
		t.Errorf("Code(200) = %d, want 128", got)
	}
}

func TestQuantizer_Register(t *testing.T) {
	q := NewQuantizer(DefaultParams())

	tests := []struct {
		code     int
		expected uint32
	}{
		{26, 1670},  // 425984/255 = 1670.5
		{77, 4947},  // 1261568/255 = 4947.3
		{128, 8224}, // 2097152/255 = 8224.1
		{255, 16384},
	}

	for _, tt := range tests {
		got := q.Register(tt.code)
		if got != tt.expected {
			t.Errorf("Register(%d) = %d, want %d", tt.code, got, tt.expected)
		}
	}
}

func TestParams_PulseWidth(t *testing.T) {
	p := DefaultParams()

	if got := p.Period(); got != 20*time.Millisecond {
		t.Fatalf("Period() = %v, want 20ms", got)
	}

	// 8192/16384 of 20ms
	if got := p.PulseWidth(8192); got != 10*time.Millisecond {
		t.Errorf("PulseWidth(8192) = %v, want 10ms", got)
	}
	// home code 77 is close to the 1.5ms servo centre
	got := p.PulseWidth(4947)
	if got < 6030*time.Microsecond || got > 6040*time.Microsecond {
		t.Errorf("PulseWidth(4947) = %v, want ~6.04ms", got)
	}
}

func TestParams_AngleRoundTrip(t *testing.T) {
	p := DefaultParams()
	q := NewQuantizer(p)

	for deg := float32(0); deg <= 180; deg += 5 {
		code, reg := q.Quantize(deg)
		back := p.Angle(reg)
		if q.Code(back) != code {
			t.Errorf("Angle(Register(%v)) = %v, quantizes to %d, want %d", deg, back, q.Code(back), code)
		}
	}
}

func TestParams_Validate(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Fatalf("DefaultParams().Validate() = %v", err)
	}

	bad := DefaultParams()
	bad.MaxDuty = bad.MinDuty
	if err := bad.Validate(); err == nil {
		t.Error("Validate() accepted an empty duty range")
	}

	bad = DefaultParams()
	bad.Frequency = 0
	if err := bad.Validate(); err == nil {
		t.Error("Validate() accepted zero frequency")
	}
}
