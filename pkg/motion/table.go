package motion

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gwillem/smootharm/pkg/robot"
)

// Table is the JSON form of a phase list:
//
//	{"phases": [
//	  {"name": "swing", "ticks": 300, "delay_ms": 3, "profile": "minimum_jerk",
//	   "sweep": [{"joint": "base", "from": 90, "to": 160}]},
//	  {"name": "circle", "ticks": 250, "delay_ms": 4, "profile": "linear",
//	   "orbit": {"revolutions": 1, "axes": [
//	     {"joint": "shoulder", "center": 90, "amplitude": 30},
//	     {"joint": "elbow", "center": 90, "amplitude": 30, "offset": 1.5708}]}}
//	]}
//
// Exactly one of sweep, orbit and hold must be set per phase. An omitted
// pause_ms uses the run default; zero disables the pause.
type Table struct {
	Phases []TablePhase `json:"phases"`
}

// TablePhase is one entry of a Table.
type TablePhase struct {
	Name    string        `json:"name"`
	Ticks   int           `json:"ticks"`
	DelayMS float64       `json:"delay_ms"`
	PauseMS *float64      `json:"pause_ms,omitempty"`
	Mode    Mode          `json:"mode"`
	Profile Profile       `json:"profile"`
	Sweep   Sweep         `json:"sweep,omitempty"`
	Orbit   *Orbit        `json:"orbit,omitempty"`
	Hold    []robot.Joint `json:"hold,omitempty"`
}

// ParseTable decodes a JSON phase table. The phases are checked for shape
// here; ranges are checked against the calibration when played.
func ParseTable(data []byte) ([]Phase, error) {
	var tbl Table
	if err := json.Unmarshal(data, &tbl); err != nil {
		return nil, fmt.Errorf("parse phase table: %w", err)
	}
	if len(tbl.Phases) == 0 {
		return nil, fmt.Errorf("phase table has no phases")
	}

	phases := make([]Phase, 0, len(tbl.Phases))
	for i, tp := range tbl.Phases {
		p, err := tp.phase()
		if err != nil {
			return nil, fmt.Errorf("phase %d: %w", i+1, err)
		}
		phases = append(phases, p)
	}
	return phases, nil
}

// LoadTable reads a JSON phase table from a file.
func LoadTable(path string) ([]Phase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read phase table: %w", err)
	}
	return ParseTable(data)
}

func (tp TablePhase) phase() (Phase, error) {
	p := Phase{
		Name:    tp.Name,
		Ticks:   tp.Ticks,
		Delay:   millis(tp.DelayMS),
		Mode:    tp.Mode,
		Profile: tp.Profile,
	}
	if tp.PauseMS != nil {
		p.Pause = millis(*tp.PauseMS)
		if p.Pause == 0 {
			p.Pause = NoPause
		}
	}

	n := 0
	if len(tp.Sweep) > 0 {
		p.Motion = tp.Sweep
		n++
	}
	if tp.Orbit != nil {
		p.Motion = *tp.Orbit
		n++
	}
	if len(tp.Hold) > 0 {
		p.Motion = Hold(tp.Hold)
		n++
	}
	if n != 1 {
		return Phase{}, fmt.Errorf("%w %q: want exactly one of sweep, orbit, hold", ErrInvalidPhase, tp.Name)
	}
	if p.Ticks < 1 {
		return Phase{}, fmt.Errorf("%w %q: ticks must be at least 1", ErrInvalidPhase, tp.Name)
	}
	return p, nil
}

func millis(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}
