package actuator

import (
	"context"
	"sync"
	"time"

	"github.com/gwillem/smootharm/internal/log"
	"github.com/gwillem/smootharm/pkg/duty"
	"github.com/gwillem/smootharm/pkg/robot"
)

// Write is one recorded actuator write.
type Write struct {
	Joint    robot.Joint
	Register uint32
	Pulse    time.Duration
}

// Recorder is a driver that records writes instead of moving hardware. It
// backs dry runs and tests.
type Recorder struct {
	// Fail, if set, is consulted before each write; a non-nil error fails
	// the write without recording it.
	Fail func(j robot.Joint, register uint32) error

	mu     sync.Mutex
	params duty.Params
	writes []Write
	closed bool
}

// NewRecorder creates an empty recorder.
func NewRecorder(p duty.Params) *Recorder {
	return &Recorder{params: p}
}

func (r *Recorder) SetDuty(_ context.Context, j robot.Joint, register uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		if err := r.Fail(j, register); err != nil {
			return err
		}
	}
	w := Write{Joint: j, Register: register, Pulse: r.params.PulseWidth(register)}
	r.writes = append(r.writes, w)
	log.Debug("duty", "joint", j, "register", register, "pulse", w.Pulse)
	return nil
}

// Writes returns a copy of everything written so far.
func (r *Recorder) Writes() []Write {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Write(nil), r.writes...)
}

// Count returns the number of writes to joint j.
func (r *Recorder) Count(j robot.Joint) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, w := range r.writes {
		if w.Joint == j {
			n++
		}
	}
	return n
}

// Last returns the most recent write to joint j.
func (r *Recorder) Last(j robot.Joint) (Write, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.writes) - 1; i >= 0; i-- {
		if r.writes[i].Joint == j {
			return r.writes[i], true
		}
	}
	return Write{}, false
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
