package robot

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownJoint is returned for a joint name or index the arm does not have.
	ErrUnknownJoint = errors.New("unknown joint")
	// ErrAngleOutOfRange is returned when an authored angle lies outside a
	// joint's mechanical range.
	ErrAngleOutOfRange = errors.New("angle out of range")
)

// WriteError reports a failed actuator write.
type WriteError struct {
	Joint    Joint
	Register uint32
	Err      error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s duty %d: %v", e.Joint, e.Register, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
