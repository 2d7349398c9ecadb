// Package robot holds the arm model: joints, calibration, configuration and
// the per-joint state pipeline (smoother, quantizer, change gate) that turns
// commanded angles into actuator writes.
package robot

import (
	"fmt"
	"strings"
)

// Joint identifies an actuated joint of the arm.
type Joint int

// Joints of the four-servo arm, in channel order.
const (
	Base Joint = iota
	Shoulder
	Elbow
	Gripper
)

// NumJoints is the number of actuated joints.
const NumJoints = 4

var jointNames = [NumJoints]string{"base", "shoulder", "elbow", "gripper"}

// AllJoints returns all joints in channel order.
func AllJoints() []Joint {
	return []Joint{Base, Shoulder, Elbow, Gripper}
}

func (j Joint) String() string {
	if !j.Valid() {
		return fmt.Sprintf("joint(%d)", int(j))
	}
	return jointNames[j]
}

// Valid reports whether j names a joint of the arm.
func (j Joint) Valid() bool {
	return j >= 0 && j < NumJoints
}

// ParseJoint looks up a joint by name.
func ParseJoint(s string) (Joint, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range jointNames {
		if n == name {
			return Joint(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownJoint, s)
}

func (j Joint) MarshalText() ([]byte, error) {
	if !j.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownJoint, int(j))
	}
	return []byte(jointNames[j]), nil
}

func (j *Joint) UnmarshalText(b []byte) error {
	parsed, err := ParseJoint(string(b))
	if err != nil {
		return err
	}
	*j = parsed
	return nil
}

// Angles holds one angle in degrees per joint, indexed by Joint.
type Angles [NumJoints]float32

// Uniform returns Angles with every joint at deg.
func Uniform(deg float32) Angles {
	var a Angles
	for i := range a {
		a[i] = deg
	}
	return a
}
