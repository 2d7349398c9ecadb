package robot

import (
	"encoding/json"
	"fmt"
	"os"
)

// JointCalibration describes how one joint is wired and how far it may travel.
type JointCalibration struct {
	Channel  int     `json:"channel"`
	Inverted bool    `json:"inverted,omitempty"`
	Min      float32 `json:"min"`
	Max      float32 `json:"max"`
}

// Calibration holds calibration data for all joints.
type Calibration map[Joint]JointCalibration

// DefaultCalibration wires joint i to channel i with the full 0-180 range.
func DefaultCalibration() Calibration {
	cal := make(Calibration, NumJoints)
	for _, j := range AllJoints() {
		cal[j] = JointCalibration{Channel: int(j), Min: 0, Max: 180}
	}
	return cal
}

// LoadCalibration loads calibration data from a JSON file.
func LoadCalibration(path string) (Calibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calibration file: %w", err)
	}

	var cal Calibration
	if err := json.Unmarshal(data, &cal); err != nil {
		return nil, fmt.Errorf("parse calibration JSON: %w", err)
	}
	return cal, cal.Validate()
}

// Clamp limits deg to the joint's mechanical range.
func (c JointCalibration) Clamp(deg float32) float32 {
	return min(max(deg, c.Min), c.Max)
}

// Contains reports whether deg lies within the joint's mechanical range.
func (c JointCalibration) Contains(deg float32) bool {
	return deg >= c.Min && deg <= c.Max
}

// Physical converts a logical angle to the angle the servo must be driven to.
func (c JointCalibration) Physical(deg float32) float32 {
	if c.Inverted {
		return 180 - deg
	}
	return deg
}

// For returns the calibration for j, falling back to the default wiring.
func (c Calibration) For(j Joint) JointCalibration {
	if jc, ok := c[j]; ok {
		return jc
	}
	return JointCalibration{Channel: int(j), Min: 0, Max: 180}
}

// Channels returns the actuator channel of every joint, in joint order.
func (c Calibration) Channels() []int {
	channels := make([]int, 0, NumJoints)
	for _, j := range AllJoints() {
		channels = append(channels, c.For(j).Channel)
	}
	return channels
}

// ByChannel returns the joint wired to an actuator channel.
func (c Calibration) ByChannel(ch int) (Joint, JointCalibration, bool) {
	for _, j := range AllJoints() {
		if jc := c.For(j); jc.Channel == ch {
			return j, jc, true
		}
	}
	return 0, JointCalibration{}, false
}

// Validate checks ranges and that no two joints share a channel.
func (c Calibration) Validate() error {
	for j := range c {
		if !j.Valid() {
			return fmt.Errorf("%w: %d", ErrUnknownJoint, int(j))
		}
	}
	seen := make(map[int]Joint, NumJoints)
	for _, j := range AllJoints() {
		jc := c.For(j)
		if jc.Min < 0 || jc.Max > 180 || jc.Min >= jc.Max {
			return fmt.Errorf("%s: range [%g,%g] not within [0,180]", j, jc.Min, jc.Max)
		}
		if other, dup := seen[jc.Channel]; dup {
			return fmt.Errorf("%s and %s share channel %d", other, j, jc.Channel)
		}
		seen[jc.Channel] = j
	}
	return nil
}
