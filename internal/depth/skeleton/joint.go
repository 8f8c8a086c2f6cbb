package skeleton

import (
	"fmt"
	"strings"
)

// JointName identifies one of the tracked body joints.
type JointName int

const (
	JointHipCenter JointName = iota
	JointSpine
	JointShoulderCenter
	JointHead
	JointShoulderLeft
	JointElbowLeft
	JointWristLeft
	JointHandLeft
	JointShoulderRight
	JointElbowRight
	JointWristRight
	JointHandRight
	JointHipLeft
	JointKneeLeft
	JointAnkleLeft
	JointFootLeft
	JointHipRight
	JointKneeRight
	JointAnkleRight
	JointFootRight

	// JointCount is the number of joints in a full skeleton.
	JointCount = int(JointFootRight) + 1
)

// SkeletonCount is the number of skeleton slots a sensor reports per frame.
const SkeletonCount = 6

// jointParents is the canonical hierarchy. Every parent index is lower than
// its child's, so a single forward pass visits parents first.
var jointParents = [JointCount]JointName{
	JointHipCenter:      JointHipCenter,
	JointSpine:          JointHipCenter,
	JointShoulderCenter: JointSpine,
	JointHead:           JointShoulderCenter,
	JointShoulderLeft:   JointShoulderCenter,
	JointElbowLeft:      JointShoulderLeft,
	JointWristLeft:      JointElbowLeft,
	JointHandLeft:       JointWristLeft,
	JointShoulderRight:  JointShoulderCenter,
	JointElbowRight:     JointShoulderRight,
	JointWristRight:     JointElbowRight,
	JointHandRight:      JointWristRight,
	JointHipLeft:        JointHipCenter,
	JointKneeLeft:       JointHipLeft,
	JointAnkleLeft:      JointKneeLeft,
	JointFootLeft:       JointAnkleLeft,
	JointHipRight:       JointHipCenter,
	JointKneeRight:      JointHipRight,
	JointAnkleRight:     JointKneeRight,
	JointFootRight:      JointAnkleRight,
}

var jointNames = [JointCount]string{
	"hip_center", "spine", "shoulder_center", "head",
	"shoulder_left", "elbow_left", "wrist_left", "hand_left",
	"shoulder_right", "elbow_right", "wrist_right", "hand_right",
	"hip_left", "knee_left", "ankle_left", "foot_left",
	"hip_right", "knee_right", "ankle_right", "foot_right",
}

// IsValid reports whether j names a joint.
func (j JointName) IsValid() bool {
	return j >= 0 && int(j) < JointCount
}

// Parent returns the joint's parent in the hierarchy. The root is its own
// parent. Invalid joints return themselves.
func (j JointName) Parent() JointName {
	if !j.IsValid() {
		return j
	}
	return jointParents[j]
}

// IsRoot reports whether j is the hierarchy root.
func (j JointName) IsRoot() bool {
	return j == JointHipCenter
}

func (j JointName) String() string {
	if !j.IsValid() {
		return fmt.Sprintf("joint(%d)", int(j))
	}
	return jointNames[j]
}

// MarshalText lets joints key JSON maps by name.
func (j JointName) MarshalText() ([]byte, error) {
	if !j.IsValid() {
		return nil, fmt.Errorf("invalid joint %d", int(j))
	}
	return []byte(jointNames[j]), nil
}

// UnmarshalText parses a joint name.
func (j *JointName) UnmarshalText(b []byte) error {
	parsed, err := ParseJointName(string(b))
	if err != nil {
		return err
	}
	*j = parsed
	return nil
}

// ParseJointName maps a name such as "elbow_left" back to its joint.
func ParseJointName(s string) (JointName, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range jointNames {
		if name == s {
			return JointName(i), nil
		}
	}
	return 0, fmt.Errorf("unknown joint %q", s)
}

// Hierarchy returns a copy of the canonical child -> parent table.
func Hierarchy() map[JointName]JointName {
	h := make(map[JointName]JointName, JointCount)
	for j := JointName(0); int(j) < JointCount; j++ {
		h[j] = jointParents[j]
	}
	return h
}

// Joints returns every joint in hierarchy order (parents before children).
func Joints() []JointName {
	out := make([]JointName, JointCount)
	for i := range out {
		out[i] = JointName(i)
	}
	return out
}

// JointTrackingState is the confidence the sensor reports for one joint.
type JointTrackingState int

const (
	JointNotTracked JointTrackingState = iota
	JointInferred
	JointTracked
)

func (s JointTrackingState) String() string {
	switch s {
	case JointNotTracked:
		return "not_tracked"
	case JointInferred:
		return "inferred"
	case JointTracked:
		return "tracked"
	default:
		return fmt.Sprintf("joint_state(%d)", int(s))
	}
}

// SkeletonTrackingState is the state of one skeleton slot.
type SkeletonTrackingState int

const (
	SkeletonNotTracked SkeletonTrackingState = iota
	// SkeletonPositionOnly slots carry a centre position but no joints.
	SkeletonPositionOnly
	SkeletonTracked
)

func (s SkeletonTrackingState) String() string {
	switch s {
	case SkeletonNotTracked:
		return "not_tracked"
	case SkeletonPositionOnly:
		return "position_only"
	case SkeletonTracked:
		return "tracked"
	default:
		return fmt.Sprintf("skeleton_state(%d)", int(s))
	}
}
