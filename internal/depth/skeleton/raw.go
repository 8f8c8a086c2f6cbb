package skeleton

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// RawJoint is one joint as reported by the sensor. Position is in camera
// space (metres). Rotation is relative to the joint's parent.
type RawJoint struct {
	Position      r3.Vec             `json:"position"`
	TrackingState JointTrackingState `json:"tracking_state"`
	Rotation      quat.Number        `json:"rotation"`
}

// RawSkeleton is one skeleton slot as reported by the sensor.
type RawSkeleton struct {
	TrackingState SkeletonTrackingState `json:"tracking_state"`
	TrackingID    uint32                `json:"tracking_id"`
	Position      r3.Vec                `json:"position"`
	Joints        [JointCount]RawJoint  `json:"joints"`
}

// RawFrame is the sensor's skeleton output for one tick.
type RawFrame struct {
	FrameNumber int64                      `json:"frame_number"`
	Skeletons   [SkeletonCount]RawSkeleton `json:"skeletons"`
}

// Clone returns a copy of the frame. A nil frame clones to nil.
func (f *RawFrame) Clone() *RawFrame {
	if f == nil {
		return nil
	}
	out := *f
	return &out
}
