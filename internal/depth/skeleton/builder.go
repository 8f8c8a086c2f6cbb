package skeleton

import (
	"gonum.org/v1/gonum/num/quat"
)

// Skeleton maps each present joint to the bone ending at it. An empty
// skeleton means the slot is not tracked.
type Skeleton map[JointName]Bone

// IsTracked reports whether the skeleton holds any bones.
func (s Skeleton) IsTracked() bool {
	return len(s) > 0
}

// Clone returns a copy. Bones are values so a shallow map copy suffices.
func (s Skeleton) Clone() Skeleton {
	out := make(Skeleton, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Build turns one raw slot into a Skeleton. Slots that are not fully
// tracked produce an empty skeleton. Absolute rotations are composed over
// the whole hierarchy so a missing intermediate joint still contributes its
// reported rotation; joints the sensor did not track are then left out.
func Build(raw RawSkeleton) Skeleton {
	if raw.TrackingState != SkeletonTracked {
		return Skeleton{}
	}

	var abs [JointCount]quat.Number
	sk := make(Skeleton, JointCount)
	for i := 0; i < JointCount; i++ {
		j := JointName(i)
		parent := jointParents[j]
		rel := normalizeQuat(raw.Joints[j].Rotation)
		if j.IsRoot() {
			abs[j] = rel
		} else {
			abs[j] = normalizeQuat(quat.Mul(abs[parent], rel))
		}

		end := raw.Joints[j]
		if end.TrackingState == JointNotTracked {
			continue
		}
		sk[j] = Bone{
			StartJoint:             parent,
			EndJoint:               j,
			Position:               raw.Joints[parent].Position,
			EndPosition:            end.Position,
			TrackingState:          end.TrackingState,
			Rotation:               rel,
			RotationMatrix:         RotationMatrix(rel),
			AbsoluteRotation:       abs[j],
			AbsoluteRotationMatrix: RotationMatrix(abs[j]),
		}
	}
	return sk
}

// BuildFrame builds every slot of a raw frame. The result always has
// SkeletonCount entries; a nil frame yields all-empty skeletons.
func BuildFrame(raw *RawFrame) []Skeleton {
	out := make([]Skeleton, SkeletonCount)
	for i := range out {
		if raw == nil {
			out[i] = Skeleton{}
			continue
		}
		out[i] = Build(raw.Skeletons[i])
	}
	return out
}

// EmptyFrame returns SkeletonCount untracked skeletons.
func EmptyFrame() []Skeleton {
	return BuildFrame(nil)
}

// TrackedCount returns how many skeletons in a frame are tracked.
func TrackedCount(skeletons []Skeleton) int {
	n := 0
	for _, s := range skeletons {
		if s.IsTracked() {
			n++
		}
	}
	return n
}
