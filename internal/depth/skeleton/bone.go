package skeleton

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Matrix4 is a 4x4 homogeneous transform in row-major order.
type Matrix4 [16]float64

// Identity4 is the identity transform.
var Identity4 = Matrix4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1,
}

// identityQuat is the zero rotation.
var identityQuat = quat.Number{Real: 1}

// rotationTolerance bounds the determinant check in IsRotationMatrix.
const rotationTolerance = 0.01

// Bone connects a joint's parent (start) to the joint itself (end). Bones
// are keyed by their end joint; the root bone starts and ends at the hip
// centre.
type Bone struct {
	StartJoint JointName `json:"start_joint"`
	EndJoint   JointName `json:"end_joint"`

	// Position is the start joint in camera space (metres).
	Position    r3.Vec `json:"position"`
	EndPosition r3.Vec `json:"end_position"`

	// TrackingState is the end joint's state.
	TrackingState JointTrackingState `json:"tracking_state"`

	// Rotation is relative to the parent bone.
	Rotation       quat.Number `json:"rotation"`
	RotationMatrix Matrix4     `json:"-"`

	// AbsoluteRotation is relative to the camera.
	AbsoluteRotation       quat.Number `json:"absolute_rotation"`
	AbsoluteRotationMatrix Matrix4     `json:"-"`
}

// Length returns the distance between the start and end joints.
func (b Bone) Length() float64 {
	return r3.Norm(r3.Sub(b.EndPosition, b.Position))
}

// normalizeQuat returns q scaled to unit length. A zero (or non-finite)
// quaternion is treated as no rotation.
func normalizeQuat(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return identityQuat
	}
	return quat.Scale(1/n, q)
}

// RotationMatrix converts a quaternion into a rotation-only Matrix4. The
// quaternion is normalized first.
func RotationMatrix(q quat.Number) Matrix4 {
	q = normalizeQuat(q)
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag

	return Matrix4{
		1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y), 0,
		2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x), 0,
		2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y), 0,
		0, 0, 0, 1,
	}
}

// Apply rotates v by the 3x3 part of m.
func (m Matrix4) Apply(v r3.Vec) r3.Vec {
	return r3.Vec{
		X: m[0]*v.X + m[1]*v.Y + m[2]*v.Z,
		Y: m[4]*v.X + m[5]*v.Y + m[6]*v.Z,
		Z: m[8]*v.X + m[9]*v.Y + m[10]*v.Z,
	}
}

// IsRotationMatrix reports whether m is a proper rotation with no
// translation: determinant ~1 and last row [0 0 0 1].
func IsRotationMatrix(m Matrix4) bool {
	r00, r01, r02 := m[0], m[1], m[2]
	r10, r11, r12 := m[4], m[5], m[6]
	r20, r21, r22 := m[8], m[9], m[10]

	det := r00*(r11*r22-r12*r21) - r01*(r10*r22-r12*r20) + r02*(r10*r21-r11*r20)
	if math.Abs(det-1.0) > rotationTolerance {
		return false
	}
	if m[3] != 0 || m[7] != 0 || m[11] != 0 {
		return false
	}
	return m[12] == 0 && m[13] == 0 && m[14] == 0 && math.Abs(m[15]-1.0) <= 0.001
}
