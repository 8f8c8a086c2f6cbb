package skeleton

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func axisAngle(axis r3.Vec, deg float64) quat.Number {
	return quat.Number(r3.NewRotation(deg*math.Pi/180, axis))
}

// trackedSkeleton returns a fully tracked raw slot with every joint at a
// distinct position and an identity rotation.
func trackedSkeleton() RawSkeleton {
	raw := RawSkeleton{TrackingState: SkeletonTracked, TrackingID: 7}
	for i := range raw.Joints {
		raw.Joints[i] = RawJoint{
			Position:      r3.Vec{X: float64(i) * 0.1, Y: 1, Z: 2},
			TrackingState: JointTracked,
			Rotation:      quat.Number{Real: 1},
		}
	}
	return raw
}

func TestHierarchy(t *testing.T) {
	h := Hierarchy()
	if len(h) != JointCount {
		t.Fatalf("hierarchy has %d joints, want %d", len(h), JointCount)
	}
	if h[JointHipCenter] != JointHipCenter {
		t.Error("root must be its own parent")
	}
	want := map[JointName]JointName{
		JointSpine:      JointHipCenter,
		JointHead:       JointShoulderCenter,
		JointHandLeft:   JointWristLeft,
		JointElbowRight: JointShoulderRight,
		JointHipLeft:    JointHipCenter,
		JointFootRight:  JointAnkleRight,
	}
	for child, parent := range want {
		if h[child] != parent {
			t.Errorf("parent(%s) = %s, want %s", child, h[child], parent)
		}
	}
	for _, j := range Joints() {
		if !j.IsRoot() && j.Parent() >= j {
			t.Errorf("parent of %s must precede it", j)
		}
	}
}

func TestJointName_Text(t *testing.T) {
	for _, j := range Joints() {
		b, err := j.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%d): %v", j, err)
		}
		var back JointName
		if err := back.UnmarshalText(b); err != nil {
			t.Fatalf("UnmarshalText(%q): %v", b, err)
		}
		if back != j {
			t.Errorf("round trip %s -> %s", j, back)
		}
	}
	if _, err := ParseJointName("tail"); err == nil {
		t.Error("expected error for unknown joint")
	}
	if JointName(99).String() != "joint(99)" {
		t.Errorf("unexpected String for invalid joint: %s", JointName(99))
	}
}

func TestBuild_UntrackedSlotsAreEmpty(t *testing.T) {
	for _, state := range []SkeletonTrackingState{SkeletonNotTracked, SkeletonPositionOnly} {
		raw := trackedSkeleton()
		raw.TrackingState = state
		sk := Build(raw)
		if sk == nil || len(sk) != 0 {
			t.Errorf("%s: got %d bones, want empty non-nil skeleton", state, len(sk))
		}
	}
}

func TestBuild_BonesMatchHierarchy(t *testing.T) {
	raw := trackedSkeleton()
	sk := Build(raw)
	if len(sk) != JointCount {
		t.Fatalf("got %d bones, want %d", len(sk), JointCount)
	}
	for j, b := range sk {
		if b.EndJoint != j {
			t.Errorf("bone keyed %s ends at %s", j, b.EndJoint)
		}
		if b.StartJoint != j.Parent() {
			t.Errorf("bone %s starts at %s, want %s", j, b.StartJoint, j.Parent())
		}
		if diff := cmp.Diff(raw.Joints[j.Parent()].Position, b.Position); diff != "" {
			t.Errorf("bone %s start position mismatch (-want +got):\n%s", j, diff)
		}
		if diff := cmp.Diff(raw.Joints[j].Position, b.EndPosition); diff != "" {
			t.Errorf("bone %s end position mismatch (-want +got):\n%s", j, diff)
		}
	}
	if l := sk[JointSpine].Length(); math.Abs(l-0.1) > 1e-9 {
		t.Errorf("spine length = %f, want 0.1", l)
	}
}

func TestBuild_RootAbsoluteEqualsRelative(t *testing.T) {
	raw := trackedSkeleton()
	raw.Joints[JointHipCenter].Rotation = axisAngle(r3.Vec{Y: 1}, 30)
	sk := Build(raw)

	root := sk[JointHipCenter]
	if diff := cmp.Diff(root.Rotation, root.AbsoluteRotation, approx); diff != "" {
		t.Errorf("root absolute != relative (-rel +abs):\n%s", diff)
	}
	if diff := cmp.Diff(root.RotationMatrix, root.AbsoluteRotationMatrix, approx); diff != "" {
		t.Errorf("root absolute matrix != relative matrix:\n%s", diff)
	}
}

func TestBuild_AbsoluteComposesDownTheChain(t *testing.T) {
	raw := trackedSkeleton()
	root := axisAngle(r3.Vec{Y: 1}, 30)
	child := axisAngle(r3.Vec{X: 1}, 45)
	grandchild := axisAngle(r3.Vec{Z: 1}, -20)
	raw.Joints[JointHipCenter].Rotation = root
	raw.Joints[JointSpine].Rotation = child
	raw.Joints[JointShoulderCenter].Rotation = grandchild

	sk := Build(raw)
	want := quat.Mul(quat.Mul(root, child), grandchild)
	got := sk[JointShoulderCenter].AbsoluteRotation
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("grandchild absolute rotation mismatch (-want +got):\n%s", diff)
	}

	// The matrix form rotates vectors the same way as the quaternion.
	v := r3.Vec{X: 0.3, Y: -0.2, Z: 1}
	byQuat := r3.Rotation(want).Rotate(v)
	byMatrix := sk[JointShoulderCenter].AbsoluteRotationMatrix.Apply(v)
	if diff := cmp.Diff(byQuat, byMatrix, approx); diff != "" {
		t.Errorf("matrix and quaternion disagree (-quat +matrix):\n%s", diff)
	}
}

func TestBuild_NotTrackedJointsOmitted(t *testing.T) {
	raw := trackedSkeleton()
	raw.Joints[JointSpine].TrackingState = JointNotTracked
	raw.Joints[JointSpine].Rotation = axisAngle(r3.Vec{X: 1}, 90)
	raw.Joints[JointHandLeft].TrackingState = JointInferred

	sk := Build(raw)
	if _, ok := sk[JointSpine]; ok {
		t.Error("not-tracked joint should have no bone")
	}
	if len(sk) != JointCount-1 {
		t.Errorf("got %d bones, want %d", len(sk), JointCount-1)
	}
	if sk[JointHandLeft].TrackingState != JointInferred {
		t.Error("inferred joint should pass through as inferred")
	}

	// The omitted spine still contributes to its descendants.
	want := axisAngle(r3.Vec{X: 1}, 90)
	if diff := cmp.Diff(want, sk[JointShoulderCenter].AbsoluteRotation, approx); diff != "" {
		t.Errorf("descendant of omitted joint (-want +got):\n%s", diff)
	}
}

func TestBuild_ZeroQuaternionIsIdentity(t *testing.T) {
	raw := trackedSkeleton()
	raw.Joints[JointHead].Rotation = quat.Number{}
	sk := Build(raw)
	if diff := cmp.Diff(Identity4, sk[JointHead].RotationMatrix, approx); diff != "" {
		t.Errorf("zero quaternion matrix (-identity +got):\n%s", diff)
	}
}

func TestBuildFrame_AlwaysSixSlots(t *testing.T) {
	if got := len(BuildFrame(nil)); got != SkeletonCount {
		t.Fatalf("nil frame: got %d slots, want %d", got, SkeletonCount)
	}

	raw := &RawFrame{FrameNumber: 3}
	raw.Skeletons[2] = trackedSkeleton()
	out := BuildFrame(raw)
	if len(out) != SkeletonCount {
		t.Fatalf("got %d slots, want %d", len(out), SkeletonCount)
	}
	if TrackedCount(out) != 1 || !out[2].IsTracked() {
		t.Errorf("expected only slot 2 tracked, got %d tracked", TrackedCount(out))
	}
	for i, s := range out {
		if s == nil {
			t.Errorf("slot %d is nil, want empty map", i)
		}
	}
}

func TestRotationMatrix_IsProperRotation(t *testing.T) {
	for _, q := range []quat.Number{
		{Real: 1},
		axisAngle(r3.Vec{X: 1, Y: 1}, 73),
		{Real: 2, Imag: 1, Jmag: -3, Kmag: 0.5}, // not unit, normalized first
	} {
		if m := RotationMatrix(q); !IsRotationMatrix(m) {
			t.Errorf("RotationMatrix(%v) is not a rotation: %v", q, m)
		}
	}
	bad := Identity4
	bad[3] = 1
	if IsRotationMatrix(bad) {
		t.Error("translation should not count as a pure rotation")
	}
}

func TestSkeleton_JSONKeysAreJointNames(t *testing.T) {
	sk := Build(trackedSkeleton())
	b, err := json.Marshal(sk)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back map[string]json.RawMessage
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, ok := back["elbow_left"]; !ok {
		t.Errorf("expected elbow_left key in %s", b)
	}

	var decoded Skeleton
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("Unmarshal Skeleton: %v", err)
	}
	if len(decoded) != len(sk) {
		t.Errorf("decoded %d bones, want %d", len(decoded), len(sk))
	}
}

func TestTransform_SmoothParameters(t *testing.T) {
	tests := []struct {
		tr   Transform
		want SmoothParameters
		ok   bool
	}{
		{TransformNone, SmoothParameters{}, false},
		{TransformDefault, SmoothParameters{0.5, 0.5, 0.5, 0.05, 0.04}, true},
		{TransformSmooth, SmoothParameters{0.5, 0.1, 0.5, 0.1, 0.1}, true},
		{TransformVerySmooth, SmoothParameters{0.7, 0.3, 1.0, 1.0, 1.0}, true},
	}
	for _, tc := range tests {
		t.Run(tc.tr.String(), func(t *testing.T) {
			got, ok := tc.tr.SmoothParameters()
			if ok != tc.ok {
				t.Errorf("ok = %v, want %v", ok, tc.ok)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("SmoothParameters (-want +got):\n%s", diff)
			}
			parsed, err := ParseTransform(tc.tr.String())
			if err != nil || parsed != tc.tr {
				t.Errorf("ParseTransform(%q) = %v, %v", tc.tr.String(), parsed, err)
			}
		})
	}
}

func TestSelectionMode(t *testing.T) {
	for m := SelectionDefault; m <= SelectionActive2; m++ {
		parsed, err := ParseSelectionMode(m.String())
		if err != nil || parsed != m {
			t.Errorf("ParseSelectionMode(%q) = %v, %v", m.String(), parsed, err)
		}
	}
	if SelectionSticky1.MaxTracked() != 1 || SelectionActive2.MaxTracked() != 2 {
		t.Error("unexpected MaxTracked")
	}
	if _, err := ParseSelectionMode("nearest"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
