// Package skeleton owns layer G1 (bodies) of the depth data model.
//
// Responsibilities: the fixed 20-joint body hierarchy rooted at the hip
// centre, the raw per-slot data a sensor reports each tick, and building
// that raw data into Skeletons of Bones with relative and absolute
// rotations. It also names the smoothing transforms and slot selection
// modes a sensor can be asked to apply.
// Key types: JointName, Bone, Skeleton, RawFrame.
//
// Dependency rule: G1 may depend on G0 (geometry), never on capture.
package skeleton
