// Package imaging owns layer G1 (pixels) of the depth data model.
//
// Responsibilities: the owned, bounds-checked 16-bit depth channel with its
// packed depth+player layout, decoding the sensor's colour byte order into
// RGBA surfaces, turning a depth channel into a drawable surface (binary
// masks, background removal, per-user colour), and the fixed user palette.
// Key types: DepthChannel, DepthProcessOptions.
//
// Dependency rule: G1 may depend on G0 (geometry), never on capture.
package imaging
