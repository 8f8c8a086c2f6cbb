// Package mapping converts points between the three sensor spaces:
// colour pixels, depth pixels and skeleton (camera) space in metres.
//
// The depth and colour cameras are modelled as ideal pinholes with the
// nominal fields of view from geometry, separated by a fixed horizontal
// baseline. Registration between the two images therefore needs a depth
// value; colour-to-depth resolves it by iterating on the depth channel.
//
// Every mapping returns either a point inside the target image or
// InvalidPoint. Unsupported resolutions panic.
package mapping
