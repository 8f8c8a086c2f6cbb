package geometry

import "math"

// Nominal optical constants for the depth (IR) and colour cameras.
const (
	DepthHorizontalFOVDegrees = 58.5
	DepthVerticalFOVDegrees   = 45.6
	ColorHorizontalFOVDegrees = 62.0
	ColorVerticalFOVDegrees   = 48.6

	// ColorBaselineMeters is the horizontal offset of the colour camera from
	// the IR camera along the sensor X axis. It is the source of the
	// depth-dependent parallax between the two images.
	ColorBaselineMeters = 0.025
)

// Depth range constants in millimetres.
const (
	MinDepthMillimeters     = 800
	MaxDepthMillimeters     = 4000
	NearMinDepthMillimeters = 400
	NearMaxDepthMillimeters = 3000

	// NormalizationRangeMillimeters is the span mapped onto [0, 1] (or
	// [0, 255]) when depth is rendered or normalized.
	NormalizationRangeMillimeters = 4000
)

// FocalLength derives pinhole focal lengths in pixels from a field of view
// and an image size: f = (size/2) / tan(fov/2).
func FocalLength(hfovDeg, vfovDeg float64, width, height int) (fx, fy float64) {
	fx = float64(width) / 2 / math.Tan(hfovDeg*math.Pi/360)
	fy = float64(height) / 2 / math.Tan(vfovDeg*math.Pi/360)
	return fx, fy
}

// DepthFocalLength returns the depth camera focal lengths scaled to r.
// Panics if r is unsupported.
func DepthFocalLength(r ImageResolution) (fx, fy float64) {
	size := r.MustSize()
	return FocalLength(DepthHorizontalFOVDegrees, DepthVerticalFOVDegrees, size.X, size.Y)
}

// ColorFocalLength returns the colour camera focal lengths scaled to r.
// Panics if r is unsupported.
func ColorFocalLength(r ImageResolution) (fx, fy float64) {
	size := r.MustSize()
	return FocalLength(ColorHorizontalFOVDegrees, ColorVerticalFOVDegrees, size.X, size.Y)
}

// DepthRange returns the valid depth window in millimetres for the given
// mode.
func DepthRange(nearMode bool) (minMM, maxMM int) {
	if nearMode {
		return NearMinDepthMillimeters, NearMaxDepthMillimeters
	}
	return MinDepthMillimeters, MaxDepthMillimeters
}
