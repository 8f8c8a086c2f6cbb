package mapping

import (
	"image"
	"math"

	"github.com/banshee-data/depthframe/internal/depth/geometry"
	"github.com/banshee-data/depthframe/internal/depth/imaging"
	"gonum.org/v1/gonum/spatial/r3"
)

// InvalidPoint is returned when a mapping has no valid target pixel.
var InvalidPoint = image.Pt(-1, -1)

// colorToDepthIterations bounds the parallax fixed-point search. The
// correction converges within a pixel after two or three steps for any
// depth in the sensor's range.
const colorToDepthIterations = 3

// intrinsics is a pinhole model for one camera at one resolution.
type intrinsics struct {
	w, h   float64
	fx, fy float64
}

func depthIntrinsics(r geometry.ImageResolution) intrinsics {
	size := r.MustSize()
	fx, fy := geometry.DepthFocalLength(r)
	return intrinsics{w: float64(size.X), h: float64(size.Y), fx: fx, fy: fy}
}

func colorIntrinsics(r geometry.ImageResolution) intrinsics {
	size := r.MustSize()
	fx, fy := geometry.ColorFocalLength(r)
	return intrinsics{w: float64(size.X), h: float64(size.Y), fx: fx, fy: fy}
}

// pixel rounds (u, v) to the nearest pixel, or InvalidPoint when it lies
// outside the image.
func (in intrinsics) pixel(u, v float64) image.Point {
	if math.IsNaN(u) || math.IsNaN(v) {
		return InvalidPoint
	}
	x, y := math.Floor(u+0.5), math.Floor(v+0.5)
	if x < 0 || y < 0 || x >= in.w || y >= in.h {
		return InvalidPoint
	}
	return image.Pt(int(x), int(y))
}

// MapSkeletonCoordToDepth projects a camera-space point (metres) onto the
// depth image. The image origin is the top-left corner, so camera Y is
// inverted.
func MapSkeletonCoordToDepth(p r3.Vec, depthRes geometry.ImageResolution) image.Point {
	in := depthIntrinsics(depthRes)
	if p.Z <= 0 {
		return InvalidPoint
	}
	u := in.w/2 + p.X/p.Z*in.fx
	v := in.h/2 - p.Y/p.Z*in.fy
	return in.pixel(u, v)
}

// MapDepthCoordToSkeleton back-projects a depth pixel with a distance in
// millimetres into camera space. A zero distance yields the origin.
func MapDepthCoordToSkeleton(p image.Point, depthMM uint16, depthRes geometry.ImageResolution) r3.Vec {
	in := depthIntrinsics(depthRes)
	z := float64(depthMM) / 1000
	return r3.Vec{
		X: (float64(p.X) - in.w/2) / in.fx * z,
		Y: (in.h/2 - float64(p.Y)) / in.fy * z,
		Z: z,
	}
}

// MapDepthCoordToColor registers a depth pixel onto the colour image using
// the distance stored in depth at that pixel.
func MapDepthCoordToColor(p image.Point, depth *imaging.DepthChannel, colorRes, depthRes geometry.ImageResolution) image.Point {
	din := depthIntrinsics(depthRes)
	cin := colorIntrinsics(colorRes)
	mm := depthAt(depth, p, din)
	if mm == 0 {
		return InvalidPoint
	}
	return depthToColor(float64(p.X), float64(p.Y), float64(mm)/1000, din, cin)
}

func depthToColor(u, v, z float64, din, cin intrinsics) image.Point {
	if u < 0 || v < 0 || u >= din.w || v >= din.h || z <= 0 {
		return InvalidPoint
	}
	xn := (u-din.w/2)/din.fx + geometry.ColorBaselineMeters/z
	yn := (v - din.h/2) / din.fy
	return cin.pixel(cin.w/2+xn*cin.fx, cin.h/2+yn*cin.fy)
}

// MapColorCoordToDepth finds the depth pixel that registers onto the given
// colour pixel. The parallax between the cameras depends on the distance
// at the answer, so the estimate is refined against the depth channel a
// few times. Returns InvalidPoint when the estimate leaves the depth image
// or lands on a pixel with no depth reading.
func MapColorCoordToDepth(p image.Point, depth *imaging.DepthChannel, colorRes, depthRes geometry.ImageResolution) image.Point {
	din := depthIntrinsics(depthRes)
	cin := colorIntrinsics(colorRes)
	if float64(p.X) < 0 || float64(p.Y) < 0 || float64(p.X) >= cin.w || float64(p.Y) >= cin.h {
		return InvalidPoint
	}

	xn := (float64(p.X) - cin.w/2) / cin.fx
	yn := (float64(p.Y) - cin.h/2) / cin.fy
	v := din.h/2 + yn*din.fy

	// Start with no parallax and correct for it once a distance is known.
	guess := din.pixel(din.w/2+xn*din.fx, v)
	for i := 0; i < colorToDepthIterations; i++ {
		if guess == InvalidPoint {
			return InvalidPoint
		}
		mm := depthAt(depth, guess, din)
		if mm == 0 {
			return InvalidPoint
		}
		z := float64(mm) / 1000
		next := din.pixel(din.w/2+(xn-geometry.ColorBaselineMeters/z)*din.fx, v)
		if next == guess {
			break
		}
		guess = next
	}
	if guess == InvalidPoint || depthAt(depth, guess, din) == 0 {
		return InvalidPoint
	}
	return guess
}

// MapSkeletonCoordToColor projects a camera-space point onto the colour
// image. The point's own distance drives the parallax unless the depth
// channel has a reading at the projected pixel.
func MapSkeletonCoordToColor(p r3.Vec, depth *imaging.DepthChannel, colorRes, depthRes geometry.ImageResolution) image.Point {
	din := depthIntrinsics(depthRes)
	cin := colorIntrinsics(colorRes)
	dp := MapSkeletonCoordToDepth(p, depthRes)
	if dp == InvalidPoint {
		return InvalidPoint
	}
	z := p.Z
	if mm := depthAt(depth, dp, din); mm != 0 {
		z = float64(mm) / 1000
	}
	return depthToColor(float64(dp.X), float64(dp.Y), z, din, cin)
}

// depthAt reads the distance in millimetres at a depth-resolution pixel.
// A channel stored at a different size than the resolution is sampled
// proportionally.
func depthAt(depth *imaging.DepthChannel, p image.Point, din intrinsics) uint16 {
	if depth.Empty() {
		return 0
	}
	x, y := p.X, p.Y
	if cw, ch := depth.Width(), depth.Height(); float64(cw) != din.w || float64(ch) != din.h {
		x = int(float64(x) * float64(cw) / din.w)
		y = int(float64(y) * float64(ch) / din.h)
	}
	return imaging.DepthValue(depth.At(x, y))
}
