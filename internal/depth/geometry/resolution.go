package geometry

import (
	"fmt"
	"image"
	"strings"
)

// ImageResolution identifies one of the fixed stream resolutions a sensor
// supports. Values outside the enumerated set are invalid.
type ImageResolution int

const (
	ResolutionInvalid  ImageResolution = -1
	Resolution80x60    ImageResolution = 0
	Resolution320x240  ImageResolution = 1
	Resolution640x480  ImageResolution = 2
	Resolution1280x960 ImageResolution = 3
)

// Stream defaults applied when no resolution is configured.
const (
	DefaultColorResolution = Resolution640x480
	DefaultDepthResolution = Resolution320x240
)

var resolutionSizes = map[ImageResolution]image.Point{
	Resolution80x60:    {X: 80, Y: 60},
	Resolution320x240:  {X: 320, Y: 240},
	Resolution640x480:  {X: 640, Y: 480},
	Resolution1280x960: {X: 1280, Y: 960},
}

// Size returns the pixel dimensions for r. ok is false when r is not a
// supported resolution.
func (r ImageResolution) Size() (size image.Point, ok bool) {
	size, ok = resolutionSizes[r]
	return size, ok
}

// MustSize returns the pixel dimensions for r and panics when r is not a
// supported resolution. Mapping routines treat an unknown resolution as a
// caller bug rather than a recoverable condition.
func (r ImageResolution) MustSize() image.Point {
	size, ok := r.Size()
	if !ok {
		panic(fmt.Sprintf("geometry: unsupported image resolution %d", int(r)))
	}
	return size
}

// Width returns the pixel width for r, or 0 when r is unsupported.
func (r ImageResolution) Width() int {
	size, _ := r.Size()
	return size.X
}

// Height returns the pixel height for r, or 0 when r is unsupported.
func (r ImageResolution) Height() int {
	size, _ := r.Size()
	return size.Y
}

// PixelCount returns width*height for r, or 0 when r is unsupported.
func (r ImageResolution) PixelCount() int {
	size, _ := r.Size()
	return size.X * size.Y
}

// IsValid reports whether r is one of the enumerated resolutions.
func (r ImageResolution) IsValid() bool {
	_, ok := r.Size()
	return ok
}

// IsValidForColor reports whether the colour stream can run at r.
func (r ImageResolution) IsValidForColor() bool {
	return r == Resolution640x480 || r == Resolution1280x960
}

// IsValidForDepth reports whether the depth stream can run at r.
func (r ImageResolution) IsValidForDepth() bool {
	return r == Resolution80x60 || r == Resolution320x240 || r == Resolution640x480
}

// SupportsPlayerIndex reports whether a depth stream at r carries the
// player-index bits. The sensor only segments users up to 320x240.
func (r ImageResolution) SupportsPlayerIndex() bool {
	return r == Resolution80x60 || r == Resolution320x240
}

func (r ImageResolution) String() string {
	size, ok := r.Size()
	if !ok {
		return "invalid"
	}
	return fmt.Sprintf("%dx%d", size.X, size.Y)
}

// ParseResolution parses a "WxH" string such as "640x480".
func ParseResolution(s string) (ImageResolution, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	for r := range resolutionSizes {
		if r.String() == s {
			return r, nil
		}
	}
	return ResolutionInvalid, fmt.Errorf("unknown image resolution %q", s)
}

// ColorResolutions lists the resolutions the colour stream accepts.
func ColorResolutions() []ImageResolution {
	return []ImageResolution{Resolution640x480, Resolution1280x960}
}

// DepthResolutions lists the resolutions the depth stream accepts.
func DepthResolutions() []ImageResolution {
	return []ImageResolution{Resolution80x60, Resolution320x240, Resolution640x480}
}
