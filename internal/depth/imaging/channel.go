package imaging

import (
	"fmt"
	"image"

	"github.com/banshee-data/depthframe/internal/depth/geometry"
)

// Packed depth layout: the upper 13 bits hold distance in millimetres and
// the low 3 bits hold the player index.
const (
	PlayerIndexBits = 3
	PlayerIndexMask = 1<<PlayerIndexBits - 1

	// MaxPlayers is the highest player index the sensor assigns. Index 7 is
	// never produced and is treated as "no player".
	MaxPlayers = 6
)

// PackDepth packs a distance in millimetres and a player index into the
// sensor's 16-bit layout. Distances beyond 13 bits are clamped.
func PackDepth(depthMM uint16, player int) uint16 {
	if depthMM > 0x1FFF {
		depthMM = 0x1FFF
	}
	return depthMM<<PlayerIndexBits | uint16(player&PlayerIndexMask)
}

// DepthValue extracts the distance in millimetres from a packed value.
func DepthValue(packed uint16) uint16 {
	return packed >> PlayerIndexBits
}

// PlayerIndex extracts the player index (0 = no player, 1..6) from a packed
// value.
func PlayerIndex(packed uint16) int {
	p := int(packed & PlayerIndexMask)
	if p > MaxPlayers {
		return 0
	}
	return p
}

// NormalizedDepth maps a packed value's distance onto [0, 1] across the
// nominal normalization range. Zero means no reading.
func NormalizedDepth(packed uint16) float32 {
	d := float32(DepthValue(packed)) / geometry.NormalizationRangeMillimeters
	if d > 1 {
		return 1
	}
	return d
}

// DepthChannel is an owned single-channel image of packed depth values.
// Pixels are stored row-major. Reads outside the bounds return zero.
type DepthChannel struct {
	width  int
	height int
	pix    []uint16
}

// NewDepthChannel allocates a zeroed channel.
func NewDepthChannel(width, height int) *DepthChannel {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	return &DepthChannel{
		width:  width,
		height: height,
		pix:    make([]uint16, width*height),
	}
}

// DepthChannelFromBuffer copies a raw packed buffer into a new channel. The
// buffer must hold exactly width*height values.
func DepthChannelFromBuffer(width, height int, buf []uint16) (*DepthChannel, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid depth channel size %dx%d", width, height)
	}
	if len(buf) != width*height {
		return nil, fmt.Errorf("depth buffer has %d values, want %d for %dx%d",
			len(buf), width*height, width, height)
	}
	c := NewDepthChannel(width, height)
	copy(c.pix, buf)
	return c, nil
}

// Width returns the channel width in pixels.
func (c *DepthChannel) Width() int {
	if c == nil {
		return 0
	}
	return c.width
}

// Height returns the channel height in pixels.
func (c *DepthChannel) Height() int {
	if c == nil {
		return 0
	}
	return c.height
}

// Bounds returns the channel rectangle anchored at the origin.
func (c *DepthChannel) Bounds() image.Rectangle {
	return image.Rect(0, 0, c.Width(), c.Height())
}

// Empty reports whether the channel holds no pixels.
func (c *DepthChannel) Empty() bool {
	return c == nil || len(c.pix) == 0
}

// In reports whether p lies inside the channel.
func (c *DepthChannel) In(p image.Point) bool {
	return !c.Empty() && p.In(c.Bounds())
}

// At returns the packed value at (x, y), or 0 outside the bounds.
func (c *DepthChannel) At(x, y int) uint16 {
	if c.Empty() || x < 0 || y < 0 || x >= c.width || y >= c.height {
		return 0
	}
	return c.pix[y*c.width+x]
}

// Set stores a packed value at (x, y). Writes outside the bounds are
// ignored.
func (c *DepthChannel) Set(x, y int, v uint16) {
	if c.Empty() || x < 0 || y < 0 || x >= c.width || y >= c.height {
		return
	}
	c.pix[y*c.width+x] = v
}

// Values returns a copy of the packed pixels in row-major order.
func (c *DepthChannel) Values() []uint16 {
	if c.Empty() {
		return nil
	}
	out := make([]uint16, len(c.pix))
	copy(out, c.pix)
	return out
}

// Clone returns a deep copy. A nil channel clones to nil.
func (c *DepthChannel) Clone() *DepthChannel {
	if c == nil {
		return nil
	}
	out := &DepthChannel{width: c.width, height: c.height, pix: make([]uint16, len(c.pix))}
	copy(out.pix, c.pix)
	return out
}
