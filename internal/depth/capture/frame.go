package capture

import (
	"image"
	"time"

	"github.com/banshee-data/depthframe/internal/depth/imaging"
	"github.com/banshee-data/depthframe/internal/depth/skeleton"
)

// Frame is one assembled tick. It owns its image data: nothing the device
// does afterwards changes it, and accessors hand out copies so consumers
// sharing a Frame cannot change it for each other.
type Frame struct {
	frameID   int64
	deviceID  string
	sessionID string
	timestamp time.Time
	color     *image.NRGBA
	depth     *imaging.DepthChannel
	skeletons []skeleton.Skeleton
}

// NewFrame assembles a Frame from data the caller hands over. Used by the
// device and by tooling that reloads recorded frames.
func NewFrame(frameID int64, deviceID, sessionID string, timestamp time.Time,
	color *image.NRGBA, depth *imaging.DepthChannel, skeletons []skeleton.Skeleton) Frame {
	return Frame{
		frameID:   frameID,
		deviceID:  deviceID,
		sessionID: sessionID,
		timestamp: timestamp,
		color:     color,
		depth:     depth,
		skeletons: skeletons,
	}
}

// FrameID increases by one each time any stream delivers new data.
func (f Frame) FrameID() int64 { return f.frameID }

func (f Frame) DeviceID() string     { return f.deviceID }
func (f Frame) SessionID() string    { return f.sessionID }
func (f Frame) Timestamp() time.Time { return f.timestamp }

// ColorSurface returns a copy of the colour image, or nil when colour is
// disabled or has not arrived yet.
func (f Frame) ColorSurface() *image.NRGBA { return imaging.CloneSurface(f.color) }

// ColorBounds returns the colour image rectangle, empty without colour.
func (f Frame) ColorBounds() image.Rectangle {
	if f.color == nil {
		return image.Rectangle{}
	}
	return f.color.Bounds()
}

// DepthChannel returns a copy of the depth channel, or nil when depth is
// disabled or has not arrived yet.
func (f Frame) DepthChannel() *imaging.DepthChannel { return f.depth.Clone() }

// DepthBounds returns the depth channel rectangle, empty without depth.
func (f Frame) DepthBounds() image.Rectangle { return f.depth.Bounds() }

// DepthAt returns the packed depth value at (x, y), or 0 outside the
// channel or without depth.
func (f Frame) DepthAt(x, y int) uint16 { return f.depth.At(x, y) }

// DepthValues returns a copy of the packed depth pixels in row-major order.
func (f Frame) DepthValues() []uint16 { return f.depth.Values() }

// Skeletons returns a copy of the skeleton slots: skeleton.SkeletonCount
// entries when user tracking is enabled, nil otherwise. Untracked slots
// are empty.
func (f Frame) Skeletons() []skeleton.Skeleton { return cloneSkeletons(f.skeletons) }

func (f Frame) HasColor() bool     { return f.color != nil }
func (f Frame) HasDepth() bool     { return f.depth != nil }
func (f Frame) HasSkeletons() bool { return f.skeletons != nil }

// UserCount returns the number of distinct players in the depth channel.
func (f Frame) UserCount() int { return imaging.CalcNumUsersFromDepth(f.depth) }

// TrackedSkeletonCount returns the number of tracked skeleton slots.
func (f Frame) TrackedSkeletonCount() int { return skeleton.TrackedCount(f.skeletons) }

func cloneSkeletons(in []skeleton.Skeleton) []skeleton.Skeleton {
	if in == nil {
		return nil
	}
	out := make([]skeleton.Skeleton, len(in))
	for i, s := range in {
		out[i] = s.Clone()
	}
	return out
}
