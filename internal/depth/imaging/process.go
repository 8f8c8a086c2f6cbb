package imaging

import (
	"image"
	"image/color"

	"github.com/banshee-data/depthframe/internal/config"
	"github.com/banshee-data/depthframe/internal/depth/geometry"
)

// DepthProcessOptions controls how a depth channel is rendered into a
// surface. The flags are independent; Binary implies background removal.
type DepthProcessOptions struct {
	Binary           bool // users white, background black
	BinaryInverted   bool // swap black and white in binary mode
	RemoveBackground bool // pixels with no player become background
	UserColor        bool // tint player pixels with their palette colour
}

// EnableBinary turns on binary mode. Binary mode also removes the
// background.
func (o DepthProcessOptions) EnableBinary(enable, inverted bool) DepthProcessOptions {
	o.Binary = enable
	o.BinaryInverted = inverted
	return o
}

// EnableRemoveBackground turns background removal on or off.
func (o DepthProcessOptions) EnableRemoveBackground(enable bool) DepthProcessOptions {
	o.RemoveBackground = enable
	return o
}

// EnableUserColor turns per-user colourisation on or off.
func (o DepthProcessOptions) EnableUserColor(enable bool) DepthProcessOptions {
	o.UserColor = enable
	return o
}

// RemovesBackground reports whether background pixels are keyed out,
// either explicitly or through binary mode.
func (o DepthProcessOptions) RemovesBackground() bool {
	return o.RemoveBackground || o.Binary
}

// DepthProcessOptionsFromConfig builds options from a loaded DeviceConfig.
func DepthProcessOptionsFromConfig(cfg *config.DeviceConfig) DepthProcessOptions {
	return DepthProcessOptions{
		Binary:           cfg.GetBinary(),
		BinaryInverted:   cfg.GetBinaryInverted(),
		RemoveBackground: cfg.GetRemoveBackground(),
		UserColor:        cfg.GetUserColor(),
	}
}

var (
	black = color.NRGBA{A: 0xff}
	white = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// DepthChannelToSurface renders depth into an RGBA surface with one pixel
// per depth pixel. Each pixel follows the first matching rule:
//
//  1. background removal (or binary) and no player: background, black or
//     white when inverted; transparent unless in binary mode
//  2. binary: foreground, white or black when inverted
//  3. user colour and a player: the player's palette colour
//  4. otherwise: grayscale, near is bright, zero depth is black
func DepthChannelToSurface(depth *DepthChannel, opts DepthProcessOptions) *image.NRGBA {
	if depth.Empty() {
		return image.NewNRGBA(image.Rect(0, 0, 0, 0))
	}

	background, foreground := black, white
	if opts.BinaryInverted {
		background, foreground = white, black
	}
	if !opts.Binary {
		background.A = 0
	}
	removeBackground := opts.RemovesBackground()

	w, h := depth.Width(), depth.Height()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			packed := depth.pix[y*w+x]
			player := PlayerIndex(packed)

			var c color.NRGBA
			switch {
			case removeBackground && player == 0:
				c = background
			case opts.Binary:
				c = foreground
			case opts.UserColor && player > 0:
				c = GetUserColor(player)
			default:
				c = grayscale(DepthValue(packed))
			}

			i := img.PixOffset(x, y)
			img.Pix[i] = c.R
			img.Pix[i+1] = c.G
			img.Pix[i+2] = c.B
			img.Pix[i+3] = c.A
		}
	}
	return img
}

// grayscale maps a distance linearly across the normalization range, with
// near objects bright. No reading renders black.
func grayscale(depthMM uint16) color.NRGBA {
	if depthMM == 0 {
		return black
	}
	d := int(depthMM)
	if d > geometry.NormalizationRangeMillimeters {
		d = geometry.NormalizationRangeMillimeters
	}
	v := uint8(255 - d*255/geometry.NormalizationRangeMillimeters)
	return color.NRGBA{R: v, G: v, B: v, A: 0xff}
}

// CalcNumUsersFromDepth counts the distinct player indices present.
func CalcNumUsersFromDepth(depth *DepthChannel) int {
	if depth.Empty() {
		return 0
	}
	var seen [MaxPlayers + 1]bool
	count := 0
	for _, v := range depth.pix {
		p := PlayerIndex(v)
		if p > 0 && !seen[p] {
			seen[p] = true
			count++
			if count == MaxPlayers {
				break
			}
		}
	}
	return count
}

// UserIDFromDepthCoord returns the player index at p, or 0 when p lies
// outside the channel.
func UserIDFromDepthCoord(depth *DepthChannel, p image.Point) int {
	if !depth.In(p) {
		return 0
	}
	return PlayerIndex(depth.At(p.X, p.Y))
}
