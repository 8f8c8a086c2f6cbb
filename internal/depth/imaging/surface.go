package imaging

import (
	"fmt"
	"image"
)

// BytesPerColorPixel is the stride of one pixel in the sensor's colour
// buffer (B, G, R, X).
const BytesPerColorPixel = 4

// ColorSurfaceFromBGRA decodes a BGRX colour buffer into a new opaque
// RGBA surface. The fourth byte of each sensor pixel is padding and is
// replaced with full alpha.
func ColorSurfaceFromBGRA(width, height int, buf []byte) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid colour surface size %dx%d", width, height)
	}
	want := width * height * BytesPerColorPixel
	if len(buf) != want {
		return nil, fmt.Errorf("colour buffer has %d bytes, want %d for %dx%d",
			len(buf), want, width, height)
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < width*height; i++ {
		s := buf[i*4 : i*4+4 : i*4+4]
		d := img.Pix[i*4 : i*4+4 : i*4+4]
		d[0] = s[2]
		d[1] = s[1]
		d[2] = s[0]
		d[3] = 0xff
	}
	return img, nil
}

// SurfaceToBGRA encodes a surface back into the sensor's BGRX layout.
// Used when replaying recorded frames through a Sensor.
func SurfaceToBGRA(img *image.NRGBA) []byte {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	out := make([]byte, b.Dx()*b.Dy()*BytesPerColorPixel)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):]
		for x := 0; x < b.Dx(); x++ {
			out[i] = row[x*4+2]
			out[i+1] = row[x*4+1]
			out[i+2] = row[x*4]
			out[i+3] = 0xff
			i += 4
		}
	}
	return out
}

// CloneSurface returns a deep copy of img. A nil surface clones to nil.
func CloneSurface(img *image.NRGBA) *image.NRGBA {
	if img == nil {
		return nil
	}
	out := &image.NRGBA{
		Pix:    make([]uint8, len(img.Pix)),
		Stride: img.Stride,
		Rect:   img.Rect,
	}
	copy(out.Pix, img.Pix)
	return out
}
