package mapping

import (
	"image"
	"math"
	"testing"

	"github.com/banshee-data/depthframe/internal/depth/geometry"
	"github.com/banshee-data/depthframe/internal/depth/imaging"
	"gonum.org/v1/gonum/spatial/r3"
)

// wall returns a depth channel at the given resolution filled with one
// distance.
func wall(res geometry.ImageResolution, mm uint16) *imaging.DepthChannel {
	size := res.MustSize()
	c := imaging.NewDepthChannel(size.X, size.Y)
	for y := 0; y < size.Y; y++ {
		for x := 0; x < size.X; x++ {
			c.Set(x, y, imaging.PackDepth(mm, 0))
		}
	}
	return c
}

func inBoundsOrInvalid(p image.Point, res geometry.ImageResolution) bool {
	if p == InvalidPoint {
		return true
	}
	size := res.MustSize()
	return p.In(image.Rect(0, 0, size.X, size.Y))
}

func TestMapSkeletonCoordToDepth_Centre(t *testing.T) {
	for _, res := range geometry.DepthResolutions() {
		got := MapSkeletonCoordToDepth(r3.Vec{Z: 2}, res)
		want := image.Pt(res.Width()/2, res.Height()/2)
		if got != want {
			t.Errorf("%s: centre maps to %v, want %v", res, got, want)
		}
	}
}

func TestMapSkeletonCoordToDepth_YInverted(t *testing.T) {
	up := MapSkeletonCoordToDepth(r3.Vec{Y: 0.3, Z: 2}, geometry.Resolution320x240)
	down := MapSkeletonCoordToDepth(r3.Vec{Y: -0.3, Z: 2}, geometry.Resolution320x240)
	if up.Y >= down.Y {
		t.Errorf("point above the axis (%v) should map above one below it (%v)", up, down)
	}
	right := MapSkeletonCoordToDepth(r3.Vec{X: 0.3, Z: 2}, geometry.Resolution320x240)
	if right.X <= 160 {
		t.Errorf("positive X should map right of centre, got %v", right)
	}
}

func TestMapSkeletonCoordToDepth_Invalid(t *testing.T) {
	tests := []struct {
		name string
		p    r3.Vec
	}{
		{"zero z", r3.Vec{X: 0.1, Y: 0.1, Z: 0}},
		{"behind", r3.Vec{Z: -1}},
		{"far left", r3.Vec{X: -10, Z: 1}},
		{"far up", r3.Vec{Y: 10, Z: 1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := MapSkeletonCoordToDepth(tc.p, geometry.Resolution640x480); got != InvalidPoint {
				t.Errorf("got %v, want InvalidPoint", got)
			}
		})
	}
}

func TestMapDepthCoordToSkeleton_RoundTrip(t *testing.T) {
	res := geometry.Resolution320x240
	for _, p := range []image.Point{{0, 0}, {160, 120}, {300, 17}, {42, 230}} {
		v := MapDepthCoordToSkeleton(p, 2500, res)
		if math.Abs(v.Z-2.5) > 1e-9 {
			t.Fatalf("Z = %f, want 2.5", v.Z)
		}
		if back := MapSkeletonCoordToDepth(v, res); back != p {
			t.Errorf("round trip %v -> %v -> %v", p, v, back)
		}
	}
}

func TestMapDepthCoordToColor_Parallax(t *testing.T) {
	depthRes, colorRes := geometry.Resolution320x240, geometry.Resolution640x480
	centre := image.Pt(160, 120)

	near := MapDepthCoordToColor(centre, wall(depthRes, 500), colorRes, depthRes)
	far := MapDepthCoordToColor(centre, wall(depthRes, 3500), colorRes, depthRes)
	if near == InvalidPoint || far == InvalidPoint {
		t.Fatalf("unexpected invalid mapping near=%v far=%v", near, far)
	}
	if near.X <= far.X {
		t.Errorf("parallax should grow as distance shrinks: near=%v far=%v", near, far)
	}
	if near.Y != 240 || far.Y != 240 {
		t.Errorf("baseline is horizontal, rows should match: near=%v far=%v", near, far)
	}
}

func TestMapDepthCoordToColor_NoDepth(t *testing.T) {
	depthRes := geometry.Resolution320x240
	got := MapDepthCoordToColor(image.Pt(10, 10), wall(depthRes, 0), geometry.Resolution640x480, depthRes)
	if got != InvalidPoint {
		t.Errorf("got %v, want InvalidPoint for zero depth", got)
	}
	got = MapDepthCoordToColor(image.Pt(10, 10), nil, geometry.Resolution640x480, depthRes)
	if got != InvalidPoint {
		t.Errorf("got %v, want InvalidPoint for nil channel", got)
	}
}

func TestMapColorCoordToDepth_InvertsDepthToColor(t *testing.T) {
	for _, depthRes := range geometry.DepthResolutions() {
		for _, colorRes := range geometry.ColorResolutions() {
			depth := wall(depthRes, 2000)
			w, h := depthRes.Width(), depthRes.Height()
			for _, p := range []image.Point{{w / 2, h / 2}, {w / 4, h / 3}, {3 * w / 4, 2 * h / 3}} {
				c := MapDepthCoordToColor(p, depth, colorRes, depthRes)
				if c == InvalidPoint {
					t.Fatalf("%s/%s: %v has no colour mapping", colorRes, depthRes, p)
				}
				back := MapColorCoordToDepth(c, depth, colorRes, depthRes)
				if back == InvalidPoint {
					t.Fatalf("%s/%s: colour %v has no depth mapping", colorRes, depthRes, c)
				}
				if abs(back.X-p.X) > 1 || abs(back.Y-p.Y) > 1 {
					t.Errorf("%s/%s: %v -> %v -> %v", colorRes, depthRes, p, c, back)
				}
			}
		}
	}
}

func TestMapColorCoordToDepth_Invalid(t *testing.T) {
	depthRes, colorRes := geometry.Resolution320x240, geometry.Resolution640x480

	if got := MapColorCoordToDepth(image.Pt(320, 240), wall(depthRes, 0), colorRes, depthRes); got != InvalidPoint {
		t.Errorf("zero depth: got %v, want InvalidPoint", got)
	}
	if got := MapColorCoordToDepth(image.Pt(-5, 10), wall(depthRes, 2000), colorRes, depthRes); got != InvalidPoint {
		t.Errorf("outside colour image: got %v, want InvalidPoint", got)
	}
	if got := MapColorCoordToDepth(image.Pt(640, 10), wall(depthRes, 2000), colorRes, depthRes); got != InvalidPoint {
		t.Errorf("outside colour image: got %v, want InvalidPoint", got)
	}
}

func TestMapSkeletonCoordToColor(t *testing.T) {
	depthRes, colorRes := geometry.Resolution320x240, geometry.Resolution640x480
	p := r3.Vec{X: 0.1, Y: -0.2, Z: 2}

	// With no depth channel the point's own distance is used.
	a := MapSkeletonCoordToColor(p, nil, colorRes, depthRes)
	b := MapSkeletonCoordToColor(p, wall(depthRes, 2000), colorRes, depthRes)
	if a == InvalidPoint || a != b {
		t.Errorf("got %v and %v, want the same valid pixel", a, b)
	}
	if got := MapSkeletonCoordToColor(r3.Vec{Z: 0}, nil, colorRes, depthRes); got != InvalidPoint {
		t.Errorf("z=0: got %v, want InvalidPoint", got)
	}
}

func TestMappings_StayInBounds(t *testing.T) {
	for _, depthRes := range geometry.DepthResolutions() {
		for _, colorRes := range geometry.ColorResolutions() {
			for _, mm := range []uint16{0, 400, 800, 4000} {
				depth := wall(depthRes, mm)
				cw, ch := colorRes.Width(), colorRes.Height()
				dw, dh := depthRes.Width(), depthRes.Height()

				for y := -2; y <= ch+2; y += ch / 8 {
					for x := -2; x <= cw+2; x += cw / 8 {
						p := MapColorCoordToDepth(image.Pt(x, y), depth, colorRes, depthRes)
						if !inBoundsOrInvalid(p, depthRes) {
							t.Fatalf("%s/%s colour (%d,%d) -> %v out of depth bounds", colorRes, depthRes, x, y, p)
						}
					}
				}
				for y := -1; y <= dh; y += dh / 6 {
					for x := -1; x <= dw; x += dw / 6 {
						p := MapDepthCoordToColor(image.Pt(x, y), depth, colorRes, depthRes)
						if !inBoundsOrInvalid(p, colorRes) {
							t.Fatalf("%s/%s depth (%d,%d) -> %v out of colour bounds", colorRes, depthRes, x, y, p)
						}
					}
				}
				for _, v := range []r3.Vec{{X: -3, Y: 2, Z: 1}, {X: 0.5, Y: 0.5, Z: 0.4}, {Z: 4}, {X: 1.5, Y: -1.1, Z: 2}} {
					if p := MapSkeletonCoordToDepth(v, depthRes); !inBoundsOrInvalid(p, depthRes) {
						t.Fatalf("skeleton %v -> depth %v out of bounds", v, p)
					}
					if p := MapSkeletonCoordToColor(v, depth, colorRes, depthRes); !inBoundsOrInvalid(p, colorRes) {
						t.Fatalf("skeleton %v -> colour %v out of bounds", v, p)
					}
				}
			}
		}
	}
}

func TestMapping_InvalidResolutionPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unsupported resolution")
		}
	}()
	MapSkeletonCoordToDepth(r3.Vec{Z: 1}, geometry.ResolutionInvalid)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
