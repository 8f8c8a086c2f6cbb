package geometry

import (
	"math"
	"testing"
)

func TestImageResolution_Size(t *testing.T) {
	tests := []struct {
		res        ImageResolution
		wantW      int
		wantH      int
		wantString string
	}{
		{Resolution80x60, 80, 60, "80x60"},
		{Resolution320x240, 320, 240, "320x240"},
		{Resolution640x480, 640, 480, "640x480"},
		{Resolution1280x960, 1280, 960, "1280x960"},
	}

	for _, tc := range tests {
		t.Run(tc.wantString, func(t *testing.T) {
			size, ok := tc.res.Size()
			if !ok {
				t.Fatalf("Size() ok = false for %d", tc.res)
			}
			if size.X != tc.wantW || size.Y != tc.wantH {
				t.Errorf("Size() = %v, want %dx%d", size, tc.wantW, tc.wantH)
			}
			if tc.res.String() != tc.wantString {
				t.Errorf("String() = %q, want %q", tc.res.String(), tc.wantString)
			}
			if tc.res.PixelCount() != tc.wantW*tc.wantH {
				t.Errorf("PixelCount() = %d, want %d", tc.res.PixelCount(), tc.wantW*tc.wantH)
			}
		})
	}
}

func TestImageResolution_Invalid(t *testing.T) {
	for _, r := range []ImageResolution{ResolutionInvalid, 4, 99} {
		if r.IsValid() {
			t.Errorf("resolution %d should be invalid", r)
		}
		if r.Width() != 0 || r.Height() != 0 {
			t.Errorf("resolution %d should have zero size", r)
		}
		if r.String() != "invalid" {
			t.Errorf("String() = %q, want invalid", r.String())
		}
	}
}

func TestImageResolution_MustSizePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("MustSize should panic for unsupported resolution")
		}
	}()
	ImageResolution(42).MustSize()
}

func TestImageResolution_StreamSupport(t *testing.T) {
	for _, r := range ColorResolutions() {
		if !r.IsValidForColor() {
			t.Errorf("%s should be valid for colour", r)
		}
	}
	for _, r := range DepthResolutions() {
		if !r.IsValidForDepth() {
			t.Errorf("%s should be valid for depth", r)
		}
	}
	if Resolution80x60.IsValidForColor() {
		t.Error("80x60 must not be valid for colour")
	}
	if Resolution1280x960.IsValidForDepth() {
		t.Error("1280x960 must not be valid for depth")
	}
	if Resolution640x480.SupportsPlayerIndex() {
		t.Error("640x480 depth does not carry player index")
	}
	if !DefaultDepthResolution.SupportsPlayerIndex() {
		t.Error("default depth resolution should carry player index")
	}
}

func TestParseResolution(t *testing.T) {
	r, err := ParseResolution(" 640X480 ")
	if err != nil {
		t.Fatalf("ParseResolution: %v", err)
	}
	if r != Resolution640x480 {
		t.Errorf("got %v, want 640x480", r)
	}

	if _, err := ParseResolution("1920x1080"); err == nil {
		t.Error("expected error for unsupported resolution string")
	}
}

func TestDepthFocalLength_MatchesNominal(t *testing.T) {
	// The nominal depth focal length at 320x240 is ~285.63 px.
	fx, fy := DepthFocalLength(Resolution320x240)
	if math.Abs(fx-285.63) > 0.5 {
		t.Errorf("fx = %f, want ~285.63", fx)
	}
	if math.Abs(fy-285.63) > 1.0 {
		t.Errorf("fy = %f, want ~285.63", fy)
	}

	// Focal length scales linearly with resolution.
	fx2, _ := DepthFocalLength(Resolution640x480)
	if math.Abs(fx2-2*fx) > 1e-9 {
		t.Errorf("640x480 fx = %f, want %f", fx2, 2*fx)
	}
}

func TestColorFocalLength_MatchesNominal(t *testing.T) {
	// The nominal colour focal length at 640x480 is ~531 px.
	fx, _ := ColorFocalLength(Resolution640x480)
	if math.Abs(fx-531.15) > 5 {
		t.Errorf("fx = %f, want ~531", fx)
	}
}

func TestDepthRange(t *testing.T) {
	lo, hi := DepthRange(false)
	if lo != MinDepthMillimeters || hi != MaxDepthMillimeters {
		t.Errorf("default range = [%d, %d]", lo, hi)
	}
	lo, hi = DepthRange(true)
	if lo != NearMinDepthMillimeters || hi != NearMaxDepthMillimeters {
		t.Errorf("near range = [%d, %d]", lo, hi)
	}
}
