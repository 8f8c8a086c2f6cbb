package skeleton

import (
	"fmt"
	"strings"
)

// Transform selects the joint smoothing the sensor applies before skeleton
// data is reported. It never changes the shape of the output.
type Transform int

const (
	TransformNone Transform = iota
	TransformDefault
	TransformSmooth
	TransformVerySmooth
)

// SmoothParameters are the sensor-side Holt double exponential filter
// settings for a Transform.
type SmoothParameters struct {
	Smoothing          float64 `json:"smoothing"`
	Correction         float64 `json:"correction"`
	Prediction         float64 `json:"prediction"`
	JitterRadius       float64 `json:"jitter_radius"`
	MaxDeviationRadius float64 `json:"max_deviation_radius"`
}

// SmoothParameters returns the filter settings for t, and false for
// TransformNone (no filtering).
func (t Transform) SmoothParameters() (SmoothParameters, bool) {
	switch t {
	case TransformDefault:
		return SmoothParameters{0.5, 0.5, 0.5, 0.05, 0.04}, true
	case TransformSmooth:
		return SmoothParameters{0.5, 0.1, 0.5, 0.1, 0.1}, true
	case TransformVerySmooth:
		return SmoothParameters{0.7, 0.3, 1.0, 1.0, 1.0}, true
	default:
		return SmoothParameters{}, false
	}
}

var transformNames = map[Transform]string{
	TransformNone:       "none",
	TransformDefault:    "default",
	TransformSmooth:     "smooth",
	TransformVerySmooth: "very_smooth",
}

func (t Transform) String() string {
	if s, ok := transformNames[t]; ok {
		return s
	}
	return fmt.Sprintf("transform(%d)", int(t))
}

// ParseTransform parses a name produced by Transform.String.
func ParseTransform(s string) (Transform, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range transformNames {
		if name == s {
			return t, nil
		}
	}
	return TransformNone, fmt.Errorf("unknown skeleton transform %q", s)
}

// SelectionMode chooses which tracked bodies occupy the skeleton slots.
type SelectionMode int

const (
	SelectionDefault SelectionMode = iota
	SelectionClosest1
	SelectionClosest2
	SelectionSticky1
	SelectionSticky2
	SelectionActive1
	SelectionActive2
)

var selectionNames = map[SelectionMode]string{
	SelectionDefault:  "default",
	SelectionClosest1: "closest1",
	SelectionClosest2: "closest2",
	SelectionSticky1:  "sticky1",
	SelectionSticky2:  "sticky2",
	SelectionActive1:  "active1",
	SelectionActive2:  "active2",
}

func (m SelectionMode) String() string {
	if s, ok := selectionNames[m]; ok {
		return s
	}
	return fmt.Sprintf("selection(%d)", int(m))
}

// MaxTracked is how many bodies the mode keeps fully tracked. Default
// leaves the choice to the sensor and reports 2.
func (m SelectionMode) MaxTracked() int {
	switch m {
	case SelectionClosest1, SelectionSticky1, SelectionActive1:
		return 1
	default:
		return 2
	}
}

// ParseSelectionMode parses a name produced by SelectionMode.String.
func ParseSelectionMode(s string) (SelectionMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m, name := range selectionNames {
		if name == s {
			return m, nil
		}
	}
	return SelectionDefault, fmt.Errorf("unknown skeleton selection mode %q", s)
}
