package capture

import (
	"fmt"

	"github.com/banshee-data/depthframe/internal/config"
	"github.com/banshee-data/depthframe/internal/depth/geometry"
	"github.com/banshee-data/depthframe/internal/depth/skeleton"
)

// DeviceOptions selects the device and the streams and features to enable.
// A Device copies its options at Start; later changes to the caller's
// value have no effect on a running device.
type DeviceOptions struct {
	ColorEnabled        bool
	DepthEnabled        bool
	UserTrackingEnabled bool
	NearModeEnabled     bool
	SeatedModeEnabled   bool

	ColorResolution geometry.ImageResolution
	DepthResolution geometry.ImageResolution

	// Exactly one of DeviceIndex (>= 0) and DeviceID (non-empty) selects
	// the sensor. Use WithDeviceIndex / WithDeviceID to switch.
	DeviceIndex int
	DeviceID    string

	SkeletonSelection skeleton.SelectionMode
	SkeletonTransform skeleton.Transform
}

// DefaultDeviceOptions enables every stream at the default resolutions on
// the first device.
func DefaultDeviceOptions() DeviceOptions {
	return DeviceOptions{
		ColorEnabled:        true,
		DepthEnabled:        true,
		UserTrackingEnabled: true,
		ColorResolution:     geometry.DefaultColorResolution,
		DepthResolution:     geometry.DefaultDepthResolution,
		DeviceIndex:         0,
		SkeletonSelection:   skeleton.SelectionDefault,
		SkeletonTransform:   skeleton.TransformDefault,
	}
}

// DeviceOptionsFromConfig builds options from a loaded DeviceConfig. A
// configured device ID takes the place of the index.
func DeviceOptionsFromConfig(cfg *config.DeviceConfig) DeviceOptions {
	opts := DeviceOptions{
		ColorEnabled:        cfg.GetColorEnabled(),
		DepthEnabled:        cfg.GetDepthEnabled(),
		UserTrackingEnabled: cfg.GetUserTrackingEnabled(),
		NearModeEnabled:     cfg.GetNearModeEnabled(),
		SeatedModeEnabled:   cfg.GetSeatedModeEnabled(),
		ColorResolution:     cfg.GetColorResolution(),
		DepthResolution:     cfg.GetDepthResolution(),
		SkeletonSelection:   cfg.GetSkeletonSelection(),
		SkeletonTransform:   cfg.GetSkeletonTransform(),
	}
	if id := cfg.GetDeviceID(); id != "" {
		return opts.WithDeviceID(id)
	}
	return opts.WithDeviceIndex(cfg.GetDeviceIndex())
}

// WithDeviceIndex selects a device by index and clears any device ID.
func (o DeviceOptions) WithDeviceIndex(index int) DeviceOptions {
	o.DeviceIndex = index
	o.DeviceID = ""
	return o
}

// WithDeviceID selects a device by connection ID and clears the index.
func (o DeviceOptions) WithDeviceID(id string) DeviceOptions {
	o.DeviceID = id
	o.DeviceIndex = -1
	return o
}

// Validate checks the options are self-consistent. It does not consult a
// driver: an index outside the attached devices, negative included, is
// reported by Start as ErrDeviceInvalid.
func (o DeviceOptions) Validate() error {
	if o.DeviceIndex >= 0 && o.DeviceID != "" {
		return fmt.Errorf("device index %d and device id %q are mutually exclusive", o.DeviceIndex, o.DeviceID)
	}

	if !o.ColorEnabled && !o.DepthEnabled && !o.UserTrackingEnabled {
		return fmt.Errorf("no streams enabled")
	}
	if o.ColorEnabled && !o.ColorResolution.IsValidForColor() {
		return fmt.Errorf("color resolution %s is not supported by the colour stream", o.ColorResolution)
	}
	if o.DepthEnabled && !o.DepthResolution.IsValidForDepth() {
		return fmt.Errorf("depth resolution %s is not supported by the depth stream", o.DepthResolution)
	}
	if _, ok := selectionModes[o.SkeletonSelection]; !ok {
		return fmt.Errorf("unknown skeleton selection mode %d", int(o.SkeletonSelection))
	}
	if o.SkeletonTransform < skeleton.TransformNone || o.SkeletonTransform > skeleton.TransformVerySmooth {
		return fmt.Errorf("unknown skeleton transform %d", int(o.SkeletonTransform))
	}
	return nil
}

var selectionModes = map[skeleton.SelectionMode]struct{}{
	skeleton.SelectionDefault:  {},
	skeleton.SelectionClosest1: {},
	skeleton.SelectionClosest2: {},
	skeleton.SelectionSticky1:  {},
	skeleton.SelectionSticky2:  {},
	skeleton.SelectionActive1:  {},
	skeleton.SelectionActive2:  {},
}

// initFlags derives the sensor subsystems needed for these options.
func (o DeviceOptions) initFlags() InitFlags {
	return InitFlags{
		Color:            o.ColorEnabled,
		Depth:            o.DepthEnabled,
		DepthPlayerIndex: o.DepthEnabled && o.UserTrackingEnabled && o.DepthResolution.SupportsPlayerIndex(),
		Skeleton:         o.UserTrackingEnabled,
	}
}

// skeletonTracking derives the body tracker settings for these options.
func (o DeviceOptions) skeletonTracking() SkeletonTracking {
	smooth, _ := o.SkeletonTransform.SmoothParameters()
	return SkeletonTracking{
		Seated:    o.SeatedModeEnabled,
		NearMode:  o.NearModeEnabled,
		Selection: o.SkeletonSelection,
		Transform: o.SkeletonTransform,
		Smoothing: smooth,
	}
}
