package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/depthframe/internal/depth/geometry"
	"github.com/banshee-data/depthframe/internal/depth/skeleton"
)

// DefaultConfigPath is the path to the canonical device defaults file.
const DefaultConfigPath = "config/device.defaults.json"

// DeviceConfig is the on-disk form of a device's capture settings and the
// depth rendering options. Every field is optional; the Get* accessors
// supply defaults for anything left out, so partial files are safe.
type DeviceConfig struct {
	// Streams
	ColorEnabled        *bool   `json:"color_enabled,omitempty"`
	DepthEnabled        *bool   `json:"depth_enabled,omitempty"`
	UserTrackingEnabled *bool   `json:"user_tracking_enabled,omitempty"`
	NearModeEnabled     *bool   `json:"near_mode_enabled,omitempty"`
	SeatedModeEnabled   *bool   `json:"seated_mode_enabled,omitempty"`
	ColorResolution     *string `json:"color_resolution,omitempty"` // e.g. "640x480"
	DepthResolution     *string `json:"depth_resolution,omitempty"` // e.g. "320x240"

	// Device selection; set at most one.
	DeviceIndex *int    `json:"device_index,omitempty"`
	DeviceID    *string `json:"device_id,omitempty"`

	// Skeleton
	SkeletonSelection *string `json:"skeleton_selection,omitempty"` // e.g. "closest2"
	SkeletonTransform *string `json:"skeleton_transform,omitempty"` // e.g. "smooth"

	// Depth rendering
	Binary           *bool `json:"binary,omitempty"`
	BinaryInverted   *bool `json:"binary_inverted,omitempty"`
	RemoveBackground *bool `json:"remove_background,omitempty"`
	UserColor        *bool `json:"user_color,omitempty"`

	// Capture loop
	PollInterval *string `json:"poll_interval,omitempty"` // duration string like "33ms"
	MaxIdleTicks *int    `json:"max_idle_ticks,omitempty"`
	Verbose      *bool   `json:"verbose,omitempty"`
}

// Helper functions to create pointers
func ptrBool(v bool) *bool       { return &v }
func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }

// EmptyDeviceConfig returns a DeviceConfig with all fields nil, which
// resolves to the built-in defaults through the Get* accessors.
func EmptyDeviceConfig() *DeviceConfig {
	return &DeviceConfig{}
}

// DefaultDeviceConfig returns a config with every field set to its default.
func DefaultDeviceConfig() *DeviceConfig {
	return &DeviceConfig{
		ColorEnabled:        ptrBool(true),
		DepthEnabled:        ptrBool(true),
		UserTrackingEnabled: ptrBool(true),
		NearModeEnabled:     ptrBool(false),
		SeatedModeEnabled:   ptrBool(false),
		ColorResolution:     ptrString(geometry.DefaultColorResolution.String()),
		DepthResolution:     ptrString(geometry.DefaultDepthResolution.String()),
		DeviceIndex:         ptrInt(0),
		SkeletonSelection:   ptrString(skeleton.SelectionDefault.String()),
		SkeletonTransform:   ptrString(skeleton.TransformDefault.String()),
		Binary:              ptrBool(false),
		BinaryInverted:      ptrBool(false),
		RemoveBackground:    ptrBool(false),
		UserColor:           ptrBool(false),
		PollInterval:        ptrString("33ms"),
		MaxIdleTicks:        ptrInt(90),
		Verbose:             ptrBool(false),
	}
}

// LoadDeviceConfig loads a DeviceConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadDeviceConfig(path string) (*DeviceConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyDeviceConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents. Panics if the file cannot be loaded; intended
// for test setup.
func MustLoadDefaultConfig() *DeviceConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/depth/capture/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadDeviceConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configured values are usable.
func (c *DeviceConfig) Validate() error {
	if c.ColorResolution != nil {
		r, err := geometry.ParseResolution(*c.ColorResolution)
		if err != nil {
			return fmt.Errorf("color_resolution: %w", err)
		}
		if !r.IsValidForColor() {
			return fmt.Errorf("color_resolution %s is not supported by the colour stream", r)
		}
	}
	if c.DepthResolution != nil {
		r, err := geometry.ParseResolution(*c.DepthResolution)
		if err != nil {
			return fmt.Errorf("depth_resolution: %w", err)
		}
		if !r.IsValidForDepth() {
			return fmt.Errorf("depth_resolution %s is not supported by the depth stream", r)
		}
	}

	if c.DeviceID != nil && *c.DeviceID != "" && c.DeviceIndex != nil {
		return fmt.Errorf("device_index and device_id are mutually exclusive")
	}
	if c.DeviceIndex != nil && *c.DeviceIndex < 0 {
		return fmt.Errorf("device_index must be non-negative, got %d", *c.DeviceIndex)
	}

	if c.SkeletonSelection != nil {
		if _, err := skeleton.ParseSelectionMode(*c.SkeletonSelection); err != nil {
			return fmt.Errorf("skeleton_selection: %w", err)
		}
	}
	if c.SkeletonTransform != nil {
		if _, err := skeleton.ParseTransform(*c.SkeletonTransform); err != nil {
			return fmt.Errorf("skeleton_transform: %w", err)
		}
	}

	if c.PollInterval != nil && *c.PollInterval != "" {
		d, err := time.ParseDuration(*c.PollInterval)
		if err != nil {
			return fmt.Errorf("invalid poll_interval '%s': %w", *c.PollInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("poll_interval must be positive, got %s", d)
		}
	}
	if c.MaxIdleTicks != nil && *c.MaxIdleTicks < 0 {
		return fmt.Errorf("max_idle_ticks must be non-negative, got %d", *c.MaxIdleTicks)
	}

	return nil
}

func getBool(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// GetColorEnabled returns the color_enabled value or the default (true).
func (c *DeviceConfig) GetColorEnabled() bool { return getBool(c.ColorEnabled, true) }

// GetDepthEnabled returns the depth_enabled value or the default (true).
func (c *DeviceConfig) GetDepthEnabled() bool { return getBool(c.DepthEnabled, true) }

// GetUserTrackingEnabled returns the user_tracking_enabled value or the default (true).
func (c *DeviceConfig) GetUserTrackingEnabled() bool { return getBool(c.UserTrackingEnabled, true) }

// GetNearModeEnabled returns the near_mode_enabled value or the default (false).
func (c *DeviceConfig) GetNearModeEnabled() bool { return getBool(c.NearModeEnabled, false) }

// GetSeatedModeEnabled returns the seated_mode_enabled value or the default (false).
func (c *DeviceConfig) GetSeatedModeEnabled() bool { return getBool(c.SeatedModeEnabled, false) }

func (c *DeviceConfig) GetBinary() bool           { return getBool(c.Binary, false) }
func (c *DeviceConfig) GetBinaryInverted() bool   { return getBool(c.BinaryInverted, false) }
func (c *DeviceConfig) GetRemoveBackground() bool { return getBool(c.RemoveBackground, false) }
func (c *DeviceConfig) GetUserColor() bool        { return getBool(c.UserColor, false) }
func (c *DeviceConfig) GetVerbose() bool          { return getBool(c.Verbose, false) }

// GetColorResolution returns the parsed colour resolution, falling back to
// the default when unset or unparseable.
func (c *DeviceConfig) GetColorResolution() geometry.ImageResolution {
	if c.ColorResolution == nil {
		return geometry.DefaultColorResolution
	}
	r, err := geometry.ParseResolution(*c.ColorResolution)
	if err != nil {
		return geometry.DefaultColorResolution
	}
	return r
}

// GetDepthResolution returns the parsed depth resolution, falling back to
// the default when unset or unparseable.
func (c *DeviceConfig) GetDepthResolution() geometry.ImageResolution {
	if c.DepthResolution == nil {
		return geometry.DefaultDepthResolution
	}
	r, err := geometry.ParseResolution(*c.DepthResolution)
	if err != nil {
		return geometry.DefaultDepthResolution
	}
	return r
}

// GetDeviceIndex returns the device_index value or 0.
func (c *DeviceConfig) GetDeviceIndex() int {
	if c.DeviceIndex == nil {
		return 0
	}
	return *c.DeviceIndex
}

// GetDeviceID returns the device_id value or "".
func (c *DeviceConfig) GetDeviceID() string {
	if c.DeviceID == nil {
		return ""
	}
	return *c.DeviceID
}

// GetSkeletonSelection returns the parsed selection mode or the default.
func (c *DeviceConfig) GetSkeletonSelection() skeleton.SelectionMode {
	if c.SkeletonSelection == nil {
		return skeleton.SelectionDefault
	}
	m, err := skeleton.ParseSelectionMode(*c.SkeletonSelection)
	if err != nil {
		return skeleton.SelectionDefault
	}
	return m
}

// GetSkeletonTransform returns the parsed smoothing transform or the default.
func (c *DeviceConfig) GetSkeletonTransform() skeleton.Transform {
	if c.SkeletonTransform == nil {
		return skeleton.TransformDefault
	}
	t, err := skeleton.ParseTransform(*c.SkeletonTransform)
	if err != nil {
		return skeleton.TransformDefault
	}
	return t
}

// GetPollInterval parses and returns the PollInterval as a time.Duration.
func (c *DeviceConfig) GetPollInterval() time.Duration {
	if c.PollInterval == nil || *c.PollInterval == "" {
		return 33 * time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.PollInterval)
	if err != nil || d <= 0 {
		return 33 * time.Millisecond // default on parse error
	}
	return d
}

// GetMaxIdleTicks returns the max_idle_ticks value or the default. Zero
// disables stall detection.
func (c *DeviceConfig) GetMaxIdleTicks() int {
	if c.MaxIdleTicks == nil {
		return 90
	}
	return *c.MaxIdleTicks
}
