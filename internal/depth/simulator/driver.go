package simulator

import (
	"fmt"
	"sync"

	"github.com/banshee-data/depthframe/internal/depth/capture"
	"github.com/google/uuid"
)

// Config shapes the synthetic scene.
type Config struct {
	SensorCount int // attached sensors (default 1)
	Players     int // people in the scene, 0..6 (default 2)
	// ColorEvery delivers a colour image on every n-th read, returning
	// ErrNoData otherwise (default 1).
	ColorEvery int
	// WallMillimeters is the background distance (default 3000).
	WallMillimeters int
}

// DefaultConfig returns one sensor with two people in front of the wall.
func DefaultConfig() Config {
	return Config{SensorCount: 1, Players: 2, ColorEvery: 1, WallMillimeters: 3000}
}

func (c Config) withDefaults() Config {
	if c.SensorCount <= 0 {
		c.SensorCount = 1
	}
	if c.SensorCount > capture.MaximumDeviceCount {
		c.SensorCount = capture.MaximumDeviceCount
	}
	if c.Players < 0 {
		c.Players = 0
	}
	if c.Players > maxPlayers {
		c.Players = maxPlayers
	}
	if c.ColorEvery <= 0 {
		c.ColorEvery = 1
	}
	if c.WallMillimeters <= 0 {
		c.WallMillimeters = 3000
	}
	return c
}

// Failures scripts errors for one sensor index.
type Failures struct {
	Open           error
	Init           error
	ColorStream    error
	DepthStream    error
	SkeletonEnable error

	// BreakAfter makes BreakStream return ErrStreamBroken once it has
	// delivered this many reads. Zero never breaks.
	BreakAfter  int
	BreakStream capture.Stream
}

// sensorNamespace scopes the deterministic simulated sensor IDs.
var sensorNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("depthframe.simulator"))

// SensorID returns the connection ID of the simulated sensor at index.
func SensorID(index int) string {
	return "sim-" + uuid.NewSHA1(sensorNamespace, []byte(fmt.Sprintf("sensor-%d", index))).String()
}

// Driver is a capture.Driver backed by synthetic sensors.
type Driver struct {
	cfg Config

	mu       sync.Mutex
	failures map[int]Failures
	opened   map[int]*Sensor
}

// NewDriver creates a driver with cfg.SensorCount sensors attached.
func NewDriver(cfg Config) *Driver {
	return &Driver{
		cfg:      cfg.withDefaults(),
		failures: make(map[int]Failures),
		opened:   make(map[int]*Sensor),
	}
}

// InjectFailures scripts failures for the sensor at index, applied the
// next time it is opened.
func (d *Driver) InjectFailures(index int, f Failures) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[index] = f
}

// DeviceCount returns the number of attached sensors.
func (d *Driver) DeviceCount() int {
	return d.cfg.SensorCount
}

// DeviceID returns the ID of the sensor at index.
func (d *Driver) DeviceID(index int) (string, error) {
	if index < 0 || index >= d.cfg.SensorCount {
		return "", capture.CodeDeviceNotConnected
	}
	return SensorID(index), nil
}

// Open claims the selected sensor. A sensor can only be open once at a
// time.
func (d *Driver) Open(sel capture.Selection) (capture.Sensor, error) {
	if sel.Index < 0 || sel.Index >= d.cfg.SensorCount {
		return nil, fmt.Errorf("open sensor %d: %w", sel.Index, capture.CodeDeviceNotConnected)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	f := d.failures[sel.Index]
	if f.Open != nil {
		return nil, f.Open
	}
	if s, ok := d.opened[sel.Index]; ok && !s.isClosed() {
		return nil, fmt.Errorf("open sensor %d: %w", sel.Index, capture.CodeDeviceInUse)
	}
	s := newSensor(SensorID(sel.Index), d.cfg, f)
	d.opened[sel.Index] = s
	return s, nil
}

// Sensor returns the sensor last opened at index, or nil.
func (d *Driver) Sensor(index int) *Sensor {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opened[index]
}
