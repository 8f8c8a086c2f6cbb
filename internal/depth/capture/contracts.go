package capture

import (
	"errors"
	"fmt"

	"github.com/banshee-data/depthframe/internal/depth/geometry"
	"github.com/banshee-data/depthframe/internal/depth/skeleton"
	"gonum.org/v1/gonum/spatial/r3"
)

// MaximumDeviceCount caps how many sensors GetDeviceCount reports.
const MaximumDeviceCount = 8

// Read results a Sensor returns from its Next* methods.
var (
	// ErrNoData means the stream has nothing new this tick.
	ErrNoData = errors.New("no new data")
	// ErrStreamBroken means the stream failed and will not recover without
	// reopening the device.
	ErrStreamBroken = errors.New("stream broken")
)

// Selection identifies the sensor a Driver should open. Index is always
// resolved; ID is the sensor's connection ID when known.
type Selection struct {
	Index int
	ID    string
}

// InitFlags tells a sensor which subsystems to power up.
type InitFlags struct {
	Color            bool
	Depth            bool
	DepthPlayerIndex bool // depth pixels carry player indices
	Skeleton         bool
}

// SkeletonTracking configures the sensor's body tracker.
type SkeletonTracking struct {
	Seated    bool
	NearMode  bool
	Selection skeleton.SelectionMode
	Transform skeleton.Transform
	// Smoothing is the filter for Transform; zero when Transform is none.
	Smoothing skeleton.SmoothParameters
}

// Driver enumerates and opens sensors.
type Driver interface {
	// DeviceCount returns the number of attached sensors.
	DeviceCount() int
	// DeviceID returns the connection ID of the sensor at index.
	DeviceID(index int) (string, error)
	// Open claims a sensor. The returned Sensor is owned by the caller
	// until Close.
	Open(sel Selection) (Sensor, error)
}

// Sensor is one opened device. Next* calls return immediately, either with
// new data, ErrNoData, or ErrStreamBroken. Close may be called while a
// Next* call is in flight on another goroutine.
type Sensor interface {
	ID() string
	Init(flags InitFlags) error
	OpenColorStream(res geometry.ImageResolution) error
	OpenDepthStream(res geometry.ImageResolution, nearMode bool) error
	EnableSkeletonTracking(cfg SkeletonTracking) error

	// NextColorBuffer returns a BGRX buffer of width*height*4 bytes.
	NextColorBuffer() ([]byte, error)
	// NextDepthBuffer returns width*height packed depth values.
	NextDepthBuffer() ([]uint16, error)
	NextSkeletonFrame() (*skeleton.RawFrame, error)

	Close() error
}

// TiltController is implemented by sensors with a motorised base.
type TiltController interface {
	TiltAngle() (int, error)
	SetTiltAngle(degrees int) error
}

// AccelerometerReader is implemented by sensors that report gravity.
type AccelerometerReader interface {
	// Acceleration returns the gravity vector in g units, sensor space.
	Acceleration() (r3.Vec, error)
}

// Status is a connection state change reported to a StatusReporter.
type Status int

const (
	StatusConnected Status = iota
	StatusDisconnected
	StatusStalled
	StatusNotPowered
	StatusInitializing
)

func (s Status) String() string {
	switch s {
	case StatusConnected:
		return "connected"
	case StatusDisconnected:
		return "disconnected"
	case StatusStalled:
		return "stalled"
	case StatusNotPowered:
		return "not_powered"
	case StatusInitializing:
		return "initializing"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// StatusReporter receives connection state changes. Calls are made from
// whichever goroutine drives the device and never while the device holds
// its lock.
type StatusReporter interface {
	OnStatusChanged(deviceID string, status Status)
}

// StatusReporterFunc adapts a function to StatusReporter.
type StatusReporterFunc func(deviceID string, status Status)

func (f StatusReporterFunc) OnStatusChanged(deviceID string, status Status) {
	f(deviceID, status)
}

// StatusCode is a driver-level result code. Drivers return (or wrap) one so
// bring-up errors can report it in Error.Code.
type StatusCode int32

// Known driver status codes.
const (
	CodeOK                 StatusCode = 0
	CodeDeviceNotConnected StatusCode = -1
	CodeDeviceNotReady     StatusCode = -2
	CodeDeviceInUse        StatusCode = -3
	CodeDeviceNotPowered   StatusCode = -4
	CodeStreamNotEnabled   StatusCode = -5
	CodeResolutionInvalid  StatusCode = -6
	CodeSkeletonEngineBusy StatusCode = -7
)

var statusCodeText = map[StatusCode]string{
	CodeOK:                 "ok",
	CodeDeviceNotConnected: "device not connected",
	CodeDeviceNotReady:     "device not ready",
	CodeDeviceInUse:        "device in use",
	CodeDeviceNotPowered:   "device not powered",
	CodeStreamNotEnabled:   "stream not enabled",
	CodeResolutionInvalid:  "resolution invalid",
	CodeSkeletonEngineBusy: "skeleton engine busy",
}

func (c StatusCode) Error() string {
	if s, ok := statusCodeText[c]; ok {
		return s
	}
	return fmt.Sprintf("status code %d", int32(c))
}

// GetDeviceCount returns how many sensors driver reports, capped at
// MaximumDeviceCount.
func GetDeviceCount(driver Driver) int {
	if driver == nil {
		return 0
	}
	n := driver.DeviceCount()
	if n < 0 {
		return 0
	}
	if n > MaximumDeviceCount {
		return MaximumDeviceCount
	}
	return n
}
