// Package depthframe turns a depth camera's raw colour, depth and skeleton
// output into synchronized, timestamped frames, and maps points between
// colour, depth and skeleton space.
//
// The implementation lives in internal/depth; this package re-exports the
// public surface. A Device is driven by a Driver supplied by the caller:
//
//	dev := depthframe.NewDevice(depthframe.Config{Driver: drv})
//	dev.ConnectEventHandler(func(f depthframe.Frame) { ... })
//	if err := dev.Start(depthframe.DefaultDeviceOptions()); err != nil { ... }
//	defer dev.Stop()
//	dev.Run(ctx, 0)
package depthframe

import (
	"io"

	"github.com/banshee-data/depthframe/internal/depth/capture"
	"github.com/banshee-data/depthframe/internal/depth/geometry"
	"github.com/banshee-data/depthframe/internal/depth/imaging"
	"github.com/banshee-data/depthframe/internal/depth/mapping"
	"github.com/banshee-data/depthframe/internal/depth/recorder"
	"github.com/banshee-data/depthframe/internal/depth/skeleton"
)

// Device and frames.
type (
	Device         = capture.Device
	Config         = capture.Config
	Frame          = capture.Frame
	FrameHandler   = capture.FrameHandler
	DeviceOptions  = capture.DeviceOptions
	State          = capture.State
	Status         = capture.Status
	StatusReporter = capture.StatusReporter
	Error          = capture.Error
	ErrorKind      = capture.ErrorKind
	Stream         = capture.Stream
)

// Sensor collaborator contracts.
type (
	Driver              = capture.Driver
	Sensor              = capture.Sensor
	Selection           = capture.Selection
	InitFlags           = capture.InitFlags
	SkeletonTracking    = capture.SkeletonTracking
	TiltController      = capture.TiltController
	AccelerometerReader = capture.AccelerometerReader
	StatusCode          = capture.StatusCode
)

// Images and skeletons.
type (
	ImageResolution       = geometry.ImageResolution
	DepthChannel          = imaging.DepthChannel
	DepthProcessOptions   = imaging.DepthProcessOptions
	JointName             = skeleton.JointName
	Bone                  = skeleton.Bone
	Skeleton              = skeleton.Skeleton
	RawFrame              = skeleton.RawFrame
	RawSkeleton           = skeleton.RawSkeleton
	RawJoint              = skeleton.RawJoint
	JointTrackingState    = skeleton.JointTrackingState
	SkeletonTrackingState = skeleton.SkeletonTrackingState
	SelectionMode         = skeleton.SelectionMode
	Transform             = skeleton.Transform
)

// Resolutions.
const (
	ResolutionInvalid  = geometry.ResolutionInvalid
	Resolution80x60    = geometry.Resolution80x60
	Resolution320x240  = geometry.Resolution320x240
	Resolution640x480  = geometry.Resolution640x480
	Resolution1280x960 = geometry.Resolution1280x960
)

// Connection states passed to a StatusReporter.
const (
	StatusConnected    = capture.StatusConnected
	StatusDisconnected = capture.StatusDisconnected
	StatusStalled      = capture.StatusStalled
	StatusNotPowered   = capture.StatusNotPowered
	StatusInitializing = capture.StatusInitializing
)

// Sensor streams named by errors and failure reports.
const (
	StreamColor    = capture.StreamColor
	StreamDepth    = capture.StreamDepth
	StreamSkeleton = capture.StreamSkeleton
)

const (
	MaximumDeviceCount = capture.MaximumDeviceCount
	SkeletonCount      = skeleton.SkeletonCount
	MaxTiltDegrees     = capture.MaxTiltDegrees
)

// Errors returned by Device.Start, matched with errors.Is.
var (
	ErrDeviceCreate           = capture.ErrDeviceCreate
	ErrDeviceInit             = capture.ErrDeviceInit
	ErrDeviceInvalid          = capture.ErrDeviceInvalid
	ErrStreamOpen             = capture.ErrStreamOpen
	ErrSkeletonTrackingEnable = capture.ErrSkeletonTrackingEnable

	// Sensor read results.
	ErrNoData       = capture.ErrNoData
	ErrStreamBroken = capture.ErrStreamBroken
)

var (
	NewDevice            = capture.NewDevice
	DefaultDeviceOptions = capture.DefaultDeviceOptions
	GetDeviceCount       = capture.GetDeviceCount

	NewDepthChannel       = imaging.NewDepthChannel
	DepthChannelToSurface = imaging.DepthChannelToSurface
	CalcNumUsersFromDepth = imaging.CalcNumUsersFromDepth
	UserIDFromDepthCoord  = imaging.UserIDFromDepthCoord
	GetUserColor          = imaging.GetUserColor

	MapColorCoordToDepth    = mapping.MapColorCoordToDepth
	MapDepthCoordToColor    = mapping.MapDepthCoordToColor
	MapSkeletonCoordToColor = mapping.MapSkeletonCoordToColor
	MapSkeletonCoordToDepth = mapping.MapSkeletonCoordToDepth
	MapDepthCoordToSkeleton = mapping.MapDepthCoordToSkeleton

	BuildSkeletons = skeleton.BuildFrame
)

// LogWriters routes the three log streams. A nil writer disables a stream.
type LogWriters struct {
	Ops   io.Writer // actionable warnings and lifecycle events
	Diag  io.Writer // diagnostics
	Trace io.Writer // per-tick telemetry
}

// SetLogWriters configures logging for capture and recording.
func SetLogWriters(w LogWriters) {
	capture.SetLogWriters(w.Ops, w.Diag, w.Trace)
	recorder.SetLogWriters(w.Ops, w.Diag, w.Trace)
}
