package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/banshee-data/depthframe/internal/depth/imaging"
	"github.com/banshee-data/depthframe/internal/depth/skeleton"
	"github.com/banshee-data/depthframe/internal/timeutil"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultPollInterval is the Run cadence when none is given, about one
// sensor frame at 30 fps.
const DefaultPollInterval = 33 * time.Millisecond

// MaxTiltDegrees bounds the motor tilt angle either side of level.
const MaxTiltDegrees = 28

// State is the device lifecycle state.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateCapturing
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateCapturing:
		return "capturing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// FrameHandler receives each assembled frame. The frame is owned by the
// handler once called.
type FrameHandler func(Frame)

// Config contains the collaborators for a Device.
type Config struct {
	Driver   Driver
	Reporter StatusReporter // optional
	Clock    timeutil.Clock // defaults to timeutil.RealClock

	// MaxIdleTicks is how many consecutive ticks without new data mark the
	// device stalled. Zero disables stall reporting.
	MaxIdleTicks int
}

// Device runs one sensor through bring-up and per-tick frame assembly.
type Device struct {
	driver       Driver
	reporter     StatusReporter
	clock        timeutil.Clock
	maxIdleTicks int
	verbose      atomic.Bool

	// dispatchMu is held while a frame is handed to the handler, so Stop
	// can tell whether a dispatch is in flight.
	dispatchMu sync.Mutex

	mu         sync.Mutex
	state      State
	generation uint64 // bumped by every Start and Stop
	opts       DeviceOptions
	sensor     Sensor
	deviceID   string
	sessionID  string
	frameID    int64
	color      *image.NRGBA
	depth      *imaging.DepthChannel
	skeletons  []skeleton.Skeleton
	idleTicks  int
	stalled    bool
	stopErr    error
	handler    FrameHandler
}

// NewDevice creates a stopped Device.
func NewDevice(cfg Config) *Device {
	clock := cfg.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Device{
		driver:       cfg.Driver,
		reporter:     cfg.Reporter,
		clock:        clock,
		maxIdleTicks: cfg.MaxIdleTicks,
	}
}

// ConnectEventHandler installs the frame handler, replacing any previous
// one. Pass nil to stop delivering frames.
func (d *Device) ConnectEventHandler(fn FrameHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handler = fn
}

// EnableVerbose turns per-tick trace logging on or off.
func (d *Device) EnableVerbose(enable bool) {
	d.verbose.Store(enable)
}

// IsCapturing reports whether the device is delivering frames.
func (d *Device) IsCapturing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state == StateCapturing
}

// State returns the lifecycle state.
func (d *Device) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Options returns the options the device was last started with.
func (d *Device) Options() DeviceOptions {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opts
}

// DeviceID returns the connection ID of the open sensor, or "".
func (d *Device) DeviceID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.deviceID
}

// SessionID returns the ID assigned by the last successful Start.
func (d *Device) SessionID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sessionID
}

// Start brings up a sensor with opts. A device that is already running is
// stopped first. On failure the device is left stopped and the returned
// error is an *Error naming the failed step, except for invalid options.
func (d *Device) Start(opts DeviceOptions) error {
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("invalid device options: %w", err)
	}
	if d.State() != StateStopped {
		diagf("restarting device %s", d.DeviceID())
		d.Stop()
	}

	d.mu.Lock()
	d.state = StateStarting
	d.generation++
	gen := d.generation
	d.mu.Unlock()

	sensor, err := d.bringUp(opts)
	if err != nil {
		d.mu.Lock()
		if d.generation == gen {
			d.state = StateStopped
		}
		d.mu.Unlock()
		opsf("start failed: %v", err)
		return err
	}

	d.mu.Lock()
	if d.generation != gen {
		// Stop ran while the sensor was coming up.
		d.mu.Unlock()
		closeSensor(sensor)
		return ErrStartCanceled
	}
	d.opts = opts
	d.sensor = sensor
	d.deviceID = sensor.ID()
	d.sessionID = uuid.New().String()
	d.frameID = 0
	d.color = nil
	d.depth = nil
	d.skeletons = nil
	if opts.UserTrackingEnabled {
		d.skeletons = skeleton.EmptyFrame()
	}
	d.idleTicks = 0
	d.stalled = false
	d.stopErr = nil
	d.state = StateCapturing
	deviceID, sessionID := d.deviceID, d.sessionID
	d.mu.Unlock()

	opsf("device %s capturing, session %s (color=%v %s, depth=%v %s, users=%v)",
		deviceID, sessionID,
		opts.ColorEnabled, opts.ColorResolution, opts.DepthEnabled, opts.DepthResolution,
		opts.UserTrackingEnabled)
	d.report(deviceID, StatusConnected)
	return nil
}

// bringUp resolves, opens and configures a sensor. On error the sensor is
// closed. Once a device is resolved the reporter sees StatusInitializing,
// followed by a failure status if bring-up does not complete.
func (d *Device) bringUp(opts DeviceOptions) (Sensor, error) {
	sel, err := d.resolve(opts)
	if err != nil {
		return nil, err
	}
	d.report(sel.ID, StatusInitializing)

	sensor, err := d.openSensor(sel, opts)
	if err != nil {
		d.report(sel.ID, failureStatus(err))
		return nil, err
	}
	return sensor, nil
}

// failureStatus is the status reported when bring-up fails with err.
func failureStatus(err error) Status {
	if errors.Is(err, CodeDeviceNotPowered) {
		return StatusNotPowered
	}
	return StatusDisconnected
}

func (d *Device) openSensor(sel Selection, opts DeviceOptions) (Sensor, error) {
	sensor, err := d.driver.Open(sel)
	if err != nil {
		return nil, newError(KindDeviceCreate, StreamNone, sel.ID, err)
	}
	if sel.ID == "" {
		sel.ID = sensor.ID()
	}

	fail := func(kind ErrorKind, stream Stream, err error) (Sensor, error) {
		closeSensor(sensor)
		return nil, newError(kind, stream, sel.ID, err)
	}

	flags := opts.initFlags()
	if opts.DepthEnabled && opts.UserTrackingEnabled && !flags.DepthPlayerIndex {
		diagf("depth %s has no player index; user ids unavailable in depth", opts.DepthResolution)
	}
	if err := sensor.Init(flags); err != nil {
		return fail(KindDeviceInit, StreamNone, err)
	}
	if opts.ColorEnabled {
		if err := sensor.OpenColorStream(opts.ColorResolution); err != nil {
			return fail(KindStreamOpen, StreamColor, err)
		}
	}
	if opts.DepthEnabled {
		if err := sensor.OpenDepthStream(opts.DepthResolution, opts.NearModeEnabled); err != nil {
			return fail(KindStreamOpen, StreamDepth, err)
		}
	}
	if opts.UserTrackingEnabled {
		if err := sensor.EnableSkeletonTracking(opts.skeletonTracking()); err != nil {
			return fail(KindSkeletonTrackingEnable, StreamSkeleton, err)
		}
	}
	return sensor, nil
}

// resolve turns the options' device selection into a driver Selection.
func (d *Device) resolve(opts DeviceOptions) (Selection, error) {
	if d.driver == nil {
		return Selection{}, newError(KindDeviceInvalid, StreamNone, opts.DeviceID, errors.New("no driver"))
	}
	count := GetDeviceCount(d.driver)

	if opts.DeviceID != "" {
		for i := 0; i < count; i++ {
			id, err := d.driver.DeviceID(i)
			if err == nil && id == opts.DeviceID {
				return Selection{Index: i, ID: id}, nil
			}
		}
		return Selection{}, newError(KindDeviceInvalid, StreamNone, opts.DeviceID,
			fmt.Errorf("no device with id %q among %d", opts.DeviceID, count))
	}

	if opts.DeviceIndex < 0 || opts.DeviceIndex >= count {
		return Selection{}, newError(KindDeviceInvalid, StreamNone, "",
			fmt.Errorf("device index %d out of range [0, %d)", opts.DeviceIndex, count))
	}
	id, err := d.driver.DeviceID(opts.DeviceIndex)
	if err != nil {
		return Selection{}, newError(KindDeviceInvalid, StreamNone, "", err)
	}
	return Selection{Index: opts.DeviceIndex, ID: id}, nil
}

// Stop releases the sensor. It is safe to call repeatedly and from inside
// the frame handler; no frame is dispatched after it returns on the
// goroutine driving the device.
//
// Stop may also be called from another goroutine. It never waits for a
// handler call that is in flight there: that call, already committed to
// its frame, may still run after Stop returns. No later frame is
// dispatched.
func (d *Device) Stop() {
	// Holding dispatchMu (when free) keeps a dispatch from starting while
	// the state changes. When it is taken a dispatch is committed,
	// possibly the caller's own.
	if d.dispatchMu.TryLock() {
		defer d.dispatchMu.Unlock()
	}

	d.mu.Lock()
	if d.state == StateStopped {
		d.mu.Unlock()
		return
	}
	sensor := d.sensor
	deviceID := d.deviceID
	d.sensor = nil
	d.state = StateStopped
	d.generation++
	d.mu.Unlock()

	closeSensor(sensor)
	opsf("device %s stopped", deviceID)
}

// Err returns why the device stopped on its own (a broken stream), or nil.
func (d *Device) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopErr
}

func closeSensor(s Sensor) {
	if s == nil {
		return
	}
	if err := s.Close(); err != nil {
		opsf("sensor %s close: %v", s.ID(), err)
	}
}

func (d *Device) report(deviceID string, status Status) {
	if d.reporter != nil {
		d.reporter.OnStatusChanged(deviceID, status)
	}
}

func (d *Device) tracef(format string, args ...interface{}) {
	if d.verbose.Load() {
		tracef(format, args...)
	}
}

// acquired is what one tick read from the sensor.
type acquired struct {
	color     *image.NRGBA
	depth     *imaging.DepthChannel
	skeletons []skeleton.Skeleton
	broken    Stream
	brokenErr error
}

func (a acquired) advanced() bool {
	return a.color != nil || a.depth != nil || a.skeletons != nil
}

// Update runs one tick: it polls each enabled stream, and if any produced
// new data it delivers a frame to the handler. It does nothing when the
// device is not capturing.
func (d *Device) Update() {
	d.mu.Lock()
	if d.state != StateCapturing {
		d.mu.Unlock()
		return
	}
	sensor, opts, gen, deviceID := d.sensor, d.opts, d.generation, d.deviceID
	d.mu.Unlock()

	got := d.acquire(sensor, opts)
	if got.brokenErr != nil {
		d.breakStream(gen, got.broken, got.brokenErr)
		return
	}

	d.mu.Lock()
	if d.state != StateCapturing || d.generation != gen {
		d.mu.Unlock()
		return
	}

	if !got.advanced() {
		d.idleTicks++
		stalled := d.maxIdleTicks > 0 && d.idleTicks >= d.maxIdleTicks && !d.stalled
		if stalled {
			d.stalled = true
		}
		idle := d.idleTicks
		d.mu.Unlock()
		if stalled {
			opsf("device %s stalled: no data for %d ticks", deviceID, idle)
			d.report(deviceID, StatusStalled)
		}
		return
	}

	recovered := d.stalled
	d.stalled = false
	d.idleTicks = 0
	if got.color != nil {
		d.color = got.color
	}
	if got.depth != nil {
		d.depth = got.depth
	}
	if got.skeletons != nil {
		d.skeletons = got.skeletons
	}
	d.frameID++
	frame := NewFrame(d.frameID, d.deviceID, d.sessionID, d.clock.Now(),
		imaging.CloneSurface(d.color), d.depth.Clone(), cloneSkeletons(d.skeletons))
	handler := d.handler
	d.mu.Unlock()

	if recovered {
		opsf("device %s receiving data again", deviceID)
		d.report(deviceID, StatusConnected)
	}
	d.tracef("device %s frame %d (color=%v depth=%v skeletons=%v)",
		deviceID, frame.FrameID(), got.color != nil, got.depth != nil, got.skeletons != nil)

	d.dispatch(gen, handler, frame)
}

// dispatch hands frame to handler unless the device stopped or restarted
// since the frame was assembled.
func (d *Device) dispatch(gen uint64, handler FrameHandler, frame Frame) {
	if handler == nil {
		return
	}
	d.dispatchMu.Lock()
	defer d.dispatchMu.Unlock()

	d.mu.Lock()
	live := d.state == StateCapturing && d.generation == gen
	d.mu.Unlock()
	if !live {
		return
	}
	handler(frame)
}

// acquire polls each enabled stream once. No device lock is held.
func (d *Device) acquire(sensor Sensor, opts DeviceOptions) acquired {
	var got acquired

	if opts.ColorEnabled {
		buf, err := sensor.NextColorBuffer()
		switch {
		case err == nil:
			size := opts.ColorResolution.MustSize()
			img, derr := imaging.ColorSurfaceFromBGRA(size.X, size.Y, buf)
			if derr != nil {
				d.tracef("color decode: %v", derr)
				break
			}
			got.color = img
		case errors.Is(err, ErrStreamBroken):
			got.broken, got.brokenErr = StreamColor, err
			return got
		case !errors.Is(err, ErrNoData):
			d.tracef("color read: %v", err)
		}
	}

	if opts.DepthEnabled {
		buf, err := sensor.NextDepthBuffer()
		switch {
		case err == nil:
			size := opts.DepthResolution.MustSize()
			ch, derr := imaging.DepthChannelFromBuffer(size.X, size.Y, buf)
			if derr != nil {
				d.tracef("depth decode: %v", derr)
				break
			}
			got.depth = ch
		case errors.Is(err, ErrStreamBroken):
			got.broken, got.brokenErr = StreamDepth, err
			return got
		case !errors.Is(err, ErrNoData):
			d.tracef("depth read: %v", err)
		}
	}

	if opts.UserTrackingEnabled {
		raw, err := sensor.NextSkeletonFrame()
		switch {
		case err == nil && raw != nil:
			got.skeletons = skeleton.BuildFrame(raw)
		case errors.Is(err, ErrStreamBroken):
			got.broken, got.brokenErr = StreamSkeleton, err
			return got
		case err != nil && !errors.Is(err, ErrNoData):
			d.tracef("skeleton read: %v", err)
		}
	}

	return got
}

// breakStream stops the device after a stream failure and reports it
// disconnected.
func (d *Device) breakStream(gen uint64, stream Stream, cause error) {
	d.mu.Lock()
	if d.state != StateCapturing || d.generation != gen {
		d.mu.Unlock()
		return
	}
	sensor := d.sensor
	deviceID := d.deviceID
	d.sensor = nil
	d.state = StateStopped
	d.generation++
	d.stopErr = fmt.Errorf("%s stream: %w", stream, cause)
	d.mu.Unlock()

	closeSensor(sensor)
	opsf("device %s disconnected: %s stream: %v", deviceID, stream, cause)
	d.report(deviceID, StatusDisconnected)
}

// Run calls Update on every tick of the device clock until ctx is done or
// the device stops. It returns ctx.Err() on cancellation, the stream error
// when a broken stream stopped the device, and nil after Stop.
func (d *Device) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if !d.IsCapturing() {
		return ErrNotCapturing
	}

	ticker := d.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
			d.Update()
			if !d.IsCapturing() {
				return d.Err()
			}
		}
	}
}

// DepthAt returns the normalized distance (0 near, 1 at the range limit)
// at p in the last depth channel, or 0 when there is none.
func (d *Device) DepthAt(p image.Point) float32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.depth.In(p) {
		return 0
	}
	return imaging.NormalizedDepth(d.depth.At(p.X, p.Y))
}

// UserCount returns the number of players in the last depth channel.
func (d *Device) UserCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return imaging.CalcNumUsersFromDepth(d.depth)
}

// Tilt returns the motor angle in degrees, or 0 when the device is not
// capturing or has no motor.
func (d *Device) Tilt() int {
	d.mu.Lock()
	sensor := d.sensor
	d.mu.Unlock()

	tc, ok := sensor.(TiltController)
	if !ok {
		return 0
	}
	deg, err := tc.TiltAngle()
	if err != nil {
		d.tracef("tilt read: %v", err)
		return 0
	}
	return deg
}

// SetTilt moves the motor, clamping to +/-MaxTiltDegrees.
func (d *Device) SetTilt(degrees int) error {
	d.mu.Lock()
	sensor := d.sensor
	capturing := d.state == StateCapturing
	d.mu.Unlock()

	if !capturing {
		return ErrNotCapturing
	}
	tc, ok := sensor.(TiltController)
	if !ok {
		return ErrNotSupported
	}
	if degrees > MaxTiltDegrees {
		degrees = MaxTiltDegrees
	} else if degrees < -MaxTiltDegrees {
		degrees = -MaxTiltDegrees
	}
	if err := tc.SetTiltAngle(degrees); err != nil {
		return fmt.Errorf("set tilt: %w", err)
	}
	return nil
}

// Orientation returns the sensor's gravity vector.
func (d *Device) Orientation() (r3.Vec, error) {
	d.mu.Lock()
	sensor := d.sensor
	capturing := d.state == StateCapturing
	d.mu.Unlock()

	if !capturing {
		return r3.Vec{}, ErrNotCapturing
	}
	ar, ok := sensor.(AccelerometerReader)
	if !ok {
		return r3.Vec{}, ErrNotSupported
	}
	v, err := ar.Acceleration()
	if err != nil {
		return r3.Vec{}, fmt.Errorf("read accelerometer: %w", err)
	}
	return v, nil
}
