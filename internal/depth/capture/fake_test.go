package capture

import (
	"fmt"
	"sync"

	"github.com/banshee-data/depthframe/internal/depth/geometry"
	"github.com/banshee-data/depthframe/internal/depth/imaging"
	"github.com/banshee-data/depthframe/internal/depth/skeleton"
	"gonum.org/v1/gonum/spatial/r3"
)

// fakeDriver hands out fakeSensors with scripted failures.
type fakeDriver struct {
	mu      sync.Mutex
	ids     []string
	openErr error
	sensors []*fakeSensor
	// prepare, when set, configures each sensor before it is returned.
	prepare func(*fakeSensor)
}

func newFakeDriver(n int) *fakeDriver {
	d := &fakeDriver{}
	for i := 0; i < n; i++ {
		d.ids = append(d.ids, fmt.Sprintf("fake-%d", i))
	}
	return d
}

func (d *fakeDriver) DeviceCount() int { return len(d.ids) }

func (d *fakeDriver) DeviceID(index int) (string, error) {
	if index < 0 || index >= len(d.ids) {
		return "", fmt.Errorf("index %d out of range", index)
	}
	return d.ids[index], nil
}

func (d *fakeDriver) Open(sel Selection) (Sensor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.openErr != nil {
		return nil, d.openErr
	}
	s := &fakeSensor{id: d.ids[sel.Index]}
	if d.prepare != nil {
		d.prepare(s)
	}
	d.sensors = append(d.sensors, s)
	return s, nil
}

func (d *fakeDriver) last() *fakeSensor {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.sensors) == 0 {
		return nil
	}
	return d.sensors[len(d.sensors)-1]
}

// fakeSensor returns queued buffers, then ErrNoData.
type fakeSensor struct {
	mu sync.Mutex
	id string

	initErr, colorErr, depthErr, skelErr error
	readErr                               map[Stream]error

	flags     InitFlags
	colorRes  geometry.ImageResolution
	depthRes  geometry.ImageResolution
	nearMode  bool
	tracking  SkeletonTracking
	closed    int
	tilt      int
	gravity   r3.Vec
	colorQ    [][]byte
	depthQ    [][]uint16
	skeletonQ []*skeleton.RawFrame

	// onSkeletonRead runs inside NextSkeletonFrame, mid-acquisition.
	onSkeletonRead func()
}

func (s *fakeSensor) ID() string { return s.id }

func (s *fakeSensor) Init(flags InitFlags) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags = flags
	return s.initErr
}

func (s *fakeSensor) OpenColorStream(res geometry.ImageResolution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.colorRes = res
	return s.colorErr
}

func (s *fakeSensor) OpenDepthStream(res geometry.ImageResolution, near bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.depthRes, s.nearMode = res, near
	return s.depthErr
}

func (s *fakeSensor) EnableSkeletonTracking(cfg SkeletonTracking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracking = cfg
	return s.skelErr
}

func (s *fakeSensor) NextColorBuffer() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readErr[StreamColor]; err != nil {
		return nil, err
	}
	if len(s.colorQ) == 0 {
		return nil, ErrNoData
	}
	buf := s.colorQ[0]
	s.colorQ = s.colorQ[1:]
	return buf, nil
}

func (s *fakeSensor) NextDepthBuffer() ([]uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readErr[StreamDepth]; err != nil {
		return nil, err
	}
	if len(s.depthQ) == 0 {
		return nil, ErrNoData
	}
	buf := s.depthQ[0]
	s.depthQ = s.depthQ[1:]
	return buf, nil
}

func (s *fakeSensor) NextSkeletonFrame() (*skeleton.RawFrame, error) {
	s.mu.Lock()
	hook := s.onSkeletonRead
	var (
		raw *skeleton.RawFrame
		err error
	)
	switch {
	case s.readErr[StreamSkeleton] != nil:
		err = s.readErr[StreamSkeleton]
	case len(s.skeletonQ) == 0:
		err = ErrNoData
	default:
		raw = s.skeletonQ[0]
		s.skeletonQ = s.skeletonQ[1:]
	}
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return raw, err
}

func (s *fakeSensor) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *fakeSensor) TiltAngle() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tilt, nil
}

func (s *fakeSensor) SetTiltAngle(deg int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tilt = deg
	return nil
}

func (s *fakeSensor) Acceleration() (r3.Vec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gravity, nil
}

func (s *fakeSensor) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeSensor) pushColor(res geometry.ImageResolution, r, g, b byte) {
	size := res.MustSize()
	buf := make([]byte, size.X*size.Y*imaging.BytesPerColorPixel)
	for i := 0; i < len(buf); i += 4 {
		buf[i], buf[i+1], buf[i+2] = b, g, r
	}
	s.mu.Lock()
	s.colorQ = append(s.colorQ, buf)
	s.mu.Unlock()
}

func (s *fakeSensor) pushDepth(res geometry.ImageResolution, mm uint16, players ...int) []uint16 {
	size := res.MustSize()
	buf := make([]uint16, size.X*size.Y)
	for i := range buf {
		p := 0
		if len(players) > 0 {
			p = players[i%len(players)]
		}
		buf[i] = imaging.PackDepth(mm, p)
	}
	s.mu.Lock()
	s.depthQ = append(s.depthQ, buf)
	s.mu.Unlock()
	return buf
}

func (s *fakeSensor) pushSkeleton(trackedSlot int) {
	raw := &skeleton.RawFrame{}
	sk := &raw.Skeletons[trackedSlot]
	sk.TrackingState = skeleton.SkeletonTracked
	for i := range sk.Joints {
		sk.Joints[i].TrackingState = skeleton.JointTracked
		sk.Joints[i].Position = r3.Vec{X: float64(i) * 0.05, Z: 2}
	}
	s.mu.Lock()
	s.skeletonQ = append(s.skeletonQ, raw)
	s.mu.Unlock()
}

func (s *fakeSensor) setReadErr(stream Stream, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr == nil {
		s.readErr = make(map[Stream]error)
	}
	s.readErr[stream] = err
}

// statusLog records reported statuses.
type statusLog struct {
	mu       sync.Mutex
	statuses []Status
}

func (l *statusLog) OnStatusChanged(_ string, s Status) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.statuses = append(l.statuses, s)
}

func (l *statusLog) count(s Status) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, got := range l.statuses {
		if got == s {
			n++
		}
	}
	return n
}
