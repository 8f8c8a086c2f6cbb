package simulator

import (
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/banshee-data/depthframe/internal/depth/capture"
	"github.com/banshee-data/depthframe/internal/depth/geometry"
	"github.com/banshee-data/depthframe/internal/depth/imaging"
	"github.com/banshee-data/depthframe/internal/depth/mapping"
	"github.com/banshee-data/depthframe/internal/depth/skeleton"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	maxPlayers = imaging.MaxPlayers

	// nearestPlayerMillimeters is where player 1 stands; each further
	// player is playerSpacingMillimeters behind.
	nearestPlayerMillimeters = 1500
	playerSpacingMillimeters = 200
	swayRadiansPerRead       = 0.15
	swayAmplitudeDegrees     = 10.0
)

var errSensorClosed = fmt.Errorf("sensor closed: %w", capture.ErrStreamBroken)

// Sensor is a synthetic capture.Sensor. It also implements
// capture.TiltController and capture.AccelerometerReader.
type Sensor struct {
	id       string
	cfg      Config
	failures Failures

	mu         sync.Mutex
	closed     bool
	flags      capture.InitFlags
	colorRes   geometry.ImageResolution
	depthRes   geometry.ImageResolution
	nearMode   bool
	colorOpen  bool
	depthOpen  bool
	tracking   *capture.SkeletonTracking
	reads      map[capture.Stream]int
	tiltDegree int
}

func newSensor(id string, cfg Config, f Failures) *Sensor {
	return &Sensor{
		id:       id,
		cfg:      cfg,
		failures: f,
		colorRes: geometry.ResolutionInvalid,
		depthRes: geometry.ResolutionInvalid,
		reads:    make(map[capture.Stream]int),
	}
}

func (s *Sensor) ID() string { return s.id }

func (s *Sensor) Init(flags capture.InitFlags) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures.Init != nil {
		return s.failures.Init
	}
	s.flags = flags
	return nil
}

func (s *Sensor) OpenColorStream(res geometry.ImageResolution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures.ColorStream != nil {
		return s.failures.ColorStream
	}
	if !s.flags.Color {
		return capture.CodeStreamNotEnabled
	}
	if !res.IsValidForColor() {
		return capture.CodeResolutionInvalid
	}
	s.colorRes, s.colorOpen = res, true
	return nil
}

func (s *Sensor) OpenDepthStream(res geometry.ImageResolution, nearMode bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures.DepthStream != nil {
		return s.failures.DepthStream
	}
	if !s.flags.Depth {
		return capture.CodeStreamNotEnabled
	}
	if !res.IsValidForDepth() {
		return capture.CodeResolutionInvalid
	}
	s.depthRes, s.nearMode, s.depthOpen = res, nearMode, true
	return nil
}

func (s *Sensor) EnableSkeletonTracking(cfg capture.SkeletonTracking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures.SkeletonEnable != nil {
		return s.failures.SkeletonEnable
	}
	if !s.flags.Skeleton {
		return capture.CodeStreamNotEnabled
	}
	s.tracking = &cfg
	return nil
}

// SkeletonTracking returns the tracker settings last enabled, if any.
func (s *Sensor) SkeletonTracking() (capture.SkeletonTracking, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracking == nil {
		return capture.SkeletonTracking{}, false
	}
	return *s.tracking, true
}

// Reads returns how many times the stream has been polled.
func (s *Sensor) Reads(stream capture.Stream) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads[stream]
}

// Close releases the sensor. Later reads report a broken stream.
func (s *Sensor) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Sensor) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// poll counts a read on stream and reports whether it may proceed. Callers
// hold s.mu.
func (s *Sensor) poll(stream capture.Stream, open bool) (int, error) {
	if s.closed {
		return 0, errSensorClosed
	}
	if !open {
		return 0, capture.CodeStreamNotEnabled
	}
	n := s.reads[stream]
	if s.failures.BreakAfter > 0 && s.failures.BreakStream == stream && n >= s.failures.BreakAfter {
		return n, capture.ErrStreamBroken
	}
	s.reads[stream] = n + 1
	return n, nil
}

// NextColorBuffer renders the colour image as BGRX.
func (s *Sensor) NextColorBuffer() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.poll(capture.StreamColor, s.colorOpen)
	if err != nil {
		return nil, err
	}
	if n%s.cfg.ColorEvery != 0 {
		return nil, capture.ErrNoData
	}
	return s.renderColor(n), nil
}

// NextDepthBuffer renders the packed depth image.
func (s *Sensor) NextDepthBuffer() ([]uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.poll(capture.StreamDepth, s.depthOpen)
	if err != nil {
		return nil, err
	}
	return s.renderDepth(n), nil
}

// NextSkeletonFrame renders one raw skeleton frame.
func (s *Sensor) NextSkeletonFrame() (*skeleton.RawFrame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.poll(capture.StreamSkeleton, s.tracking != nil)
	if err != nil {
		return nil, err
	}
	return s.renderSkeletons(n), nil
}

// TiltAngle returns the motor angle in degrees.
func (s *Sensor) TiltAngle() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, errSensorClosed
	}
	return s.tiltDegree, nil
}

// SetTiltAngle moves the motor.
func (s *Sensor) SetTiltAngle(degrees int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errSensorClosed
	}
	s.tiltDegree = degrees
	return nil
}

// Acceleration returns gravity in sensor space for the current tilt.
func (s *Sensor) Acceleration() (r3.Vec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return r3.Vec{}, errSensorClosed
	}
	t := float64(s.tiltDegree) * math.Pi / 180
	return r3.Vec{X: 0, Y: -math.Cos(t), Z: math.Sin(t)}, nil
}

// playerBand is the horizontal extent of player i (1-based) as fractions
// of the image width at read n.
func (s *Sensor) playerBand(i, n int) (lo, hi float64) {
	centre := float64(i)/float64(s.cfg.Players+1) + 0.02*math.Sin(float64(n)*swayRadiansPerRead+float64(i))
	const halfWidth = 1.0 / 14
	return centre - halfWidth, centre + halfWidth
}

func playerDepth(i int) int {
	return nearestPlayerMillimeters + (i-1)*playerSpacingMillimeters
}

// playerAt returns the player (1-based) covering the normalized point, or 0.
func (s *Sensor) playerAt(fx, fy float64, n int) int {
	if fy < 0.25 {
		return 0
	}
	for i := 1; i <= s.cfg.Players; i++ {
		if lo, hi := s.playerBand(i, n); fx >= lo && fx < hi {
			return i
		}
	}
	return 0
}

func (s *Sensor) renderDepth(n int) []uint16 {
	size := s.depthRes.MustSize()
	minMM, maxMM := geometry.DepthRange(s.nearMode)
	buf := make([]uint16, size.X*size.Y)
	for y := 0; y < size.Y; y++ {
		fy := (float64(y) + 0.5) / float64(size.Y)
		for x := 0; x < size.X; x++ {
			fx := (float64(x) + 0.5) / float64(size.X)
			mm, player := s.cfg.WallMillimeters, 0
			if p := s.playerAt(fx, fy, n); p > 0 {
				mm, player = playerDepth(p), p
			}
			if mm < minMM || mm > maxMM {
				mm, player = 0, 0
			}
			if !s.flags.DepthPlayerIndex {
				player = 0
			}
			buf[y*size.X+x] = imaging.PackDepth(uint16(mm), player)
		}
	}
	return buf
}

func (s *Sensor) renderColor(n int) []byte {
	size := s.colorRes.MustSize()
	buf := make([]byte, size.X*size.Y*imaging.BytesPerColorPixel)
	for y := 0; y < size.Y; y++ {
		fy := (float64(y) + 0.5) / float64(size.Y)
		for x := 0; x < size.X; x++ {
			fx := (float64(x) + 0.5) / float64(size.X)
			r := uint8(x * 255 / size.X)
			g := uint8(y * 255 / size.Y)
			b := uint8(n)
			if p := s.playerAt(fx, fy, n); p > 0 {
				c := imaging.GetUserColor(p)
				r, g, b = c.R, c.G, c.B
			}
			i := (y*size.X + x) * imaging.BytesPerColorPixel
			buf[i], buf[i+1], buf[i+2], buf[i+3] = b, g, r, 0
		}
	}
	return buf
}

// restPose holds joint offsets from the hip centre in metres.
var restPose = [skeleton.JointCount]r3.Vec{
	skeleton.JointHipCenter:      {},
	skeleton.JointSpine:          {Y: 0.10},
	skeleton.JointShoulderCenter: {Y: 0.45},
	skeleton.JointHead:           {Y: 0.65},
	skeleton.JointShoulderLeft:   {X: -0.18, Y: 0.40},
	skeleton.JointElbowLeft:      {X: -0.25, Y: 0.15},
	skeleton.JointWristLeft:      {X: -0.28, Y: -0.08},
	skeleton.JointHandLeft:       {X: -0.29, Y: -0.15},
	skeleton.JointShoulderRight:  {X: 0.18, Y: 0.40},
	skeleton.JointElbowRight:     {X: 0.25, Y: 0.15},
	skeleton.JointWristRight:     {X: 0.28, Y: -0.08},
	skeleton.JointHandRight:      {X: 0.29, Y: -0.15},
	skeleton.JointHipLeft:        {X: -0.10, Y: -0.05},
	skeleton.JointKneeLeft:       {X: -0.11, Y: -0.45},
	skeleton.JointAnkleLeft:      {X: -0.11, Y: -0.85},
	skeleton.JointFootLeft:       {X: -0.11, Y: -0.90, Z: -0.08},
	skeleton.JointHipRight:       {X: 0.10, Y: -0.05},
	skeleton.JointKneeRight:      {X: 0.11, Y: -0.45},
	skeleton.JointAnkleRight:     {X: 0.11, Y: -0.85},
	skeleton.JointFootRight:      {X: 0.11, Y: -0.90, Z: -0.08},
}

// lowerBody joints are not tracked in seated mode.
func lowerBody(j skeleton.JointName) bool {
	return j >= skeleton.JointHipLeft
}

func (s *Sensor) renderSkeletons(n int) *skeleton.RawFrame {
	raw := &skeleton.RawFrame{FrameNumber: int64(n)}
	res := s.depthRes
	if !res.IsValidForDepth() {
		res = geometry.DefaultDepthResolution
	}
	size := res.MustSize()
	maxTracked := s.tracking.Selection.MaxTracked()

	for i := 1; i <= s.cfg.Players && i <= skeleton.SkeletonCount; i++ {
		lo, hi := s.playerBand(i, n)
		centre := image.Pt(int((lo+hi)/2*float64(size.X)), size.Y*5/8)
		hip := mapping.MapDepthCoordToSkeleton(centre, uint16(playerDepth(i)), res)

		slot := &raw.Skeletons[i-1]
		slot.TrackingID = uint32(i)
		slot.Position = hip
		if i > maxTracked {
			slot.TrackingState = skeleton.SkeletonPositionOnly
			continue
		}
		slot.TrackingState = skeleton.SkeletonTracked

		sway := r3.NewRotation(swayAmplitudeDegrees*math.Pi/180*math.Sin(float64(n)*swayRadiansPerRead+float64(i)), r3.Vec{Y: 1})
		for j := range slot.Joints {
			joint := skeleton.JointName(j)
			state := skeleton.JointTracked
			if s.tracking.Seated && lowerBody(joint) {
				state = skeleton.JointNotTracked
			}
			rot := quat.Number{Real: 1}
			if joint.IsRoot() {
				rot = quat.Number(sway)
			}
			slot.Joints[j] = skeleton.RawJoint{
				Position:      r3.Add(hip, sway.Rotate(restPose[j])),
				TrackingState: state,
				Rotation:      rot,
			}
		}
	}
	return raw
}
