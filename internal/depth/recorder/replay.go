package recorder

import (
	"errors"
	"fmt"
	"sync"

	"github.com/banshee-data/depthframe/internal/depth/capture"
	"github.com/banshee-data/depthframe/internal/depth/geometry"
	"github.com/banshee-data/depthframe/internal/depth/imaging"
	"github.com/banshee-data/depthframe/internal/depth/skeleton"
)

// ErrEndOfSession marks the end of a replay that does not loop. It is
// reported together with capture.ErrStreamBroken so a running Device stops.
var ErrEndOfSession = errors.New("end of recorded session")

// ReplayConfig controls playback.
type ReplayConfig struct {
	// Loop restarts each stream from its first frame instead of ending.
	Loop bool
}

// ReplayDriver is a capture.Driver with a single sensor that plays back one
// recorded session.
type ReplayDriver struct {
	session Session
	cfg     ReplayConfig

	color     [][]byte
	depth     [][]uint16
	skeletons []*skeleton.RawFrame
}

// NewReplayDriver loads a session from store for playback.
func NewReplayDriver(store *Store, sessionID string, cfg ReplayConfig) (*ReplayDriver, error) {
	sess, err := store.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	d := &ReplayDriver{session: sess, cfg: cfg}

	err = store.EachFrame(sessionID, func(f capture.Frame) error {
		if f.HasColor() {
			d.color = append(d.color, imaging.SurfaceToBGRA(f.ColorSurface()))
		}
		if f.HasDepth() {
			d.depth = append(d.depth, f.DepthValues())
		}
		if f.HasSkeletons() {
			d.skeletons = append(d.skeletons, rawFrameFromSkeletons(f.FrameID(), f.Skeletons()))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	opsf("replaying session %s: %d colour, %d depth, %d skeleton frames",
		sessionID, len(d.color), len(d.depth), len(d.skeletons))
	return d, nil
}

// Session returns the session being replayed.
func (d *ReplayDriver) Session() Session {
	return d.session
}

// Options returns device options that start a Device on this recording.
func (d *ReplayDriver) Options() capture.DeviceOptions {
	return d.session.Options.WithDeviceIndex(0)
}

func (d *ReplayDriver) DeviceCount() int { return 1 }

func (d *ReplayDriver) DeviceID(index int) (string, error) {
	if index != 0 {
		return "", capture.CodeDeviceNotConnected
	}
	return d.session.DeviceID, nil
}

// Open returns a fresh playback sensor positioned at the first frame.
func (d *ReplayDriver) Open(sel capture.Selection) (capture.Sensor, error) {
	if sel.Index != 0 {
		return nil, fmt.Errorf("open replay sensor %d: %w", sel.Index, capture.CodeDeviceNotConnected)
	}
	return &replaySensor{driver: d}, nil
}

// rawFrameFromSkeletons rebuilds sensor output from built skeletons. Joints
// that were not tracked come back without their rotation.
func rawFrameFromSkeletons(frameNumber int64, skeletons []skeleton.Skeleton) *skeleton.RawFrame {
	raw := &skeleton.RawFrame{FrameNumber: frameNumber}
	for slot, sk := range skeletons {
		if slot >= skeleton.SkeletonCount || !sk.IsTracked() {
			continue
		}
		out := &raw.Skeletons[slot]
		out.TrackingState = skeleton.SkeletonTracked
		out.TrackingID = uint32(slot + 1)
		for j, b := range sk {
			out.Joints[j] = skeleton.RawJoint{
				Position:      b.EndPosition,
				TrackingState: b.TrackingState,
				Rotation:      b.Rotation,
			}
		}
		if root, ok := sk[skeleton.JointHipCenter]; ok {
			out.Position = root.EndPosition
		}
	}
	return raw
}

type replaySensor struct {
	driver *ReplayDriver

	mu        sync.Mutex
	closed    bool
	flags     capture.InitFlags
	colorOpen bool
	depthOpen bool
	tracking  bool
	cursor    [capture.StreamSkeleton + 1]int
}

func (s *replaySensor) ID() string { return s.driver.session.DeviceID }

func (s *replaySensor) Init(flags capture.InitFlags) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags = flags
	return nil
}

func (s *replaySensor) OpenColorStream(res geometry.ImageResolution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.driver.session.ColorResolution
	if !s.flags.Color || !rec.IsValid() {
		return capture.CodeStreamNotEnabled
	}
	if res != rec {
		return fmt.Errorf("recorded colour is %s: %w", rec, capture.CodeResolutionInvalid)
	}
	s.colorOpen = true
	return nil
}

func (s *replaySensor) OpenDepthStream(res geometry.ImageResolution, _ bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.driver.session.DepthResolution
	if !s.flags.Depth || !rec.IsValid() {
		return capture.CodeStreamNotEnabled
	}
	if res != rec {
		return fmt.Errorf("recorded depth is %s: %w", rec, capture.CodeResolutionInvalid)
	}
	s.depthOpen = true
	return nil
}

func (s *replaySensor) EnableSkeletonTracking(capture.SkeletonTracking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.flags.Skeleton || !s.driver.session.Options.UserTrackingEnabled {
		return capture.CodeStreamNotEnabled
	}
	s.tracking = true
	return nil
}

// advance returns the next index into a stream of n recorded items. Callers
// hold s.mu.
func (s *replaySensor) advance(stream capture.Stream, open bool, n int) (int, error) {
	if s.closed {
		return 0, fmt.Errorf("replay sensor closed: %w", capture.ErrStreamBroken)
	}
	if !open {
		return 0, capture.CodeStreamNotEnabled
	}
	if n == 0 {
		return 0, capture.ErrNoData
	}
	i := s.cursor[stream]
	if i >= n {
		if !s.driver.cfg.Loop {
			return 0, fmt.Errorf("%s: %w: %w", stream, capture.ErrStreamBroken, ErrEndOfSession)
		}
		diagf("%s replay wrapped after %d frames", stream, n)
		i = 0
	}
	s.cursor[stream] = i + 1
	return i, nil
}

func (s *replaySensor) NextColorBuffer() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.advance(capture.StreamColor, s.colorOpen, len(s.driver.color))
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), s.driver.color[i]...), nil
}

func (s *replaySensor) NextDepthBuffer() ([]uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.advance(capture.StreamDepth, s.depthOpen, len(s.driver.depth))
	if err != nil {
		return nil, err
	}
	return append([]uint16(nil), s.driver.depth[i]...), nil
}

func (s *replaySensor) NextSkeletonFrame() (*skeleton.RawFrame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.advance(capture.StreamSkeleton, s.tracking, len(s.driver.skeletons))
	if err != nil {
		return nil, err
	}
	return s.driver.skeletons[i].Clone(), nil
}

func (s *replaySensor) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
