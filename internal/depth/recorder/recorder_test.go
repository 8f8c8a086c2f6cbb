package recorder

import (
	"errors"
	"image"
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/depthframe/internal/depth/capture"
	"github.com/banshee-data/depthframe/internal/depth/geometry"
	"github.com/banshee-data/depthframe/internal/depth/imaging"
	"github.com/banshee-data/depthframe/internal/depth/simulator"
	"github.com/banshee-data/depthframe/internal/timeutil"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "frames.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// captureFrames runs a simulated device for n ticks, recording into store.
func captureFrames(t *testing.T, store *Store, opts capture.DeviceOptions, n int) (*Recorder, []capture.Frame) {
	t.Helper()
	rec := NewRecorder(store, Config{Options: opts, Notes: "test"})
	var seen []capture.Frame

	dev := capture.NewDevice(capture.Config{
		Driver: simulator.NewDriver(simulator.DefaultConfig()),
		Clock:  timeutil.NewMockClock(time.Unix(1700000000, 0)),
	})
	dev.ConnectEventHandler(func(f capture.Frame) {
		seen = append(seen, f)
		rec.HandleFrame(f)
	})
	require.NoError(t, dev.Start(opts))
	for i := 0; i < n; i++ {
		dev.Update()
	}
	dev.Stop()
	return rec, seen
}

func TestOpen_PragmasAndSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.db")
	s, err := Open(path)
	require.NoError(t, err)

	var journalMode string
	require.NoError(t, s.DB().QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var busyTimeout int
	require.NoError(t, s.DB().QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout))
	assert.Equal(t, 5000, busyTimeout)

	var foreignKeys int
	require.NoError(t, s.DB().QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys))
	assert.Equal(t, 1, foreignKeys)

	version, dirty, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
	require.NoError(t, s.Close())

	// Reopening an up-to-date store is a no-op migration.
	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	version, _, err = s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
}

func TestSessions(t *testing.T) {
	s := openStore(t)

	opts := capture.DefaultDeviceOptions()
	opts.ColorEnabled = false
	first := NewSession("a", "dev-1", time.Unix(100, 0), opts)
	first.Notes = "first"
	second := NewSession("b", "dev-2", time.Unix(200, 0), capture.DefaultDeviceOptions())

	require.NoError(t, s.BeginSession(second))
	require.NoError(t, s.BeginSession(first))
	assert.Error(t, s.BeginSession(first), "duplicate session id")
	assert.Error(t, s.BeginSession(Session{}), "empty session id")

	got, err := s.GetSession("a")
	require.NoError(t, err)
	assert.Equal(t, "dev-1", got.DeviceID)
	assert.True(t, got.StartedAt.Equal(time.Unix(100, 0)))
	assert.Equal(t, geometry.ResolutionInvalid, got.ColorResolution)
	assert.Equal(t, geometry.Resolution320x240, got.DepthResolution)
	assert.Equal(t, opts, got.Options)
	assert.Equal(t, "first", got.Notes)
	assert.Equal(t, 0, got.FrameCount)

	list, err := s.ListSessions()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "b", list[1].ID)

	_, err = s.GetSession("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, s.DeleteSession("missing"), ErrSessionNotFound)
}

func TestRecordFrame_RoundTrip(t *testing.T) {
	s := openStore(t)
	rec, seen := captureFrames(t, s, capture.DefaultDeviceOptions(), 3)

	frames, failures := rec.Stats()
	assert.Equal(t, 3, frames)
	assert.Equal(t, 0, failures)
	require.Len(t, rec.Sessions(), 1)
	sessionID := rec.Sessions()[0]

	sess, err := s.GetSession(sessionID)
	require.NoError(t, err)
	assert.Equal(t, 3, sess.FrameCount)
	assert.Equal(t, simulator.SensorID(0), sess.DeviceID)
	assert.Equal(t, "test", sess.Notes)

	loaded, err := s.LoadFrames(sessionID)
	require.NoError(t, err)
	require.Len(t, loaded, len(seen))

	for i, want := range seen {
		got := loaded[i]
		assert.Equal(t, want.FrameID(), got.FrameID())
		assert.Equal(t, want.SessionID(), got.SessionID())
		assert.Equal(t, want.DeviceID(), got.DeviceID())
		assert.True(t, want.Timestamp().Equal(got.Timestamp()))
		assert.Equal(t, want.ColorSurface().Pix, got.ColorSurface().Pix)
		assert.Equal(t, want.DepthChannel().Values(), got.DepthChannel().Values())
		if diff := cmp.Diff(want.Skeletons(), got.Skeletons()); diff != "" {
			t.Errorf("frame %d skeletons mismatch (-want +got):\n%s", i, diff)
		}
		assert.Equal(t, want.UserCount(), got.UserCount())
	}
}

func TestRecordFrame_PartialStreams(t *testing.T) {
	s := openStore(t)
	opts := capture.DefaultDeviceOptions()
	require.NoError(t, s.BeginSession(NewSession("depth-only", "dev", time.Unix(0, 0), opts)))

	ch := imaging.NewDepthChannel(80, 60)
	ch.Set(3, 4, imaging.PackDepth(1234, 2))
	f := capture.NewFrame(1, "dev", "depth-only", time.Unix(5, 0), nil, ch, nil)
	require.NoError(t, s.RecordFrame(f))

	loaded, err := s.LoadFrames("depth-only")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	got := loaded[0]
	assert.False(t, got.HasColor())
	assert.False(t, got.HasSkeletons())
	require.True(t, got.HasDepth())
	assert.Equal(t, uint16(1234), imaging.DepthValue(got.DepthChannel().At(3, 4)))
	assert.Equal(t, 2, imaging.UserIDFromDepthCoord(got.DepthChannel(), image.Pt(3, 4)))

	// A frame for an unknown session violates the foreign key.
	orphan := capture.NewFrame(1, "dev", "nobody", time.Unix(5, 0), nil, ch, nil)
	assert.Error(t, s.RecordFrame(orphan))

	require.NoError(t, s.DeleteSession("depth-only"))
	n, err := s.FrameCount("depth-only")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRecorder_CountsFailures(t *testing.T) {
	s := openStore(t)
	rec := NewRecorder(s, Config{Options: capture.DefaultDeviceOptions()})
	require.NoError(t, s.Close())

	rec.HandleFrame(capture.NewFrame(1, "dev", "sess", time.Now(), nil, nil, nil))
	frames, failures := rec.Stats()
	assert.Equal(t, 0, frames)
	assert.Equal(t, 1, failures)
	assert.Empty(t, rec.Sessions())
}

func TestReplay_DrivesDevice(t *testing.T) {
	s := openStore(t)
	rec, seen := captureFrames(t, s, capture.DefaultDeviceOptions(), 3)

	drv, err := NewReplayDriver(s, rec.Sessions()[0], ReplayConfig{})
	require.NoError(t, err)
	assert.Equal(t, 1, drv.DeviceCount())

	var replayed []capture.Frame
	dev := capture.NewDevice(capture.Config{Driver: drv})
	dev.ConnectEventHandler(func(f capture.Frame) { replayed = append(replayed, f) })
	require.NoError(t, dev.Start(drv.Options()))
	assert.Equal(t, simulator.SensorID(0), dev.DeviceID())

	for i := 0; i < 3; i++ {
		dev.Update()
	}
	require.Len(t, replayed, 3)
	for i := range seen {
		assert.Equal(t, seen[i].DepthChannel().Values(), replayed[i].DepthChannel().Values())
		assert.Equal(t, seen[i].ColorSurface().Pix, replayed[i].ColorSurface().Pix)
		assert.Equal(t, seen[i].TrackedSkeletonCount(), replayed[i].TrackedSkeletonCount())
	}

	dev.Update()
	assert.False(t, dev.IsCapturing())
	assert.ErrorIs(t, dev.Err(), capture.ErrStreamBroken)
	assert.ErrorIs(t, dev.Err(), ErrEndOfSession)
}

func TestReplay_Loop(t *testing.T) {
	s := openStore(t)
	rec, _ := captureFrames(t, s, capture.DefaultDeviceOptions(), 2)

	drv, err := NewReplayDriver(s, rec.Sessions()[0], ReplayConfig{Loop: true})
	require.NoError(t, err)

	count := 0
	dev := capture.NewDevice(capture.Config{Driver: drv})
	dev.ConnectEventHandler(func(capture.Frame) { count++ })
	require.NoError(t, dev.Start(drv.Options()))
	defer dev.Stop()

	for i := 0; i < 5; i++ {
		dev.Update()
	}
	assert.Equal(t, 5, count)
	assert.True(t, dev.IsCapturing())
}

func TestReplay_RejectsOtherResolutions(t *testing.T) {
	s := openStore(t)
	rec, _ := captureFrames(t, s, capture.DefaultDeviceOptions(), 1)

	drv, err := NewReplayDriver(s, rec.Sessions()[0], ReplayConfig{})
	require.NoError(t, err)

	opts := drv.Options()
	opts.DepthResolution = geometry.Resolution80x60
	dev := capture.NewDevice(capture.Config{Driver: drv})
	err = dev.Start(opts)
	assert.ErrorIs(t, err, &capture.Error{Kind: capture.KindStreamOpen, Stream: capture.StreamDepth})

	var ce *capture.Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, capture.CodeResolutionInvalid, ce.Code)
}

func TestReplay_UnknownSession(t *testing.T) {
	s := openStore(t)
	_, err := NewReplayDriver(s, "nope", ReplayConfig{})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
