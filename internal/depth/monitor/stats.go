package monitor

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/banshee-data/depthframe/internal/depth/capture"
	"github.com/banshee-data/depthframe/internal/timeutil"
)

// StatsSnapshot is one logging interval's throughput.
type StatsSnapshot struct {
	FramesPerSec float64
	PixelsPerSec float64
	MeanUsers    float64
	MeanTracked  float64
	Timestamp    time.Time
}

// FrameStats counts delivered frames between log intervals.
type FrameStats struct {
	clock timeutil.Clock

	mu             sync.Mutex
	frameCount     int64
	pixelCount     int64
	userSum        int64
	trackedSum     int64
	totalFrames    int64
	lastReset      time.Time
	startTime      time.Time
	latestSnapshot *StatsSnapshot
}

// NewFrameStats creates FrameStats timed by clock (the real clock when nil).
func NewFrameStats(clock timeutil.Clock) *FrameStats {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	now := clock.Now()
	return &FrameStats{clock: clock, lastReset: now, startTime: now}
}

// AddFrame counts f. It has the capture.FrameHandler signature.
func (fs *FrameStats) AddFrame(f capture.Frame) {
	var pixels int64
	if f.HasColor() {
		b := f.ColorBounds()
		pixels += int64(b.Dx() * b.Dy())
	}
	if f.HasDepth() {
		b := f.DepthBounds()
		pixels += int64(b.Dx() * b.Dy())
	}
	users := int64(f.UserCount())
	tracked := int64(f.TrackedSkeletonCount())

	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.frameCount++
	fs.totalFrames++
	fs.pixelCount += pixels
	fs.userSum += users
	fs.trackedSum += tracked
}

// GetAndReset returns the interval's counters and starts a new interval.
func (fs *FrameStats) GetAndReset() (frames, pixels, users, tracked int64, duration time.Duration) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	now := fs.clock.Now()
	duration = now.Sub(fs.lastReset)
	frames, pixels, users, tracked = fs.frameCount, fs.pixelCount, fs.userSum, fs.trackedSum

	fs.frameCount = 0
	fs.pixelCount = 0
	fs.userSum = 0
	fs.trackedSum = 0
	fs.lastReset = now
	return
}

// LogStats logs the interval's throughput for deviceID and keeps it as the
// latest snapshot. Intervals without frames are not logged.
func (fs *FrameStats) LogStats(deviceID string) {
	frames, pixels, users, tracked, duration := fs.GetAndReset()
	if frames == 0 || duration <= 0 {
		return
	}
	secs := duration.Seconds()
	snap := &StatsSnapshot{
		FramesPerSec: float64(frames) / secs,
		PixelsPerSec: float64(pixels) / secs,
		MeanUsers:    float64(users) / float64(frames),
		MeanTracked:  float64(tracked) / float64(frames),
		Timestamp:    fs.clock.Now(),
	}

	fs.mu.Lock()
	fs.latestSnapshot = snap
	fs.mu.Unlock()

	log.Printf("Depth stats %s (/sec): %.1f frames, %s pixels, %.1f users, %.1f tracked",
		deviceID, snap.FramesPerSec, FormatWithCommas(int64(snap.PixelsPerSec)),
		snap.MeanUsers, snap.MeanTracked)
}

// TotalFrames returns the frames counted since creation.
func (fs *FrameStats) TotalFrames() int64 {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.totalFrames
}

// GetUptime returns the time since the stats were created.
func (fs *FrameStats) GetUptime() time.Duration {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.clock.Since(fs.startTime)
}

// GetLatestSnapshot returns a copy of the last logged snapshot, or nil.
func (fs *FrameStats) GetLatestSnapshot() *StatsSnapshot {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.latestSnapshot == nil {
		return nil
	}
	snapshot := *fs.latestSnapshot
	return &snapshot
}

// FormatWithCommas formats a number with thousands separators.
func FormatWithCommas(n int64) string {
	if n < 0 {
		return "-" + FormatWithCommas(-n)
	}
	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return str
	}

	result := ""
	for i, char := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(char)
	}
	return result
}
