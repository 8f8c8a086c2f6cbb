package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/depthframe/internal/config"
	"github.com/banshee-data/depthframe/internal/depth/recorder"
)

func TestFlagDefaults(t *testing.T) {
	if *dbPath != "depth_frames.db" {
		t.Errorf("expected default db path depth_frames.db, got %q", *dbPath)
	}
	if *maxFrames != 300 {
		t.Errorf("expected default frame limit 300, got %d", *maxFrames)
	}
	if *interval != 0 {
		t.Errorf("expected interval to default to the config value, got %v", *interval)
	}
	if *statsEvery != 5*time.Second {
		t.Errorf("expected stats interval 5s, got %v", *statsEvery)
	}
	if *replayID != "" || *loop {
		t.Error("expected simulator capture by default")
	}
	if *players != 2 {
		t.Errorf("expected 2 simulated players, got %d", *players)
	}
}

func TestLoadDeviceConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "device.json")
	if err := os.WriteFile(path, []byte(`{"depth_resolution": "640x480", "user_tracking_enabled": false}`), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadDeviceConfig(path)
	if err != nil {
		t.Fatalf("loadDeviceConfig: %v", err)
	}
	if cfg.GetUserTrackingEnabled() {
		t.Error("expected user tracking disabled")
	}
	if got := cfg.GetDepthResolution().String(); got != "640x480" {
		t.Errorf("expected depth 640x480, got %s", got)
	}

	if _, err := loadDeviceConfig(filepath.Join(dir, "device.yaml")); err == nil {
		t.Error("expected error for non-JSON config")
	}
}

func TestRun_RecordThenReplay(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "frames.db")
	plots := filepath.Join(dir, "plots")

	res, err := run(context.Background(), runConfig{
		Device:    config.DefaultDeviceConfig(),
		DBPath:    db,
		MaxFrames: 5,
		Interval:  time.Millisecond,
		PlotsDir:  plots,
		Players:   3,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Frames != 5 {
		t.Errorf("expected 5 frames, got %d", res.Frames)
	}
	if res.Failures != 0 {
		t.Errorf("expected no recorder failures, got %d", res.Failures)
	}
	if res.Plots != 3 {
		t.Errorf("expected 3 plots, got %d", res.Plots)
	}
	if _, err := os.Stat(res.Dashboard); err != nil {
		t.Errorf("expected dashboard: %v", err)
	}

	// Replaying without a frame limit ends with the recording.
	replay, err := run(context.Background(), runConfig{
		Device:   config.DefaultDeviceConfig(),
		DBPath:   db,
		Interval: time.Millisecond,
		ReplayID: res.SessionID,
	})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if replay.Frames != 5 {
		t.Errorf("expected 5 replayed frames, got %d", replay.Frames)
	}
	if replay.DeviceID != res.DeviceID {
		t.Errorf("expected replay from %s, got %s", res.DeviceID, replay.DeviceID)
	}

	store, err := recorder.Open(db)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	sessions, err := store.ListSessions()
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected original and replayed sessions, got %d", len(sessions))
	}
	for _, s := range sessions {
		if s.FrameCount != 5 {
			t.Errorf("session %s has %d frames, want 5", s.ID, s.FrameCount)
		}
	}
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := run(ctx, runConfig{
		Device:   config.DefaultDeviceConfig(),
		DBPath:   filepath.Join(t.TempDir(), "frames.db"),
		Interval: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("expected cancellation to end the run cleanly, got %v", err)
	}
	if res.SessionID == "" {
		t.Error("expected a session to have started")
	}
}

func TestRun_UnknownReplay(t *testing.T) {
	_, err := run(context.Background(), runConfig{
		Device:   config.DefaultDeviceConfig(),
		DBPath:   filepath.Join(t.TempDir(), "frames.db"),
		ReplayID: "missing",
	})
	if err == nil {
		t.Fatal("expected error for unknown session")
	}
}
