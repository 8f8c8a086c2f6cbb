// Command depth-record runs a simulated depth sensor, or a recorded session,
// through a capture Device and records the frames to SQLite.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/depthframe/internal/config"
	"github.com/banshee-data/depthframe/internal/depth/capture"
	"github.com/banshee-data/depthframe/internal/depth/monitor"
	"github.com/banshee-data/depthframe/internal/depth/recorder"
	"github.com/banshee-data/depthframe/internal/depth/simulator"
	"github.com/banshee-data/depthframe/internal/version"
)

var (
	configPath   = flag.String("config", "", "Device config JSON (defaults to "+config.DefaultConfigPath+" when present)")
	dbPath       = flag.String("db", "depth_frames.db", "Path to the recording database")
	maxFrames    = flag.Int("frames", 300, "Stop after this many frames (0 runs until interrupted)")
	interval     = flag.Duration("interval", 0, "Poll interval (0 uses the config value)")
	statsEvery   = flag.Duration("stats", 5*time.Second, "Interval between throughput log lines (0 disables)")
	plotsDir     = flag.String("plots", "", "Write PNG plots and an HTML dashboard under this directory")
	replayID     = flag.String("replay", "", "Replay a recorded session instead of the simulator")
	loop         = flag.Bool("loop", false, "Loop the replayed session")
	players      = flag.Int("players", 2, "People in the simulated scene (0-6)")
	listSessions = flag.Bool("list", false, "List recorded sessions and exit")
	verbose      = flag.Bool("verbose", false, "Log capture and recorder diagnostics")
	showVersion  = flag.Bool("version", false, "Print version and exit")
)

// runConfig is the resolved command line.
type runConfig struct {
	Device     *config.DeviceConfig
	DBPath     string
	MaxFrames  int
	Interval   time.Duration
	StatsEvery time.Duration
	PlotsDir   string
	ReplayID   string
	Loop       bool
	Players    int
}

// runResult summarises a finished run.
type runResult struct {
	DeviceID  string
	SessionID string
	Frames    int64
	Failures  int
	Plots     int
	Dashboard string
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("depth-record"))
		return
	}

	if *verbose {
		capture.SetLogWriters(os.Stderr, os.Stderr, nil)
		recorder.SetLogWriters(os.Stderr, os.Stderr, nil)
	}

	if *listSessions {
		if err := printSessions(*dbPath); err != nil {
			log.Fatalf("failed to list sessions: %v", err)
		}
		return
	}

	cfg, err := loadDeviceConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := run(ctx, runConfig{
		Device:     cfg,
		DBPath:     *dbPath,
		MaxFrames:  *maxFrames,
		Interval:   *interval,
		StatsEvery: *statsEvery,
		PlotsDir:   *plotsDir,
		ReplayID:   *replayID,
		Loop:       *loop,
		Players:    *players,
	})
	if err != nil {
		log.Fatalf("capture failed: %v", err)
	}
	log.Printf("recorded %d frames from %s into session %s (%d failures)",
		res.Frames, res.DeviceID, res.SessionID, res.Failures)
	if res.Plots > 0 {
		log.Printf("wrote %d plots", res.Plots)
	}
	if res.Dashboard != "" {
		log.Printf("dashboard: %s", res.Dashboard)
	}
}

// loadDeviceConfig loads path, or the defaults file when path is empty. A
// missing defaults file falls back to the built-in defaults.
func loadDeviceConfig(path string) (*config.DeviceConfig, error) {
	if path != "" {
		return config.LoadDeviceConfig(path)
	}
	if _, err := os.Stat(config.DefaultConfigPath); err == nil {
		return config.LoadDeviceConfig(config.DefaultConfigPath)
	}
	return config.DefaultDeviceConfig(), nil
}

func printSessions(path string) error {
	store, err := recorder.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	sessions, err := store.ListSessions()
	if err != nil {
		return err
	}
	for _, s := range sessions {
		fmt.Printf("%s  %s  device=%s  color=%s  depth=%s  frames=%d\n",
			s.ID, s.StartedAt.Format(time.RFC3339), s.DeviceID,
			s.ColorResolution, s.DepthResolution, s.FrameCount)
	}
	return nil
}

// run captures until ctx is done, MaxFrames frames were delivered or the
// stream ends, then writes plots when PlotsDir is set.
func run(ctx context.Context, cfg runConfig) (runResult, error) {
	var res runResult

	store, err := recorder.Open(cfg.DBPath)
	if err != nil {
		return res, err
	}
	defer store.Close()

	var (
		driver capture.Driver
		opts   capture.DeviceOptions
	)
	if cfg.ReplayID != "" {
		rd, err := recorder.NewReplayDriver(store, cfg.ReplayID, recorder.ReplayConfig{Loop: cfg.Loop})
		if err != nil {
			return res, err
		}
		driver, opts = rd, rd.Options()
	} else {
		sim := simulator.DefaultConfig()
		sim.Players = cfg.Players
		driver, opts = simulator.NewDriver(sim), capture.DeviceOptionsFromConfig(cfg.Device)
	}

	device := capture.NewDevice(capture.Config{
		Driver: driver,
		Reporter: capture.StatusReporterFunc(func(deviceID string, status capture.Status) {
			log.Printf("device %s: %s", deviceID, status)
		}),
		MaxIdleTicks: cfg.Device.GetMaxIdleTicks(),
	})
	device.EnableVerbose(cfg.Device.GetVerbose())

	rec := recorder.NewRecorder(store, recorder.Config{Options: opts, Notes: sessionNotes(cfg)})
	stats := monitor.NewFrameStats(nil)
	plotter := monitor.NewFramePlotter()
	if cfg.PlotsDir != "" {
		if err := plotter.Start(monitor.MakePlotOutputDir(cfg.PlotsDir, cfg.ReplayID, time.Now())); err != nil {
			return res, err
		}
	}

	var frames int64
	device.ConnectEventHandler(func(f capture.Frame) {
		rec.HandleFrame(f)
		stats.AddFrame(f)
		plotter.Sample(f)
		frames++
		if cfg.MaxFrames > 0 && frames >= int64(cfg.MaxFrames) {
			device.Stop()
		}
	})

	if err := device.Start(opts); err != nil {
		return res, err
	}
	res.DeviceID = device.DeviceID()
	res.SessionID = device.SessionID()
	log.Printf("capturing from %s (session %s)", res.DeviceID, res.SessionID)

	runCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	if cfg.StatsEvery > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(cfg.StatsEvery)
			defer ticker.Stop()
			for {
				select {
				case <-runCtx.Done():
					return
				case <-ticker.C:
					stats.LogStats(res.DeviceID)
				}
			}
		}()
	}

	pollInterval := cfg.Interval
	if pollInterval <= 0 {
		pollInterval = cfg.Device.GetPollInterval()
	}
	runErr := device.Run(runCtx, pollInterval)
	device.Stop()
	cancel()
	wg.Wait()

	res.Frames = stats.TotalFrames()
	_, res.Failures = rec.Stats()

	switch {
	case runErr == nil, errors.Is(runErr, context.Canceled):
	case errors.Is(runErr, recorder.ErrEndOfSession):
		log.Printf("end of recorded session %s", cfg.ReplayID)
	default:
		return res, runErr
	}

	if plotter.IsEnabled() {
		plotter.Stop()
		if res.Plots, err = plotter.GeneratePlots(); err != nil {
			return res, err
		}
		if plotter.GetSampleCount() > 0 {
			if res.Dashboard, err = plotter.GenerateDashboard(); err != nil {
				return res, err
			}
		}
	}
	return res, nil
}

func sessionNotes(cfg runConfig) string {
	if cfg.ReplayID != "" {
		return "replay of " + cfg.ReplayID
	}
	return fmt.Sprintf("simulated scene with %d players", cfg.Players)
}
