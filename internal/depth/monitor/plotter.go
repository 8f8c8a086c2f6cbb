package monitor

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/banshee-data/depthframe/internal/depth/capture"
	"github.com/banshee-data/depthframe/internal/depth/geometry"
	"github.com/banshee-data/depthframe/internal/depth/imaging"
	"github.com/banshee-data/depthframe/internal/depth/skeleton"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Depth histogram bins span the normalization range.
const (
	histogramBins       = 80
	histogramBinWidthMM = geometry.NormalizationRangeMillimeters / histogramBins
)

// FrameSample summarises one frame.
type FrameSample struct {
	FrameID   int64
	Timestamp time.Time
	Users     int
	Tracked   int
	// Depth statistics over pixels with a reading, in millimetres.
	MeanDepthMM   float64
	StdDepthMM    float64
	ValidFraction float64
}

// FramePlotter records per-frame samples for plotting after a run.
type FramePlotter struct {
	mu        sync.Mutex
	enabled   bool
	outputDir string

	samples   []FrameSample
	histogram [histogramBins]float64
	// lastJoints holds the joint positions of each tracked skeleton in the
	// most recent frame that carried skeletons, keyed by slot.
	lastJoints map[int][]r3.Vec
}

// NewFramePlotter creates a disabled plotter.
func NewFramePlotter() *FramePlotter {
	return &FramePlotter{}
}

// Start clears any previous samples and begins recording. Plots are
// written to outputDir, which is created if needed.
func (fp *FramePlotter) Start(outputDir string) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	fp.outputDir = outputDir
	fp.enabled = true
	fp.samples = nil
	fp.histogram = [histogramBins]float64{}
	fp.lastJoints = nil
	return nil
}

// Stop disables sampling. Call GeneratePlots to produce output files.
func (fp *FramePlotter) Stop() {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.enabled = false
}

// IsEnabled reports whether the plotter is recording.
func (fp *FramePlotter) IsEnabled() bool {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return fp.enabled
}

// Sample records one frame. It has the capture.FrameHandler signature.
func (fp *FramePlotter) Sample(f capture.Frame) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	if !fp.enabled {
		return
	}

	s := FrameSample{
		FrameID:   f.FrameID(),
		Timestamp: f.Timestamp(),
		Users:     f.UserCount(),
		Tracked:   f.TrackedSkeletonCount(),
	}
	if f.HasDepth() {
		values := f.DepthValues()
		depths := make([]float64, 0, len(values))
		for _, v := range values {
			mm := imaging.DepthValue(v)
			if mm == 0 {
				continue
			}
			depths = append(depths, float64(mm))

			bin := int(mm) / histogramBinWidthMM
			if bin >= histogramBins {
				bin = histogramBins - 1
			}
			fp.histogram[bin]++
		}
		if len(depths) > 0 {
			s.MeanDepthMM, s.StdDepthMM = stat.MeanStdDev(depths, nil)
		}
		if len(values) > 0 {
			s.ValidFraction = float64(len(depths)) / float64(len(values))
		}
	}
	if f.HasSkeletons() {
		fp.lastJoints = make(map[int][]r3.Vec)
		for slot, sk := range f.Skeletons() {
			if !sk.IsTracked() {
				continue
			}
			for _, j := range skeleton.Joints() {
				if b, ok := sk[j]; ok {
					fp.lastJoints[slot] = append(fp.lastJoints[slot], b.EndPosition)
				}
			}
		}
	}
	fp.samples = append(fp.samples, s)
}

// Samples returns a copy of the recorded samples.
func (fp *FramePlotter) Samples() []FrameSample {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return append([]FrameSample(nil), fp.samples...)
}

// GetOutputDir returns the current output directory for plots.
func (fp *FramePlotter) GetOutputDir() string {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return fp.outputDir
}

// GetSampleCount returns the number of frames sampled.
func (fp *FramePlotter) GetSampleCount() int {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return len(fp.samples)
}

// GeneratePlots writes users.png, depth.png and depth_histogram.png.
// Returns the number of plots written.
func (fp *FramePlotter) GeneratePlots() (int, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	if fp.outputDir == "" {
		return 0, fmt.Errorf("no output directory configured")
	}
	if len(fp.samples) == 0 {
		return 0, nil
	}

	count := 0
	if err := fp.plotUsers(); err != nil {
		return count, fmt.Errorf("users plot: %w", err)
	}
	count++

	if err := fp.plotDepth(); err != nil {
		return count, fmt.Errorf("depth plot: %w", err)
	}
	count++

	var total float64
	for _, c := range fp.histogram {
		total += c
	}
	if total == 0 {
		return count, nil
	}
	if err := fp.plotHistogram(); err != nil {
		return count, fmt.Errorf("depth histogram: %w", err)
	}
	count++
	return count, nil
}

func (fp *FramePlotter) plotUsers() error {
	p := plot.New()
	p.Title.Text = "Users per frame"
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Count"

	users := make(plotter.XYs, len(fp.samples))
	tracked := make(plotter.XYs, len(fp.samples))
	for i, s := range fp.samples {
		users[i] = plotter.XY{X: float64(s.FrameID), Y: float64(s.Users)}
		tracked[i] = plotter.XY{X: float64(s.FrameID), Y: float64(s.Tracked)}
	}
	if err := addLine(p, 0, "users in depth", users); err != nil {
		return err
	}
	if err := addLine(p, 1, "tracked skeletons", tracked); err != nil {
		return err
	}
	return fp.save(p, "users.png")
}

func (fp *FramePlotter) plotDepth() error {
	p := plot.New()
	p.Title.Text = "Scene depth"
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Depth (mm)"

	mean := make(plotter.XYs, 0, len(fp.samples))
	upper := make(plotter.XYs, 0, len(fp.samples))
	lower := make(plotter.XYs, 0, len(fp.samples))
	for _, s := range fp.samples {
		// Frames without depth readings leave gaps.
		if s.ValidFraction == 0 {
			continue
		}
		x := float64(s.FrameID)
		mean = append(mean, plotter.XY{X: x, Y: s.MeanDepthMM})
		upper = append(upper, plotter.XY{X: x, Y: s.MeanDepthMM + s.StdDepthMM})
		lower = append(lower, plotter.XY{X: x, Y: s.MeanDepthMM - s.StdDepthMM})
	}
	if len(mean) > 0 {
		if err := addLine(p, 0, "mean", mean); err != nil {
			return err
		}
		if err := addLine(p, 1, "mean + 1σ", upper); err != nil {
			return err
		}
		if err := addLine(p, 2, "mean - 1σ", lower); err != nil {
			return err
		}
	}
	return fp.save(p, "depth.png")
}

func (fp *FramePlotter) plotHistogram() error {
	p := plot.New()
	p.Title.Text = "Depth distribution"
	p.X.Label.Text = "Depth (mm)"
	p.Y.Label.Text = "Pixels"

	bins := make(plotter.XYs, histogramBins)
	for i, c := range fp.histogram {
		bins[i] = plotter.XY{X: (float64(i) + 0.5) * histogramBinWidthMM, Y: c}
	}
	h, err := plotter.NewHistogram(bins, histogramBins)
	if err != nil {
		return err
	}
	h.FillColor = plotutil.Color(0)
	p.Add(h)
	return fp.save(p, "depth_histogram.png")
}

func addLine(p *plot.Plot, i int, label string, pts plotter.XYs) error {
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Color = plotutil.Color(i)
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add(label, line)
	p.Legend.Top = true
	return nil
}

func (fp *FramePlotter) save(p *plot.Plot, name string) error {
	path := filepath.Join(fp.outputDir, name)
	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}

// FormatTimestamp generates a timestamp string for directory naming.
func FormatTimestamp(t time.Time) string {
	return t.Format("20060102_150405")
}

// MakePlotOutputDir returns a timestamped directory for a run's plots:
// <baseDir>/<label>/<timestamp>, or <baseDir>/live_<timestamp> when label
// is empty.
func MakePlotOutputDir(baseDir, label string, now time.Time) string {
	ts := FormatTimestamp(now)
	if label != "" {
		return filepath.Join(baseDir, label, ts)
	}
	return filepath.Join(baseDir, "live_"+ts)
}
