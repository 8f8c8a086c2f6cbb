package monitor

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// DashboardFile is the name of the HTML dashboard within the output dir.
const DashboardFile = "dashboard.html"

// GenerateDashboard renders the recorded samples as an interactive HTML page
// and returns its path.
func (fp *FramePlotter) GenerateDashboard() (string, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	if fp.outputDir == "" {
		return "", fmt.Errorf("no output directory configured")
	}
	if len(fp.samples) == 0 {
		return "", fmt.Errorf("no samples recorded")
	}

	page := components.NewPage()
	page.PageTitle = "Depth capture"
	page.AddCharts(fp.usersChart(), fp.depthChart(), fp.histogramChart())
	if len(fp.lastJoints) > 0 {
		page.AddCharts(fp.jointsChart())
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return "", fmt.Errorf("failed to render dashboard: %w", err)
	}
	path := filepath.Join(fp.outputDir, DashboardFile)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("write dashboard: %w", err)
	}
	return path, nil
}

func (fp *FramePlotter) frameAxis() []string {
	x := make([]string, len(fp.samples))
	for i, s := range fp.samples {
		x[i] = strconv.FormatInt(s.FrameID, 10)
	}
	return x
}

func (fp *FramePlotter) usersChart() *charts.Line {
	users := make([]opts.LineData, len(fp.samples))
	tracked := make([]opts.LineData, len(fp.samples))
	for i, s := range fp.samples {
		users[i] = opts.LineData{Value: s.Users}
		tracked[i] = opts.LineData{Value: s.Tracked}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Users per frame", Subtitle: fmt.Sprintf("frames=%d", len(fp.samples))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Frame"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Count"}),
	)
	line.SetXAxis(fp.frameAxis()).
		AddSeries("users in depth", users).
		AddSeries("tracked skeletons", tracked)
	return line
}

func (fp *FramePlotter) depthChart() *charts.Line {
	mean := make([]opts.LineData, len(fp.samples))
	valid := make([]opts.LineData, len(fp.samples))
	for i, s := range fp.samples {
		mean[i] = opts.LineData{Value: s.MeanDepthMM}
		valid[i] = opts.LineData{Value: s.ValidFraction * 100}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Scene depth"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Frame"}),
	)
	line.SetXAxis(fp.frameAxis()).
		AddSeries("mean depth (mm)", mean).
		AddSeries("valid pixels (%)", valid)
	return line
}

func (fp *FramePlotter) histogramChart() *charts.Bar {
	x := make([]string, histogramBins)
	y := make([]opts.BarData, histogramBins)
	for i, c := range fp.histogram {
		x[i] = strconv.Itoa(i * histogramBinWidthMM)
		y[i] = opts.BarData{Value: c}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Depth distribution", Subtitle: fmt.Sprintf("bin=%dmm", histogramBinWidthMM)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Depth (mm)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Pixels"}),
	)
	bar.SetXAxis(x).AddSeries("pixels", y)
	return bar
}

// jointsChart plots the last tracked skeletons projected onto the camera's
// XY plane, one series per slot.
func (fp *FramePlotter) jointsChart() *charts.Scatter {
	slots := make([]int, 0, len(fp.lastJoints))
	for slot := range fp.lastJoints {
		slots = append(slots, slot)
	}
	sort.Ints(slots)

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "600px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Tracked joints", Subtitle: "last frame with skeletons"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
	)
	for _, slot := range slots {
		joints := fp.lastJoints[slot]
		data := make([]opts.ScatterData, len(joints))
		for i, p := range joints {
			data[i] = opts.ScatterData{Value: []interface{}{p.X, p.Y}}
		}
		scatter.AddSeries(fmt.Sprintf("skeleton %d", slot), data,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
	}
	return scatter
}
