// Package report renders planning runs: PNG plots of the driven path and
// speed profile (gonum/plot) and an interactive HTML speed chart (go-echarts).
package report

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ErrEmptyTrace is returned when there is nothing to draw.
var ErrEmptyTrace = errors.New("report: empty trace")

// Sample is the ego state at one control tick.
type Sample struct {
	T       float64 // seconds since the start of the run
	X       float64
	Y       float64
	Speed   float64 // m/s
	Target  float64 // goal speed, m/s
	Lane    int
	Braking bool
}

// Trace is a recorded run.
type Trace struct {
	Title   string
	Samples []Sample
	// Traffic holds the map positions of other vehicles, sampled at the
	// same rate as Samples, keyed by vehicle id.
	Traffic map[int][]Sample
}

var (
	egoColor     = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	targetColor  = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	brakeColor   = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	trafficColor = color.RGBA{R: 127, G: 127, B: 127, A: 255}
)

// PlotPath saves the ego path, other vehicles and braking ticks in the map
// frame as a PNG.
func PlotPath(tr Trace, file string) error {
	if len(tr.Samples) == 0 {
		return ErrEmptyTrace
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - path", tr.Title)
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"

	egoPts := make(plotter.XYs, 0, len(tr.Samples))
	var brakePts plotter.XYs
	for _, s := range tr.Samples {
		egoPts = append(egoPts, plotter.XY{X: s.X, Y: s.Y})
		if s.Braking {
			brakePts = append(brakePts, plotter.XY{X: s.X, Y: s.Y})
		}
	}
	egoLine, err := plotter.NewLine(egoPts)
	if err != nil {
		return err
	}
	egoLine.Color = egoColor
	egoLine.Width = vg.Points(1.5)
	p.Add(egoLine)
	p.Legend.Add("ego", egoLine)

	for _, id := range sortedIDs(tr.Traffic) {
		samples := tr.Traffic[id]
		if len(samples) == 0 {
			continue
		}
		pts := make(plotter.XYs, 0, len(samples))
		for _, s := range samples {
			pts = append(pts, plotter.XY{X: s.X, Y: s.Y})
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = trafficColor
		line.Width = vg.Points(0.5)
		line.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
		p.Add(line)
	}

	if len(brakePts) > 0 {
		sc, err := plotter.NewScatter(brakePts)
		if err != nil {
			return err
		}
		sc.Color = brakeColor
		sc.Radius = vg.Points(1.5)
		p.Add(sc)
		p.Legend.Add("braking", sc)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(14*vg.Inch, 6*vg.Inch, file); err != nil {
		return fmt.Errorf("report: save %s: %w", file, err)
	}
	return nil
}

// PlotSpeed saves commanded speed and goal speed against time as a PNG.
func PlotSpeed(tr Trace, file string) error {
	if len(tr.Samples) == 0 {
		return ErrEmptyTrace
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - speed", tr.Title)
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Speed (m/s)"

	speedPts := make(plotter.XYs, 0, len(tr.Samples))
	targetPts := make(plotter.XYs, 0, len(tr.Samples))
	for _, s := range tr.Samples {
		speedPts = append(speedPts, plotter.XY{X: s.T, Y: s.Speed})
		targetPts = append(targetPts, plotter.XY{X: s.T, Y: s.Target})
	}

	speedLine, err := plotter.NewLine(speedPts)
	if err != nil {
		return err
	}
	speedLine.Color = egoColor
	speedLine.Width = vg.Points(1)
	p.Add(speedLine)
	p.Legend.Add("speed", speedLine)

	targetLine, err := plotter.NewLine(targetPts)
	if err != nil {
		return err
	}
	targetLine.Color = targetColor
	targetLine.Width = vg.Points(1)
	targetLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(targetLine)
	p.Legend.Add("goal", targetLine)

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(14*vg.Inch, 6*vg.Inch, file); err != nil {
		return fmt.Errorf("report: save %s: %w", file, err)
	}
	return nil
}

// SpeedChart renders an interactive HTML line chart of speed, goal speed and
// lane against time.
func SpeedChart(tr Trace, w io.Writer) error {
	if len(tr.Samples) == 0 {
		return ErrEmptyTrace
	}
	xs := make([]string, 0, len(tr.Samples))
	speed := make([]opts.LineData, 0, len(tr.Samples))
	target := make([]opts.LineData, 0, len(tr.Samples))
	lane := make([]opts.LineData, 0, len(tr.Samples))
	brakes := 0
	for _, s := range tr.Samples {
		xs = append(xs, fmt.Sprintf("%.2f", s.T))
		speed = append(speed, opts.LineData{Value: s.Speed})
		target = append(target, opts.LineData{Value: s.Target})
		lane = append(lane, opts.LineData{Value: s.Lane})
		if s.Braking {
			brakes++
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: tr.Title, Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: tr.Title, Subtitle: fmt.Sprintf("ticks=%d braking=%d", len(tr.Samples), brakes)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "m/s", NameLocation: "middle", NameGap: 30}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	line.SetXAxis(xs).
		AddSeries("speed", speed).
		AddSeries("goal", target).
		AddSeries("lane", lane)

	if err := line.Render(w); err != nil {
		return fmt.Errorf("report: render chart: %w", err)
	}
	return nil
}

func sortedIDs(m map[int][]Sample) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
