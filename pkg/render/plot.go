package render

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"path/filepath"
	"strings"

	"github.com/teslashibe/go-orbitarm/pkg/telemetry"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ErrNoTicks is returned when there is nothing to plot
var ErrNoTicks = errors.New("render: no ticks")

// TrajectoryPlot builds an XY plot of the smoothed pointer, the wrist and
// the tip for a run. Y grows downwards in window coordinates, so the axis
// is flipped to match the live view.
func TrajectoryPlot(ticks []telemetry.Tick) (*plot.Plot, error) {
	if len(ticks) == 0 {
		return nil, ErrNoTicks
	}

	smoothed := make(plotter.XYs, 0, len(ticks))
	wrist := make(plotter.XYs, 0, len(ticks))
	tip := make(plotter.XYs, 0, len(ticks))
	for _, t := range ticks {
		smoothed = append(smoothed, plotter.XY{X: t.Smoothed.X, Y: -t.Smoothed.Y})
		wrist = append(wrist, plotter.XY{X: t.Pose.Wrist.X, Y: -t.Pose.Wrist.Y})
		tip = append(tip, plotter.XY{X: t.Pose.Tip.X, Y: -t.Pose.Tip.Y})
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Run %s - %d ticks", shortID(ticks[0].RunID), len(ticks))
	p.X.Label.Text = "x (px)"
	p.Y.Label.Text = "-y (px)"
	p.Add(plotter.NewGrid())

	series := []struct {
		name  string
		pts   plotter.XYs
		color color.RGBA
	}{
		{"smoothed", smoothed, color.RGBA{120, 120, 120, 255}},
		{"wrist", wrist, color.RGBA{40, 120, 230, 255}},
		{"tip", tip, color.RGBA{230, 40, 40, 255}},
	}
	for _, s := range series {
		line, err := plotter.NewLine(s.pts)
		if err != nil {
			return nil, err
		}
		line.Color = s.color
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(s.name, line)
	}

	base := ticks[0].Pose.Shoulder
	shoulder, err := plotter.NewScatter(plotter.XYs{{X: base.X, Y: -base.Y}})
	if err != nil {
		return nil, err
	}
	shoulder.GlyphStyle.Color = color.RGBA{0, 0, 0, 255}
	p.Add(shoulder)
	p.Legend.Add("shoulder", shoulder)

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	return p, nil
}

// WriteTrajectory renders the trajectory plot in format ("png", "svg", ...)
func WriteTrajectory(w io.Writer, ticks []telemetry.Tick, format string) error {
	p, err := TrajectoryPlot(ticks)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(8*vg.Inch, 8*vg.Inch, format)
	if err != nil {
		return fmt.Errorf("plot writer: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// PlotTrajectory saves the trajectory plot; the format follows the extension
func PlotTrajectory(ticks []telemetry.Tick, path string) error {
	p, err := TrajectoryPlot(ticks)
	if err != nil {
		return err
	}
	if filepath.Ext(path) == "" {
		return fmt.Errorf("plot path %q has no extension", path)
	}
	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}

func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
