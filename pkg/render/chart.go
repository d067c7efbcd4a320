package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/teslashibe/go-orbitarm/pkg/arm"
	"github.com/teslashibe/go-orbitarm/pkg/telemetry"
)

// ChartOptions configures the HTML angle chart
type ChartOptions struct {
	AssetsHost string // Where echarts.min.js is served from, empty for the default CDN
	Theme      string
}

// AngleChart writes an HTML line chart of the joint angles and the sent
// servo commands over a run
func AngleChart(w io.Writer, ticks []telemetry.Tick, o ChartOptions) error {
	if len(ticks) == 0 {
		return ErrNoTicks
	}

	xs := make([]string, 0, len(ticks))
	a1 := make([]opts.LineData, 0, len(ticks))
	a2 := make([]opts.LineData, 0, len(ticks))
	a3 := make([]opts.LineData, 0, len(ticks))
	orbit := make([]opts.LineData, 0, len(ticks))
	for _, t := range ticks {
		xs = append(xs, strconv.FormatUint(t.Seq, 10))
		a1 = append(a1, opts.LineData{Value: t.Pose.Angles.Angle1})
		a2 = append(a2, opts.LineData{Value: t.Pose.Angles.Angle2})
		a3 = append(a3, opts.LineData{Value: t.Pose.Angles.Angle3})
		orbit = append(orbit, opts.LineData{Value: arm.NormalizeDegrees(t.Orbit)})
	}

	initOpts := opts.Initialization{
		PageTitle: "Arm joint angles",
		Width:     "100%",
		Height:    "600px",
		Theme:     o.Theme,
	}
	if o.AssetsHost != "" {
		initOpts.AssetsHost = o.AssetsHost
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts),
		charts.WithTitleOpts(opts.Title{
			Title:    "Joint angles",
			Subtitle: fmt.Sprintf("run=%s ticks=%d servo range %d-%d", ticks[0].RunID, len(ticks), arm.ServoMin, arm.ServoMax),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "tick", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "degrees", Min: 0, Max: 360}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)

	line.SetXAxis(xs).
		AddSeries("angle1", a1).
		AddSeries("angle2", a2).
		AddSeries("angle3", a3).
		AddSeries("orbit", orbit)

	if err := line.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
