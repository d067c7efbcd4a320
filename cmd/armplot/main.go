// armplot - renders a recorded run as a trajectory plot and an angle chart.
//
// Ticks come from the telemetry database, or from a running dashboard
// with -from http://host:8181.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/teslashibe/go-orbitarm/internal/config"
	"github.com/teslashibe/go-orbitarm/internal/httpc"
	"github.com/teslashibe/go-orbitarm/internal/log"
	"github.com/teslashibe/go-orbitarm/pkg/arm"
	"github.com/teslashibe/go-orbitarm/pkg/protocol"
	"github.com/teslashibe/go-orbitarm/pkg/render"
	"github.com/teslashibe/go-orbitarm/pkg/telemetry"
	"github.com/teslashibe/go-orbitarm/pkg/web"
)

func main() {
	env, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "armplot: %v\n", err)
		os.Exit(2)
	}

	db := flag.String("db", env.TelemetryDB, "Telemetry SQLite path (ARM_TELEMETRY_DB)")
	from := flag.String("from", "", "Dashboard base URL to read ticks from instead of -db")
	run := flag.String("run", "", "Run id, empty for the latest run")
	limit := flag.Int("limit", 3600, "Maximum ticks to plot")
	plotPath := flag.String("plot", "trajectory.png", "Trajectory plot output (.png, .svg, .pdf), empty to skip")
	chartPath := flag.String("chart", "angles.html", "Angle chart output, empty to skip")
	list := flag.Bool("list", false, "List recorded runs and exit")
	flag.Parse()

	log.Init(env.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := execute(ctx, *db, *from, *run, *limit, *plotPath, *chartPath, *list); err != nil {
		log.Error("armplot failed", "error", err)
		os.Exit(1)
	}
}

func execute(ctx context.Context, db, from, run string, limit int, plotPath, chartPath string, list bool) error {
	if from == "" && config.Disabled(db) {
		return fmt.Errorf("no telemetry source: set -db or -from")
	}

	if list {
		if from != "" {
			return fmt.Errorf("-list reads the database, not a dashboard")
		}
		return listRuns(ctx, db)
	}

	var (
		ticks []telemetry.Tick
		err   error
	)
	if from != "" {
		ticks, err = fetchTicks(ctx, from, run, limit)
	} else {
		ticks, err = loadTicks(ctx, db, run, limit)
	}
	if err != nil {
		return err
	}
	if len(ticks) == 0 {
		return render.ErrNoTicks
	}

	if plotPath != "" {
		if err := render.PlotTrajectory(ticks, plotPath); err != nil {
			return err
		}
		log.Info("trajectory written", "path", plotPath, "ticks", len(ticks))
	}
	if chartPath != "" {
		f, err := os.Create(chartPath)
		if err != nil {
			return err
		}
		if err := render.AngleChart(f, ticks, render.ChartOptions{}); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		log.Info("angle chart written", "path", chartPath)
	}
	return nil
}

func listRuns(ctx context.Context, db string) error {
	store, err := telemetry.Open(db)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Runs(ctx)
	if err != nil {
		return err
	}
	for _, r := range runs {
		fmt.Printf("%s  %s  %6d ticks  %6d sent  %s\n",
			r.RunID, r.Start.Format(time.RFC3339), r.Ticks, r.Sent, r.End.Sub(r.Start).Round(time.Millisecond))
	}
	return nil
}

func loadTicks(ctx context.Context, db, run string, limit int) ([]telemetry.Tick, error) {
	store, err := telemetry.Open(db)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.Recent(ctx, run, limit)
}

// fetchTicks reads /api/telemetry from a running dashboard
func fetchTicks(ctx context.Context, base, run string, limit int) ([]telemetry.Tick, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if run != "" {
		q.Set("run", run)
	}

	var entries []web.TickEntry
	if err := httpc.GetJSON(ctx, nil, base+"/api/telemetry?"+q.Encode(), &entries); err != nil {
		return nil, err
	}

	ticks := make([]telemetry.Tick, 0, len(entries))
	for _, e := range entries {
		ticks = append(ticks, fromEntry(run, e))
	}
	return ticks, nil
}

func fromEntry(run string, e web.TickEntry) telemetry.Tick {
	p := e.Pose
	t := telemetry.Tick{
		RunID:    run,
		Seq:      e.Seq,
		Time:     e.Time,
		HasInput: e.HasInput,
		Raw:      toPoint(e.Raw),
		Orbit:    p.Orbit,
		Pose: arm.Pose{
			Shoulder:  toPoint(p.Shoulder),
			Elbow:     toPoint(p.Elbow),
			Wrist:     toPoint(p.Wrist),
			Tip:       toPoint(p.Tip),
			Angles:    arm.JointAngles{Angle1: p.Angles[0], Angle2: p.Angles[1], Angle3: p.Angles[2]},
			Reachable: p.Reachable,
		},
	}
	if p.Smoothed != nil {
		t.Smoothed = toPoint(*p.Smoothed)
	}
	if p.Command != nil {
		t.Command = arm.ActuatorCommand{Angle1: p.Command[0], Angle2: p.Command[1]}
		t.Sent = true
	}
	return t
}

func toPoint(p protocol.Point) arm.Point2D {
	return arm.Pt(p.X, p.Y)
}
