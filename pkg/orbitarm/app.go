package orbitarm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/teslashibe/go-orbitarm/internal/log"
	"github.com/teslashibe/go-orbitarm/pkg/camera"
	"github.com/teslashibe/go-orbitarm/pkg/render"
	"github.com/teslashibe/go-orbitarm/pkg/robot"
	"github.com/teslashibe/go-orbitarm/pkg/telemetry"
	"github.com/teslashibe/go-orbitarm/pkg/tracking"
	"github.com/teslashibe/go-orbitarm/pkg/tracking/detection"
	"github.com/teslashibe/go-orbitarm/pkg/web"
)

// Simulated pointer: a circle around the shoulder, one revolution in 6s at 60 FPS
const (
	simRadius = 150
	simPeriod = 360
)

// App is the orbit arm application orchestrator.
// It manages all components and their lifecycle.
type App struct {
	config Config

	// Input
	webcam   *camera.Webcam
	detector detection.Detector
	source   tracking.PointerSource

	// Control
	servo   robot.ServoController
	tracker *tracking.Tracker

	// Outputs
	store    *telemetry.Store
	recorder *telemetry.Recorder
	frames   *render.FrameSink
	server   *web.Server
	listener net.Listener
}

// New validates the configuration and creates an application.
func New(cfg Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &App{config: cfg}, nil
}

// Init opens every component. Call this after New() and before Run().
// On error, Shutdown releases whatever was opened.
func (a *App) Init() error {
	if err := a.initInput(); err != nil {
		return fmt.Errorf("input: %w", err)
	}
	if err := a.initServo(); err != nil {
		return fmt.Errorf("servo: %w", err)
	}

	tracker, err := tracking.New(a.config.Tracking, a.source, a.servo)
	if err != nil {
		return err
	}
	a.tracker = tracker

	if err := a.initTelemetry(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	if err := a.initDashboard(); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}

	log.Info("orbit arm ready",
		"run_id", tracker.RunID(),
		"sim", a.config.Sim,
		"detector", a.config.Detector,
		"serial", a.config.SerialPort,
		"dashboard", a.config.DashboardAddr,
		"telemetry", a.config.TelemetryDB,
	)
	return nil
}

func (a *App) initInput() error {
	if a.config.Sim {
		a.source = tracking.NewCircleSource(a.config.Tracking.Arm.Shoulder, simRadius, simPeriod)
		return nil
	}

	det, err := a.config.newDetector()
	if err != nil {
		return err
	}
	a.detector = det

	cam, err := camera.Open(a.config.Camera)
	if err != nil {
		return err
	}
	a.webcam = cam
	a.source = tracking.NewCameraSource(a.config.Tracking, cam, det)
	return nil
}

func (a *App) initServo() error {
	if a.config.SerialPort == "" {
		log.Info("no serial port configured, servo commands are discarded")
		a.servo = robot.NewDisabledServo()
		return nil
	}

	link, err := robot.Open(a.config.SerialPort, robot.PortOptions{BaudRate: a.config.BaudRate})
	if err != nil {
		// Keep tracking and rendering without the arm
		log.Warn("serial port unavailable, servo commands are discarded",
			"port", a.config.SerialPort, "error", err)
		a.servo = robot.NewDisabledServo()
		return nil
	}
	if a.config.RateLimit {
		a.servo = robot.NewRateController(link, robot.DefaultRateOptions())
	} else {
		a.servo = link
	}
	return nil
}

func (a *App) initTelemetry() error {
	if a.config.TelemetryDB == "" {
		return nil
	}
	store, err := telemetry.Open(a.config.TelemetryDB)
	if err != nil {
		return err
	}
	a.store = store
	a.recorder = telemetry.NewRecorder(store, telemetry.DefaultRecorderOptions())
	a.tracker.SetRecorder(a.recorder)
	return nil
}

func (a *App) initDashboard() error {
	if a.config.DashboardAddr == "" {
		return nil
	}

	opts := web.DefaultOptions()
	opts.Addr = a.config.DashboardAddr

	var store web.TelemetrySource
	if a.store != nil {
		store = a.store
	}
	a.server = web.NewServer(opts, a.tracker, store)

	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return err
	}
	a.listener = ln

	armCfg := a.config.Tracking.Arm
	canvas := render.NewCanvas(int(armCfg.WindowWidth), int(armCfg.WindowHeight))
	a.frames = render.NewFrameSink(canvas, a.config.Frames, a.server.SendFrame)

	a.tracker.AddPoseSink(a.frames)
	a.tracker.AddSnapshotSink(a.server)
	return nil
}

// Run starts the dashboard and the tick loop.
// Blocks until context is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a.tracker == nil {
		return errors.New("orbitarm: Run called before Init")
	}

	if a.server != nil {
		go func() {
			if err := a.server.Serve(ctx, a.listener); err != nil {
				log.Error("dashboard stopped", "error", err)
			}
		}()
	}

	return a.tracker.Run(ctx)
}

// Tracker returns the tracking loop (nil before Init)
func (a *App) Tracker() *tracking.Tracker {
	return a.tracker
}

// Addr returns the dashboard listen address, or nil without a dashboard
func (a *App) Addr() net.Addr {
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

// Shutdown releases every component in reverse order of Init.
// Call it after Run has returned.
func (a *App) Shutdown() {
	if a.frames != nil {
		a.frames.Close()
	}
	if a.listener != nil {
		// Already closed when the dashboard was served
		a.listener.Close()
	}
	if a.recorder != nil {
		closeLogged("telemetry recorder", a.recorder)
	}
	if a.store != nil {
		closeLogged("telemetry store", a.store)
	}
	if a.servo != nil {
		closeLogged("servo", a.servo)
	}
	if a.webcam != nil {
		closeLogged("camera", a.webcam)
	}
	if a.detector != nil {
		closeLogged("detector", a.detector)
	}
}

func closeLogged(name string, c io.Closer) {
	if err := c.Close(); err != nil {
		log.Warn("close failed", "component", name, "error", err)
	}
}
