// orbitarm - a three-segment arm that hovers its tip over a tracked pointer
// and orbits it on key presses.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-orbitarm/internal/config"
	"github.com/teslashibe/go-orbitarm/internal/log"
	"github.com/teslashibe/go-orbitarm/pkg/camera"
	"github.com/teslashibe/go-orbitarm/pkg/orbitarm"
	"github.com/teslashibe/go-orbitarm/pkg/tracking"
)

func main() {
	cfg, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "orbitarm: %v\n", err)
		os.Exit(2)
	}
	log.Init(cfg.LogLevel)

	app, err := orbitarm.New(cfg)
	if err != nil {
		log.Error("configuration error", "error", err)
		os.Exit(1)
	}

	if err := app.Init(); err != nil {
		app.Shutdown()
		log.Error("initialization failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runErr := app.Run(ctx)
	app.Shutdown()
	if runErr != nil {
		log.Error("runtime error", "error", runErr)
		os.Exit(1)
	}
}

// parseFlags builds the configuration: defaults, then ARM_* environment,
// then flags that were set explicitly.
func parseFlags() (orbitarm.Config, error) {
	cfg := orbitarm.DefaultConfig()

	env, err := config.Load()
	if err != nil {
		return cfg, err
	}
	cfg.ApplyEnv(env)

	preset := flag.String("preset", "default", "Tracking preset: default, smooth, responsive")
	cameraPreset := flag.String("camera-preset", "", "Camera preset: default, lowres, 720p")
	flag.BoolVar(&cfg.Sim, "sim", false, "Use a simulated pointer instead of the camera")
	flag.IntVar(&cfg.Camera.DeviceID, "camera", cfg.Camera.DeviceID, "Camera device index (ARM_CAMERA)")
	flag.StringVar(&cfg.Detector, "detector", cfg.Detector, "Pointer detector: marker, face, object")
	flag.StringVar(&cfg.ModelPath, "model", "", "ONNX model for the face or object detector")
	flag.StringVar(&cfg.SerialPort, "serial", cfg.SerialPort, "Servo serial port, empty to run without servos (ARM_SERIAL_PORT)")
	flag.IntVar(&cfg.BaudRate, "baud", cfg.BaudRate, "Serial baud rate (ARM_BAUD_RATE)")
	flag.BoolVar(&cfg.RateLimit, "rate-limit", cfg.RateLimit, "Skip unchanged servo commands")
	flag.StringVar(&cfg.DashboardAddr, "dashboard", cfg.DashboardAddr, "Dashboard listen address, empty to disable")
	flag.StringVar(&cfg.TelemetryDB, "telemetry", cfg.TelemetryDB, "Telemetry SQLite path, empty to disable (ARM_TELEMETRY_DB)")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error (ARM_LOG_LEVEL)")
	mirror := flag.Bool("mirror", true, "Mirror the pointer horizontally")
	flag.Parse()

	// Presets replace the tracking block, so apply them before the flags
	// that tweak it
	tc, ok := tracking.Preset(*preset)
	if !ok {
		return cfg, fmt.Errorf("unknown preset %q", *preset)
	}
	cfg.Tracking = tc
	cfg.Tracking.Arm.MirrorX = *mirror

	if *cameraPreset != "" {
		cc := camera.GetPreset(*cameraPreset)
		if cc == nil {
			return cfg, fmt.Errorf("unknown camera preset %q (%v)", *cameraPreset, camera.PresetNames())
		}
		cc.DeviceID = cfg.Camera.DeviceID
		cfg.Camera = *cc
	}
	return cfg, nil
}
