// Package orbitarm wires the camera, tracker, servo link, telemetry and
// dashboard into one application.
package orbitarm

import (
	"fmt"

	"github.com/teslashibe/go-orbitarm/internal/config"
	"github.com/teslashibe/go-orbitarm/pkg/camera"
	"github.com/teslashibe/go-orbitarm/pkg/render"
	"github.com/teslashibe/go-orbitarm/pkg/tracking"
	"github.com/teslashibe/go-orbitarm/pkg/tracking/detection"
)

// Pointer detectors
const (
	DetectorMarker = "marker" // Coloured marker via HSV threshold
	DetectorFace   = "face"   // YuNet face detector
	DetectorObject = "object" // YOLOv8 handheld object
)

// Config holds all configuration for the application.
// Flag parsing is done in cmd/orbitarm/main.go; this struct is data only.
type Config struct {
	// Tracking loop (geometry, smoothing, tick rate)
	Tracking tracking.Config

	// Pointer input. Sim replaces the camera with a synthetic circle.
	Sim       bool
	Camera    camera.Config
	Detector  string // DetectorMarker, DetectorFace or DetectorObject
	ModelPath string // Overrides the model of the face and object detectors

	// Servo link. Empty SerialPort runs without actuators.
	SerialPort string
	BaudRate   int
	RateLimit  bool // Filter unchanged commands before the serial port

	// Outputs. Empty values disable them.
	DashboardAddr string
	TelemetryDB   string
	Frames        render.FrameSinkOptions

	LogLevel string
}

// DefaultConfig returns defaults for a marker-tracking arm with the
// dashboard and telemetry enabled.
func DefaultConfig() Config {
	env := config.Defaults()
	return Config{
		Tracking:      tracking.DefaultConfig(),
		Camera:        camera.DefaultConfig(),
		Detector:      DetectorMarker,
		BaudRate:      env.BaudRate,
		RateLimit:     true,
		DashboardAddr: env.DashboardAddr(),
		TelemetryDB:   env.TelemetryDB,
		Frames:        render.DefaultFrameSinkOptions(),
		LogLevel:      env.LogLevel,
	}
}

// ApplyEnv copies environment settings into the config.
// Call this before applying explicit flags.
func (c *Config) ApplyEnv(env config.Env) {
	c.SerialPort = env.SerialPort
	c.BaudRate = env.BaudRate
	c.Camera.DeviceID = env.Camera
	c.LogLevel = env.LogLevel

	c.DashboardAddr = ""
	if !config.Disabled(env.DashboardPort) {
		c.DashboardAddr = env.DashboardAddr()
	}
	c.TelemetryDB = ""
	if !config.Disabled(env.TelemetryDB) {
		c.TelemetryDB = env.TelemetryDB
	}
}

// Validate checks the configuration before anything is opened.
func (c *Config) Validate() error {
	if err := c.Tracking.Arm.Validate(); err != nil {
		return &ConfigError{Field: "Tracking", Message: err.Error()}
	}
	if c.Sim {
		return nil
	}
	switch c.Detector {
	case DetectorMarker, DetectorFace, DetectorObject:
	default:
		return &ConfigError{Field: "Detector", Message: fmt.Sprintf("unknown detector %q (marker, face, object)", c.Detector)}
	}
	if problems := c.Camera.Validate(); len(problems) > 0 {
		return &ConfigError{Field: "Camera", Message: problems[0]}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}

func (c *Config) newDetector() (detection.Detector, error) {
	switch c.Detector {
	case DetectorFace:
		dc := detection.DefaultConfig()
		if c.ModelPath != "" {
			dc.ModelPath = c.ModelPath
		}
		return detection.NewYuNet(dc)
	case DetectorObject:
		oc := detection.DefaultObjectConfig()
		if c.ModelPath != "" {
			oc.ModelPath = c.ModelPath
		}
		return detection.NewObject(oc)
	default:
		return detection.NewMarker(detection.DefaultMarkerConfig()), nil
	}
}
