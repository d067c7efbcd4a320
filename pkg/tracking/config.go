package tracking

import (
	"time"

	"github.com/teslashibe/go-orbitarm/pkg/arm"
)

// Config holds all tunable parameters for the pointer-following loop
type Config struct {
	// Arm geometry, smoothing and tick rate
	Arm arm.Config

	// Perception
	MissLogThreshold int // Log once after this many consecutive misses

	// Actuators
	ServoErrorLogInterval time.Duration // Minimum time between servo error logs

	// Orbit input
	OrbitQueueSize int // Pending orbit events before new ones are dropped

	// Logging
	HeartbeatTicks uint64 // Log a stats line every N ticks (0 disables)
}

// DefaultConfig returns the recommended configuration
func DefaultConfig() Config {
	return Config{
		Arm:                   arm.DefaultConfig(),
		MissLogThreshold:      5,
		ServoErrorLogInterval: 5 * time.Second,
		OrbitQueueSize:        64,
		HeartbeatTicks:        600, // every 10s at 60 FPS
	}
}

// SmoothConfig trades responsiveness for steadier servos
func SmoothConfig() Config {
	cfg := DefaultConfig()
	cfg.Arm = arm.SmoothConfig()
	return cfg
}

// ResponsiveConfig follows the pointer closely
func ResponsiveConfig() Config {
	cfg := DefaultConfig()
	cfg.Arm = arm.ResponsiveConfig()
	return cfg
}

// Preset returns a named configuration ("default", "smooth", "responsive")
func Preset(name string) (Config, bool) {
	switch name {
	case "", "default":
		return DefaultConfig(), true
	case "smooth":
		return SmoothConfig(), true
	case "responsive":
		return ResponsiveConfig(), true
	default:
		return Config{}, false
	}
}
