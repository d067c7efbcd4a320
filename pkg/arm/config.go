package arm

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r2"
)

// Config holds the fixed geometry and tunable parameters of the arm
type Config struct {
	// Geometry
	Shoulder      Point2D // Fixed base joint of the chain
	SegmentLength float64 // Length of segments 1 and 2
	TipLength     float64 // Length of segment 3 (end-effector)

	// Orbit
	HoverDistance float64 // Distance the tip hovers from the tracked point
	OrbitStep     float64 // Degrees applied per orbit key event

	// Smoothing
	Smoothing       float64 // EMA alpha in (0,1], higher = more weight on new reading
	InitialSmoothed Point2D // Smoothed position before the first sample

	// Solver
	MinReach float64 // Targets at or closer than this to the shoulder fall back

	// Input mapping (normalized pointer -> window coordinates)
	WindowWidth  float64
	WindowHeight float64
	MirrorX      bool // Flip horizontally so the arm moves like a mirror image
	MirrorY      bool

	// Loop
	TickInterval time.Duration
}

// DefaultConfig returns the configuration the arm was tuned with
func DefaultConfig() Config {
	return Config{
		// Geometry - 800x800 workspace, shoulder in the middle
		Shoulder:      r2.Vec{X: 400, Y: 400},
		SegmentLength: 100,
		TipLength:     20,

		// Orbit - tip hovers 15px off the fingertip, 4° per key press
		HoverDistance: 15,
		OrbitStep:     4,

		// Smoothing - 20% new, 80% old
		Smoothing:       0.2,
		InitialSmoothed: r2.Vec{X: 400, Y: 400},

		MinReach: 1e-9,

		WindowWidth:  800,
		WindowHeight: 800,
		MirrorX:      true,

		TickInterval: time.Second / 60, // 60 FPS
	}
}

// SmoothConfig returns a configuration for slower, steadier motion
func SmoothConfig() Config {
	cfg := DefaultConfig()
	cfg.Smoothing = 0.1
	return cfg
}

// ResponsiveConfig returns a configuration that follows the pointer closely
func ResponsiveConfig() Config {
	cfg := DefaultConfig()
	cfg.Smoothing = 0.5
	cfg.OrbitStep = 6
	return cfg
}

// Validate reports the first invalid parameter, if any
func (c Config) Validate() error {
	if !(c.Smoothing > 0 && c.Smoothing <= 1) {
		return fmt.Errorf("%w: smoothing %v not in (0,1]", ErrInvalidConfig, c.Smoothing)
	}
	if !(c.SegmentLength > 0) {
		return fmt.Errorf("%w: segment length %v must be positive", ErrInvalidConfig, c.SegmentLength)
	}
	if !(c.TipLength > 0) {
		return fmt.Errorf("%w: tip length %v must be positive", ErrInvalidConfig, c.TipLength)
	}
	if !(c.HoverDistance >= 0) {
		return fmt.Errorf("%w: hover distance %v must be non-negative", ErrInvalidConfig, c.HoverDistance)
	}
	if !(c.MinReach >= 0) {
		return fmt.Errorf("%w: min reach %v must be non-negative", ErrInvalidConfig, c.MinReach)
	}
	if !(c.WindowWidth > 0 && c.WindowHeight > 0) {
		return fmt.Errorf("%w: window %vx%v must be positive", ErrInvalidConfig, c.WindowWidth, c.WindowHeight)
	}
	if !finite(c.Shoulder) || !finite(c.InitialSmoothed) {
		return fmt.Errorf("%w: shoulder and initial smoothed point must be finite", ErrInvalidConfig)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("%w: tick interval %v must be positive", ErrInvalidConfig, c.TickInterval)
	}
	return nil
}

// MaxReach is the farthest target distance the elbow solve accepts
func (c Config) MaxReach() float64 {
	return 2 * c.SegmentLength
}

func finite(p Point2D) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}
