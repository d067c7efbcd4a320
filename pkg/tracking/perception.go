package tracking

import (
	"context"
	"fmt"
	"sync"

	"github.com/teslashibe/go-orbitarm/internal/log"
	"github.com/teslashibe/go-orbitarm/pkg/arm"
	"github.com/teslashibe/go-orbitarm/pkg/tracking/detection"
)

// VideoSource interface for capturing frames
type VideoSource interface {
	CaptureJPEG() ([]byte, error)
}

// CameraSource turns camera frames into window-space pointer positions
type CameraSource struct {
	video    VideoSource
	detector detection.Detector
	mapper   arm.InputMapper

	missLogThreshold int

	mu                sync.Mutex
	consecutiveMisses int
	lastValid         arm.Point2D
	hasLastValid      bool
}

// NewCameraSource creates a pointer source over a camera and detector
func NewCameraSource(config Config, video VideoSource, detector detection.Detector) *CameraSource {
	return &CameraSource{
		video:            video,
		detector:         detector,
		mapper:           arm.NewInputMapper(config.Arm),
		missLogThreshold: config.MissLogThreshold,
	}
}

// Next captures one frame and returns the best detection mapped to window
// coordinates. A frame without detections is a miss, not an error.
func (c *CameraSource) Next(ctx context.Context) (arm.Point2D, bool, error) {
	if err := ctx.Err(); err != nil {
		return arm.Point2D{}, false, err
	}
	if c.video == nil || c.detector == nil {
		return arm.Point2D{}, false, ErrNoCamera
	}

	frame, err := c.video.CaptureJPEG()
	if err != nil {
		c.miss()
		return arm.Point2D{}, false, fmt.Errorf("capture frame: %w", err)
	}

	dets, err := c.detector.Detect(frame)
	if err != nil {
		c.miss()
		return arm.Point2D{}, false, fmt.Errorf("detect pointer: %w", err)
	}

	best := detection.SelectBest(dets)
	if best == nil {
		c.miss()
		return arm.Point2D{}, false, nil
	}

	cx, cy := best.Center()
	p := c.mapper.Map(clamp01(cx), clamp01(cy))

	c.mu.Lock()
	if c.consecutiveMisses >= c.missLogThreshold && c.missLogThreshold > 0 {
		log.Info("pointer reacquired", "after_misses", c.consecutiveMisses)
	}
	c.consecutiveMisses = 0
	c.lastValid = p
	c.hasLastValid = true
	c.mu.Unlock()

	return p, true, nil
}

func (c *CameraSource) miss() {
	c.mu.Lock()
	c.consecutiveMisses++
	n := c.consecutiveMisses
	c.mu.Unlock()

	if n == c.missLogThreshold {
		log.Info("pointer lost", "consecutive_misses", n)
	}
}

// ConsecutiveMisses returns how many frames in a row had no pointer
func (c *CameraSource) ConsecutiveMisses() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.consecutiveMisses
}

// LastValid returns the last detected pointer position
func (c *CameraSource) LastValid() (arm.Point2D, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastValid, c.hasLastValid
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
