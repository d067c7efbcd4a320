package tracking

import "errors"

var (
	// ErrNoCamera is returned by CameraSource when it has no video or detector
	ErrNoCamera = errors.New("tracking: no camera or detector")

	// ErrOrbitQueueFull is returned when orbit events arrive faster than ticks
	ErrOrbitQueueFull = errors.New("tracking: orbit queue full")
)
