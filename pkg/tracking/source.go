package tracking

import (
	"context"
	"math"
	"sync"

	"github.com/teslashibe/go-orbitarm/pkg/arm"
)

// PointerSource supplies at most one pointer position per tick.
// ok=false means nothing was seen this tick; the loop then holds its pose.
type PointerSource interface {
	Next(ctx context.Context) (p arm.Point2D, ok bool, err error)
}

// Sample is one scripted pointer reading
type Sample struct {
	Point arm.Point2D
	OK    bool
}

// Seen is shorthand for a sample with a pointer
func Seen(x, y float64) Sample {
	return Sample{Point: arm.Pt(x, y), OK: true}
}

// Missed is a sample without a pointer
var Missed = Sample{}

// ScriptedSource replays a fixed list of samples, then reports misses
type ScriptedSource struct {
	mu      sync.Mutex
	samples []Sample
	next    int
	loop    bool
}

// NewScriptedSource creates a source that plays samples once
func NewScriptedSource(samples ...Sample) *ScriptedSource {
	return &ScriptedSource{samples: samples}
}

// Loop makes the source start over after the last sample
func (s *ScriptedSource) Loop() *ScriptedSource {
	s.mu.Lock()
	s.loop = true
	s.mu.Unlock()
	return s
}

// Next returns the next scripted sample
func (s *ScriptedSource) Next(ctx context.Context) (arm.Point2D, bool, error) {
	if err := ctx.Err(); err != nil {
		return arm.Point2D{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.next >= len(s.samples) {
		if !s.loop || len(s.samples) == 0 {
			return arm.Point2D{}, false, nil
		}
		s.next = 0
	}
	smp := s.samples[s.next]
	s.next++
	return smp.Point, smp.OK, nil
}

// CircleSource moves a synthetic pointer around a circle, one step per tick.
// It stands in for the camera in simulation mode.
type CircleSource struct {
	Center arm.Point2D
	Radius float64
	Period int // Ticks per revolution

	mu   sync.Mutex
	tick int
}

// NewCircleSource creates a synthetic pointer source
func NewCircleSource(center arm.Point2D, radius float64, period int) *CircleSource {
	if period <= 0 {
		period = 1
	}
	return &CircleSource{Center: center, Radius: radius, Period: period}
}

// Next returns the next point on the circle
func (c *CircleSource) Next(ctx context.Context) (arm.Point2D, bool, error) {
	if err := ctx.Err(); err != nil {
		return arm.Point2D{}, false, err
	}

	c.mu.Lock()
	theta := 2 * math.Pi * float64(c.tick) / float64(c.Period)
	c.tick++
	c.mu.Unlock()

	return arm.Pt(
		c.Center.X+c.Radius*math.Cos(theta),
		c.Center.Y+c.Radius*math.Sin(theta),
	), true, nil
}
