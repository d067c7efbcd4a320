package arm

import "gonum.org/v1/gonum/spatial/r2"

// OrbitProjector places the chain target on a circle around a base point.
// The radius includes the tip length so that the tip, which points back
// towards the base, ends up orbitDistance away from it.
type OrbitProjector struct {
	tipLength float64
}

// NewOrbitProjector creates a projector for a chain with the given tip length
func NewOrbitProjector(tipLength float64) OrbitProjector {
	return OrbitProjector{tipLength: tipLength}
}

// Project returns base + (orbitDistance + tipLength)·(cos θ, sin θ).
func (o OrbitProjector) Project(base Point2D, orbitDistance, orbitOffsetDeg float64) Point2D {
	return r2.Add(base, r2.Scale(orbitDistance+o.tipLength, Direction(orbitOffsetDeg)))
}

// OrbitState is the externally adjusted orbit phase.
// The value is not wrapped; trig makes any value valid.
type OrbitState struct {
	degrees float64
	step    float64
}

// NewOrbitState creates an orbit starting at 0° that moves step degrees per event
func NewOrbitState(step float64) *OrbitState {
	return &OrbitState{step: step}
}

// Step moves the orbit by one increment in the sign of dir (0 is a no-op)
func (o *OrbitState) Step(dir int) float64 {
	switch {
	case dir > 0:
		o.degrees += o.step
	case dir < 0:
		o.degrees -= o.step
	}
	return o.degrees
}

// Set replaces the orbit phase
func (o *OrbitState) Set(deg float64) {
	o.degrees = deg
}

// Degrees returns the current orbit phase
func (o *OrbitState) Degrees() float64 {
	return o.degrees
}
