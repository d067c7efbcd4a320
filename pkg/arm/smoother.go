package arm

import "gonum.org/v1/gonum/spatial/r2"

// PositionSmoother applies an exponential moving average to the raw pointer
type PositionSmoother struct {
	alpha    float64 // 0-1, higher = more weight on new reading
	smoothed Point2D
}

// NewPositionSmoother creates a smoother starting at initial
func NewPositionSmoother(alpha float64, initial Point2D) *PositionSmoother {
	return &PositionSmoother{
		alpha:    alpha,
		smoothed: initial,
	}
}

// Smooth folds a raw sample into the average and returns the new value.
// smoothed' = α·raw + (1-α)·smoothed, per axis.
func (s *PositionSmoother) Smooth(raw Point2D) Point2D {
	s.smoothed = r2.Add(r2.Scale(s.alpha, raw), r2.Scale(1-s.alpha, s.smoothed))
	return s.smoothed
}

// Value returns the current smoothed position without updating it
func (s *PositionSmoother) Value() Point2D {
	return s.smoothed
}

// Reset moves the smoothed position to p
func (s *PositionSmoother) Reset(p Point2D) {
	s.smoothed = p
}
