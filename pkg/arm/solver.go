package arm

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// JointAngles are the chain rotations in degrees, each in [0, 360).
// Angle1 is absolute; Angle2 and Angle3 are relative to the summed
// orientation of the segments before them.
type JointAngles struct {
	Angle1 float64 `json:"angle1"`
	Angle2 float64 `json:"angle2"`
	Angle3 float64 `json:"angle3"`
}

// Pose is the chain configuration produced by one solve
type Pose struct {
	Shoulder  Point2D     `json:"shoulder"`
	Elbow     Point2D     `json:"elbow"`
	Wrist     Point2D     `json:"wrist"`
	Tip       Point2D     `json:"tip"`
	Angles    JointAngles `json:"angles"`
	Reachable bool        `json:"reachable"` // false when the elbow fell back to its previous position
}

// Joints returns the four chain points in order, shoulder first
func (p Pose) Joints() [4]Point2D {
	return [4]Point2D{p.Shoulder, p.Elbow, p.Wrist, p.Tip}
}

// ChainSolver places the joints of the chain for a target point.
//
// The elbow is the +h intersection of two circles of radius segmentLength
// around shoulder and target. The wrist sits on the target itself, so the
// elbow-wrist distance is not constrained. Each solve is independent of the
// previous one except for the fallback elbow used when the target cannot be
// reached.
type ChainSolver struct {
	segmentLength float64
	tipLength     float64
	minReach      float64

	lastElbow Point2D
}

// NewChainSolver creates a solver whose fallback elbow starts straight out
// along +x from shoulder.
func NewChainSolver(cfg Config) *ChainSolver {
	return &ChainSolver{
		segmentLength: cfg.SegmentLength,
		tipLength:     cfg.TipLength,
		minReach:      cfg.MinReach,
		lastElbow:     r2.Add(cfg.Shoulder, r2.Vec{X: cfg.SegmentLength}),
	}
}

// FindElbow returns a point segmentLength away from shoulder on the
// perpendicular bisector of shoulder-target. When the target is farther
// than twice the segment length, or too close to give a direction, the
// previous elbow is returned with ok=false.
func (s *ChainSolver) FindElbow(shoulder, target Point2D) (elbow Point2D, ok bool) {
	delta := r2.Sub(target, shoulder)
	d := r2.Norm(delta)
	if d > 2*s.segmentLength || d <= s.minReach || math.IsNaN(d) {
		return s.lastElbow, false
	}

	// Equal radii reduce a = (r1²-r2²+d²)/2d to d/2
	a := d / 2
	h := math.Sqrt(math.Max(0, s.segmentLength*s.segmentLength-a*a))

	u := r2.Scale(1/d, delta)
	elbow = r2.Add(shoulder, r2.Add(r2.Scale(a, u), r2.Scale(h, perp(u))))

	s.lastElbow = elbow
	return elbow, true
}

// Solve computes the full pose for target with the tip pointing away from
// the orbit direction.
func (s *ChainSolver) Solve(shoulder, target Point2D, orbitOffsetDeg float64) Pose {
	elbow, ok := s.FindElbow(shoulder, target)
	wrist := target
	tip := r2.Sub(wrist, r2.Scale(s.tipLength, Direction(orbitOffsetDeg)))

	return Pose{
		Shoulder:  shoulder,
		Elbow:     elbow,
		Wrist:     wrist,
		Tip:       tip,
		Angles:    ChainAngles(shoulder, elbow, wrist, tip),
		Reachable: ok,
	}
}

// ChainAngles derives the joint angles of the chain through four points
func ChainAngles(shoulder, elbow, wrist, tip Point2D) JointAngles {
	a1 := Heading(shoulder, elbow)
	a2 := NormalizeDegrees(Heading(elbow, wrist) - a1)
	a3 := NormalizeDegrees(Heading(wrist, tip) - a1 - a2)
	return JointAngles{Angle1: a1, Angle2: a2, Angle3: a3}
}
