package arm

import "gonum.org/v1/gonum/spatial/r2"

// ArmController runs one control tick at a time:
// raw -> smoother -> orbit projection -> chain solve -> actuator command.
//
// It owns the smoothing and orbit state. It is not safe for concurrent use;
// hosts with several goroutines must serialize calls.
type ArmController struct {
	cfg       Config
	smoother  *PositionSmoother
	projector OrbitProjector
	solver    *ChainSolver
	orbit     *OrbitState

	pose      Pose
	command   ActuatorCommand
	commandOK bool
	ticks     uint64
}

// NewArmController validates cfg and builds a controller resting in a
// straight line along +x.
func NewArmController(cfg Config) (*ArmController, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &ArmController{
		cfg:       cfg,
		smoother:  NewPositionSmoother(cfg.Smoothing, cfg.InitialSmoothed),
		projector: NewOrbitProjector(cfg.TipLength),
		solver:    NewChainSolver(cfg),
		orbit:     NewOrbitState(cfg.OrbitStep),
	}
	c.pose = RestPose(cfg)
	c.command, c.commandOK = NewActuatorCommand(c.pose.Angles)
	return c, nil
}

// RestPose is the fully extended chain pointing along +x from the shoulder
func RestPose(cfg Config) Pose {
	elbow := r2.Add(cfg.Shoulder, r2.Vec{X: cfg.SegmentLength})
	wrist := r2.Add(elbow, r2.Vec{X: cfg.SegmentLength})
	tip := r2.Add(wrist, r2.Vec{X: cfg.TipLength})
	return Pose{
		Shoulder:  cfg.Shoulder,
		Elbow:     elbow,
		Wrist:     wrist,
		Tip:       tip,
		Angles:    ChainAngles(cfg.Shoulder, elbow, wrist, tip),
		Reachable: true,
	}
}

// Tick consumes one raw pointer sample. The returned bool reports whether
// the command is inside the servo range and should be emitted.
// A NaN or infinite sample is treated as a Hold so it never enters the
// smoothed state.
func (c *ArmController) Tick(raw Point2D, orbitRotationDeg float64) (Pose, ActuatorCommand, bool) {
	if !finite(raw) {
		return c.Hold()
	}

	smoothed := c.smoother.Smooth(raw)
	target := c.projector.Project(smoothed, c.cfg.HoverDistance, orbitRotationDeg)

	c.pose = c.solver.Solve(c.cfg.Shoulder, target, orbitRotationDeg)
	c.command, c.commandOK = NewActuatorCommand(c.pose.Angles)
	c.ticks++

	return c.pose, c.command, c.commandOK
}

// Hold is a tick without a new sample: smoothing and pose stay as they are
// and the previous command decision is repeated.
func (c *ArmController) Hold() (Pose, ActuatorCommand, bool) {
	return c.pose, c.command, c.commandOK
}

// Retune changes the smoothing factor, hover distance and orbit step.
// The smoothed position, orbit phase and pose are kept; the new values
// apply from the next Tick.
func (c *ArmController) Retune(smoothing, hoverDistance, orbitStep float64) error {
	cfg := c.cfg
	cfg.Smoothing = smoothing
	cfg.HoverDistance = hoverDistance
	cfg.OrbitStep = orbitStep
	if err := cfg.Validate(); err != nil {
		return err
	}

	c.cfg = cfg
	c.smoother.alpha = smoothing
	c.orbit.step = orbitStep
	return nil
}

// Pose returns the most recent pose
func (c *ArmController) Pose() Pose {
	return c.pose
}

// Smoothed returns the current smoothed pointer position
func (c *ArmController) Smoothed() Point2D {
	return c.smoother.Value()
}

// Orbit returns the orbit state owned by this controller
func (c *ArmController) Orbit() *OrbitState {
	return c.orbit
}

// Config returns the configuration the controller was built with
func (c *ArmController) Config() Config {
	return c.cfg
}

// Ticks returns how many samples have been processed
func (c *ArmController) Ticks() uint64 {
	return c.ticks
}
