package arm

import "math"

// Servo range accepted by the actuators, in whole degrees
const (
	ServoMin = 0
	ServoMax = 180
)

// ActuatorCommand is the pair of servo angles sent for one tick
type ActuatorCommand struct {
	Angle1 int `json:"angle1"`
	Angle2 int `json:"angle2"`
}

// NewActuatorCommand rounds the first two joint angles and reports whether
// both fall inside the servo range. Out-of-range angles are not clamped;
// the caller skips emission for that tick.
func NewActuatorCommand(angles JointAngles) (ActuatorCommand, bool) {
	cmd := ActuatorCommand{
		Angle1: roundAngle(angles.Angle1),
		Angle2: roundAngle(angles.Angle2),
	}
	return cmd, InServoRange(cmd.Angle1) && InServoRange(cmd.Angle2)
}

// InServoRange reports whether a rounded angle can be sent to a servo
func InServoRange(deg int) bool {
	return deg >= ServoMin && deg <= ServoMax
}

// roundAngle rounds half to even.
func roundAngle(deg float64) int {
	return int(math.RoundToEven(deg))
}
