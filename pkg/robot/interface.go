// Package robot drives the arm's servo controller.
//
// Interfaces are kept small so that consumers depend only on what they
// use: the tick loop needs ServoWriter, the binaries need ServoController.
package robot

import "io"

// ServoWriter sends one pair of joint angles in whole degrees.
type ServoWriter interface {
	SetServoAngles(angle1, angle2 int) error
}

// ServoController is a servo link that owns a resource.
type ServoController interface {
	ServoWriter
	io.Closer
}

// SerialPorter is the minimal serial port surface the servo link needs.
// go.bug.st/serial ports satisfy it; tests use MockPort.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}

// Ensure implementations satisfy ServoController
var (
	_ ServoController = (*SerialServo)(nil)
	_ ServoController = (*DisabledServo)(nil)
	_ ServoController = (*RateController)(nil)
)
