package robot

import "sync/atomic"

// DisabledServo is a no-op servo link used when no port is configured or
// the port failed to open. The loop keeps running without hardware.
type DisabledServo struct {
	last    atomic.Value // [2]int
	ignored atomic.Uint64
}

// NewDisabledServo creates a no-op servo link
func NewDisabledServo() *DisabledServo {
	return &DisabledServo{}
}

// SetServoAngles records the command and discards it
func (d *DisabledServo) SetServoAngles(angle1, angle2 int) error {
	d.last.Store([2]int{angle1, angle2})
	d.ignored.Add(1)
	return nil
}

// Last returns the most recent discarded command
func (d *DisabledServo) Last() ([2]int, bool) {
	v, ok := d.last.Load().([2]int)
	return v, ok
}

// Ignored returns how many commands were discarded
func (d *DisabledServo) Ignored() uint64 {
	return d.ignored.Load()
}

// Close is a no-op
func (d *DisabledServo) Close() error {
	return nil
}
