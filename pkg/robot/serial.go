package robot

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/teslashibe/go-orbitarm/internal/log"
	"github.com/teslashibe/go-orbitarm/pkg/arm"
	"go.bug.st/serial"
)

var (
	// ErrAngleOutOfRange is returned for angles the servos cannot reach
	ErrAngleOutOfRange = errors.New("robot: servo angle out of range")

	// ErrPortClosed is returned after Close
	ErrPortClosed = errors.New("robot: serial port closed")
)

// SerialServo writes "<a1> <a2>\n" in ASCII to the servo controller.
type SerialServo struct {
	port SerialPorter

	mu     sync.Mutex
	buf    []byte
	writes uint64
	closed bool
}

// Open opens the serial device at path and returns a servo link on it.
func Open(path string, opts PortOptions) (*SerialServo, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, fmt.Errorf("serial options: %w", err)
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", path, err)
	}

	log.Info("servo link open", "port", path, "baud", mode.BaudRate)
	return NewSerialServo(port), nil
}

// NewSerialServo wraps an already open port.
func NewSerialServo(port SerialPorter) *SerialServo {
	return &SerialServo{port: port, buf: make([]byte, 0, 16)}
}

// SetServoAngles writes one command line. Both angles must be in the
// servo range; nothing is written otherwise.
func (s *SerialServo) SetServoAngles(angle1, angle2 int) error {
	if !arm.InServoRange(angle1) || !arm.InServoRange(angle2) {
		return fmt.Errorf("%w: (%d, %d)", ErrAngleOutOfRange, angle1, angle2)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrPortClosed
	}

	line := EncodeCommand(s.buf[:0], angle1, angle2)
	if _, err := s.port.Write(line); err != nil {
		return fmt.Errorf("write servo command: %w", err)
	}
	s.buf = line
	s.writes++
	return nil
}

// Writes returns how many commands reached the port
func (s *SerialServo) Writes() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Close closes the port. Further writes fail with ErrPortClosed.
func (s *SerialServo) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.port.Close()
}

// EncodeCommand appends the wire form of one command to dst.
func EncodeCommand(dst []byte, angle1, angle2 int) []byte {
	dst = strconv.AppendInt(dst, int64(angle1), 10)
	dst = append(dst, ' ')
	dst = strconv.AppendInt(dst, int64(angle2), 10)
	return append(dst, '\n')
}
