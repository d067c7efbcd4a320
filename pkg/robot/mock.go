package robot

import (
	"bytes"
	"errors"
	"strings"
	"sync"
)

// MockPort implements SerialPorter for testing. It captures writes and can
// be told to fail.
type MockPort struct {
	mu sync.Mutex

	written bytes.Buffer

	// WriteError is returned by the next Write call if set
	WriteError error

	// CloseError is returned by Close if set
	CloseError error

	Closed     bool
	WriteCalls int
}

// NewMockPort creates an empty mock port
func NewMockPort() *MockPort {
	return &MockPort{}
}

// Read reports EOF-like emptiness; the servo controller never answers
func (m *MockPort) Read(p []byte) (int, error) {
	return 0, nil
}

// Write captures p
func (m *MockPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteCalls++
	if m.Closed {
		return 0, errors.New("mock port closed")
	}
	if m.WriteError != nil {
		err := m.WriteError
		m.WriteError = nil
		return 0, err
	}
	return m.written.Write(p)
}

// Close marks the port as closed
func (m *MockPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return m.CloseError
}

// Written returns everything written so far
func (m *MockPort) Written() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.written.String()
}

// Lines returns the written data split into command lines
func (m *MockPort) Lines() []string {
	s := strings.TrimSuffix(m.Written(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
