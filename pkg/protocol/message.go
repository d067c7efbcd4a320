// Package protocol defines the WebSocket message types exchanged between
// the arm process and dashboard clients.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/teslashibe/go-orbitarm/pkg/arm"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Arm → dashboard messages
	TypePose  MessageType = "pose"  // Latest chain pose
	TypeFrame MessageType = "frame" // Rendered frame (JSON form)
	TypeStats MessageType = "stats" // Loop counters
	TypeError MessageType = "error" // Rejected request

	// Dashboard → arm messages
	TypeKey   MessageType = "key"   // Orbit key press ("a" or "d")
	TypeOrbit MessageType = "orbit" // Orbit step or absolute phase

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// =============================================================================
// Arm → Dashboard Message Types
// =============================================================================

// Point is a window coordinate
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FromPoint converts an arm point
func FromPoint(p arm.Point2D) Point {
	return Point{X: p.X, Y: p.Y}
}

// PoseData is one tick of the chain
type PoseData struct {
	Seq       uint64     `json:"seq,omitempty"`
	Shoulder  Point      `json:"shoulder"`
	Elbow     Point      `json:"elbow"`
	Wrist     Point      `json:"wrist"`
	Tip       Point      `json:"tip"`
	Angles    [3]float64 `json:"angles"`
	Reachable bool       `json:"reachable"`
	Smoothed  *Point     `json:"smoothed,omitempty"`
	Orbit     float64    `json:"orbit_deg"`
	Command   *[2]int    `json:"command,omitempty"` // nil when no command went out
}

// FrameData contains a rendered frame
type FrameData struct {
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Format  string `json:"format"` // "webp"
	Data    string `json:"data"`   // base64 encoded
	FrameID uint64 `json:"frame_id,omitempty"`
}

// StatsData mirrors the tracker counters
type StatsData struct {
	Ticks           uint64 `json:"ticks"`
	CommandsSent    uint64 `json:"commands_sent"`
	CommandsDropped uint64 `json:"commands_dropped"`
	Misses          uint64 `json:"misses"`
	Unreachable     uint64 `json:"unreachable"`
	ServoErrors     uint64 `json:"servo_errors"`
}

// ErrorData describes a rejected request
type ErrorData struct {
	Message string `json:"message"`
}

// =============================================================================
// Dashboard → Arm Message Types
// =============================================================================

// Orbit keys
const (
	KeyOrbitForward  = "d"
	KeyOrbitBackward = "a"
)

// KeyData is a key press forwarded from the browser
type KeyData struct {
	Key string `json:"key"`
}

// Direction maps the key to an orbit step: +1, -1 or 0 for other keys
func (k KeyData) Direction() int {
	switch k.Key {
	case KeyOrbitForward:
		return 1
	case KeyOrbitBackward:
		return -1
	default:
		return 0
	}
}

// OrbitData either steps the orbit or sets it. Degrees wins when both are set.
type OrbitData struct {
	Step    *int     `json:"step,omitempty"`
	Degrees *float64 `json:"degrees,omitempty"`
}

// Validate checks that exactly one usable field is present
func (o OrbitData) Validate() error {
	if o.Degrees == nil && o.Step == nil {
		return fmt.Errorf("orbit request needs step or degrees")
	}
	if o.Degrees == nil && *o.Step != 1 && *o.Step != -1 {
		return fmt.Errorf("orbit step must be 1 or -1, got %d", *o.Step)
	}
	return nil
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
