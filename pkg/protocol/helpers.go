package protocol

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/teslashibe/go-orbitarm/pkg/arm"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewPoseData converts a pose; the command is included only when sent
func NewPoseData(pose arm.Pose, cmd arm.ActuatorCommand, sent bool) PoseData {
	d := PoseData{
		Shoulder:  FromPoint(pose.Shoulder),
		Elbow:     FromPoint(pose.Elbow),
		Wrist:     FromPoint(pose.Wrist),
		Tip:       FromPoint(pose.Tip),
		Angles:    [3]float64{pose.Angles.Angle1, pose.Angles.Angle2, pose.Angles.Angle3},
		Reachable: pose.Reachable,
	}
	if sent {
		d.Command = &[2]int{cmd.Angle1, cmd.Angle2}
	}
	return d
}

// NewPoseMessage creates a pose message
func NewPoseMessage(data PoseData) (*Message, error) {
	return NewMessage(TypePose, data)
}

// NewFrameMessage creates a frame message from WebP data
func NewFrameMessage(width, height int, webpData []byte, frameID uint64) (*Message, error) {
	return NewMessage(TypeFrame, FrameData{
		Width:   width,
		Height:  height,
		Format:  "webp",
		Data:    base64.StdEncoding.EncodeToString(webpData),
		FrameID: frameID,
	})
}

// NewStatsMessage creates a stats message
func NewStatsMessage(stats StatsData) (*Message, error) {
	return NewMessage(TypeStats, stats)
}

// NewErrorMessage creates an error message
func NewErrorMessage(format string, args ...interface{}) (*Message, error) {
	return NewMessage(TypeError, ErrorData{Message: fmt.Sprintf(format, args...)})
}

// NewKeyMessage creates a key press message
func NewKeyMessage(key string) (*Message, error) {
	return NewMessage(TypeKey, KeyData{Key: key})
}

// NewOrbitStepMessage creates an orbit step message
func NewOrbitStepMessage(step int) (*Message, error) {
	return NewMessage(TypeOrbit, OrbitData{Step: &step})
}

// NewOrbitSetMessage creates an absolute orbit message
func NewOrbitSetMessage(deg float64) (*Message, error) {
	return NewMessage(TypeOrbit, OrbitData{Degrees: &deg})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
	})
}

// NewPongMessage creates a pong reply to a ping
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetPoseData extracts pose data from a message
func (m *Message) GetPoseData() (*PoseData, error) {
	if m.Type != TypePose {
		return nil, fmt.Errorf("expected pose message, got %s", m.Type)
	}
	var data PoseData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetFrameData extracts frame data from a message
func (m *Message) GetFrameData() (*FrameData, error) {
	if m.Type != TypeFrame {
		return nil, fmt.Errorf("expected frame message, got %s", m.Type)
	}
	var data FrameData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// DecodeFrameData decodes the base64 frame bytes
func (f *FrameData) DecodeFrameData() ([]byte, error) {
	return base64.StdEncoding.DecodeString(f.Data)
}

// GetKeyData extracts a key press from a message
func (m *Message) GetKeyData() (*KeyData, error) {
	if m.Type != TypeKey {
		return nil, fmt.Errorf("expected key message, got %s", m.Type)
	}
	var data KeyData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetOrbitData extracts and validates an orbit request
func (m *Message) GetOrbitData() (*OrbitData, error) {
	if m.Type != TypeOrbit {
		return nil, fmt.Errorf("expected orbit message, got %s", m.Type)
	}
	var data OrbitData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	if m.Type != TypePing {
		return nil, fmt.Errorf("expected ping message, got %s", m.Type)
	}
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
