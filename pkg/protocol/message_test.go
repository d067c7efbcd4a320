package protocol

import (
	"encoding/json"
	"testing"

	"github.com/teslashibe/go-orbitarm/pkg/arm"
)

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		msgType MessageType
		data    interface{}
		wantErr bool
	}{
		{"pose message", TypePose, PoseData{Reachable: true}, false},
		{"key message", TypeKey, KeyData{Key: "a"}, false},
		{"nil data", TypePing, nil, false},
		{"unmarshalable data", TypeStats, make(chan int), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.msgType, tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if msg.Type != tt.msgType {
				t.Errorf("NewMessage() type = %v, want %v", msg.Type, tt.msgType)
			}
			if msg.Timestamp == 0 {
				t.Error("NewMessage() timestamp should be set")
			}
		})
	}
}

func TestPoseMessage(t *testing.T) {
	pose := arm.RestPose(arm.DefaultConfig())
	cmd, ok := arm.NewActuatorCommand(pose.Angles)

	msg, err := NewPoseMessage(NewPoseData(pose, cmd, ok))
	if err != nil {
		t.Fatal(err)
	}
	raw, err := msg.Bytes()
	if err != nil {
		t.Fatal(err)
	}

	parsed, err := ParseMessage(raw)
	if err != nil {
		t.Fatal(err)
	}
	data, err := parsed.GetPoseData()
	if err != nil {
		t.Fatal(err)
	}

	if data.Elbow != (Point{X: 500, Y: 400}) || data.Tip != (Point{X: 620, Y: 400}) {
		t.Errorf("unexpected joints %+v", data)
	}
	if data.Command == nil || *data.Command != [2]int{0, 0} {
		t.Errorf("expected command [0 0], got %v", data.Command)
	}

	if _, err := parsed.GetKeyData(); err == nil {
		t.Error("expected type mismatch error")
	}
}

func TestPoseData_OmitsDroppedCommand(t *testing.T) {
	d := NewPoseData(arm.Pose{}, arm.ActuatorCommand{Angle1: 300}, false)
	raw, _ := json.Marshal(d)

	var m map[string]interface{}
	json.Unmarshal(raw, &m)
	if _, ok := m["command"]; ok {
		t.Errorf("dropped command should be omitted: %s", raw)
	}
}

func TestKeyDirection(t *testing.T) {
	tests := []struct {
		key  string
		want int
	}{
		{"d", 1},
		{"a", -1},
		{"w", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := (KeyData{Key: tt.key}).Direction(); got != tt.want {
			t.Errorf("Direction(%q) = %d, want %d", tt.key, got, tt.want)
		}
	}
}

func TestKeyMessageFromBrowser(t *testing.T) {
	msg, err := ParseMessage([]byte(`{"type":"key","data":{"key":"d"}}`))
	if err != nil {
		t.Fatal(err)
	}
	key, err := msg.GetKeyData()
	if err != nil {
		t.Fatal(err)
	}
	if key.Direction() != 1 {
		t.Errorf("expected forward step, got %d", key.Direction())
	}
}

func TestOrbitData_Validate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"step forward", `{"step":1}`, false},
		{"step back", `{"step":-1}`, false},
		{"degrees", `{"degrees":-90.5}`, false},
		{"degrees wins", `{"step":5,"degrees":10}`, false},
		{"big step", `{"step":2}`, true},
		{"empty", `{}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var o OrbitData
			if err := json.Unmarshal([]byte(tt.body), &o); err != nil {
				t.Fatal(err)
			}
			if err := o.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOrbitMessages(t *testing.T) {
	step, _ := NewOrbitStepMessage(-1)
	d, err := step.GetOrbitData()
	if err != nil || d.Step == nil || *d.Step != -1 {
		t.Errorf("step message: %+v, %v", d, err)
	}

	set, _ := NewOrbitSetMessage(45)
	d, err = set.GetOrbitData()
	if err != nil || d.Degrees == nil || *d.Degrees != 45 {
		t.Errorf("set message: %+v, %v", d, err)
	}
}

func TestFrameMessage(t *testing.T) {
	payload := []byte("RIFF....WEBP")
	msg, err := NewFrameMessage(400, 400, payload, 7)
	if err != nil {
		t.Fatal(err)
	}

	frame, err := msg.GetFrameData()
	if err != nil {
		t.Fatal(err)
	}
	if frame.Format != "webp" || frame.FrameID != 7 {
		t.Errorf("unexpected frame %+v", frame)
	}
	decoded, err := frame.DecodeFrameData()
	if err != nil || string(decoded) != string(payload) {
		t.Errorf("decoded %q, %v", decoded, err)
	}
}

func TestPingPong(t *testing.T) {
	ping, _ := NewPingMessage("abc")
	p, err := ping.GetPingData()
	if err != nil || p.ID != "abc" {
		t.Fatalf("ping: %+v, %v", p, err)
	}

	pong, _ := NewPongMessage(p.ID, 1000, 1025)
	var data PongData
	if err := pong.ParseData(&data); err != nil {
		t.Fatal(err)
	}
	if data.LatencyMs != 25 {
		t.Errorf("latency = %d, want 25", data.LatencyMs)
	}
}

func TestParseInvalidMessage(t *testing.T) {
	for _, in := range []string{"", "not json", `{"data":{}}`, `[1,2]`} {
		if _, err := ParseMessage([]byte(in)); err == nil {
			t.Errorf("ParseMessage(%q) expected error", in)
		}
	}
}
