package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/go-orbitarm/pkg/arm"
	"github.com/teslashibe/go-orbitarm/pkg/protocol"
	"github.com/teslashibe/go-orbitarm/pkg/telemetry"
	"github.com/teslashibe/go-orbitarm/pkg/tracking"
)

type fakeTracker struct {
	mu       sync.Mutex
	snap     tracking.Snapshot
	stats    tracking.Stats
	steps    []int
	sets     []float64
	queueErr error
	tuning   tracking.TuningParams
}

func (f *fakeTracker) Snapshot() tracking.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeTracker) Stats() tracking.Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}

func (f *fakeTracker) StepOrbit(dir int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queueErr != nil {
		return f.queueErr
	}
	f.steps = append(f.steps, dir)
	return nil
}

func (f *fakeTracker) SetOrbit(deg float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queueErr != nil {
		return f.queueErr
	}
	f.sets = append(f.sets, deg)
	return nil
}

func (f *fakeTracker) GetTuningParams() tracking.TuningParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tuning
}

func (f *fakeTracker) SetTuningParams(p tracking.TuningParams) (tracking.TuningParams, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.Smoothing > 1 {
		return f.tuning, errors.New("smoothing out of range")
	}
	if p.Smoothing != 0 {
		f.tuning.Smoothing = p.Smoothing
	}
	return f.tuning, nil
}

func (f *fakeTracker) RunID() string   { return "run-1" }
func (f *fakeTracker) IsRunning() bool { return true }

func (f *fakeTracker) stepCalls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.steps...)
}

type fakeStore struct {
	ticks []telemetry.Tick
	err   error

	lastRun   string
	lastLimit int
}

func (f *fakeStore) Recent(_ context.Context, runID string, limit int) ([]telemetry.Tick, error) {
	f.lastRun, f.lastLimit = runID, limit
	return f.ticks, f.err
}

func restSnapshot() tracking.Snapshot {
	cfg := arm.DefaultConfig()
	pose := arm.RestPose(cfg)
	cmd, ok := arm.NewActuatorCommand(pose.Angles)
	return tracking.Snapshot{
		Seq:      3,
		Smoothed: cfg.InitialSmoothed,
		Orbit:    12,
		Pose:     pose,
		Command:  cmd,
		Sent:     ok,
	}
}

func sampleTicks() []telemetry.Tick {
	pose := arm.RestPose(arm.DefaultConfig())
	return []telemetry.Tick{
		{RunID: "run-1", Seq: 1, Time: time.Unix(100, 0), Pose: pose, Sent: true},
		{RunID: "run-1", Seq: 2, Time: time.Unix(101, 0), HasInput: true, Raw: arm.Pt(10, 20), Pose: pose},
	}
}

func newTestServer(store TelemetrySource) (*Server, *fakeTracker) {
	tr := &fakeTracker{snap: restSnapshot(), stats: tracking.Stats{Ticks: 3, CommandsSent: 3}}
	return NewServer(DefaultOptions(), tr, store), tr
}

func TestStatus(t *testing.T) {
	s, _ := newTestServer(nil)

	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/status", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var body StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "run-1", body.RunID)
	assert.True(t, body.Running)
	assert.Equal(t, 12.0, body.Orbit)
	assert.Equal(t, uint64(3), body.Stats.CommandsSent)
	assert.Equal(t, 0, body.Clients["pose"])
}

func TestPose(t *testing.T) {
	s, _ := newTestServer(nil)

	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/pose", nil))
	require.NoError(t, err)

	var pose protocol.PoseData
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pose))
	assert.Equal(t, uint64(3), pose.Seq)
	assert.Equal(t, protocol.Point{X: 400, Y: 400}, pose.Shoulder)
	assert.Equal(t, protocol.Point{X: 620, Y: 400}, pose.Tip)
	require.NotNil(t, pose.Command)
	assert.Equal(t, [2]int{0, 0}, *pose.Command)
	require.NotNil(t, pose.Smoothed)
}

func TestOrbit(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		status   int
		wantStep []int
		wantSet  []float64
	}{
		{"step", `{"step":1}`, 202, []int{1}, nil},
		{"step back", `{"step":-1}`, 202, []int{-1}, nil},
		{"set", `{"degrees":90}`, 202, nil, []float64{90}},
		{"bad step", `{"step":3}`, 400, nil, nil},
		{"empty", `{}`, 400, nil, nil},
		{"garbage", `{`, 400, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, tr := newTestServer(nil)
			req := httptest.NewRequest("POST", "/api/orbit", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := s.App().Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.wantStep, tr.steps)
			assert.Equal(t, tt.wantSet, tr.sets)
		})
	}
}

func TestOrbit_QueueFull(t *testing.T) {
	s, tr := newTestServer(nil)
	tr.queueErr = tracking.ErrOrbitQueueFull

	req := httptest.NewRequest("POST", "/api/orbit", strings.NewReader(`{"step":1}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, 503, resp.StatusCode)
}

func TestTuning(t *testing.T) {
	s, tr := newTestServer(nil)
	tr.tuning = tracking.TuningParams{Smoothing: 0.2, HoverDistance: 15, OrbitStep: 4}

	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/tuning", nil))
	require.NoError(t, err)
	var got tracking.TuningParams
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, tr.tuning, got)

	req := httptest.NewRequest("PUT", "/api/tuning", strings.NewReader(`{"smoothing":0.5}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = s.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, 0.5, got.Smoothing)
	assert.Equal(t, 15.0, got.HoverDistance)

	req = httptest.NewRequest("PUT", "/api/tuning", strings.NewReader(`{"smoothing":3}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = s.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestTelemetry(t *testing.T) {
	store := &fakeStore{ticks: sampleTicks()}
	s, _ := newTestServer(store)

	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/telemetry?run=run-1&limit=5", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var ticks []TickEntry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ticks))
	require.Len(t, ticks, 2)
	assert.Equal(t, "run-1", store.lastRun)
	assert.Equal(t, 5, store.lastLimit)
	assert.Equal(t, protocol.Point{X: 10, Y: 20}, ticks[1].Raw)
	assert.NotNil(t, ticks[0].Pose.Command)
	assert.Nil(t, ticks[1].Pose.Command)
}

func TestTelemetry_LimitClamped(t *testing.T) {
	store := &fakeStore{}
	s, _ := newTestServer(store)

	_, err := s.App().Test(httptest.NewRequest("GET", "/api/telemetry?limit=100000", nil))
	require.NoError(t, err)
	assert.Equal(t, DefaultOptions().TelemetryLimit, store.lastLimit)
	assert.Equal(t, "", store.lastRun)
}

func TestTelemetry_Errors(t *testing.T) {
	s, _ := newTestServer(nil)
	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/telemetry", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)

	s, _ = newTestServer(&fakeStore{err: errors.New("disk")})
	resp, err = s.App().Test(httptest.NewRequest("GET", "/api/telemetry", nil))
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)
}

func TestAngleChart(t *testing.T) {
	s, _ := newTestServer(&fakeStore{ticks: sampleTicks()})

	resp, err := s.App().Test(httptest.NewRequest("GET", "/charts/angles", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "echarts")

	s, _ = newTestServer(&fakeStore{})
	resp, err = s.App().Test(httptest.NewRequest("GET", "/charts/angles", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	s, _ := newTestServer(nil)
	resp, err := s.App().Test(httptest.NewRequest("GET", "/ws/pose", nil))
	require.NoError(t, err)
	assert.Equal(t, 426, resp.StatusCode)
}

func TestControlMessage(t *testing.T) {
	s, tr := newTestServer(nil)

	assert.Nil(t, s.handleControlMessage("c1", []byte(`{"type":"key","data":{"key":"a"}}`)))
	assert.Nil(t, s.handleControlMessage("c1", []byte(`{"type":"key","data":{"key":"d"}}`)))
	assert.Nil(t, s.handleControlMessage("c1", []byte(`{"type":"key","data":{"key":"q"}}`)))
	assert.Equal(t, []int{-1, 1}, tr.stepCalls())

	assert.Nil(t, s.handleControlMessage("c1", []byte(`{"type":"orbit","data":{"degrees":45}}`)))
	assert.Equal(t, []float64{45}, tr.sets)

	reply := s.handleControlMessage("c1", []byte(`{"type":"pose"}`))
	msg, err := protocol.ParseMessage(reply)
	require.NoError(t, err)
	assert.Equal(t, protocol.TypeError, msg.Type)

	reply = s.handleControlMessage("c1", []byte(`{"type":"ping","data":{"id":"p1","ts":1}}`))
	msg, err = protocol.ParseMessage(reply)
	require.NoError(t, err)
	assert.Equal(t, protocol.TypePong, msg.Type)
}

// serve starts the dashboard on a loopback port
func serve(t *testing.T, s *Server) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Serve(ctx, ln)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return "ws://" + ln.Addr().String()
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitClients(t *testing.T, count func() int, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return count() == n }, 2*time.Second, 5*time.Millisecond)
}

func TestPoseStream(t *testing.T) {
	s, _ := newTestServer(nil)
	base := serve(t, s)

	conn := dial(t, base+"/ws/pose")
	waitClients(t, s.poseHub.ClientCount, 1)

	snap := restSnapshot()
	s.PublishSnapshot(snap) // 1st: sent
	snap.Seq = 4
	s.PublishSnapshot(snap) // 2nd: throttled
	snap.Seq = 5
	s.PublishSnapshot(snap) // 3rd: sent

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var seqs []uint64
	for len(seqs) < 2 {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		msg, err := protocol.ParseMessage(data)
		require.NoError(t, err)
		pose, err := msg.GetPoseData()
		require.NoError(t, err)
		seqs = append(seqs, pose.Seq)
	}
	assert.Equal(t, []uint64{3, 5}, seqs)
}

func TestFrameStream(t *testing.T) {
	s, _ := newTestServer(nil)
	base := serve(t, s)

	conn := dial(t, base+"/ws/frames")
	waitClients(t, s.frameHub.ClientCount, 1)

	s.SendFrame([]byte("RIFFxxxxWEBP"))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	mt, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, mt)
	assert.Equal(t, "RIFFxxxxWEBP", string(data))
	assert.Equal(t, uint64(1), s.FramesSent())
}

func TestControlStream(t *testing.T) {
	s, tr := newTestServer(nil)
	base := serve(t, s)

	conn := dial(t, base+"/ws/control")
	waitClients(t, s.controlHub.ClientCount, 1)

	key, _ := protocol.NewKeyMessage("d")
	raw, _ := key.Bytes()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))

	require.Eventually(t, func() bool {
		return len(tr.stepCalls()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	msg, err := protocol.ParseMessage(data)
	require.NoError(t, err)
	assert.Equal(t, protocol.TypeError, msg.Type)
}
