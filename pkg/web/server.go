// Package web provides the real-time dashboard for the arm
package web

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-orbitarm/internal/log"
	"github.com/teslashibe/go-orbitarm/pkg/hub"
	"github.com/teslashibe/go-orbitarm/pkg/protocol"
	"github.com/teslashibe/go-orbitarm/pkg/telemetry"
	"github.com/teslashibe/go-orbitarm/pkg/tracking"
)

// Tracker is the part of the tracking loop the dashboard reads and steers
type Tracker interface {
	Snapshot() tracking.Snapshot
	Stats() tracking.Stats
	StepOrbit(dir int) error
	SetOrbit(deg float64) error
	RunID() string
	IsRunning() bool
	GetTuningParams() tracking.TuningParams
	SetTuningParams(p tracking.TuningParams) (tracking.TuningParams, error)
}

// TelemetrySource reads recorded ticks
type TelemetrySource interface {
	Recent(ctx context.Context, runID string, limit int) ([]telemetry.Tick, error)
}

// Options configures the dashboard
type Options struct {
	Addr            string // Listen address, e.g. ":8181"
	PoseEvery       int    // Broadcast one snapshot out of PoseEvery
	StatsEvery      int    // Broadcast stats every StatsEvery snapshots, 0 disables
	TelemetryLimit  int    // Default and maximum tick count for telemetry routes
	ChartAssetsHost string
}

// DefaultOptions returns 30 pose updates and one stats update per second at 60 FPS
func DefaultOptions() Options {
	return Options{
		Addr:           ":8181",
		PoseEvery:      2,
		StatsEvery:     60,
		TelemetryLimit: 600,
	}
}

// Server is the web dashboard server
type Server struct {
	app       *fiber.App
	opts      Options
	tracker   Tracker
	telemetry TelemetrySource

	// Hubs for websocket broadcast
	poseHub    *hub.Hub
	frameHub   *hub.Hub
	controlHub *hub.Hub

	snapshots atomic.Uint64
	frameSeq  atomic.Uint64
}

// NewServer creates a dashboard over a tracker. store may be nil, in which
// case the telemetry routes answer 404.
func NewServer(opts Options, tracker Tracker, store TelemetrySource) *Server {
	def := DefaultOptions()
	if opts.PoseEvery <= 0 {
		opts.PoseEvery = 1
	}
	if opts.TelemetryLimit <= 0 {
		opts.TelemetryLimit = def.TelemetryLimit
	}
	if opts.Addr == "" {
		opts.Addr = def.Addr
	}

	s := &Server{
		opts:       opts,
		tracker:    tracker,
		telemetry:  store,
		poseHub:    hub.New("pose"),
		frameHub:   hub.New("frames"),
		controlHub: hub.New("control"),
	}
	s.controlHub.OnMessage(s.handleControlMessage)

	app := fiber.New(fiber.Config{
		AppName:               "Orbit Arm Dashboard",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/pose", s.handlePose)
	api.Post("/orbit", s.handleOrbit)
	api.Get("/tuning", s.handleGetTuning)
	api.Put("/tuning", s.handleSetTuning)
	api.Get("/telemetry", s.handleTelemetry)

	app.Get("/charts/angles", s.handleAngleChart)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	app.Get("/ws/pose", websocket.New(s.serveHub(s.poseHub)))
	app.Get("/ws/frames", websocket.New(s.serveHub(s.frameHub)))
	app.Get("/ws/control", websocket.New(s.serveHub(s.controlHub)))

	s.app = app
	return s
}

// App exposes the fiber app (tests use app.Test)
func (s *Server) App() *fiber.App {
	return s.app
}

// Serve runs the hubs and serves on ln until ctx is cancelled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go s.poseHub.Run(ctx)
	go s.frameHub.Run(ctx)
	go s.controlHub.Run(ctx)

	go func() {
		<-ctx.Done()
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			log.Warn("dashboard shutdown", "error", err)
		}
	}()

	log.Info("dashboard listening", "addr", ln.Addr().String())
	if err := s.app.Listener(ln); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// PublishSnapshot broadcasts every PoseEvery-th snapshot to /ws/pose
// and periodic stats. It never blocks the tick loop.
func (s *Server) PublishSnapshot(snap tracking.Snapshot) {
	n := s.snapshots.Add(1)

	if (n-1)%uint64(s.opts.PoseEvery) == 0 && s.poseHub.ClientCount() > 0 {
		data := poseData(snap)
		s.broadcast(s.poseHub, protocol.TypePose, data)
	}
	if every := s.opts.StatsEvery; every > 0 && n%uint64(every) == 0 && s.poseHub.ClientCount() > 0 {
		s.broadcast(s.poseHub, protocol.TypeStats, statsData(s.tracker.Stats()))
	}
}

// SendFrame broadcasts an encoded WebP frame to /ws/frames
func (s *Server) SendFrame(webp []byte) {
	s.frameSeq.Add(1)
	s.frameHub.BroadcastBinary(webp)
}

// FramesSent returns how many frames were handed to the frame hub
func (s *Server) FramesSent() uint64 {
	return s.frameSeq.Load()
}

func (s *Server) broadcast(h *hub.Hub, t protocol.MessageType, data interface{}) {
	msg, err := protocol.NewMessage(t, data)
	if err != nil {
		log.Warn("encode dashboard message", "type", t, "error", err)
		return
	}
	raw, err := msg.Bytes()
	if err != nil {
		log.Warn("encode dashboard message", "type", t, "error", err)
		return
	}
	h.Broadcast(hub.NewJSONMessage(raw))
}

func (s *Server) serveHub(h *hub.Hub) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		hub.NewClient(h, c).Run()
	}
}

func poseData(snap tracking.Snapshot) protocol.PoseData {
	d := protocol.NewPoseData(snap.Pose, snap.Command, snap.Sent)
	d.Seq = snap.Seq
	d.Orbit = snap.Orbit
	smoothed := protocol.FromPoint(snap.Smoothed)
	d.Smoothed = &smoothed
	return d
}

func statsData(st tracking.Stats) protocol.StatsData {
	return protocol.StatsData{
		Ticks:           st.Ticks,
		CommandsSent:    st.CommandsSent,
		CommandsDropped: st.CommandsDropped,
		Misses:          st.Misses,
		Unreachable:     st.Unreachable,
		ServoErrors:     st.ServoErrors,
	}
}
