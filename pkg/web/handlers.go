package web

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/teslashibe/go-orbitarm/internal/log"
	"github.com/teslashibe/go-orbitarm/pkg/protocol"
	"github.com/teslashibe/go-orbitarm/pkg/render"
	"github.com/teslashibe/go-orbitarm/pkg/telemetry"
	"github.com/teslashibe/go-orbitarm/pkg/tracking"
)

// StatusResponse is the body of GET /api/status
type StatusResponse struct {
	RunID   string         `json:"run_id"`
	Running bool           `json:"running"`
	Orbit   float64        `json:"orbit_deg"`
	Stats   tracking.Stats `json:"stats"`
	Clients map[string]int `json:"clients"`
}

// TickEntry is one recorded tick as served by GET /api/telemetry
type TickEntry struct {
	Seq      uint64            `json:"seq"`
	Time     time.Time         `json:"time"`
	HasInput bool              `json:"has_input"`
	Raw      protocol.Point    `json:"raw"`
	Pose     protocol.PoseData `json:"pose"`
}

// handleStatus returns loop state and counters
func (s *Server) handleStatus(c *fiber.Ctx) error {
	snap := s.tracker.Snapshot()
	return c.JSON(StatusResponse{
		RunID:   s.tracker.RunID(),
		Running: s.tracker.IsRunning(),
		Orbit:   snap.Orbit,
		Stats:   s.tracker.Stats(),
		Clients: map[string]int{
			"pose":    s.poseHub.ClientCount(),
			"frames":  s.frameHub.ClientCount(),
			"control": s.controlHub.ClientCount(),
		},
	})
}

// handlePose returns the latest pose
func (s *Server) handlePose(c *fiber.Ctx) error {
	return c.JSON(poseData(s.tracker.Snapshot()))
}

// handleOrbit queues an orbit step or absolute phase
func (s *Server) handleOrbit(c *fiber.Ctx) error {
	var req protocol.OrbitData
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := s.applyOrbit(req); err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, tracking.ErrOrbitQueueFull) {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"queued": true})
}

func (s *Server) applyOrbit(req protocol.OrbitData) error {
	if req.Degrees != nil {
		return s.tracker.SetOrbit(*req.Degrees)
	}
	return s.tracker.StepOrbit(*req.Step)
}

// handleGetTuning returns the live tuning parameters
func (s *Server) handleGetTuning(c *fiber.Ctx) error {
	return c.JSON(s.tracker.GetTuningParams())
}

// handleSetTuning applies the non-zero fields of the body
func (s *Server) handleSetTuning(c *fiber.Ctx) error {
	var req tracking.TuningParams
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	applied, err := s.tracker.SetTuningParams(req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	log.Info("tuning updated",
		"smoothing", applied.Smoothing,
		"hover", applied.HoverDistance,
		"orbit_step", applied.OrbitStep,
	)
	return c.JSON(applied)
}

// handleTelemetry returns recent recorded ticks, oldest first
func (s *Server) handleTelemetry(c *fiber.Ctx) error {
	ticks, err := s.recentTicks(c)
	if err != nil {
		return err
	}

	out := make([]TickEntry, 0, len(ticks))
	for _, t := range ticks {
		pose := protocol.NewPoseData(t.Pose, t.Command, t.Sent)
		pose.Seq = t.Seq
		pose.Orbit = t.Orbit
		sm := protocol.FromPoint(t.Smoothed)
		pose.Smoothed = &sm
		out = append(out, TickEntry{
			Seq:      t.Seq,
			Time:     t.Time,
			HasInput: t.HasInput,
			Raw:      protocol.FromPoint(t.Raw),
			Pose:     pose,
		})
	}
	return c.JSON(out)
}

// handleAngleChart renders the joint angle chart of a run as HTML
func (s *Server) handleAngleChart(c *fiber.Ctx) error {
	ticks, err := s.recentTicks(c)
	if err != nil {
		return err
	}

	c.Type("html")
	err = render.AngleChart(c.Response().BodyWriter(), ticks, render.ChartOptions{
		AssetsHost: s.opts.ChartAssetsHost,
	})
	if errors.Is(err, render.ErrNoTicks) {
		return fiber.NewError(fiber.StatusNotFound, "no ticks recorded")
	}
	return err
}

// recentTicks reads ?run= and ?limit= and queries the telemetry store.
// An empty run selects the most recent one.
func (s *Server) recentTicks(c *fiber.Ctx) ([]telemetry.Tick, error) {
	if s.telemetry == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "telemetry disabled")
	}

	limit := c.QueryInt("limit", s.opts.TelemetryLimit)
	if limit <= 0 || limit > s.opts.TelemetryLimit {
		limit = s.opts.TelemetryLimit
	}

	ticks, err := s.telemetry.Recent(c.UserContext(), c.Query("run"), limit)
	if err != nil {
		log.Warn("telemetry query failed", "error", err)
		return nil, fiber.NewError(fiber.StatusInternalServerError, "telemetry query failed")
	}
	return ticks, nil
}

// handleControlMessage handles key and orbit messages from /ws/control.
// Errors are returned to the sender; accepted messages get no reply.
func (s *Server) handleControlMessage(clientID string, data []byte) []byte {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		return errorReply("%v", err)
	}

	switch msg.Type {
	case protocol.TypeKey:
		key, err := msg.GetKeyData()
		if err != nil {
			return errorReply("%v", err)
		}
		dir := key.Direction()
		if dir == 0 {
			return nil // Other keys are ignored
		}
		if err := s.tracker.StepOrbit(dir); err != nil {
			return errorReply("%v", err)
		}

	case protocol.TypeOrbit:
		orbit, err := msg.GetOrbitData()
		if err != nil {
			return errorReply("%v", err)
		}
		if err := s.applyOrbit(*orbit); err != nil {
			return errorReply("%v", err)
		}

	case protocol.TypePing:
		ping, err := msg.GetPingData()
		if err != nil {
			return errorReply("%v", err)
		}
		pong, err := protocol.NewPongMessage(ping.ID, ping.Timestamp, time.Now().UnixMilli())
		if err != nil {
			return nil
		}
		raw, _ := pong.Bytes()
		return raw

	default:
		log.Debug("unexpected control message", "client", clientID, "type", msg.Type)
		return errorReply("unsupported message type %q", msg.Type)
	}
	return nil
}

func errorReply(format string, args ...interface{}) []byte {
	msg, err := protocol.NewErrorMessage(format, args...)
	if err != nil {
		return nil
	}
	raw, _ := msg.Bytes()
	return raw
}
