// Package tracking runs the arm control loop: one pointer sample in and at
// most one servo command out per tick.
package tracking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/go-orbitarm/internal/log"
	"github.com/teslashibe/go-orbitarm/pkg/arm"
	"github.com/teslashibe/go-orbitarm/pkg/telemetry"
)

// ServoSink receives integer joint commands
type ServoSink interface {
	SetServoAngles(angle1, angle2 int) error
}

// PoseSink receives every pose the loop produces (rendering, dashboard)
type PoseSink interface {
	RenderPose(pose arm.Pose)
}

// SnapshotSink receives the snapshot at the end of every tick
type SnapshotSink interface {
	PublishSnapshot(s Snapshot)
}

// TickRecorder receives one record per tick
type TickRecorder interface {
	Record(t telemetry.Tick)
}

// Stats counts what the loop has done since it started
type Stats struct {
	Ticks           uint64 `json:"ticks"`
	CommandsSent    uint64 `json:"commands_sent"`
	CommandsDropped uint64 `json:"commands_dropped"`
	Misses          uint64 `json:"misses"`
	SourceErrors    uint64 `json:"source_errors"`
	Unreachable     uint64 `json:"unreachable"`
	ServoErrors     uint64 `json:"servo_errors"`
}

// Snapshot is the latest tick as seen from outside the loop
type Snapshot struct {
	Seq      uint64              `json:"seq"`
	Time     time.Time           `json:"time"`
	HasInput bool                `json:"has_input"`
	Smoothed arm.Point2D         `json:"smoothed"`
	Orbit    float64             `json:"orbit_deg"`
	Pose     arm.Pose            `json:"pose"`
	Command  arm.ActuatorCommand `json:"command"`
	Sent     bool                `json:"sent"`
}

type orbitEvent struct {
	step int
	set  bool
	deg  float64
}

// Tracker drives an ArmController from a PointerSource, one sample per tick
type Tracker struct {
	config     Config
	controller *arm.ArmController
	source     PointerSource
	servo      ServoSink
	sinks      []PoseSink
	observers  []SnapshotSink
	recorder   TickRecorder

	orbitEvents chan orbitEvent
	runID       string
	seq         uint64

	// Loop-owned state
	lastServoErrLog time.Time
	missRun         int

	mu          sync.RWMutex
	stats       Stats
	snapshot    Snapshot
	running     bool
	tuning      TuningParams
	tuningDirty bool
}

// New creates a tracker. servo may be nil (no actuator link).
func New(config Config, source PointerSource, servo ServoSink) (*Tracker, error) {
	ctrl, err := arm.NewArmController(config.Arm)
	if err != nil {
		return nil, fmt.Errorf("create arm controller: %w", err)
	}

	queue := config.OrbitQueueSize
	if queue <= 0 {
		queue = DefaultConfig().OrbitQueueSize
	}

	t := &Tracker{
		config:      config,
		controller:  ctrl,
		source:      source,
		servo:       servo,
		orbitEvents: make(chan orbitEvent, queue),
		runID:       uuid.NewString(),
		tuning:      tuningFrom(config.Arm),
	}

	pose, cmd, _ := ctrl.Hold()
	t.snapshot = Snapshot{
		Smoothed: ctrl.Smoothed(),
		Pose:     pose,
		Command:  cmd,
	}
	return t, nil
}

// AddPoseSink registers a sink that receives every pose. Call before Run.
func (t *Tracker) AddPoseSink(sink PoseSink) {
	if sink != nil {
		t.sinks = append(t.sinks, sink)
	}
}

// AddSnapshotSink registers a sink for end-of-tick snapshots. Call before Run.
func (t *Tracker) AddSnapshotSink(sink SnapshotSink) {
	if sink != nil {
		t.observers = append(t.observers, sink)
	}
}

// SetRecorder sets the telemetry recorder. Call before Run.
func (t *Tracker) SetRecorder(rec TickRecorder) {
	t.recorder = rec
}

// RunID identifies this tracker's telemetry
func (t *Tracker) RunID() string {
	return t.runID
}

// Config returns the tracker configuration
func (t *Tracker) Config() Config {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.config
}

// StepOrbit queues an orbit step in the sign of dir. Safe from any goroutine.
func (t *Tracker) StepOrbit(dir int) error {
	return t.queueOrbit(orbitEvent{step: dir})
}

// SetOrbit queues an absolute orbit phase. Safe from any goroutine.
func (t *Tracker) SetOrbit(deg float64) error {
	return t.queueOrbit(orbitEvent{set: true, deg: deg})
}

func (t *Tracker) queueOrbit(ev orbitEvent) error {
	select {
	case t.orbitEvents <- ev:
		return nil
	default:
		return ErrOrbitQueueFull
	}
}

// Stats returns a copy of the loop counters
func (t *Tracker) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stats
}

// Snapshot returns the latest tick
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshot
}

// IsRunning reports whether Run is active
func (t *Tracker) IsRunning() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.running
}

// Run ticks at the configured interval until ctx is cancelled.
// Ticks never overlap; a slow tick delays the next one.
func (t *Tracker) Run(ctx context.Context) error {
	interval := t.config.Arm.TickInterval
	if interval <= 0 {
		interval = arm.DefaultConfig().TickInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	t.setRunning(true)
	defer t.setRunning(false)

	cfg := t.config.Arm
	log.Info("arm tracker started",
		"run_id", t.runID,
		"interval", interval,
		"segment", cfg.SegmentLength,
		"tip", cfg.TipLength,
		"hover", cfg.HoverDistance,
		"smoothing", cfg.Smoothing,
	)

	for {
		select {
		case <-ctx.Done():
			s := t.Stats()
			log.Info("arm tracker stopped",
				"ticks", s.Ticks, "sent", s.CommandsSent, "dropped", s.CommandsDropped)
			return nil
		case <-ticker.C:
			t.Step(ctx)
		}
	}
}

func (t *Tracker) setRunning(v bool) {
	t.mu.Lock()
	t.running = v
	t.mu.Unlock()
}

// Step runs exactly one tick: apply pending orbit events, read one sample,
// advance the controller and feed every sink.
func (t *Tracker) Step(ctx context.Context) Snapshot {
	t.applyTuning()
	t.drainOrbit()
	orbit := t.controller.Orbit().Degrees()

	var (
		raw      arm.Point2D
		ok       bool
		err      error
		srcError bool
	)
	if t.source != nil {
		raw, ok, err = t.source.Next(ctx)
		if err != nil {
			srcError = true
			ok = false
			if ctx.Err() == nil {
				log.Debug("pointer source error", "error", err)
			}
		}
	}

	var (
		pose     arm.Pose
		cmd      arm.ActuatorCommand
		emit     bool
		reachHit bool
	)
	if ok {
		t.missRun = 0
		pose, cmd, emit = t.controller.Tick(raw, orbit)
		reachHit = !pose.Reachable
	} else {
		t.missRun++
		if t.missRun == t.config.MissLogThreshold {
			log.Debug("holding pose", "consecutive_misses", t.missRun)
		}
		pose, cmd, emit = t.controller.Hold()
	}

	sent := false
	servoFailed := false
	if emit && t.servo != nil {
		if err := t.servo.SetServoAngles(cmd.Angle1, cmd.Angle2); err != nil {
			servoFailed = true
			t.logServoError(err)
		} else {
			sent = true
		}
	}

	for _, sink := range t.sinks {
		sink.RenderPose(pose)
	}

	t.seq++
	snap := Snapshot{
		Seq:      t.seq,
		Time:     time.Now(),
		HasInput: ok,
		Smoothed: t.controller.Smoothed(),
		Orbit:    orbit,
		Pose:     pose,
		Command:  cmd,
		Sent:     sent,
	}

	if t.recorder != nil {
		t.recorder.Record(telemetry.Tick{
			RunID:    t.runID,
			Seq:      snap.Seq,
			Time:     snap.Time,
			HasInput: ok,
			Raw:      raw,
			Smoothed: snap.Smoothed,
			Orbit:    orbit,
			Pose:     pose,
			Command:  cmd,
			Sent:     sent,
		})
	}

	t.mu.Lock()
	t.stats.Ticks++
	if !ok {
		t.stats.Misses++
	}
	if srcError {
		t.stats.SourceErrors++
	}
	if reachHit {
		t.stats.Unreachable++
	}
	if !emit {
		t.stats.CommandsDropped++
	}
	if sent {
		t.stats.CommandsSent++
	}
	if servoFailed {
		t.stats.ServoErrors++
	}
	t.snapshot = snap
	stats := t.stats
	t.mu.Unlock()

	for _, o := range t.observers {
		o.PublishSnapshot(snap)
	}

	if hb := t.config.HeartbeatTicks; hb > 0 && stats.Ticks%hb == 0 {
		log.Info("arm heartbeat",
			"ticks", stats.Ticks,
			"sent", stats.CommandsSent,
			"dropped", stats.CommandsDropped,
			"misses", stats.Misses,
			"unreachable", stats.Unreachable,
			"angle1", pose.Angles.Angle1,
			"angle2", pose.Angles.Angle2,
		)
	}

	return snap
}

func (t *Tracker) drainOrbit() {
	orbit := t.controller.Orbit()
	for {
		select {
		case ev := <-t.orbitEvents:
			if ev.set {
				orbit.Set(ev.deg)
			} else {
				orbit.Step(ev.step)
			}
		default:
			return
		}
	}
}

func (t *Tracker) logServoError(err error) {
	interval := t.config.ServoErrorLogInterval
	now := time.Now()
	if !t.lastServoErrLog.IsZero() && now.Sub(t.lastServoErrLog) < interval {
		return
	}
	t.lastServoErrLog = now
	log.Warn("servo write failed", "error", err)
}
