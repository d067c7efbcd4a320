package robot

import (
	"sync"
	"time"

	"github.com/teslashibe/go-orbitarm/internal/log"
)

// RateOptions configures a RateController
type RateOptions struct {
	// MinInterval is the shortest gap between two writes (0 = no limit).
	// Commands arriving sooner are skipped, the next one goes through.
	MinInterval time.Duration

	// DeadZone skips a command when neither angle moved more than this
	// many degrees since the last write. Negative disables it.
	DeadZone int

	// KeepAlive resends an unchanged command after this long so the
	// controller sees traffic (0 = never).
	KeepAlive time.Duration

	// HeartbeatEvery logs counters every N commands (0 disables)
	HeartbeatEvery uint64
}

// DefaultRateOptions writes every change and nothing else
func DefaultRateOptions() RateOptions {
	return RateOptions{
		DeadZone:       0,
		KeepAlive:      time.Second,
		HeartbeatEvery: 600,
	}
}

// PassthroughRateOptions forwards every command, like the plain serial link
func PassthroughRateOptions() RateOptions {
	return RateOptions{DeadZone: -1}
}

// RateController sits between the tick loop and a servo link and filters
// redundant traffic.
type RateController struct {
	servo ServoController
	opts  RateOptions
	now   func() time.Time

	mu        sync.Mutex
	last      [2]int
	lastWrite time.Time
	hasLast   bool

	// Diagnostics
	commands   uint64
	written    uint64
	skipped    uint64
	errorCount uint64
}

// NewRateController wraps servo
func NewRateController(servo ServoController, opts RateOptions) *RateController {
	return &RateController{
		servo: servo,
		opts:  opts,
		now:   time.Now,
	}
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// SetServoAngles forwards the command unless it is inside the dead zone or
// too close to the previous write. Errors from the link are returned
// unlogged.
func (c *RateController) SetServoAngles(angle1, angle2 int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.commands++
	now := c.now()
	cmd := [2]int{angle1, angle2}

	if c.skip(cmd, now) {
		c.skipped++
		c.heartbeat()
		return nil
	}

	// The caller logs write errors; only count them here
	err := c.servo.SetServoAngles(angle1, angle2)
	if err != nil {
		c.errorCount++
	} else {
		c.last = cmd
		c.hasLast = true
		c.lastWrite = now
		c.written++
	}

	c.heartbeat()
	return err
}

func (c *RateController) skip(cmd [2]int, now time.Time) bool {
	if !c.hasLast {
		return false
	}
	if c.opts.MinInterval > 0 && now.Sub(c.lastWrite) < c.opts.MinInterval {
		return true
	}
	if c.opts.DeadZone < 0 {
		return false
	}
	moved := max(absInt(cmd[0]-c.last[0]), absInt(cmd[1]-c.last[1]))
	if moved > c.opts.DeadZone {
		return false
	}
	if c.opts.KeepAlive > 0 && now.Sub(c.lastWrite) >= c.opts.KeepAlive {
		return false
	}
	return true
}

func (c *RateController) heartbeat() {
	if n := c.opts.HeartbeatEvery; n > 0 && c.commands%n == 0 {
		log.Debug("servo rate controller",
			"commands", c.commands,
			"written", c.written,
			"skipped", c.skipped,
			"errors", c.errorCount,
			"angle1", c.last[0],
			"angle2", c.last[1],
		)
	}
}

// RateStats are the controller counters
type RateStats struct {
	Commands uint64 `json:"commands"`
	Written  uint64 `json:"written"`
	Skipped  uint64 `json:"skipped"`
	Errors   uint64 `json:"errors"`
}

// Stats returns a copy of the counters
func (c *RateController) Stats() RateStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return RateStats{
		Commands: c.commands,
		Written:  c.written,
		Skipped:  c.skipped,
		Errors:   c.errorCount,
	}
}

// Close closes the wrapped link
func (c *RateController) Close() error {
	return c.servo.Close()
}
