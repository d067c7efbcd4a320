package tracking

import (
	"fmt"

	"github.com/teslashibe/go-orbitarm/internal/log"
	"github.com/teslashibe/go-orbitarm/pkg/arm"
)

// TuningParams holds the real-time adjustable arm parameters.
// These can be modified via the tuning API without restarting the loop.
type TuningParams struct {
	Smoothing     float64 `json:"smoothing"`      // EMA alpha (0.1=smooth, 0.4=responsive)
	HoverDistance float64 `json:"hover_distance"` // Gap between the tip and the pointer (px)
	OrbitStep     float64 `json:"orbit_step"`     // Degrees per orbit key press
}

// GetTuningParams returns the parameters the loop will use on its next tick.
func (t *Tracker) GetTuningParams() TuningParams {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tuning
}

// SetTuningParams updates tuning parameters at runtime.
// Only non-zero values are applied; the rest keep their current value.
// The change is validated here and takes effect at the start of the next tick.
func (t *Tracker) SetTuningParams(params TuningParams) (TuningParams, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := t.tuning
	if params.Smoothing != 0 {
		next.Smoothing = params.Smoothing
	}
	if params.HoverDistance != 0 {
		next.HoverDistance = params.HoverDistance
	}
	if params.OrbitStep != 0 {
		next.OrbitStep = params.OrbitStep
	}

	cfg := t.config.Arm
	cfg.Smoothing, cfg.HoverDistance, cfg.OrbitStep = next.Smoothing, next.HoverDistance, next.OrbitStep
	if err := cfg.Validate(); err != nil {
		return t.tuning, fmt.Errorf("tuning: %w", err)
	}

	t.tuning = next
	t.tuningDirty = true
	return next, nil
}

// applyTuning hands pending parameters to the controller. Loop goroutine only.
func (t *Tracker) applyTuning() {
	t.mu.Lock()
	if !t.tuningDirty {
		t.mu.Unlock()
		return
	}
	p := t.tuning
	t.tuningDirty = false
	t.mu.Unlock()

	err := t.controller.Retune(p.Smoothing, p.HoverDistance, p.OrbitStep)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		log.Warn("tuning rejected by controller", "error", err,
			"smoothing", p.Smoothing, "hover_distance", p.HoverDistance, "orbit_step", p.OrbitStep)
		// Report what the loop is actually running, unless a newer
		// request arrived meanwhile
		if !t.tuningDirty {
			t.tuning = tuningFrom(t.controller.Config())
		}
		return
	}
	t.config.Arm = t.controller.Config()
}

func tuningFrom(cfg arm.Config) TuningParams {
	return TuningParams{
		Smoothing:     cfg.Smoothing,
		HoverDistance: cfg.HoverDistance,
		OrbitStep:     cfg.OrbitStep,
	}
}
