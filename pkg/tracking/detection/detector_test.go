package detection

import (
	"testing"
)

func TestDetection_CenterAndArea(t *testing.T) {
	tests := []struct {
		name       string
		det        Detection
		cx, cy     float64
		expectArea float64
	}{
		{"middle of frame", Detection{X: 0.25, Y: 0.25, W: 0.5, H: 0.5}, 0.5, 0.5, 0.25},
		{"top left marker", Detection{X: 0, Y: 0, W: 0.2, H: 0.1}, 0.1, 0.05, 0.02},
		{"point detection", Detection{X: 0.7, Y: 0.3}, 0.7, 0.3, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			x, y := tc.det.Center()
			if x != tc.cx || y != tc.cy {
				t.Errorf("Center: got (%.3f, %.3f), want (%.3f, %.3f)", x, y, tc.cx, tc.cy)
			}
			if diff := tc.det.Area() - tc.expectArea; diff < -1e-9 || diff > 1e-9 {
				t.Errorf("Area: got %.4f, want %.4f", tc.det.Area(), tc.expectArea)
			}
		})
	}
}

func TestSelectBest(t *testing.T) {
	tests := []struct {
		name       string
		detections []Detection
		expectNil  bool
		expectIdx  int
	}{
		{
			name:      "no candidates",
			expectNil: true,
		},
		{
			name: "single candidate",
			detections: []Detection{
				{X: 0.4, Y: 0.4, W: 0.2, H: 0.2, Confidence: 0.3},
			},
			expectIdx: 0,
		},
		{
			name: "confident small marker beats faint large blob",
			detections: []Detection{
				{X: 0.0, Y: 0.0, W: 0.4, H: 0.4, Confidence: 0.5},
				{X: 0.3, Y: 0.3, W: 0.2, H: 0.2, Confidence: 0.95},
			},
			expectIdx: 1, // 0.95*0.7 + 0.25*0.3 beats 0.5*0.7 + 0.3
		},
		{
			name: "equal confidence picks larger",
			detections: []Detection{
				{X: 0.3, Y: 0.3, W: 0.1, H: 0.1, Confidence: 0.8},
				{X: 0.0, Y: 0.0, W: 0.5, H: 0.5, Confidence: 0.8},
			},
			expectIdx: 1,
		},
		{
			name: "zero-area candidates rank by confidence",
			detections: []Detection{
				{X: 0.1, Y: 0.1, Confidence: 0.2},
				{X: 0.9, Y: 0.9, Confidence: 0.6},
			},
			expectIdx: 1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			best := SelectBest(tc.detections)
			if tc.expectNil {
				if best != nil {
					t.Errorf("SelectBest: expected nil, got %+v", best)
				}
				return
			}
			if best != &tc.detections[tc.expectIdx] {
				t.Errorf("SelectBest: got %+v, want %+v", best, tc.detections[tc.expectIdx])
			}
		})
	}
}

func TestDefaultConfigs(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.ModelPath == "" {
		t.Error("DefaultConfig: ModelPath should not be empty")
	}
	if cfg.ConfidenceThresh <= 0 || cfg.ConfidenceThresh > 1 {
		t.Errorf("DefaultConfig: ConfidenceThresh should be 0-1, got %f", cfg.ConfidenceThresh)
	}

	m := DefaultMarkerConfig()
	if m.MinArea <= 0 {
		t.Errorf("DefaultMarkerConfig: MinArea should be positive, got %v", m.MinArea)
	}
	for i := 0; i < 3; i++ {
		if m.Lower[i] > m.Upper[i] {
			t.Errorf("DefaultMarkerConfig: channel %d lower %v above upper %v", i, m.Lower[i], m.Upper[i])
		}
	}

	o := DefaultObjectConfig()
	if len(o.Classes) == 0 {
		t.Error("DefaultObjectConfig: expected pointer classes")
	}
	for _, c := range o.Classes {
		if classID(c) < 0 {
			t.Errorf("DefaultObjectConfig: %q is not a COCO class", c)
		}
	}
}
