package tracking

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/teslashibe/go-orbitarm/pkg/tracking/detection"
)

type fakeVideo struct {
	err error
}

func (v fakeVideo) CaptureJPEG() ([]byte, error) {
	if v.err != nil {
		return nil, v.err
	}
	return []byte{0xff, 0xd8}, nil
}

// fakeDetector returns one scripted result per call
type fakeDetector struct {
	results [][]detection.Detection
	err     error
	calls   int
}

func (d *fakeDetector) Detect([]byte) ([]detection.Detection, error) {
	if d.err != nil {
		return nil, d.err
	}
	if d.calls >= len(d.results) {
		return nil, nil
	}
	r := d.results[d.calls]
	d.calls++
	return r, nil
}

func (d *fakeDetector) Close() error { return nil }

func TestCameraSource_MapsBestDetection(t *testing.T) {
	det := &fakeDetector{results: [][]detection.Detection{{
		{X: 0.1, Y: 0.2, W: 0.1, H: 0.1, Confidence: 0.4},
		{X: 0.2, Y: 0.4, W: 0.1, H: 0.2, Confidence: 0.9},
	}}}
	src := NewCameraSource(DefaultConfig(), fakeVideo{}, det)

	p, ok, err := src.Next(context.Background())
	if err != nil || !ok {
		t.Fatalf("Next: ok=%v err=%v", ok, err)
	}

	// Center (0.25, 0.5), mirrored on X in an 800x800 window
	if math.Abs(p.X-600) > 1e-9 || math.Abs(p.Y-400) > 1e-9 {
		t.Errorf("got %v, want (600,400)", p)
	}
}

func TestCameraSource_ClampsOutsideFrame(t *testing.T) {
	det := &fakeDetector{results: [][]detection.Detection{{
		{X: 1.1, Y: -0.5, W: 0.2, H: 0.2, Confidence: 0.9},
	}}}
	cfg := DefaultConfig()
	cfg.Arm.MirrorX = false
	src := NewCameraSource(cfg, fakeVideo{}, det)

	p, ok, _ := src.Next(context.Background())
	if !ok {
		t.Fatal("expected a point")
	}
	if p.X != 800 || p.Y != 0 {
		t.Errorf("got %v, want (800,0)", p)
	}
}

func TestCameraSource_CountsMisses(t *testing.T) {
	det := &fakeDetector{results: [][]detection.Detection{
		nil,
		nil,
		{{X: 0.5, Y: 0.5, Confidence: 1}},
	}}
	src := NewCameraSource(DefaultConfig(), fakeVideo{}, det)
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		if _, ok, err := src.Next(ctx); ok || err != nil {
			t.Fatalf("frame %d: expected clean miss, got ok=%v err=%v", i, ok, err)
		}
		if got := src.ConsecutiveMisses(); got != i {
			t.Errorf("misses = %d, want %d", got, i)
		}
	}

	if _, ok, _ := src.Next(ctx); !ok {
		t.Fatal("expected detection on third frame")
	}
	if got := src.ConsecutiveMisses(); got != 0 {
		t.Errorf("misses should reset, got %d", got)
	}
	if _, ok := src.LastValid(); !ok {
		t.Error("expected a last valid position")
	}
}

func TestCameraSource_Errors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		src  *CameraSource
	}{
		{"capture error", NewCameraSource(DefaultConfig(), fakeVideo{err: errors.New("no frame")}, &fakeDetector{})},
		{"detect error", NewCameraSource(DefaultConfig(), fakeVideo{}, &fakeDetector{err: errors.New("bad jpeg")})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok, err := tt.src.Next(ctx)
			if ok || err == nil {
				t.Errorf("expected error, got ok=%v err=%v", ok, err)
			}
			if tt.src.ConsecutiveMisses() != 1 {
				t.Errorf("expected error to count as a miss")
			}
		})
	}

	empty := NewCameraSource(DefaultConfig(), nil, nil)
	if _, _, err := empty.Next(ctx); !errors.Is(err, ErrNoCamera) {
		t.Errorf("expected ErrNoCamera, got %v", err)
	}
}
