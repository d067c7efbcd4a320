package detection

import (
	"image"
	"image/color"
	"math"
	"testing"
)

var green = color.RGBA{0, 255, 0, 255}

func TestMarker_FindsGreenSquare(t *testing.T) {
	d := NewMarker(DefaultMarkerConfig())
	defer d.Close()

	// 40x40 square centred at (100, 60) in a 320x240 frame
	frame := squareJPEG(320, 240, image.Rect(80, 40, 120, 80), green)

	dets, err := d.Detect(frame)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(dets) != 1 {
		t.Fatalf("Expected 1 detection, got %d", len(dets))
	}

	cx, cy := dets[0].Center()
	if math.Abs(cx-100.0/320) > 0.02 || math.Abs(cy-60.0/240) > 0.02 {
		t.Errorf("Center: got (%.3f, %.3f), want about (%.3f, %.3f)", cx, cy, 100.0/320, 60.0/240)
	}
	if dets[0].Confidence < 0.8 {
		t.Errorf("Expected a well filled blob, confidence %.2f", dets[0].Confidence)
	}
}

func TestMarker_IgnoresOtherColours(t *testing.T) {
	d := NewMarker(DefaultMarkerConfig())

	frame := squareJPEG(320, 240, image.Rect(80, 40, 120, 80), color.RGBA{255, 0, 0, 255})

	dets, err := d.Detect(frame)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(dets) != 0 {
		t.Errorf("Expected no detections for a red square, got %d", len(dets))
	}
}

func TestMarker_RejectsSmallBlobs(t *testing.T) {
	cfg := DefaultMarkerConfig()
	cfg.MinArea = 500
	cfg.Blur = 0
	d := NewMarker(cfg)

	// 10x10 is well under 500 px
	frame := squareJPEG(320, 240, image.Rect(150, 100, 160, 110), green)

	dets, err := d.Detect(frame)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(dets) != 0 {
		t.Errorf("Expected small blob to be rejected, got %d", len(dets))
	}
}

func TestMarker_InvalidImage(t *testing.T) {
	d := NewMarker(DefaultMarkerConfig())

	if _, err := d.Detect([]byte("not a jpeg")); err == nil {
		t.Error("Expected error for invalid JPEG")
	}
}
