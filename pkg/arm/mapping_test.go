package arm

import (
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func TestInputMapper_Map(t *testing.T) {
	tests := []struct {
		name   string
		mapper InputMapper
		nx, ny float64
		want   Point2D
	}{
		{"plain", InputMapper{Width: 800, Height: 800}, 0.25, 0.5, Pt(200, 400)},
		{"mirror x", InputMapper{Width: 800, Height: 800, MirrorX: true}, 0.25, 0.5, Pt(600, 400)},
		{"mirror y", InputMapper{Width: 800, Height: 600, MirrorY: true}, 0, 0.25, Pt(0, 450)},
		{"centre is fixed under mirror", InputMapper{Width: 800, Height: 800, MirrorX: true, MirrorY: true}, 0.5, 0.5, Pt(400, 400)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.mapper.Map(tt.nx, tt.ny)
			if !scalar.EqualWithinAbs(got.X, tt.want.X, tolerance) || !scalar.EqualWithinAbs(got.Y, tt.want.Y, tolerance) {
				t.Errorf("Map(%v,%v) = %v, want %v", tt.nx, tt.ny, got, tt.want)
			}
		})
	}
}

func TestInputMapper_MapPixel(t *testing.T) {
	m := NewInputMapper(DefaultConfig())

	// 160px of a 640px frame is a quarter; mirrored into an 800px window
	got := m.MapPixel(160, 240, 640, 480)
	if !scalar.EqualWithinAbs(got.X, 600, tolerance) || !scalar.EqualWithinAbs(got.Y, 400, tolerance) {
		t.Errorf("MapPixel() = %v, want (600,400)", got)
	}
}
