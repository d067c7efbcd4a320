package arm

import "gonum.org/v1/gonum/spatial/r2"

// InputMapper converts normalized pointer coordinates (0-1 of the camera
// frame) into window coordinates, optionally mirrored.
type InputMapper struct {
	Width   float64
	Height  float64
	MirrorX bool
	MirrorY bool
}

// NewInputMapper builds a mapper from the window settings in cfg
func NewInputMapper(cfg Config) InputMapper {
	return InputMapper{
		Width:   cfg.WindowWidth,
		Height:  cfg.WindowHeight,
		MirrorX: cfg.MirrorX,
		MirrorY: cfg.MirrorY,
	}
}

// Map scales a normalized point into the window
func (m InputMapper) Map(nx, ny float64) Point2D {
	p := r2.Vec{X: nx * m.Width, Y: ny * m.Height}
	if m.MirrorX {
		p.X = m.Width - p.X
	}
	if m.MirrorY {
		p.Y = m.Height - p.Y
	}
	return p
}

// MapPixel maps a pixel position in a frame of the given size
func (m InputMapper) MapPixel(px, py, frameWidth, frameHeight float64) Point2D {
	if frameWidth <= 0 || frameHeight <= 0 {
		return m.Map(0, 0)
	}
	return m.Map(px/frameWidth, py/frameHeight)
}
