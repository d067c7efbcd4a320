// Package render draws arm poses as raster frames and turns recorded
// telemetry into plots and charts.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/teslashibe/go-orbitarm/pkg/arm"
	"golang.org/x/image/vector"
)

// Style controls how a pose is drawn
type Style struct {
	Background  color.RGBA
	Segment     color.RGBA
	Joint       color.RGBA
	Target      color.RGBA
	Width       float64 // Segment stroke width in pixels
	JointRadius float64 // 0 hides joints
}

// DefaultStyle draws red segments on white
func DefaultStyle() Style {
	return Style{
		Background:  color.RGBA{255, 255, 255, 255},
		Segment:     color.RGBA{230, 40, 40, 255},
		Joint:       color.RGBA{40, 40, 40, 255},
		Target:      color.RGBA{40, 120, 230, 255},
		Width:       5,
		JointRadius: 4,
	}
}

// Canvas rasterizes poses at a fixed size
type Canvas struct {
	Width  int
	Height int
	Style  Style

	z *vector.Rasterizer
}

// NewCanvas creates a canvas of the given size with the default style
func NewCanvas(width, height int) *Canvas {
	return &Canvas{
		Width:  width,
		Height: height,
		Style:  DefaultStyle(),
		z:      vector.NewRasterizer(width, height),
	}
}

// Draw renders the three chain segments and the joints into a new image
func (c *Canvas) Draw(pose arm.Pose) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, c.Width, c.Height))
	c.DrawInto(img, pose, nil)
	return img
}

// DrawInto renders onto img, which must be at least Width x Height.
// target, when non-nil, is marked with a small ring.
func (c *Canvas) DrawInto(img *image.RGBA, pose arm.Pose, target *arm.Point2D) {
	s := c.Style
	draw.Draw(img, img.Bounds(), &image.Uniform{C: s.Background}, image.Point{}, draw.Src)

	segment := &image.Uniform{C: s.Segment}
	joints := pose.Joints()
	for i := 0; i < len(joints)-1; i++ {
		c.fill(img, segment, func(z *vector.Rasterizer) {
			strokePath(z, joints[i], joints[i+1], s.Width)
		})
	}

	if s.JointRadius > 0 {
		dot := &image.Uniform{C: s.Joint}
		for _, j := range joints[:3] {
			c.fill(img, dot, func(z *vector.Rasterizer) {
				circlePath(z, j, s.JointRadius)
			})
		}
	}

	if target != nil {
		ring := &image.Uniform{C: s.Target}
		c.fill(img, ring, func(z *vector.Rasterizer) {
			circlePath(z, *target, 6)
		})
		bg := &image.Uniform{C: s.Background}
		c.fill(img, bg, func(z *vector.Rasterizer) {
			circlePath(z, *target, 4)
		})
	}
}

// fill rasterizes one shape. Shapes are filled separately so that
// overlapping outlines never cancel each other.
func (c *Canvas) fill(img *image.RGBA, src image.Image, path func(z *vector.Rasterizer)) {
	c.z.Reset(c.Width, c.Height)
	path(c.z)
	c.z.Draw(img, image.Rect(0, 0, c.Width, c.Height), src, image.Point{})
}

// strokePath adds the rectangle of width w around segment a-b
func strokePath(z *vector.Rasterizer, a, b arm.Point2D, w float64) {
	dx, dy := b.X-a.X, b.Y-a.Y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return
	}
	nx, ny := -dy/l*w/2, dx/l*w/2

	z.MoveTo(float32(a.X+nx), float32(a.Y+ny))
	z.LineTo(float32(b.X+nx), float32(b.Y+ny))
	z.LineTo(float32(b.X-nx), float32(b.Y-ny))
	z.LineTo(float32(a.X-nx), float32(a.Y-ny))
	z.ClosePath()
}

// circlePath adds a 32-gon of radius r around p
func circlePath(z *vector.Rasterizer, p arm.Point2D, r float64) {
	const n = 32
	for i := 0; i <= n; i++ {
		theta := 2 * math.Pi * float64(i) / n
		x := float32(p.X + r*math.Cos(theta))
		y := float32(p.Y + r*math.Sin(theta))
		if i == 0 {
			z.MoveTo(x, y)
		} else {
			z.LineTo(x, y)
		}
	}
	z.ClosePath()
}
