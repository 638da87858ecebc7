package editor

import (
	"math"

	"tagframe/geometry"
)

const (
	DefaultMinScale = 0.1
	DefaultMaxScale = 20
	// ZoomStep is the scale factor applied per wheel notch.
	ZoomStep = 1.1
)

// Viewport is the pan/zoom transform of the stage:
// screen = content*Scale + Offset.
type Viewport struct {
	Scale    float64
	Offset   geometry.Point
	MinScale float64
	MaxScale float64
}

func NewViewport() Viewport {
	return Viewport{Scale: 1, MinScale: DefaultMinScale, MaxScale: DefaultMaxScale}
}

// ToContent maps a stage point to image pixel space.
func (v Viewport) ToContent(screen geometry.Point) geometry.Point {
	return geometry.Point{
		X: (screen.X - v.Offset.X) / v.Scale,
		Y: (screen.Y - v.Offset.Y) / v.Scale,
	}
}

func (v Viewport) ToScreen(content geometry.Point) geometry.Point {
	return geometry.Point{
		X: content.X*v.Scale + v.Offset.X,
		Y: content.Y*v.Scale + v.Offset.Y,
	}
}

// ZoomAt multiplies the scale by factor, clamped, keeping the content point
// under screen where it is.
func (v *Viewport) ZoomAt(screen geometry.Point, factor float64) {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return
	}
	anchor := v.ToContent(screen)
	v.Scale = math.Min(math.Max(v.Scale*factor, v.MinScale), v.MaxScale)
	v.Offset = geometry.Point{
		X: screen.X - anchor.X*v.Scale,
		Y: screen.Y - anchor.Y*v.Scale,
	}
}

// Wheel zooms in for negative deltaY (wheel up) and out for positive.
func (v *Viewport) Wheel(screen geometry.Point, deltaY float64) {
	switch {
	case deltaY < 0:
		v.ZoomAt(screen, ZoomStep)
	case deltaY > 0:
		v.ZoomAt(screen, 1/ZoomStep)
	}
}

func (v *Viewport) PanBy(dx, dy float64) {
	v.Offset.X += dx
	v.Offset.Y += dy
}
