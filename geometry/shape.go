// Package geometry holds the annotation shapes and the small amount of
// plane geometry needed to draw, store and export them.
package geometry

import (
	"errors"
	"math"
)

var (
	ErrMalformedCoordinates = errors.New("malformed coordinates")
	ErrTooFewPoints         = errors.New("polygon needs at least 3 points")
	ErrMissingField         = errors.New("missing shape field")
	ErrUnknownShape         = errors.New("unknown shape type")
)

// Shape type names as they appear on the wire and in the database.
const (
	TypeRectangle = "rectangle"
	TypePolygon   = "polygon"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance Euclidean distance between two points
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// BBox is [x, y, width, height].
type BBox [4]float64

// Shape is either a Rectangle or a Polygon. The unexported method seals the
// set, so a type switch over the two is exhaustive.
type Shape interface {
	Type() string
	Bounds() BBox
	shape()
}

// Rectangle an axis aligned box in image pixel space
type Rectangle struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

func (Rectangle) Type() string { return TypeRectangle }
func (Rectangle) shape()        {}

func (r Rectangle) Bounds() BBox {
	n := r.Normalize()
	return BBox{n.X, n.Y, n.Width, n.Height}
}

// Normalize returns the same box with non-negative width and height, moving
// the origin to the top-left corner when the box was dragged backwards.
func (r Rectangle) Normalize() Rectangle {
	if r.Width < 0 {
		r.X += r.Width
		r.Width = -r.Width
	}
	if r.Height < 0 {
		r.Y += r.Height
		r.Height = -r.Height
	}
	return r
}

func (r Rectangle) Area() float64 {
	n := r.Normalize()
	return n.Width * n.Height
}

// Corners returns the four corners clockwise (in image coordinates, y down)
// starting at the origin.
func (r Rectangle) Corners() []Point {
	n := r.Normalize()
	return []Point{
		{n.X, n.Y},
		{n.X + n.Width, n.Y},
		{n.X + n.Width, n.Y + n.Height},
		{n.X, n.Y + n.Height},
	}
}

// RectangleFromCorners builds a normalized rectangle from two opposite corners.
func RectangleFromCorners(a, b Point) Rectangle {
	return Rectangle{X: a.X, Y: a.Y, Width: b.X - a.X, Height: b.Y - a.Y}.Normalize()
}

// Polygon a single ring of points. The ring may or may not repeat its first
// point at the end.
type Polygon struct {
	Ring []Point
}

func (Polygon) Type() string { return TypePolygon }
func (Polygon) shape()        {}

func (p Polygon) Bounds() BBox {
	if len(p.Ring) == 0 {
		return BBox{}
	}
	minX, minY := p.Ring[0].X, p.Ring[0].Y
	maxX, maxY := minX, minY
	for _, pt := range p.Ring[1:] {
		minX = math.Min(minX, pt.X)
		minY = math.Min(minY, pt.Y)
		maxX = math.Max(maxX, pt.X)
		maxY = math.Max(maxY, pt.Y)
	}
	return BBox{minX, minY, maxX - minX, maxY - minY}
}

// Closed reports whether the last point repeats the first one.
func (p Polygon) Closed() bool {
	n := len(p.Ring)
	return n > 1 && p.Ring[0] == p.Ring[n-1]
}

// Close returns the polygon with its first point appended if it was open.
func (p Polygon) Close() Polygon {
	if len(p.Ring) == 0 || p.Closed() {
		return p
	}
	ring := make([]Point, len(p.Ring), len(p.Ring)+1)
	copy(ring, p.Ring)
	return Polygon{Ring: append(ring, ring[0])}
}

// Validate checks that the ring has at least three distinct vertices.
func (p Polygon) Validate() error {
	n := len(p.Ring)
	if p.Closed() {
		n--
	}
	if n < 3 {
		return ErrTooFewPoints
	}
	for _, pt := range p.Ring {
		if math.IsNaN(pt.X) || math.IsNaN(pt.Y) || math.IsInf(pt.X, 0) || math.IsInf(pt.Y, 0) {
			return ErrMalformedCoordinates
		}
	}
	return nil
}

// ShoelaceArea the absolute area enclosed by the ring
func (p Polygon) ShoelaceArea() float64 {
	n := len(p.Ring)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		a := p.Ring[i]
		b := p.Ring[(i+1)%n]
		sum += a.X*b.Y - b.X*a.Y
	}
	return math.Abs(sum) / 2
}

// Flatten returns the points as [x1, y1, x2, y2, ...].
func Flatten(points []Point) []float64 {
	flat := make([]float64, 0, len(points)*2)
	for _, pt := range points {
		flat = append(flat, pt.X, pt.Y)
	}
	return flat
}
