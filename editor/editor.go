// Package editor models the annotation editor without any UI: a state
// machine fed with pointer and key events, a pan/zoom viewport, and a
// Syncer that persists finalized shapes optimistically.
package editor

import (
	"errors"
	"fmt"

	"tagframe/geometry"
	"tagframe/models"
)

type State string

const (
	StateIdle             State = "idle"
	StateDrawingRectangle State = "drawing-rectangle"
	StateDrawingPolygon   State = "drawing-polygon"
)

type Tool string

const (
	ToolRectangle Tool = "rectangle"
	ToolPolygon   Tool = "polygon"
)

// Keys understood by KeyDown.
const (
	KeyRectangle = "r"
	KeyPolygon   = "p"
	KeyEscape    = "Escape"
	KeyEnter     = "Enter"
)

// CloseRadius is the distance in stage pixels within which a click on the
// first vertex closes a polygon.
const CloseRadius = 10.0

var ErrNotDrawingPolygon = errors.New("no polygon in progress")

// Sink receives finalized annotations. *Syncer is the usual sink.
type Sink interface {
	Queue(annotation models.Annotation)
}

type Editor struct {
	state    State
	viewport Viewport
	sink     Sink
	notifier Notifier

	// ActiveLabel is assigned to every shape finalized from now on.
	ActiveLabel *uint

	dragging bool
	anchor   geometry.Point
	corner   geometry.Point
	vertices []geometry.Point

	panning bool
	panFrom geometry.Point
}

func New(sink Sink, notifier Notifier) *Editor {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Editor{
		state:    StateIdle,
		viewport: NewViewport(),
		sink:     sink,
		notifier: notifier,
	}
}

func (e *Editor) State() State { return e.state }

func (e *Editor) Viewport() Viewport { return e.viewport }

// Vertices returns a copy of the polygon vertices placed so far.
func (e *Editor) Vertices() []geometry.Point {
	return append([]geometry.Point(nil), e.vertices...)
}

// Preview returns the shape being drawn, if any.
func (e *Editor) Preview() (geometry.Shape, bool) {
	switch {
	case e.state == StateDrawingRectangle && e.dragging:
		return geometry.RectangleFromCorners(e.anchor, e.corner), true
	case e.state == StateDrawingPolygon && len(e.vertices) > 0:
		return geometry.Polygon{Ring: e.Vertices()}, true
	}
	return nil, false
}

func (e *Editor) inProgress() bool {
	return e.dragging || len(e.vertices) > 0
}

func (e *Editor) reset() {
	e.dragging = false
	e.vertices = nil
	e.panning = false
}

func stateFor(tool Tool) State {
	switch tool {
	case ToolRectangle:
		return StateDrawingRectangle
	case ToolPolygon:
		return StateDrawingPolygon
	}
	return StateIdle
}

// ActivateTool switches to the tool's drawing state. Activating the tool
// that is already active returns to idle. Any shape in progress is dropped.
func (e *Editor) ActivateTool(tool Tool) {
	next := stateFor(tool)
	if next == e.state {
		next = StateIdle
	}
	e.reset()
	e.state = next
}

// Cancel drops any shape in progress and returns to idle.
func (e *Editor) Cancel() {
	e.reset()
	e.state = StateIdle
}

func (e *Editor) KeyDown(key string) {
	switch key {
	case KeyRectangle:
		e.ActivateTool(ToolRectangle)
	case KeyPolygon:
		e.ActivateTool(ToolPolygon)
	case KeyEscape:
		e.Cancel()
	case KeyEnter:
		if e.state == StateDrawingPolygon {
			_ = e.Finish()
		}
	}
}

func (e *Editor) PointerDown(screen geometry.Point) {
	switch e.state {
	case StateIdle:
		e.panning = true
		e.panFrom = screen
	case StateDrawingRectangle:
		p := e.viewport.ToContent(screen)
		e.dragging = true
		e.anchor, e.corner = p, p
	case StateDrawingPolygon:
		p := e.viewport.ToContent(screen)
		if len(e.vertices) >= 3 && p.Distance(e.vertices[0]) <= CloseRadius/e.viewport.Scale {
			e.closePolygon()
			return
		}
		e.vertices = append(e.vertices, p)
	}
}

// PointerMove updates the rectangle corner or pans the stage. buttonHeld
// reports whether a button or touch is active.
func (e *Editor) PointerMove(screen geometry.Point, buttonHeld bool) {
	if !buttonHeld {
		e.panning = false
		return
	}
	switch {
	case e.state == StateDrawingRectangle && e.dragging:
		e.corner = e.viewport.ToContent(screen)
	case e.state == StateIdle && e.panning && !e.inProgress():
		e.viewport.PanBy(screen.X-e.panFrom.X, screen.Y-e.panFrom.Y)
		e.panFrom = screen
	}
}

func (e *Editor) PointerUp(screen geometry.Point) {
	e.panning = false
	if e.state != StateDrawingRectangle || !e.dragging {
		return
	}
	e.corner = e.viewport.ToContent(screen)
	rect := geometry.RectangleFromCorners(e.anchor, e.corner)
	e.reset()
	e.state = StateIdle

	if rect.Area() == 0 {
		e.notifier.Warn("Rectangle has no area and was discarded")
		return
	}
	e.emit(rect)
}

// Wheel zooms around the pointer. Zoom is available in every state.
func (e *Editor) Wheel(screen geometry.Point, deltaY float64) {
	e.viewport.Wheel(screen, deltaY)
}

// Finish closes the polygon in progress. It needs at least three vertices;
// otherwise the editor warns and stays where it is.
func (e *Editor) Finish() error {
	if e.state != StateDrawingPolygon {
		return ErrNotDrawingPolygon
	}
	if len(e.vertices) < 3 {
		e.notifier.Warn(fmt.Sprintf("A polygon needs at least 3 points, it has %d", len(e.vertices)))
		return geometry.ErrTooFewPoints
	}
	e.closePolygon()
	return nil
}

func (e *Editor) closePolygon() {
	poly := geometry.Polygon{Ring: e.Vertices()}.Close()
	e.reset()
	e.state = StateIdle
	e.emit(poly)
}

func (e *Editor) emit(shape geometry.Shape) {
	var annotation models.Annotation
	if err := annotation.SetShape(shape); err != nil {
		e.notifier.Error(err)
		return
	}
	if e.ActiveLabel != nil {
		id := *e.ActiveLabel
		annotation.LabelID = &id
	}
	if e.sink != nil {
		e.sink.Queue(annotation)
	}
}
