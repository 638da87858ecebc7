package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRectangleNormalize(t *testing.T) {
	r := Rectangle{X: 50, Y: 60, Width: -30, Height: -40}.Normalize()
	assert.Equal(t, Rectangle{X: 20, Y: 20, Width: 30, Height: 40}, r)

	r = RectangleFromCorners(Point{10, 90}, Point{40, 50})
	assert.Equal(t, Rectangle{X: 10, Y: 50, Width: 30, Height: 40}, r)
}

func TestRectangleCornersClockwise(t *testing.T) {
	r := Rectangle{X: 10, Y: 20, Width: 30, Height: 40}
	assert.Equal(t, []Point{{10, 20}, {40, 20}, {40, 60}, {10, 60}}, r.Corners())
	assert.Equal(t, 1200.0, r.Area())
	assert.Equal(t, BBox{10, 20, 30, 40}, r.Bounds())
}

func TestPolygonBoundsAndArea(t *testing.T) {
	p := Polygon{Ring: []Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}}}
	assert.Equal(t, BBox{0, 0, 10, 10}, p.Bounds())
	assert.InDelta(t, 100.0, p.ShoelaceArea(), 1e-9)

	closed := p.Close()
	assert.True(t, closed.Closed())
	assert.Len(t, closed.Ring, 5)
	assert.InDelta(t, 100.0, closed.ShoelaceArea(), 1e-9)
	assert.Len(t, p.Ring, 4, "Close must not modify the receiver")
}

func TestPolygonValidate(t *testing.T) {
	require.ErrorIs(t, Polygon{Ring: []Point{{0, 0}, {1, 1}}}.Validate(), ErrTooFewPoints)
	require.ErrorIs(t, Polygon{Ring: []Point{{0, 0}, {1, 1}, {0, 0}}}.Validate(), ErrTooFewPoints)
	require.NoError(t, Polygon{Ring: []Point{{0, 0}, {1, 0}, {1, 1}}}.Validate())
}

func TestParseCoordinates(t *testing.T) {
	square := []Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}}

	tests := []struct {
		name string
		raw  string
		want []Point
		err  error
	}{
		{name: "flat", raw: `[0,0,10,0,10,10,0,10]`, want: square},
		{name: "nested ring", raw: `[[0,0,10,0,10,10,0,10]]`, want: square},
		{name: "nested rings keeps first", raw: `[[0,0,10,0,10,10,0,10],[1,1,2,2,3,1]]`, want: square},
		{name: "nested pairs", raw: `[[0,0],[10,0],[10,10],[0,10]]`, want: square},
		{name: "point objects", raw: `[{"x":0,"y":0},{"x":10,"y":0},{"x":10,"y":10},{"x":0,"y":10}]`, want: square},
		{name: "odd length", raw: `[0,0,10,0,10]`, err: ErrMalformedCoordinates},
		{name: "not an array", raw: `{"x":1}`, err: ErrMalformedCoordinates},
		{name: "strings", raw: `["a","b"]`, err: ErrMalformedCoordinates},
		{name: "too few", raw: `[0,0,1,1]`, err: ErrTooFewPoints},
		{name: "empty", raw: `[]`, err: ErrTooFewPoints},
		{name: "null", raw: `null`, err: ErrMissingField},
		{name: "missing y", raw: `[{"x":0},{"x":1,"y":1},{"x":2,"y":0}]`, err: ErrMissingField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			poly, err := ParseCoordinates([]byte(tt.raw))
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, poly.Ring)
		})
	}
}

func TestParseBBox(t *testing.T) {
	box, ok := ParseBBox([]byte(`[10,20,30,40]`))
	require.True(t, ok)
	assert.Equal(t, BBox{10, 20, 30, 40}, box)

	for _, raw := range []string{``, `null`, `[10,20,null,40]`, `[1,2,3]`, `"x"`} {
		_, ok := ParseBBox([]byte(raw))
		assert.False(t, ok, raw)
	}
}

func TestFlatten(t *testing.T) {
	assert.Equal(t, []float64{1, 2, 3, 4}, Flatten([]Point{{1, 2}, {3, 4}}))
}
