package geometry

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ParseCoordinates reads a stored polygon coordinate list and normalizes it
// to a single ring. Accepted encodings:
//
//	[x1, y1, x2, y2, ...]            flat
//	[[x1, y1, x2, y2, ...], ...]     nested rings, the first ring is used
//	[[x1, y1], [x2, y2], ...]        nested points
//	[{"x": x1, "y": y1}, ...]        point objects
func ParseCoordinates(raw []byte) (Polygon, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Polygon{}, ErrMissingField
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return Polygon{}, fmt.Errorf("%w: %v", ErrMalformedCoordinates, err)
	}
	if len(items) == 0 {
		return Polygon{}, ErrTooFewPoints
	}

	var ring []Point
	var err error
	switch first := bytes.TrimSpace(items[0]); {
	case len(first) > 0 && first[0] == '[':
		ring, err = parseNested(items)
	case len(first) > 0 && first[0] == '{':
		ring, err = parsePointObjects(raw)
	default:
		ring, err = parseFlat(raw)
	}
	if err != nil {
		return Polygon{}, err
	}

	poly := Polygon{Ring: ring}
	if err := poly.Validate(); err != nil {
		return Polygon{}, err
	}
	return poly, nil
}

func parseFlat(raw []byte) ([]Point, error) {
	var flat []float64
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCoordinates, err)
	}
	return pairs(flat)
}

func parseNested(items []json.RawMessage) ([]Point, error) {
	rows := make([][]float64, 0, len(items))
	for _, item := range items {
		var row []float64
		if err := json.Unmarshal(item, &row); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCoordinates, err)
		}
		rows = append(rows, row)
	}

	// A list of [x, y] pairs is one ring of points. Anything else is a list
	// of flat rings and only the first one is kept.
	if len(rows) > 1 {
		allPairs := true
		for _, row := range rows {
			if len(row) != 2 {
				allPairs = false
				break
			}
		}
		if allPairs {
			ring := make([]Point, 0, len(rows))
			for _, row := range rows {
				ring = append(ring, Point{X: row[0], Y: row[1]})
			}
			return ring, nil
		}
	}
	return pairs(rows[0])
}

func parsePointObjects(raw []byte) ([]Point, error) {
	var objs []struct {
		X *float64 `json:"x"`
		Y *float64 `json:"y"`
	}
	if err := json.Unmarshal(raw, &objs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCoordinates, err)
	}
	ring := make([]Point, 0, len(objs))
	for i, o := range objs {
		if o.X == nil || o.Y == nil {
			return nil, fmt.Errorf("%w: point %d", ErrMissingField, i)
		}
		ring = append(ring, Point{X: *o.X, Y: *o.Y})
	}
	return ring, nil
}

func pairs(flat []float64) ([]Point, error) {
	if len(flat)%2 != 0 {
		return nil, fmt.Errorf("%w: odd number of values (%d)", ErrMalformedCoordinates, len(flat))
	}
	ring := make([]Point, 0, len(flat)/2)
	for i := 0; i < len(flat); i += 2 {
		ring = append(ring, Point{X: flat[i], Y: flat[i+1]})
	}
	return ring, nil
}

// ParseBBox reads a stored 4-slot box. ok is false when the value is absent,
// has the wrong length, or any slot is null.
func ParseBBox(raw []byte) (box BBox, ok bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return BBox{}, false
	}
	var slots []*float64
	if err := json.Unmarshal(raw, &slots); err != nil || len(slots) != 4 {
		return BBox{}, false
	}
	for i, s := range slots {
		if s == nil {
			return BBox{}, false
		}
		box[i] = *s
	}
	return box, true
}
