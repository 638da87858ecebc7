package models

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"tagframe/geometry"
)

// Annotation is the stored form of a shape. Rectangles keep x/y/width/height
// and optionally an explicit bbox; polygons keep their coordinates in
// whatever flat or nested form they were written with.
type Annotation struct {
	Base
	ImageID     uint           `json:"image_id" gorm:"not null;index:idx_annotation_image_position"`
	Position    int            `json:"position" gorm:"index:idx_annotation_image_position"`
	Type        string         `json:"type" gorm:"size:16;not null"`
	X           *float64       `json:"x,omitempty"`
	Y           *float64       `json:"y,omitempty"`
	Width       *float64       `json:"width,omitempty"`
	Height      *float64       `json:"height,omitempty"`
	BBox        datatypes.JSON `json:"bbox,omitempty" gorm:"column:bbox"`
	Coordinates datatypes.JSON `json:"coordinates,omitempty"`
	LabelID     *uint          `json:"label_id" gorm:"index"`
	Label       *Label         `json:"label,omitempty" gorm:"foreignKey:LabelID"`
}

// Shape decodes the stored fields into a geometry shape. For rectangles an
// explicit bbox wins over x/y/width/height when every slot is set.
func (a *Annotation) Shape() (geometry.Shape, error) {
	switch a.Type {
	case geometry.TypeRectangle:
		if box, ok := geometry.ParseBBox(a.BBox); ok {
			return geometry.Rectangle{X: box[0], Y: box[1], Width: box[2], Height: box[3]}, nil
		}
		if a.X == nil || a.Y == nil || a.Width == nil || a.Height == nil {
			return nil, fmt.Errorf("rectangle %d: %w", a.ID, geometry.ErrMissingField)
		}
		return geometry.Rectangle{X: *a.X, Y: *a.Y, Width: *a.Width, Height: *a.Height}, nil
	case geometry.TypePolygon:
		poly, err := geometry.ParseCoordinates(a.Coordinates)
		if err != nil {
			return nil, fmt.Errorf("polygon %d: %w", a.ID, err)
		}
		return poly, nil
	default:
		return nil, fmt.Errorf("annotation %d type %q: %w", a.ID, a.Type, geometry.ErrUnknownShape)
	}
}

// SetShape overwrites the geometric fields from shape.
func (a *Annotation) SetShape(shape geometry.Shape) error {
	a.X, a.Y, a.Width, a.Height = nil, nil, nil, nil
	a.BBox, a.Coordinates = nil, nil

	switch s := shape.(type) {
	case geometry.Rectangle:
		r := s.Normalize()
		a.Type = geometry.TypeRectangle
		a.X, a.Y, a.Width, a.Height = &r.X, &r.Y, &r.Width, &r.Height
		box, err := json.Marshal([]float64{r.X, r.Y, r.Width, r.Height})
		if err != nil {
			return err
		}
		a.BBox = box
	case geometry.Polygon:
		a.Type = geometry.TypePolygon
		coords, err := json.Marshal(geometry.Flatten(s.Ring))
		if err != nil {
			return err
		}
		a.Coordinates = coords
	default:
		return geometry.ErrUnknownShape
	}
	return nil
}
