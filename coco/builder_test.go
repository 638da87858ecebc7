package coco

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"tagframe/geometry"
	"tagframe/models"
)

func ptr[T any](v T) *T { return &v }

func label(id uint, name string) models.Label {
	l := models.Label{Name: name, Color: "#00ff00"}
	l.ID = id
	return l
}

func image(id uint, w, h *int) models.Image {
	img := models.Image{FileName: "img.jpg", Width: w, Height: h}
	img.ID = id
	return img
}

func rectangle(id uint, x, y, w, h float64, labelID *uint) models.Annotation {
	a := models.Annotation{Type: geometry.TypeRectangle, X: &x, Y: &y, Width: &w, Height: &h, LabelID: labelID}
	a.ID = id
	return a
}

func polygon(id uint, coords string, labelID *uint) models.Annotation {
	a := models.Annotation{Type: geometry.TypePolygon, Coordinates: datatypes.JSON(coords), LabelID: labelID}
	a.ID = id
	return a
}

func TestCategoriesFollowLabelOrder(t *testing.T) {
	labels := []models.Label{label(7, "tree"), label(3, "bird"), label(9, "car")}
	b := NewBuilder(labels, Options{})
	for i := 0; i < 4; i++ {
		b.AddImage(image(uint(i+1), ptr(100), ptr(50)), nil)
	}
	ds := b.Dataset(Info{})

	require.Len(t, ds.Images, 4)
	require.Len(t, ds.Categories, 3)
	for i, c := range ds.Categories {
		assert.Equal(t, i+1, c.ID)
		assert.Equal(t, labels[i].Name, c.Name)
		assert.Equal(t, "none", c.Supercategory)
	}
	for i, img := range ds.Images {
		assert.Equal(t, i+1, img.ID)
	}
	assert.Empty(t, ds.Licenses)
	assert.NotNil(t, ds.Licenses)
}

func TestRectangleConversion(t *testing.T) {
	b := NewBuilder([]models.Label{label(1, "bird")}, Options{})
	b.AddImage(image(1, ptr(100), ptr(100)), []models.Annotation{rectangle(1, 10, 20, 30, 40, ptr(uint(1)))})
	ds := b.Dataset(Info{})

	require.Len(t, ds.Annotations, 1)
	a := ds.Annotations[0]
	assert.Equal(t, [4]float64{10, 20, 30, 40}, a.BBox)
	assert.Equal(t, 1200.0, a.Area)
	assert.Equal(t, [][]float64{{10, 20, 40, 20, 40, 60, 10, 60}}, a.Segmentation)
	assert.Equal(t, 1, a.CategoryID)
	assert.Equal(t, 0, a.IsCrowd)
}

func TestRectanglePrefersCompleteBBox(t *testing.T) {
	withBox := rectangle(1, 0, 0, 1, 1, nil)
	withBox.BBox = datatypes.JSON(`[5,6,7,8]`)
	partialBox := rectangle(2, 1, 2, 3, 4, nil)
	partialBox.BBox = datatypes.JSON(`[5,null,7,8]`)

	b := NewBuilder(nil, Options{})
	b.AddImage(image(1, ptr(10), ptr(10)), []models.Annotation{withBox, partialBox})
	ds := b.Dataset(Info{})

	require.Len(t, ds.Annotations, 2)
	assert.Equal(t, [4]float64{5, 6, 7, 8}, ds.Annotations[0].BBox)
	assert.Equal(t, 56.0, ds.Annotations[0].Area)
	assert.Equal(t, [4]float64{1, 2, 3, 4}, ds.Annotations[1].BBox)
}

func TestPolygonConversion(t *testing.T) {
	tests := []struct {
		name   string
		coords string
	}{
		{"flat", `[0,0,10,0,10,10,0,10]`},
		{"nested ring", `[[0,0,10,0,10,10,0,10]]`},
		{"nested points", `[[0,0],[10,0],[10,10],[0,10]]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder(nil, Options{})
			b.AddImage(image(1, ptr(10), ptr(10)), []models.Annotation{polygon(1, tt.coords, nil)})
			ds := b.Dataset(Info{})

			require.Len(t, ds.Annotations, 1)
			a := ds.Annotations[0]
			assert.Equal(t, [4]float64{0, 0, 10, 10}, a.BBox)
			assert.Equal(t, [][]float64{{0, 0, 10, 0, 10, 10, 0, 10}}, a.Segmentation)
			assert.Zero(t, a.Area)
		})
	}
}

func TestPolygonShoelaceArea(t *testing.T) {
	b := NewBuilder(nil, Options{PolygonArea: AreaShoelace})
	b.AddImage(image(1, ptr(10), ptr(10)), []models.Annotation{polygon(1, `[0,0,10,0,10,10,0,10]`, nil)})
	ds := b.Dataset(Info{})

	require.Len(t, ds.Annotations, 1)
	assert.Equal(t, 100.0, ds.Annotations[0].Area)
}

func TestUnknownLabelMapsToZero(t *testing.T) {
	b := NewBuilder([]models.Label{label(1, "bird")}, Options{})
	b.AddImage(image(1, ptr(10), ptr(10)), []models.Annotation{
		rectangle(1, 0, 0, 1, 1, ptr(uint(42))),
		rectangle(2, 0, 0, 1, 1, nil),
	})
	ds := b.Dataset(Info{})

	require.Len(t, ds.Annotations, 2)
	assert.Equal(t, UnknownCategory, ds.Annotations[0].CategoryID)
	assert.Equal(t, UnknownCategory, ds.Annotations[1].CategoryID)
}

func TestMissingDimensionsAreDefaultedAndReported(t *testing.T) {
	b := NewBuilder(nil, Options{})
	b.AddImage(image(11, nil, nil), nil)
	b.AddImage(image(12, ptr(20), ptr(30)), nil)
	b.AddImage(image(13, ptr(20), nil), nil)
	ds := b.Dataset(Info{})

	assert.Equal(t, 640, ds.Images[0].Width)
	assert.Equal(t, 480, ds.Images[0].Height)
	assert.Equal(t, 20, ds.Images[1].Width)
	assert.Equal(t, []uint{11, 13}, b.Report().DefaultedImages)
}

func TestMalformedAnnotationsAreSkipped(t *testing.T) {
	missing := models.Annotation{Type: geometry.TypeRectangle}
	missing.ID = 2
	unknown := models.Annotation{Type: "circle"}
	unknown.ID = 4

	b := NewBuilder(nil, Options{})
	b.AddImage(image(1, ptr(10), ptr(10)), []models.Annotation{
		rectangle(1, 0, 0, 1, 1, nil),
		missing,
		polygon(3, `[0,0,1,1]`, nil),
		unknown,
		polygon(5, `[0,0,1,0,1,1]`, nil),
	})
	ds := b.Dataset(Info{})

	require.Len(t, ds.Annotations, 2)
	assert.Equal(t, 1, ds.Annotations[0].ID)
	assert.Equal(t, 2, ds.Annotations[1].ID, "ids stay sequential across skipped annotations")

	skipped := b.Report().SkippedAnnotations
	require.Len(t, skipped, 3)
	assert.Equal(t, []uint{2, 3, 4}, []uint{skipped[0].AnnotationID, skipped[1].AnnotationID, skipped[2].AnnotationID})
}

func TestAnnotationIDsFollowImageOrder(t *testing.T) {
	b := NewBuilder(nil, Options{})
	b.AddImage(image(1, ptr(10), ptr(10)), []models.Annotation{rectangle(10, 0, 0, 1, 1, nil), rectangle(11, 0, 0, 1, 1, nil)})
	b.AddImage(image(2, ptr(10), ptr(10)), []models.Annotation{rectangle(5, 0, 0, 1, 1, nil)})
	ds := b.Dataset(Info{})

	require.Len(t, ds.Annotations, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{ds.Annotations[0].ID, ds.Annotations[1].ID, ds.Annotations[2].ID})
	assert.Equal(t, []int{1, 1, 2}, []int{ds.Annotations[0].ImageID, ds.Annotations[1].ImageID, ds.Annotations[2].ImageID})
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "project_42_COCO.json", FileName(42))
}
