package coco

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"tagframe/geometry"
	"tagframe/models"
)

// AreaMode selects how polygon areas are reported.
type AreaMode string

const (
	// AreaZero reports 0 for every polygon.
	AreaZero AreaMode = "zero"
	// AreaShoelace reports the area enclosed by the ring.
	AreaShoelace AreaMode = "shoelace"
)

const (
	DefaultWidth  = 640
	DefaultHeight = 480

	// UnknownCategory is used for annotations without a label of the project.
	UnknownCategory = 0

	supercategory = "none"
	noLicense     = 0
)

type Options struct {
	DefaultWidth  int
	DefaultHeight int
	PolygonArea   AreaMode
}

func (o Options) withDefaults() Options {
	if o.DefaultWidth <= 0 {
		o.DefaultWidth = DefaultWidth
	}
	if o.DefaultHeight <= 0 {
		o.DefaultHeight = DefaultHeight
	}
	if o.PolygonArea == "" {
		o.PolygonArea = AreaZero
	}
	return o
}

// Builder accumulates images one at a time. Image and annotation ids are
// assigned in the order things are added, so feeding images in list order
// makes the output deterministic.
type Builder struct {
	opts       Options
	categories []Category
	byLabel    map[uint]int

	images      []Image
	annotations []Annotation
	report      Report
}

// NewBuilder maps labels, in the given order, to categories 1..len(labels).
func NewBuilder(labels []models.Label, opts Options) *Builder {
	b := &Builder{
		opts:        opts.withDefaults(),
		categories:  make([]Category, 0, len(labels)),
		byLabel:     make(map[uint]int, len(labels)),
		images:      []Image{},
		annotations: []Annotation{},
	}
	for i, label := range labels {
		id := i + 1
		b.byLabel[label.ID] = id
		b.categories = append(b.categories, Category{
			ID:            id,
			Name:          label.Name,
			Color:         label.Color,
			Supercategory: supercategory,
		})
	}
	return b
}

func (b *Builder) categoryFor(labelID *uint) int {
	if labelID == nil {
		return UnknownCategory
	}
	if id, ok := b.byLabel[*labelID]; ok {
		return id
	}
	return UnknownCategory
}

// AddImage appends image and converts its annotations. Annotations that
// cannot be decoded are skipped and recorded in the report.
func (b *Builder) AddImage(image models.Image, annotations []models.Annotation) {
	imageID := len(b.images) + 1

	width, height := b.opts.DefaultWidth, b.opts.DefaultHeight
	if image.Width != nil && image.Height != nil && *image.Width > 0 && *image.Height > 0 {
		width, height = *image.Width, *image.Height
	} else {
		b.report.DefaultedImages = append(b.report.DefaultedImages, image.ID)
		log.Warn(fmt.Sprintf("Image %d (%s) has no dimensions, exporting as %dx%d", image.ID, image.FileName, width, height))
	}

	b.images = append(b.images, Image{
		ID:           imageID,
		FileName:     image.FileName,
		Width:        width,
		Height:       height,
		License:      noLicense,
		DateCaptured: image.CreatedAt.UTC().Format(time.RFC3339),
	})

	for i := range annotations {
		a := &annotations[i]
		entry, err := b.convert(a)
		if err != nil {
			b.report.SkippedAnnotations = append(b.report.SkippedAnnotations, Skipped{
				AnnotationID: a.ID,
				ImageID:      image.ID,
				Reason:       err.Error(),
			})
			log.Warn(fmt.Sprintf("Skipping annotation %d of image %d: %s", a.ID, image.ID, err))
			continue
		}
		entry.ID = len(b.annotations) + 1
		entry.ImageID = imageID
		entry.CategoryID = b.categoryFor(a.LabelID)
		b.annotations = append(b.annotations, entry)
	}
}

func (b *Builder) convert(a *models.Annotation) (Annotation, error) {
	shape, err := a.Shape()
	if err != nil {
		return Annotation{}, err
	}

	switch s := shape.(type) {
	case geometry.Rectangle:
		r := s.Normalize()
		return Annotation{
			Segmentation: [][]float64{geometry.Flatten(r.Corners())},
			BBox:         [4]float64{r.X, r.Y, r.Width, r.Height},
			Area:         r.Area(),
		}, nil
	case geometry.Polygon:
		entry := Annotation{
			Segmentation: [][]float64{geometry.Flatten(s.Ring)},
			BBox:         s.Bounds(),
		}
		if b.opts.PolygonArea == AreaShoelace {
			entry.Area = s.ShoelaceArea()
		}
		return entry, nil
	}
	return Annotation{}, geometry.ErrUnknownShape
}

// Dataset returns everything added so far under info.
func (b *Builder) Dataset(info Info) *Dataset {
	return &Dataset{
		Info:        info,
		Licenses:    []License{},
		Images:      b.images,
		Annotations: b.annotations,
		Categories:  b.categories,
	}
}

func (b *Builder) Report() Report {
	return b.report
}
