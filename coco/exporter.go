package coco

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"tagframe/models"
	"tagframe/store"
	"tagframe/utils"
)

const contributor = "tagframe"

// Exporter builds datasets from the store, one page of images at a time.
type Exporter struct {
	reader    store.ProjectReader
	opts      Options
	batchSize int
	version   string
	now       func() time.Time
}

func NewExporter(reader store.ProjectReader, config utils.ExportConfig, version string) *Exporter {
	return &Exporter{
		reader: reader,
		opts: Options{
			DefaultWidth:  config.DefaultWidth,
			DefaultHeight: config.DefaultHeight,
			PolygonArea:   AreaMode(config.PolygonArea),
		},
		batchSize: config.BatchSize,
		version:   version,
		now:       time.Now,
	}
}

// Export returns store.ErrNotFound when the project does not exist. The
// category map is rebuilt on every call from the current label order.
func (e *Exporter) Export(ctx context.Context, projectID uint) (*Dataset, Report, error) {
	project, err := e.reader.Project(ctx, projectID)
	if err != nil {
		return nil, Report{}, err
	}
	labels, err := e.reader.ProjectLabels(ctx, projectID)
	if err != nil {
		return nil, Report{}, fmt.Errorf("load labels of project %d: %w", projectID, err)
	}

	builder := NewBuilder(labels, e.opts)
	err = e.reader.EachImageBatch(ctx, projectID, e.batchSize, func(images []models.Image) error {
		for _, image := range images {
			builder.AddImage(image, image.Annotations)
		}
		return nil
	})
	if err != nil {
		return nil, Report{}, fmt.Errorf("read images of project %d: %w", projectID, err)
	}

	dataset := builder.Dataset(Info{
		Description: project.Name,
		Version:     e.version,
		Contributor: contributor,
		DateCreated: e.now().UTC().Format(time.RFC3339),
	})
	report := builder.Report()
	log.Info(fmt.Sprintf("Exported project %d: %d images, %d annotations, %d categories, %d skipped",
		projectID, len(dataset.Images), len(dataset.Annotations), len(dataset.Categories), len(report.SkippedAnnotations)))
	return dataset, report, nil
}
