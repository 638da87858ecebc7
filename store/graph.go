package store

import (
	"context"

	"gorm.io/gorm"

	"tagframe/models"
)

// ProjectReader is the read side the exporter needs: the project, its
// ordered labels, and its images with annotations, one page at a time.
type ProjectReader interface {
	Project(ctx context.Context, id uint) (*models.Project, error)
	ProjectLabels(ctx context.Context, id uint) ([]models.Label, error)
	// EachImageBatch calls fn with consecutive pages of the project's images
	// in list order, annotations preloaded in order. It stops at the first
	// error returned by fn.
	EachImageBatch(ctx context.Context, projectID uint, batchSize int, fn func([]models.Image) error) error
}

type graph struct {
	db *gorm.DB
}

func newGraph(db *gorm.DB) ProjectReader {
	return &graph{db}
}

func (g *graph) Project(ctx context.Context, id uint) (*models.Project, error) {
	var project models.Project
	if err := g.db.WithContext(ctx).First(&project, id).Error; err != nil {
		return nil, translate(err)
	}
	return &project, nil
}

func (g *graph) ProjectLabels(ctx context.Context, id uint) ([]models.Label, error) {
	return projectLabels(ctx, g.db, id)
}

// EachImageBatch pages by (position, id) with limit/offset rather than
// FindInBatches, which only walks primary key order.
func (g *graph) EachImageBatch(ctx context.Context, projectID uint, batchSize int, fn func([]models.Image) error) error {
	if batchSize <= 0 {
		batchSize = 100
	}
	for offset := 0; ; offset += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		var batch []models.Image
		err := g.db.WithContext(ctx).
			Preload("Annotations", func(tx *gorm.DB) *gorm.DB { return tx.Order("position").Order("id") }).
			Where("project_id = ?", projectID).
			Order("position").Order("id").
			Offset(offset).Limit(batchSize).
			Find(&batch).Error
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		if len(batch) < batchSize {
			return nil
		}
	}
}
