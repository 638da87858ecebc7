package store

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"

	"tagframe/models"
)

type ImageInterface interface {
	// Create appends the image at the end of the project's image list.
	Create(ctx context.Context, object *models.Image) (*models.Image, error)
	Get(ctx context.Context, id uint) (*models.Image, error)
	List(ctx context.Context, projectID uint, opts ...Options) ([]models.Image, error)
	Count(ctx context.Context, projectID uint) (int64, error)
	// Delete removes the image and its annotations and returns the deleted row.
	Delete(ctx context.Context, id uint) (*models.Image, error)
	// Reorder rewrites positions so the project's images follow ids.
	Reorder(ctx context.Context, projectID uint, ids []uint) error
}

type images struct {
	db *gorm.DB
}

func newImages(db *gorm.DB) ImageInterface {
	return &images{db}
}

func nextPosition(tx *gorm.DB, model interface{}, column string, value uint) (int, error) {
	var last sql.NullInt64
	if err := tx.Model(model).Where(column+" = ?", value).Select("MAX(position)").Row().Scan(&last); err != nil {
		return 0, err
	}
	if !last.Valid {
		return 0, nil
	}
	return int(last.Int64) + 1, nil
}

func (i *images) Create(ctx context.Context, object *models.Image) (*models.Image, error) {
	err := i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.Select("id").First(&project, object.ProjectID).Error; err != nil {
			return err
		}
		pos, err := nextPosition(tx, &models.Image{}, "project_id", object.ProjectID)
		if err != nil {
			return err
		}
		object.Position = pos
		return tx.Omit("Annotations").Create(object).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return object, nil
}

func (i *images) Get(ctx context.Context, id uint) (*models.Image, error) {
	var image models.Image
	if err := i.db.WithContext(ctx).First(&image, id).Error; err != nil {
		return nil, translate(err)
	}
	return &image, nil
}

func (i *images) List(ctx context.Context, projectID uint, opts ...Options) ([]models.Image, error) {
	var list []models.Image
	tx := i.db.WithContext(ctx).Where("project_id = ?", projectID)
	opts = append([]Options{WithOrderByPosition()}, opts...)
	if err := apply(tx, opts).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (i *images) Count(ctx context.Context, projectID uint) (int64, error) {
	var total int64
	if err := i.db.WithContext(ctx).Model(&models.Image{}).Where("project_id = ?", projectID).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (i *images) Delete(ctx context.Context, id uint) (*models.Image, error) {
	var image models.Image
	err := i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&image, id).Error; err != nil {
			return err
		}
		if err := tx.Where("image_id = ?", id).Delete(&models.Annotation{}).Error; err != nil {
			return err
		}
		return tx.Delete(&image).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &image, nil
}

func (i *images) Reorder(ctx context.Context, projectID uint, ids []uint) error {
	err := i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []uint
		if err := tx.Model(&models.Image{}).Where("project_id = ?", projectID).Pluck("id", &existing).Error; err != nil {
			return err
		}
		if !sameIDs(existing, ids) {
			return fmt.Errorf("%w: reorder must list every image of the project exactly once", ErrInvalidInput)
		}
		for pos, id := range ids {
			if err := tx.Model(&models.Image{}).Where("id = ?", id).Update("position", pos).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return translate(err)
}

func sameIDs(a, b []uint) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[uint]int, len(a))
	for _, id := range a {
		seen[id]++
	}
	for _, id := range b {
		if seen[id] == 0 {
			return false
		}
		seen[id]--
	}
	return true
}
