package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"tagframe/models"
)

type AnnotationInterface interface {
	// ListForImage returns the image's annotations in order with labels populated.
	ListForImage(ctx context.Context, imageID uint) ([]models.Annotation, error)
	// Save creates annotations without an id and updates those with one, in
	// the given order, then returns the image's full populated list.
	Save(ctx context.Context, imageID uint, items []models.Annotation) ([]models.Annotation, error)
	Get(ctx context.Context, id uint) (*models.Annotation, error)
	UpdateLabel(ctx context.Context, id uint, labelID *uint) (*models.Annotation, error)
	Delete(ctx context.Context, id uint) error
	// ProjectID resolves the project owning an annotation through its image.
	ProjectID(ctx context.Context, id uint) (uint, error)
}

type annotations struct {
	db *gorm.DB
}

func newAnnotations(db *gorm.DB) AnnotationInterface {
	return &annotations{db}
}

func (a *annotations) ListForImage(ctx context.Context, imageID uint) ([]models.Annotation, error) {
	var list []models.Annotation
	err := a.db.WithContext(ctx).
		Preload("Label").
		Where("image_id = ?", imageID).
		Order("position").Order("id").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func checkLabel(tx *gorm.DB, labelID *uint) error {
	if labelID == nil {
		return nil
	}
	var count int64
	if err := tx.Model(&models.Label{}).Where("id = ?", *labelID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: label %d does not exist", ErrInvalidInput, *labelID)
	}
	return nil
}

func (a *annotations) Save(ctx context.Context, imageID uint, items []models.Annotation) ([]models.Annotation, error) {
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var image models.Image
		if err := tx.Select("id").First(&image, imageID).Error; err != nil {
			return err
		}
		pos, err := nextPosition(tx, &models.Annotation{}, "image_id", imageID)
		if err != nil {
			return err
		}

		for i := range items {
			item := &items[i]
			item.ImageID = imageID
			item.Label = nil
			if err := checkLabel(tx, item.LabelID); err != nil {
				return err
			}

			if item.ID == 0 {
				item.Position = pos
				pos++
				if err := tx.Create(item).Error; err != nil {
					return err
				}
				continue
			}

			var existing models.Annotation
			if err := tx.Select("id", "image_id", "position").First(&existing, item.ID).Error; err != nil {
				return err
			}
			if existing.ImageID != imageID {
				return fmt.Errorf("%w: annotation %d belongs to another image", ErrInvalidInput, item.ID)
			}
			item.Position = existing.Position
			err := tx.Model(&existing).
				Select("type", "x", "y", "width", "height", "bbox", "coordinates", "label_id").
				Updates(item).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return a.ListForImage(ctx, imageID)
}

func (a *annotations) Get(ctx context.Context, id uint) (*models.Annotation, error) {
	var annotation models.Annotation
	if err := a.db.WithContext(ctx).Preload("Label").First(&annotation, id).Error; err != nil {
		return nil, translate(err)
	}
	return &annotation, nil
}

func (a *annotations) UpdateLabel(ctx context.Context, id uint, labelID *uint) (*models.Annotation, error) {
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkLabel(tx, labelID); err != nil {
			return err
		}
		var existing models.Annotation
		if err := tx.Select("id").First(&existing, id).Error; err != nil {
			return err
		}
		return tx.Model(&existing).Update("label_id", labelID).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return a.Get(ctx, id)
}

func (a *annotations) Delete(ctx context.Context, id uint) error {
	res := a.db.WithContext(ctx).Delete(&models.Annotation{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (a *annotations) ProjectID(ctx context.Context, id uint) (uint, error) {
	var projectID uint
	row := a.db.WithContext(ctx).
		Table("annotations").
		Select("images.project_id").
		Joins("JOIN images ON images.id = annotations.image_id").
		Where("annotations.id = ?", id).
		Row()
	if err := row.Scan(&projectID); err != nil {
		return 0, translate(err)
	}
	return projectID, nil
}
