package store

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"tagframe/models"
)

// LabelUsage counts the annotations using a label inside one project.
type LabelUsage struct {
	LabelID uint   `json:"label_id"`
	Name    string `json:"name"`
	Color   string `json:"color"`
	Count   int64  `json:"count"`
}

type LabelInterface interface {
	// Create stores a label, attaching it to projectID when one is given.
	Create(ctx context.Context, object *models.Label, projectID *uint) (*models.Label, error)
	Get(ctx context.Context, id uint) (*models.Label, error)
	List(ctx context.Context, opts ...Options) ([]models.Label, error)
	Update(ctx context.Context, id uint, updates map[string]interface{}) (*models.Label, error)
	// Delete detaches the label everywhere and clears it from annotations.
	Delete(ctx context.Context, id uint) error

	Attach(ctx context.Context, projectID uint, labelID uint) error
	// Detach also clears the label from the project's annotations.
	Detach(ctx context.Context, projectID uint, labelID uint) error
	ProjectLabels(ctx context.Context, projectID uint) ([]models.Label, error)
	Usage(ctx context.Context, projectID uint) ([]LabelUsage, error)
}

type labels struct {
	db *gorm.DB
}

func newLabels(db *gorm.DB) LabelInterface {
	return &labels{db}
}

func validateLabel(name, color string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: label name is required", ErrInvalidInput)
	}
	if !models.IsHexColor(color) {
		return fmt.Errorf("%w: label color %q is not a hex color", ErrInvalidInput, color)
	}
	return nil
}

func (l *labels) Create(ctx context.Context, object *models.Label, projectID *uint) (*models.Label, error) {
	object.Name = strings.TrimSpace(object.Name)
	if err := validateLabel(object.Name, object.Color); err != nil {
		return nil, err
	}

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(object).Error; err != nil {
			return err
		}
		if projectID == nil {
			return nil
		}
		if err := attach(tx, *projectID, object.ID); err != nil {
			return err
		}
		object.Projects = []uint{*projectID}
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return object, nil
}

func (l *labels) Get(ctx context.Context, id uint) (*models.Label, error) {
	var label models.Label
	if err := l.db.WithContext(ctx).First(&label, id).Error; err != nil {
		return nil, translate(err)
	}
	if err := l.db.WithContext(ctx).Model(&models.ProjectLabel{}).
		Where("label_id = ?", id).Order("project_id").
		Pluck("project_id", &label.Projects).Error; err != nil {
		return nil, err
	}
	return &label, nil
}

func (l *labels) List(ctx context.Context, opts ...Options) ([]models.Label, error) {
	var list []models.Label
	tx := apply(l.db.WithContext(ctx), opts)
	if err := tx.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (l *labels) Update(ctx context.Context, id uint, updates map[string]interface{}) (*models.Label, error) {
	current, err := l.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	name, color := current.Name, current.Color
	if v, ok := updates["name"].(string); ok {
		name = strings.TrimSpace(v)
		updates["name"] = name
	}
	if v, ok := updates["color"].(string); ok {
		color = v
	}
	if err := validateLabel(name, color); err != nil {
		return nil, err
	}

	if err := l.db.WithContext(ctx).Model(&models.Label{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, translate(err)
	}
	return l.Get(ctx, id)
}

func (l *labels) Delete(ctx context.Context, id uint) error {
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var label models.Label
		if err := tx.Select("id").First(&label, id).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Annotation{}).Where("label_id = ?", id).Update("label_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("label_id = ?", id).Delete(&models.ProjectLabel{}).Error; err != nil {
			return err
		}
		return tx.Delete(&label).Error
	})
	return translate(err)
}

func attach(tx *gorm.DB, projectID uint, labelID uint) error {
	var project models.Project
	if err := tx.Select("id").First(&project, projectID).Error; err != nil {
		return err
	}
	pos, err := nextPosition(tx, &models.ProjectLabel{}, "project_id", projectID)
	if err != nil {
		return err
	}
	return tx.Create(&models.ProjectLabel{ProjectID: projectID, LabelID: labelID, Position: pos}).Error
}

func (l *labels) Attach(ctx context.Context, projectID uint, labelID uint) error {
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var label models.Label
		if err := tx.Select("id").First(&label, labelID).Error; err != nil {
			return err
		}
		var existing int64
		if err := tx.Model(&models.ProjectLabel{}).
			Where("project_id = ? AND label_id = ?", projectID, labelID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrConflict
		}
		return attach(tx, projectID, labelID)
	})
	return translate(err)
}

func (l *labels) Detach(ctx context.Context, projectID uint, labelID uint) error {
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("project_id = ? AND label_id = ?", projectID, labelID).Delete(&models.ProjectLabel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		imageIDs := tx.Model(&models.Image{}).Select("id").Where("project_id = ?", projectID)
		return tx.Model(&models.Annotation{}).
			Where("label_id = ? AND image_id IN (?)", labelID, imageIDs).
			Update("label_id", nil).Error
	})
	return translate(err)
}

func (l *labels) ProjectLabels(ctx context.Context, projectID uint) ([]models.Label, error) {
	return projectLabels(ctx, l.db, projectID)
}

// projectLabels returns the labels attached to a project in list order.
func projectLabels(ctx context.Context, db *gorm.DB, projectID uint) ([]models.Label, error) {
	var list []models.Label
	err := db.WithContext(ctx).
		Joins("JOIN project_labels ON project_labels.label_id = labels.id").
		Where("project_labels.project_id = ?", projectID).
		Order("project_labels.position").Order("labels.id").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (l *labels) Usage(ctx context.Context, projectID uint) ([]LabelUsage, error) {
	var usage []LabelUsage
	counted := l.db.Model(&models.Annotation{}).
		Select("annotations.label_id, COUNT(*) AS count").
		Joins("JOIN images ON images.id = annotations.image_id").
		Where("images.project_id = ?", projectID).
		Group("annotations.label_id")

	err := l.db.WithContext(ctx).
		Table("project_labels").
		Select("labels.id AS label_id, labels.name, labels.color, COALESCE(counted.count, 0) AS count").
		Joins("JOIN labels ON labels.id = project_labels.label_id").
		Joins("LEFT JOIN (?) AS counted ON counted.label_id = labels.id", counted).
		Where("project_labels.project_id = ?", projectID).
		Order("project_labels.position").
		Scan(&usage).Error
	if err != nil {
		return nil, err
	}
	return usage, nil
}
