package store

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"tagframe/models"
)

type ProjectInterface interface {
	Create(ctx context.Context, object *models.Project, ownerEmail string) (*models.Project, error)
	Get(ctx context.Context, id uint) (*models.Project, error)
	ListForMember(ctx context.Context, email string, opts ...Options) ([]models.Project, error)
	Update(ctx context.Context, id uint, updates map[string]interface{}) (*models.Project, error)
	// Delete removes the project with its images, annotations, members and
	// label attachments, and returns the stored file paths of the removed
	// images so the caller can clean them up.
	Delete(ctx context.Context, id uint) ([]string, error)
}

type projects struct {
	db *gorm.DB
}

func newProjects(db *gorm.DB) ProjectInterface {
	return &projects{db}
}

func (p *projects) Create(ctx context.Context, object *models.Project, ownerEmail string) (*models.Project, error) {
	object.Name = strings.TrimSpace(object.Name)
	if object.Name == "" {
		return nil, ErrInvalidInput
	}

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Members", "Images").Create(object).Error; err != nil {
			return err
		}
		owner := models.Member{
			ProjectID: object.ID,
			Email:     NormalizeEmail(ownerEmail),
			Role:      models.RoleOwner,
		}
		if err := tx.Create(&owner).Error; err != nil {
			return err
		}
		object.Members = []models.Member{owner}
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return object, nil
}

func (p *projects) Get(ctx context.Context, id uint) (*models.Project, error) {
	var project models.Project
	err := p.db.WithContext(ctx).
		Preload("Members", func(tx *gorm.DB) *gorm.DB { return tx.Order("id") }).
		First(&project, id).Error
	if err != nil {
		return nil, translate(err)
	}

	labels, err := projectLabels(ctx, p.db, id)
	if err != nil {
		return nil, err
	}
	project.Labels = labels
	return &project, nil
}

func (p *projects) ListForMember(ctx context.Context, email string, opts ...Options) ([]models.Project, error) {
	var list []models.Project
	tx := p.db.WithContext(ctx).
		Where("id IN (?)", p.db.Model(&models.Member{}).Select("project_id").Where("email = ?", NormalizeEmail(email)))
	opts = append([]Options{WithOrderByCreatedDesc()}, opts...)
	if err := apply(tx, opts).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (p *projects) Update(ctx context.Context, id uint, updates map[string]interface{}) (*models.Project, error) {
	if name, ok := updates["name"].(string); ok && strings.TrimSpace(name) == "" {
		return nil, ErrInvalidInput
	}
	f := p.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", id).Updates(updates)
	if f.Error != nil {
		return nil, translate(f.Error)
	}
	if f.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return p.Get(ctx, id)
}

func (p *projects) Delete(ctx context.Context, id uint) ([]string, error) {
	var paths []string
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.Select("id").First(&project, id).Error; err != nil {
			return err
		}

		var images []models.Image
		if err := tx.Select("id", "path", "lqip_path").Where("project_id = ?", id).Find(&images).Error; err != nil {
			return err
		}
		for _, img := range images {
			paths = append(paths, img.Path)
			if img.LqipPath != nil {
				paths = append(paths, *img.LqipPath)
			}
		}

		imageIDs := tx.Model(&models.Image{}).Select("id").Where("project_id = ?", id)
		if err := tx.Where("image_id IN (?)", imageIDs).Delete(&models.Annotation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.Image{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.Member{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.ProjectLabel{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Project{}, id).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return paths, nil
}
