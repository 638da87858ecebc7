package store

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"tagframe/models"
)

type UserInterface interface {
	Create(ctx context.Context, object *models.User) (*models.User, error)
	Get(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

type users struct {
	db *gorm.DB
}

func newUsers(db *gorm.DB) UserInterface {
	return &users{db}
}

func (u *users) Create(ctx context.Context, object *models.User) (*models.User, error) {
	object.Email = NormalizeEmail(object.Email)
	if object.Email == "" {
		return nil, ErrInvalidInput
	}
	if err := u.db.WithContext(ctx).Create(object).Error; err != nil {
		return nil, translate(err)
	}
	return object, nil
}

func (u *users) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := u.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (u *users) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := u.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// NormalizeEmail lower-cases and trims an address so lookups and the member
// uniqueness constraint ignore case.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
