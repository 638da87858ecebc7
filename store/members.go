package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"tagframe/models"
)

type MemberInterface interface {
	List(ctx context.Context, projectID uint) ([]models.Member, error)
	// Role returns ErrNotFound when email is not a member of the project.
	Role(ctx context.Context, projectID uint, email string) (string, error)
	Invite(ctx context.Context, projectID uint, email string, role string) (*models.Member, error)
	UpdateRole(ctx context.Context, projectID uint, email string, role string) (*models.Member, error)
	Remove(ctx context.Context, projectID uint, email string) error
}

type members struct {
	db *gorm.DB
}

func newMembers(db *gorm.DB) MemberInterface {
	return &members{db}
}

func (m *members) List(ctx context.Context, projectID uint) ([]models.Member, error) {
	var list []models.Member
	if err := m.db.WithContext(ctx).Where("project_id = ?", projectID).Order("id").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (m *members) get(ctx context.Context, projectID uint, email string) (*models.Member, error) {
	var member models.Member
	err := m.db.WithContext(ctx).
		Where("project_id = ? AND email = ?", projectID, NormalizeEmail(email)).
		First(&member).Error
	if err != nil {
		return nil, translate(err)
	}
	return &member, nil
}

func (m *members) Role(ctx context.Context, projectID uint, email string) (string, error) {
	member, err := m.get(ctx, projectID, email)
	if err != nil {
		return "", err
	}
	return member.Role, nil
}

func (m *members) Invite(ctx context.Context, projectID uint, email string, role string) (*models.Member, error) {
	email = NormalizeEmail(email)
	if email == "" || !models.IsInvitableRole(role) {
		return nil, fmt.Errorf("%w: role must be %s or %s", ErrInvalidInput, models.RoleEditor, models.RoleVisitor)
	}

	var project models.Project
	if err := m.db.WithContext(ctx).Select("id").First(&project, projectID).Error; err != nil {
		return nil, translate(err)
	}

	member := &models.Member{ProjectID: projectID, Email: email, Role: role}
	if err := m.db.WithContext(ctx).Create(member).Error; err != nil {
		return nil, translate(err)
	}
	return member, nil
}

func (m *members) UpdateRole(ctx context.Context, projectID uint, email string, role string) (*models.Member, error) {
	if !models.IsInvitableRole(role) {
		return nil, fmt.Errorf("%w: role must be %s or %s", ErrInvalidInput, models.RoleEditor, models.RoleVisitor)
	}
	member, err := m.get(ctx, projectID, email)
	if err != nil {
		return nil, err
	}
	if member.Role == models.RoleOwner {
		return nil, fmt.Errorf("%w: the owner role cannot change", ErrForbidden)
	}

	if err := m.db.WithContext(ctx).Model(member).Update("role", role).Error; err != nil {
		return nil, err
	}
	return member, nil
}

func (m *members) Remove(ctx context.Context, projectID uint, email string) error {
	member, err := m.get(ctx, projectID, email)
	if err != nil {
		return err
	}
	if member.Role == models.RoleOwner {
		return fmt.Errorf("%w: the owner cannot be removed", ErrForbidden)
	}
	return m.db.WithContext(ctx).Delete(member).Error
}
