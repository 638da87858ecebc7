package models

import "time"

const (
	RoleOwner   = "owner"
	RoleEditor  = "editor"
	RoleVisitor = "visitor"
)

type Member struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ProjectID uint      `json:"project_id" gorm:"not null;uniqueIndex:idx_project_email"`
	Email     string    `json:"email" gorm:"size:255;not null;uniqueIndex:idx_project_email"`
	Role      string    `json:"role" gorm:"size:16;not null"`
	CreatedAt time.Time `json:"created_at"`
}

// IsInvitableRole reports whether role can be given to an invited member.
// The owner role is only ever assigned at project creation.
func IsInvitableRole(role string) bool {
	return role == RoleEditor || role == RoleVisitor
}

// CanEdit reports whether the role may change images, labels and annotations.
func CanEdit(role string) bool {
	return role == RoleOwner || role == RoleEditor
}
