package models

import "time"

// Base replaces gorm.Model for our tables. Rows are removed for real on
// delete so unique indexes (member emails, label attachments) can be reused.
type Base struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
