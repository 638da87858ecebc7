package models

import "time"

type Project struct {
	Base
	Name        string   `json:"name" gorm:"size:255;not null"`
	Description string   `json:"description"`
	OwnerID     uint     `json:"owner_id" gorm:"index"`
	Members     []Member `json:"members,omitempty" gorm:"foreignKey:ProjectID"`
	Images      []Image  `json:"images,omitempty" gorm:"foreignKey:ProjectID"`
	// Labels is filled from project_labels in position order.
	Labels []Label `json:"labels,omitempty" gorm:"-"`
}

// ProjectLabel is the ordered many-to-many join between projects and labels.
type ProjectLabel struct {
	ProjectID uint      `json:"project_id" gorm:"primaryKey;autoIncrement:false"`
	LabelID   uint      `json:"label_id" gorm:"primaryKey;autoIncrement:false;index"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}
