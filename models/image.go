package models

type Image struct {
	Base
	ProjectID   uint         `json:"project_id" gorm:"not null;index:idx_image_project_position"`
	Position    int          `json:"position" gorm:"index:idx_image_project_position"`
	FileName    string       `json:"file_name" gorm:"size:255;not null"`
	Path        string       `json:"path" gorm:"not null"`
	LqipPath    *string      `json:"lqip_path,omitempty"`
	Width       *int         `json:"width,omitempty"`
	Height      *int         `json:"height,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty" gorm:"foreignKey:ImageID"`
}
