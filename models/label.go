package models

import "regexp"

type Label struct {
	Base
	Name  string `json:"name" gorm:"size:255;not null"`
	Color string `json:"color" gorm:"size:9;not null"`
	// Projects lists the ids of the projects using this label.
	Projects []uint `json:"projects" gorm:"-"`
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// IsHexColor reports whether color is #rgb or #rrggbb.
func IsHexColor(color string) bool {
	return hexColor.MatchString(color)
}
