package models

type User struct {
	Base
	Email        string `json:"email" gorm:"size:255;uniqueIndex"`
	PasswordHash string `json:"-"`
}
