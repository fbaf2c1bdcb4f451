package models

import (
	"time"
)

type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Email     string    `json:"email" gorm:"unique;not null"`
	Credits   int       `json:"credits" gorm:"not null;default:0"`
	Language  string    `json:"language" gorm:"not null;default:'en'"`
	Theme     string    `json:"theme" gorm:"not null;default:'dark'"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
