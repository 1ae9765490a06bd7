package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User describes a registered account. The token and project subsystems
// reference users by id only and never mutate them.
type User struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Hash     string `gorm:"not null" json:"-"`

	Name         string `json:"name"`
	Surname      string `json:"surname"`
	Description  string `gorm:"type:text" json:"description"`
	LanguageCode string `json:"language_code"`

	RegisteredAt time.Time `json:"registered_at"`

	Memberships []ProjectMember `gorm:"foreignKey:UserID" json:"-"`
	Credentials []Credential    `gorm:"foreignKey:UserID" json:"-"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
