package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Credential is the durable association between a user and its current
// access/refresh secret pair. A record existing is what authorises requests;
// the only way to invalidate an access token early is deleting or replacing
// its record.
type Credential struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	Token        string `gorm:"uniqueIndex;not null" json:"-"`
	RefreshToken string `gorm:"uniqueIndex;not null" json:"-"`

	UserID string `gorm:"type:uuid;not null;index" json:"user_id"`
	User   *User  `gorm:"foreignKey:UserID" json:"-"`

	// ExpiresAt mirrors the signed access token's expiry claim so the API can
	// report it without re-parsing the token.
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *Credential) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
