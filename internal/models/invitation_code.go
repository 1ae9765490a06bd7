package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InvitationCode is a short-lived shared secret permitting self-service
// membership creation. Codes are unique among currently stored rows and are
// deliberately not single-use: redemption only checks expiry and existing
// membership, so several users may join with the same live code.
type InvitationCode struct {
	ID   string `gorm:"primaryKey;type:uuid" json:"-"`
	Code string `gorm:"uniqueIndex;not null" json:"code"`

	ProjectID string   `gorm:"type:uuid;not null;index" json:"-"`
	Project   *Project `gorm:"foreignKey:ProjectID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
}

func (c *InvitationCode) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// Expired reports whether the code's validity window has passed. Expired rows
// are treated as invalid even before the sweeper physically removes them.
func (c *InvitationCode) Expired(now time.Time) bool {
	return c.ExpiresAt.Before(now)
}
