package models

import "time"

// Sprint groups tasks inside a project over a fixed time window.
type Sprint struct {
	BaseModel

	ProjectID string   `gorm:"type:uuid;not null;index" json:"-"`
	Project   *Project `gorm:"foreignKey:ProjectID" json:"-"`

	Name        string    `gorm:"not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	StartAt     time.Time `json:"start_at"`
	EndAt       time.Time `json:"end_at"`

	Tasks []SprintTask `gorm:"foreignKey:SprintID" json:"tasks,omitempty"`
}

// Started reports whether the sprint window has opened.
func (s *Sprint) Started(now time.Time) bool {
	return !now.Before(s.StartAt) && now.Before(s.EndAt)
}

// Ended reports whether the sprint window has closed.
func (s *Sprint) Ended(now time.Time) bool {
	return now.After(s.EndAt)
}
