package database

import (
	"gorm.io/gorm"

	"github.com/mstepanenko/sprintdesk/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Credential{},
		&models.Project{},
		&models.ProjectMember{},
		&models.InvitationCode{},
		&models.Sprint{},
		&models.SprintTask{},
	)
}
