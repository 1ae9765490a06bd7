package models

// Project is the tenant root. Members, sprints, and invitation codes hang off
// it by id; deleting a project cascades through all of them.
type Project struct {
	BaseModel

	Name        string `gorm:"not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`

	Members []ProjectMember  `gorm:"foreignKey:ProjectID" json:"members,omitempty"`
	Sprints []Sprint         `gorm:"foreignKey:ProjectID" json:"-"`
	Codes   []InvitationCode `gorm:"foreignKey:ProjectID" json:"-"`
}
