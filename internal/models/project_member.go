package models

import (
	"fmt"
	"strings"
)

// SystemRole is the tiered role a member holds within a project.
type SystemRole string

const (
	RoleOwner  SystemRole = "OWNER"
	RoleAdmin  SystemRole = "ADMIN"
	RoleMember SystemRole = "MEMBER"
)

// ParseSystemRole converts user input into a SystemRole, case-insensitively.
func ParseSystemRole(value string) (SystemRole, error) {
	switch SystemRole(strings.ToUpper(strings.TrimSpace(value))) {
	case RoleOwner:
		return RoleOwner, nil
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleMember:
		return RoleMember, nil
	default:
		return "", fmt.Errorf("system role can't be %q", value)
	}
}

// ProjectMember joins a user to a project with a system role and a free-text
// descriptive role. Exactly one OWNER exists per project after creation.
type ProjectMember struct {
	BaseModel

	ProjectID string   `gorm:"type:uuid;not null;uniqueIndex:idx_member_project_user" json:"-"`
	Project   *Project `gorm:"foreignKey:ProjectID" json:"-"`

	UserID string `gorm:"type:uuid;not null;uniqueIndex:idx_member_project_user" json:"-"`
	User   *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`

	SystemRole      SystemRole `gorm:"not null;default:MEMBER" json:"system_role"`
	DescriptiveRole string     `json:"descriptive_role"`
}

// IsAdmin reports whether the member holds elevated rights.
func (m *ProjectMember) IsAdmin() bool {
	return m.SystemRole == RoleOwner || m.SystemRole == RoleAdmin
}
