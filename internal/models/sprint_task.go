package models

import (
	"fmt"
	"strings"
	"time"
)

// TaskStatus is the workflow state of a sprint task.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "TODO"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusDone       TaskStatus = "DONE"
)

// ParseTaskStatus converts user input into a TaskStatus, case-insensitively.
func ParseTaskStatus(value string) (TaskStatus, error) {
	switch TaskStatus(strings.ToUpper(strings.TrimSpace(value))) {
	case StatusTodo:
		return StatusTodo, nil
	case StatusInProgress:
		return StatusInProgress, nil
	case StatusDone:
		return StatusDone, nil
	default:
		return "", fmt.Errorf("wrong status value %q, available: TODO, IN_PROGRESS, DONE", value)
	}
}

// TaskPriority ranks a task's urgency.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "LOW"
	PriorityMedium TaskPriority = "MEDIUM"
	PriorityHigh   TaskPriority = "HIGH"
)

// ParseTaskPriority converts user input into a TaskPriority, case-insensitively.
func ParseTaskPriority(value string) (TaskPriority, error) {
	switch TaskPriority(strings.ToUpper(strings.TrimSpace(value))) {
	case PriorityLow:
		return PriorityLow, nil
	case PriorityMedium:
		return PriorityMedium, nil
	case PriorityHigh:
		return PriorityHigh, nil
	default:
		return "", fmt.Errorf("wrong priority value %q, available: LOW, MEDIUM, HIGH", value)
	}
}

// SprintTask is a unit of work inside a sprint. Implementers are project
// members allowed to move the task's status without admin rights.
type SprintTask struct {
	BaseModel

	SprintID string  `gorm:"type:uuid;not null;index" json:"-"`
	Sprint   *Sprint `gorm:"foreignKey:SprintID" json:"-"`

	Name        string    `gorm:"not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	StartAt     time.Time `json:"start_at"`
	EndAt       time.Time `json:"end_at"`

	Priority TaskPriority `gorm:"not null;default:MEDIUM" json:"priority"`
	Status   TaskStatus   `gorm:"not null;default:TODO" json:"status"`

	Implementers []ProjectMember `gorm:"many2many:sprint_task_implementers;" json:"implementers,omitempty"`
}
