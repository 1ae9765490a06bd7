package permissions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mstepanenko/sprintdesk/internal/models"
	"github.com/mstepanenko/sprintdesk/pkg/metrics"
)

// ErrNotConnected indicates the user holds no membership in the project.
var ErrNotConnected = errors.New("permissions: user is not connected to project")

// Evaluator answers role questions about project members.
type Evaluator struct {
	db *gorm.DB
}

// NewEvaluator constructs an evaluator backed by the provided database.
func NewEvaluator(db *gorm.DB) (*Evaluator, error) {
	if db == nil {
		return nil, errors.New("permissions: db is required")
	}
	return &Evaluator{db: db}, nil
}

// Membership loads the membership row joining the user to the project.
// Returns ErrNotConnected when no such row exists.
func (e *Evaluator) Membership(ctx context.Context, userID, projectID string) (*models.ProjectMember, error) {
	userID = strings.TrimSpace(userID)
	projectID = strings.TrimSpace(projectID)
	if userID == "" || projectID == "" {
		return nil, ErrNotConnected
	}

	var member models.ProjectMember
	err := e.db.WithContext(ctx).
		Where("user_id = ? AND project_id = ?", userID, projectID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotConnected
	}
	if err != nil {
		return nil, fmt.Errorf("permissions: load membership: %w", err)
	}

	return &member, nil
}

// IsConnected reports whether the user is a member of the project at any role.
func (e *Evaluator) IsConnected(ctx context.Context, userID, projectID string) (bool, error) {
	_, err := e.Membership(ctx, userID, projectID)
	if errors.Is(err, ErrNotConnected) {
		metrics.PermissionChecks.WithLabelValues("denied").Inc()
		return false, nil
	}
	if err != nil {
		return false, err
	}

	metrics.PermissionChecks.WithLabelValues("allowed").Inc()
	return true, nil
}

// HasAdminRights reports whether the user holds OWNER or ADMIN in the project.
// A user outside the project has no rights at all.
func (e *Evaluator) HasAdminRights(ctx context.Context, userID, projectID string) (bool, error) {
	member, err := e.Membership(ctx, userID, projectID)
	if errors.Is(err, ErrNotConnected) {
		metrics.PermissionChecks.WithLabelValues("denied").Inc()
		return false, nil
	}
	if err != nil {
		return false, err
	}

	decision := "denied"
	if member.IsAdmin() {
		decision = "allowed"
	}
	metrics.PermissionChecks.WithLabelValues(decision).Inc()

	return member.IsAdmin(), nil
}

// CanActOnTask reports whether the user may change the given task's status:
// admins always can, ordinary members only when listed as an implementer.
func (e *Evaluator) CanActOnTask(ctx context.Context, userID, projectID string, task *models.SprintTask) (bool, error) {
	member, err := e.Membership(ctx, userID, projectID)
	if errors.Is(err, ErrNotConnected) {
		metrics.PermissionChecks.WithLabelValues("denied").Inc()
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if member.IsAdmin() {
		metrics.PermissionChecks.WithLabelValues("allowed").Inc()
		return true, nil
	}

	var count int64
	err = e.db.WithContext(ctx).
		Table("sprint_task_implementers").
		Where("sprint_task_id = ? AND project_member_id = ?", task.ID, member.ID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("permissions: check implementers: %w", err)
	}

	decision := "denied"
	if count > 0 {
		decision = "allowed"
	}
	metrics.PermissionChecks.WithLabelValues(decision).Inc()

	return count > 0, nil
}
