package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mstepanenko/sprintdesk/internal/models"
	"github.com/mstepanenko/sprintdesk/internal/permissions"
	apperrors "github.com/mstepanenko/sprintdesk/pkg/errors"
)

// CreateProjectInput describes the fields accepted when creating a project.
type CreateProjectInput struct {
	Name        string
	Description string
}

// ProjectInfo is the project payload embedded in list and detail views.
type ProjectInfo struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"created_at"`
	DonePercents float64   `json:"done_percents"`
}

// ProjectSummary is the caller's view of one project in the listing.
type ProjectSummary struct {
	Project    ProjectInfo       `json:"project"`
	SystemRole models.SystemRole `json:"system_role"`
	OwnerName  string            `json:"owner_name"`
}

// MemberView describes a fellow project member.
type MemberView struct {
	ID              string            `json:"id"`
	User            *models.User      `json:"user"`
	SystemRole      models.SystemRole `json:"system_role"`
	DescriptiveRole string            `json:"descriptive_role"`
}

// ProjectDetails is the caller's full view of a single project.
type ProjectDetails struct {
	MemberID        string            `json:"member_id"`
	Project         ProjectInfo       `json:"project"`
	Others          []MemberView      `json:"others"`
	SystemRole      models.SystemRole `json:"system_role"`
	DescriptiveRole string            `json:"descriptive_role"`
}

// ProjectService manages projects and their memberships.
type ProjectService struct {
	db   *gorm.DB
	eval *permissions.Evaluator
}

// NewProjectService constructs a ProjectService instance.
func NewProjectService(db *gorm.DB, eval *permissions.Evaluator) (*ProjectService, error) {
	if db == nil {
		return nil, errors.New("project service: db is required")
	}
	if eval == nil {
		return nil, errors.New("project service: permission evaluator is required")
	}
	return &ProjectService{db: db, eval: eval}, nil
}

// Create provisions a project and assigns the creating user as its OWNER.
func (s *ProjectService) Create(ctx context.Context, ownerID string, input CreateProjectInput) (*ProjectDetails, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("project name is required")
	}

	project := &models.Project{Name: name, Description: input.Description}
	member := &models.ProjectMember{SystemRole: models.RoleOwner, UserID: ownerID}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(project).Error; err != nil {
			return fmt.Errorf("project service: create project: %w", err)
		}
		member.ProjectID = project.ID
		if err := tx.Create(member).Error; err != nil {
			return fmt.Errorf("project service: create owner membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Details(ctx, ownerID, project.ID)
}

// ListForUser returns a summary of every project the user belongs to.
func (s *ProjectService) ListForUser(ctx context.Context, userID string) ([]ProjectSummary, error) {
	ctx = ensureContext(ctx)

	var memberships []models.ProjectMember
	err := s.db.WithContext(ctx).
		Preload("Project").
		Where("user_id = ?", userID).
		Find(&memberships).Error
	if err != nil {
		return nil, fmt.Errorf("project service: list memberships: %w", err)
	}

	summaries := make([]ProjectSummary, 0, len(memberships))
	for _, membership := range memberships {
		if membership.Project == nil {
			continue
		}

		info, err := s.projectInfo(ctx, membership.Project)
		if err != nil {
			return nil, err
		}

		ownerName, err := s.ownerUsername(ctx, membership.ProjectID)
		if err != nil {
			return nil, err
		}

		summaries = append(summaries, ProjectSummary{
			Project:    *info,
			SystemRole: membership.SystemRole,
			OwnerName:  ownerName,
		})
	}

	return summaries, nil
}

// Details returns the caller's membership view of a project, including all
// other members. Callers outside the project get a permission error whether
// or not the project exists.
func (s *ProjectService) Details(ctx context.Context, userID, projectID string) (*ProjectDetails, error) {
	ctx = ensureContext(ctx)

	membership, err := s.eval.Membership(ctx, userID, projectID)
	if errors.Is(err, permissions.ErrNotConnected) {
		return nil, apperrors.ErrNotEnoughPermissions
	}
	if err != nil {
		return nil, err
	}

	var project models.Project
	if err := s.db.WithContext(ctx).First(&project, "id = ?", projectID).Error; err != nil {
		return nil, fmt.Errorf("project service: load project: %w", err)
	}

	info, err := s.projectInfo(ctx, &project)
	if err != nil {
		return nil, err
	}

	var members []models.ProjectMember
	err = s.db.WithContext(ctx).
		Preload("User").
		Where("project_id = ?", projectID).
		Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("project service: load members: %w", err)
	}

	others := make([]MemberView, 0, len(members))
	for _, m := range members {
		others = append(others, MemberView{
			ID:              m.ID,
			User:            m.User,
			SystemRole:      m.SystemRole,
			DescriptiveRole: m.DescriptiveRole,
		})
	}

	return &ProjectDetails{
		MemberID:        membership.ID,
		Project:         *info,
		Others:          others,
		SystemRole:      membership.SystemRole,
		DescriptiveRole: membership.DescriptiveRole,
	}, nil
}

// SetDescriptiveRole updates a member's free-text role. The actor must hold
// admin rights in the member's project.
func (s *ProjectService) SetDescriptiveRole(ctx context.Context, actorID, memberID, role string) error {
	ctx = ensureContext(ctx)

	member, err := s.memberByID(ctx, memberID)
	if err != nil {
		return err
	}

	admin, err := s.eval.HasAdminRights(ctx, actorID, member.ProjectID)
	if err != nil {
		return err
	}
	if !admin {
		return apperrors.ErrNotEnoughPermissions
	}

	err = s.db.WithContext(ctx).Model(member).Update("descriptive_role", role).Error
	if err != nil {
		return fmt.Errorf("project service: update descriptive role: %w", err)
	}

	return nil
}

// SetSystemRole changes a member's tier. Only admins may act; the OWNER row is
// untouchable, nobody assigns OWNER this way, and the actor may not retarget
// its own membership.
func (s *ProjectService) SetSystemRole(ctx context.Context, actorID, memberID, roleValue string) error {
	ctx = ensureContext(ctx)

	member, err := s.memberByID(ctx, memberID)
	if err != nil {
		return err
	}

	admin, err := s.eval.HasAdminRights(ctx, actorID, member.ProjectID)
	if err != nil {
		return err
	}
	if !admin {
		return apperrors.ErrNotEnoughPermissions
	}

	if member.UserID == actorID {
		return apperrors.NewBadRequest("You can't change your system role")
	}

	if member.SystemRole == models.RoleOwner {
		return apperrors.ErrNotEnoughPermissions
	}

	role, err := models.ParseSystemRole(roleValue)
	if err != nil {
		return apperrors.NewBadRequest(err.Error())
	}
	if role == models.RoleOwner {
		return apperrors.NewBadRequest("System role can't be OWNER for this user")
	}

	err = s.db.WithContext(ctx).Model(member).Update("system_role", role).Error
	if err != nil {
		return fmt.Errorf("project service: update system role: %w", err)
	}

	return nil
}

// RemoveMember deletes a member from its project. Same guards as SetSystemRole:
// admin actor, no self-removal via this path, OWNER row untouchable. The
// member's implementer assignments are scrubbed before the row goes.
func (s *ProjectService) RemoveMember(ctx context.Context, actorID, memberID string) error {
	ctx = ensureContext(ctx)

	member, err := s.memberByID(ctx, memberID)
	if err != nil {
		return err
	}

	admin, err := s.eval.HasAdminRights(ctx, actorID, member.ProjectID)
	if err != nil {
		return err
	}
	if !admin {
		return apperrors.ErrNotEnoughPermissions
	}

	if member.UserID == actorID {
		return apperrors.NewBadRequest("You can't delete yourself from project")
	}

	if member.SystemRole == models.RoleOwner {
		return apperrors.ErrNotEnoughPermissions
	}

	return s.deleteMember(ctx, member)
}

// Leave removes the caller's own membership. The OWNER cannot leave; they must
// delete the project instead.
func (s *ProjectService) Leave(ctx context.Context, userID, projectID string) error {
	ctx = ensureContext(ctx)

	member, err := s.eval.Membership(ctx, userID, projectID)
	if errors.Is(err, permissions.ErrNotConnected) {
		return ErrMemberNotFound
	}
	if err != nil {
		return err
	}

	if member.SystemRole == models.RoleOwner {
		return apperrors.NewBadRequest("You can't leave from your project")
	}

	return s.deleteMember(ctx, member)
}

// Delete removes a project with everything under it: members, sprints, tasks,
// implementer assignments, and invitation codes. OWNER only.
func (s *ProjectService) Delete(ctx context.Context, actorID, projectID string) error {
	ctx = ensureContext(ctx)

	member, err := s.eval.Membership(ctx, actorID, projectID)
	if errors.Is(err, permissions.ErrNotConnected) {
		return ErrMemberNotFound
	}
	if err != nil {
		return err
	}

	if member.SystemRole != models.RoleOwner {
		return apperrors.ErrNotEnoughPermissions
	}

	var project models.Project
	if err := s.db.WithContext(ctx).First(&project, "id = ?", projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("project service: load project: %w", err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taskIDs := tx.Model(&models.SprintTask{}).
			Select("sprint_tasks.id").
			Joins("JOIN sprints ON sprints.id = sprint_tasks.sprint_id").
			Where("sprints.project_id = ?", projectID)

		if err := tx.Exec("DELETE FROM sprint_task_implementers WHERE sprint_task_id IN (?)", taskIDs).Error; err != nil {
			return fmt.Errorf("project service: delete implementer assignments: %w", err)
		}
		if err := tx.Exec("DELETE FROM sprint_tasks WHERE sprint_id IN (?)",
			tx.Model(&models.Sprint{}).Select("id").Where("project_id = ?", projectID),
		).Error; err != nil {
			return fmt.Errorf("project service: delete tasks: %w", err)
		}
		if err := tx.Where("project_id = ?", projectID).Delete(&models.Sprint{}).Error; err != nil {
			return fmt.Errorf("project service: delete sprints: %w", err)
		}
		if err := tx.Where("project_id = ?", projectID).Delete(&models.InvitationCode{}).Error; err != nil {
			return fmt.Errorf("project service: delete invitation codes: %w", err)
		}
		if err := tx.Where("project_id = ?", projectID).Delete(&models.ProjectMember{}).Error; err != nil {
			return fmt.Errorf("project service: delete members: %w", err)
		}
		if err := tx.Delete(&project).Error; err != nil {
			return fmt.Errorf("project service: delete project: %w", err)
		}
		return nil
	})
}

func (s *ProjectService) memberByID(ctx context.Context, memberID string) (*models.ProjectMember, error) {
	var member models.ProjectMember
	err := s.db.WithContext(ctx).First(&member, "id = ?", memberID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("project service: load member: %w", err)
	}
	return &member, nil
}

// deleteMember scrubs the member's implementer assignments, then the row.
// Keeps tasks free of references to memberships that no longer exist.
func (s *ProjectService) deleteMember(ctx context.Context, member *models.ProjectMember) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM sprint_task_implementers WHERE project_member_id = ?", member.ID).Error; err != nil {
			return fmt.Errorf("project service: scrub implementer assignments: %w", err)
		}
		if err := tx.Delete(member).Error; err != nil {
			return fmt.Errorf("project service: delete member: %w", err)
		}
		return nil
	})
}

func (s *ProjectService) projectInfo(ctx context.Context, project *models.Project) (*ProjectInfo, error) {
	done, err := s.donePercents(ctx, project.ID)
	if err != nil {
		return nil, err
	}

	return &ProjectInfo{
		ID:           project.ID,
		Name:         project.Name,
		Description:  project.Description,
		CreatedAt:    project.CreatedAt,
		DonePercents: done,
	}, nil
}

func (s *ProjectService) ownerUsername(ctx context.Context, projectID string) (string, error) {
	var owner models.ProjectMember
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("project_id = ? AND system_role = ?", projectID, models.RoleOwner).
		First(&owner).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("project service: load owner: %w", err)
	}
	if owner.User == nil {
		return "", nil
	}
	return owner.User.Username, nil
}

// donePercents is the share of DONE tasks across all of the project's sprints.
func (s *ProjectService) donePercents(ctx context.Context, projectID string) (float64, error) {
	base := s.db.WithContext(ctx).Model(&models.SprintTask{}).
		Joins("JOIN sprints ON sprints.id = sprint_tasks.sprint_id").
		Where("sprints.project_id = ?", projectID)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("project service: count tasks: %w", err)
	}
	if total == 0 {
		return 0, nil
	}

	var done int64
	if err := base.Session(&gorm.Session{}).
		Where("sprint_tasks.status = ?", models.StatusDone).
		Count(&done).Error; err != nil {
		return 0, fmt.Errorf("project service: count done tasks: %w", err)
	}

	return float64(done) / float64(total) * 100, nil
}
