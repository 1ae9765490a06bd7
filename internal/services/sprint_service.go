package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mstepanenko/sprintdesk/internal/models"
	"github.com/mstepanenko/sprintdesk/internal/permissions"
	apperrors "github.com/mstepanenko/sprintdesk/pkg/errors"
)

// CreateTaskInput describes one task created together with its sprint.
type CreateTaskInput struct {
	Name                 string
	Description          string
	StartAt              time.Time
	EndAt                time.Time
	Priority             string
	ImplementerMemberIDs []string
}

// CreateSprintInput describes a sprint and its initial tasks.
type CreateSprintInput struct {
	Name        string
	Description string
	StartAt     time.Time
	EndAt       time.Time
	Tasks       []CreateTaskInput
}

// SprintSummary is the short listing view of a sprint.
type SprintSummary struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Tasks        int       `json:"tasks"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	IsStarted    bool      `json:"is_started"`
	IsEnded      bool      `json:"is_ended"`
	DonePercents float64   `json:"done_percents"`
}

// TaskView is the full view of a task inside a sprint.
type TaskView struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	StartAt      time.Time           `json:"start_at"`
	EndAt        time.Time           `json:"end_at"`
	Priority     models.TaskPriority `json:"priority"`
	Status       models.TaskStatus   `json:"status"`
	Implementers []MemberView        `json:"implementers"`
}

// SprintView is the full view of a sprint with its tasks.
type SprintView struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	StartAt      time.Time  `json:"start_at"`
	EndAt        time.Time  `json:"end_at"`
	Tasks        []TaskView `json:"tasks"`
	DonePercents float64    `json:"done_percents"`
}

// SprintService manages sprints and their tasks inside projects.
type SprintService struct {
	db   *gorm.DB
	eval *permissions.Evaluator
	now  func() time.Time
}

// NewSprintService constructs a SprintService instance.
func NewSprintService(db *gorm.DB, eval *permissions.Evaluator) (*SprintService, error) {
	if db == nil {
		return nil, errors.New("sprint service: db is required")
	}
	if eval == nil {
		return nil, errors.New("sprint service: permission evaluator is required")
	}
	return &SprintService{db: db, eval: eval, now: time.Now}, nil
}

// Create provisions a sprint with its nested tasks. The actor must hold admin
// rights; every implementer id must reference a member of the same project.
func (s *SprintService) Create(ctx context.Context, actorID, projectID string, input CreateSprintInput) (*SprintView, error) {
	ctx = ensureContext(ctx)

	var project models.Project
	err := s.db.WithContext(ctx).First(&project, "id = ?", projectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sprint service: load project: %w", err)
	}

	admin, err := s.eval.HasAdminRights(ctx, actorID, projectID)
	if err != nil {
		return nil, err
	}
	if !admin {
		return nil, apperrors.ErrNotEnoughPermissions
	}

	if input.Name == "" {
		return nil, apperrors.NewBadRequest("sprint name is required")
	}

	sprint := &models.Sprint{
		ProjectID:   projectID,
		Name:        input.Name,
		Description: input.Description,
		StartAt:     input.StartAt,
		EndAt:       input.EndAt,
	}

	tasks := make([]models.SprintTask, 0, len(input.Tasks))
	for _, taskInput := range input.Tasks {
		priority, err := models.ParseTaskPriority(taskInput.Priority)
		if err != nil {
			return nil, apperrors.NewBadRequest(err.Error())
		}

		implementers := make([]models.ProjectMember, 0, len(taskInput.ImplementerMemberIDs))
		for _, memberID := range taskInput.ImplementerMemberIDs {
			member, err := s.memberInProject(ctx, memberID, projectID)
			if err != nil {
				return nil, err
			}
			implementers = append(implementers, *member)
		}

		tasks = append(tasks, models.SprintTask{
			Name:         taskInput.Name,
			Description:  taskInput.Description,
			StartAt:      taskInput.StartAt,
			EndAt:        taskInput.EndAt,
			Priority:     priority,
			Implementers: implementers,
		})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(sprint).Error; err != nil {
			return fmt.Errorf("sprint service: create sprint: %w", err)
		}
		for i := range tasks {
			tasks[i].SprintID = sprint.ID
			if err := tx.Create(&tasks[i]).Error; err != nil {
				return fmt.Errorf("sprint service: create task: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.view(ctx, sprint.ID)
}

// ListForProject returns the short view of every sprint in the project.
func (s *SprintService) ListForProject(ctx context.Context, userID, projectID string) ([]SprintSummary, error) {
	ctx = ensureContext(ctx)

	connected, err := s.eval.IsConnected(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if !connected {
		return nil, apperrors.ErrNotEnoughPermissions
	}

	var sprints []models.Sprint
	err = s.db.WithContext(ctx).
		Preload("Tasks").
		Where("project_id = ?", projectID).
		Find(&sprints).Error
	if err != nil {
		return nil, fmt.Errorf("sprint service: list sprints: %w", err)
	}

	now := s.now()
	summaries := make([]SprintSummary, 0, len(sprints))
	for i := range sprints {
		sprint := &sprints[i]
		summaries = append(summaries, SprintSummary{
			ID:           sprint.ID,
			Name:         sprint.Name,
			Description:  sprint.Description,
			Tasks:        len(sprint.Tasks),
			StartTime:    sprint.StartAt,
			EndTime:      sprint.EndAt,
			IsStarted:    sprint.Started(now),
			IsEnded:      sprint.Ended(now),
			DonePercents: taskDonePercents(sprint.Tasks),
		})
	}

	return summaries, nil
}

// Get returns the full view of one sprint including tasks and implementers.
func (s *SprintService) Get(ctx context.Context, userID, projectID, sprintID string) (*SprintView, error) {
	ctx = ensureContext(ctx)

	connected, err := s.eval.IsConnected(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if !connected {
		return nil, apperrors.ErrNotEnoughPermissions
	}

	sprint, err := s.sprintInProject(ctx, sprintID, projectID)
	if err != nil {
		return nil, err
	}

	return s.view(ctx, sprint.ID)
}

// Delete removes a sprint with its tasks and their implementer assignments.
// Admin rights required.
func (s *SprintService) Delete(ctx context.Context, actorID, projectID, sprintID string) error {
	ctx = ensureContext(ctx)

	admin, err := s.eval.HasAdminRights(ctx, actorID, projectID)
	if err != nil {
		return err
	}
	if !admin {
		return apperrors.ErrNotEnoughPermissions
	}

	sprint, err := s.sprintInProject(ctx, sprintID, projectID)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taskIDs := tx.Model(&models.SprintTask{}).Select("id").Where("sprint_id = ?", sprint.ID)

		if err := tx.Exec("DELETE FROM sprint_task_implementers WHERE sprint_task_id IN (?)", taskIDs).Error; err != nil {
			return fmt.Errorf("sprint service: delete implementer assignments: %w", err)
		}
		if err := tx.Where("sprint_id = ?", sprint.ID).Delete(&models.SprintTask{}).Error; err != nil {
			return fmt.Errorf("sprint service: delete tasks: %w", err)
		}
		if err := tx.Delete(sprint).Error; err != nil {
			return fmt.Errorf("sprint service: delete sprint: %w", err)
		}
		return nil
	})
}

// UpdateTaskStatus moves a task through its workflow. The actor must be an
// admin or one of the task's implementers.
func (s *SprintService) UpdateTaskStatus(ctx context.Context, actorID, projectID, sprintID, taskID, statusValue string) error {
	ctx = ensureContext(ctx)

	if _, err := s.eval.Membership(ctx, actorID, projectID); err != nil {
		if errors.Is(err, permissions.ErrNotConnected) {
			return ErrMemberNotFound
		}
		return err
	}

	sprint, err := s.sprintInProject(ctx, sprintID, projectID)
	if err != nil {
		return err
	}

	var task models.SprintTask
	err = s.db.WithContext(ctx).
		Where("id = ? AND sprint_id = ?", taskID, sprint.ID).
		First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrTaskNotFound
	}
	if err != nil {
		return fmt.Errorf("sprint service: load task: %w", err)
	}

	allowed, err := s.eval.CanActOnTask(ctx, actorID, projectID, &task)
	if err != nil {
		return err
	}
	if !allowed {
		return apperrors.ErrNotEnoughPermissions
	}

	status, err := models.ParseTaskStatus(statusValue)
	if err != nil {
		return apperrors.NewBadRequest(err.Error())
	}

	if err := s.db.WithContext(ctx).Model(&task).Update("status", status).Error; err != nil {
		return fmt.Errorf("sprint service: update status: %w", err)
	}

	return nil
}

func (s *SprintService) sprintInProject(ctx context.Context, sprintID, projectID string) (*models.Sprint, error) {
	var sprint models.Sprint
	err := s.db.WithContext(ctx).
		Where("id = ? AND project_id = ?", sprintID, projectID).
		First(&sprint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSprintNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sprint service: load sprint: %w", err)
	}
	return &sprint, nil
}

func (s *SprintService) memberInProject(ctx context.Context, memberID, projectID string) (*models.ProjectMember, error) {
	var member models.ProjectMember
	err := s.db.WithContext(ctx).First(&member, "id = ?", memberID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sprint service: load member: %w", err)
	}
	if member.ProjectID != projectID {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("member %s does not belong to this project", memberID))
	}
	return &member, nil
}

func (s *SprintService) view(ctx context.Context, sprintID string) (*SprintView, error) {
	var sprint models.Sprint
	err := s.db.WithContext(ctx).
		Preload("Tasks.Implementers.User").
		First(&sprint, "id = ?", sprintID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSprintNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sprint service: load sprint view: %w", err)
	}

	tasks := make([]TaskView, 0, len(sprint.Tasks))
	for i := range sprint.Tasks {
		task := &sprint.Tasks[i]

		implementers := make([]MemberView, 0, len(task.Implementers))
		for _, m := range task.Implementers {
			implementers = append(implementers, MemberView{
				ID:              m.ID,
				User:            m.User,
				SystemRole:      m.SystemRole,
				DescriptiveRole: m.DescriptiveRole,
			})
		}

		tasks = append(tasks, TaskView{
			ID:           task.ID,
			Name:         task.Name,
			Description:  task.Description,
			StartAt:      task.StartAt,
			EndAt:        task.EndAt,
			Priority:     task.Priority,
			Status:       task.Status,
			Implementers: implementers,
		})
	}

	return &SprintView{
		ID:           sprint.ID,
		Name:         sprint.Name,
		Description:  sprint.Description,
		StartAt:      sprint.StartAt,
		EndAt:        sprint.EndAt,
		Tasks:        tasks,
		DonePercents: taskDonePercents(sprint.Tasks),
	}, nil
}

func taskDonePercents(tasks []models.SprintTask) float64 {
	if len(tasks) == 0 {
		return 0
	}
	done := 0
	for i := range tasks {
		if tasks[i].Status == models.StatusDone {
			done++
		}
	}
	return float64(done) / float64(len(tasks)) * 100
}
