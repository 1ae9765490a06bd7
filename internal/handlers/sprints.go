package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mstepanenko/sprintdesk/internal/services"
	"github.com/mstepanenko/sprintdesk/pkg/response"
)

// SprintHandler covers sprint and task operations inside a project.
type SprintHandler struct {
	sprints *services.SprintService
}

func NewSprintHandler(sprints *services.SprintService) *SprintHandler {
	return &SprintHandler{sprints: sprints}
}

type createTaskRequest struct {
	Name                 string    `json:"name" validate:"required,max=128"`
	Description          string    `json:"description"`
	StartAt              time.Time `json:"start_at"`
	EndAt                time.Time `json:"end_at"`
	Priority             string    `json:"priority" validate:"required"`
	ImplementerMemberIDs []string  `json:"implementer_member_ids"`
}

type createSprintRequest struct {
	Name        string              `json:"name" validate:"required,max=128"`
	Description string              `json:"description"`
	StartAt     time.Time           `json:"start_at"`
	EndAt       time.Time           `json:"end_at"`
	Tasks       []createTaskRequest `json:"tasks" validate:"dive"`
}

// GET /project/:project_id/sprints
func (h *SprintHandler) List(c *gin.Context) {
	summaries, err := h.sprints.ListForProject(requestContext(c), currentUserID(c), c.Param("project_id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, summaries)
}

// POST /project/:project_id/sprint
func (h *SprintHandler) Create(c *gin.Context) {
	var req createSprintRequest
	if !bindAndValidate(c, &req) {
		return
	}

	tasks := make([]services.CreateTaskInput, 0, len(req.Tasks))
	for _, task := range req.Tasks {
		tasks = append(tasks, services.CreateTaskInput{
			Name:                 task.Name,
			Description:          task.Description,
			StartAt:              task.StartAt,
			EndAt:                task.EndAt,
			Priority:             task.Priority,
			ImplementerMemberIDs: task.ImplementerMemberIDs,
		})
	}

	view, err := h.sprints.Create(requestContext(c), currentUserID(c), c.Param("project_id"), services.CreateSprintInput{
		Name:        req.Name,
		Description: req.Description,
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
		Tasks:       tasks,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// GET /project/:project_id/sprint/:sprint_id
func (h *SprintHandler) Get(c *gin.Context) {
	view, err := h.sprints.Get(requestContext(c), currentUserID(c), c.Param("project_id"), c.Param("sprint_id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// DELETE /project/:project_id/sprint/:sprint_id
func (h *SprintHandler) Delete(c *gin.Context) {
	err := h.sprints.Delete(requestContext(c), currentUserID(c), c.Param("project_id"), c.Param("sprint_id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// PATCH /project/:project_id/sprint/:sprint_id/:task_id
func (h *SprintHandler) UpdateTaskStatus(c *gin.Context) {
	var req stringRequest
	if !bindAndValidate(c, &req) {
		return
	}

	err := h.sprints.UpdateTaskStatus(
		requestContext(c),
		currentUserID(c),
		c.Param("project_id"),
		c.Param("sprint_id"),
		c.Param("task_id"),
		req.Value,
	)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
