package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mstepanenko/sprintdesk/internal/services"
	"github.com/mstepanenko/sprintdesk/pkg/response"
)

// ProjectHandler covers project lifecycle, membership, and invitation codes.
type ProjectHandler struct {
	projects    *services.ProjectService
	invitations *services.InvitationService
}

func NewProjectHandler(projects *services.ProjectService, invitations *services.InvitationService) *ProjectHandler {
	return &ProjectHandler{projects: projects, invitations: invitations}
}

type createProjectRequest struct {
	Name        string `json:"name" validate:"required,max=128"`
	Description string `json:"description"`
}

type stringRequest struct {
	Value string `json:"value" validate:"required"`
}

type invitationCodeResponse struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// GET /project/list
func (h *ProjectHandler) List(c *gin.Context) {
	summaries, err := h.projects.ListForUser(requestContext(c), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, summaries)
}

// GET /project/:project_id
func (h *ProjectHandler) Details(c *gin.Context) {
	details, err := h.projects.Details(requestContext(c), currentUserID(c), c.Param("project_id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, details)
}

// POST /project/create
func (h *ProjectHandler) Create(c *gin.Context) {
	var req createProjectRequest
	if !bindAndValidate(c, &req) {
		return
	}

	details, err := h.projects.Create(requestContext(c), currentUserID(c), services.CreateProjectInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, details)
}

// POST /project/:project_id/code/create
func (h *ProjectHandler) CreateCode(c *gin.Context) {
	code, err := h.invitations.Generate(requestContext(c), currentUserID(c), c.Param("project_id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, invitationCodeResponse{
		Code:      code.Code,
		ExpiresAt: code.ExpiresAt,
	})
}

// POST /project/connect/:code
func (h *ProjectHandler) Connect(c *gin.Context) {
	member, err := h.invitations.Redeem(requestContext(c), currentUserID(c), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}

	details, err := h.projects.Details(requestContext(c), currentUserID(c), member.ProjectID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, details)
}

// POST /project/member/:member_id/descriptive-role
func (h *ProjectHandler) SetDescriptiveRole(c *gin.Context) {
	var req stringRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.projects.SetDescriptiveRole(requestContext(c), currentUserID(c), c.Param("member_id"), req.Value); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// PATCH /project/member/:member_id/system-role
func (h *ProjectHandler) SetSystemRole(c *gin.Context) {
	var req stringRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.projects.SetSystemRole(requestContext(c), currentUserID(c), c.Param("member_id"), req.Value); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// DELETE /project/member/:member_id/delete
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	if err := h.projects.RemoveMember(requestContext(c), currentUserID(c), c.Param("member_id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// DELETE /project/leave/:project_id
func (h *ProjectHandler) Leave(c *gin.Context) {
	if err := h.projects.Leave(requestContext(c), currentUserID(c), c.Param("project_id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// DELETE /project/delete/:project_id
func (h *ProjectHandler) Delete(c *gin.Context) {
	if err := h.projects.Delete(requestContext(c), currentUserID(c), c.Param("project_id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
