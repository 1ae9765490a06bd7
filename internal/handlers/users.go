package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mstepanenko/sprintdesk/internal/models"
	"github.com/mstepanenko/sprintdesk/internal/services"
	"github.com/mstepanenko/sprintdesk/pkg/response"
)

// UserHandler exposes the authenticated user's profile operations.
type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

type updateProfileRequest struct {
	Username     *string `json:"username" validate:"omitempty,min=3,max=64"`
	Email        *string `json:"email" validate:"omitempty,email"`
	Name         *string `json:"name"`
	Surname      *string `json:"surname"`
	Description  *string `json:"description"`
	LanguageCode *string `json:"language_code"`
}

type updatePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=3,max=64"`
}

type profileResponse struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Surname      string    `json:"surname"`
	Description  string    `json:"description"`
	LanguageCode string    `json:"language_code"`
	RegisteredAt time.Time `json:"registered_at"`
}

func newProfileResponse(user *models.User) profileResponse {
	return profileResponse{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		Name:         user.Name,
		Surname:      user.Surname,
		Description:  user.Description,
		LanguageCode: user.LanguageCode,
		RegisteredAt: user.RegisteredAt,
	}
}

// GET /user
func (h *UserHandler) Profile(c *gin.Context) {
	user, err := h.users.GetByID(requestContext(c), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, newProfileResponse(user))
}

// POST /user
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if !bindAndValidate(c, &req) {
		return
	}

	_, err := h.users.UpdateProfile(requestContext(c), currentUserID(c), services.UpdateProfileInput{
		Username:     req.Username,
		Email:        req.Email,
		Name:         req.Name,
		Surname:      req.Surname,
		Description:  req.Description,
		LanguageCode: req.LanguageCode,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// PATCH /user/password
func (h *UserHandler) UpdatePassword(c *gin.Context) {
	var req updatePasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.users.UpdatePassword(requestContext(c), currentUserID(c), req.OldPassword, req.NewPassword); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
