package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	iauth "github.com/mstepanenko/sprintdesk/internal/auth"
	"github.com/mstepanenko/sprintdesk/internal/services"
	apperrors "github.com/mstepanenko/sprintdesk/pkg/errors"
	"github.com/mstepanenko/sprintdesk/pkg/response"
)

// AuthHandler manages registration, login, logout, and pair refresh.
type AuthHandler struct {
	users       *services.UserService
	credentials *iauth.CredentialService
}

func NewAuthHandler(users *services.UserService, credentials *iauth.CredentialService) *AuthHandler {
	return &AuthHandler{users: users, credentials: credentials}
}

type registerRequest struct {
	Username     string `json:"username" validate:"required,min=3,max=64"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=3,max=64"`
	Name         string `json:"name"`
	Surname      string `json:"surname"`
	LanguageCode string `json:"language_code"`
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type tokenPairRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type tokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func newTokenResponse(pair iauth.CredentialPair) tokenResponse {
	return tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
	}
}

// POST /authorization/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.Register(requestContext(c), services.RegisterInput{
		Username:     req.Username,
		Email:        req.Email,
		Password:     req.Password,
		Name:         req.Name,
		Surname:      req.Surname,
		LanguageCode: req.LanguageCode,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	pair, err := h.credentials.Issue(user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, newTokenResponse(pair))
}

// POST /authorization/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.Authenticate(requestContext(c), req.Identifier, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	pair, err := h.credentials.Issue(user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, newTokenResponse(pair))
}

// DELETE /authorization/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	var req tokenPairRequest
	if !bindAndValidate(c, &req) {
		return
	}

	credential, err := h.credentials.Lookup(req.AccessToken)
	if err != nil || credential.RefreshToken != req.RefreshToken {
		response.Error(c, apperrors.ErrWrongCredentials)
		return
	}

	if err := h.credentials.Revoke(req.AccessToken); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// PATCH /authorization/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req tokenPairRequest
	if !bindAndValidate(c, &req) {
		return
	}

	pair, err := h.credentials.Refresh(req.AccessToken, req.RefreshToken)
	if err != nil {
		if errors.Is(err, iauth.ErrCredentialMismatch) || errors.Is(err, iauth.ErrCredentialNotFound) {
			response.Error(c, apperrors.ErrWrongCredentials)
			return
		}
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, newTokenResponse(pair))
}
