package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError provides a structured error that can be rendered to API consumers.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}

	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}

	return e.Message
}

// Unwrap exposes the internal error for errors.Is / errors.As compatibility.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// WithInternal returns a copy of the AppError with an attached internal error.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Internal = err
	return &cpy
}

// WithMessage returns a copy of the AppError carrying a more specific message.
func (e *AppError) WithMessage(message string) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Message = message
	return &cpy
}

// Common errors exposed to the rest of the application.
var (
	// ErrCredentialNotFound covers missing/malformed Authorization headers and
	// access tokens without a stored credential record.
	ErrCredentialNotFound = &AppError{
		Code:       "CREDENTIAL_NOT_FOUND",
		Message:    "Bearer credential doesn't exist",
		StatusCode: http.StatusForbidden,
	}

	// ErrCredentialInvalid marks a stored credential whose cryptographic
	// material no longer verifies (bad signature or elapsed time window).
	ErrCredentialInvalid = &AppError{
		Code:       "CREDENTIAL_INVALID",
		Message:    "Credential is not valid",
		StatusCode: http.StatusForbidden,
	}

	ErrWrongCredentials = &AppError{
		Code:       "WRONG_CREDENTIALS",
		Message:    "Received wrong credentials",
		StatusCode: http.StatusForbidden,
	}

	ErrNotEnoughPermissions = &AppError{
		Code:       "NOT_ENOUGH_PERMISSIONS",
		Message:    "You don't have enough permissions to perform this operation",
		StatusCode: http.StatusForbidden,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	ErrAlreadyConnected = &AppError{
		Code:       "ALREADY_CONNECTED",
		Message:    "You are already connected to this project",
		StatusCode: http.StatusConflict,
	}

	ErrInvalidInvitationCode = &AppError{
		Code:       "INVALID_INVITATION_CODE",
		Message:    "Invitation code doesn't exist or is expired",
		StatusCode: http.StatusNotFound,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	ErrInternalServer = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}
)

// New builds a new application error with the provided metadata.
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap turns any error into an AppError while keeping the original error for logging.
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   err,
	}
}

// FromError converts a generic error into an AppError, defaulting to ErrInternalServer.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return ErrInternalServer.WithInternal(err)
}

// NewBadRequest wraps validation errors with a helpful message.
func NewBadRequest(message string) *AppError {
	return &AppError{
		Code:       ErrBadRequest.Code,
		Message:    message,
		StatusCode: ErrBadRequest.StatusCode,
	}
}
