package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mstepanenko/sprintdesk/internal/models"
	"github.com/mstepanenko/sprintdesk/pkg/crypto"
	apperrors "github.com/mstepanenko/sprintdesk/pkg/errors"
	"github.com/mstepanenko/sprintdesk/pkg/metrics"
)

// ErrUserNotFound indicates no account matches the supplied identifier.
var ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User with received email or username not found", http.StatusNotFound)

func errUserDataExists(field string) *apperrors.AppError {
	return apperrors.New("USER_DATA_EXISTS", fmt.Sprintf("User field %q already exist", field), http.StatusConflict)
}

// RegisterInput describes the fields accepted when registering an account.
type RegisterInput struct {
	Username     string
	Email        string
	Password     string
	Name         string
	Surname      string
	LanguageCode string
}

// UpdateProfileInput enumerates mutable profile attributes. Nil fields stay untouched.
type UpdateProfileInput struct {
	Username     *string
	Email        *string
	Name         *string
	Surname      *string
	Description  *string
	LanguageCode *string
}

// UserService manages account registration, authentication, and profile updates.
type UserService struct {
	db *gorm.DB
}

// NewUserService constructs a UserService instance.
func NewUserService(db *gorm.DB) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{db: db}, nil
}

// Register provisions a new account with a hashed password. A conflict is
// keyed to whichever field collides, email checked first.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if username == "" {
		return nil, apperrors.NewBadRequest("username is required")
	}
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}
	if strings.TrimSpace(input.Password) == "" {
		return nil, apperrors.NewBadRequest("password is required")
	}

	if taken, err := s.conflictingField(ctx, username, email, ""); err != nil {
		return nil, err
	} else if taken != "" {
		return nil, errUserDataExists(taken)
	}

	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		Hash:         hash,
		Name:         strings.TrimSpace(input.Name),
		Surname:      strings.TrimSpace(input.Surname),
		LanguageCode: strings.TrimSpace(input.LanguageCode),
		RegisteredAt: time.Now().UTC(),
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			// Lost the race against a concurrent registration.
			return nil, errUserDataExists(username)
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}

	return user, nil
}

// Authenticate resolves the account by username or email and verifies the password.
func (s *UserService) Authenticate(ctx context.Context, identifier, password string) (*models.User, error) {
	ctx = ensureContext(ctx)

	identifier = strings.TrimSpace(identifier)

	var user models.User
	err := s.db.WithContext(ctx).
		Where("username = ? OR email = ?", identifier, strings.ToLower(identifier)).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: find user: %w", err)
	}

	if !crypto.VerifyPassword(user.Hash, password) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrWrongCredentials
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	return &user, nil
}

// GetByID loads an account by its identifier.
func (s *UserService) GetByID(ctx context.Context, userID string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: load user: %w", err)
	}

	return &user, nil
}

// UpdateProfile applies the provided sparse changes to the user's profile.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	var username, email string
	if input.Username != nil && strings.TrimSpace(*input.Username) != user.Username {
		username = strings.TrimSpace(*input.Username)
	}
	if input.Email != nil && strings.ToLower(strings.TrimSpace(*input.Email)) != user.Email {
		email = strings.ToLower(strings.TrimSpace(*input.Email))
	}

	if username != "" || email != "" {
		if taken, err := s.conflictingField(ctx, username, email, user.ID); err != nil {
			return nil, err
		} else if taken != "" {
			return nil, errUserDataExists(taken)
		}
	}

	if username != "" {
		user.Username = username
	}
	if email != "" {
		user.Email = email
	}
	if input.Name != nil {
		user.Name = strings.TrimSpace(*input.Name)
	}
	if input.Surname != nil {
		user.Surname = strings.TrimSpace(*input.Surname)
	}
	if input.Description != nil {
		user.Description = *input.Description
	}
	if input.LanguageCode != nil {
		user.LanguageCode = strings.TrimSpace(*input.LanguageCode)
	}

	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, errUserDataExists(user.Username)
		}
		return nil, fmt.Errorf("user service: update profile: %w", err)
	}

	return user, nil
}

// UpdatePassword replaces the password after verifying the current one.
func (s *UserService) UpdatePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	ctx = ensureContext(ctx)

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if !crypto.VerifyPassword(user.Hash, oldPassword) {
		return apperrors.ErrWrongCredentials
	}

	if strings.TrimSpace(newPassword) == "" {
		return apperrors.NewBadRequest("new password is required")
	}

	hash, err := crypto.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("user service: hash password: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(user).Update("hash", hash).Error; err != nil {
		return fmt.Errorf("user service: update password: %w", err)
	}

	return nil
}

// conflictingField reports which of email/username is already taken by a
// different account. Email wins when both collide.
func (s *UserService) conflictingField(ctx context.Context, username, email, excludeID string) (string, error) {
	if email != "" {
		var count int64
		query := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email)
		if excludeID != "" {
			query = query.Where("id <> ?", excludeID)
		}
		if err := query.Count(&count).Error; err != nil {
			return "", fmt.Errorf("user service: check email: %w", err)
		}
		if count > 0 {
			return email, nil
		}
	}

	if username != "" {
		var count int64
		query := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username)
		if excludeID != "" {
			query = query.Where("id <> ?", excludeID)
		}
		if err := query.Count(&count).Error; err != nil {
			return "", fmt.Errorf("user service: check username: %w", err)
		}
		if count > 0 {
			return username, nil
		}
	}

	return "", nil
}
