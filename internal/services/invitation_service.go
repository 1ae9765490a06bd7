package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mstepanenko/sprintdesk/internal/models"
	"github.com/mstepanenko/sprintdesk/internal/permissions"
	"github.com/mstepanenko/sprintdesk/pkg/crypto"
	apperrors "github.com/mstepanenko/sprintdesk/pkg/errors"
	"github.com/mstepanenko/sprintdesk/pkg/logger"
	"github.com/mstepanenko/sprintdesk/pkg/metrics"
)

const (
	// DefaultCodeTTL is the fallback invitation code lifetime.
	DefaultCodeTTL = time.Hour
	// DefaultCodeLength is the fallback invitation code length.
	DefaultCodeLength = 6

	maxCodeAttempts = 10
)

// InvitationConfig describes tunable behaviour for the InvitationService.
type InvitationConfig struct {
	CodeTTL    time.Duration
	CodeLength int
	Clock      func() time.Time
}

// InvitationService issues, redeems, and reaps project invitation codes.
type InvitationService struct {
	db      *gorm.DB
	eval    *permissions.Evaluator
	codeTTL time.Duration
	codeLen int
	now     func() time.Time
}

// NewInvitationService constructs an InvitationService instance.
func NewInvitationService(db *gorm.DB, eval *permissions.Evaluator, cfg InvitationConfig) (*InvitationService, error) {
	if db == nil {
		return nil, errors.New("invitation service: db is required")
	}
	if eval == nil {
		return nil, errors.New("invitation service: permission evaluator is required")
	}

	ttl := cfg.CodeTTL
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}
	length := cfg.CodeLength
	if length <= 0 {
		length = DefaultCodeLength
	}
	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &InvitationService{
		db:      db,
		eval:    eval,
		codeTTL: ttl,
		codeLen: length,
		now:     clock,
	}, nil
}

// Generate mints a fresh invitation code for the project. The actor must hold
// admin rights. Codes are unique among currently stored rows; a collision just
// draws again.
func (s *InvitationService) Generate(ctx context.Context, actorID, projectID string) (*models.InvitationCode, error) {
	ctx = ensureContext(ctx)

	var project models.Project
	err := s.db.WithContext(ctx).First(&project, "id = ?", projectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("invitation service: load project: %w", err)
	}

	admin, err := s.eval.HasAdminRights(ctx, actorID, projectID)
	if err != nil {
		return nil, err
	}
	if !admin {
		return nil, apperrors.ErrNotEnoughPermissions
	}

	now := s.now()

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := crypto.RandomCode(s.codeLen)
		if err != nil {
			return nil, fmt.Errorf("invitation service: generate code: %w", err)
		}

		invitation := &models.InvitationCode{
			Code:      code,
			ProjectID: projectID,
			CreatedAt: now,
			ExpiresAt: now.Add(s.codeTTL),
		}

		err = s.db.WithContext(ctx).Create(invitation).Error
		if err == nil {
			return invitation, nil
		}
		if !isUniqueConstraintError(err) {
			return nil, fmt.Errorf("invitation service: store code: %w", err)
		}
	}

	return nil, errors.New("invitation service: exhausted code generation attempts")
}

// Redeem joins the calling user to the project behind the code as a MEMBER.
// Unknown and expired codes are indistinguishable to the caller. The code
// itself stays live for other users until it expires.
func (s *InvitationService) Redeem(ctx context.Context, userID, code string) (*models.ProjectMember, error) {
	ctx = ensureContext(ctx)

	var invitation models.InvitationCode
	err := s.db.WithContext(ctx).Where("code = ?", code).First(&invitation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrInvalidInvitationCode
	}
	if err != nil {
		return nil, fmt.Errorf("invitation service: load code: %w", err)
	}

	if invitation.Expired(s.now()) {
		return nil, apperrors.ErrInvalidInvitationCode
	}

	connected, err := s.eval.IsConnected(ctx, userID, invitation.ProjectID)
	if err != nil {
		return nil, err
	}
	if connected {
		return nil, apperrors.ErrAlreadyConnected
	}

	member := &models.ProjectMember{
		ProjectID:  invitation.ProjectID,
		UserID:     userID,
		SystemRole: models.RoleMember,
	}

	if err := s.db.WithContext(ctx).Create(member).Error; err != nil {
		if isUniqueConstraintError(err) {
			// Concurrent redemption of the same code by the same user.
			return nil, apperrors.ErrAlreadyConnected
		}
		return nil, fmt.Errorf("invitation service: create membership: %w", err)
	}

	return member, nil
}

// Sweep deletes every code whose expiry lies before now. Row-scoped: live
// codes are never touched.
func (s *InvitationService) Sweep(ctx context.Context, now time.Time) (int64, error) {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&models.InvitationCode{})
	if result.Error != nil {
		return 0, fmt.Errorf("invitation service: sweep codes: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		metrics.SweptInvitationCodes.Add(float64(result.RowsAffected))
		logger.Debug("swept expired invitation codes", zap.Int64("count", result.RowsAffected))
	}

	return result.RowsAffected, nil
}
