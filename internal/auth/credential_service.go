package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mstepanenko/sprintdesk/internal/models"
	"github.com/mstepanenko/sprintdesk/pkg/metrics"
)

var (
	// ErrCredentialNotFound indicates that no credential record matches the supplied access token.
	ErrCredentialNotFound = errors.New("credential: not found")
	// ErrCredentialMismatch is returned when a refresh attempt supplies a pair that does not
	// match a stored record, including the case where another request rotated it first.
	ErrCredentialMismatch = errors.New("credential: pair mismatch")
)

// CredentialConfig describes tunable behaviour for the CredentialService.
type CredentialConfig struct {
	Clock func() time.Time
}

// CredentialPair represents the issued access and refresh secrets.
type CredentialPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// CredentialService manages issuance, rotation, and revocation of credential pairs.
// Each user holds at most a handful of live pairs, one per login.
type CredentialService struct {
	db  *gorm.DB
	jwt *JWTService
	now func() time.Time
}

// NewCredentialService constructs a credential manager backed by the provided database and JWT service.
func NewCredentialService(db *gorm.DB, jwtService *JWTService, cfg CredentialConfig) (*CredentialService, error) {
	if db == nil {
		return nil, errors.New("credential service: db is required")
	}
	if jwtService == nil {
		return nil, errors.New("credential service: jwt service is required")
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &CredentialService{
		db:  db,
		jwt: jwtService,
		now: clock,
	}, nil
}

// Issue creates a new credential record for the user and returns the pair.
// Existing pairs for the same user stay valid; each login gets its own record.
func (s *CredentialService) Issue(userID string) (CredentialPair, error) {
	if strings.TrimSpace(userID) == "" {
		return CredentialPair{}, errors.New("credential service: user id is required")
	}

	credentialID := uuid.NewString()

	accessToken, expiresAt, err := s.jwt.GenerateAccessToken(AccessTokenInput{
		UserID:       userID,
		CredentialID: credentialID,
	})
	if err != nil {
		return CredentialPair{}, fmt.Errorf("credential service: generate access token: %w", err)
	}

	credential := &models.Credential{
		ID:           credentialID,
		Token:        accessToken,
		RefreshToken: uuid.NewString(),
		UserID:       userID,
		ExpiresAt:    expiresAt,
	}

	if err := s.db.Create(credential).Error; err != nil {
		return CredentialPair{}, fmt.Errorf("credential service: create credential: %w", err)
	}

	metrics.ActiveCredentials.Inc()

	return CredentialPair{
		AccessToken:  credential.Token,
		RefreshToken: credential.RefreshToken,
		ExpiresAt:    credential.ExpiresAt,
	}, nil
}

// Lookup resolves the credential record behind an access token. A missing
// record means the pair was revoked or rotated, regardless of whether the
// token's signature still verifies.
func (s *CredentialService) Lookup(accessToken string) (*models.Credential, error) {
	if accessToken == "" {
		return nil, ErrCredentialNotFound
	}

	var credential models.Credential
	err := s.db.Where("token = ?", accessToken).First(&credential).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCredentialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("credential service: lookup credential: %w", err)
	}

	return &credential, nil
}

// Refresh rotates a credential pair. Both halves of the old pair must match
// the stored record exactly. Rotation is a compare-and-swap: of two
// concurrent refreshes with the same pair, exactly one wins and the other
// observes a mismatch.
func (s *CredentialService) Refresh(accessToken, refreshToken string) (CredentialPair, error) {
	if accessToken == "" || refreshToken == "" {
		return CredentialPair{}, ErrCredentialMismatch
	}

	var credential models.Credential
	err := s.db.Where("token = ? AND refresh_token = ?", accessToken, refreshToken).First(&credential).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return CredentialPair{}, ErrCredentialMismatch
	}
	if err != nil {
		return CredentialPair{}, fmt.Errorf("credential service: find credential: %w", err)
	}

	// A fresh credential id gives the rotated token a fresh jti, so the new
	// access secret differs from the old one even when both are minted within
	// the same second.
	newID := uuid.NewString()

	newAccess, expiresAt, err := s.jwt.GenerateAccessToken(AccessTokenInput{
		UserID:       credential.UserID,
		CredentialID: newID,
	})
	if err != nil {
		return CredentialPair{}, fmt.Errorf("credential service: generate access token: %w", err)
	}

	newRefresh := uuid.NewString()

	result := s.db.Model(&models.Credential{}).
		Where("id = ? AND refresh_token = ?", credential.ID, refreshToken).
		Updates(map[string]any{
			"id":            newID,
			"token":         newAccess,
			"refresh_token": newRefresh,
			"expires_at":    expiresAt,
		})
	if result.Error != nil {
		return CredentialPair{}, fmt.Errorf("credential service: rotate credential: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return CredentialPair{}, ErrCredentialMismatch
	}

	return CredentialPair{
		AccessToken:  newAccess,
		RefreshToken: newRefresh,
		ExpiresAt:    expiresAt,
	}, nil
}

// Revoke deletes the credential record behind an access token. Revoking a
// token that is already gone is not an error.
func (s *CredentialService) Revoke(accessToken string) error {
	if accessToken == "" {
		return nil
	}

	result := s.db.Where("token = ?", accessToken).Delete(&models.Credential{})
	if result.Error != nil {
		return fmt.Errorf("credential service: revoke credential: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		metrics.ActiveCredentials.Dec()
	}

	return nil
}

// ValidateAccessToken verifies the token's signature and time claims without
// consulting storage.
func (s *CredentialService) ValidateAccessToken(accessToken string) (*Claims, error) {
	return s.jwt.ValidateAccessToken(accessToken)
}
