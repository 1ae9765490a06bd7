package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mstepanenko/sprintdesk/internal/database/testutil"
	"github.com/mstepanenko/sprintdesk/internal/models"
)

func setupCredentialService(t *testing.T) (*gorm.DB, *CredentialService) {
	t.Helper()

	db := testutil.MustOpenTestDB(t)

	jwtSvc, err := NewJWTService(JWTConfig{
		Secret:         "test-secret",
		Issuer:         "sprintdesk",
		AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)

	svc, err := NewCredentialService(db, jwtSvc, CredentialConfig{})
	require.NoError(t, err)

	return db, svc
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		Hash:         "irrelevant",
		RegisteredAt: time.Now(),
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestIssueCreatesCredentialRecord(t *testing.T) {
	db, svc := setupCredentialService(t)
	user := createTestUser(t, db, "issue-user")

	pair, err := svc.Issue(user.ID)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.False(t, pair.ExpiresAt.IsZero())

	var record models.Credential
	require.NoError(t, db.Take(&record, "token = ?", pair.AccessToken).Error)
	require.Equal(t, user.ID, record.UserID)
	require.Equal(t, pair.RefreshToken, record.RefreshToken)

	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, record.ID, claims.CredentialID)
}

func TestIssueKeepsEarlierPairsAlive(t *testing.T) {
	db, svc := setupCredentialService(t)
	user := createTestUser(t, db, "multi-login")

	first, err := svc.Issue(user.ID)
	require.NoError(t, err)
	second, err := svc.Issue(user.ID)
	require.NoError(t, err)

	require.NotEqual(t, first.AccessToken, second.AccessToken)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// Logging in again never invalidates earlier sessions.
	_, err = svc.Lookup(first.AccessToken)
	require.NoError(t, err)
	_, err = svc.Lookup(second.AccessToken)
	require.NoError(t, err)
}

func TestLookupUnknownToken(t *testing.T) {
	_, svc := setupCredentialService(t)

	_, err := svc.Lookup("no-such-token")
	require.ErrorIs(t, err, ErrCredentialNotFound)

	_, err = svc.Lookup("")
	require.ErrorIs(t, err, ErrCredentialNotFound)
}

func TestRefreshRotatesPair(t *testing.T) {
	db, svc := setupCredentialService(t)
	user := createTestUser(t, db, "refresh-user")

	old, err := svc.Issue(user.ID)
	require.NoError(t, err)

	rotated, err := svc.Refresh(old.AccessToken, old.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, old.AccessToken, rotated.AccessToken)
	require.NotEqual(t, old.RefreshToken, rotated.RefreshToken)

	// The old pair is dead in both directions.
	_, err = svc.Lookup(old.AccessToken)
	require.ErrorIs(t, err, ErrCredentialNotFound)
	_, err = svc.Refresh(old.AccessToken, old.RefreshToken)
	require.ErrorIs(t, err, ErrCredentialMismatch)

	// The record was rewritten in place, so the new access token resolves.
	record, err := svc.Lookup(rotated.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, record.UserID)

	var count int64
	require.NoError(t, db.Model(&models.Credential{}).Where("user_id = ?", user.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestRefreshRotatesWithinSameInstant(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	frozen := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return frozen }

	jwtSvc, err := NewJWTService(JWTConfig{
		Secret:         "test-secret",
		Issuer:         "sprintdesk",
		AccessTokenTTL: time.Hour,
		Clock:          clock,
	})
	require.NoError(t, err)
	svc, err := NewCredentialService(db, jwtSvc, CredentialConfig{Clock: clock})
	require.NoError(t, err)

	user := createTestUser(t, db, "same-instant")
	old, err := svc.Issue(user.ID)
	require.NoError(t, err)

	// iat and exp are second-precision, so with a frozen clock only a fresh
	// credential id can make the rotated token differ from the old one.
	rotated, err := svc.Refresh(old.AccessToken, old.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, old.AccessToken, rotated.AccessToken)

	oldClaims, err := svc.ValidateAccessToken(old.AccessToken)
	require.NoError(t, err)
	newClaims, err := svc.ValidateAccessToken(rotated.AccessToken)
	require.NoError(t, err)
	require.NotEqual(t, oldClaims.CredentialID, newClaims.CredentialID)

	record, err := svc.Lookup(rotated.AccessToken)
	require.NoError(t, err)
	require.Equal(t, newClaims.CredentialID, record.ID)

	_, err = svc.Lookup(old.AccessToken)
	require.ErrorIs(t, err, ErrCredentialNotFound)
}

func TestRefreshAcceptsExpiredAccessToken(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	jwtSvc, err := NewJWTService(JWTConfig{
		Secret:         "test-secret",
		Issuer:         "sprintdesk",
		AccessTokenTTL: 15 * time.Minute,
		Clock:          clock,
	})
	require.NoError(t, err)
	svc, err := NewCredentialService(db, jwtSvc, CredentialConfig{Clock: clock})
	require.NoError(t, err)

	user := createTestUser(t, db, "expired-refresh")
	pair, err := svc.Issue(user.ID)
	require.NoError(t, err)

	// The access window lapses without the pair being rotated or revoked. The
	// stored record must survive so the untouched refresh token still works.
	now = now.Add(2 * time.Hour)

	_, err = svc.ValidateAccessToken(pair.AccessToken)
	require.Error(t, err)

	rotated, err := svc.Refresh(pair.AccessToken, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, pair.AccessToken, rotated.AccessToken)

	_, err = svc.ValidateAccessToken(rotated.AccessToken)
	require.NoError(t, err)
}

func TestRefreshRejectsMismatchedPair(t *testing.T) {
	db, svc := setupCredentialService(t)
	user := createTestUser(t, db, "mismatch-user")
	other := createTestUser(t, db, "mismatch-other")

	mine, err := svc.Issue(user.ID)
	require.NoError(t, err)
	theirs, err := svc.Issue(other.ID)
	require.NoError(t, err)

	// Halves from two different live pairs never combine.
	_, err = svc.Refresh(mine.AccessToken, theirs.RefreshToken)
	require.ErrorIs(t, err, ErrCredentialMismatch)

	// Both originals stay usable after the failed attempt.
	_, err = svc.Lookup(mine.AccessToken)
	require.NoError(t, err)
	_, err = svc.Lookup(theirs.AccessToken)
	require.NoError(t, err)
}

func TestRefreshLosesRaceAgainstEarlierRotation(t *testing.T) {
	db, svc := setupCredentialService(t)
	user := createTestUser(t, db, "race-user")

	pair, err := svc.Issue(user.ID)
	require.NoError(t, err)

	winner, err := svc.Refresh(pair.AccessToken, pair.RefreshToken)
	require.NoError(t, err)

	// A second attempt with the already-spent pair must not mint anything.
	_, err = svc.Refresh(pair.AccessToken, pair.RefreshToken)
	require.ErrorIs(t, err, ErrCredentialMismatch)

	// Exactly one record survives and it belongs to the winner.
	var count int64
	require.NoError(t, db.Model(&models.Credential{}).Where("user_id = ?", user.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)

	record, err := svc.Lookup(winner.AccessToken)
	require.NoError(t, err)
	require.Equal(t, winner.RefreshToken, record.RefreshToken)
}

func TestRevokeIsIdempotent(t *testing.T) {
	db, svc := setupCredentialService(t)
	user := createTestUser(t, db, "revoke-user")

	pair, err := svc.Issue(user.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(pair.AccessToken))
	_, err = svc.Lookup(pair.AccessToken)
	require.ErrorIs(t, err, ErrCredentialNotFound)

	// Second revoke of the same token succeeds silently.
	require.NoError(t, svc.Revoke(pair.AccessToken))
	require.NoError(t, svc.Revoke(""))

	var count int64
	require.NoError(t, db.Model(&models.Credential{}).Where("user_id = ?", user.ID).Count(&count).Error)
	require.EqualValues(t, 0, count)
}
