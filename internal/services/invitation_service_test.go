package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mstepanenko/sprintdesk/internal/models"
	apperrors "github.com/mstepanenko/sprintdesk/pkg/errors"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

func TestGenerateInvitationCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.registerUser(t, "gen-owner")
	member := env.registerUser(t, "gen-member")
	project := env.createProject(t, owner.ID, "invites")
	projectID := project.Project.ID
	env.joinProject(t, member.ID, projectID, models.RoleMember)

	code, err := env.invitations.Generate(ctx, owner.ID, projectID)
	require.NoError(t, err)
	require.Regexp(t, codePattern, code.Code)
	require.Equal(t, projectID, code.ProjectID)
	require.True(t, code.ExpiresAt.Equal(env.clock.Now().Add(time.Hour)))

	// Plain members may not mint codes.
	_, err = env.invitations.Generate(ctx, member.ID, projectID)
	require.ErrorIs(t, err, apperrors.ErrNotEnoughPermissions)

	_, err = env.invitations.Generate(ctx, owner.ID, "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, ErrProjectNotFound)
}

func TestRedeemCreatesMemberRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.registerUser(t, "redeem-owner")
	joiner := env.registerUser(t, "redeem-joiner")
	project := env.createProject(t, owner.ID, "open")
	projectID := project.Project.ID

	code, err := env.invitations.Generate(ctx, owner.ID, projectID)
	require.NoError(t, err)

	member, err := env.invitations.Redeem(ctx, joiner.ID, code.Code)
	require.NoError(t, err)
	require.Equal(t, models.RoleMember, member.SystemRole)
	require.Equal(t, projectID, member.ProjectID)

	connected, err := env.eval.IsConnected(ctx, joiner.ID, projectID)
	require.NoError(t, err)
	require.True(t, connected)
}

func TestRedeemRejectsUnknownAndExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.registerUser(t, "exp-owner")
	joiner := env.registerUser(t, "exp-joiner")
	project := env.createProject(t, owner.ID, "expiring")

	_, err := env.invitations.Redeem(ctx, joiner.ID, "NOCODE")
	require.ErrorIs(t, err, apperrors.ErrInvalidInvitationCode)

	code, err := env.invitations.Generate(ctx, owner.ID, project.Project.ID)
	require.NoError(t, err)

	// Expired codes are invalid even before the sweeper removes the row.
	env.clock.Advance(2 * time.Hour)
	_, err = env.invitations.Redeem(ctx, joiner.ID, code.Code)
	require.ErrorIs(t, err, apperrors.ErrInvalidInvitationCode)
}

func TestRedeemAlreadyConnected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.registerUser(t, "dup-owner")
	project := env.createProject(t, owner.ID, "dup")

	code, err := env.invitations.Generate(ctx, owner.ID, project.Project.ID)
	require.NoError(t, err)

	// The owner is already in the project it invited to.
	_, err = env.invitations.Redeem(ctx, owner.ID, code.Code)
	require.ErrorIs(t, err, apperrors.ErrAlreadyConnected)
}

func TestRedeemIsNotSingleUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.registerUser(t, "multi-owner")
	first := env.registerUser(t, "multi-first")
	second := env.registerUser(t, "multi-second")
	project := env.createProject(t, owner.ID, "shared")

	code, err := env.invitations.Generate(ctx, owner.ID, project.Project.ID)
	require.NoError(t, err)

	// A live code admits any number of distinct users.
	_, err = env.invitations.Redeem(ctx, first.ID, code.Code)
	require.NoError(t, err)
	_, err = env.invitations.Redeem(ctx, second.ID, code.Code)
	require.NoError(t, err)
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.registerUser(t, "sweep-owner")
	project := env.createProject(t, owner.ID, "sweep")

	expired, err := env.invitations.Generate(ctx, owner.ID, project.Project.ID)
	require.NoError(t, err)

	env.clock.Advance(30 * time.Minute)
	live, err := env.invitations.Generate(ctx, owner.ID, project.Project.ID)
	require.NoError(t, err)

	// 90 minutes after the first code: it is expired, the second is not.
	env.clock.Advance(time.Hour)
	removed, err := env.invitations.Sweep(ctx, env.clock.Now())
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	var count int64
	require.NoError(t, env.db.Model(&models.InvitationCode{}).
		Where("id = ?", expired.ID).Count(&count).Error)
	require.Zero(t, count)

	require.NoError(t, env.db.Model(&models.InvitationCode{}).
		Where("id = ?", live.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)

	// A second sweep at the same instant is a no-op.
	removed, err = env.invitations.Sweep(ctx, env.clock.Now())
	require.NoError(t, err)
	require.Zero(t, removed)
}
