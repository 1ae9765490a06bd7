package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mstepanenko/sprintdesk/internal/database/testutil"
	"github.com/mstepanenko/sprintdesk/internal/models"
	"github.com/mstepanenko/sprintdesk/internal/permissions"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	db          *gorm.DB
	eval        *permissions.Evaluator
	users       *UserService
	projects    *ProjectService
	invitations *InvitationService
	sprints     *SprintService
	clock       *fakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.MustOpenTestDB(t)

	eval, err := permissions.NewEvaluator(db)
	require.NoError(t, err)

	users, err := NewUserService(db)
	require.NoError(t, err)

	projects, err := NewProjectService(db, eval)
	require.NoError(t, err)

	clock := newFakeClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	invitations, err := NewInvitationService(db, eval, InvitationConfig{
		CodeTTL:    time.Hour,
		CodeLength: 6,
		Clock:      clock.Now,
	})
	require.NoError(t, err)

	sprints, err := NewSprintService(db, eval)
	require.NoError(t, err)

	return &testEnv{
		db:          db,
		eval:        eval,
		users:       users,
		projects:    projects,
		invitations: invitations,
		sprints:     sprints,
		clock:       clock,
	}
}

func (e *testEnv) registerUser(t *testing.T, username string) *models.User {
	t.Helper()

	user, err := e.users.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret-pass",
		Name:     "Test",
		Surname:  "User",
	})
	require.NoError(t, err)
	return user
}

func (e *testEnv) createProject(t *testing.T, ownerID, name string) *ProjectDetails {
	t.Helper()

	details, err := e.projects.Create(context.Background(), ownerID, CreateProjectInput{Name: name})
	require.NoError(t, err)
	return details
}

// joinProject attaches the user as a plain MEMBER without going through codes.
func (e *testEnv) joinProject(t *testing.T, userID, projectID string, role models.SystemRole) *models.ProjectMember {
	t.Helper()

	member := &models.ProjectMember{
		ProjectID:  projectID,
		UserID:     userID,
		SystemRole: role,
	}
	require.NoError(t, e.db.Create(member).Error)
	return member
}

func (e *testEnv) memberRole(t *testing.T, memberID string) models.SystemRole {
	t.Helper()

	var member models.ProjectMember
	require.NoError(t, e.db.Take(&member, "id = ?", memberID).Error)
	return member.SystemRole
}
