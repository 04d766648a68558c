package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/uca-sae/sae-go-api/internal/dto"
	"github.com/uca-sae/sae-go-api/internal/models"
)

func newTaskLinkFixture() (TaskLinkService, *memoryTaskLinkRepo, *memoryUserRepo) {
	links := newMemoryTaskLinkRepo()
	users := newMemoryUserRepo()
	service := NewTaskLinkService(links, users, validator.New(), zerolog.Nop())
	return service, links, users
}

func linkRequest() dto.TaskLinkCreateRequest {
	return dto.TaskLinkCreateRequest{
		IDTaskGithubClassroom: "gh-task-1",
		IDClassroom:           "class-1",
		OrgID:                 "99",
		OrgName:               "uca-poo",
		InvitationURL:         "https://classroom.github.com/a/abc",
		EmailOwner:            "profe@uca.edu",
		IDTaskMoodle:          "moodle-1",
		IDCursoMoodle:         "course-7",
		Issuer:                "https://campus.uca.edu",
	}
}

func seedTeacher(t *testing.T, users *memoryUserRepo, role string) {
	t.Helper()
	require.NoError(t, users.Create(context.Background(), &models.User{
		Email: "profe@uca.edu",
		Organizations: []models.OrgMembership{
			{OrgID: "99", OrgName: "uca-poo", Role: role, IsActive: true},
		},
	}))
}

func TestTaskLinkCreateRequiresTeachingRights(t *testing.T) {
	service, _, users := newTaskLinkFixture()
	seedTeacher(t, users, models.RoleStudent)

	_, err := service.Create(context.Background(), linkRequest())
	require.ErrorIs(t, err, ErrForbidden)
}

func TestTaskLinkCreateUnknownOwnerForbidden(t *testing.T) {
	service, _, _ := newTaskLinkFixture()

	_, err := service.Create(context.Background(), linkRequest())
	require.ErrorIs(t, err, ErrForbidden)
}

func TestTaskLinkCreateAndResolve(t *testing.T) {
	service, _, users := newTaskLinkFixture()
	seedTeacher(t, users, models.RoleTeacher)

	created, err := service.Create(context.Background(), linkRequest())
	require.NoError(t, err)
	require.Equal(t, "gh-task-1", created.IDTaskGithubClassroom)

	resolved, err := service.Resolve(context.Background(), "moodle-1", "https://campus.uca.edu")
	require.NoError(t, err)
	require.Equal(t, created.ID, resolved.ID)

	exists, err := service.Exists(context.Background(), "moodle-1", "https://campus.uca.edu")
	require.NoError(t, err)
	require.True(t, exists)

	invitation, err := service.InvitationURL(context.Background(), "moodle-1", "https://campus.uca.edu")
	require.NoError(t, err)
	require.Equal(t, "https://classroom.github.com/a/abc", invitation)
}

func TestTaskLinkCreateConflictOnTriple(t *testing.T) {
	service, _, users := newTaskLinkFixture()
	seedTeacher(t, users, models.RoleOrgAdmin)

	_, err := service.Create(context.Background(), linkRequest())
	require.NoError(t, err)

	_, err = service.Create(context.Background(), linkRequest())
	require.ErrorIs(t, err, ErrTaskLinkConflict)
}

func TestTaskLinkResolveMissing(t *testing.T) {
	service, _, _ := newTaskLinkFixture()

	_, err := service.Resolve(context.Background(), "moodle-404", "https://campus.uca.edu")
	require.ErrorIs(t, err, ErrTaskLinkNotFound)

	exists, err := service.Exists(context.Background(), "moodle-404", "https://campus.uca.edu")
	require.NoError(t, err)
	require.False(t, exists)
}
