package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/uca-sae/sae-go-api/internal/dto"
	"github.com/uca-sae/sae-go-api/internal/models"
	"github.com/uca-sae/sae-go-api/pkg/github"
)

type stubGithubIdentity struct {
	account github.AccountInfo
	email   string
	orgs    []github.OrgWithRole
}

func (s *stubGithubIdentity) AuthenticatedUser(ctx context.Context, token string) (github.AccountInfo, error) {
	return s.account, nil
}

func (s *stubGithubIdentity) PrimaryEmail(ctx context.Context, token string) (string, error) {
	return s.email, nil
}

func (s *stubGithubIdentity) Organizations(ctx context.Context, token, username string) ([]github.OrgWithRole, error) {
	return s.orgs, nil
}

func newUserFixture() (UserService, *memoryUserRepo, *stubGithubIdentity) {
	users := newMemoryUserRepo()
	identity := &stubGithubIdentity{
		account: github.AccountInfo{Username: "alumno", Name: "Alumno Ejemplo"},
		email:   "alumno@uca.edu",
		orgs: []github.OrgWithRole{
			{OrgID: 99, OrgName: "uca-poo", Role: "member"},
		},
	}
	service := NewUserService(users, identity, validator.New(), zerolog.Nop())
	return service, users, identity
}

func TestSyncCreatesStudentAccount(t *testing.T) {
	service, users, _ := newUserFixture()

	response, err := service.SyncFromGithub(context.Background(), dto.UserSyncRequest{GithubAccessToken: "gho_token"})
	require.NoError(t, err)

	require.Equal(t, "alumno@uca.edu", response.Email)
	require.Equal(t, "alumno", response.GithubUsername)
	require.Len(t, response.Organizations, 1)
	require.Equal(t, models.RoleStudent, response.Organizations[0].Role)

	stored, err := users.GetByEmail(context.Background(), "alumno@uca.edu")
	require.NoError(t, err)
	require.Equal(t, "gho_token", stored.GithubAccessToken)
}

func TestSyncPromotesOrgAdminsToTeacher(t *testing.T) {
	service, _, identity := newUserFixture()
	identity.orgs[0].Role = "admin"

	response, err := service.SyncFromGithub(context.Background(), dto.UserSyncRequest{GithubAccessToken: "gho_token"})
	require.NoError(t, err)
	require.Equal(t, models.RoleTeacher, response.Organizations[0].Role)
}

func TestSyncPreservesOrgAdminRole(t *testing.T) {
	service, users, _ := newUserFixture()

	require.NoError(t, users.Create(context.Background(), &models.User{
		Email: "alumno@uca.edu",
		Organizations: []models.OrgMembership{
			{OrgID: "99", OrgName: "uca-poo", Role: models.RoleOrgAdmin, IsActive: true},
		},
	}))

	response, err := service.SyncFromGithub(context.Background(), dto.UserSyncRequest{GithubAccessToken: "gho_token"})
	require.NoError(t, err)
	require.Equal(t, models.RoleOrgAdmin, response.Organizations[0].Role, "platform-assigned admin survives the sync")
}

func TestSyncPreservesInactiveFlag(t *testing.T) {
	service, users, _ := newUserFixture()

	require.NoError(t, users.Create(context.Background(), &models.User{
		Email: "alumno@uca.edu",
		Organizations: []models.OrgMembership{
			{OrgID: "99", OrgName: "uca-poo", Role: models.RoleStudent, IsActive: false},
		},
	}))

	response, err := service.SyncFromGithub(context.Background(), dto.UserSyncRequest{GithubAccessToken: "gho_token"})
	require.NoError(t, err)
	require.False(t, response.Organizations[0].IsActive)
}

func TestSetRoleUnknownUser(t *testing.T) {
	service, _, _ := newUserFixture()

	err := service.SetRole(context.Background(), dto.MembershipRoleRequest{
		Email: "nadie@uca.edu",
		OrgID: "99",
		Role:  models.RoleTeacher,
	})
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestSetRoleAndActive(t *testing.T) {
	service, users, _ := newUserFixture()

	_, err := service.SyncFromGithub(context.Background(), dto.UserSyncRequest{GithubAccessToken: "gho_token"})
	require.NoError(t, err)

	require.NoError(t, service.SetRole(context.Background(), dto.MembershipRoleRequest{
		Email: "alumno@uca.edu",
		OrgID: "99",
		Role:  models.RoleOrgAdmin,
	}))
	require.NoError(t, service.SetActive(context.Background(), dto.MembershipActiveRequest{
		Email: "alumno@uca.edu",
		OrgID: "99",
	}))

	stored, err := users.GetByEmail(context.Background(), "alumno@uca.edu")
	require.NoError(t, err)
	membership, ok := stored.MembershipIn("99")
	require.True(t, ok)
	require.Equal(t, models.RoleOrgAdmin, membership.Role)
	require.False(t, membership.IsActive)
}
