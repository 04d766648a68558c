package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/uca-sae/sae-go-api/internal/dto"
	"github.com/uca-sae/sae-go-api/internal/models"
	"github.com/uca-sae/sae-go-api/internal/repository"
	"github.com/uca-sae/sae-go-api/pkg/github"
)

// ErrUserNotFound indicates the requested user does not exist.
var ErrUserNotFound = errors.New("user not found")

// GithubIdentity covers the GitHub user endpoints the sync flow needs.
type GithubIdentity interface {
	AuthenticatedUser(ctx context.Context, token string) (github.AccountInfo, error)
	PrimaryEmail(ctx context.Context, token string) (string, error)
	Organizations(ctx context.Context, token, username string) ([]github.OrgWithRole, error)
}

// UserService keeps platform accounts in sync with GitHub identities.
type UserService interface {
	SyncFromGithub(ctx context.Context, payload dto.UserSyncRequest) (dto.UserResponse, error)
	Get(ctx context.Context, email string) (dto.UserResponse, error)
	ListByOrg(ctx context.Context, orgID string) ([]dto.UserResponse, error)
	SetRole(ctx context.Context, payload dto.MembershipRoleRequest) error
	SetActive(ctx context.Context, payload dto.MembershipActiveRequest) error
}

type userService struct {
	users     repository.UserRepository
	gh        GithubIdentity
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewUserService builds the user sync service.
func NewUserService(users repository.UserRepository, gh GithubIdentity, validate *validator.Validate, logger zerolog.Logger) UserService {
	return &userService{
		users:     users,
		gh:        gh,
		validator: validate,
		logger:    logger.With().Str("component", "user_service").Logger(),
	}
}

// SyncFromGithub creates or refreshes the account behind a GitHub OAuth
// token. Roles follow the GitHub org role (member becomes Student, admin
// becomes Teacher) except ORG_Admin, which is platform-assigned and
// survives the sync. The active flag also survives.
func (s *userService) SyncFromGithub(ctx context.Context, payload dto.UserSyncRequest) (dto.UserResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, err
	}

	account, err := s.gh.AuthenticatedUser(ctx, payload.GithubAccessToken)
	if err != nil {
		return dto.UserResponse{}, fmt.Errorf("fetch github account: %w", err)
	}

	email, err := s.gh.PrimaryEmail(ctx, payload.GithubAccessToken)
	if err != nil {
		return dto.UserResponse{}, fmt.Errorf("fetch primary email: %w", err)
	}

	orgs, err := s.gh.Organizations(ctx, payload.GithubAccessToken, account.Username)
	if err != nil {
		return dto.UserResponse{}, fmt.Errorf("fetch organizations: %w", err)
	}

	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{Email: email}
		user.Name = account.Name
		user.GithubUsername = account.Username
		user.GithubAccessToken = payload.GithubAccessToken
		if err := s.users.Create(ctx, &user); err != nil {
			return dto.UserResponse{}, err
		}
	case err != nil:
		return dto.UserResponse{}, err
	default:
		user.Name = account.Name
		user.GithubUsername = account.Username
		user.GithubAccessToken = payload.GithubAccessToken
		if err := s.users.Update(ctx, &user); err != nil {
			return dto.UserResponse{}, err
		}
	}

	memberships := make([]models.OrgMembership, 0, len(orgs))
	for _, org := range orgs {
		orgID := strconv.FormatInt(org.OrgID, 10)
		membership := models.OrgMembership{
			OrgID:    orgID,
			OrgName:  org.OrgName,
			Role:     determineRole(org.Role),
			IsActive: true,
		}
		if previous, ok := user.MembershipIn(orgID); ok {
			membership.IsActive = previous.IsActive
			if previous.Role == models.RoleOrgAdmin {
				membership.Role = models.RoleOrgAdmin
			}
		}
		memberships = append(memberships, membership)
	}

	if err := s.users.ReplaceMemberships(ctx, user.ID, memberships); err != nil {
		return dto.UserResponse{}, err
	}
	user.Organizations = memberships

	s.logger.Info().
		Str("email", email).
		Str("github_user", account.Username).
		Int("orgs", len(memberships)).
		Msg("user synced from github")

	return dto.NewUserResponse(user), nil
}

func determineRole(githubRole string) string {
	if githubRole == "admin" {
		return models.RoleTeacher
	}
	return models.RoleStudent
}

func (s *userService) Get(ctx context.Context, email string) (dto.UserResponse, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}

	return dto.NewUserResponse(user), nil
}

func (s *userService) ListByOrg(ctx context.Context, orgID string) ([]dto.UserResponse, error) {
	users, err := s.users.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}

	return dto.NewUserResponseSlice(users), nil
}

func (s *userService) SetRole(ctx context.Context, payload dto.MembershipRoleRequest) error {
	if err := s.validator.Struct(payload); err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, payload.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if err := s.users.SetMembershipRole(ctx, user.ID, payload.OrgID, payload.Role); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	s.logger.Info().Str("email", payload.Email).Str("org", payload.OrgID).Str("role", payload.Role).Msg("membership role changed")
	return nil
}

func (s *userService) SetActive(ctx context.Context, payload dto.MembershipActiveRequest) error {
	if err := s.validator.Struct(payload); err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, payload.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if err := s.users.SetMembershipActive(ctx, user.ID, payload.OrgID, payload.IsActive); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	return nil
}
