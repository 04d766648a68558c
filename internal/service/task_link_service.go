package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/uca-sae/sae-go-api/internal/dto"
	"github.com/uca-sae/sae-go-api/internal/models"
	"github.com/uca-sae/sae-go-api/internal/repository"
)

var (
	// ErrTaskLinkNotFound indicates no link exists for the Moodle activity.
	ErrTaskLinkNotFound = errors.New("task link not found")
	// ErrTaskLinkConflict indicates the link triple already exists.
	ErrTaskLinkConflict = errors.New("task link already exists")
)

// TaskLinkService binds Moodle activities to GitHub Classroom assignments.
type TaskLinkService interface {
	Create(ctx context.Context, payload dto.TaskLinkCreateRequest) (dto.TaskLinkResponse, error)
	Exists(ctx context.Context, idTaskMoodle, issuer string) (bool, error)
	Resolve(ctx context.Context, idTaskMoodle, issuer string) (dto.TaskLinkResponse, error)
	InvitationURL(ctx context.Context, idTaskMoodle, issuer string) (string, error)
	ListByOwner(ctx context.Context, emailOwner string) ([]dto.TaskLinkResponse, error)
}

type taskLinkService struct {
	links     repository.TaskLinkRepository
	users     repository.UserRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewTaskLinkService builds the task link service.
func NewTaskLinkService(links repository.TaskLinkRepository, users repository.UserRepository, validate *validator.Validate, logger zerolog.Logger) TaskLinkService {
	return &taskLinkService{
		links:     links,
		users:     users,
		validator: validate,
		logger:    logger.With().Str("component", "task_link_service").Logger(),
	}
}

// Create registers a new link. The owner must hold teaching rights in
// the target organization and the triple must be new.
func (s *taskLinkService) Create(ctx context.Context, payload dto.TaskLinkCreateRequest) (dto.TaskLinkResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TaskLinkResponse{}, err
	}

	owner, err := s.users.GetByEmail(ctx, payload.EmailOwner)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TaskLinkResponse{}, ErrForbidden
		}
		return dto.TaskLinkResponse{}, err
	}
	if !owner.IsTeacherIn(payload.OrgID) {
		return dto.TaskLinkResponse{}, ErrForbidden
	}

	exists, err := s.links.ExistsTriple(ctx, payload.IDTaskGithubClassroom, payload.IDTaskMoodle, payload.IDCursoMoodle)
	if err != nil {
		return dto.TaskLinkResponse{}, err
	}
	if exists {
		return dto.TaskLinkResponse{}, ErrTaskLinkConflict
	}

	link := models.TaskLink{
		IDTaskGithubClassroom: payload.IDTaskGithubClassroom,
		IDClassroom:           payload.IDClassroom,
		OrgID:                 payload.OrgID,
		OrgName:               payload.OrgName,
		InvitationURL:         payload.InvitationURL,
		EmailOwner:            payload.EmailOwner,
		IDTaskMoodle:          payload.IDTaskMoodle,
		IDCursoMoodle:         payload.IDCursoMoodle,
		Issuer:                payload.Issuer,
	}
	if err := s.links.Create(ctx, &link); err != nil {
		return dto.TaskLinkResponse{}, err
	}

	s.logger.Info().
		Str("github_task", link.IDTaskGithubClassroom).
		Str("moodle_task", link.IDTaskMoodle).
		Str("owner", link.EmailOwner).
		Msg("task link created")

	return dto.NewTaskLinkResponse(link), nil
}

func (s *taskLinkService) Exists(ctx context.Context, idTaskMoodle, issuer string) (bool, error) {
	_, err := s.links.GetByMoodleTask(ctx, idTaskMoodle, issuer)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *taskLinkService) Resolve(ctx context.Context, idTaskMoodle, issuer string) (dto.TaskLinkResponse, error) {
	link, err := s.links.GetByMoodleTask(ctx, idTaskMoodle, issuer)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TaskLinkResponse{}, ErrTaskLinkNotFound
		}
		return dto.TaskLinkResponse{}, err
	}

	return dto.NewTaskLinkResponse(link), nil
}

func (s *taskLinkService) InvitationURL(ctx context.Context, idTaskMoodle, issuer string) (string, error) {
	link, err := s.Resolve(ctx, idTaskMoodle, issuer)
	if err != nil {
		return "", err
	}
	return link.InvitationURL, nil
}

func (s *taskLinkService) ListByOwner(ctx context.Context, emailOwner string) ([]dto.TaskLinkResponse, error) {
	links, err := s.links.ListByOwner(ctx, emailOwner)
	if err != nil {
		return nil, err
	}

	return dto.NewTaskLinkResponseSlice(links), nil
}
