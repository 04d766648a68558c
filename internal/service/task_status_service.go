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

// ErrTaskStatusNotFound indicates no rollup exists for the assignment.
var ErrTaskStatusNotFound = errors.New("task status not found")

// TaskStatusService maintains the per-assignment feedback rollup.
type TaskStatusService interface {
	Get(ctx context.Context, idTaskGithubClassroom string) (dto.TaskStatusResponse, error)
	Upsert(ctx context.Context, payload dto.TaskStatusUpsertRequest) (dto.TaskStatusResponse, error)
	Refresh(ctx context.Context, idTaskGithubClassroom string) error
	AllFeedbackSent(ctx context.Context, idTaskGithubClassroom string) (bool, error)
}

type taskStatusService struct {
	statuses  repository.TaskStatusRepository
	feedbacks repository.FeedbackRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewTaskStatusService builds the rollup service.
func NewTaskStatusService(statuses repository.TaskStatusRepository, feedbacks repository.FeedbackRepository, validate *validator.Validate, logger zerolog.Logger) TaskStatusService {
	return &taskStatusService{
		statuses:  statuses,
		feedbacks: feedbacks,
		validator: validate,
		logger:    logger.With().Str("component", "task_status_service").Logger(),
	}
}

func (s *taskStatusService) Get(ctx context.Context, idTaskGithubClassroom string) (dto.TaskStatusResponse, error) {
	status, err := s.statuses.GetByTask(ctx, idTaskGithubClassroom)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TaskStatusResponse{}, ErrTaskStatusNotFound
		}
		return dto.TaskStatusResponse{}, err
	}

	return dto.NewTaskStatusResponse(status), nil
}

func (s *taskStatusService) Upsert(ctx context.Context, payload dto.TaskStatusUpsertRequest) (dto.TaskStatusResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TaskStatusResponse{}, err
	}

	status := models.TaskFeedbackStatus{
		IDTaskGithubClassroom: payload.IDTaskGithubClassroom,
		CountEntregas:         payload.CountEntregas,
		CountPendiente:        payload.CountPendiente,
		CountGenerado:         payload.CountGenerado,
		CountEnviado:          payload.CountEnviado,
	}
	if err := s.statuses.Upsert(ctx, &status); err != nil {
		return dto.TaskStatusResponse{}, err
	}

	return dto.NewTaskStatusResponse(status), nil
}

// Refresh recomputes the counts from the stored feedback rows.
func (s *taskStatusService) Refresh(ctx context.Context, idTaskGithubClassroom string) error {
	pending, err := s.feedbacks.CountByTaskAndStatus(ctx, idTaskGithubClassroom, models.FeedbackStatusPending)
	if err != nil {
		return err
	}
	generated, err := s.feedbacks.CountByTaskAndStatus(ctx, idTaskGithubClassroom, models.FeedbackStatusGenerated)
	if err != nil {
		return err
	}
	sent, err := s.feedbacks.CountByTaskAndStatus(ctx, idTaskGithubClassroom, models.FeedbackStatusSent)
	if err != nil {
		return err
	}

	status := models.TaskFeedbackStatus{
		IDTaskGithubClassroom: idTaskGithubClassroom,
		CountEntregas:         int(pending + generated + sent),
		CountPendiente:        int(pending),
		CountGenerado:         int(generated),
		CountEnviado:          int(sent),
	}
	return s.statuses.Upsert(ctx, &status)
}

// AllFeedbackSent reports whether every submission of the task has a
// delivered review. Tasks without submissions report false.
func (s *taskStatusService) AllFeedbackSent(ctx context.Context, idTaskGithubClassroom string) (bool, error) {
	status, err := s.statuses.GetByTask(ctx, idTaskGithubClassroom)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	if status.CountEntregas == 0 {
		return false, nil
	}

	sent, err := s.feedbacks.CountByTaskAndStatus(ctx, idTaskGithubClassroom, models.FeedbackStatusSent)
	if err != nil {
		return false, err
	}

	return int64(status.CountEntregas) == sent, nil
}
