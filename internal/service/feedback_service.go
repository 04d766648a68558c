package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/uca-sae/sae-go-api/internal/dto"
	"github.com/uca-sae/sae-go-api/internal/models"
	"github.com/uca-sae/sae-go-api/internal/observability"
	"github.com/uca-sae/sae-go-api/internal/repository"
	"github.com/uca-sae/sae-go-api/pkg/ai"
	"github.com/uca-sae/sae-go-api/pkg/crypto"
	"github.com/uca-sae/sae-go-api/pkg/github"
)

var (
	// ErrModelNotFound indicates the requested AI credential does not exist.
	ErrModelNotFound = errors.New("ai model not found")
	// ErrInvalidCredential indicates a stored API key that cannot be decrypted.
	ErrInvalidCredential = errors.New("stored credential cannot be decrypted")
	// ErrUnsupportedProvider indicates a model type with no registered completer.
	ErrUnsupportedProvider = errors.New("unsupported ai provider")
	// ErrFeedbackNotFound indicates the requested feedback row does not exist.
	ErrFeedbackNotFound = errors.New("feedback not found")
	// ErrForbidden indicates the requester lacks rights over the resource.
	ErrForbidden = errors.New("forbidden")
)

// GithubGateway covers the GitHub calls the feedback flow needs.
type GithubGateway interface {
	FetchRepoContent(ctx context.Context, token, orgName, repo, extension string) (github.RepoContent, error)
	PostFeedback(ctx context.Context, token, owner, repo, feedback string) error
}

// RollupRefresher recomputes the per-task feedback counts.
type RollupRefresher interface {
	Refresh(ctx context.Context, idTaskGithubClassroom string) error
}

// FeedbackService generates, stores and delivers AI code reviews.
type FeedbackService interface {
	Generate(ctx context.Context, requesterEmail string, payload dto.FeedbackGenerateRequest) (dto.FeedbackResponse, error)
	Search(ctx context.Context, email, taskID string) (dto.FeedbackResponse, error)
	StatusByRepo(ctx context.Context, repo string) (dto.FeedbackResponse, error)
	ListByTask(ctx context.Context, taskID string) ([]dto.FeedbackResponse, error)
	UpdateText(ctx context.Context, email, taskID string, payload dto.FeedbackUpdateRequest) (dto.FeedbackResponse, error)
	UpdateGrade(ctx context.Context, email, taskID string, payload dto.FeedbackGradeUpdateRequest) (dto.FeedbackResponse, error)
	SubmitToPR(ctx context.Context, requesterEmail, email, taskID string) error
}

type feedbackService struct {
	feedbacks repository.FeedbackRepository
	models    repository.ModelRepository
	links     repository.TaskLinkRepository
	users     repository.UserRepository
	registry  ai.Registry
	cipher    *crypto.Cipher
	gh        GithubGateway
	rollup    RollupRefresher
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewFeedbackService builds the feedback orchestrator.
func NewFeedbackService(
	feedbacks repository.FeedbackRepository,
	models repository.ModelRepository,
	links repository.TaskLinkRepository,
	users repository.UserRepository,
	registry ai.Registry,
	cipher *crypto.Cipher,
	gh GithubGateway,
	rollup RollupRefresher,
	validate *validator.Validate,
	logger zerolog.Logger,
) FeedbackService {
	return &feedbackService{
		feedbacks: feedbacks,
		models:    models,
		links:     links,
		users:     users,
		registry:  registry,
		cipher:    cipher,
		gh:        gh,
		rollup:    rollup,
		validator: validate,
		logger:    logger.With().Str("component", "feedback_service").Logger(),
		now:       time.Now,
	}
}

// Generate runs the full review pipeline for one student repository:
// resolve credential, fetch the submission, prompt the provider, extract
// the grade and upsert the row. Repeat calls overwrite the previous
// review for the same (email, task) pair.
func (s *feedbackService) Generate(ctx context.Context, requesterEmail string, payload dto.FeedbackGenerateRequest) (dto.FeedbackResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.FeedbackResponse{}, err
	}

	credential, err := s.models.GetByID(ctx, payload.ModelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.FeedbackResponse{}, ErrModelNotFound
		}
		return dto.FeedbackResponse{}, err
	}

	if !credential.AllowsTeacher(requesterEmail) {
		return dto.FeedbackResponse{}, ErrForbidden
	}

	apiKey, err := s.cipher.Decrypt(credential.APIKey)
	if err != nil {
		return dto.FeedbackResponse{}, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	factory, ok := s.registry[credential.ModelType.Name]
	if !ok {
		return dto.FeedbackResponse{}, fmt.Errorf("%w: %s", ErrUnsupportedProvider, credential.ModelType.Name)
	}
	completer, err := factory(apiKey)
	if err != nil {
		return dto.FeedbackResponse{}, fmt.Errorf("build completer: %w", err)
	}

	link, err := s.links.GetByGithubTask(ctx, payload.IDTaskGithubClassroom)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.FeedbackResponse{}, ErrTaskLinkNotFound
		}
		return dto.FeedbackResponse{}, err
	}

	requester, err := s.users.GetByEmail(ctx, requesterEmail)
	if err != nil {
		return dto.FeedbackResponse{}, fmt.Errorf("load requester: %w", err)
	}

	content, err := s.gh.FetchRepoContent(ctx, requester.GithubAccessToken, link.OrgName, payload.Repo, payload.Extension)
	if err != nil {
		return dto.FeedbackResponse{}, fmt.Errorf("fetch submission: %w", err)
	}

	sections := ai.BuildPromptSections(content.Readme, content.Code, ai.PromptOptions{
		Language:     payload.Language,
		Subject:      payload.Subject,
		StudentLevel: payload.StudentLevel,
		Topics:       payload.Topics,
		Constraints:  payload.Constraints,
		Style:        payload.Style,
	})

	// The model name always comes from the stored credential, never from
	// the request: a teacher with read access to a shared credential must
	// not be able to pick an arbitrary model on someone else's API key.
	started := s.now()
	text, err := completer.Complete(ctx, ai.Request{Sections: sections, Model: credential.Version})
	if err != nil {
		return dto.FeedbackResponse{}, fmt.Errorf("%s completion: %w", completer.Provider(), err)
	}
	duration := s.now().Sub(started)
	observability.FeedbackDuration().WithLabelValues(credential.ModelType.Name).Observe(duration.Seconds())

	grade, graded := ai.ExtractGrade(text)
	if !graded {
		s.logger.Warn().
			Str("repo", payload.Repo).
			Str("model", credential.Version).
			Msg("feedback has no grade marker")
	}

	row := models.Feedback{
		Repo:                  payload.Repo,
		Email:                 payload.Email,
		IDTaskGithubClassroom: payload.IDTaskGithubClassroom,
		Feedback:              text,
		GradeFeedback:         grade,
		Status:                models.FeedbackStatusGenerated,
		ModelIA:               credential.ModelType.Name,
		DurationMs:            duration.Milliseconds(),
	}

	// Submission grades from the autograder survive regeneration.
	if previous, err := s.feedbacks.GetByEmailAndTask(ctx, payload.Email, payload.IDTaskGithubClassroom); err == nil {
		row.GradeValue = previous.GradeValue
		row.GradeTotal = previous.GradeTotal
	}

	if err := s.feedbacks.Upsert(ctx, &row); err != nil {
		return dto.FeedbackResponse{}, fmt.Errorf("store feedback: %w", err)
	}

	if err := s.rollup.Refresh(ctx, payload.IDTaskGithubClassroom); err != nil {
		s.logger.Error().Err(err).Str("task", payload.IDTaskGithubClassroom).Msg("rollup refresh failed")
	}

	s.logger.Info().
		Str("repo", payload.Repo).
		Str("provider", credential.ModelType.Name).
		Float64("grade", grade).
		Int64("duration_ms", row.DurationMs).
		Msg("feedback generated")

	return dto.NewFeedbackResponse(row), nil
}

func (s *feedbackService) Search(ctx context.Context, email, taskID string) (dto.FeedbackResponse, error) {
	row, err := s.feedbacks.GetByEmailAndTask(ctx, email, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.FeedbackResponse{}, ErrFeedbackNotFound
		}
		return dto.FeedbackResponse{}, err
	}

	return dto.NewFeedbackResponse(row), nil
}

func (s *feedbackService) StatusByRepo(ctx context.Context, repo string) (dto.FeedbackResponse, error) {
	row, err := s.feedbacks.GetByRepo(ctx, repo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.FeedbackResponse{}, ErrFeedbackNotFound
		}
		return dto.FeedbackResponse{}, err
	}

	return dto.NewFeedbackResponse(row), nil
}

func (s *feedbackService) ListByTask(ctx context.Context, taskID string) ([]dto.FeedbackResponse, error) {
	rows, err := s.feedbacks.ListByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	return dto.NewFeedbackResponseSlice(rows), nil
}

func (s *feedbackService) UpdateText(ctx context.Context, email, taskID string, payload dto.FeedbackUpdateRequest) (dto.FeedbackResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.FeedbackResponse{}, err
	}

	row, err := s.feedbacks.GetByEmailAndTask(ctx, email, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.FeedbackResponse{}, ErrFeedbackNotFound
		}
		return dto.FeedbackResponse{}, err
	}

	row.Feedback = payload.Feedback
	if err := s.feedbacks.Upsert(ctx, &row); err != nil {
		return dto.FeedbackResponse{}, err
	}

	return dto.NewFeedbackResponse(row), nil
}

func (s *feedbackService) UpdateGrade(ctx context.Context, email, taskID string, payload dto.FeedbackGradeUpdateRequest) (dto.FeedbackResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.FeedbackResponse{}, err
	}

	row, err := s.feedbacks.GetByEmailAndTask(ctx, email, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.FeedbackResponse{}, ErrFeedbackNotFound
		}
		return dto.FeedbackResponse{}, err
	}

	if err := s.feedbacks.UpdateGrade(ctx, row.ID, payload.GradeFeedback, payload.ReviewedBy); err != nil {
		return dto.FeedbackResponse{}, err
	}

	row.GradeFeedback = payload.GradeFeedback
	row.ReviewedBy = payload.ReviewedBy

	s.logger.Info().
		Str("email", email).
		Str("task", taskID).
		Float64("grade", payload.GradeFeedback).
		Msg("feedback grade reviewed")

	return dto.NewFeedbackResponse(row), nil
}

// SubmitToPR delivers a generated review to the student's pull request
// and marks the row as sent.
func (s *feedbackService) SubmitToPR(ctx context.Context, requesterEmail, email, taskID string) error {
	row, err := s.feedbacks.GetByEmailAndTask(ctx, email, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrFeedbackNotFound
		}
		return err
	}

	link, err := s.links.GetByGithubTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskLinkNotFound
		}
		return err
	}

	requester, err := s.users.GetByEmail(ctx, requesterEmail)
	if err != nil {
		return fmt.Errorf("load requester: %w", err)
	}

	if err := s.gh.PostFeedback(ctx, requester.GithubAccessToken, link.OrgName, row.Repo, row.Feedback); err != nil {
		return fmt.Errorf("post feedback to pull request: %w", err)
	}

	if err := s.feedbacks.UpdateStatus(ctx, row.ID, models.FeedbackStatusSent); err != nil {
		return err
	}

	if err := s.rollup.Refresh(ctx, taskID); err != nil {
		s.logger.Error().Err(err).Str("task", taskID).Msg("rollup refresh failed")
	}

	s.logger.Info().Str("repo", row.Repo).Str("email", email).Msg("feedback sent to pull request")
	return nil
}
