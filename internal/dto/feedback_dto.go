package dto

import (
	"time"

	"github.com/uca-sae/sae-go-api/internal/models"
)

// FeedbackGenerateRequest triggers AI feedback generation for one
// student repository.
type FeedbackGenerateRequest struct {
	Repo                  string `json:"repo" validate:"required"`
	Email                 string `json:"email" validate:"required,email"`
	IDTaskGithubClassroom string `json:"idTaskGithubClassroom" validate:"required"`
	ModelID               uint   `json:"modelId" validate:"required"`
	Extension             string `json:"extension" validate:"required"`
	Language              string `json:"language"`
	Subject               string `json:"subject"`
	StudentLevel          string `json:"studentLevel"`
	Topics                string `json:"topics"`
	Constraints           string `json:"constraints"`
	Style                 string `json:"style"`
}

// FeedbackSearchRequest locates a stored feedback row.
type FeedbackSearchRequest struct {
	Email                 string `json:"email" validate:"required,email"`
	IDTaskGithubClassroom string `json:"idTaskGithubClassroom" validate:"required"`
}

// FeedbackUpdateRequest replaces the review text of a stored row.
type FeedbackUpdateRequest struct {
	Feedback string `json:"feedback" validate:"required"`
}

// FeedbackGradeUpdateRequest overrides the AI grade after manual review.
type FeedbackGradeUpdateRequest struct {
	GradeFeedback float64 `json:"gradeFeedback" validate:"gte=0,lte=10"`
	ReviewedBy    string  `json:"reviewedBy" validate:"required,email"`
}

// FeedbackResponse is the serialized feedback row returned to API clients.
type FeedbackResponse struct {
	ID                    uint      `json:"id"`
	Repo                  string    `json:"repo"`
	Email                 string    `json:"email"`
	IDTaskGithubClassroom string    `json:"idTaskGithubClassroom"`
	Feedback              string    `json:"feedback"`
	GradeFeedback         float64   `json:"gradeFeedback"`
	GradeValue            float64   `json:"gradeValue"`
	GradeTotal            float64   `json:"gradeTotal"`
	Status                string    `json:"status"`
	ModelIA               string    `json:"modelIA"`
	ReviewedBy            string    `json:"reviewedBy,omitempty"`
	DurationMs            int64     `json:"durationMs"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// NewFeedbackResponse converts a model into a DTO.
func NewFeedbackResponse(model models.Feedback) FeedbackResponse {
	return FeedbackResponse{
		ID:                    model.ID,
		Repo:                  model.Repo,
		Email:                 model.Email,
		IDTaskGithubClassroom: model.IDTaskGithubClassroom,
		Feedback:              model.Feedback,
		GradeFeedback:         model.GradeFeedback,
		GradeValue:            model.GradeValue,
		GradeTotal:            model.GradeTotal,
		Status:                model.Status,
		ModelIA:               model.ModelIA,
		ReviewedBy:            model.ReviewedBy,
		DurationMs:            model.DurationMs,
		CreatedAt:             model.CreatedAt,
		UpdatedAt:             model.UpdatedAt,
	}
}

// NewFeedbackResponseSlice converts a slice of models into DTOs.
func NewFeedbackResponseSlice(feedbacks []models.Feedback) []FeedbackResponse {
	responses := make([]FeedbackResponse, 0, len(feedbacks))
	for _, feedback := range feedbacks {
		responses = append(responses, NewFeedbackResponse(feedback))
	}

	return responses
}

// TaskStatusResponse is the per-assignment rollup of feedback counts.
type TaskStatusResponse struct {
	IDTaskGithubClassroom string    `json:"idTaskGithubClassroom"`
	CountEntregas         int       `json:"countEntregas"`
	CountPendiente        int       `json:"countPendiente"`
	CountGenerado         int       `json:"countGenerado"`
	CountEnviado          int       `json:"countEnviado"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// TaskStatusUpsertRequest replaces the rollup counts for one assignment.
type TaskStatusUpsertRequest struct {
	IDTaskGithubClassroom string `json:"idTaskGithubClassroom" validate:"required"`
	CountEntregas         int    `json:"countEntregas" validate:"gte=0"`
	CountPendiente        int    `json:"countPendiente" validate:"gte=0"`
	CountGenerado         int    `json:"countGenerado" validate:"gte=0"`
	CountEnviado          int    `json:"countEnviado" validate:"gte=0"`
}

// NewTaskStatusResponse converts a model into a DTO.
func NewTaskStatusResponse(model models.TaskFeedbackStatus) TaskStatusResponse {
	return TaskStatusResponse{
		IDTaskGithubClassroom: model.IDTaskGithubClassroom,
		CountEntregas:         model.CountEntregas,
		CountPendiente:        model.CountPendiente,
		CountGenerado:         model.CountGenerado,
		CountEnviado:          model.CountEnviado,
		UpdatedAt:             model.UpdatedAt,
	}
}
