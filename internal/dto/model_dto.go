package dto

import (
	"time"

	"github.com/uca-sae/sae-go-api/internal/models"
)

// ModelCreateRequest registers a new AI credential. Exactly one of
// ownerEmail and orgId must be set.
type ModelCreateRequest struct {
	Name            string   `json:"name" validate:"required,min=3"`
	Version         string   `json:"version" validate:"required"`
	APIKey          string   `json:"apiKey" validate:"required,min=8"`
	Provider        string   `json:"provider" validate:"required,oneof=OpenAI DeepSeek Gemini"`
	OwnerEmail      string   `json:"ownerEmail" validate:"omitempty,email"`
	OrgID           string   `json:"orgId"`
	AllowedTeachers []string `json:"allowedTeachers" validate:"omitempty,dive,email"`
}

// ModelACLRequest adds or removes one teacher from a credential's ACL.
type ModelACLRequest struct {
	TeacherEmail string `json:"teacherEmail" validate:"required,email"`
}

// ModelResponse is the serialized credential. The API key never leaves
// the server.
type ModelResponse struct {
	ID              uint      `json:"id"`
	Name            string    `json:"name"`
	Version         string    `json:"version"`
	Provider        string    `json:"provider"`
	OwnerEmail      string    `json:"ownerEmail,omitempty"`
	OrgID           string    `json:"orgId,omitempty"`
	AllowedTeachers []string  `json:"allowedTeachers"`
	CreatedAt       time.Time `json:"created_at"`
}

// ModelTypeResponse lists one provider and its known model versions.
type ModelTypeResponse struct {
	ID     uint     `json:"id"`
	Name   string   `json:"name"`
	Models []string `json:"models"`
}

// NewModelResponse converts a model into a DTO.
func NewModelResponse(model models.AIModel) ModelResponse {
	response := ModelResponse{
		ID:              model.ID,
		Name:            model.Name,
		Version:         model.Version,
		Provider:        model.ModelType.Name,
		AllowedTeachers: model.AllowedTeachers,
		CreatedAt:       model.CreatedAt,
	}
	if model.OwnerEmail != nil {
		response.OwnerEmail = *model.OwnerEmail
	}
	if model.OrgID != nil {
		response.OrgID = *model.OrgID
	}

	return response
}

// NewModelResponseSlice converts a slice of models into DTOs.
func NewModelResponseSlice(list []models.AIModel) []ModelResponse {
	responses := make([]ModelResponse, 0, len(list))
	for _, model := range list {
		responses = append(responses, NewModelResponse(model))
	}

	return responses
}

// NewModelTypeResponseSlice converts the provider catalogue into DTOs.
func NewModelTypeResponseSlice(types []models.ModelType) []ModelTypeResponse {
	responses := make([]ModelTypeResponse, 0, len(types))
	for _, modelType := range types {
		responses = append(responses, ModelTypeResponse{
			ID:     modelType.ID,
			Name:   modelType.Name,
			Models: modelType.Models,
		})
	}

	return responses
}
