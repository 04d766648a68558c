package dto

import (
	"time"

	"github.com/uca-sae/sae-go-api/internal/models"
)

// TaskLinkCreateRequest binds a Moodle activity to a GitHub Classroom
// assignment.
type TaskLinkCreateRequest struct {
	IDTaskGithubClassroom string `json:"idTaskGithubClassroom" validate:"required"`
	IDClassroom           string `json:"idClassroom" validate:"required"`
	OrgID                 string `json:"orgId" validate:"required"`
	OrgName               string `json:"orgName" validate:"required"`
	InvitationURL         string `json:"url_Invitation" validate:"required,url"`
	EmailOwner            string `json:"emailOwner" validate:"required,email"`
	IDTaskMoodle          string `json:"idTaskMoodle" validate:"required"`
	IDCursoMoodle         string `json:"idCursoMoodle" validate:"required"`
	Issuer                string `json:"issuer" validate:"required,url"`
}

// TaskLinkResponse is the serialized link returned to API clients.
type TaskLinkResponse struct {
	ID                    uint      `json:"id"`
	IDTaskGithubClassroom string    `json:"idTaskGithubClassroom"`
	IDClassroom           string    `json:"idClassroom"`
	OrgID                 string    `json:"orgId"`
	OrgName               string    `json:"orgName"`
	InvitationURL         string    `json:"url_Invitation"`
	EmailOwner            string    `json:"emailOwner"`
	IDTaskMoodle          string    `json:"idTaskMoodle"`
	IDCursoMoodle         string    `json:"idCursoMoodle"`
	Issuer                string    `json:"issuer"`
	CreatedAt             time.Time `json:"created_at"`
}

// NewTaskLinkResponse converts a model into a DTO.
func NewTaskLinkResponse(model models.TaskLink) TaskLinkResponse {
	return TaskLinkResponse{
		ID:                    model.ID,
		IDTaskGithubClassroom: model.IDTaskGithubClassroom,
		IDClassroom:           model.IDClassroom,
		OrgID:                 model.OrgID,
		OrgName:               model.OrgName,
		InvitationURL:         model.InvitationURL,
		EmailOwner:            model.EmailOwner,
		IDTaskMoodle:          model.IDTaskMoodle,
		IDCursoMoodle:         model.IDCursoMoodle,
		Issuer:                model.Issuer,
		CreatedAt:             model.CreatedAt,
	}
}

// NewTaskLinkResponseSlice converts a slice of models into DTOs.
func NewTaskLinkResponseSlice(links []models.TaskLink) []TaskLinkResponse {
	responses := make([]TaskLinkResponse, 0, len(links))
	for _, link := range links {
		responses = append(responses, NewTaskLinkResponse(link))
	}

	return responses
}
