package dto

import (
	"time"

	"github.com/uca-sae/sae-go-api/internal/models"
)

// UserSyncRequest drives a GitHub-login-backed create-or-update.
type UserSyncRequest struct {
	GithubAccessToken string `json:"githubAccessToken" validate:"required"`
}

// MembershipRoleRequest reassigns a user's role inside one organization.
type MembershipRoleRequest struct {
	Email string `json:"email" validate:"required,email"`
	OrgID string `json:"orgId" validate:"required"`
	Role  string `json:"role" validate:"required,oneof=Student Teacher ORG_Admin"`
}

// MembershipActiveRequest toggles a user's active flag inside one organization.
type MembershipActiveRequest struct {
	Email    string `json:"email" validate:"required,email"`
	OrgID    string `json:"orgId" validate:"required"`
	IsActive bool   `json:"isActive"`
}

// OrgMembershipResponse is one organization role entry.
type OrgMembershipResponse struct {
	OrgID    string `json:"orgId"`
	OrgName  string `json:"orgName"`
	Role     string `json:"role"`
	IsActive bool   `json:"isActive"`
}

// UserResponse is the serialized platform user. Tokens never leave the
// server.
type UserResponse struct {
	ID             uint                    `json:"id"`
	Email          string                  `json:"email"`
	Name           string                  `json:"name"`
	GithubUsername string                  `json:"githubUsername"`
	IsRoot         bool                    `json:"isRoot"`
	Organizations  []OrgMembershipResponse `json:"organizations"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

// NewUserResponse converts a model into a DTO.
func NewUserResponse(model models.User) UserResponse {
	memberships := make([]OrgMembershipResponse, 0, len(model.Organizations))
	for _, org := range model.Organizations {
		memberships = append(memberships, OrgMembershipResponse{
			OrgID:    org.OrgID,
			OrgName:  org.OrgName,
			Role:     org.Role,
			IsActive: org.IsActive,
		})
	}

	return UserResponse{
		ID:             model.ID,
		Email:          model.Email,
		Name:           model.Name,
		GithubUsername: model.GithubUsername,
		IsRoot:         model.IsRoot,
		Organizations:  memberships,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
}

// NewUserResponseSlice converts a slice of models into DTOs.
func NewUserResponseSlice(users []models.User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, NewUserResponse(user))
	}

	return responses
}
