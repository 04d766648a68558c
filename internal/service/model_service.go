package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/uca-sae/sae-go-api/internal/dto"
	"github.com/uca-sae/sae-go-api/internal/models"
	"github.com/uca-sae/sae-go-api/internal/repository"
	"github.com/uca-sae/sae-go-api/pkg/crypto"
)

// ErrNotOrganizational indicates an ACL operation on a personal credential.
var ErrNotOrganizational = errors.New("credential is not organizational")

// ModelService manages stored AI credentials. API keys are encrypted at
// rest and only decrypted at completion time by the feedback service.
type ModelService interface {
	ListTypes(ctx context.Context) ([]dto.ModelTypeResponse, error)
	Create(ctx context.Context, payload dto.ModelCreateRequest) (dto.ModelResponse, error)
	Delete(ctx context.Context, requesterEmail string, id uint) error
	AddTeacher(ctx context.Context, requesterEmail string, id uint, payload dto.ModelACLRequest) (dto.ModelResponse, error)
	RemoveTeacher(ctx context.Context, requesterEmail string, id uint, payload dto.ModelACLRequest) (dto.ModelResponse, error)
	ListForTeacher(ctx context.Context, email string) ([]dto.ModelResponse, error)
	ListByOrg(ctx context.Context, orgID string) ([]dto.ModelResponse, error)
}

type modelService struct {
	repo      repository.ModelRepository
	users     repository.UserRepository
	cipher    *crypto.Cipher
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewModelService builds the credential admin service.
func NewModelService(repo repository.ModelRepository, users repository.UserRepository, cipher *crypto.Cipher, validate *validator.Validate, logger zerolog.Logger) ModelService {
	return &modelService{
		repo:      repo,
		users:     users,
		cipher:    cipher,
		validator: validate,
		logger:    logger.With().Str("component", "model_service").Logger(),
	}
}

func (s *modelService) ListTypes(ctx context.Context) ([]dto.ModelTypeResponse, error) {
	types, err := s.repo.ListTypes(ctx)
	if err != nil {
		return nil, err
	}

	return dto.NewModelTypeResponseSlice(types), nil
}

func (s *modelService) Create(ctx context.Context, payload dto.ModelCreateRequest) (dto.ModelResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ModelResponse{}, err
	}

	ownership, err := ownershipFromPayload(payload)
	if err != nil {
		return dto.ModelResponse{}, err
	}

	modelType, err := s.repo.GetTypeByName(ctx, payload.Provider)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ModelResponse{}, ErrUnsupportedProvider
		}
		return dto.ModelResponse{}, err
	}
	if !supportsVersion(modelType, payload.Version) {
		return dto.ModelResponse{}, fmt.Errorf("%w: %s does not offer %s", ErrUnsupportedProvider, payload.Provider, payload.Version)
	}

	if email, ok := ownership.OwnerEmail(); ok {
		if _, err := s.users.GetByEmail(ctx, email); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return dto.ModelResponse{}, fmt.Errorf("owner %s is not a registered user", email)
			}
			return dto.ModelResponse{}, err
		}
	}

	encrypted, err := s.cipher.Encrypt(payload.APIKey)
	if err != nil {
		return dto.ModelResponse{}, fmt.Errorf("encrypt api key: %w", err)
	}

	credential := models.AIModel{
		Name:            payload.Name,
		Version:         payload.Version,
		APIKey:          encrypted,
		ModelTypeID:     modelType.ID,
		ModelType:       modelType,
		AllowedTeachers: payload.AllowedTeachers,
	}
	ownership.Apply(&credential)

	if err := s.repo.Create(ctx, &credential); err != nil {
		return dto.ModelResponse{}, err
	}

	s.logger.Info().
		Uint("model_id", credential.ID).
		Str("provider", modelType.Name).
		Str("version", credential.Version).
		Msg("ai credential registered")

	return dto.NewModelResponse(credential), nil
}

func (s *modelService) Delete(ctx context.Context, requesterEmail string, id uint) error {
	credential, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrModelNotFound
		}
		return err
	}

	if err := s.authorizeAdmin(ctx, requesterEmail, credential); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Uint("model_id", id).Str("by", requesterEmail).Msg("ai credential deleted")
	return nil
}

func (s *modelService) AddTeacher(ctx context.Context, requesterEmail string, id uint, payload dto.ModelACLRequest) (dto.ModelResponse, error) {
	return s.changeACL(ctx, requesterEmail, id, payload, true)
}

func (s *modelService) RemoveTeacher(ctx context.Context, requesterEmail string, id uint, payload dto.ModelACLRequest) (dto.ModelResponse, error) {
	return s.changeACL(ctx, requesterEmail, id, payload, false)
}

func (s *modelService) changeACL(ctx context.Context, requesterEmail string, id uint, payload dto.ModelACLRequest, add bool) (dto.ModelResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ModelResponse{}, err
	}

	credential, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ModelResponse{}, ErrModelNotFound
		}
		return dto.ModelResponse{}, err
	}

	ownership, err := credential.Ownership()
	if err != nil {
		return dto.ModelResponse{}, err
	}
	if ownership.Kind() != models.OwnershipOrganizational {
		return dto.ModelResponse{}, ErrNotOrganizational
	}

	if err := s.authorizeAdmin(ctx, requesterEmail, credential); err != nil {
		return dto.ModelResponse{}, err
	}

	acl := make([]string, 0, len(credential.AllowedTeachers)+1)
	for _, teacher := range credential.AllowedTeachers {
		if teacher != payload.TeacherEmail {
			acl = append(acl, teacher)
		}
	}
	if add {
		acl = append(acl, payload.TeacherEmail)
	}
	credential.AllowedTeachers = acl

	if err := s.repo.Update(ctx, &credential); err != nil {
		return dto.ModelResponse{}, err
	}

	return dto.NewModelResponse(credential), nil
}

// authorizeAdmin allows the personal owner, or any teacher of the
// owning organization for organizational credentials.
func (s *modelService) authorizeAdmin(ctx context.Context, requesterEmail string, credential models.AIModel) error {
	ownership, err := credential.Ownership()
	if err != nil {
		return err
	}

	if email, ok := ownership.OwnerEmail(); ok {
		if email != requesterEmail {
			return ErrForbidden
		}
		return nil
	}

	orgID, _ := ownership.OrgID()
	requester, err := s.users.GetByEmail(ctx, requesterEmail)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrForbidden
		}
		return err
	}
	if !requester.IsTeacherIn(orgID) {
		return ErrForbidden
	}
	return nil
}

func (s *modelService) ListForTeacher(ctx context.Context, email string) ([]dto.ModelResponse, error) {
	owned, err := s.repo.ListByOwner(ctx, email)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// Organizational credentials show up when the ACL names the teacher.
	visible := owned
	for _, org := range user.Organizations {
		orgModels, err := s.repo.ListByOrg(ctx, org.OrgID)
		if err != nil {
			return nil, err
		}
		for _, credential := range orgModels {
			if credential.AllowsTeacher(email) {
				visible = append(visible, credential)
			}
		}
	}

	return dto.NewModelResponseSlice(visible), nil
}

func (s *modelService) ListByOrg(ctx context.Context, orgID string) ([]dto.ModelResponse, error) {
	list, err := s.repo.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}

	return dto.NewModelResponseSlice(list), nil
}

func ownershipFromPayload(payload dto.ModelCreateRequest) (models.Ownership, error) {
	hasOwner := payload.OwnerEmail != ""
	hasOrg := payload.OrgID != ""

	switch {
	case hasOwner && !hasOrg:
		return models.PersonalOwnership(payload.OwnerEmail), nil
	case hasOrg && !hasOwner:
		return models.OrganizationalOwnership(payload.OrgID), nil
	default:
		return models.Ownership{}, models.ErrInvalidOwnership
	}
}

func supportsVersion(modelType models.ModelType, version string) bool {
	if len(modelType.Models) == 0 {
		return true
	}
	for _, known := range modelType.Models {
		if known == version {
			return true
		}
	}
	return false
}
