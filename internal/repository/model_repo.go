package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/uca-sae/sae-go-api/internal/models"
)

// ModelRepository defines persistence operations for AI credentials and
// the provider catalogue.
type ModelRepository interface {
	ListTypes(ctx context.Context) ([]models.ModelType, error)
	GetTypeByName(ctx context.Context, name string) (models.ModelType, error)
	Create(ctx context.Context, model *models.AIModel) error
	Update(ctx context.Context, model *models.AIModel) error
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (models.AIModel, error)
	ListByOwner(ctx context.Context, email string) ([]models.AIModel, error)
	ListByOrg(ctx context.Context, orgID string) ([]models.AIModel, error)
}

type modelRepository struct {
	db *gorm.DB
}

// NewModelRepository instantiates a GORM-backed repository.
func NewModelRepository(db *gorm.DB) ModelRepository {
	return &modelRepository{db: db}
}

func (r *modelRepository) ListTypes(ctx context.Context) ([]models.ModelType, error) {
	var types []models.ModelType
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&types).Error; err != nil {
		return nil, err
	}

	return types, nil
}

func (r *modelRepository) GetTypeByName(ctx context.Context, name string) (models.ModelType, error) {
	var modelType models.ModelType
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&modelType).Error; err != nil {
		return models.ModelType{}, err
	}

	return modelType, nil
}

func (r *modelRepository) Create(ctx context.Context, model *models.AIModel) error {
	return r.db.WithContext(ctx).Create(model).Error
}

func (r *modelRepository) Update(ctx context.Context, model *models.AIModel) error {
	return r.db.WithContext(ctx).Save(model).Error
}

func (r *modelRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.AIModel{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *modelRepository) GetByID(ctx context.Context, id uint) (models.AIModel, error) {
	var model models.AIModel
	err := r.db.WithContext(ctx).Preload("ModelType").First(&model, id).Error
	if err != nil {
		return models.AIModel{}, err
	}

	return model, nil
}

func (r *modelRepository) ListByOwner(ctx context.Context, email string) ([]models.AIModel, error) {
	var list []models.AIModel
	err := r.db.WithContext(ctx).
		Preload("ModelType").
		Where("owner_email = ?", email).
		Order("created_at DESC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}

	return list, nil
}

func (r *modelRepository) ListByOrg(ctx context.Context, orgID string) ([]models.AIModel, error) {
	var list []models.AIModel
	err := r.db.WithContext(ctx).
		Preload("ModelType").
		Where("org_id = ?", orgID).
		Order("created_at DESC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}

	return list, nil
}
