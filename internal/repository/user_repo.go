package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/uca-sae/sae-go-api/internal/models"
)

// UserRepository defines persistence operations for platform users and
// their organization memberships.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	ReplaceMemberships(ctx context.Context, userID uint, memberships []models.OrgMembership) error
	ListByOrg(ctx context.Context, orgID string) ([]models.User, error)
	SetMembershipRole(ctx context.Context, userID uint, orgID, role string) error
	SetMembershipActive(ctx context.Context, userID uint, orgID string, active bool) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository instantiates a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Organizations").
		Where("email = ?", email).
		First(&user).Error
	if err != nil {
		return models.User{}, err
	}

	return user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Omit("Organizations").Save(user).Error
}

// ReplaceMemberships swaps the user's membership rows for the freshly
// synced set in one transaction.
func (r *userRepository) ReplaceMemberships(ctx context.Context, userID uint, memberships []models.OrgMembership) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.OrgMembership{}).Error; err != nil {
			return err
		}
		if len(memberships) == 0 {
			return nil
		}
		for i := range memberships {
			memberships[i].ID = 0
			memberships[i].UserID = userID
		}
		return tx.Create(&memberships).Error
	})
}

func (r *userRepository) ListByOrg(ctx context.Context, orgID string) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Preload("Organizations").
		Joins("JOIN org_memberships ON org_memberships.user_id = users.id").
		Where("org_memberships.org_id = ?", orgID).
		Order("users.email ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}

	return users, nil
}

func (r *userRepository) SetMembershipRole(ctx context.Context, userID uint, orgID, role string) error {
	result := r.db.WithContext(ctx).Model(&models.OrgMembership{}).
		Where("user_id = ? AND org_id = ?", userID, orgID).
		Update("role", role)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepository) SetMembershipActive(ctx context.Context, userID uint, orgID string, active bool) error {
	result := r.db.WithContext(ctx).Model(&models.OrgMembership{}).
		Where("user_id = ? AND org_id = ?", userID, orgID).
		Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
