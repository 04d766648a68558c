package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/uca-sae/sae-go-api/internal/models"
)

// FeedbackRepository defines persistence operations for submission feedback.
type FeedbackRepository interface {
	Upsert(ctx context.Context, feedback *models.Feedback) error
	GetByEmailAndTask(ctx context.Context, email, taskID string) (models.Feedback, error)
	GetByRepo(ctx context.Context, repo string) (models.Feedback, error)
	ListByTask(ctx context.Context, taskID string) ([]models.Feedback, error)
	CountByTaskAndStatus(ctx context.Context, taskID, status string) (int64, error)
	UpdateStatus(ctx context.Context, id uint, status string) error
	UpdateGrade(ctx context.Context, id uint, grade float64, reviewedBy string) error
}

type feedbackRepository struct {
	db *gorm.DB
}

// NewFeedbackRepository instantiates a GORM-backed repository.
func NewFeedbackRepository(db *gorm.DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

// Upsert inserts the row or, when the (email, task) pair already exists,
// overwrites the generated content in place.
func (r *feedbackRepository) Upsert(ctx context.Context, feedback *models.Feedback) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "email"}, {Name: "id_task_github_classroom"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"repo", "feedback", "grade_feedback", "grade_value", "grade_total",
			"status", "model_ia", "reviewed_by", "duration_ms", "updated_at",
		}),
	}).Create(feedback).Error
}

func (r *feedbackRepository) GetByEmailAndTask(ctx context.Context, email, taskID string) (models.Feedback, error) {
	var feedback models.Feedback
	err := r.db.WithContext(ctx).
		Where("email = ? AND id_task_github_classroom = ?", email, taskID).
		First(&feedback).Error
	if err != nil {
		return models.Feedback{}, err
	}

	return feedback, nil
}

func (r *feedbackRepository) GetByRepo(ctx context.Context, repo string) (models.Feedback, error) {
	var feedback models.Feedback
	if err := r.db.WithContext(ctx).Where("repo = ?", repo).First(&feedback).Error; err != nil {
		return models.Feedback{}, err
	}

	return feedback, nil
}

func (r *feedbackRepository) ListByTask(ctx context.Context, taskID string) ([]models.Feedback, error) {
	var feedbacks []models.Feedback
	err := r.db.WithContext(ctx).
		Where("id_task_github_classroom = ?", taskID).
		Order("email ASC").
		Find(&feedbacks).Error
	if err != nil {
		return nil, err
	}

	return feedbacks, nil
}

func (r *feedbackRepository) CountByTaskAndStatus(ctx context.Context, taskID, status string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Feedback{}).
		Where("id_task_github_classroom = ? AND status = ?", taskID, status).
		Count(&count).Error
	return count, err
}

func (r *feedbackRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	result := r.db.WithContext(ctx).Model(&models.Feedback{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *feedbackRepository) UpdateGrade(ctx context.Context, id uint, grade float64, reviewedBy string) error {
	result := r.db.WithContext(ctx).Model(&models.Feedback{}).
		Where("id = ?", id).
		Updates(map[string]any{"grade_feedback": grade, "reviewed_by": reviewedBy})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
