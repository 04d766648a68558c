package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/uca-sae/sae-go-api/internal/models"
)

// TaskLinkRepository defines persistence operations for Moodle/GitHub task links.
type TaskLinkRepository interface {
	Create(ctx context.Context, link *models.TaskLink) error
	GetByMoodleTask(ctx context.Context, idTaskMoodle, issuer string) (models.TaskLink, error)
	GetByGithubTask(ctx context.Context, idTaskGithubClassroom string) (models.TaskLink, error)
	ExistsTriple(ctx context.Context, githubTaskID, moodleTaskID, moodleCourseID string) (bool, error)
	ListByOwner(ctx context.Context, emailOwner string) ([]models.TaskLink, error)
}

type taskLinkRepository struct {
	db *gorm.DB
}

// NewTaskLinkRepository instantiates a GORM-backed repository.
func NewTaskLinkRepository(db *gorm.DB) TaskLinkRepository {
	return &taskLinkRepository{db: db}
}

func (r *taskLinkRepository) Create(ctx context.Context, link *models.TaskLink) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *taskLinkRepository) GetByMoodleTask(ctx context.Context, idTaskMoodle, issuer string) (models.TaskLink, error) {
	var link models.TaskLink
	err := r.db.WithContext(ctx).
		Where("id_task_moodle = ? AND issuer = ?", idTaskMoodle, issuer).
		First(&link).Error
	if err != nil {
		return models.TaskLink{}, err
	}

	return link, nil
}

func (r *taskLinkRepository) GetByGithubTask(ctx context.Context, idTaskGithubClassroom string) (models.TaskLink, error) {
	var link models.TaskLink
	err := r.db.WithContext(ctx).
		Where("id_task_github_classroom = ?", idTaskGithubClassroom).
		First(&link).Error
	if err != nil {
		return models.TaskLink{}, err
	}

	return link, nil
}

func (r *taskLinkRepository) ExistsTriple(ctx context.Context, githubTaskID, moodleTaskID, moodleCourseID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.TaskLink{}).
		Where("id_task_github_classroom = ? AND id_task_moodle = ? AND id_curso_moodle = ?",
			githubTaskID, moodleTaskID, moodleCourseID).
		Count(&count).Error
	return count > 0, err
}

func (r *taskLinkRepository) ListByOwner(ctx context.Context, emailOwner string) ([]models.TaskLink, error) {
	var links []models.TaskLink
	err := r.db.WithContext(ctx).
		Where("email_owner = ?", emailOwner).
		Order("created_at DESC").
		Find(&links).Error
	if err != nil {
		return nil, err
	}

	return links, nil
}
