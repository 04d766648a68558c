package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/uca-sae/sae-go-api/internal/models"
)

// TaskStatusRepository defines persistence operations for per-task feedback rollups.
type TaskStatusRepository interface {
	Upsert(ctx context.Context, status *models.TaskFeedbackStatus) error
	GetByTask(ctx context.Context, idTaskGithubClassroom string) (models.TaskFeedbackStatus, error)
}

type taskStatusRepository struct {
	db *gorm.DB
}

// NewTaskStatusRepository instantiates a GORM-backed repository.
func NewTaskStatusRepository(db *gorm.DB) TaskStatusRepository {
	return &taskStatusRepository{db: db}
}

func (r *taskStatusRepository) Upsert(ctx context.Context, status *models.TaskFeedbackStatus) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id_task_github_classroom"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"count_entregas", "count_pendiente", "count_generado", "count_enviado", "updated_at",
		}),
	}).Create(status).Error
}

func (r *taskStatusRepository) GetByTask(ctx context.Context, idTaskGithubClassroom string) (models.TaskFeedbackStatus, error) {
	var status models.TaskFeedbackStatus
	err := r.db.WithContext(ctx).
		Where("id_task_github_classroom = ?", idTaskGithubClassroom).
		First(&status).Error
	if err != nil {
		return models.TaskFeedbackStatus{}, err
	}

	return status, nil
}
