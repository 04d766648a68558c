package models

import "time"

// TaskFeedbackStatus is the per-assignment rollup of submission feedback
// counts. It is recomputed externally and upserted whenever counts change;
// the LTI launch flow only reads it.
type TaskFeedbackStatus struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	IDTaskGithubClassroom string    `gorm:"size:64;not null;uniqueIndex" json:"idTaskGithubClassroom"`
	CountEntregas         int       `gorm:"not null;default:0" json:"countEntregas"`
	CountPendiente        int       `gorm:"not null;default:0" json:"countPendiente"`
	CountGenerado         int       `gorm:"not null;default:0" json:"countGenerado"`
	CountEnviado          int       `gorm:"not null;default:0" json:"countEnviado"`
	UpdatedAt             time.Time `json:"updated_at"`
}
