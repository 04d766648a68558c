package models

import "time"

// Feedback stores the AI-generated review for one student submission.
// There is at most one row per (email, GitHub task) pair; generation
// upserts rather than appends.
type Feedback struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	Repo                  string    `gorm:"size:256;not null" json:"repo"`
	Email                 string    `gorm:"size:256;not null;uniqueIndex:idx_feedback_email_task" json:"email"`
	IDTaskGithubClassroom string    `gorm:"size:64;not null;uniqueIndex:idx_feedback_email_task" json:"idTaskGithubClassroom"`
	Feedback              string    `gorm:"type:text" json:"feedback"`
	GradeFeedback         float64   `json:"gradeFeedback"`
	GradeValue            float64   `json:"gradeValue"`
	GradeTotal            float64   `json:"gradeTotal"`
	Status                string    `gorm:"size:16;not null;default:Pending" json:"status"`
	ModelIA               string    `gorm:"size:32" json:"modelIA"`
	ReviewedBy            string    `gorm:"size:256" json:"reviewedBy"`
	DurationMs            int64     `json:"durationMs"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

const (
	// FeedbackStatusPending indicates the submission exists but has no generated review yet.
	FeedbackStatusPending = "Pending"
	// FeedbackStatusGenerated indicates the AI review has been produced and stored.
	FeedbackStatusGenerated = "Generated"
	// FeedbackStatusSent indicates the review was delivered to the student's pull request.
	FeedbackStatusSent = "Sent"
)

// IsSent reports whether the review reached the student.
func (f Feedback) IsSent() bool {
	return f.Status == FeedbackStatusSent
}
