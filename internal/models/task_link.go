package models

import "time"

// TaskLink binds a Moodle activity to a GitHub Classroom assignment.
// Links are created once by an instructor during setup and are immutable
// afterwards; the triple (github task, moodle task, moodle course) is unique.
type TaskLink struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	IDTaskGithubClassroom string    `gorm:"size:64;not null;uniqueIndex:idx_task_link_triple" json:"idTaskGithubClassroom"`
	IDClassroom           string    `gorm:"size:64;not null" json:"idClassroom"`
	OrgID                 string    `gorm:"size:64;not null" json:"orgId"`
	OrgName               string    `gorm:"size:256;not null" json:"orgName"`
	InvitationURL         string    `gorm:"size:512;not null" json:"url_Invitation"`
	EmailOwner            string    `gorm:"size:256;not null" json:"emailOwner"`
	IDTaskMoodle          string    `gorm:"size:64;not null;uniqueIndex:idx_task_link_triple;index:idx_task_link_moodle" json:"idTaskMoodle"`
	IDCursoMoodle         string    `gorm:"size:64;not null;uniqueIndex:idx_task_link_triple" json:"idCursoMoodle"`
	Issuer                string    `gorm:"size:512;not null;index:idx_task_link_moodle" json:"issuer"`
	CreatedAt             time.Time `json:"created_at"`
}
