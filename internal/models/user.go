package models

import "time"

// User is a platform account backed by a GitHub identity. Organization
// memberships are re-synced from GitHub on every login.
type User struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	Email             string          `gorm:"size:256;not null;uniqueIndex" json:"email"`
	Name              string          `gorm:"size:256" json:"name"`
	GithubUsername    string          `gorm:"size:128;index" json:"githubUsername"`
	GithubAccessToken string          `gorm:"size:512" json:"-"`
	IsRoot            bool            `gorm:"not null;default:false" json:"isRoot"`
	Organizations     []OrgMembership `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"organizations"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// OrgMembership records one user's role inside a GitHub organization.
type OrgMembership struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	UserID   uint   `gorm:"not null;index" json:"-"`
	OrgID    string `gorm:"size:64;not null;index" json:"orgId"`
	OrgName  string `gorm:"size:256" json:"orgName"`
	Role     string `gorm:"size:16;not null" json:"role"`
	IsActive bool   `gorm:"not null;default:true" json:"isActive"`
}

const (
	// RoleStudent is assigned to plain GitHub org members.
	RoleStudent = "Student"
	// RoleTeacher is assigned to GitHub org admins.
	RoleTeacher = "Teacher"
	// RoleOrgAdmin marks the single platform administrator of an organization.
	RoleOrgAdmin = "ORG_Admin"
)

// MembershipIn returns the membership entry for the given organization.
func (u User) MembershipIn(orgID string) (OrgMembership, bool) {
	for _, org := range u.Organizations {
		if org.OrgID == orgID {
			return org, true
		}
	}
	return OrgMembership{}, false
}

// IsTeacherIn reports whether the user has teaching rights in the organization.
func (u User) IsTeacherIn(orgID string) bool {
	membership, ok := u.MembershipIn(orgID)
	if !ok {
		return false
	}
	return membership.Role == RoleTeacher || membership.Role == RoleOrgAdmin
}
