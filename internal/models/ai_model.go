package models

import (
	"errors"
	"time"
)

// ModelType describes one supported AI provider and the model versions it offers.
type ModelType struct {
	ID     uint     `gorm:"primaryKey" json:"id"`
	Name   string   `gorm:"size:32;not null;uniqueIndex" json:"name"`
	Models []string `gorm:"serializer:json" json:"models"`
}

const (
	// ProviderOpenAI is the chat-completion provider.
	ProviderOpenAI = "OpenAI"
	// ProviderDeepSeek shares OpenAI's API shape behind a different base URL.
	ProviderDeepSeek = "DeepSeek"
	// ProviderGemini uses Google's generation API.
	ProviderGemini = "Gemini"
)

// AIModel is a stored AI credential: a model version plus its encrypted
// API key, owned either by a single teacher or by an organization.
type AIModel struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"size:128;not null" json:"name"`
	Version         string    `gorm:"size:128;not null" json:"version"`
	APIKey          string    `gorm:"size:1024;not null" json:"-"`
	ModelTypeID     uint      `gorm:"not null" json:"model_type_id"`
	ModelType       ModelType `gorm:"constraint:OnUpdate:CASCADE" json:"modelType"`
	OwnerEmail      *string   `gorm:"size:256" json:"ownerEmail,omitempty"`
	OrgID           *string   `gorm:"size:64" json:"orgId,omitempty"`
	AllowedTeachers []string  `gorm:"serializer:json" json:"allowedTeachers"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ErrInvalidOwnership indicates a credential where neither or both of
// ownerEmail and orgId are set.
var ErrInvalidOwnership = errors.New("credential must be owned by exactly one of owner email or organization")

// OwnershipKind discriminates the two legal credential owners.
type OwnershipKind int

const (
	// OwnershipPersonal means the credential belongs to one teacher.
	OwnershipPersonal OwnershipKind = iota
	// OwnershipOrganizational means the credential belongs to a GitHub organization.
	OwnershipOrganizational
)

// Ownership is the tagged owner of an AI credential. Constructing it via
// PersonalOwnership or OrganizationalOwnership keeps the "both set" and
// "neither set" states unrepresentable.
type Ownership struct {
	kind  OwnershipKind
	email string
	orgID string
}

// PersonalOwnership tags a credential as owned by a single teacher.
func PersonalOwnership(email string) Ownership {
	return Ownership{kind: OwnershipPersonal, email: email}
}

// OrganizationalOwnership tags a credential as owned by an organization.
func OrganizationalOwnership(orgID string) Ownership {
	return Ownership{kind: OwnershipOrganizational, orgID: orgID}
}

// Kind returns the ownership discriminator.
func (o Ownership) Kind() OwnershipKind { return o.kind }

// OwnerEmail returns the owning teacher's email for personal credentials.
func (o Ownership) OwnerEmail() (string, bool) {
	return o.email, o.kind == OwnershipPersonal
}

// OrgID returns the owning organization for organizational credentials.
func (o Ownership) OrgID() (string, bool) {
	return o.orgID, o.kind == OwnershipOrganizational
}

// Apply writes the ownership columns onto the credential row.
func (o Ownership) Apply(m *AIModel) {
	m.OwnerEmail = nil
	m.OrgID = nil
	switch o.kind {
	case OwnershipPersonal:
		email := o.email
		m.OwnerEmail = &email
	case OwnershipOrganizational:
		orgID := o.orgID
		m.OrgID = &orgID
	}
}

// Ownership reconstructs the tagged owner from the stored columns,
// rejecting rows that violate the XOR invariant.
func (m AIModel) Ownership() (Ownership, error) {
	hasEmail := m.OwnerEmail != nil && *m.OwnerEmail != ""
	hasOrg := m.OrgID != nil && *m.OrgID != ""

	switch {
	case hasEmail && !hasOrg:
		return PersonalOwnership(*m.OwnerEmail), nil
	case hasOrg && !hasEmail:
		return OrganizationalOwnership(*m.OrgID), nil
	default:
		return Ownership{}, ErrInvalidOwnership
	}
}

// AllowsTeacher reports whether the given teacher may use this credential.
func (m AIModel) AllowsTeacher(email string) bool {
	if m.OwnerEmail != nil && *m.OwnerEmail == email {
		return true
	}
	for _, allowed := range m.AllowedTeachers {
		if allowed == email {
			return true
		}
	}
	return false
}
