// Package lti speaks the LMS side of the house: verification of signed
// launch tokens, replay protection, and the Assignment and Grade Services
// (AGS) plus Names and Role Provisioning (NRPS) clients used for grade
// passback.
package lti

// Platform is one registered LMS deployment (a Moodle site).
type Platform struct {
	// Issuer is the platform URL carried in the launch token `iss` claim.
	Issuer string
	// ClientID identifies this tool on the platform.
	ClientID string
	// AuthEndpoint is the platform OIDC authentication URL.
	AuthEndpoint string
	// TokenEndpoint issues access tokens for AGS/NRPS calls.
	TokenEndpoint string
	// JWKSEndpoint serves the platform's signing keys.
	JWKSEndpoint string
}

// IMS claim URIs used in LTI 1.3 launch tokens.
const (
	ClaimRoles        = "https://purl.imsglobal.org/spec/lti/claim/roles"
	ClaimContext      = "https://purl.imsglobal.org/spec/lti/claim/context"
	ClaimResourceLink = "https://purl.imsglobal.org/spec/lti/claim/resource_link"
	ClaimAGSEndpoint  = "https://purl.imsglobal.org/spec/lti-ags/claim/endpoint"
	ClaimNRPS         = "https://purl.imsglobal.org/spec/lti-nrps/claim/namesroleservice"
)

// OAuth scopes requested for grade passback.
const (
	ScopeLineItem   = "https://purl.imsglobal.org/spec/lti-ags/scope/lineitem"
	ScopeScore      = "https://purl.imsglobal.org/spec/lti-ags/scope/score"
	ScopeMembership = "https://purl.imsglobal.org/spec/lti-nrps/scope/contextmembership.readonly"
)
