package lti

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

var (
	// ErrInvalidLaunch indicates a launch token that failed verification.
	ErrInvalidLaunch = errors.New("invalid lti launch token")
	// ErrNonceReplayed indicates a launch token presented twice.
	ErrNonceReplayed = errors.New("lti launch nonce already used")
)

// Launch is the verified payload of one LTI resource-link launch.
type Launch struct {
	Issuer         string
	Email          string
	Name           string
	Roles          []string
	CourseID       string
	ResourceID     string
	ResourceTitle  string
	LineItemsURL   string
	MembershipsURL string
}

// IsInstructor reports whether any role claim carries the Instructor suffix.
func (l Launch) IsInstructor() bool { return l.hasRole("#Instructor") }

// IsAdmin reports whether any role claim carries the Administrator suffix.
func (l Launch) IsAdmin() bool { return l.hasRole("#Administrator") }

// IsStudent reports whether any role claim carries the Learner suffix.
func (l Launch) IsStudent() bool { return l.hasRole("#Learner") }

func (l Launch) hasRole(suffix string) bool {
	for _, role := range l.Roles {
		if strings.Contains(role, suffix) {
			return true
		}
	}
	return false
}

// NonceStore remembers launch nonces long enough to reject replays.
type NonceStore interface {
	// Remember records the nonce, reporting whether it was seen before.
	Remember(ctx context.Context, nonce string) (seen bool, err error)
}

// Verifier validates signed launch tokens against one registered platform.
type Verifier struct {
	platform Platform
	keys     jwt.Keyfunc
	nonces   NonceStore
	logger   zerolog.Logger
}

// NewVerifier builds a Verifier that fetches the platform's signing keys
// from its JWKS endpoint.
func NewVerifier(ctx context.Context, platform Platform, nonces NonceStore, logger zerolog.Logger) (*Verifier, error) {
	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{platform.JWKSEndpoint})
	if err != nil {
		return nil, fmt.Errorf("load platform jwks: %w", err)
	}

	return NewVerifierWithKeyfunc(platform, jwks.Keyfunc, nonces, logger), nil
}

// NewVerifierWithKeyfunc builds a Verifier around an explicit key
// resolver, used by tests with locally generated keys.
func NewVerifierWithKeyfunc(platform Platform, keys jwt.Keyfunc, nonces NonceStore, logger zerolog.Logger) *Verifier {
	return &Verifier{
		platform: platform,
		keys:     keys,
		nonces:   nonces,
		logger:   logger.With().Str("component", "lti_verifier").Logger(),
	}
}

// VerifyLaunch validates the raw id_token and extracts the launch payload.
func (v *Verifier) VerifyLaunch(ctx context.Context, rawToken string) (Launch, error) {
	token, err := jwt.Parse(rawToken, v.keys,
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(v.platform.Issuer),
		jwt.WithAudience(v.platform.ClientID),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Launch{}, fmt.Errorf("%w: %v", ErrInvalidLaunch, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Launch{}, ErrInvalidLaunch
	}

	if nonce, _ := claims["nonce"].(string); nonce != "" && v.nonces != nil {
		seen, err := v.nonces.Remember(ctx, nonce)
		if err != nil {
			return Launch{}, fmt.Errorf("check launch nonce: %w", err)
		}
		if seen {
			return Launch{}, ErrNonceReplayed
		}
	}

	launch := Launch{
		Issuer: v.platform.Issuer,
		Email:  stringClaim(claims, "email"),
		Name:   stringClaim(claims, "name"),
		Roles:  stringSliceClaim(claims, ClaimRoles),
	}

	if context_, ok := claims[ClaimContext].(map[string]any); ok {
		launch.CourseID, _ = context_["id"].(string)
	}
	if resource, ok := claims[ClaimResourceLink].(map[string]any); ok {
		launch.ResourceID, _ = resource["id"].(string)
		launch.ResourceTitle, _ = resource["title"].(string)
	}
	if endpoint, ok := claims[ClaimAGSEndpoint].(map[string]any); ok {
		launch.LineItemsURL, _ = endpoint["lineitems"].(string)
	}
	if nrps, ok := claims[ClaimNRPS].(map[string]any); ok {
		launch.MembershipsURL, _ = nrps["context_memberships_url"].(string)
	}

	if launch.Email == "" {
		return Launch{}, fmt.Errorf("%w: missing email claim", ErrInvalidLaunch)
	}

	return launch, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	value, _ := claims[key].(string)
	return value
}

func stringSliceClaim(claims jwt.MapClaims, key string) []string {
	raw, ok := claims[key].([]any)
	if !ok {
		return nil
	}

	values := make([]string, 0, len(raw))
	for _, item := range raw {
		if value, ok := item.(string); ok {
			values = append(values, value)
		}
	}
	return values
}
