package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidLaunchToken indicates a launch token that failed verification.
var ErrInvalidLaunchToken = errors.New("invalid launch token")

// LaunchTokenPayload is what a short-lived launch token carries to the
// frontend. Fields are filled per launch outcome; unused ones stay empty.
type LaunchTokenPayload struct {
	Email          string `json:"email"`
	IsMoodle       bool   `json:"isMoodle,omitempty"`
	CourseID       string `json:"courseId,omitempty"`
	AssignmentID   string `json:"assignmentId,omitempty"`
	IDTaskGithub   string `json:"idtaskgithub,omitempty"`
	IDClassroom    string `json:"idclassroom,omitempty"`
	OrgID          string `json:"orgId,omitempty"`
	OrgName        string `json:"orgName,omitempty"`
	InvitationURL  string `json:"invitationUrl,omitempty"`
	FirstTime      bool   `json:"firstTime,omitempty"`
	LineItemsURL   string `json:"lineItemsUrl,omitempty"`
	MembershipsURL string `json:"membershipsUrl,omitempty"`
	ResourceTitle  string `json:"resourceTitle,omitempty"`
}

type launchTokenClaims struct {
	LaunchTokenPayload
	jwt.RegisteredClaims
}

// LaunchTokenIssuer signs and verifies the short-lived tokens handed to
// the frontend after an LTI launch.
type LaunchTokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewLaunchTokenIssuer builds an issuer. TTL defaults to one hour.
func NewLaunchTokenIssuer(secret string, ttl time.Duration) *LaunchTokenIssuer {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &LaunchTokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs the payload with HS256.
func (i *LaunchTokenIssuer) Issue(payload LaunchTokenPayload) (string, error) {
	now := i.now()
	claims := launchTokenClaims{
		LaunchTokenPayload: payload,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Verify parses a token back into its payload.
func (i *LaunchTokenIssuer) Verify(raw string) (LaunchTokenPayload, error) {
	var claims launchTokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return LaunchTokenPayload{}, fmt.Errorf("%w: %v", ErrInvalidLaunchToken, err)
	}
	return claims.LaunchTokenPayload, nil
}
