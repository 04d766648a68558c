package github

import (
	"context"
	"fmt"
	"net/http"
)

// AccountInfo is the authenticated user's public identity.
type AccountInfo struct {
	Username string
	Name     string
}

// OrgWithRole is one organization membership as GitHub reports it.
type OrgWithRole struct {
	OrgID   int64
	OrgName string
	// Role is "admin", "member" or "unknown" when the membership probe fails.
	Role string
}

// AuthenticatedUser returns the login and display name behind the token.
func (c *Client) AuthenticatedUser(ctx context.Context, token string) (AccountInfo, error) {
	var payload struct {
		Login string `json:"login"`
		Name  string `json:"name"`
	}
	if err := c.do(ctx, token, http.MethodGet, "/user", nil, &payload); err != nil {
		return AccountInfo{}, err
	}

	if payload.Login == "" {
		return AccountInfo{}, fmt.Errorf("github user has no login")
	}

	return AccountInfo{Username: payload.Login, Name: payload.Name}, nil
}

// PrimaryEmail returns the user's primary verified email address.
func (c *Client) PrimaryEmail(ctx context.Context, token string) (string, error) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := c.do(ctx, token, http.MethodGet, "/user/emails", nil, &emails); err != nil {
		return "", err
	}

	for _, email := range emails {
		if email.Primary && email.Verified {
			return email.Email, nil
		}
	}

	return "", fmt.Errorf("no primary verified email on github account")
}

// Organizations lists the user's organizations with their membership role.
// A failed membership probe degrades to role "unknown" instead of failing
// the whole listing.
func (c *Client) Organizations(ctx context.Context, token, username string) ([]OrgWithRole, error) {
	var orgs []struct {
		Login string `json:"login"`
		ID    int64  `json:"id"`
	}
	if err := c.do(ctx, token, http.MethodGet, "/user/orgs", nil, &orgs); err != nil {
		return nil, err
	}

	result := make([]OrgWithRole, 0, len(orgs))
	for _, org := range orgs {
		role := "unknown"

		var membership struct {
			Role string `json:"role"`
		}
		if err := c.do(ctx, token, http.MethodGet, fmt.Sprintf("/orgs/%s/memberships/%s", org.Login, username), nil, &membership); err != nil {
			c.logger.Warn().Str("org", org.Login).Msg("could not resolve membership role")
		} else {
			role = membership.Role
		}

		result = append(result, OrgWithRole{OrgID: org.ID, OrgName: org.Login, Role: role})
	}

	return result, nil
}
