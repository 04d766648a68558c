package lti

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TokenSource obtains platform access tokens for AGS/NRPS calls via the
// OAuth2 client-credentials grant with a signed client assertion.
type TokenSource struct {
	platform Platform
	key      *rsa.PrivateKey
	http     *http.Client
	scopes   []string
	now      func() time.Time

	mu     sync.Mutex
	token  string
	expiry time.Time
}

// NewTokenSource builds a token source signing assertions with the tool's
// private key.
func NewTokenSource(platform Platform, key *rsa.PrivateKey, httpClient *http.Client) *TokenSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &TokenSource{
		platform: platform,
		key:      key,
		http:     httpClient,
		scopes:   []string{ScopeLineItem, ScopeScore, ScopeMembership},
		now:      time.Now,
	}
}

// Token returns a cached access token, fetching a fresh one when expired.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.token != "" && ts.now().Before(ts.expiry) {
		return ts.token, nil
	}

	assertion, err := ts.signAssertion()
	if err != nil {
		return "", fmt.Errorf("sign client assertion: %w", err)
	}

	form := url.Values{
		"grant_type":            {"client_credentials"},
		"client_assertion_type": {"urn:ietf:params:oauth:client-assertion-type:jwt-bearer"},
		"client_assertion":      {assertion},
		"scope":                 {strings.Join(ts.scopes, " ")},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.platform.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("platform token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("platform token request: status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var granted struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&granted); err != nil {
		return "", fmt.Errorf("decode platform token: %w", err)
	}
	if granted.AccessToken == "" {
		return "", fmt.Errorf("platform returned empty access token")
	}

	ts.token = granted.AccessToken
	// Refresh one minute early to avoid using a token at its boundary.
	ts.expiry = ts.now().Add(time.Duration(granted.ExpiresIn)*time.Second - time.Minute)

	return ts.token, nil
}

func (ts *TokenSource) signAssertion() (string, error) {
	now := ts.now()
	claims := jwt.RegisteredClaims{
		Issuer:    ts.platform.ClientID,
		Subject:   ts.platform.ClientID,
		Audience:  jwt.ClaimStrings{ts.platform.TokenEndpoint},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(5 * time.Minute)),
		ID:        uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(ts.key)
}

// LineItem is one LMS gradebook column.
type LineItem struct {
	ID           string  `json:"id"`
	Label        string  `json:"label"`
	ScoreMaximum float64 `json:"scoreMaximum"`
	ResourceID   string  `json:"resourceId,omitempty"`
}

// Score is one grade submission for one student.
type Score struct {
	UserID           string  `json:"userId"`
	ScoreGiven       float64 `json:"scoreGiven"`
	ScoreMaximum     float64 `json:"scoreMaximum"`
	ActivityProgress string  `json:"activityProgress"`
	GradingProgress  string  `json:"gradingProgress"`
	Timestamp        string  `json:"timestamp"`
}

// Member is one course roster entry from NRPS.
type Member struct {
	UserID string   `json:"user_id"`
	Name   string   `json:"name"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles"`
	Status string   `json:"status"`
}

// Tokener supplies platform access tokens; satisfied by TokenSource.
type Tokener interface {
	Token(ctx context.Context) (string, error)
}

// AGSClient talks to the platform's grade and membership services.
type AGSClient struct {
	tokens Tokener
	http   *http.Client
	logger zerolog.Logger
}

// NewAGSClient builds an AGS/NRPS client.
func NewAGSClient(tokens Tokener, httpClient *http.Client, logger zerolog.Logger) *AGSClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &AGSClient{
		tokens: tokens,
		http:   httpClient,
		logger: logger.With().Str("component", "ags_client").Logger(),
	}
}

func (c *AGSClient) do(ctx context.Context, method, rawURL, contentType, accept string, body, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("lms request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("lms request: status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// LineItems lists the gradebook columns behind the launch's lineitems URL.
func (c *AGSClient) LineItems(ctx context.Context, lineItemsURL string) ([]LineItem, error) {
	var items []LineItem
	err := c.do(ctx, http.MethodGet, lineItemsURL, "", "application/vnd.ims.lis.v2.lineitemcontainer+json", nil, &items)
	return items, err
}

// EnsureLineItem returns the line item with the given label, creating it
// when the gradebook has none.
func (c *AGSClient) EnsureLineItem(ctx context.Context, lineItemsURL, label string, scoreMaximum float64) (LineItem, error) {
	items, err := c.LineItems(ctx, lineItemsURL)
	if err != nil {
		return LineItem{}, fmt.Errorf("list line items: %w", err)
	}

	for _, item := range items {
		if item.Label == label {
			return item, nil
		}
	}

	created := LineItem{Label: label, ScoreMaximum: scoreMaximum}
	if err := c.do(ctx, http.MethodPost, lineItemsURL, "application/vnd.ims.lis.v2.lineitem+json", "application/vnd.ims.lis.v2.lineitem+json", created, &created); err != nil {
		return LineItem{}, fmt.Errorf("create line item: %w", err)
	}

	c.logger.Info().Str("label", label).Str("id", created.ID).Msg("line item created")
	return created, nil
}

// SubmitScore posts one student's score to a line item.
func (c *AGSClient) SubmitScore(ctx context.Context, lineItemID string, score Score) error {
	if score.Timestamp == "" {
		score.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	return c.do(ctx, http.MethodPost, scoresURL(lineItemID), "application/vnd.ims.lis.v1.score+json", "", score, nil)
}

// Members lists the course roster behind the launch's memberships URL.
func (c *AGSClient) Members(ctx context.Context, membershipsURL string) ([]Member, error) {
	var container struct {
		Members []Member `json:"members"`
	}
	err := c.do(ctx, http.MethodGet, membershipsURL, "", "application/vnd.ims.lti-nrps.v2.membershipcontainer+json", nil, &container)
	return container.Members, err
}

// scoresURL appends the /scores segment to a line item URL, keeping any
// query string the platform attached.
func scoresURL(lineItemID string) string {
	base, query, found := strings.Cut(lineItemID, "?")
	base = strings.TrimRight(base, "/") + "/scores"
	if found {
		return base + "?" + query
	}
	return base
}
