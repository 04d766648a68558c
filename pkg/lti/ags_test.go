package lti

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type staticTokener struct{ token string }

func (s staticTokener) Token(ctx context.Context) (string, error) { return s.token, nil }

func TestTokenSourceGrantsAndCachesToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	grants := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		grants++
		require.NoError(t, r.ParseForm())
		require.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		require.Equal(t, "urn:ietf:params:oauth:client-assertion-type:jwt-bearer", r.Form.Get("client_assertion_type"))
		require.Contains(t, r.Form.Get("scope"), ScopeScore)

		assertion, _, err := jwt.NewParser().ParseUnverified(r.Form.Get("client_assertion"), jwt.MapClaims{})
		require.NoError(t, err)
		claims := assertion.Claims.(jwt.MapClaims)
		require.Equal(t, "tool-client-id", claims["iss"])
		require.Equal(t, "tool-client-id", claims["sub"])
		require.NotEmpty(t, claims["jti"])

		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "granted-token",
			"expires_in":   3600,
		})
	}))
	defer server.Close()

	platform := testPlatform
	platform.TokenEndpoint = server.URL
	source := NewTokenSource(platform, key, server.Client())

	token, err := source.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "granted-token", token)

	// Second call serves from cache.
	token, err = source.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "granted-token", token)
	require.Equal(t, 1, grants)
}

func TestTokenSourceRefreshesExpiredToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	grants := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		grants++
		json.NewEncoder(w).Encode(map[string]any{"access_token": "granted-token", "expires_in": 60})
	}))
	defer server.Close()

	platform := testPlatform
	platform.TokenEndpoint = server.URL
	source := NewTokenSource(platform, key, server.Client())

	current := time.Now()
	source.now = func() time.Time { return current }

	_, err = source.Token(context.Background())
	require.NoError(t, err)

	// A 60s token with the one-minute safety margin is already stale.
	current = current.Add(time.Second)
	_, err = source.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, grants)
}

func TestEnsureLineItemFindsExistingByLabel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode([]LineItem{
			{ID: "https://lms/lineitems/1", Label: "Tarea 1", ScoreMaximum: 10},
			{ID: "https://lms/lineitems/2", Label: "Tarea 2", ScoreMaximum: 10},
		})
	}))
	defer server.Close()

	client := NewAGSClient(staticTokener{token: "test-token"}, server.Client(), zerolog.Nop())

	item, err := client.EnsureLineItem(context.Background(), server.URL, "Tarea 2", 10)
	require.NoError(t, err)
	require.Equal(t, "https://lms/lineitems/2", item.ID)
}

func TestEnsureLineItemCreatesWhenMissing(t *testing.T) {
	var created LineItem
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode([]LineItem{})
		case http.MethodPost:
			require.Equal(t, "application/vnd.ims.lis.v2.lineitem+json", r.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&created))
			created.ID = "https://lms/lineitems/9"
			json.NewEncoder(w).Encode(created)
		}
	}))
	defer server.Close()

	client := NewAGSClient(staticTokener{token: "test-token"}, server.Client(), zerolog.Nop())

	item, err := client.EnsureLineItem(context.Background(), server.URL, "Tarea Nueva", 10)
	require.NoError(t, err)
	require.Equal(t, "https://lms/lineitems/9", item.ID)
	require.Equal(t, "Tarea Nueva", created.Label)
	require.Equal(t, 10.0, created.ScoreMaximum)
}

func TestSubmitScorePostsToScoresURL(t *testing.T) {
	var got Score
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path + "?" + r.URL.RawQuery
		require.Equal(t, "application/vnd.ims.lis.v1.score+json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewAGSClient(staticTokener{token: "test-token"}, server.Client(), zerolog.Nop())

	err := client.SubmitScore(context.Background(), server.URL+"/lineitems/3?type_id=4", Score{
		UserID:           "moodle-user-8",
		ScoreGiven:       8.5,
		ScoreMaximum:     10,
		ActivityProgress: "Completed",
		GradingProgress:  "FullyGraded",
	})
	require.NoError(t, err)
	require.Equal(t, "/lineitems/3/scores?type_id=4", path)
	require.Equal(t, "moodle-user-8", got.UserID)
	require.Equal(t, 8.5, got.ScoreGiven)
	require.NotEmpty(t, got.Timestamp)
}

func TestMembersUnwrapsContainer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"members": []Member{
				{UserID: "11", Name: "Alumno Uno", Email: "uno@uca.edu", Status: "Active"},
				{UserID: "12", Name: "Alumno Dos", Email: "dos@uca.edu", Status: "Active"},
			},
		})
	}))
	defer server.Close()

	client := NewAGSClient(staticTokener{token: "test-token"}, server.Client(), zerolog.Nop())

	members, err := client.Members(context.Background(), server.URL)
	require.NoError(t, err)
	require.Len(t, members, 2)
	require.Equal(t, "uno@uca.edu", members[0].Email)
}

func TestScoresURL(t *testing.T) {
	require.Equal(t, "https://lms/li/3/scores", scoresURL("https://lms/li/3"))
	require.Equal(t, "https://lms/li/3/scores", scoresURL("https://lms/li/3/"))
	require.Equal(t, "https://lms/li/3/scores?type_id=4", scoresURL("https://lms/li/3?type_id=4"))
}
