// Package github is a thin client for the GitHub REST endpoints the
// platform needs: Classroom listings, repository contents, feedback pull
// requests, workflow runs and organization memberships. The Classroom
// endpoints are not covered by any SDK, so requests are issued directly.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "https://api.github.com"
	defaultTimeout = 15 * time.Second

	feedbackBranch = "feedback"
	baseBranch     = "main"
)

// APIError is returned for non-2xx GitHub responses.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github: status %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a GitHub 404.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == http.StatusNotFound
}

// Client issues bearer-authenticated GitHub API requests. Tokens are
// per-user and passed per call.
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

// Option customises the client.
type Option func(*Client)

// WithBaseURL points the client at a different API host, used in tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.http = client }
}

// NewClient builds a GitHub API client with a bounded per-request timeout.
func NewClient(logger zerolog.Logger, opts ...Option) *Client {
	client := &Client{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  logger.With().Str("component", "github_client").Logger(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

func (c *Client) do(ctx context.Context, token, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("github request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(payload))}
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode github response: %w", err)
	}

	return nil
}

// Classroom is a GitHub Classroom course.
type Classroom struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Assignment is a GitHub Classroom task.
type Assignment struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	InviteLink    string `json:"invite_link"`
	Accepted      int    `json:"accepted"`
	Submitted     int    `json:"submitted"`
	Passing       int    `json:"passing"`
	MaxTeams      int    `json:"max_teams"`
	MaxMembers    int    `json:"max_members"`
	Editor        string `json:"editor"`
	Deadline      string `json:"deadline"`
	ClassroomInfo struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"classroom"`
}

// AcceptedAssignment is a per-student (or per-team) repository for a task.
type AcceptedAssignment struct {
	ID          int64 `json:"id"`
	Submitted   bool  `json:"submitted"`
	Passing     bool  `json:"passing"`
	GradePoints int   `json:"grade"`
	Students    []struct {
		Login string `json:"login"`
	} `json:"students"`
	Repository struct {
		Name     string `json:"name"`
		FullName string `json:"full_name"`
		HTMLURL  string `json:"html_url"`
	} `json:"repository"`
}

// AssignmentGrade is one row of a classroom grade export.
type AssignmentGrade struct {
	GithubUsername    string `json:"github_username"`
	StudentRepository string `json:"student_repository_name"`
	PointsAwarded     string `json:"points_awarded"`
	PointsAvailable   string `json:"points_available"`
}

// ListClassrooms returns the classrooms visible to the token, kept only
// when their URL carries the organization prefix.
func (c *Client) ListClassrooms(ctx context.Context, token, orgID string) ([]Classroom, error) {
	var classrooms []Classroom
	if err := c.do(ctx, token, http.MethodGet, "/classrooms", nil, &classrooms); err != nil {
		return nil, err
	}

	marker := fmt.Sprintf("classrooms/%s-", orgID)
	filtered := classrooms[:0]
	for _, classroom := range classrooms {
		if strings.Contains(classroom.URL, marker) {
			filtered = append(filtered, classroom)
		}
	}

	return filtered, nil
}

// ClassroomInOrg returns the classroom when it belongs to the organization.
func (c *Client) ClassroomInOrg(ctx context.Context, token, orgID, classroomID string) (*Classroom, error) {
	classrooms, err := c.ListClassrooms(ctx, token, orgID)
	if err != nil {
		return nil, err
	}

	for _, classroom := range classrooms {
		if fmt.Sprintf("%d", classroom.ID) == classroomID {
			match := classroom
			return &match, nil
		}
	}

	return nil, nil
}

// ListAssignments returns the tasks of a classroom.
func (c *Client) ListAssignments(ctx context.Context, token, classroomID string) ([]Assignment, error) {
	var assignments []Assignment
	err := c.do(ctx, token, http.MethodGet, "/classrooms/"+classroomID+"/assignments", nil, &assignments)
	return assignments, err
}

// ListAcceptedAssignments returns the student repositories of a task.
func (c *Client) ListAcceptedAssignments(ctx context.Context, token, assignmentID string) ([]AcceptedAssignment, error) {
	var accepted []AcceptedAssignment
	err := c.do(ctx, token, http.MethodGet, "/assignments/"+assignmentID+"/accepted_assignments", nil, &accepted)
	return accepted, err
}

// ListAssignmentGrades returns the classroom grade export of a task.
func (c *Client) ListAssignmentGrades(ctx context.Context, token, assignmentID string) ([]AssignmentGrade, error) {
	var grades []AssignmentGrade
	err := c.do(ctx, token, http.MethodGet, "/assignments/"+assignmentID+"/grades", nil, &grades)
	return grades, err
}

// WorkflowRun is one GitHub Actions run.
type WorkflowRun struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
	HTMLURL    string `json:"html_url"`
}

// WorkflowJob is one job inside a run.
type WorkflowJob struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
	Steps      []struct {
		Name       string `json:"name"`
		Status     string `json:"status"`
		Conclusion string `json:"conclusion"`
	} `json:"steps"`
}

// LatestWorkflowRun returns the newest Actions run of a repo, or nil when
// the repo has none.
func (c *Client) LatestWorkflowRun(ctx context.Context, token, orgName, repo string) (*WorkflowRun, error) {
	var payload struct {
		WorkflowRuns []WorkflowRun `json:"workflow_runs"`
	}
	if err := c.do(ctx, token, http.MethodGet, fmt.Sprintf("/repos/%s/%s/actions/runs", orgName, repo), nil, &payload); err != nil {
		return nil, err
	}

	if len(payload.WorkflowRuns) == 0 {
		return nil, nil
	}

	return &payload.WorkflowRuns[0], nil
}

// WorkflowJobs returns the jobs of one Actions run.
func (c *Client) WorkflowJobs(ctx context.Context, token, orgName, repo string, runID int64) ([]WorkflowJob, error) {
	var payload struct {
		Jobs []WorkflowJob `json:"jobs"`
	}
	err := c.do(ctx, token, http.MethodGet, fmt.Sprintf("/repos/%s/%s/actions/runs/%d/jobs", orgName, repo, runID), nil, &payload)
	return payload.Jobs, err
}

// RepoContent bundles the problem statement and the submitted source.
type RepoContent struct {
	Readme string
	Code   string
}

type contentEntry struct {
	Name        string `json:"name"`
	Content     string `json:"content"`
	DownloadURL string `json:"download_url"`
	SHA         string `json:"sha"`
}

// FetchRepoContent returns the repo README plus the first file matching
// the extension.
func (c *Client) FetchRepoContent(ctx context.Context, token, orgName, repo, extension string) (RepoContent, error) {
	var entries []contentEntry
	if err := c.do(ctx, token, http.MethodGet, fmt.Sprintf("/repos/%s/%s/contents/", orgName, repo), nil, &entries); err != nil {
		return RepoContent{}, err
	}

	var codeURL string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name, extension) {
			codeURL = entry.DownloadURL
			break
		}
	}
	if codeURL == "" {
		return RepoContent{}, fmt.Errorf("no file with extension %q in %s/%s", extension, orgName, repo)
	}

	var readme contentEntry
	if err := c.do(ctx, token, http.MethodGet, fmt.Sprintf("/repos/%s/%s/contents/README.md", orgName, repo), nil, &readme); err != nil {
		return RepoContent{}, err
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(readme.Content, "\n", ""))
	if err != nil {
		return RepoContent{}, fmt.Errorf("decode readme: %w", err)
	}

	code, err := c.download(ctx, codeURL)
	if err != nil {
		return RepoContent{}, err
	}

	return RepoContent{Readme: string(decoded), Code: code}, nil
}

func (c *Client) download(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Message: "file download failed"}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	return string(payload), nil
}
