package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type gitRef struct {
	Object struct {
		SHA string `json:"sha"`
	} `json:"object"`
}

func (c *Client) getRef(ctx context.Context, token, owner, repo, branch string) (string, error) {
	var ref gitRef
	if err := c.do(ctx, token, http.MethodGet, fmt.Sprintf("/repos/%s/%s/git/ref/heads/%s", owner, repo, branch), nil, &ref); err != nil {
		return "", err
	}
	return ref.Object.SHA, nil
}

func (c *Client) createRef(ctx context.Context, token, owner, repo, branch, sha string) error {
	body := map[string]string{"ref": "refs/heads/" + branch, "sha": sha}
	return c.do(ctx, token, http.MethodPost, fmt.Sprintf("/repos/%s/%s/git/refs", owner, repo), body, nil)
}

// ensureFeedbackBranch creates the long-lived feedback branch from main
// when it does not exist yet.
func (c *Client) ensureFeedbackBranch(ctx context.Context, token, owner, repo string) error {
	_, err := c.getRef(ctx, token, owner, repo, feedbackBranch)
	if err == nil {
		return nil
	}
	if !IsNotFound(err) {
		return fmt.Errorf("check feedback branch: %w", err)
	}

	baseSHA, err := c.getRef(ctx, token, owner, repo, baseBranch)
	if err != nil {
		return fmt.Errorf("resolve base branch: %w", err)
	}

	c.logger.Info().Str("repo", repo).Msg("creating feedback branch")
	return c.createRef(ctx, token, owner, repo, feedbackBranch, baseSHA)
}

// CreateFeedbackPullRequest opens a pull request carrying the feedback in
// feedback.md on a fresh branch, returning the PR number.
func (c *Client) CreateFeedbackPullRequest(ctx context.Context, token, owner, repo, feedback string) (int, error) {
	if err := c.ensureFeedbackBranch(ctx, token, owner, repo); err != nil {
		return 0, err
	}

	baseSHA, err := c.getRef(ctx, token, owner, repo, feedbackBranch)
	if err != nil {
		return 0, err
	}

	branchName := fmt.Sprintf("auto-feedback-%d", time.Now().UnixMilli())
	if err := c.createRef(ctx, token, owner, repo, branchName, baseSHA); err != nil {
		return 0, fmt.Errorf("create feedback branch: %w", err)
	}

	var existingSHA string
	var existingContent string
	var file contentEntry
	err = c.do(ctx, token, http.MethodGet, fmt.Sprintf("/repos/%s/%s/contents/feedback.md?ref=%s", owner, repo, feedbackBranch), nil, &file)
	if err == nil {
		existingSHA = file.SHA
		decoded, decodeErr := base64.StdEncoding.DecodeString(strings.ReplaceAll(file.Content, "\n", ""))
		if decodeErr == nil {
			existingContent = string(decoded)
		}
	} else if !IsNotFound(err) {
		return 0, err
	}

	formatted := fmt.Sprintf("### Feedback generado el %s\n\n%s\n\n%s",
		time.Now().Format("2006-01-02 15:04:05"), feedback, existingContent)

	update := map[string]any{
		"message": "Actualizando feedback del código [skip ci]",
		"content": base64.StdEncoding.EncodeToString([]byte(formatted)),
		"branch":  branchName,
	}
	if existingSHA != "" {
		update["sha"] = existingSHA
	}
	if err := c.do(ctx, token, http.MethodPut, fmt.Sprintf("/repos/%s/%s/contents/feedback.md", owner, repo), update, nil); err != nil {
		return 0, fmt.Errorf("write feedback file: %w", err)
	}

	var pr struct {
		Number int `json:"number"`
	}
	body := map[string]string{
		"title": "Auto-generated Feedback PR",
		"head":  branchName,
		"base":  feedbackBranch,
		"body":  "Este PR ha sido creado automáticamente para la retroalimentación.",
	}
	if err := c.do(ctx, token, http.MethodPost, fmt.Sprintf("/repos/%s/%s/pulls", owner, repo), body, &pr); err != nil {
		return 0, fmt.Errorf("open pull request: %w", err)
	}

	c.logger.Info().Str("repo", repo).Int("pr", pr.Number).Msg("feedback pull request created")
	return pr.Number, nil
}

// OpenPullRequest returns the number of the first open PR, or 0 when none.
func (c *Client) OpenPullRequest(ctx context.Context, token, owner, repo string) (int, error) {
	var pulls []struct {
		Number int `json:"number"`
	}
	if err := c.do(ctx, token, http.MethodGet, fmt.Sprintf("/repos/%s/%s/pulls?state=open", owner, repo), nil, &pulls); err != nil {
		return 0, err
	}

	if len(pulls) == 0 {
		return 0, nil
	}

	return pulls[0].Number, nil
}

// CommentPullRequest appends the feedback as a PR comment.
func (c *Client) CommentPullRequest(ctx context.Context, token, owner, repo string, number int, feedback string) error {
	message := fmt.Sprintf("📌 **Nueva Retroalimentación Generada:**\n\n**Fecha y Hora:** %s\n\n%s",
		time.Now().Format("2006-01-02 15:04:05"), feedback)

	body := map[string]string{"body": message}
	if err := c.do(ctx, token, http.MethodPost, fmt.Sprintf("/repos/%s/%s/issues/%d/comments", owner, repo, number), body, nil); err != nil {
		return fmt.Errorf("comment pull request: %w", err)
	}

	c.logger.Info().Str("repo", repo).Int("pr", number).Msg("feedback comment added")
	return nil
}

// PostFeedback delivers feedback to the student's repository: comments on
// the open PR, or opens a fresh feedback PR when none exists.
func (c *Client) PostFeedback(ctx context.Context, token, owner, repo, feedback string) error {
	number, err := c.OpenPullRequest(ctx, token, owner, repo)
	if err != nil {
		return err
	}

	if number == 0 {
		number, err = c.CreateFeedbackPullRequest(ctx, token, owner, repo, feedback)
		if err != nil {
			return err
		}
	}

	return c.CommentPullRequest(ctx, token, owner, repo, number, feedback)
}
