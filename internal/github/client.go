package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/reviewloop/pkg/models"
)

const defaultBaseURL = "https://api.github.com"

// Number of feedback items above which the publisher collapses everything
// into a single summary review instead of per-comment reviews.
const summaryThreshold = 20

// APIClient talks to the GitHub REST API on behalf of a repository-owning user.
type APIClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewAPIClient constructs a GitHub client with sensible defaults.
func NewAPIClient() *APIClient {
	return &APIClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
	}
}

// NewAPIClientWithBaseURL constructs a client pointed at a non-default API
// endpoint. Used by tests and GitHub Enterprise deployments.
func NewAPIClientWithBaseURL(baseURL string) *APIClient {
	c := NewAPIClient()
	c.baseURL = strings.TrimSuffix(baseURL, "/")
	return c
}

// FetchPullRequestDiff retrieves the unified diff of a pull request. Each
// invocation is a fresh network call: no retry, no caching.
func (c *APIClient) FetchPullRequestDiff(ctx context.Context, owner, repo string, number int, token string) (string, error) {
	apiURL := fmt.Sprintf("%s/repos/%s/%s/pulls/%d", c.baseURL, owner, repo, number)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create diff request: %w", err)
	}

	req.Header.Set("Authorization", "token "+token)
	req.Header.Set("Accept", "application/vnd.github.v3.diff")
	req.Header.Set("User-Agent", "ReviewLoop-Bot")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch diff: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read diff response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("GitHub diff request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return string(body), nil
}

type reviewRequest struct {
	Body     string          `json:"body"`
	Event    string          `json:"event"`
	Comments []inlineComment `json:"comments,omitempty"`
}

type inlineComment struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Body string `json:"body"`
}

// PostReviewComments publishes structured feedback to a pull request.
//
// Above the summary threshold all comments are collapsed into one aggregated
// COMMENT review with no inline anchors. At or below it, one review is
// submitted per comment, each carrying the comment body as the review summary
// plus a single line-anchored inline entry. Comments are posted sequentially
// in input order and the first failure aborts the rest. An empty list is a
// silent no-op.
func (c *APIClient) PostReviewComments(ctx context.Context, owner, repo string, number int, comments []models.ReviewComment, token string) error {
	if len(comments) == 0 {
		return nil
	}

	apiURL := fmt.Sprintf("%s/repos/%s/%s/pulls/%d/reviews", c.baseURL, owner, repo, number)

	if len(comments) > summaryThreshold {
		log.Info().
			Int("comments", len(comments)).
			Int("pr_number", number).
			Msg("Collapsing feedback into a single summary review")

		return c.postJSON(ctx, apiURL, token, reviewRequest{
			Body:  renderSummary(comments),
			Event: "COMMENT",
		})
	}

	for _, comment := range comments {
		payload := reviewRequest{
			Body:  comment.Comment,
			Event: "COMMENT",
			Comments: []inlineComment{
				{Path: comment.File, Line: comment.Line, Body: comment.Comment},
			},
		}

		if err := c.postJSON(ctx, apiURL, token, payload); err != nil {
			return fmt.Errorf("failed to post review comment: %w", err)
		}
	}

	return nil
}

// renderSummary joins all comments into the aggregated review body
func renderSummary(comments []models.ReviewComment) string {
	parts := make([]string, 0, len(comments))
	for _, c := range comments {
		parts = append(parts, fmt.Sprintf("File: %s, Line: %d\n%s", c.File, c.Line, c.Comment))
	}
	return strings.Join(parts, "\n\n")
}

func (c *APIClient) postJSON(ctx context.Context, apiURL, token string, payload interface{}) error {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "token "+token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "ReviewLoop-Bot")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GitHub API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
