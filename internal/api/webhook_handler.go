package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/reviewloop/internal/store"
	"github.com/reviewloop/pkg/models"
)

// RepoSource looks up connected repositories by their GitHub identifier.
type RepoSource interface {
	GetByGitHubRepoID(ctx context.Context, githubRepoID string) (*models.Repo, error)
}

// ReviewPipeline runs the AI review for a qualifying pull request event.
type ReviewPipeline interface {
	ProcessPullRequest(ctx context.Context, repo *models.Repo, pr models.PullRequestRef) (*models.Review, error)
}

// WebhookHandler ingests GitHub webhook deliveries.
type WebhookHandler struct {
	repos    RepoSource
	pipeline ReviewPipeline
}

func NewWebhookHandler(repos RepoSource, pipeline ReviewPipeline) *WebhookHandler {
	return &WebhookHandler{repos: repos, pipeline: pipeline}
}

// repoID tolerates both number and string encodings of repository.id. GitHub
// sends a number; the exact digits must survive as the lookup key, so the
// value is never round-tripped through a float. Anything other than a scalar
// is a malformed payload.
type repoID string

func (r *repoID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s[0] == '{' || s[0] == '[' || s == "null" || s == "true" || s == "false" {
		return fmt.Errorf("repository.id must be a number or string, got %q", s)
	}
	*r = repoID(strings.Trim(s, `"`))
	return nil
}

// webhookPayload is the slice of the GitHub event body we care about.
type webhookPayload struct {
	Action     string `json:"action"`
	Repository struct {
		ID repoID `json:"id"`
	} `json:"repository"`
	PullRequest *struct {
		Number int `json:"number"`
	} `json:"pull_request"`
}

// HandleWebhook processes one delivery. Gates run in a fixed order: body
// parse, repository lookup, signature check, then event filtering. Only
// pull_request events with action opened or synchronize reach the review
// pipeline; everything else is acknowledged and dropped.
func (h *WebhookHandler) HandleWebhook(c echo.Context) error {
	rawBody, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to read request body"})
	}

	var payload webhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid JSON payload"})
	}

	repo, err := h.repos.GetByGitHubRepoID(c.Request().Context(), string(payload.Repository.ID))
	if err != nil {
		if errors.Is(err, store.ErrRepoNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "repo not found"})
		}
		log.Error().Err(err).Msg("Failed to look up repository for webhook")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}

	signature := c.Request().Header.Get("X-Hub-Signature-256")
	if !VerifySignature(rawBody, signature, repo.WebhookSecret) {
		log.Warn().
			Str("repo", repo.Owner+"/"+repo.Name).
			Msg("Webhook signature verification failed")
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
	}

	event := c.Request().Header.Get("X-GitHub-Event")
	if event != "pull_request" || payload.PullRequest == nil || !isReviewableAction(payload.Action) {
		return c.JSON(http.StatusOK, map[string]bool{"ok": true})
	}

	// Owner and name come from the matched Repo row, not the payload: the
	// delivery only needs to carry repository.id.
	pr := models.PullRequestRef{
		Owner:  repo.Owner,
		Repo:   repo.Name,
		Number: payload.PullRequest.Number,
	}

	if _, err := h.pipeline.ProcessPullRequest(c.Request().Context(), repo, pr); err != nil {
		log.Error().Err(err).
			Str("repo", pr.Owner+"/"+pr.Repo).
			Int("pr_number", pr.Number).
			Msg("Review pipeline failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}

	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

// isReviewableAction reports whether a pull_request action should trigger a
// review. New PRs and new pushes to existing PRs qualify; closes, labels and
// the rest do not.
func isReviewableAction(action string) bool {
	return action == "opened" || action == "synchronize"
}
