package jobqueue

import (
	"context"
	"fmt"

	"github.com/riverqueue/river"
	"github.com/rs/zerolog/log"

	"github.com/reviewloop/pkg/models"
)

// WebhookInstallArgs identifies the repository to install a webhook on.
type WebhookInstallArgs struct {
	RepoID int64 `json:"repo_id"`
}

func (WebhookInstallArgs) Kind() string { return "webhook_install" }

// RepoGetter loads connected repositories by primary key.
type RepoGetter interface {
	GetByID(ctx context.Context, id int64) (*models.Repo, error)
}

// TokenSource resolves the access token of a repository's owner.
type TokenSource interface {
	TokenForUser(ctx context.Context, userID int64) (string, error)
}

// HookClient installs webhooks on GitHub repositories.
type HookClient interface {
	EnsureWebhook(ctx context.Context, owner, repo, token, endpointURL, secret string) error
}

// WebhookInstallWorker installs the pull_request webhook on a freshly
// connected repository. River retries failed jobs, and EnsureWebhook skips
// hooks that already exist, so retries are safe.
type WebhookInstallWorker struct {
	river.WorkerDefaults[WebhookInstallArgs]

	repos    RepoGetter
	tokens   TokenSource
	hooks    HookClient
	endpoint string
}

func NewWebhookInstallWorker(repos RepoGetter, tokens TokenSource, hooks HookClient, endpoint string) *WebhookInstallWorker {
	return &WebhookInstallWorker{
		repos:    repos,
		tokens:   tokens,
		hooks:    hooks,
		endpoint: endpoint,
	}
}

func (w *WebhookInstallWorker) Work(ctx context.Context, job *river.Job[WebhookInstallArgs]) error {
	repo, err := w.repos.GetByID(ctx, job.Args.RepoID)
	if err != nil {
		return fmt.Errorf("failed to load repo %d: %w", job.Args.RepoID, err)
	}

	token, err := w.tokens.TokenForUser(ctx, repo.UserID)
	if err != nil {
		return fmt.Errorf("failed to resolve token for repo %d: %w", repo.ID, err)
	}

	if err := w.hooks.EnsureWebhook(ctx, repo.Owner, repo.Name, token, w.endpoint, repo.WebhookSecret); err != nil {
		return fmt.Errorf("failed to install webhook for %s/%s: %w", repo.Owner, repo.Name, err)
	}

	log.Info().Str("repo", repo.Owner+"/"+repo.Name).Msg("Webhook install job completed")
	return nil
}
