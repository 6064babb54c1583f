package review

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/reviewloop/internal/ai"
	"github.com/reviewloop/pkg/models"
)

// DiffSource fetches pull request diffs from the hosting provider.
type DiffSource interface {
	FetchPullRequestDiff(ctx context.Context, owner, repo string, number int, token string) (string, error)
}

// CommentPublisher posts structured feedback back to the pull request.
type CommentPublisher interface {
	PostReviewComments(ctx context.Context, owner, repo string, number int, comments []models.ReviewComment, token string) error
}

// TokenSource resolves the access token of the user owning a repository.
type TokenSource interface {
	TokenForUser(ctx context.Context, userID int64) (string, error)
}

// Recorder persists completed reviews.
type Recorder interface {
	Create(ctx context.Context, prNumber int, repoID int64, feedback []models.ReviewComment) (*models.Review, error)
}

// Service runs the review pipeline for qualifying pull request events.
type Service struct {
	tokens    TokenSource
	diffs     DiffSource
	generator ai.Generator
	publisher CommentPublisher
	recorder  Recorder
	timeout   time.Duration
}

// NewService wires the pipeline stages together. timeout bounds one full
// pipeline run; zero means no bound.
func NewService(tokens TokenSource, diffs DiffSource, generator ai.Generator, publisher CommentPublisher, recorder Recorder, timeout time.Duration) *Service {
	return &Service{
		tokens:    tokens,
		diffs:     diffs,
		generator: generator,
		publisher: publisher,
		recorder:  recorder,
		timeout:   timeout,
	}
}

// ProcessPullRequest runs the full pipeline for one pull request event:
// resolve the owner's token, fetch the diff, generate and parse feedback,
// publish comments, and persist the review record. Stages run in order and
// the first failure aborts the run; nothing is persisted for a failed run.
// Malformed AI output is not a failure: it degrades to an empty review.
func (s *Service) ProcessPullRequest(ctx context.Context, repo *models.Repo, pr models.PullRequestRef) (*models.Review, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	logger := log.With().
		Str("repo", pr.Owner+"/"+pr.Repo).
		Int("pr_number", pr.Number).
		Logger()

	token, err := s.tokens.TokenForUser(ctx, repo.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user token: %w", err)
	}

	diff, err := s.diffs.FetchPullRequestDiff(ctx, pr.Owner, pr.Repo, pr.Number, token)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch PR diff: %w", err)
	}
	logger.Info().Int("diff_bytes", len(diff)).Msg("Fetched pull request diff")

	raw, err := s.generator.GenerateReview(ctx, diff)
	if err != nil {
		return nil, fmt.Errorf("failed to generate AI review: %w", err)
	}

	feedback := ai.ParseFeedback(raw)
	if feedback.Malformed {
		logger.Warn().Msg("AI feedback was malformed, recording an empty review")
	}
	logger.Info().Int("comments", len(feedback.Comments)).Msg("Parsed AI feedback")

	if err := s.publisher.PostReviewComments(ctx, pr.Owner, pr.Repo, pr.Number, feedback.Comments, token); err != nil {
		return nil, fmt.Errorf("failed to publish review comments: %w", err)
	}

	review, err := s.recorder.Create(ctx, pr.Number, repo.ID, feedback.Comments)
	if err != nil {
		return nil, fmt.Errorf("failed to persist review: %w", err)
	}

	logger.Info().Str("public_id", review.PublicID).Msg("Review completed")
	return review, nil
}
