package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/reviewloop/pkg/models"
)

// RepoStore handles database operations for connected repositories
type RepoStore struct {
	db *sql.DB
}

// NewRepoStore creates a new repo store
func NewRepoStore(db *sql.DB) *RepoStore {
	return &RepoStore{db: db}
}

// GetByID loads a repository by its primary key.
func (s *RepoStore) GetByID(ctx context.Context, id int64) (*models.Repo, error) {
	query := `
		SELECT id, user_id, github_repo_id, name, owner, webhook_secret, created_at
		FROM repos
		WHERE id = $1
	`

	repo := &models.Repo{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&repo.ID, &repo.UserID, &repo.GitHubRepoID, &repo.Name, &repo.Owner,
		&repo.WebhookSecret, &repo.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRepoNotFound
		}
		return nil, fmt.Errorf("failed to get repo: %w", err)
	}

	return repo, nil
}

// GetByGitHubRepoID resolves a connected repository from the identifier
// carried in a webhook payload. The webhook secret used for signature
// verification always comes from the row returned here.
func (s *RepoStore) GetByGitHubRepoID(ctx context.Context, githubRepoID string) (*models.Repo, error) {
	query := `
		SELECT id, user_id, github_repo_id, name, owner, webhook_secret, created_at
		FROM repos
		WHERE github_repo_id = $1
	`

	repo := &models.Repo{}
	err := s.db.QueryRowContext(ctx, query, githubRepoID).Scan(
		&repo.ID, &repo.UserID, &repo.GitHubRepoID, &repo.Name, &repo.Owner,
		&repo.WebhookSecret, &repo.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRepoNotFound
		}
		return nil, fmt.Errorf("failed to get repo: %w", err)
	}

	return repo, nil
}

// Create stores a new repository connection
func (s *RepoStore) Create(ctx context.Context, repo *models.Repo) error {
	query := `
		INSERT INTO repos (user_id, github_repo_id, name, owner, webhook_secret)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(
		ctx, query,
		repo.UserID, repo.GitHubRepoID, repo.Name, repo.Owner, repo.WebhookSecret,
	).Scan(&repo.ID, &repo.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create repo: %w", err)
	}

	return nil
}

// ListByUser returns the repositories a user has connected
func (s *RepoStore) ListByUser(ctx context.Context, userID int64) ([]*models.Repo, error) {
	query := `
		SELECT id, user_id, github_repo_id, name, owner, webhook_secret, created_at
		FROM repos
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query repos: %w", err)
	}
	defer rows.Close()

	// Initialize as empty slice so JSON encodes to [] rather than null
	repos := make([]*models.Repo, 0)
	for rows.Next() {
		repo := &models.Repo{}
		err := rows.Scan(
			&repo.ID, &repo.UserID, &repo.GitHubRepoID, &repo.Name, &repo.Owner,
			&repo.WebhookSecret, &repo.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan repo: %w", err)
		}
		repos = append(repos, repo)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating repos: %w", err)
	}

	return repos, nil
}
