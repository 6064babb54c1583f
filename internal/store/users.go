package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/reviewloop/pkg/models"
)

// UserStore handles database operations for users
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a new user store
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// GetByID retrieves a user by internal id
func (s *UserStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT id, github_id, email, github_token, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	user := &models.User{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.GitHubID, &user.Email, &user.GitHubToken,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// UpsertByGitHubID creates a user on first OAuth exchange and refreshes the
// stored token and email on every subsequent one.
func (s *UserStore) UpsertByGitHubID(ctx context.Context, githubID, email, token string) (*models.User, error) {
	query := `
		INSERT INTO users (github_id, email, github_token)
		VALUES ($1, $2, $3)
		ON CONFLICT (github_id) DO UPDATE
		SET email = EXCLUDED.email, github_token = EXCLUDED.github_token, updated_at = NOW()
		RETURNING id, github_id, email, github_token, created_at, updated_at
	`

	user := &models.User{}
	err := s.db.QueryRowContext(ctx, query, githubID, email, token).Scan(
		&user.ID, &user.GitHubID, &user.Email, &user.GitHubToken,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	return user, nil
}

// TokenForUser returns the stored GitHub access token of a user.
func (s *UserStore) TokenForUser(ctx context.Context, userID int64) (string, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}

	return user.GitHubToken, nil
}
