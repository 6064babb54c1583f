package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/reviewloop/pkg/models"
)

// ReviewStore handles database operations for the append-only review log
type ReviewStore struct {
	db *sql.DB
}

// NewReviewStore creates a new review store
func NewReviewStore(db *sql.DB) *ReviewStore {
	return &ReviewStore{db: db}
}

// Create appends a new review row. There is deliberately no dedup against
// prior reviews for the same PR: each qualifying webhook event gets its own
// row.
func (s *ReviewStore) Create(ctx context.Context, prNumber int, repoID int64, feedback []models.ReviewComment) (*models.Review, error) {
	if feedback == nil {
		feedback = []models.ReviewComment{}
	}

	payload, err := json.Marshal(feedback)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal feedback: %w", err)
	}

	query := `
		INSERT INTO reviews (public_id, pr_number, repo_id, ai_feedback)
		VALUES ($1, $2, $3, $4)
		RETURNING id, public_id, pr_number, repo_id, ai_feedback, created_at
	`

	review := &models.Review{}
	err = s.db.QueryRowContext(ctx, query, uuid.NewString(), prNumber, repoID, payload).Scan(
		&review.ID, &review.PublicID, &review.PRNumber, &review.RepoID,
		&review.AIFeedback, &review.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert review: %w", err)
	}

	return review, nil
}

// GetByPublicID retrieves a single review by its public identifier
func (s *ReviewStore) GetByPublicID(ctx context.Context, publicID string) (*models.Review, error) {
	query := `
		SELECT id, public_id, pr_number, repo_id, ai_feedback, created_at
		FROM reviews
		WHERE public_id = $1
	`

	review := &models.Review{}
	err := s.db.QueryRowContext(ctx, query, publicID).Scan(
		&review.ID, &review.PublicID, &review.PRNumber, &review.RepoID,
		&review.AIFeedback, &review.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}

	return review, nil
}

// ListByRepo returns reviews for a repository, newest first
func (s *ReviewStore) ListByRepo(ctx context.Context, repoID int64, limit int) ([]*models.Review, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT id, public_id, pr_number, repo_id, ai_feedback, created_at
		FROM reviews
		WHERE repo_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, repoID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	// Initialize as empty slice so JSON encodes to [] rather than null
	reviews := make([]*models.Review, 0)
	for rows.Next() {
		review := &models.Review{}
		err := rows.Scan(
			&review.ID, &review.PublicID, &review.PRNumber, &review.RepoID,
			&review.AIFeedback, &review.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, review)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reviews: %w", err)
	}

	return reviews, nil
}
