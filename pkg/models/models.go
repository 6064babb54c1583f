package models

import (
	"encoding/json"
	"time"
)

// User represents a GitHub account holder who authenticated via OAuth
type User struct {
	ID          int64     `json:"id" db:"id"`
	GitHubID    string    `json:"github_id" db:"github_id"`
	Email       string    `json:"email" db:"email"`
	GitHubToken string    `json:"-" db:"github_token"` // Never expose the access token in JSON
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Repo represents a GitHub repository connected for review automation
type Repo struct {
	ID            int64     `json:"id" db:"id"`
	UserID        int64     `json:"user_id" db:"user_id"`
	GitHubRepoID  string    `json:"github_repo_id" db:"github_repo_id"`
	Name          string    `json:"name" db:"name"`
	Owner         string    `json:"owner" db:"owner"`
	WebhookSecret string    `json:"-" db:"webhook_secret"` // Never expose the signing secret in JSON
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Review represents one completed AI review pass over one pull request.
// Rows are append-only: repeated synchronize events for the same PR each
// produce a new Review.
type Review struct {
	ID         int64           `json:"id" db:"id"`
	PublicID   string          `json:"public_id" db:"public_id"`
	PRNumber   int             `json:"pr_number" db:"pr_number"`
	RepoID     int64           `json:"repo_id" db:"repo_id"`
	AIFeedback json.RawMessage `json:"ai_feedback" db:"ai_feedback"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// ReviewComment is a single structured unit of AI feedback. The JSON field
// names match the shape the model is instructed to emit, and the same shape
// is embedded verbatim in a Review's feedback payload.
type ReviewComment struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Comment string `json:"comment"`
}

// PullRequestRef identifies the pull request a review run is about
type PullRequestRef struct {
	Owner  string
	Repo   string
	Number int
}
