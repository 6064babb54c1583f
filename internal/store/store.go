package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Sentinel lookup errors. Handlers map these to response codes; nothing in
// the store layer knows about HTTP.
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrRepoNotFound   = errors.New("repo not found")
	ErrReviewNotFound = errors.New("review not found")
)

// Migrate creates the tables the service needs if they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id           BIGSERIAL PRIMARY KEY,
		github_id    TEXT NOT NULL UNIQUE,
		email        TEXT NOT NULL,
		github_token TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS repos (
		id             BIGSERIAL PRIMARY KEY,
		user_id        BIGINT NOT NULL REFERENCES users(id),
		github_repo_id TEXT NOT NULL UNIQUE,
		name           TEXT NOT NULL,
		owner          TEXT NOT NULL,
		webhook_secret TEXT NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS reviews (
		id          BIGSERIAL PRIMARY KEY,
		public_id   UUID NOT NULL UNIQUE,
		pr_number   INTEGER NOT NULL,
		repo_id     BIGINT NOT NULL REFERENCES repos(id),
		ai_feedback JSONB NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS reviews_repo_id_idx ON reviews (repo_id, created_at DESC);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	return nil
}
