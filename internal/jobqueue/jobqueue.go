package jobqueue

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/zerolog/log"
)

const defaultMaxWorkers = 5

// Client wraps the River job queue used for background work that should not
// run inside a request, currently just webhook installation.
type Client struct {
	pool  *pgxpool.Pool
	river *river.Client[pgx.Tx]
}

// New connects to Postgres, runs the queue schema migrations and builds a
// queue client with the webhook install worker registered.
func New(ctx context.Context, databaseURL string, installWorker *WebhookInstallWorker) (*Client, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create queue migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate queue schema: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, installWorker)

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: defaultMaxWorkers},
		},
		Workers: workers,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create queue client: %w", err)
	}

	return &Client{pool: pool, river: riverClient}, nil
}

// Start begins processing jobs.
func (c *Client) Start(ctx context.Context) error {
	if err := c.river.Start(ctx); err != nil {
		return fmt.Errorf("failed to start queue: %w", err)
	}
	log.Info().Msg("Job queue started")
	return nil
}

// Stop drains running jobs and closes the pool.
func (c *Client) Stop(ctx context.Context) error {
	if err := c.river.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop queue: %w", err)
	}
	c.pool.Close()
	return nil
}

// EnqueueWebhookInstall schedules webhook installation for a repository.
func (c *Client) EnqueueWebhookInstall(ctx context.Context, repoID int64) error {
	if _, err := c.river.Insert(ctx, WebhookInstallArgs{RepoID: repoID}, nil); err != nil {
		return fmt.Errorf("failed to enqueue webhook install: %w", err)
	}

	log.Info().Int64("repo_id", repoID).Msg("Enqueued webhook install job")
	return nil
}
