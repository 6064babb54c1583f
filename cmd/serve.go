package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/reviewloop/internal/ai"
	"github.com/reviewloop/internal/api"
	"github.com/reviewloop/internal/api/auth"
	"github.com/reviewloop/internal/config"
	"github.com/reviewloop/internal/database"
	"github.com/reviewloop/internal/github"
	"github.com/reviewloop/internal/jobqueue"
	"github.com/reviewloop/internal/review"
	"github.com/reviewloop/internal/store"
)

// ServeCommand runs the HTTP server and the background job queue.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the ReviewLoop server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the configuration file",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Override the HTTP listen port",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if port := c.Int("port"); port != 0 {
		cfg.Server.Port = port
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB()
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := store.Migrate(ctx, db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	users := store.NewUserStore(db)
	repos := store.NewRepoStore(db)
	reviews := store.NewReviewStore(db)

	ghClient := github.NewAPIClient()
	oauthClient := github.NewOAuthClient(cfg.GitHub.ClientID, cfg.GitHub.ClientSecret)

	generator, err := ai.NewGeminiGenerator(ctx, cfg.AI.APIKey, cfg.AI.Model)
	if err != nil {
		return fmt.Errorf("failed to create AI generator: %w", err)
	}

	pipeline := review.NewService(users, ghClient, generator, ghClient, reviews, cfg.AI.Timeout)

	dbURL, err := database.URL()
	if err != nil {
		return fmt.Errorf("failed to resolve database URL: %w", err)
	}

	installWorker := jobqueue.NewWebhookInstallWorker(repos, users, ghClient, cfg.Webhook.PublicEndpoint)
	queue, err := jobqueue.New(ctx, dbURL, installWorker)
	if err != nil {
		return fmt.Errorf("failed to create job queue: %w", err)
	}
	if err := queue.Start(ctx); err != nil {
		return fmt.Errorf("failed to start job queue: %w", err)
	}
	defer func() {
		if err := queue.Stop(context.Background()); err != nil {
			log.Error().Err(err).Msg("Failed to stop job queue")
		}
	}()

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret)
	webhookHandler := api.NewWebhookHandler(repos, pipeline)
	reviewsHandler := api.NewReviewsHandler(reviews)
	authHandler := api.NewAuthHandler(oauthClient, users, repos, queue, tokens, cfg.GitHub.ClientID, cfg.GitHub.RedirectURI)

	server := api.NewServer(cfg.Server.Port, webhookHandler, reviewsHandler, authHandler, tokens)
	return server.Start(ctx)
}
