package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github.com/reviewloop/internal/api/auth"
)

// Server hosts the HTTP surface: webhook ingestion, the OAuth flow and the
// authenticated REST API.
type Server struct {
	echo *echo.Echo
	port int
}

func NewServer(port int, webhook *WebhookHandler, reviews *ReviewsHandler, authHandler *AuthHandler, tokens *auth.TokenService) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Msg("request")
			return nil
		},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	e.POST("/webhooks/github", webhook.HandleWebhook)

	e.GET("/auth/github", authHandler.Login)
	e.GET("/auth/github/callback", authHandler.Callback)
	e.POST("/auth/connect-repo", authHandler.ConnectRepo, RequireSession(tokens))

	v1 := e.Group("/api/v1", RequireSession(tokens))
	v1.GET("/repos", authHandler.ListRepos)
	v1.GET("/reviews", reviews.ListReviews)
	v1.GET("/reviews/:publicId", reviews.GetReview)

	return &Server{echo: e, port: port}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", s.port)
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Info().Msg("Shutting down HTTP server")
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}
