package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/reviewloop/internal/api/auth"
	"github.com/reviewloop/internal/github"
	"github.com/reviewloop/pkg/models"
)

const githubAuthorizeURL = "https://github.com/login/oauth/authorize"

// OAuthExchanger performs the GitHub side of the OAuth web flow.
type OAuthExchanger interface {
	ExchangeCodeForToken(ctx context.Context, code string) (string, error)
	FetchAuthenticatedUser(ctx context.Context, token string) (*github.AuthenticatedUser, error)
}

// UserUpserter persists users discovered through OAuth.
type UserUpserter interface {
	UpsertByGitHubID(ctx context.Context, githubID, email, token string) (*models.User, error)
}

// RepoConnector persists repository connections.
type RepoConnector interface {
	Create(ctx context.Context, repo *models.Repo) error
	ListByUser(ctx context.Context, userID int64) ([]*models.Repo, error)
}

// HookInstaller schedules webhook installation for a newly connected repo.
type HookInstaller interface {
	EnqueueWebhookInstall(ctx context.Context, repoID int64) error
}

// AuthHandler serves the OAuth flow and repository connection endpoints.
type AuthHandler struct {
	oauth       OAuthExchanger
	users       UserUpserter
	repos       RepoConnector
	hooks       HookInstaller
	tokens      *auth.TokenService
	clientID    string
	redirectURI string
}

func NewAuthHandler(oauth OAuthExchanger, users UserUpserter, repos RepoConnector, hooks HookInstaller, tokens *auth.TokenService, clientID, redirectURI string) *AuthHandler {
	return &AuthHandler{
		oauth:       oauth,
		users:       users,
		repos:       repos,
		hooks:       hooks,
		tokens:      tokens,
		clientID:    clientID,
		redirectURI: redirectURI,
	}
}

// Login redirects the browser to GitHub's authorization page.
func (h *AuthHandler) Login(c echo.Context) error {
	params := url.Values{}
	params.Set("client_id", h.clientID)
	params.Set("redirect_uri", h.redirectURI)
	params.Set("scope", "repo user")

	return c.Redirect(http.StatusFound, githubAuthorizeURL+"?"+params.Encode())
}

// Callback completes the OAuth flow: exchange the code, load the GitHub
// profile, upsert the user and hand back a session token.
func (h *AuthHandler) Callback(c echo.Context) error {
	code := c.QueryParam("code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing code parameter"})
	}

	ctx := c.Request().Context()

	accessToken, err := h.oauth.ExchangeCodeForToken(ctx, code)
	if err != nil {
		log.Error().Err(err).Msg("OAuth code exchange failed")
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "failed to authenticate with GitHub"})
	}

	ghUser, err := h.oauth.FetchAuthenticatedUser(ctx, accessToken)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch GitHub user profile")
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "failed to authenticate with GitHub"})
	}

	email := ghUser.Email
	if email == "" {
		email = github.NoReplyEmail(ghUser.Login)
	}

	user, err := h.users.UpsertByGitHubID(ctx, strconv.FormatInt(ghUser.ID, 10), email, accessToken)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upsert user")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}

	sessionToken, err := h.tokens.IssueSessionToken(user.ID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to issue session token")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"token": sessionToken,
		"user":  user,
	})
}

type connectRepoRequest struct {
	GitHubRepoID string `json:"github_repo_id"`
	Owner        string `json:"owner"`
	Name         string `json:"name"`
}

// ConnectRepo registers a repository for review. The webhook secret is
// generated server side, never accepted from the client, and webhook
// installation is queued as a background job.
func (h *AuthHandler) ConnectRepo(c echo.Context) error {
	userID, ok := c.Get("user_id").(int64)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "authentication required"})
	}

	var req connectRepoRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.GitHubRepoID == "" || req.Owner == "" || req.Name == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "github_repo_id, owner and name are required"})
	}

	secret, err := generateWebhookSecret()
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate webhook secret")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}

	repo := &models.Repo{
		UserID:        userID,
		GitHubRepoID:  req.GitHubRepoID,
		Owner:         req.Owner,
		Name:          req.Name,
		WebhookSecret: secret,
	}

	ctx := c.Request().Context()
	if err := h.repos.Create(ctx, repo); err != nil {
		log.Error().Err(err).Str("repo", req.Owner+"/"+req.Name).Msg("Failed to create repo")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}

	if err := h.hooks.EnqueueWebhookInstall(ctx, repo.ID); err != nil {
		log.Error().Err(err).Int64("repo_id", repo.ID).Msg("Failed to enqueue webhook install")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}

	return c.JSON(http.StatusCreated, repo)
}

// ListRepos returns the repositories connected by the authenticated user.
func (h *AuthHandler) ListRepos(c echo.Context) error {
	userID, ok := c.Get("user_id").(int64)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "authentication required"})
	}

	repos, err := h.repos.ListByUser(c.Request().Context(), userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("Failed to list repos")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"repos": repos})
}

// RequireSession is echo middleware enforcing a valid Bearer session token.
func RequireSession(tokens *auth.TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			}

			userID, err := tokens.ValidateSessionToken(raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid session token"})
			}

			c.Set("user_id", userID)
			return next(c)
		}
	}
}

func generateWebhookSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
