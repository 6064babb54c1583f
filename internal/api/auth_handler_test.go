package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewloop/internal/api/auth"
	"github.com/reviewloop/internal/github"
	"github.com/reviewloop/pkg/models"
)

type fakeOAuth struct {
	token string
	user  *github.AuthenticatedUser
}

func (f *fakeOAuth) ExchangeCodeForToken(ctx context.Context, code string) (string, error) {
	return f.token, nil
}

func (f *fakeOAuth) FetchAuthenticatedUser(ctx context.Context, token string) (*github.AuthenticatedUser, error) {
	return f.user, nil
}

type fakeUsers struct {
	gotEmail string
	gotToken string
}

func (f *fakeUsers) UpsertByGitHubID(ctx context.Context, githubID, email, token string) (*models.User, error) {
	f.gotEmail = email
	f.gotToken = token
	return &models.User{ID: 5, GitHubID: githubID, Email: email}, nil
}

type fakeRepos struct {
	created *models.Repo
}

func (f *fakeRepos) Create(ctx context.Context, repo *models.Repo) error {
	repo.ID = 10
	f.created = repo
	return nil
}

func (f *fakeRepos) ListByUser(ctx context.Context, userID int64) ([]*models.Repo, error) {
	if f.created == nil {
		return []*models.Repo{}, nil
	}
	return []*models.Repo{f.created}, nil
}

type fakeHooks struct {
	enqueued []int64
}

func (f *fakeHooks) EnqueueWebhookInstall(ctx context.Context, repoID int64) error {
	f.enqueued = append(f.enqueued, repoID)
	return nil
}

func newAuthHandler(oauth *fakeOAuth, users *fakeUsers, repos *fakeRepos, hooks *fakeHooks) *AuthHandler {
	tokens := auth.NewTokenService("test-secret")
	return NewAuthHandler(oauth, users, repos, hooks, tokens, "client-id", "https://reviewloop.example/auth/github/callback")
}

func TestCallbackUpsertsUserAndIssuesToken(t *testing.T) {
	oauth := &fakeOAuth{token: "gho_granted", user: &github.AuthenticatedUser{ID: 99, Login: "octocat", Email: "octo@example.com"}}
	users := &fakeUsers{}
	handler := newAuthHandler(oauth, users, &fakeRepos{}, &fakeHooks{})

	req := httptest.NewRequest(http.MethodGet, "/auth/github/callback?code=abc123", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, handler.Callback(echo.New().NewContext(req, rec)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "octo@example.com", users.gotEmail)
	assert.Equal(t, "gho_granted", users.gotToken)

	var resp struct {
		Token string       `json:"token"`
		User  *models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, int64(5), resp.User.ID)
	// The GitHub token never appears in API responses.
	assert.NotContains(t, rec.Body.String(), "gho_granted")
}

func TestCallbackPrivateEmailFallback(t *testing.T) {
	oauth := &fakeOAuth{token: "gho_granted", user: &github.AuthenticatedUser{ID: 99, Login: "octocat", Email: ""}}
	users := &fakeUsers{}
	handler := newAuthHandler(oauth, users, &fakeRepos{}, &fakeHooks{})

	req := httptest.NewRequest(http.MethodGet, "/auth/github/callback?code=abc123", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, handler.Callback(echo.New().NewContext(req, rec)))

	assert.Equal(t, "octocat@users.noreply.github.com", users.gotEmail)
}

func TestCallbackMissingCode(t *testing.T) {
	handler := newAuthHandler(&fakeOAuth{}, &fakeUsers{}, &fakeRepos{}, &fakeHooks{})

	req := httptest.NewRequest(http.MethodGet, "/auth/github/callback", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, handler.Callback(echo.New().NewContext(req, rec)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginRedirect(t *testing.T) {
	handler := newAuthHandler(&fakeOAuth{}, &fakeUsers{}, &fakeRepos{}, &fakeHooks{})

	req := httptest.NewRequest(http.MethodGet, "/auth/github", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, handler.Login(echo.New().NewContext(req, rec)))

	assert.Equal(t, http.StatusFound, rec.Code)
	location := rec.Header().Get("Location")
	assert.Contains(t, location, "github.com/login/oauth/authorize")
	assert.Contains(t, location, "client_id=client-id")
}

func TestConnectRepoGeneratesSecretAndEnqueuesInstall(t *testing.T) {
	repos := &fakeRepos{}
	hooks := &fakeHooks{}
	handler := newAuthHandler(&fakeOAuth{}, &fakeUsers{}, repos, hooks)

	body := `{"github_repo_id":"55","owner":"acme","name":"widgets"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/connect-repo", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.Set("user_id", int64(5))

	require.NoError(t, handler.ConnectRepo(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	require.NotNil(t, repos.created)
	assert.Equal(t, "55", repos.created.GitHubRepoID)
	assert.Equal(t, int64(5), repos.created.UserID)
	// Secret is server generated, 32 random bytes hex encoded.
	assert.Len(t, repos.created.WebhookSecret, 64)
	// And never serialized back to the client.
	assert.NotContains(t, rec.Body.String(), repos.created.WebhookSecret)

	assert.Equal(t, []int64{10}, hooks.enqueued)
}

func TestConnectRepoRequiresAuth(t *testing.T) {
	handler := newAuthHandler(&fakeOAuth{}, &fakeUsers{}, &fakeRepos{}, &fakeHooks{})

	req := httptest.NewRequest(http.MethodPost, "/auth/connect-repo", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	require.NoError(t, handler.ConnectRepo(echo.New().NewContext(req, rec)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestConnectRepoValidation(t *testing.T) {
	handler := newAuthHandler(&fakeOAuth{}, &fakeUsers{}, &fakeRepos{}, &fakeHooks{})

	req := httptest.NewRequest(http.MethodPost, "/auth/connect-repo", strings.NewReader(`{"owner":"acme"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.Set("user_id", int64(5))

	require.NoError(t, handler.ConnectRepo(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequireSession(t *testing.T) {
	tokens := auth.NewTokenService("test-secret")
	token, err := tokens.IssueSessionToken(42)
	require.NoError(t, err)

	e := echo.New()
	mw := RequireSession(tokens)
	next := func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]int64{"user_id": c.Get("user_id").(int64)})
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	require.NoError(t, mw(next)(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "42")

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	require.NoError(t, mw(next)(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	rec = httptest.NewRecorder()
	require.NoError(t, mw(next)(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
