package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const oauthTokenURL = "https://github.com/login/oauth/access_token"

// AuthenticatedUser is the subset of the GitHub user profile we keep.
type AuthenticatedUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Email string `json:"email"`
}

// OAuthClient performs the GitHub OAuth web flow token exchange.
type OAuthClient struct {
	httpClient   *http.Client
	tokenURL     string
	apiBaseURL   string
	clientID     string
	clientSecret string
}

// NewOAuthClient builds an OAuth client for the given application credentials.
func NewOAuthClient(clientID, clientSecret string) *OAuthClient {
	return &OAuthClient{
		httpClient:   NewAPIClient().httpClient,
		tokenURL:     oauthTokenURL,
		apiBaseURL:   defaultBaseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// NewOAuthClientWithEndpoints is for tests pointing at a local server.
func NewOAuthClientWithEndpoints(clientID, clientSecret, tokenURL, apiBaseURL string) *OAuthClient {
	c := NewOAuthClient(clientID, clientSecret)
	c.tokenURL = tokenURL
	c.apiBaseURL = strings.TrimSuffix(apiBaseURL, "/")
	return c
}

// ExchangeCodeForToken trades a temporary OAuth code for a user access token.
func (c *OAuthClient) ExchangeCodeForToken(ctx context.Context, code string) (string, error) {
	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to exchange OAuth code: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		Error       string `json:"error"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if tokenResp.Error != "" {
		return "", fmt.Errorf("GitHub OAuth error: %s", tokenResp.Error)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("GitHub OAuth response contained no access token")
	}

	return tokenResp.AccessToken, nil
}

// FetchAuthenticatedUser loads the profile of the token's owner. GitHub hides
// the email for users with private addresses, so callers should fall back to
// the noreply form when Email comes back empty.
func (c *OAuthClient) FetchAuthenticatedUser(ctx context.Context, token string) (*AuthenticatedUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBaseURL+"/user", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user request: %w", err)
	}
	req.Header.Set("Authorization", "token "+token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "ReviewLoop-Bot")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch GitHub user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("GitHub user request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var user AuthenticatedUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode GitHub user: %w", err)
	}

	return &user, nil
}

// NoReplyEmail is the fallback address GitHub assigns users who keep their
// email private.
func NoReplyEmail(login string) string {
	return login + "@users.noreply.github.com"
}
