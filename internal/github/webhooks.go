package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Hook is a repository webhook as returned by the GitHub API.
type Hook struct {
	ID     int64      `json:"id"`
	Config HookConfig `json:"config"`
	Events []string   `json:"events"`
	Active bool       `json:"active"`
}

// HookConfig carries the delivery settings of a webhook. GitHub never echoes
// the secret back, so Secret is only populated on outbound requests.
type HookConfig struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Secret      string `json:"secret,omitempty"`
}

type hookRequest struct {
	Name   string     `json:"name"`
	Active bool       `json:"active"`
	Events []string   `json:"events"`
	Config HookConfig `json:"config"`
}

// ListHooks returns the webhooks configured on a repository.
func (c *APIClient) ListHooks(ctx context.Context, owner, repo, token string) ([]Hook, error) {
	apiURL := fmt.Sprintf("%s/repos/%s/%s/hooks", c.baseURL, owner, repo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create hooks request: %w", err)
	}
	req.Header.Set("Authorization", "token "+token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "ReviewLoop-Bot")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list hooks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("GitHub hooks request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var hooks []Hook
	if err := json.NewDecoder(resp.Body).Decode(&hooks); err != nil {
		return nil, fmt.Errorf("failed to decode hooks response: %w", err)
	}

	return hooks, nil
}

// EnsureWebhook installs the pull_request webhook on a repository, skipping
// the create when a hook already points at endpointURL. Safe to run more than
// once for the same repository.
func (c *APIClient) EnsureWebhook(ctx context.Context, owner, repo, token, endpointURL, secret string) error {
	hooks, err := c.ListHooks(ctx, owner, repo, token)
	if err != nil {
		return err
	}

	for _, hook := range hooks {
		if hook.Config.URL == endpointURL {
			log.Info().
				Str("repo", owner+"/"+repo).
				Int64("hook_id", hook.ID).
				Msg("Webhook already installed, skipping")
			return nil
		}
	}

	apiURL := fmt.Sprintf("%s/repos/%s/%s/hooks", c.baseURL, owner, repo)
	payload := hookRequest{
		Name:   "web",
		Active: true,
		Events: []string{"pull_request"},
		Config: HookConfig{
			URL:         endpointURL,
			ContentType: "json",
			Secret:      secret,
		},
	}

	if err := c.postJSON(ctx, apiURL, token, payload); err != nil {
		return fmt.Errorf("failed to create webhook: %w", err)
	}

	log.Info().Str("repo", owner+"/"+repo).Msg("Webhook installed")
	return nil
}
