package codehost

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Repo is a public repository belonging to a code-hosting handle.
type Repo struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// Client looks up public repositories for a handle. Lookups are
// best-effort for callers: this client reports failures, the caller
// decides whether to degrade.
type Client interface {
	GetRepos(ctx context.Context, handle string) ([]Repo, error)
}

type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *HTTPClient) GetRepos(ctx context.Context, handle string) ([]Repo, error) {
	reqURL := fmt.Sprintf("%s/users/%s/repos", c.baseURL, url.PathEscape(handle))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build repo request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("repo request for %s failed: %w", handle, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("repo request for %s returned status %d", handle, resp.StatusCode)
	}

	var repos []Repo
	if err := json.NewDecoder(resp.Body).Decode(&repos); err != nil {
		return nil, fmt.Errorf("failed to decode repo list for %s: %w", handle, err)
	}
	return repos, nil
}
