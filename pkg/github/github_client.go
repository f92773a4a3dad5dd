package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	gh "github.com/google/go-github/v57/github"
)

// client implements the Client interface on top of the GitHub API client
// plus a plain HTTP client for raw payloads.
type client struct {
	ghClient   *gh.Client
	httpClient *http.Client
	token      string
}

// NewClient creates a new GitHub client. The token is optional and only
// raises rate limits / grants access to private repositories.
func NewClient(token string) Client {
	hc := &http.Client{Timeout: 60 * time.Second}
	ghc := gh.NewClient(hc)
	if token != "" {
		ghc = ghc.WithAuthToken(token)
	}
	return &client{
		ghClient:   ghc,
		httpClient: hc,
		token:      token,
	}
}

// GetLatestRelease gets the latest release for a repository.
func (c *client) GetLatestRelease(ctx context.Context, owner, repo string) (*Release, error) {
	rel, _, err := c.ghClient.Repositories.GetLatestRelease(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest release for %s/%s: %w", owner, repo, err)
	}

	out := &Release{
		TagName: rel.GetTagName(),
		Name:    rel.GetName(),
	}
	if ts := rel.GetPublishedAt(); !ts.IsZero() {
		out.PublishedAt = ts.Time
	}
	for _, a := range rel.Assets {
		out.Assets = append(out.Assets, Asset{
			Name:        a.GetName(),
			Size:        int64(a.GetSize()),
			DownloadURL: a.GetBrowserDownloadURL(),
		})
	}
	return out, nil
}

// DownloadAsset downloads the bytes behind url to destPath.
func (c *client) DownloadAsset(ctx context.Context, url, destPath string) error {
	resp, err := c.get(ctx, url, "application/octet-stream")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("failed to write %s: %w", destPath, err)
	}
	return nil
}

// GetJSON fetches url and decodes the response body into v.
func (c *client) GetJSON(ctx context.Context, url string, v any) error {
	resp, err := c.get(ctx, url, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", url, err)
	}
	return nil
}

func (c *client) get(ctx context.Context, url, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", accept)
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to fetch %s: %s", url, resp.Status)
	}
	return resp, nil
}
