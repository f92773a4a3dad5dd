package github

import (
	"context"
	"time"
)

// Release represents a GitHub release.
type Release struct {
	TagName     string    // Tag name (e.g., "v1.0.0")
	Name        string    // Release name
	Assets      []Asset   // Release assets
	PublishedAt time.Time // When the release was published
}

// Asset represents a GitHub release asset.
type Asset struct {
	Name        string // Asset filename
	Size        int64  // Asset size in bytes
	DownloadURL string // URL to download the asset
}

// Client is the transport boundary of the core: release metadata, raw
// JSON payloads, and asset bytes. Retry policy belongs to callers.
type Client interface {
	// GetLatestRelease gets the latest release for a repository.
	GetLatestRelease(ctx context.Context, owner, repo string) (*Release, error)

	// DownloadAsset downloads the bytes behind url to destPath.
	DownloadAsset(ctx context.Context, url, destPath string) error

	// GetJSON fetches url and decodes the response body into v.
	GetJSON(ctx context.Context, url string, v any) error
}
