package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/sorenkel/relget/pkg/github"
	"github.com/sorenkel/relget/pkg/manifest"
	"github.com/sorenkel/relget/pkg/platform"
)

// mockGitHubClient implements github.Client for testing
type mockGitHubClient struct {
	latestRelease       *github.Release
	getLatestReleaseErr error
}

func (m *mockGitHubClient) GetLatestRelease(ctx context.Context, owner, repo string) (*github.Release, error) {
	if m.getLatestReleaseErr != nil {
		return nil, m.getLatestReleaseErr
	}
	return m.latestRelease, nil
}

func (m *mockGitHubClient) DownloadAsset(ctx context.Context, url, destPath string) error {
	return nil
}

func (m *mockGitHubClient) GetJSON(ctx context.Context, url string, v any) error {
	return nil
}

func TestResolveExactMatch(t *testing.T) {
	pkg := manifest.Package{
		Name: "ripgrep",
		Repo: "BurntSushi/ripgrep",
		Platforms: map[string]manifest.AssetRef{
			"linux-x86_64-musl": {URL: "https://example.com/rg-linux-x86_64-musl.tar.gz"},
			"linux-x86_64-gnu":  {URL: "https://example.com/rg-linux-x86_64-gnu.tar.gz"},
			"macos-aarch64":     {URL: "https://example.com/rg-macos-aarch64.tar.gz"},
		},
	}

	tests := []struct {
		name string
		key  platform.Key
		want string
	}{
		{
			name: "exact musl match without fallback",
			key:  platform.Key{OS: "linux", Arch: "x86_64", Variant: "musl"},
			want: "https://example.com/rg-linux-x86_64-musl.tar.gz",
		},
		{
			name: "exact gnu match without fallback",
			key:  platform.Key{OS: "linux", Arch: "x86_64", Variant: "gnu"},
			want: "https://example.com/rg-linux-x86_64-gnu.tar.gz",
		},
		{
			name: "macos exact",
			key:  platform.Key{OS: "macos", Arch: "aarch64"},
			want: "https://example.com/rg-macos-aarch64.tar.gz",
		},
	}

	r := New(&mockGitHubClient{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Resolve(context.Background(), pkg, tt.key)
			if err != nil {
				t.Fatalf("Resolve returned error: %v", err)
			}
			if res.Ref.URL != tt.want {
				t.Errorf("Resolve URL = %q, want %q", res.Ref.URL, tt.want)
			}
		})
	}
}

func TestResolveVariantFallback(t *testing.T) {
	// Entry declares only gnu; a musl host resolves it through the
	// variant-stripped then variant-preference fallbacks.
	pkg := manifest.Package{
		Name: "tool",
		Repo: "owner/tool",
		Platforms: map[string]manifest.AssetRef{
			"linux-x86_64-gnu": {URL: "https://example.com/tool-gnu.tar.gz"},
		},
	}

	key := platform.Key{OS: "linux", Arch: "x86_64", Variant: "musl"}
	res, err := New(&mockGitHubClient{}).Resolve(context.Background(), pkg, key)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if res.Ref.URL != "https://example.com/tool-gnu.tar.gz" {
		t.Errorf("Resolve URL = %q", res.Ref.URL)
	}
}

func TestResolveVariantStripped(t *testing.T) {
	pkg := manifest.Package{
		Name: "tool",
		Repo: "owner/tool",
		Platforms: map[string]manifest.AssetRef{
			"linux-x86_64": {URL: "https://example.com/tool.tar.gz"},
		},
	}

	key := platform.Key{OS: "linux", Arch: "x86_64", Variant: "musl"}
	res, err := New(&mockGitHubClient{}).Resolve(context.Background(), pkg, key)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if res.Ref.URL != "https://example.com/tool.tar.gz" {
		t.Errorf("Resolve URL = %q", res.Ref.URL)
	}
}

func TestResolveNoMatchListsPlatforms(t *testing.T) {
	pkg := manifest.Package{
		Name: "tool",
		Repo: "owner/tool",
		Platforms: map[string]manifest.AssetRef{
			"windows-x86_64": {URL: "https://example.com/tool.zip"},
		},
	}

	key := platform.Key{OS: "linux", Arch: "aarch64", Variant: "gnu"}
	_, err := New(&mockGitHubClient{}).Resolve(context.Background(), pkg, key)

	var nf *AssetNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Got %v, want *AssetNotFoundError", err)
	}
	if nf.Platform != "linux-aarch64-gnu" {
		t.Errorf("Platform = %q", nf.Platform)
	}
	if len(nf.Assets) != 1 || nf.Assets[0] != "windows-x86_64" {
		t.Errorf("Assets = %v", nf.Assets)
	}
}

func TestResolveFromRelease(t *testing.T) {
	release := &github.Release{
		TagName: "v14.1.0",
		Assets: []github.Asset{
			{Name: "rg-14.1.0-x86_64-pc-windows-msvc.zip", DownloadURL: "https://dl/win"},
			{Name: "rg-14.1.0-x86_64-unknown-linux-gnu.tar.gz", DownloadURL: "https://dl/gnu"},
			{Name: "rg-14.1.0-x86_64-unknown-linux-musl.tar.gz", DownloadURL: "https://dl/musl"},
			{Name: "rg-14.1.0-x86_64-unknown-linux-musl.tar.gz.sha256", DownloadURL: "https://dl/musl.sha256"},
			{Name: "rg-14.1.0-aarch64-apple-darwin.tar.gz", DownloadURL: "https://dl/mac"},
		},
	}
	repoOnly := manifest.Package{Name: "ripgrep", Repo: "BurntSushi/ripgrep"}

	tests := []struct {
		name        string
		key         platform.Key
		wantURL     string
		wantVersion string
	}{
		{
			name:        "linux musl host prefers musl build",
			key:         platform.Key{OS: "linux", Arch: "x86_64", Variant: "musl"},
			wantURL:     "https://dl/musl",
			wantVersion: "v14.1.0",
		},
		{
			name:        "linux gnu host prefers gnu build",
			key:         platform.Key{OS: "linux", Arch: "x86_64", Variant: "gnu"},
			wantURL:     "https://dl/gnu",
			wantVersion: "v14.1.0",
		},
		{
			name:        "macos matches darwin alias and arm64 arch",
			key:         platform.Key{OS: "macos", Arch: "aarch64"},
			wantURL:     "https://dl/mac",
			wantVersion: "v14.1.0",
		},
		{
			name:        "windows matches win alias",
			key:         platform.Key{OS: "windows", Arch: "x86_64"},
			wantURL:     "https://dl/win",
			wantVersion: "v14.1.0",
		},
	}

	r := New(&mockGitHubClient{latestRelease: release})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Resolve(context.Background(), repoOnly, tt.key)
			if err != nil {
				t.Fatalf("Resolve returned error: %v", err)
			}
			if res.Ref.URL != tt.wantURL {
				t.Errorf("URL = %q, want %q", res.Ref.URL, tt.wantURL)
			}
			if res.Version != tt.wantVersion {
				t.Errorf("Version = %q, want %q", res.Version, tt.wantVersion)
			}
		})
	}
}

func TestResolveFromReleaseSkipsCompanions(t *testing.T) {
	release := &github.Release{
		TagName: "v1.0.0",
		Assets: []github.Asset{
			{Name: "checksums-linux-x86_64.txt", DownloadURL: "https://dl/sums"},
			{Name: "tool-linux-x86_64.tar.gz.asc", DownloadURL: "https://dl/asc"},
			{Name: "tool-src-linux-x86_64.tar.gz", DownloadURL: "https://dl/src"},
			{Name: "tool-linux-x86_64.tar.gz", DownloadURL: "https://dl/good"},
		},
	}
	pkg := manifest.Package{Name: "tool", Repo: "owner/tool"}
	key := platform.Key{OS: "linux", Arch: "x86_64", Variant: "gnu"}

	res, err := New(&mockGitHubClient{latestRelease: release}).Resolve(context.Background(), pkg, key)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if res.Ref.URL != "https://dl/good" {
		t.Errorf("URL = %q, want the real archive", res.Ref.URL)
	}
}

func TestResolveFromReleaseNoMatch(t *testing.T) {
	release := &github.Release{
		TagName: "v1.0.0",
		Assets: []github.Asset{
			{Name: "tool-windows-amd64.zip"},
			{Name: "tool-darwin-amd64.tar.gz"},
		},
	}
	pkg := manifest.Package{Name: "tool", Repo: "owner/tool"}
	key := platform.Key{OS: "linux", Arch: "aarch64", Variant: "gnu"}

	_, err := New(&mockGitHubClient{latestRelease: release}).Resolve(context.Background(), pkg, key)
	var nf *AssetNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Got %v, want *AssetNotFoundError", err)
	}
	if len(nf.Assets) != 2 {
		t.Errorf("Assets = %v, want both asset names", nf.Assets)
	}
}

func TestResolveReleaseFetchError(t *testing.T) {
	wantErr := errors.New("rate limited")
	pkg := manifest.Package{Name: "tool", Repo: "owner/tool"}
	key := platform.Key{OS: "linux", Arch: "x86_64", Variant: "gnu"}

	_, err := New(&mockGitHubClient{getLatestReleaseErr: wantErr}).Resolve(context.Background(), pkg, key)
	if !errors.Is(err, wantErr) {
		t.Errorf("Resolve error = %v, want wrapped %v", err, wantErr)
	}
}
