package resolver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sorenkel/relget/pkg/github"
	"github.com/sorenkel/relget/pkg/manifest"
	"github.com/sorenkel/relget/pkg/platform"
)

// AssetNotFoundError reports that no release asset matches the platform.
// It carries the full asset-name list for diagnosis.
type AssetNotFoundError struct {
	Platform string
	Assets   []string
}

func (e *AssetNotFoundError) Error() string {
	if len(e.Assets) == 0 {
		return fmt.Sprintf("no asset found for platform %s (no assets available)", e.Platform)
	}
	return fmt.Sprintf("no asset found for platform %s (available: %s)",
		e.Platform, strings.Join(e.Assets, ", "))
}

// Resolution is the outcome of resolving a package for a platform.
// Version is empty when the manifest pins an asset without naming a tag.
type Resolution struct {
	Ref     manifest.AssetRef
	Version string
}

// Resolver selects the release asset for a package and platform.
// Resolution is deterministic: the same manifest or release snapshot and
// platform key always yield the same asset.
type Resolver struct {
	gh github.Client
}

// New creates a resolver backed by the given GitHub client.
func New(gh github.Client) *Resolver {
	return &Resolver{gh: gh}
}

// Resolve picks the asset for pkg on the given platform. Entries with a
// platform map are matched against the key's fallback candidates; entries
// without one are matched against the repository's latest release assets
// by name pattern.
func (r *Resolver) Resolve(ctx context.Context, pkg manifest.Package, key platform.Key) (Resolution, error) {
	if len(pkg.Platforms) > 0 {
		return resolveFromMap(pkg, key)
	}
	return r.resolveFromRelease(ctx, pkg, key)
}

func resolveFromMap(pkg manifest.Package, key platform.Key) (Resolution, error) {
	for _, candidate := range key.Candidates() {
		if ref, ok := pkg.Platforms[candidate]; ok {
			if ref.Name == "" {
				ref.Name = ref.URL[strings.LastIndex(ref.URL, "/")+1:]
			}
			return Resolution{Ref: ref}, nil
		}
	}

	declared := make([]string, 0, len(pkg.Platforms))
	for k := range pkg.Platforms {
		declared = append(declared, k)
	}
	sort.Strings(declared)
	return Resolution{}, &AssetNotFoundError{Platform: key.String(), Assets: declared}
}

func (r *Resolver) resolveFromRelease(ctx context.Context, pkg manifest.Package, key platform.Key) (Resolution, error) {
	release, err := r.gh.GetLatestRelease(ctx, pkg.Owner(), pkg.RepoName())
	if err != nil {
		return Resolution{}, err
	}

	if asset := matchAsset(release.Assets, key); asset != nil {
		return Resolution{
			Ref: manifest.AssetRef{
				URL:  asset.DownloadURL,
				Name: asset.Name,
			},
			Version: release.TagName,
		}, nil
	}

	names := make([]string, len(release.Assets))
	for i, a := range release.Assets {
		names[i] = a.Name
	}
	return Resolution{}, &AssetNotFoundError{Platform: key.String(), Assets: names}
}

// matchAsset pattern-matches release asset names case-insensitively,
// trying libc variant qualifiers most-specific first and stopping at the
// first hit. Checksum, signature, and source companions never match.
func matchAsset(assets []github.Asset, key platform.Key) *github.Asset {
	osAliases := platform.OSAliases(key.OS)
	archAliases := platform.ArchAliases(key.Arch)

	for _, variant := range key.VariantPreference() {
		for i := range assets {
			name := strings.ToLower(assets[i].Name)
			if skipAsset(name) {
				continue
			}
			if !containsAny(name, osAliases) || !containsAny(name, archAliases) {
				continue
			}
			if variant != "" && !strings.Contains(name, variant) {
				continue
			}
			return &assets[i]
		}
	}
	return nil
}

var skipSuffixes = []string{
	".sha256", ".sha512", ".sha256sum", ".md5",
	".sig", ".asc", ".minisig", ".pem", ".sbom", ".txt",
}

func skipAsset(name string) bool {
	for _, suffix := range skipSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return strings.Contains(name, "checksum") ||
		strings.Contains(name, "src") ||
		strings.Contains(name, "source")
}

func containsAny(name string, tokens []string) bool {
	for _, tok := range tokens {
		if strings.Contains(name, tok) {
			return true
		}
	}
	return false
}
