// Package bucket manages registered manifest buckets and their on-disk
// cache. Bucket records (id, url, registration order, refresh time) live
// in the state store; the manifest payload itself is cached as
// cache/buckets/<id>.json and refreshed on a TTL.
package bucket

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sorenkel/relget/pkg/config"
	"github.com/sorenkel/relget/pkg/github"
	"github.com/sorenkel/relget/pkg/manifest"
	"github.com/sorenkel/relget/pkg/storage"
)

// DefaultTTL is how long a cached bucket manifest stays fresh.
const DefaultTTL = 24 * time.Hour

var (
	// ErrBucketExists is returned when registering an id already in use.
	ErrBucketExists = fmt.Errorf("bucket already exists")

	// ErrBucketNotFound is returned for operations on unknown bucket ids.
	ErrBucketNotFound = fmt.Errorf("bucket not found")
)

// FetchError reports that a bucket's manifest could not be fetched or
// parsed. A cached copy, if any, stays untouched.
type FetchError struct {
	ID  string
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch bucket %s from %s: %v", e.ID, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Status is the per-bucket outcome of a bulk refresh.
type Status struct {
	ID  string
	Err error
}

// Cache is the bucket registry plus its manifest file cache.
type Cache struct {
	dir   string
	store storage.Storage
	gh    github.Client
	ttl   time.Duration

	// now is a seam for TTL tests.
	now func() time.Time
}

// NewCache creates a bucket cache over the managed tree.
func NewCache(dirs *config.Directories, store storage.Storage, gh github.Client) *Cache {
	return &Cache{
		dir:   dirs.Buckets,
		store: store,
		gh:    gh,
		ttl:   DefaultTTL,
		now:   time.Now,
	}
}

// Add registers a bucket and fetches its manifest immediately, so a bad
// URL fails at registration time rather than at first use.
func (c *Cache) Add(ctx context.Context, id, url string) (*manifest.Manifest, error) {
	if id == "" || strings.ContainsAny(id, "/\\ ") {
		return nil, fmt.Errorf("invalid bucket id: %q", id)
	}

	existing, err := c.store.GetBucket(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket record: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrBucketExists, id)
	}

	resolved := resolveURL(url)
	m, err := c.fetch(ctx, id, resolved)
	if err != nil {
		return nil, err
	}

	if err := c.store.AddBucket(ctx, &storage.Bucket{
		ID:          id,
		URL:         resolved,
		RefreshedAt: c.now(),
	}); err != nil {
		return nil, fmt.Errorf("failed to record bucket: %w", err)
	}
	return m, nil
}

// Refresh refetches one bucket's manifest. The cached copy is replaced
// only after the new payload parsed successfully.
func (c *Cache) Refresh(ctx context.Context, id string) (*manifest.Manifest, error) {
	record, err := c.record(ctx, id)
	if err != nil {
		return nil, err
	}

	m, err := c.fetch(ctx, id, record.URL)
	if err != nil {
		return nil, err
	}
	if err := c.store.TouchBucket(ctx, id, c.now()); err != nil {
		return nil, fmt.Errorf("failed to record refresh: %w", err)
	}
	return m, nil
}

// RefreshAll refetches every registered bucket. One bucket's failure
// never aborts its siblings.
func (c *Cache) RefreshAll(ctx context.Context) ([]Status, error) {
	records, err := c.store.ListBuckets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}

	statuses := make([]Status, 0, len(records))
	for _, record := range records {
		_, err := c.Refresh(ctx, record.ID)
		statuses = append(statuses, Status{ID: record.ID, Err: err})
	}
	return statuses, nil
}

// Get returns a bucket's manifest. A stale cache is refreshed first only
// when requireFresh is set; otherwise the stale copy is served as-is, so
// offline operation never waits on the network.
func (c *Cache) Get(ctx context.Context, id string, requireFresh bool) (*manifest.Manifest, error) {
	record, err := c.record(ctx, id)
	if err != nil {
		return nil, err
	}

	if requireFresh && c.now().Sub(record.RefreshedAt) > c.ttl {
		return c.Refresh(ctx, id)
	}

	m, err := c.loadCached(record)
	if err != nil {
		// Missing or unreadable cache file: refetch is the only way out.
		return c.Refresh(ctx, id)
	}
	return m, nil
}

// Remove deletes a bucket's record and its cached manifest. Installed
// packages that came from the bucket stay installed.
func (c *Cache) Remove(ctx context.Context, id string) error {
	if _, err := c.record(ctx, id); err != nil {
		return err
	}

	if err := os.Remove(c.cachePath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove cached manifest: %w", err)
	}
	if err := c.store.DeleteBucket(ctx, id); err != nil {
		return fmt.Errorf("failed to delete bucket record: %w", err)
	}
	return nil
}

// List returns the bucket records in registration order.
func (c *Cache) List(ctx context.Context) ([]*storage.Bucket, error) {
	return c.store.ListBuckets(ctx)
}

// Manifests loads every bucket's manifest in registration order. Buckets
// that cannot be loaded at all are skipped and reported in the statuses;
// the merged view is built from whatever loaded.
func (c *Cache) Manifests(ctx context.Context) ([]*manifest.Manifest, []Status, error) {
	records, err := c.store.ListBuckets(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list buckets: %w", err)
	}

	var manifests []*manifest.Manifest
	var problems []Status
	for _, record := range records {
		m, err := c.Get(ctx, record.ID, false)
		if err != nil {
			problems = append(problems, Status{ID: record.ID, Err: err})
			continue
		}
		manifests = append(manifests, m)
	}
	return manifests, problems, nil
}

func (c *Cache) record(ctx context.Context, id string) (*storage.Bucket, error) {
	record, err := c.store.GetBucket(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read bucket record: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("%w: %s", ErrBucketNotFound, id)
	}
	return record, nil
}

// fetch downloads and parses a bucket manifest, then atomically replaces
// the cached copy. The cache file never holds a payload that failed to
// parse.
func (c *Cache) fetch(ctx context.Context, id, url string) (*manifest.Manifest, error) {
	var raw json.RawMessage
	if err := c.gh.GetJSON(ctx, url, &raw); err != nil {
		return nil, &FetchError{ID: id, URL: url, Err: err}
	}
	m, err := manifest.ParseBytes(raw, "bucket:"+id)
	if err != nil {
		return nil, &FetchError{ID: id, URL: url, Err: err}
	}

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create bucket cache directory: %w", err)
	}
	tmp := c.cachePath(id) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return nil, fmt.Errorf("failed to stage cached manifest: %w", err)
	}
	if err := os.Rename(tmp, c.cachePath(id)); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("failed to publish cached manifest: %w", err)
	}
	return m, nil
}

func (c *Cache) loadCached(record *storage.Bucket) (*manifest.Manifest, error) {
	data, err := os.ReadFile(c.cachePath(record.ID))
	if err != nil {
		return nil, &FetchError{ID: record.ID, URL: record.URL, Err: err}
	}
	m, err := manifest.ParseBytes(data, "bucket:"+record.ID)
	if err != nil {
		return nil, &FetchError{ID: record.ID, URL: record.URL, Err: err}
	}
	m.FetchedAt = record.RefreshedAt
	return m, nil
}

func (c *Cache) cachePath(id string) string {
	return filepath.Join(c.dir, id+".json")
}

// resolveURL turns an owner/repo shorthand into the raw manifest URL on
// the repository's default branch. Full URLs pass through unchanged.
func resolveURL(url string) string {
	if strings.HasPrefix(url, "https://") || strings.HasPrefix(url, "http://") {
		return url
	}
	if repo, err := manifest.NormalizeRepo(url); err == nil {
		return "https://raw.githubusercontent.com/" + repo + "/main/manifest.json"
	}
	return url
}
