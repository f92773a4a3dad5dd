package storage

import (
	"context"
	"time"
)

// Package represents an installed package. A record exists only for
// packages whose publish step completed.
type Package struct {
	Name        string    // Package name, unique in the managed tree
	Repo        string    // Repository identifier (owner/repo)
	Version     string    // Installed version (tag name)
	Platform    string    // Platform key the asset was resolved for
	Exe         string    // Absolute path of the published executable
	Symlinks    []string  // Symlink names owned in the bin directory
	Files       []string  // Files owned under the app directory, relative
	Provenance  string    // local, bucket:<id>, or repo:<owner/repo>
	InstalledAt time.Time // When the package was first installed
	UpdatedAt   time.Time // When the package was last updated
}

// Bucket is the record of a registered bucket. Position preserves
// registration order, which decides merge precedence.
type Bucket struct {
	ID          string    // Bucket id, unique
	URL         string    // Source URL of the bucket manifest
	Position    int       // Registration order, ascending
	RefreshedAt time.Time // When the cached manifest was last fetched
}

// Storage defines the interface for the on-disk state index.
type Storage interface {
	// Initialize initializes the storage (e.g., creates tables)
	Initialize(ctx context.Context) error

	// AddPackage adds a new package record
	AddPackage(ctx context.Context, pkg *Package) error

	// GetPackage gets a package by name; nil when absent
	GetPackage(ctx context.Context, name string) (*Package, error)

	// ListPackages lists all installed packages
	ListPackages(ctx context.Context) ([]*Package, error)

	// UpdatePackage rewrites an existing package record
	UpdatePackage(ctx context.Context, pkg *Package) error

	// DeletePackage deletes a package record
	DeletePackage(ctx context.Context, name string) error

	// AddBucket adds a new bucket record at the end of the order
	AddBucket(ctx context.Context, b *Bucket) error

	// GetBucket gets a bucket by id; nil when absent
	GetBucket(ctx context.Context, id string) (*Bucket, error)

	// ListBuckets lists buckets in registration order
	ListBuckets(ctx context.Context) ([]*Bucket, error)

	// TouchBucket updates a bucket's refreshed-at timestamp
	TouchBucket(ctx context.Context, id string, refreshedAt time.Time) error

	// DeleteBucket deletes a bucket record
	DeleteBucket(ctx context.Context, id string) error

	// Close closes the storage
	Close() error
}
