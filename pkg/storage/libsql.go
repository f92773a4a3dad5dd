package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// LibSQL implements the Storage interface using libsql
type LibSQL struct {
	db *sql.DB
}

// NewLibSQL creates a new LibSQL storage
func NewLibSQL(url string) (*LibSQL, error) {
	db, err := sql.Open("libsql", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &LibSQL{db: db}, nil
}

// Initialize creates the database schema
func (s *LibSQL) Initialize(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS packages (
			name TEXT NOT NULL PRIMARY KEY,
			repo TEXT NOT NULL,
			version TEXT NOT NULL,
			platform TEXT NOT NULL,
			exe TEXT NOT NULL,
			symlinks TEXT NOT NULL,
			files TEXT NOT NULL,
			provenance TEXT NOT NULL,
			installed_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create packages table: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS buckets (
			id TEXT NOT NULL PRIMARY KEY,
			url TEXT NOT NULL,
			position INTEGER NOT NULL,
			refreshed_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create buckets table: %w", err)
	}

	return nil
}

// AddPackage adds a new package record
func (s *LibSQL) AddPackage(ctx context.Context, pkg *Package) error {
	symlinks, files, err := encodeLists(pkg)
	if err != nil {
		return err
	}

	now := time.Now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO packages (
			name, repo, version, platform, exe, symlinks, files,
			provenance, installed_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		pkg.Name, pkg.Repo, pkg.Version, pkg.Platform, pkg.Exe, symlinks, files,
		pkg.Provenance, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert package: %w", err)
	}

	pkg.InstalledAt = now
	pkg.UpdatedAt = now
	return nil
}

// GetPackage gets a package by name
func (s *LibSQL) GetPackage(ctx context.Context, name string) (*Package, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT name, repo, version, platform, exe, symlinks, files,
			   provenance, installed_at, updated_at
		FROM packages
		WHERE name = ?
	`, name)

	pkg, err := scanPackage(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get package: %w", err)
	}
	return pkg, nil
}

// ListPackages lists all installed packages
func (s *LibSQL) ListPackages(ctx context.Context) ([]*Package, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, repo, version, platform, exe, symlinks, files,
			   provenance, installed_at, updated_at
		FROM packages
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}
	defer rows.Close()

	var packages []*Package
	for rows.Next() {
		pkg, err := scanPackage(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan package: %w", err)
		}
		packages = append(packages, pkg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate packages: %w", err)
	}

	return packages, nil
}

// UpdatePackage rewrites an existing package record
func (s *LibSQL) UpdatePackage(ctx context.Context, pkg *Package) error {
	symlinks, files, err := encodeLists(pkg)
	if err != nil {
		return err
	}

	now := time.Now()
	result, err := s.db.ExecContext(ctx, `
		UPDATE packages
		SET repo = ?, version = ?, platform = ?, exe = ?, symlinks = ?,
			files = ?, provenance = ?, updated_at = ?
		WHERE name = ?
	`,
		pkg.Repo, pkg.Version, pkg.Platform, pkg.Exe, symlinks,
		files, pkg.Provenance, now,
		pkg.Name,
	)
	if err != nil {
		return fmt.Errorf("failed to update package: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("package not found: %s", pkg.Name)
	}

	pkg.UpdatedAt = now
	return nil
}

// DeletePackage deletes a package record
func (s *LibSQL) DeletePackage(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM packages
		WHERE name = ?
	`, name)
	if err != nil {
		return fmt.Errorf("failed to delete package: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("package not found: %s", name)
	}

	return nil
}

// AddBucket adds a new bucket record at the end of the order
func (s *LibSQL) AddBucket(ctx context.Context, b *Bucket) error {
	var pos sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(position) FROM buckets`).Scan(&pos); err != nil {
		return fmt.Errorf("failed to determine bucket position: %w", err)
	}
	b.Position = int(pos.Int64) + 1

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO buckets (id, url, position, refreshed_at)
		VALUES (?, ?, ?, ?)
	`, b.ID, b.URL, b.Position, b.RefreshedAt)
	if err != nil {
		return fmt.Errorf("failed to insert bucket: %w", err)
	}
	return nil
}

// GetBucket gets a bucket by id
func (s *LibSQL) GetBucket(ctx context.Context, id string) (*Bucket, error) {
	b := &Bucket{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, url, position, refreshed_at
		FROM buckets
		WHERE id = ?
	`, id).Scan(&b.ID, &b.URL, &b.Position, &b.RefreshedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}
	return b, nil
}

// ListBuckets lists buckets in registration order
func (s *LibSQL) ListBuckets(ctx context.Context) ([]*Bucket, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, position, refreshed_at
		FROM buckets
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}
	defer rows.Close()

	var buckets []*Bucket
	for rows.Next() {
		b := &Bucket{}
		if err := rows.Scan(&b.ID, &b.URL, &b.Position, &b.RefreshedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bucket: %w", err)
		}
		buckets = append(buckets, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate buckets: %w", err)
	}

	return buckets, nil
}

// TouchBucket updates a bucket's refreshed-at timestamp
func (s *LibSQL) TouchBucket(ctx context.Context, id string, refreshedAt time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE buckets SET refreshed_at = ? WHERE id = ?
	`, refreshedAt, id)
	if err != nil {
		return fmt.Errorf("failed to touch bucket: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("bucket not found: %s", id)
	}
	return nil
}

// DeleteBucket deletes a bucket record
func (s *LibSQL) DeleteBucket(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM buckets WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete bucket: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("bucket not found: %s", id)
	}
	return nil
}

// Close closes the database connection
func (s *LibSQL) Close() error {
	return s.db.Close()
}

func encodeLists(pkg *Package) (symlinks, files string, err error) {
	sl, err := json.Marshal(pkg.Symlinks)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode symlinks: %w", err)
	}
	fl, err := json.Marshal(pkg.Files)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode files: %w", err)
	}
	return string(sl), string(fl), nil
}

func scanPackage(scan func(...any) error) (*Package, error) {
	pkg := &Package{}
	var symlinks, files string
	err := scan(
		&pkg.Name, &pkg.Repo, &pkg.Version, &pkg.Platform, &pkg.Exe,
		&symlinks, &files, &pkg.Provenance, &pkg.InstalledAt, &pkg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(symlinks), &pkg.Symlinks); err != nil {
		return nil, fmt.Errorf("failed to decode symlinks: %w", err)
	}
	if err := json.Unmarshal([]byte(files), &pkg.Files); err != nil {
		return nil, fmt.Errorf("failed to decode files: %w", err)
	}
	return pkg, nil
}
