package manifest

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// SourceLocal is the provenance tag for the user's own manifest.
const SourceLocal = "local"

// AssetRef points at one downloadable release artifact.
type AssetRef struct {
	URL    string `json:"url"`
	Name   string `json:"name,omitempty"`
	Format string `json:"format,omitempty"`
	SHA256 string `json:"sha256,omitempty"`
}

// Package is one entry in a manifest. Packages with an empty platform map
// are "install from repository" entries: the asset is picked from the
// repository's latest release instead.
type Package struct {
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Repo        string              `json:"repository"`
	Platforms   map[string]AssetRef `json:"platforms,omitempty"`
}

// Owner returns the owner half of the repository identifier.
func (p Package) Owner() string {
	owner, _, _ := strings.Cut(p.Repo, "/")
	return owner
}

// RepoName returns the repository half of the repository identifier.
func (p Package) RepoName() string {
	_, repo, _ := strings.Cut(p.Repo, "/")
	return repo
}

// Manifest is an ordered collection of packages plus its provenance.
type Manifest struct {
	Packages []Package `json:"packages"`

	// Source is "local" or "bucket:<id>". Assigned by the loader, not
	// part of the wire format.
	Source    string    `json:"-"`
	FetchedAt time.Time `json:"-"`
}

// ParseError reports that one manifest could not be decoded. It aborts
// loading only that manifest, never the whole merged view.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing manifest %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse decodes a manifest payload, rejecting unknown fields and entries
// without a name or repository.
func Parse(r io.Reader, source string) (*Manifest, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, &ParseError{Source: source, Err: err}
	}
	for i, pkg := range m.Packages {
		if pkg.Name == "" {
			return nil, &ParseError{Source: source, Err: fmt.Errorf("package %d: missing name", i)}
		}
		if pkg.Repo == "" {
			return nil, &ParseError{Source: source, Err: fmt.Errorf("package %q: missing repository", pkg.Name)}
		}
	}

	m.Source = source
	m.FetchedAt = time.Now()
	return &m, nil
}

// ParseBytes is Parse over an in-memory payload.
func ParseBytes(data []byte, source string) (*Manifest, error) {
	return Parse(strings.NewReader(string(data)), source)
}
