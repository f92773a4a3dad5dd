package manifest

import (
	"fmt"
	"sort"
	"strings"
)

// ErrPackageNotFound is returned by Lookup for names absent from the
// merged view.
var ErrPackageNotFound = fmt.Errorf("package not found")

// Entry is a package together with the provenance of the manifest that
// won the merge for its name.
type Entry struct {
	Package
	Source string
}

// Merged is the precedence-ordered, read-only view over the local
// manifest and every registered bucket.
type Merged struct {
	entries map[string]Entry
}

// Merge builds the merged view. On a name collision the local manifest
// always wins; among buckets the earliest-registered one wins. Nil
// manifests are skipped so that one unloadable source never takes down
// the view.
func Merge(local *Manifest, buckets ...*Manifest) *Merged {
	m := &Merged{entries: make(map[string]Entry)}

	add := func(src *Manifest) {
		if src == nil {
			return
		}
		for _, pkg := range src.Packages {
			if _, taken := m.entries[pkg.Name]; taken {
				continue
			}
			m.entries[pkg.Name] = Entry{Package: pkg, Source: src.Source}
		}
	}

	add(local)
	for _, b := range buckets {
		add(b)
	}
	return m
}

// Lookup returns the winning entry for a package name.
func (m *Merged) Lookup(name string) (Entry, error) {
	e, ok := m.entries[name]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrPackageNotFound, name)
	}
	return e, nil
}

// Match returns every entry whose name matches the glob pattern, sorted
// by name. A pattern of the form owner/* matches on the repository
// identifier instead. An empty result is not an error.
func (m *Merged) Match(pattern string) []Entry {
	byRepo := strings.Contains(pattern, "/")

	var out []Entry
	for _, e := range m.entries {
		subject := e.Name
		if byRepo {
			subject = e.Repo
		}
		if Glob(subject, pattern) {
			out = append(out, e)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// All returns every entry in the view, sorted by name.
func (m *Merged) All() []Entry {
	return m.Match("*")
}

// Len returns the number of distinct package names in the view.
func (m *Merged) Len() int { return len(m.entries) }
