package manifest

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"
)

// ParseSourceList decodes the legacy plain-text source form: one GitHub
// repository per line, # comments and blank lines ignored. Each line
// becomes a repository-only package entry whose asset is resolved from
// the repository's latest release at install time.
func ParseSourceList(r io.Reader, source string) (*Manifest, error) {
	m := &Manifest{Source: source, FetchedAt: time.Now()}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		repo, err := NormalizeRepo(line)
		if err != nil {
			return nil, &ParseError{Source: source, Err: fmt.Errorf("line %d: %w", lineNo, err)}
		}

		m.Packages = append(m.Packages, Package{
			Name: repo[strings.LastIndex(repo, "/")+1:],
			Repo: repo,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Source: source, Err: err}
	}

	return m, nil
}

// NormalizeRepo reduces a repository reference to the owner/repo form.
// Accepted inputs: owner/repo, github.com/owner/repo, and the http(s)
// URL forms of the latter.
func NormalizeRepo(ref string) (string, error) {
	s := strings.TrimSpace(ref)
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "github.com/")
	s = strings.TrimSuffix(s, "/")
	s = strings.TrimSuffix(s, ".git")

	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("invalid repository reference: %s (expected owner/repo)", ref)
	}
	return parts[0] + "/" + parts[1], nil
}

// IsRepoRef reports whether an install argument names a repository
// directly rather than a package in the merged view.
func IsRepoRef(arg string) bool {
	if strings.HasPrefix(arg, "https://") || strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "github.com/") {
		return true
	}
	return strings.Count(arg, "/") == 1 && !strings.Contains(arg, "*")
}
