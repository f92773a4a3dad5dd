package manifest

import (
	"errors"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	payload := `{
		"packages": [
			{
				"name": "ripgrep",
				"description": "recursively search directories",
				"repository": "BurntSushi/ripgrep",
				"platforms": {
					"linux-x86_64-musl": {"url": "https://example.com/rg-musl.tar.gz"},
					"macos-aarch64": {"url": "https://example.com/rg-mac.tar.gz"}
				}
			},
			{
				"name": "fd",
				"repository": "sharkdp/fd"
			}
		]
	}`

	m, err := Parse(strings.NewReader(payload), SourceLocal)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	if len(m.Packages) != 2 {
		t.Fatalf("Got %d packages, want 2", len(m.Packages))
	}
	if m.Source != SourceLocal {
		t.Errorf("Source = %q, want %q", m.Source, SourceLocal)
	}

	rg := m.Packages[0]
	if rg.Name != "ripgrep" || rg.Repo != "BurntSushi/ripgrep" {
		t.Errorf("Unexpected first package: %+v", rg)
	}
	if rg.Owner() != "BurntSushi" || rg.RepoName() != "ripgrep" {
		t.Errorf("Owner/RepoName = %q/%q", rg.Owner(), rg.RepoName())
	}
	if got := rg.Platforms["linux-x86_64-musl"].URL; got != "https://example.com/rg-musl.tar.gz" {
		t.Errorf("Platform URL = %q", got)
	}

	// Repository-only entry keeps a nil platform map.
	if len(m.Packages[1].Platforms) != 0 {
		t.Errorf("fd should have no platform map, got %v", m.Packages[1].Platforms)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"invalid json", `{"packages": [`},
		{"unknown field", `{"packages": [], "extra": true}`},
		{"missing name", `{"packages": [{"repository": "a/b"}]}`},
		{"missing repository", `{"packages": [{"name": "x"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.payload), "bucket:main")
			if err == nil {
				t.Fatal("Parse succeeded, want error")
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("Got %T, want *ParseError", err)
			}
			if perr.Source != "bucket:main" {
				t.Errorf("ParseError.Source = %q", perr.Source)
			}
		})
	}
}

func TestParseSourceList(t *testing.T) {
	list := `# tools I always want
https://github.com/BurntSushi/ripgrep
github.com/sharkdp/fd

# formatted oddly
  sharkdp/bat
`

	m, err := ParseSourceList(strings.NewReader(list), SourceLocal)
	if err != nil {
		t.Fatalf("ParseSourceList returned error: %v", err)
	}

	want := []struct{ name, repo string }{
		{"ripgrep", "BurntSushi/ripgrep"},
		{"fd", "sharkdp/fd"},
		{"bat", "sharkdp/bat"},
	}
	if len(m.Packages) != len(want) {
		t.Fatalf("Got %d packages, want %d", len(m.Packages), len(want))
	}
	for i, w := range want {
		pkg := m.Packages[i]
		if pkg.Name != w.name || pkg.Repo != w.repo {
			t.Errorf("Package %d = %s (%s), want %s (%s)", i, pkg.Name, pkg.Repo, w.name, w.repo)
		}
		if pkg.Platforms != nil {
			t.Errorf("Package %d should have no platform map", i)
		}
	}
}

func TestParseSourceListBadLine(t *testing.T) {
	_, err := ParseSourceList(strings.NewReader("not-a-repo\n"), SourceLocal)
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Got %v, want *ParseError", err)
	}
}

func TestNormalizeRepo(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"owner/repo", "owner/repo", false},
		{"github.com/owner/repo", "owner/repo", false},
		{"https://github.com/owner/repo", "owner/repo", false},
		{"https://github.com/owner/repo.git", "owner/repo", false},
		{"http://github.com/owner/repo/", "owner/repo", false},
		{"justaname", "", true},
		{"a/b/c", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeRepo(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NormalizeRepo(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("NormalizeRepo(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsRepoRef(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"ripgrep", false},
		{"rip*", false},
		{"BurntSushi/ripgrep", true},
		{"github.com/BurntSushi/ripgrep", true},
		{"https://github.com/BurntSushi/ripgrep", true},
		{"BurntSushi/*", false},
	}
	for _, tt := range tests {
		if got := IsRepoRef(tt.in); got != tt.want {
			t.Errorf("IsRepoRef(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
