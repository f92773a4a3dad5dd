package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/sorenkel/relget/pkg/bucket"
	"github.com/sorenkel/relget/pkg/config"
	"github.com/sorenkel/relget/pkg/github"
	"github.com/sorenkel/relget/pkg/installer"
	"github.com/sorenkel/relget/pkg/manifest"
	"github.com/sorenkel/relget/pkg/platform"
	"github.com/sorenkel/relget/pkg/selector"
	"github.com/sorenkel/relget/pkg/storage"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
)

type app struct {
	dirs    *config.Directories
	store   storage.Storage
	gh      github.Client
	buckets *bucket.Cache
	mgr     *installer.Manager
	key     platform.Key
}

// loadView assembles the merged package view: the local JSON manifest,
// the legacy plain-text source list, then every bucket in registration
// order. A source that fails to load is reported and skipped; it never
// takes down the view.
func (a *app) loadView(ctx context.Context) *manifest.Merged {
	local := a.loadLocal()

	bucketManifests, problems, err := a.buckets.Manifests(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", yellow("warning:"), err)
	}
	for _, p := range problems {
		fmt.Fprintf(os.Stderr, "%s skipping bucket %s: %v\n", yellow("warning:"), p.ID, p.Err)
	}

	return manifest.Merge(local, bucketManifests...)
}

// loadLocal reads manifest.json and sources.txt into one local manifest.
// Entries from manifest.json take precedence over the source list.
func (a *app) loadLocal() *manifest.Manifest {
	local := &manifest.Manifest{Source: manifest.SourceLocal}

	if f, err := os.Open(a.dirs.LocalManifest()); err == nil {
		m, perr := manifest.Parse(f, manifest.SourceLocal)
		f.Close()
		if perr != nil {
			fmt.Fprintf(os.Stderr, "%s skipping local manifest: %v\n", yellow("warning:"), perr)
		} else {
			local.Packages = append(local.Packages, m.Packages...)
		}
	}

	if f, err := os.Open(a.dirs.SourceList()); err == nil {
		m, perr := manifest.ParseSourceList(f, manifest.SourceLocal)
		f.Close()
		if perr != nil {
			fmt.Fprintf(os.Stderr, "%s skipping source list: %v\n", yellow("warning:"), perr)
		} else {
			local.Packages = append(local.Packages, m.Packages...)
		}
	}

	if len(local.Packages) == 0 {
		return nil
	}
	return local
}

// resolveArgs turns add arguments into install entries. Direct owner/repo
// references bypass the view; everything else matches against it.
func (a *app) resolveArgs(args []string, view *manifest.Merged, assumeYes bool) ([]manifest.Entry, error) {
	var entries []manifest.Entry
	seen := make(map[string]bool)

	add := func(e manifest.Entry) {
		if !seen[e.Name] {
			seen[e.Name] = true
			entries = append(entries, e)
		}
	}

	for _, arg := range args {
		// A non-glob name that exists in the view wins over the repo
		// interpretation.
		if entry, err := view.Lookup(arg); err == nil {
			add(entry)
			continue
		}

		if manifest.IsRepoRef(arg) {
			repo, err := manifest.NormalizeRepo(arg)
			if err != nil {
				return nil, err
			}
			add(manifest.Entry{
				Package: manifest.Package{
					Name: repo[strings.LastIndex(repo, "/")+1:],
					Repo: repo,
				},
				Source: installer.ProvenanceRepo(repo),
			})
			continue
		}

		matches := view.Match(arg)
		if len(matches) == 0 && !strings.Contains(arg, "*") {
			// A plain name with no exact match falls back to a substring
			// search; several candidates open the selector.
			matches = substringMatches(view, arg)
		}
		switch {
		case len(matches) == 0:
			return nil, fmt.Errorf("%w: %s", manifest.ErrPackageNotFound, arg)
		case len(matches) == 1 || strings.Contains(arg, "*"):
			// A glob installs everything it matched.
			for _, m := range matches {
				add(m)
			}
		case assumeYes:
			return nil, fmt.Errorf("ambiguous package %q matches %d entries; be specific or use a pattern", arg, len(matches))
		default:
			picked, err := selector.SelectPackage(matches)
			if err != nil {
				return nil, err
			}
			add(*picked)
		}
	}

	return entries, nil
}

// substringMatches returns the view entries whose name contains the
// query, case-insensitively, sorted by name.
func substringMatches(view *manifest.Merged, query string) []manifest.Entry {
	q := strings.ToLower(query)
	var out []manifest.Entry
	for _, e := range view.All() {
		if strings.Contains(strings.ToLower(e.Name), q) {
			out = append(out, e)
		}
	}
	return out
}

func (a *app) handleAdd(ctx context.Context, args []string, assumeYes, dryRun bool) error {
	if len(args) == 0 {
		return fmt.Errorf("package name required")
	}

	view := a.loadView(ctx)
	entries, err := a.resolveArgs(args, view, assumeYes)
	if err != nil {
		return err
	}

	fmt.Printf("Installing %d package(s) for %s:\n", len(entries), bold(a.key.String()))
	for _, e := range entries {
		fmt.Printf("  %s %s\n", e.Name, dim("("+e.Source+")"))
	}

	if dryRun {
		fmt.Println(yellow("Dry run, nothing installed"))
		return nil
	}
	if !assumeYes && !confirm("Proceed?") {
		return fmt.Errorf("aborted")
	}

	results := a.mgr.InstallAll(ctx, entries)
	return reportResults(results, "Installed")
}

func (a *app) handleUpdate(ctx context.Context, args []string, dryRun bool) error {
	if dryRun {
		installed, err := a.mgr.ListInstalled(ctx)
		if err != nil {
			return err
		}
		if len(installed) == 0 {
			fmt.Println("No packages installed")
			return nil
		}
		for _, pkg := range installed {
			if len(args) > 0 && !contains(args, pkg.Name) {
				continue
			}
			fmt.Printf("Would update %s %s\n", pkg.Name, dim(pkg.Version))
		}
		return nil
	}

	view := a.loadView(ctx)
	results, err := a.mgr.UpdateAll(ctx, args, view)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No packages installed")
		return nil
	}
	return reportResults(results, "Updated")
}

func (a *app) handleRemove(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("package name required")
	}

	results := a.mgr.RemoveAll(ctx, args)
	return reportResults(results, "Removed")
}

func (a *app) handleList(ctx context.Context) error {
	packages, err := a.mgr.ListInstalled(ctx)
	if err != nil {
		return fmt.Errorf("failed to list packages: %w", err)
	}

	if len(packages) == 0 {
		fmt.Println("No packages installed")
		return nil
	}

	fmt.Println("Installed packages:")
	for _, pkg := range packages {
		fmt.Printf("  %s %s %s %s\n",
			bold(pkg.Name), pkg.Version, dim(pkg.Platform), dim("("+pkg.Provenance+")"))
	}
	return nil
}

func (a *app) handleSearch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("search pattern required")
	}

	view := a.loadView(ctx)
	matches := view.Match(args[0])
	if len(matches) == 0 {
		fmt.Printf("No packages match %q\n", args[0])
		return nil
	}

	installed := make(map[string]bool)
	if packages, err := a.mgr.ListInstalled(ctx); err == nil {
		for _, pkg := range packages {
			installed[pkg.Name] = true
		}
	}

	for _, e := range matches {
		mark := " "
		if installed[e.Name] {
			mark = green("*")
		}
		desc := e.Package.Description
		if desc == "" {
			desc = e.Repo
		}
		fmt.Printf("%s %s %s\n    %s\n", mark, bold(e.Name), dim("("+e.Source+")"), desc)
	}
	return nil
}

func (a *app) handleInfo(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("package name required")
	}
	name := args[0]

	view := a.loadView(ctx)
	entry, viewErr := view.Lookup(name)
	record, err := a.store.GetPackage(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to read package record: %w", err)
	}
	if viewErr != nil && record == nil {
		return fmt.Errorf("%w: %s", manifest.ErrPackageNotFound, name)
	}

	fmt.Printf("%s\n", bold(name))
	if viewErr == nil {
		fmt.Printf("  Repository:  %s\n", entry.Repo)
		if entry.Package.Description != "" {
			fmt.Printf("  Description: %s\n", entry.Package.Description)
		}
		fmt.Printf("  Source:      %s\n", entry.Source)
		if len(entry.Platforms) > 0 {
			keys := make([]string, 0, len(entry.Platforms))
			for k := range entry.Platforms {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Printf("  Platforms:   %s\n", strings.Join(keys, ", "))
		} else {
			fmt.Printf("  Platforms:   %s\n", dim("resolved from latest release"))
		}
	}
	if record != nil {
		fmt.Printf("  Installed:   %s %s\n", green(record.Version), dim("("+record.Platform+")"))
		fmt.Printf("  Executable:  %s\n", record.Exe)
		fmt.Printf("  Since:       %s\n", record.InstalledAt.Format("2006-01-02 15:04"))
	} else {
		fmt.Printf("  Installed:   %s\n", dim("no"))
	}
	return nil
}

func (a *app) handleBucket(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("bucket subcommand required (add, list, remove, refresh)")
	}

	switch args[0] {
	case "add":
		if len(args) < 3 {
			return fmt.Errorf("usage: relget bucket add <id> <url|owner/repo>")
		}
		m, err := a.buckets.Add(ctx, args[1], args[2])
		if err != nil {
			return err
		}
		fmt.Printf("%s bucket %s (%d packages)\n", green("Added"), bold(args[1]), len(m.Packages))
		return nil

	case "list":
		records, err := a.buckets.List(ctx)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No buckets registered")
			return nil
		}
		for _, b := range records {
			fmt.Printf("  %s %s %s\n", bold(b.ID), b.URL,
				dim("refreshed "+b.RefreshedAt.Format("2006-01-02 15:04")))
		}
		return nil

	case "remove":
		if len(args) < 2 {
			return fmt.Errorf("usage: relget bucket remove <id>")
		}
		if err := a.buckets.Remove(ctx, args[1]); err != nil {
			return err
		}
		fmt.Printf("%s bucket %s\n", green("Removed"), bold(args[1]))
		return nil

	case "refresh":
		if len(args) >= 2 {
			if _, err := a.buckets.Refresh(ctx, args[1]); err != nil {
				return err
			}
			fmt.Printf("%s bucket %s\n", green("Refreshed"), bold(args[1]))
			return nil
		}
		statuses, err := a.buckets.RefreshAll(ctx)
		if err != nil {
			return err
		}
		failed := 0
		for _, s := range statuses {
			if s.Err != nil {
				failed++
				fmt.Printf("%s %s: %v\n", red("✗"), s.ID, s.Err)
			} else {
				fmt.Printf("%s %s\n", green("✓"), s.ID)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d bucket(s) failed to refresh", failed)
		}
		return nil

	default:
		return fmt.Errorf("unknown bucket subcommand: %s", args[0])
	}
}

func handleConfigure(cfg *config.Config, args []string) error {
	if len(args) == 0 || args[0] == "show" {
		fmt.Printf("Root directory: %s\n", cfg.RootDir)
		if cfg.GitHubToken != "" {
			fmt.Println("GitHub token:   set")
		} else {
			fmt.Println("GitHub token:   not set")
		}
		return nil
	}

	switch args[0] {
	case "token":
		if len(args) < 2 {
			return fmt.Errorf("usage: relget configure token <token>")
		}
		cfg.GitHubToken = args[1]
	case "root":
		if len(args) < 2 {
			return fmt.Errorf("usage: relget configure root <path>")
		}
		cfg.RootDir = args[1]
	default:
		return fmt.Errorf("unknown configure subcommand: %s", args[0])
	}

	if err := cfg.Save(); err != nil {
		return err
	}
	fmt.Println(green("Configuration saved"))
	return nil
}

// reportResults prints one line per package and returns an error when
// any of them failed.
func reportResults(results []installer.Result, verb string) error {
	failed := 0
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
			fmt.Printf("%s %s: %v\n", red("✗"), r.Name, r.Err)
		case r.UpToDate:
			fmt.Printf("%s %s %s\n", yellow("="), r.Name, dim("already up to date"))
		default:
			version := ""
			if r.Pkg != nil && r.Pkg.Version != "" {
				version = " " + r.Pkg.Version
			}
			fmt.Printf("%s %s %s%s\n", green("✓"), verb, bold(r.Name), version)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d package(s) failed", failed, len(results))
	}
	return nil
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
