package installer

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/sorenkel/relget/pkg/config"
	"github.com/sorenkel/relget/pkg/github"
	"github.com/sorenkel/relget/pkg/manifest"
	"github.com/sorenkel/relget/pkg/platform"
	"github.com/sorenkel/relget/pkg/resolver"
	"github.com/sorenkel/relget/pkg/storage"
)

// installWorkers bounds the fan-out of bulk operations. Each package's
// download, extract, publish sequence stays internally sequential.
const installWorkers = 4

// ProvenanceRepo tags installs made straight from a repository rather
// than from a manifest entry.
func ProvenanceRepo(repo string) string { return "repo:" + repo }

// Result is the per-package outcome of a bulk operation. One package's
// failure never aborts its siblings.
type Result struct {
	Name     string
	Pkg      *storage.Package
	Err      error
	UpToDate bool
}

// Manager drives the install/update/remove lifecycle across the resolver,
// the installer, and the state store. State records are written only
// after publish succeeds.
type Manager struct {
	dirs  *config.Directories
	store storage.Storage
	gh    github.Client
	res   *resolver.Resolver
	inst  *Installer
	key   platform.Key
}

// NewManager wires a manager for the detected platform.
func NewManager(dirs *config.Directories, store storage.Storage, gh github.Client, key platform.Key) *Manager {
	return &Manager{
		dirs:  dirs,
		store: store,
		gh:    gh,
		res:   resolver.New(gh),
		inst:  New(dirs, gh),
		key:   key,
	}
}

// InstallAll installs every entry, fanning out across distinct packages.
func (m *Manager) InstallAll(ctx context.Context, entries []manifest.Entry) []Result {
	results := make([]Result, len(entries))

	g := &errgroup.Group{}
	g.SetLimit(installWorkers)
	for idx, entry := range entries {
		g.Go(func() error {
			pkg, err := m.installOne(ctx, entry)
			results[idx] = Result{Name: entry.Name, Pkg: pkg, Err: err}
			return nil
		})
	}
	g.Wait()

	return results
}

func (m *Manager) installOne(ctx context.Context, entry manifest.Entry) (*storage.Package, error) {
	res, err := m.res.Resolve(ctx, entry.Package, m.key)
	if err != nil {
		return nil, err
	}

	version := res.Version
	if version == "" {
		version = m.latestVersion(ctx, entry.Package)
	}

	installed, err := m.inst.Install(ctx, entry.Name, res.Ref)
	if err != nil {
		return nil, err
	}

	record := &storage.Package{
		Name:       entry.Name,
		Repo:       entry.Repo,
		Version:    version,
		Platform:   m.key.String(),
		Exe:        installed.Exe,
		Symlinks:   installed.Symlinks,
		Files:      installed.Files,
		Provenance: entry.Source,
	}

	existing, err := m.store.GetPackage(ctx, entry.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing package: %w", err)
	}
	if existing != nil {
		record.InstalledAt = existing.InstalledAt
		err = m.store.UpdatePackage(ctx, record)
	} else {
		err = m.store.AddPackage(ctx, record)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record install: %w", err)
	}

	return record, nil
}

// UpdateAll re-installs the named packages (or all installed packages
// when names is empty) from their recorded origin. Packages already at
// the latest known version are skipped. The error is non-nil only when
// the state store itself could not be read.
func (m *Manager) UpdateAll(ctx context.Context, names []string, view *manifest.Merged) ([]Result, error) {
	targets, missing, err := m.updateTargets(ctx, names)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(targets), len(targets)+len(missing))

	g := &errgroup.Group{}
	g.SetLimit(installWorkers)
	for idx, record := range targets {
		g.Go(func() error {
			results[idx] = m.updateOne(ctx, record, view)
			return nil
		})
	}
	g.Wait()

	for _, name := range missing {
		results = append(results, Result{Name: name, Err: fmt.Errorf("%w: %s", ErrNotInstalled, name)})
	}
	return results, nil
}

func (m *Manager) updateTargets(ctx context.Context, names []string) (targets []*storage.Package, missing []string, err error) {
	if len(names) == 0 {
		all, err := m.store.ListPackages(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list packages: %w", err)
		}
		return all, nil, nil
	}

	for _, name := range names {
		record, err := m.store.GetPackage(ctx, name)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read package record: %w", err)
		}
		if record == nil {
			missing = append(missing, name)
			continue
		}
		targets = append(targets, record)
	}
	return targets, missing, nil
}

func (m *Manager) updateOne(ctx context.Context, record *storage.Package, view *manifest.Merged) Result {
	entry, err := m.originEntry(record, view)
	if err != nil {
		return Result{Name: record.Name, Err: err}
	}

	if latest := m.latestVersion(ctx, entry.Package); latest != "" && latest == record.Version {
		return Result{Name: record.Name, Pkg: record, UpToDate: true}
	}

	pkg, err := m.installOne(ctx, entry)
	return Result{Name: record.Name, Pkg: pkg, Err: err}
}

// originEntry reconstructs the manifest entry a record came from: the
// merged view for manifest installs, the recorded repository for direct
// installs no longer present in any manifest.
func (m *Manager) originEntry(record *storage.Package, view *manifest.Merged) (manifest.Entry, error) {
	if view != nil {
		if entry, err := view.Lookup(record.Name); err == nil {
			return entry, nil
		}
	}

	if strings.HasPrefix(record.Provenance, "repo:") || record.Repo != "" {
		return manifest.Entry{
			Package: manifest.Package{Name: record.Name, Repo: record.Repo},
			Source:  ProvenanceRepo(record.Repo),
		}, nil
	}

	return manifest.Entry{}, fmt.Errorf("%w: %s (no longer in any manifest)", manifest.ErrPackageNotFound, record.Name)
}

// RemoveAll removes the named packages: install directory, owned
// symlinks, then the state record.
func (m *Manager) RemoveAll(ctx context.Context, names []string) []Result {
	results := make([]Result, 0, len(names))
	for _, name := range names {
		results = append(results, m.removeOne(ctx, name))
	}
	return results
}

func (m *Manager) removeOne(ctx context.Context, name string) Result {
	record, err := m.store.GetPackage(ctx, name)
	if err != nil {
		return Result{Name: name, Err: fmt.Errorf("failed to read package record: %w", err)}
	}
	if record == nil {
		return Result{Name: name, Err: fmt.Errorf("%w: %s", ErrNotInstalled, name)}
	}

	if err := m.inst.Remove(name, record.Symlinks); err != nil {
		return Result{Name: name, Err: err}
	}
	if err := m.store.DeletePackage(ctx, name); err != nil {
		return Result{Name: name, Err: fmt.Errorf("failed to delete package record: %w", err)}
	}
	return Result{Name: name, Pkg: record}
}

// ListInstalled returns every installed package record.
func (m *Manager) ListInstalled(ctx context.Context) ([]*storage.Package, error) {
	return m.store.ListPackages(ctx)
}

// latestVersion fetches the latest release tag, best effort. An empty
// string means the version could not be determined.
func (m *Manager) latestVersion(ctx context.Context, pkg manifest.Package) string {
	release, err := m.gh.GetLatestRelease(ctx, pkg.Owner(), pkg.RepoName())
	if err != nil {
		return ""
	}
	return release.TagName
}
