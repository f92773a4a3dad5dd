package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sorenkel/relget/pkg/config"
	"github.com/sorenkel/relget/pkg/github"
	"github.com/sorenkel/relget/pkg/manifest"
)

// Installed describes what a successful install published.
type Installed struct {
	Exe      string   // absolute path of the published executable
	Files    []string // files owned under the app directory, relative
	Symlinks []string // symlink names created in the bin directory
}

// Installer downloads, extracts, and atomically publishes one package at
// a time. A previously installed version stays intact until the publish
// step; every earlier failure discards only the staging directory.
type Installer struct {
	dirs *config.Directories
	gh   github.Client
}

// New creates an installer over the managed tree.
func New(dirs *config.Directories, gh github.Client) *Installer {
	return &Installer{dirs: dirs, gh: gh}
}

// Install fetches the asset, stages it, discovers the executable, and
// publishes it as apps/<name> with symlinks in the bin directory.
func (i *Installer) Install(ctx context.Context, name string, ref manifest.AssetRef) (*Installed, error) {
	assetName := ref.Name
	if assetName == "" {
		assetName = ref.URL[strings.LastIndex(ref.URL, "/")+1:]
	}

	// Classify up front so an unsupported archive fails before any
	// download traffic.
	kind, err := classifyArchive(formatName(assetName, ref.Format))
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(i.dirs.Downloads, 0755); err != nil {
		return nil, fmt.Errorf("failed to create downloads directory: %w", err)
	}
	// Downloads stage in a per-install directory; parallel installs may
	// share an asset basename.
	downloadDir, err := os.MkdirTemp(i.dirs.Downloads, name+"-")
	if err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}
	defer os.RemoveAll(downloadDir)

	downloadPath := filepath.Join(downloadDir, assetName)
	if err := i.gh.DownloadAsset(ctx, ref.URL, downloadPath); err != nil {
		return nil, &DownloadError{URL: ref.URL, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(i.dirs.Apps, 0755); err != nil {
		return nil, fmt.Errorf("failed to create apps directory: %w", err)
	}
	staging, err := os.MkdirTemp(i.dirs.Apps, ".staging-"+name+"-")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	published := false
	defer func() {
		if !published {
			os.RemoveAll(staging)
		}
	}()

	var files []string
	if kind == kindRaw {
		if err := stageRawBinary(downloadPath, filepath.Join(staging, name)); err != nil {
			return nil, err
		}
		files = []string{name}
	} else {
		files, err = extractArchive(downloadPath, kind, staging)
		if err != nil {
			return nil, err
		}
	}

	exeRel, err := findExecutable(staging, name)
	if err != nil {
		return nil, err
	}
	// Zip archives built on windows routinely drop the exec bit.
	if err := os.Chmod(filepath.Join(staging, exeRel), 0755); err != nil {
		return nil, fmt.Errorf("failed to mark executable: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Publish. Everything up to here was discardable; from here on the
	// new version replaces the old one.
	appDir := i.dirs.AppDir(name)
	if err := os.RemoveAll(appDir); err != nil {
		return nil, fmt.Errorf("failed to remove previous install: %w", err)
	}
	if err := os.Rename(staging, appDir); err != nil {
		return nil, fmt.Errorf("failed to publish install: %w", err)
	}
	published = true

	exePath := filepath.Join(appDir, filepath.FromSlash(exeRel))
	linkName := filepath.Base(filepath.FromSlash(exeRel))
	if err := i.publishSymlink(exePath, linkName); err != nil {
		return nil, err
	}

	return &Installed{
		Exe:      exePath,
		Files:    files,
		Symlinks: []string{linkName},
	}, nil
}

// Remove deletes a package's install directory and the symlinks it owns.
// Idempotent against already-missing files.
func (i *Installer) Remove(name string, symlinks []string) error {
	for _, link := range symlinks {
		path := filepath.Join(i.dirs.Bin, link)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove symlink %s: %w", path, err)
		}
	}

	if err := os.RemoveAll(i.dirs.AppDir(name)); err != nil {
		return fmt.Errorf("failed to remove install directory: %w", err)
	}
	return nil
}

// publishSymlink atomically (re)points bin/<linkName> at target.
func (i *Installer) publishSymlink(target, linkName string) error {
	if err := os.MkdirAll(i.dirs.Bin, 0755); err != nil {
		return fmt.Errorf("failed to create bin directory: %w", err)
	}

	link := filepath.Join(i.dirs.Bin, linkName)
	tmp := link + ".tmp"
	os.Remove(tmp)
	if err := os.Symlink(target, tmp); err != nil {
		return fmt.Errorf("failed to create symlink: %w", err)
	}
	if err := os.Rename(tmp, link); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to update symlink: %w", err)
	}
	return nil
}

func stageRawBinary(src, dest string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read download: %w", err)
	}
	if err := os.WriteFile(dest, data, 0755); err != nil {
		return fmt.Errorf("failed to stage binary: %w", err)
	}
	return nil
}

// formatName lets a manifest's declared format override the filename
// suffix for classification.
func formatName(assetName, format string) string {
	if format == "" {
		return assetName
	}
	return "asset." + strings.TrimPrefix(format, ".")
}
