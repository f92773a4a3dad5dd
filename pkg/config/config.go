package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the relget configuration.
type Config struct {
	// Directory where relget stores all its data
	RootDir string `json:"root_dir"`
	// GitHub token for API access (optional)
	GitHubToken string `json:"github_token,omitempty"`
}

// Directories is the managed on-disk layout, all derived from one root.
// Every component takes these paths explicitly; nothing reads ambient
// global state.
type Directories struct {
	// Root directory for all relget data
	Root string
	// One subdirectory per installed package
	Apps string
	// Symlinks to executables; the PATH entry point
	Bin string
	// Cache root
	Cache string
	// Download staging area
	Downloads string
	// Cached bucket manifests
	Buckets string
	// Database files
	DB string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return &Config{
		RootDir: filepath.Join(homeDir, ".relget"),
	}
}

// GetDirectories returns the managed directory layout under the root.
func (c *Config) GetDirectories() *Directories {
	return &Directories{
		Root:      c.RootDir,
		Apps:      filepath.Join(c.RootDir, "apps"),
		Bin:       filepath.Join(c.RootDir, "bin"),
		Cache:     filepath.Join(c.RootDir, "cache"),
		Downloads: filepath.Join(c.RootDir, "cache", "downloads"),
		Buckets:   filepath.Join(c.RootDir, "cache", "buckets"),
		DB:        filepath.Join(c.RootDir, "db"),
	}
}

// AppDir returns a specific package's install directory.
func (d *Directories) AppDir(name string) string {
	return filepath.Join(d.Apps, name)
}

// LocalManifest returns the path of the user's own JSON manifest.
func (d *Directories) LocalManifest() string {
	return filepath.Join(d.Root, "manifest.json")
}

// SourceList returns the path of the legacy plain-text source list.
func (d *Directories) SourceList() string {
	return filepath.Join(d.Root, "sources.txt")
}

func configFile() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "relget", "config.json"), nil
}

// Load loads the configuration from the default location.
func Load() (*Config, error) {
	path, err := configFile()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return default config if file doesn't exist
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if config.RootDir == "" {
		config.RootDir = DefaultConfig().RootDir
	}

	return &config, nil
}

// Save saves the configuration to the default location.
func (c *Config) Save() error {
	path, err := configFile()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// EnsureDirectories creates the managed tree if it doesn't exist.
func (c *Config) EnsureDirectories() error {
	dirs := c.GetDirectories()
	for _, dir := range []string{
		dirs.Root,
		dirs.Apps,
		dirs.Bin,
		dirs.Downloads,
		dirs.Buckets,
		dirs.DB,
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
