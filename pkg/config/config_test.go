package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config == nil {
		t.Fatal("DefaultConfig returned nil")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	expectedRootDir := filepath.Join(homeDir, ".relget")
	if config.RootDir != expectedRootDir {
		t.Errorf("Expected root dir %s, got %s", expectedRootDir, config.RootDir)
	}
}

func TestGetDirectories(t *testing.T) {
	config := &Config{
		RootDir: "/test/root",
	}

	dirs := config.GetDirectories()

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"Root", dirs.Root, "/test/root"},
		{"Apps", dirs.Apps, "/test/root/apps"},
		{"Bin", dirs.Bin, "/test/root/bin"},
		{"Cache", dirs.Cache, "/test/root/cache"},
		{"Downloads", dirs.Downloads, "/test/root/cache/downloads"},
		{"Buckets", dirs.Buckets, "/test/root/cache/buckets"},
		{"DB", dirs.DB, "/test/root/db"},
		{"AppDir", dirs.AppDir("ripgrep"), "/test/root/apps/ripgrep"},
		{"LocalManifest", dirs.LocalManifest(), "/test/root/manifest.json"},
		{"SourceList", dirs.SourceList(), "/test/root/sources.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, tt.got)
			}
		})
	}
}

func TestConfigSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()

	oldHome := os.Getenv("HOME")
	defer os.Setenv("HOME", oldHome)
	os.Setenv("HOME", tmpDir)

	testConfig := &Config{
		RootDir:     filepath.Join(tmpDir, ".relget"),
		GitHubToken: "test-token",
	}

	if err := testConfig.Save(); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loadedConfig, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loadedConfig.RootDir != testConfig.RootDir {
		t.Errorf("Expected root dir %s, got %s", testConfig.RootDir, loadedConfig.RootDir)
	}
	if loadedConfig.GitHubToken != testConfig.GitHubToken {
		t.Errorf("Expected GitHub token %s, got %s", testConfig.GitHubToken, loadedConfig.GitHubToken)
	}
}

func TestEnsureDirectories(t *testing.T) {
	tmpDir := t.TempDir()

	config := &Config{
		RootDir: tmpDir,
	}

	if err := config.EnsureDirectories(); err != nil {
		t.Fatalf("Failed to ensure directories: %v", err)
	}

	dirs := config.GetDirectories()
	for _, dir := range []string{
		dirs.Root,
		dirs.Apps,
		dirs.Bin,
		dirs.Downloads,
		dirs.Buckets,
		dirs.DB,
	} {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			t.Errorf("Directory %s was not created", dir)
		}
	}
}
