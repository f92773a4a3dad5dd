package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sorenkel/relget/pkg/bucket"
	"github.com/sorenkel/relget/pkg/config"
	"github.com/sorenkel/relget/pkg/github"
	"github.com/sorenkel/relget/pkg/installer"
	"github.com/sorenkel/relget/pkg/platform"
	"github.com/sorenkel/relget/pkg/storage"
)

const usage = `relget: prebuilt binaries from GitHub releases

Usage:
  relget [command] [flags] [arguments]

Commands:
  add         Install packages (name, glob pattern, or owner/repo)
  update      Update installed packages
  remove      Remove installed packages
  list        List installed packages
  search      Search the merged package view
  info        Show details for one package
  bucket      Manage manifest buckets (add, list, remove, refresh)
  configure   Configure relget settings

Common Flags:
  --dry-run   Show what would be done without making changes

Use "relget [command] --help" for more information about a command.`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 || args[0] == "--help" || args[0] == "-h" {
		fmt.Println(usage)
		return nil
	}

	cmd := args[0]
	cmdArgs := args[1:]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Handle commands that don't need the database
	switch cmd {
	case "help":
		fmt.Println(usage)
		return nil
	case "configure":
		return handleConfigure(cfg, cmdArgs)
	}

	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	addCmd.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: relget add [flags] <package|pattern|owner/repo>...

Install packages. Arguments are package names from the merged view,
glob patterns (ripgrep*, sharkdp/*), or direct owner/repo references.

Flags:
  -yes             Skip the confirmation prompt
  -dry-run         Show what would be done without making changes
  -help            Show this help message
`)
	}
	addYes := addCmd.Bool("yes", false, "Skip the confirmation prompt")
	addDryRun := addCmd.Bool("dry-run", false, "Show what would be done without making changes")
	addHelp := addCmd.Bool("help", false, "Show help for add command")

	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	updateCmd.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: relget update [flags] [package...]

Update the named packages, or every installed package when no names are
given. Packages already at the latest version are skipped.

Flags:
  -dry-run         Show what would be done without making changes
  -help            Show this help message
`)
	}
	updateDryRun := updateCmd.Bool("dry-run", false, "Show what would be done without making changes")
	updateHelp := updateCmd.Bool("help", false, "Show help for update command")

	removeCmd := flag.NewFlagSet("remove", flag.ExitOnError)
	removeCmd.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: relget remove [flags] <package>...

Remove installed packages: the install directory, its symlinks, and the
state record.

Flags:
  -help            Show this help message
`)
	}
	removeHelp := removeCmd.Bool("help", false, "Show help for remove command")

	listCmd := flag.NewFlagSet("list", flag.ExitOnError)
	listHelp := listCmd.Bool("help", false, "Show help for list command")

	searchCmd := flag.NewFlagSet("search", flag.ExitOnError)
	searchCmd.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: relget search <pattern>

Search the merged view of the local manifest and every bucket. The
pattern matches package names, or repositories when it contains a slash.

Flags:
  -help            Show this help message
`)
	}
	searchHelp := searchCmd.Bool("help", false, "Show help for search command")

	infoCmd := flag.NewFlagSet("info", flag.ExitOnError)
	infoHelp := infoCmd.Bool("help", false, "Show help for info command")

	switch cmd {
	case "add":
		addCmd.Parse(cmdArgs)
		if *addHelp {
			addCmd.Usage()
			return nil
		}
	case "update":
		updateCmd.Parse(cmdArgs)
		if *updateHelp {
			updateCmd.Usage()
			return nil
		}
	case "remove":
		removeCmd.Parse(cmdArgs)
		if *removeHelp {
			removeCmd.Usage()
			return nil
		}
	case "list":
		listCmd.Parse(cmdArgs)
		if *listHelp {
			fmt.Fprintln(os.Stderr, "Usage: relget list")
			return nil
		}
	case "search":
		searchCmd.Parse(cmdArgs)
		if *searchHelp {
			searchCmd.Usage()
			return nil
		}
	case "info":
		infoCmd.Parse(cmdArgs)
		if *infoHelp {
			fmt.Fprintln(os.Stderr, "Usage: relget info <package>")
			return nil
		}
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to ensure directories: %w", err)
	}

	dirs := cfg.GetDirectories()
	dbPath := filepath.Join(dirs.DB, "relget.db")
	store, err := storage.NewLibSQL("file:" + dbPath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	ghClient := github.NewClient(cfg.GitHubToken)
	buckets := bucket.NewCache(dirs, store, ghClient)

	key, err := platform.Detect()
	if err != nil {
		return err
	}
	mgr := installer.NewManager(dirs, store, ghClient, key)

	app := &app{
		dirs:    dirs,
		store:   store,
		gh:      ghClient,
		buckets: buckets,
		mgr:     mgr,
		key:     key,
	}

	switch cmd {
	case "add":
		return app.handleAdd(ctx, addCmd.Args(), *addYes, *addDryRun)
	case "update":
		return app.handleUpdate(ctx, updateCmd.Args(), *updateDryRun)
	case "remove":
		return app.handleRemove(ctx, removeCmd.Args())
	case "list":
		return app.handleList(ctx)
	case "search":
		return app.handleSearch(ctx, searchCmd.Args())
	case "info":
		return app.handleInfo(ctx, infoCmd.Args())
	case "bucket":
		return app.handleBucket(ctx, cmdArgs)
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
}
