// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for pkgkit.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"pkgkit/internal/config"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

type (
	// App wires CLI services and shared dependencies. Every command handler
	// receives it and reads configuration through Config.
	App struct {
		Config config.Provider
		stdout io.Writer
		stderr io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config config.Provider
		Stdout io.Writer
		Stderr io.Writer
	}

	// rootFlagValues holds the persistent flags shared by every command.
	rootFlagValues struct {
		verbose    bool
		configPath string
	}
)

// NewApp creates an App, filling unset dependencies with defaults.
func NewApp(deps Dependencies) *App {
	app := &App{Config: deps.Config, stdout: deps.Stdout, stderr: deps.Stderr}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	return app
}

// NewRootCommand builds the command tree.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlagValues{}

	root := &cobra.Command{
		Use:   "pkgkit",
		Short: "Query package repositories and resolve dependencies",
		Long: TitleStyle.Render("pkgkit") + SubtitleStyle.Render(" - package metadata and dependency resolution") + `

pkgkit reads ebuild repositories and their metadata caches, parses package
atoms and dependency expressions, and resolves dependency trees against the
configured repositories.

` + SubtitleStyle.Render("Examples:") + `
  pkgkit query '>=dev-libs/openssl-3'     Best match across repositories
  pkgkit search 'slot == "0" && keywords contains "amd64"'
  pkgkit resolve --deep app-misc/foo      Full install plan in merge order
  pkgkit version compare 1.0_rc1 1.0      Compare two versions
  pkgkit dep eval 'ssl? ( dev-libs/openssl )' --use ssl
  pkgkit config show                      Show current configuration`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			configureLogging(cmd.Context(), app, flags)
			return nil
		},
	}
	root.SetOut(app.stdout)
	root.SetErr(app.stderr)

	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/pkgkit/config.cue)")

	root.AddCommand(
		newVersionCommand(),
		newAtomCommand(),
		newDepCommand(),
		newQueryCommand(app, flags),
		newSearchCommand(app, flags),
		newResolveCommand(app, flags),
		newRepoCommand(app, flags),
		newConfigCommand(app, flags),
		newIssueCommand(app, flags),
	)
	return root
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits with the resulting status.
func Execute() {
	app := NewApp(Dependencies{})
	root := NewRootCommand(app)

	// fang overrides rootCmd.Version, so the version goes through WithVersion.
	err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(func(w io.Writer, _ fang.Styles, err error) {
			renderError(w, err, verboseFlag(root))
		}),
	)
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

func verboseFlag(root *cobra.Command) bool {
	v, err := root.PersistentFlags().GetBool("verbose")
	return err == nil && v
}

// configureLogging installs a charmbracelet/log handler as the slog default.
// The level comes from the configuration; --verbose forces debug.
func configureLogging(ctx context.Context, app *App, flags *rootFlagValues) {
	level := log.InfoLevel
	if cfg, err := app.loadConfig(ctx, flags); err == nil {
		if parsed, parseErr := log.ParseLevel(string(cfg.LogLevel)); parseErr == nil {
			level = parsed
		}
	}
	if flags.verbose {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(app.stderr, log.Options{
		Prefix: "pkgkit",
		Level:  level,
	})
	slog.SetDefault(slog.New(logger))
}

// loadConfig loads configuration honoring --config.
func (app *App) loadConfig(ctx context.Context, flags *rootFlagValues) (*config.Config, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return app.Config.Load(ctx, config.Sources{File: flags.configPath})
}
