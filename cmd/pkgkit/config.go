// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pkgkit/internal/config"
)

// settableKeys are the scalar settings `config set` accepts.
var settableKeys = []string{"log_level", "unknown_flags", "ui.color_scheme", "watch.debounce"}

// newConfigCommand creates the `pkgkit config` command tree.
func newConfigCommand(app *App, rf *rootFlagValues) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage pkgkit configuration",
		Long: `Manage pkgkit configuration.

Configuration is stored in:
  - Linux: $XDG_CONFIG_HOME/pkgkit/config.cue (default ~/.config)
  - macOS: ~/Library/Application Support/pkgkit/config.cue
  - Windows: %APPDATA%\pkgkit\config.cue

A config.cue in the working directory is used when the user file is absent.
Every key can be overridden with a PKGKIT_ environment variable, for example
PKGKIT_LOG_LEVEL=debug or PKGKIT_WATCH_DEBOUNCE=1s.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context(), rf)
			if err != nil {
				return err
			}
			path, err := app.Config.Locate(config.Sources{File: rf.configPath})
			if err != nil {
				return err
			}
			showConfig(cmd.OutOrStdout(), cfg, path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context(), rf)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), config.GenerateCUE(cfg))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.CreateDefaultConfig()
			if err != nil {
				return fmt.Errorf("failed to create config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Configuration at %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir, err := config.ConfigDir()
			if err != nil {
				return err
			}
			path, err := app.Config.Locate(config.Sources{File: rf.configPath})
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Config directory: %s\n", cfgDir)
			if path == "" {
				path = SubtitleStyle.Render("(none, using defaults)")
			}
			fmt.Fprintf(w, "Config file: %s\n", path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:       "set <key> <value>",
		Short:     "Set a configuration value",
		Long:      "Set a configuration value. Valid keys: " + strings.Join(settableKeys, ", "),
		Args:      cobra.ExactArgs(2),
		ValidArgs: settableKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context(), rf)
			if err != nil {
				return err
			}
			if err := setConfigValue(cfg, args[0], args[1]); err != nil {
				return err
			}
			if err := config.Save(cfg); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Set %s = %s\n", SuccessStyle.Render("✓"), args[0], args[1])
			return nil
		},
	})

	return cfgCmd
}

// setConfigValue applies one scalar setting and validates the result.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch key {
	case "log_level":
		cfg.LogLevel = config.LogLevel(value)
	case "unknown_flags":
		cfg.UnknownFlags = config.UnknownFlags(value)
	case "ui.color_scheme":
		cfg.UI.ColorScheme = config.ColorScheme(value)
	case "watch.debounce":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid watch.debounce: %w", err)
		}
		cfg.Watch.Debounce = d
	default:
		return fmt.Errorf("unknown configuration key: %s\nValid keys: %s", key, strings.Join(settableKeys, ", "))
	}

	if ok, errs := cfg.IsValid(); !ok {
		return errs[0]
	}
	return nil
}

func showConfig(w io.Writer, cfg *config.Config, path string) {
	valueStyle := SuccessStyle
	list := func(values []string) string {
		if len(values) == 0 {
			return SubtitleStyle.Render("(none)")
		}
		return valueStyle.Render(strings.Join(values, " "))
	}

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if path == "" {
		path = SubtitleStyle.Render("(using defaults)")
	}
	fmt.Fprintf(w, "%s: %s\n\n", KeyStyle.Render("Config file"), path)

	fmt.Fprintf(w, "%s:\n", KeyStyle.Render("repos"))
	if len(cfg.Repos) == 0 {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(none configured)"))
	}
	for _, r := range cfg.Repos {
		name := r.Name
		if name == "" {
			name = SubtitleStyle.Render("(from repository)")
		}
		fmt.Fprintf(w, "  - %s %s priority=%d format=%s\n", valueStyle.Render(name), r.Location, r.Priority, r.Format)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render("use"), list(cfg.Use))
	fmt.Fprintf(w, "%s:\n", KeyStyle.Render("package_use"))
	for _, line := range cfg.PackageUse {
		fmt.Fprintf(w, "  %s\n", valueStyle.Render(line))
	}
	fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render("accept_keywords"), list(cfg.AcceptKeywords))
	fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render("installed"), list(cfg.Installed))
	fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render("unknown_flags"), valueStyle.Render(string(cfg.UnknownFlags)))
	fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render("log_level"), valueStyle.Render(string(cfg.LogLevel)))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", KeyStyle.Render("watch"))
	fmt.Fprintf(w, "  debounce: %s\n", valueStyle.Render(cfg.Watch.Debounce.String()))
	fmt.Fprintf(w, "  patterns: %s\n", list(cfg.Watch.Patterns))
	fmt.Fprintf(w, "  ignore: %s\n", list(cfg.Watch.Ignore))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", KeyStyle.Render("ui"))
	fmt.Fprintf(w, "  color_scheme: %s\n", valueStyle.Render(string(cfg.UI.ColorScheme)))
}
