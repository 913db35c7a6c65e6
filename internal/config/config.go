// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"pkgkit/internal/cueutil"
	"pkgkit/internal/issue"
)

const (
	// AppName is the application name.
	AppName = "pkgkit"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides, e.g. PKGKIT_LOG_LEVEL or
	// PKGKIT_WATCH_DEBOUNCE. List values are comma separated.
	EnvPrefix = "PKGKIT"
	// ConfigDirEnv names the variable that replaces the platform config
	// directory, for sandboxed runs and tests.
	ConfigDirEnv = EnvPrefix + "_CONFIG_DIR"
)

//go:embed config_schema.cue
var configSchema []byte

// ConfigDir returns the pkgkit configuration directory: $PKGKIT_CONFIG_DIR
// when set, else the platform convention. Windows uses %APPDATA%, macOS uses
// ~/Library/Application Support, and Linux/others use $XDG_CONFIG_HOME
// (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return filepath.Clean(dir), nil
	}

	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// load layers the file selected by src over defaults, with PKGKIT_*
// variables on top. It returns the path of the file it read, or "" when only
// defaults and the environment applied.
func load(ctx context.Context, src Sources) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("repos", defaults.Repos)
	v.SetDefault("use", defaults.Use)
	v.SetDefault("package_use", defaults.PackageUse)
	v.SetDefault("accept_keywords", defaults.AcceptKeywords)
	v.SetDefault("unknown_flags", defaults.UnknownFlags)
	v.SetDefault("installed", defaults.Installed)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("watch.debounce", defaults.Watch.Debounce)
	v.SetDefault("watch.patterns", defaults.Watch.Patterns)
	v.SetDefault("watch.ignore", defaults.Watch.Ignore)
	v.SetDefault("ui.color_scheme", defaults.UI.ColorScheme)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath, err := locate(src)
	if err != nil {
		return nil, "", err
	}
	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	for i := range cfg.Repos {
		if cfg.Repos[i].Format == "" {
			cfg.Repos[i].Format = FormatEbuild
		}
	}

	if err := validate(&cfg); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Give every repository a unique name").
			WithSuggestion("Check USE tokens and package_use atoms").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// locate returns the file load reads: src.File, else config.cue in src.Dir
// or ConfigDir, else config.cue in the working directory unless
// src.NoWorkingDir. It returns "" when none exists.
func locate(src Sources) (string, error) {
	if src.File != "" {
		if !fileExists(src.File) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(src.File).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'pkgkit config show' to see the default configuration").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(fmt.Errorf("config file not found: %s", src.File)).
				BuildError()
		}
		return src.File, nil
	}

	dir := src.Dir
	if dir == "" {
		var err error
		if dir, err = ConfigDir(); err != nil {
			return "", err
		}
	}
	candidates := []string{filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)}
	if !src.NoWorkingDir {
		candidates = append(candidates, ConfigFileName+"."+ConfigFileExt)
	}
	for _, p := range candidates {
		if fileExists(p) {
			return p, nil
		}
	}
	return "", nil
}

// loadCUEIntoViper validates a CUE file against #Config and merges its
// contents into v, below environment overrides and above defaults.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	result, err := cueutil.ParseAndDecode[map[string]any](
		configSchema, data, "#Config",
		cueutil.Named(path),
		cueutil.Partial(),
	)
	if err != nil {
		return err
	}

	if err := v.MergeConfigMap(*result.Value); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// validate checks constraints CUE cannot express: repository names are
// unique, and every value passes its typed validation.
func validate(cfg *Config) error {
	seen := make(map[string]int)
	for i, r := range cfg.Repos {
		if r.Name == "" {
			continue
		}
		if first, ok := seen[r.Name]; ok {
			return fmt.Errorf("repos[%d]: duplicate repository name %q (same as repos[%d])", i, r.Name, first)
		}
		seen[r.Name] = i
	}

	if valid, errs := cfg.IsValid(); !valid {
		return errs[0]
	}
	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir() error {
	cfgDir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(cfgDir, 0o755)
}

// CreateDefaultConfig writes a default config file unless one exists, and
// returns its path.
func CreateDefaultConfig() (string, error) {
	cfgDir, err := ConfigDir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)

	if _, err := os.Stat(cfgPath); err == nil {
		return cfgPath, nil
	}

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return cfgPath, nil
}

// Save writes the current configuration to file
func Save(cfg *Config) error {
	cfgDir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(cfg)), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// pkgkit configuration file.\n")
	sb.WriteString("// Values can be overridden with PKGKIT_* environment variables.\n\n")

	if len(cfg.Repos) > 0 {
		sb.WriteString("repos: [\n")
		for _, r := range cfg.Repos {
			sb.WriteString("\t{")
			if r.Name != "" {
				fmt.Fprintf(&sb, "name: %q, ", r.Name)
			}
			fmt.Fprintf(&sb, "location: %q, priority: %d, format: %q},\n", r.Location, r.Priority, r.Format)
		}
		sb.WriteString("]\n\n")
	}

	writeList(&sb, "use", cfg.Use)
	writeList(&sb, "package_use", cfg.PackageUse)
	writeList(&sb, "accept_keywords", cfg.AcceptKeywords)
	writeList(&sb, "installed", cfg.Installed)

	fmt.Fprintf(&sb, "unknown_flags: %q\n", cfg.UnknownFlags)
	fmt.Fprintf(&sb, "log_level: %q\n", cfg.LogLevel)

	sb.WriteString("\nwatch: {\n")
	fmt.Fprintf(&sb, "\tdebounce: %q\n", cfg.Watch.Debounce.String())
	sb.WriteString("\tpatterns: " + cueList(cfg.Watch.Patterns) + "\n")
	sb.WriteString("\tignore: " + cueList(cfg.Watch.Ignore) + "\n")
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	sb.WriteString("}\n")

	return sb.String()
}

func writeList(sb *strings.Builder, key string, values []string) {
	sb.WriteString(key + ": " + cueList(values) + "\n")
}

func cueList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
