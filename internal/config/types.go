// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"pkgkit/pkg/atom"
	"pkgkit/pkg/flags"
)

const (
	// FormatEbuild reads an on-disk repository of build scripts and its
	// metadata/md5-cache.
	FormatEbuild RepoFormat = "ebuild"
	// FormatFake reads a TOML file describing an in-memory repository.
	FormatFake RepoFormat = "fake"

	// UnknownFlagsDisabled evaluates flags outside IUSE as disabled.
	UnknownFlagsDisabled UnknownFlags = "disabled"
	// UnknownFlagsDrop removes conditionals on flags outside IUSE.
	UnknownFlagsDrop UnknownFlags = "drop"

	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"

	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"
)

var (
	// ErrInvalidRepoFormat is returned when a RepoFormat value is not recognized.
	ErrInvalidRepoFormat = errors.New("invalid repository format")
	// ErrInvalidUnknownFlags is returned when an UnknownFlags value is not recognized.
	ErrInvalidUnknownFlags = errors.New("invalid unknown flags policy")
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidRepoEntry is the sentinel error wrapped by InvalidRepoEntryError.
	ErrInvalidRepoEntry = errors.New("invalid repository entry")
	// ErrInvalidWatchConfig is the sentinel error wrapped by InvalidWatchConfigError.
	ErrInvalidWatchConfig = errors.New("invalid watch config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// RepoFormat selects how a repository location is read.
	RepoFormat string

	// InvalidRepoFormatError is returned when a RepoFormat value is not recognized.
	InvalidRepoFormatError struct {
		Value RepoFormat
	}

	// UnknownFlags selects how use-conditionals on flags outside a package's
	// IUSE are evaluated.
	UnknownFlags string

	// InvalidUnknownFlagsError is returned when an UnknownFlags value is not recognized.
	InvalidUnknownFlagsError struct {
		Value UnknownFlags
	}

	// LogLevel is the minimum level written by the CLI logger.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// InvalidRepoEntryError collects the field errors of one repository entry.
	InvalidRepoEntryError struct {
		Name        string
		FieldErrors []error
	}

	// InvalidWatchConfigError collects the field errors of the watch section.
	InvalidWatchConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError collects field errors from every section.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// RepoEntry configures one repository.
	RepoEntry struct {
		// Name is required for fake repositories. Ebuild repositories report
		// their own name, which Name must match when set.
		Name string `json:"name" mapstructure:"name"`
		// Location is the repository root, or the TOML file for fake ones.
		Location string `json:"location" mapstructure:"location"`
		// Priority orders repositories; higher wins.
		Priority int        `json:"priority" mapstructure:"priority"`
		Format   RepoFormat `json:"format" mapstructure:"format"`
	}

	// WatchConfig configures `pkgkit repo watch`.
	WatchConfig struct {
		// Debounce is the quiet period after the last change before a sync.
		Debounce time.Duration `json:"debounce" mapstructure:"debounce"`
		// Patterns are doublestar globs, relative to a repository root, of
		// files whose changes trigger a sync.
		Patterns []string `json:"patterns" mapstructure:"patterns"`
		// Ignore are doublestar globs excluded from Patterns.
		Ignore []string `json:"ignore" mapstructure:"ignore"`
	}

	// UIConfig configures terminal output.
	UIConfig struct {
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
	}

	// Config holds the application configuration.
	Config struct {
		Repos []RepoEntry `json:"repos" mapstructure:"repos"`
		// Use is the global USE flag list, e.g. ["-*", "ssl", "-doc"].
		Use []string `json:"use" mapstructure:"use"`
		// PackageUse holds package.use lines: an atom followed by flag tokens.
		PackageUse []string `json:"package_use" mapstructure:"package_use"`
		// AcceptKeywords lists accepted keywords. Empty accepts everything.
		AcceptKeywords []string     `json:"accept_keywords" mapstructure:"accept_keywords"`
		UnknownFlags   UnknownFlags `json:"unknown_flags" mapstructure:"unknown_flags"`
		// Installed lists category/package-version entries treated as
		// already installed when resolving.
		Installed []string    `json:"installed" mapstructure:"installed"`
		LogLevel  LogLevel    `json:"log_level" mapstructure:"log_level"`
		Watch     WatchConfig `json:"watch" mapstructure:"watch"`
		UI        UIConfig    `json:"ui" mapstructure:"ui"`
	}
)

// String returns the string representation of the RepoFormat.
func (f RepoFormat) String() string { return string(f) }

// IsValid returns whether the RepoFormat is one of the defined formats.
func (f RepoFormat) IsValid() (bool, []error) {
	switch f {
	case FormatEbuild, FormatFake:
		return true, nil
	default:
		return false, []error{&InvalidRepoFormatError{Value: f}}
	}
}

// Error implements the error interface for InvalidRepoFormatError.
func (e *InvalidRepoFormatError) Error() string {
	return fmt.Sprintf("invalid repository format %q (valid: ebuild, fake)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidRepoFormatError) Unwrap() error { return ErrInvalidRepoFormat }

// String returns the string representation of the UnknownFlags policy.
func (u UnknownFlags) String() string { return string(u) }

// IsValid returns whether the UnknownFlags value is a defined policy.
func (u UnknownFlags) IsValid() (bool, []error) {
	switch u {
	case UnknownFlagsDisabled, UnknownFlagsDrop:
		return true, nil
	default:
		return false, []error{&InvalidUnknownFlagsError{Value: u}}
	}
}

// Error implements the error interface for InvalidUnknownFlagsError.
func (e *InvalidUnknownFlagsError) Error() string {
	return fmt.Sprintf("invalid unknown_flags %q (valid: disabled, drop)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidUnknownFlagsError) Unwrap() error { return ErrInvalidUnknownFlags }

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is one of the defined levels.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// Error implements the error interface for InvalidLogLevelError.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined color schemes.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// IsValid checks the entry's location, format and, when set, its name.
func (e RepoEntry) IsValid() (bool, []error) {
	var errs []error
	if strings.TrimSpace(e.Location) == "" {
		errs = append(errs, errors.New("location must be non-empty"))
	}
	if valid, fieldErrs := e.Format.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	switch {
	case e.Name != "" && !atom.ValidRepo(e.Name):
		errs = append(errs, fmt.Errorf("invalid repository name %q", e.Name))
	case e.Name == "" && e.Format == FormatFake:
		errs = append(errs, errors.New("fake repositories need a name"))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidRepoEntryError{Name: e.Name, FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidRepoEntryError.
func (e *InvalidRepoEntryError) Error() string {
	return fmt.Sprintf("invalid repository entry %q: %v", e.Name, errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidRepoEntry for errors.Is() compatibility.
func (e *InvalidRepoEntryError) Unwrap() error { return ErrInvalidRepoEntry }

// IsValid checks that the debounce is positive and that every pattern is a
// valid doublestar glob.
func (w WatchConfig) IsValid() (bool, []error) {
	var errs []error
	if w.Debounce <= 0 {
		errs = append(errs, fmt.Errorf("debounce must be positive, got %s", w.Debounce))
	}
	for _, p := range w.Patterns {
		if !doublestar.ValidatePattern(p) {
			errs = append(errs, fmt.Errorf("invalid glob pattern %q", p))
		}
	}
	for _, p := range w.Ignore {
		if !doublestar.ValidatePattern(p) {
			errs = append(errs, fmt.Errorf("invalid ignore pattern %q", p))
		}
	}
	if len(errs) > 0 {
		return false, []error{&InvalidWatchConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidWatchConfigError.
func (e *InvalidWatchConfigError) Error() string {
	return fmt.Sprintf("invalid watch config: %v", errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidWatchConfig for errors.Is() compatibility.
func (e *InvalidWatchConfigError) Unwrap() error { return ErrInvalidWatchConfig }

// IsValid validates every section, including the USE tokens, the
// package_use lines and the installed entries.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	for _, r := range c.Repos {
		if valid, fieldErrs := r.IsValid(); !valid {
			errs = append(errs, fieldErrs...)
		}
	}
	if err := flags.ValidateTokens(c.Use); err != nil {
		errs = append(errs, err)
	}
	for _, line := range c.PackageUse {
		if _, err := flags.ParsePackageUse(line); err != nil {
			errs = append(errs, err)
		}
	}
	for _, cpv := range c.Installed {
		if _, err := atom.ParseCPV(cpv); err != nil {
			errs = append(errs, fmt.Errorf("installed: %w", err))
		}
	}
	if valid, fieldErrs := c.UnknownFlags.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.LogLevel.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Watch.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.UI.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %v", errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidConfig followed by the field errors.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Repos:          []RepoEntry{},
		Use:            []string{},
		PackageUse:     []string{},
		AcceptKeywords: []string{},
		UnknownFlags:   UnknownFlagsDisabled,
		Installed:      []string{},
		LogLevel:       LogLevelInfo,
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
			Patterns: []string{
				"*/*/*.ebuild",
				"metadata/md5-cache/**",
				"profiles/repo_name",
				"profiles/categories",
			},
			Ignore: []string{"**/.*"},
		},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
		},
	}
}
