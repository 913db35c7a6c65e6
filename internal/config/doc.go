// SPDX-License-Identifier: MPL-2.0

// Package config loads pkgkit configuration using Viper with CUE as the file format.
//
// Configuration is read from config.cue in the platform configuration
// directory ($XDG_CONFIG_HOME/pkgkit on Linux, ~/Library/Application Support/pkgkit
// on macOS, %APPDATA%\pkgkit on Windows) or from the working directory. Files
// are validated against the embedded config_schema.cue, merged over the
// defaults, and PKGKIT_* environment variables override both.
//
// The configuration lists repositories with their priorities, the global and
// per-package USE flags, accepted keywords, the installed set used by the
// resolver, and the repository watcher settings.
package config
