// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"testing"
	"time"
)

func TestEnums_IsValid(t *testing.T) {
	t.Parallel()

	type validator interface{ IsValid() (bool, []error) }

	tests := []struct {
		name     string
		value    validator
		want     bool
		sentinel error
	}{
		{"format ebuild", FormatEbuild, true, nil},
		{"format fake", FormatFake, true, nil},
		{"format empty", RepoFormat(""), false, ErrInvalidRepoFormat},
		{"format upper", RepoFormat("EBUILD"), false, ErrInvalidRepoFormat},
		{"unknown disabled", UnknownFlagsDisabled, true, nil},
		{"unknown drop", UnknownFlagsDrop, true, nil},
		{"unknown enabled", UnknownFlags("enabled"), false, ErrInvalidUnknownFlags},
		{"log debug", LogLevelDebug, true, nil},
		{"log error", LogLevelError, true, nil},
		{"log trace", LogLevel("trace"), false, ErrInvalidLogLevel},
		{"color auto", ColorSchemeAuto, true, nil},
		{"color light", ColorSchemeLight, true, nil},
		{"color blue", ColorScheme("blue"), false, ErrInvalidColorScheme},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			valid, errs := tt.value.IsValid()
			if valid != tt.want {
				t.Fatalf("IsValid() = %v, want %v", valid, tt.want)
			}
			if tt.sentinel == nil {
				if len(errs) > 0 {
					t.Errorf("unexpected errors: %v", errs)
				}
				return
			}
			if len(errs) == 0 || !errors.Is(errs[0], tt.sentinel) {
				t.Errorf("errors = %v, want %v", errs, tt.sentinel)
			}
		})
	}
}

func TestRepoEntry_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		entry RepoEntry
		want  bool
	}{
		{"named ebuild", RepoEntry{Name: "gentoo", Location: "/g", Format: FormatEbuild}, true},
		{"unnamed ebuild", RepoEntry{Location: "/g", Format: FormatEbuild}, true},
		{"named fake", RepoEntry{Name: "t", Location: "/t.toml", Format: FormatFake}, true},
		{"unnamed fake", RepoEntry{Location: "/t.toml", Format: FormatFake}, false},
		{"blank location", RepoEntry{Name: "g", Location: "  ", Format: FormatEbuild}, false},
		{"bad name", RepoEntry{Name: "-g", Location: "/g", Format: FormatEbuild}, false},
		{"bad format", RepoEntry{Name: "g", Location: "/g", Format: "rpm"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			valid, errs := tt.entry.IsValid()
			if valid != tt.want {
				t.Fatalf("IsValid() = %v (%v), want %v", valid, errs, tt.want)
			}
			if !valid && !errors.Is(errs[0], ErrInvalidRepoEntry) {
				t.Errorf("error should wrap ErrInvalidRepoEntry, got %v", errs[0])
			}
		})
	}
}

func TestConfig_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*Config)
		want   bool
	}{
		{"defaults", func(*Config) {}, true},
		{"bad use token", func(c *Config) { c.Use = []string{"ss l"} }, false},
		{"bad package_use", func(c *Config) { c.PackageUse = []string{"dev-libs/openssl"} }, false},
		{"bad installed", func(c *Config) { c.Installed = []string{"dev-libs/openssl"} }, false},
		{"zero debounce", func(c *Config) { c.Watch.Debounce = 0 }, false},
		{"negative debounce", func(c *Config) { c.Watch.Debounce = -time.Second }, false},
		{"bad ignore glob", func(c *Config) { c.Watch.Ignore = []string{"[a-"} }, false},
		{"bad repo", func(c *Config) { c.Repos = []RepoEntry{{Location: "/x", Format: "rpm"}} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.modify(cfg)
			valid, errs := cfg.IsValid()
			if valid != tt.want {
				t.Fatalf("IsValid() = %v (%v), want %v", valid, errs, tt.want)
			}
			if !valid && !errors.Is(errs[0], ErrInvalidConfig) {
				t.Errorf("error should wrap ErrInvalidConfig, got %v", errs[0])
			}
		})
	}
}
