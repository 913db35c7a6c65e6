// SPDX-License-Identifier: MPL-2.0

package config

import "context"

type (
	// Sources selects the files Load layers over defaults and PKGKIT_*
	// environment overrides. The zero value searches ConfigDir, then the
	// working directory.
	Sources struct {
		// File is read instead of searching when set. It must exist.
		File string
		// Dir replaces ConfigDir in the search.
		Dir string
		// NoWorkingDir drops the working directory from the search.
		NoWorkingDir bool
	}

	// Provider loads configuration. The CLI holds one per invocation so
	// tests can substitute their own.
	Provider interface {
		Load(ctx context.Context, src Sources) (*Config, error)
		// Locate returns the file Load would read, or "" when defaults and
		// the environment are all that apply.
		Locate(src Sources) (string, error)
	}

	cueProvider struct{}
)

// NewProvider returns a Provider reading CUE files validated against the
// embedded #Config schema.
func NewProvider() Provider { return cueProvider{} }

func (cueProvider) Load(ctx context.Context, src Sources) (*Config, error) {
	cfg, _, err := load(ctx, src)
	return cfg, err
}

func (cueProvider) Locate(src Sources) (string, error) { return locate(src) }
