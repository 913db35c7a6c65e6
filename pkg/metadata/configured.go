// SPDX-License-Identifier: MPL-2.0

package metadata

import "pkgkit/pkg/depspec"

// Configured pairs package metadata with the flag assignment chosen for it.
// It satisfies atom.Package, so atoms with USE dependencies can be matched
// against it.
type Configured struct {
	*Package
	Flags depspec.FlagSet
}

// Configure returns p configured with flags.
func Configure(p *Package, flags depspec.FlagSet) Configured {
	return Configured{Package: p, Flags: flags}
}

// Use reports the state of flag and whether the package declares it in IUSE.
func (c Configured) Use(flag string) (enabled, declared bool) {
	declared = c.HasIUse(flag)
	if !declared || c.Flags == nil {
		return false, declared
	}
	return c.Flags.Enabled(flag), true
}
