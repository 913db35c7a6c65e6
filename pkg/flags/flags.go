// SPDX-License-Identifier: MPL-2.0

// Package flags computes the USE flag assignment of a package.
//
// The assignment of a package starts from its IUSE defaults, applies the
// global USE list and then every package-specific entry whose atom matches,
// in order, so later settings win. Only flags the package declares in IUSE
// belong to its known universe.
package flags

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"pkgkit/pkg/atom"
	"pkgkit/pkg/metadata"
)

// ErrInvalidUse is returned for malformed USE tokens.
var ErrInvalidUse = errors.New("invalid USE setting")

type (
	// Assignment is an immutable set of enabled flags together with the
	// universe of flags it is authoritative for.
	Assignment struct {
		enabled map[string]bool
		known   map[string]bool
	}

	// Provider supplies the flag assignment for a package.
	Provider interface {
		For(p *metadata.Package) Assignment
		// Global returns the assignment used for dependency trees that do
		// not belong to a package, such as a command line query.
		Global() Assignment
	}

	// PackageUse is a package-specific USE setting.
	PackageUse struct {
		Atom *atom.Atom
		// Use holds "flag" and "-flag" tokens.
		Use []string
	}

	// Static is a Provider backed by fixed settings.
	Static struct {
		global     []string
		packageUse []PackageUse
	}
)

// NewAssignment returns an assignment with the given enabled flags. Every
// enabled flag is known; extra lists more known flags that are disabled.
func NewAssignment(enabled []string, extra ...string) Assignment {
	a := Assignment{enabled: make(map[string]bool), known: make(map[string]bool)}
	for _, f := range enabled {
		a.enabled[f] = true
		a.known[f] = true
	}
	for _, f := range extra {
		a.known[f] = true
	}
	return a
}

// Enabled reports whether flag is enabled.
func (a Assignment) Enabled(flag string) bool { return a.enabled[flag] }

// Known reports whether flag belongs to the assignment's universe.
func (a Assignment) Known(flag string) bool { return a.known[flag] }

// EnabledFlags returns the enabled flags in sorted order.
func (a Assignment) EnabledFlags() []string {
	return slices.Sorted(maps.Keys(a.enabled))
}

// KnownFlags returns the universe in sorted order.
func (a Assignment) KnownFlags() []string {
	return slices.Sorted(maps.Keys(a.known))
}

// String renders the universe as a USE list, disabled flags prefixed by '-'.
func (a Assignment) String() string {
	parts := make([]string, 0, len(a.known))
	for _, f := range a.KnownFlags() {
		if a.enabled[f] {
			parts = append(parts, f)
		} else {
			parts = append(parts, "-"+f)
		}
	}
	return strings.Join(parts, " ")
}

// ParsePackageUse parses a "atom flag -flag ..." line.
func ParsePackageUse(line string) (PackageUse, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return PackageUse{}, fmt.Errorf("%w: %q: expected an atom followed by flags", ErrInvalidUse, line)
	}
	a, err := atom.Parse(fields[0])
	if err != nil {
		return PackageUse{}, fmt.Errorf("%w: %w", ErrInvalidUse, err)
	}
	if err := ValidateTokens(fields[1:]); err != nil {
		return PackageUse{}, err
	}
	return PackageUse{Atom: a, Use: fields[1:]}, nil
}

// ValidateTokens checks "flag", "-flag" and "-*" tokens.
func ValidateTokens(tokens []string) error {
	for _, tok := range tokens {
		if tok == "-*" {
			continue
		}
		if !atom.ValidUseFlag(strings.TrimPrefix(tok, "-")) {
			return fmt.Errorf("%w: %q", ErrInvalidUse, tok)
		}
	}
	return nil
}

// NewStatic returns a provider applying global USE tokens and then the
// package-specific entries in order.
func NewStatic(global []string, packageUse []PackageUse) *Static {
	return &Static{global: slices.Clone(global), packageUse: slices.Clone(packageUse)}
}

// For returns the assignment for p.
func (s *Static) For(p *metadata.Package) Assignment {
	state := make(map[string]bool)
	for _, u := range p.IUse() {
		state[u.Flag] = u.Default == metadata.IUseEnabled
	}
	apply(state, s.global)

	target := metadata.Configure(p, nil)
	for _, pu := range s.packageUse {
		if pu.Atom.Matches(target) {
			apply(state, pu.Use)
		}
	}

	a := Assignment{enabled: make(map[string]bool), known: make(map[string]bool)}
	for _, u := range p.IUse() {
		a.known[u.Flag] = true
		if state[u.Flag] {
			a.enabled[u.Flag] = true
		}
	}
	return a
}

// Global returns the global USE list as an assignment whose universe is the
// set of flags it mentions.
func (s *Static) Global() Assignment {
	state := make(map[string]bool)
	apply(state, s.global)

	a := Assignment{enabled: make(map[string]bool), known: make(map[string]bool)}
	for f, on := range state {
		a.known[f] = true
		if on {
			a.enabled[f] = true
		}
	}
	return a
}

func apply(state map[string]bool, tokens []string) {
	for _, tok := range tokens {
		switch {
		case tok == "-*":
			for f := range state {
				state[f] = false
			}
		case strings.HasPrefix(tok, "-"):
			state[tok[1:]] = false
		default:
			state[tok] = true
		}
	}
}
