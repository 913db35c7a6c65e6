// SPDX-License-Identifier: MPL-2.0

package atom

import (
	"strings"

	"pkgkit/pkg/version"
)

// Package is the view of a concrete package needed to match atoms against
// it.
type Package interface {
	CPV() CPV
	Slot() string
	Subslot() string
	Repo() string
	// Use reports whether flag is enabled for the package and whether the
	// package declares it at all.
	Use(flag string) (enabled, declared bool)
}

// Matches reports whether the package satisfies every part of the atom:
// name, version, slot, subslot, repository and USE dependencies. Blockers
// are ignored, so a blocker matches the packages it blocks. Conditional USE
// dependencies must be resolved with EvaluateUseDeps first; unresolved ones
// are skipped.
func (a *Atom) Matches(p Package) bool {
	cpv := p.CPV()
	if cpv.Category != a.category || cpv.Package != a.pkg {
		return false
	}
	if !a.MatchesVersion(cpv.Version) {
		return false
	}
	if a.slot != "" && p.Slot() != a.slot {
		return false
	}
	if a.subslot != "" && p.Subslot() != a.subslot {
		return false
	}
	if a.repo != "" && p.Repo() != a.repo {
		return false
	}
	return a.matchesUse(p)
}

// MatchesCPV reports whether the atom's name and version constraint accept
// the CPV. Slot, repository and USE constraints are not checked.
func (a *Atom) MatchesCPV(cpv CPV) bool {
	return cpv.Category == a.category && cpv.Package == a.pkg && a.MatchesVersion(cpv.Version)
}

// MatchesVersion reports whether v satisfies the atom's version operator.
// Atoms without a version accept every version.
func (a *Atom) MatchesVersion(v version.Version) bool {
	if a.version.IsZero() {
		return true
	}
	switch a.op {
	case OpLess:
		return v.Compare(a.version) < 0
	case OpLessOrEqual:
		return v.Compare(a.version) <= 0
	case OpEqual:
		return v.Compare(a.version) == 0
	case OpApproximate:
		// Same version apart from the revision, and at least the atom's
		// revision (normally r0).
		return v.CompareBase(a.version) == 0 && v.Compare(a.version) >= 0
	case OpGreaterOrEqual:
		return v.Compare(a.version) >= 0
	case OpGreater:
		return v.Compare(a.version) > 0
	case OpEqualGlob:
		return strings.HasPrefix(v.String(), a.version.String())
	default:
		return false
	}
}

func (a *Atom) matchesUse(p Package) bool {
	for _, u := range a.useDeps {
		var want bool
		switch u.Kind {
		case UseEnabled:
			want = true
		case UseDisabled:
			want = false
		default:
			continue
		}

		enabled, declared := p.Use(u.Flag)
		if !declared {
			switch u.Default {
			case UseDefaultEnabled:
				enabled = true
			case UseDefaultDisabled:
				enabled = false
			default:
				return false
			}
		}
		if enabled != want {
			return false
		}
	}
	return true
}
