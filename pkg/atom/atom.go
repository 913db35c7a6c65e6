// SPDX-License-Identifier: MPL-2.0

package atom

import (
	"errors"
	"slices"
	"strings"

	"pkgkit/internal/grammar"
	"pkgkit/pkg/version"
)

// Atom is a parsed package specifier. Atoms are immutable; methods that
// derive a modified atom return a copy.
type Atom struct {
	blocker  Blocker
	op       Operator
	category string
	pkg      string
	version  version.Version
	slot     string
	subslot  string
	slotOp   SlotOp
	useDeps  []UseDep
	repo     string
}

// Parse parses an atom string.
func Parse(s string) (*Atom, error) {
	sc := grammar.NewScanner("atom", s)
	a, err := scanAtom(sc)
	if err == nil {
		err = sc.ExpectEOF()
	}
	if err != nil {
		return nil, invalid(s, err)
	}
	return a, nil
}

// MustParse is like Parse but panics on invalid input.
func MustParse(s string) *Atom {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromCPV returns the exact atom "=cat/pkg-ver" for a CPV.
func FromCPV(cpv CPV) *Atom {
	return &Atom{
		op:       OpEqual,
		category: cpv.Category,
		pkg:      cpv.Package,
		version:  cpv.Version,
	}
}

func invalid(s string, err error) error {
	var se *grammar.SyntaxError
	errors.As(err, &se)
	return &InvalidAtomError{Value: s, Syntax: se}
}

func scanAtom(sc *grammar.Scanner) (*Atom, error) {
	a := &Atom{}

	switch {
	case sc.Accept("!!"):
		a.blocker = BlockerStrong
	case sc.Accept("!"):
		a.blocker = BlockerWeak
	}

	opStart := sc.Pos()
	switch {
	case sc.Accept("<="):
		a.op = OpLessOrEqual
	case sc.Accept("<"):
		a.op = OpLess
	case sc.Accept(">="):
		a.op = OpGreaterOrEqual
	case sc.Accept(">"):
		a.op = OpGreater
	case sc.Accept("="):
		a.op = OpEqual
	case sc.Accept("~"):
		a.op = OpApproximate
	}

	catStart := sc.Pos()
	a.category = sc.AcceptRun(categoryChar)
	if off := badCategory(a.category); off >= 0 {
		return nil, sc.ErrorAt(catStart+off, "category name", "")
	}
	if err := sc.Expect("/"); err != nil {
		return nil, err
	}

	pvStart := sc.Pos()
	pv := sc.AcceptRun(pvChar)
	if a.op == OpNone {
		if _, _, hyphen := splitPV(pv); hyphen >= 0 {
			return nil, sc.ErrorAt(pvStart+hyphen, "", "version requires an operator")
		}
		if off := badPackage(pv); off >= 0 {
			return nil, sc.ErrorAt(pvStart+off, "package name", "")
		}
		a.pkg = pv
	} else {
		name, v, hyphen := splitPV(pv)
		if hyphen < 0 {
			if badPackage(pv) < 0 {
				return nil, sc.ErrorAt(opStart, "", "operator requires a version")
			}
			return nil, sc.ErrorAt(pvStart, "package name followed by -version", "")
		}
		a.pkg, a.version = name, v
		if sc.Accept("*") {
			if a.op != OpEqual {
				return nil, sc.ErrorAt(sc.Pos()-1, "", "version glob requires the = operator")
			}
			a.op = OpEqualGlob
		}
	}

	if err := scanSlot(sc, a); err != nil {
		return nil, err
	}

	if sc.Accept("[") {
		deps, err := scanUseDeps(sc)
		if err != nil {
			return nil, err
		}
		a.useDeps = deps
	}

	if sc.Accept("::") {
		repoStart := sc.Pos()
		a.repo = sc.AcceptRun(repoChar)
		if off := badRepo(a.repo); off >= 0 {
			return nil, sc.ErrorAt(repoStart+off, "repository name", "")
		}
	}

	return a, nil
}

func scanSlot(sc *grammar.Scanner, a *Atom) error {
	if !sc.HasPrefix(":") || sc.HasPrefix("::") {
		return nil
	}
	sc.Advance(1)

	switch {
	case sc.Accept("*"):
		a.slotOp = SlotOpStar
		return nil
	case sc.Accept("="):
		a.slotOp = SlotOpEqual
		return nil
	}

	start := sc.Pos()
	a.slot = sc.AcceptRun(categoryChar)
	if off := badCategory(a.slot); off >= 0 {
		return sc.ErrorAt(start+off, "slot name, '*' or '='", "")
	}
	if sc.Accept("/") {
		start = sc.Pos()
		a.subslot = sc.AcceptRun(categoryChar)
		if off := badCategory(a.subslot); off >= 0 {
			return sc.ErrorAt(start+off, "subslot name", "")
		}
	}
	if sc.Accept("=") {
		a.slotOp = SlotOpEqual
	}
	return nil
}

// Blocker returns the blocker strength.
func (a *Atom) Blocker() Blocker { return a.blocker }

// Op returns the version operator.
func (a *Atom) Op() Operator { return a.op }

// Category returns the category name.
func (a *Atom) Category() string { return a.category }

// Package returns the package name.
func (a *Atom) Package() string { return a.pkg }

// Key returns "category/package".
func (a *Atom) Key() string { return a.category + "/" + a.pkg }

// Version returns the version and whether the atom has one.
func (a *Atom) Version() (version.Version, bool) {
	return a.version, !a.version.IsZero()
}

// Slot returns the slot name, or the empty string.
func (a *Atom) Slot() string { return a.slot }

// Subslot returns the subslot name, or the empty string.
func (a *Atom) Subslot() string { return a.subslot }

// SlotOp returns the slot operator.
func (a *Atom) SlotOp() SlotOp { return a.slotOp }

// UseDeps returns the USE dependencies in declaration order.
func (a *Atom) UseDeps() []UseDep { return slices.Clone(a.useDeps) }

// Repo returns the repository qualifier, or the empty string.
func (a *Atom) Repo() string { return a.repo }

// IsBlocker reports whether the atom is a weak or strong blocker.
func (a *Atom) IsBlocker() bool { return a.blocker != BlockerNone }

// CPV returns the atom's CPV when it carries a version.
func (a *Atom) CPV() (CPV, bool) {
	if a.version.IsZero() {
		return CPV{}, false
	}
	return CPV{Category: a.category, Package: a.pkg, Version: a.version}, true
}

// Unblocked returns a copy of the atom without its blocker.
func (a *Atom) Unblocked() *Atom {
	c := *a
	c.blocker = BlockerNone
	return &c
}

// String renders the atom. Parsing the result yields an equal atom.
func (a *Atom) String() string {
	var b strings.Builder
	b.WriteString(a.blocker.String())
	b.WriteString(a.op.String())
	b.WriteString(a.category)
	b.WriteByte('/')
	b.WriteString(a.pkg)
	if !a.version.IsZero() {
		b.WriteByte('-')
		b.WriteString(a.version.String())
		if a.op == OpEqualGlob {
			b.WriteByte('*')
		}
	}
	switch {
	case a.slot != "":
		b.WriteByte(':')
		b.WriteString(a.slot)
		if a.subslot != "" {
			b.WriteByte('/')
			b.WriteString(a.subslot)
		}
		if a.slotOp == SlotOpEqual {
			b.WriteByte('=')
		}
	case a.slotOp != SlotOpNone:
		b.WriteByte(':')
		b.WriteString(a.slotOp.String())
	}
	if len(a.useDeps) > 0 {
		b.WriteByte('[')
		for i, u := range a.useDeps {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(u.String())
		}
		b.WriteByte(']')
	}
	if a.repo != "" {
		b.WriteString("::")
		b.WriteString(a.repo)
	}
	return b.String()
}

// Equal reports whether two atoms are the same specifier. Versions compare
// by value, so "=a/b-1.0" equals "=a/b-1.0-r0".
func (a *Atom) Equal(o *Atom) bool {
	return a.Compare(o) == 0
}

// Compare orders atoms by key, version, slot, subslot, repository, operator,
// blocker and USE dependencies. The order is stable and total, which is all
// sorting for display needs.
func (a *Atom) Compare(o *Atom) int {
	if c := strings.Compare(a.category, o.category); c != 0 {
		return c
	}
	if c := strings.Compare(a.pkg, o.pkg); c != 0 {
		return c
	}
	switch av, ov := a.version.IsZero(), o.version.IsZero(); {
	case av && !ov:
		return -1
	case !av && ov:
		return 1
	case !av:
		if c := a.version.Compare(o.version); c != 0 {
			return c
		}
	}
	for _, c := range []int{
		strings.Compare(a.slot, o.slot),
		strings.Compare(a.subslot, o.subslot),
		int(a.slotOp) - int(o.slotOp),
		strings.Compare(a.repo, o.repo),
		int(a.op) - int(o.op),
		int(a.blocker) - int(o.blocker),
	} {
		if c != 0 {
			return sign(c)
		}
	}
	return slices.CompareFunc(a.useDeps, o.useDeps, func(x, y UseDep) int {
		return strings.Compare(x.String(), y.String())
	})
}

func sign(c int) int {
	switch {
	case c < 0:
		return -1
	case c > 0:
		return 1
	default:
		return 0
	}
}
