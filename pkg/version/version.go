// SPDX-License-Identifier: MPL-2.0

package version

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"pkgkit/internal/grammar"
)

// ErrInvalidVersion is the sentinel error wrapped by InvalidVersionError.
var ErrInvalidVersion = errors.New("invalid version")

// Suffix kinds in ascending order.
const (
	Alpha SuffixKind = iota
	Beta
	Pre
	RC
	P
)

type (
	// SuffixKind is the kind of a version suffix. The numeric order of the
	// constants is the comparison order.
	SuffixKind int

	// Suffix is one "_kind[number]" element of a version.
	Suffix struct {
		Kind SuffixKind
		// Number holds the digits following the kind; empty means zero.
		Number string
	}

	// Version is a parsed version. The zero value is not a valid version;
	// construct values with Parse.
	Version struct {
		text     string
		baseLen  int
		numbers  []string
		letter   byte
		suffixes []Suffix
		revision string
	}

	// InvalidVersionError is returned when a string is not a valid version.
	InvalidVersionError struct {
		Value  string
		Syntax *grammar.SyntaxError
	}
)

// suffixNames is ordered so that "pre" is tried before "p".
var suffixNames = []struct {
	name string
	kind SuffixKind
}{
	{"alpha", Alpha},
	{"beta", Beta},
	{"pre", Pre},
	{"rc", RC},
	{"p", P},
}

// Error implements the error interface.
func (e *InvalidVersionError) Error() string {
	if e.Syntax != nil {
		return e.Syntax.Error()
	}
	return fmt.Sprintf("invalid version %q", e.Value)
}

// Unwrap exposes both ErrInvalidVersion and the positional syntax error.
func (e *InvalidVersionError) Unwrap() []error {
	if e.Syntax == nil {
		return []error{ErrInvalidVersion}
	}
	return []error{ErrInvalidVersion, e.Syntax}
}

// String returns the suffix kind name.
func (k SuffixKind) String() string {
	for _, s := range suffixNames {
		if s.kind == k {
			return s.name
		}
	}
	return fmt.Sprintf("SuffixKind(%d)", int(k))
}

// Parse parses a version string.
func Parse(s string) (Version, error) {
	sc := grammar.NewScanner("version", s)
	v, err := scan(sc)
	if err == nil {
		err = sc.ExpectEOF()
	}
	if err != nil {
		var se *grammar.SyntaxError
		errors.As(err, &se)
		return Version{}, &InvalidVersionError{Value: s, Syntax: se}
	}
	return v, nil
}

// MustParse is like Parse but panics on invalid input. It is intended for
// tests and package-level literals.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Valid reports whether s parses as a version.
func Valid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

func scan(sc *grammar.Scanner) (Version, error) {
	var v Version

	for {
		n := sc.AcceptRun(grammar.Digit)
		if n == "" {
			return Version{}, sc.Errorf("digit")
		}
		v.numbers = append(v.numbers, n)
		if !sc.Accept(".") {
			break
		}
	}

	if c := sc.Peek(); grammar.Lower(c) {
		v.letter = c
		sc.Advance(1)
	}

	for sc.Accept("_") {
		matched := false
		for _, s := range suffixNames {
			if sc.Accept(s.name) {
				v.suffixes = append(v.suffixes, Suffix{Kind: s.kind, Number: sc.AcceptRun(grammar.Digit)})
				matched = true
				break
			}
		}
		if !matched {
			return Version{}, sc.Errorf("suffix (alpha, beta, pre, rc, p)")
		}
	}

	v.baseLen = sc.Pos()
	if sc.Accept("-r") {
		v.revision = sc.AcceptRun(grammar.Digit)
		if v.revision == "" {
			return Version{}, sc.Errorf("revision digits")
		}
	}

	v.text = sc.Input()[:sc.Pos()]
	return v, nil
}

// String returns the version as originally written.
func (v Version) String() string { return v.text }

// IsZero reports whether v is the zero Version.
func (v Version) IsZero() bool { return len(v.numbers) == 0 }

// Numbers returns the numeric components as written.
func (v Version) Numbers() []string { return slices.Clone(v.numbers) }

// Letter returns the letter suffix, or 0 when absent.
func (v Version) Letter() byte { return v.letter }

// Suffixes returns the suffix list.
func (v Version) Suffixes() []Suffix { return slices.Clone(v.suffixes) }

// Revision returns the revision digits, "0" when the version has none.
func (v Version) Revision() string {
	if v.revision == "" {
		return "0"
	}
	return v.revision
}

// HasRevision reports whether the version was written with an explicit -rN.
func (v Version) HasRevision() bool { return v.revision != "" }

// Base returns v without its revision.
func (v Version) Base() Version {
	b := v
	b.text = v.text[:v.baseLen]
	b.revision = ""
	return b
}

// Compare returns -1, 0 or +1 depending on whether v sorts before, equal to,
// or after o.
func (v Version) Compare(o Version) int {
	if c := v.compareBase(o); c != 0 {
		return c
	}
	return compareInts(v.revision, o.revision)
}

// CompareBase compares v and o ignoring revisions.
func (v Version) CompareBase(o Version) int {
	return v.compareBase(o)
}

// Equal reports whether v and o compare equal. Equal versions may differ in
// text, e.g. "1.0" and "1.0-r0".
func (v Version) Equal(o Version) bool { return v.Compare(o) == 0 }

// Less reports whether v sorts before o.
func (v Version) Less(o Version) bool { return v.Compare(o) < 0 }

func (v Version) compareBase(o Version) int {
	if c := compareInts(v.numbers[0], o.numbers[0]); c != 0 {
		return c
	}

	shared := min(len(v.numbers), len(o.numbers))
	for i := 1; i < shared; i++ {
		if c := compareComponent(v.numbers[i], o.numbers[i]); c != 0 {
			return c
		}
	}
	if c := cmp.Compare(len(v.numbers), len(o.numbers)); c != 0 {
		return c
	}

	if c := cmp.Compare(v.letter, o.letter); c != 0 {
		return c
	}

	shared = min(len(v.suffixes), len(o.suffixes))
	for i := range shared {
		a, b := v.suffixes[i], o.suffixes[i]
		if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
			return c
		}
		if c := compareInts(a.Number, b.Number); c != 0 {
			return c
		}
	}
	switch {
	case len(v.suffixes) > shared:
		if v.suffixes[shared].Kind == P {
			return 1
		}
		return -1
	case len(o.suffixes) > shared:
		if o.suffixes[shared].Kind == P {
			return -1
		}
		return 1
	}

	return 0
}

// compareComponent compares a non-leading numeric component. Components with
// a leading zero compare as decimal fractions.
func compareComponent(a, b string) int {
	if a[0] == '0' || b[0] == '0' {
		return strings.Compare(strings.TrimRight(a, "0"), strings.TrimRight(b, "0"))
	}
	return compareInts(a, b)
}

// compareInts compares decimal digit strings by value without converting
// them, so arbitrarily long components never overflow. The empty string is
// zero.
func compareInts(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if c := cmp.Compare(len(a), len(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// Compare is the package-level form of Version.Compare, suitable for
// slices.SortFunc.
func Compare(a, b Version) int { return a.Compare(b) }

// Sort sorts versions in ascending order. Equal versions keep their relative
// order.
func Sort(vs []Version) {
	slices.SortStableFunc(vs, Compare)
}
