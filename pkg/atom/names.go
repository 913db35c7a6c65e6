// SPDX-License-Identifier: MPL-2.0

package atom

import (
	"strings"

	"pkgkit/internal/grammar"
	"pkgkit/pkg/version"
)

var (
	nameStart    = grammar.Or(grammar.Alnum, grammar.Set("_"))
	categoryChar = grammar.Or(grammar.Alnum, grammar.Set("+_.-"))
	packageChar  = grammar.Or(grammar.Alnum, grammar.Set("+_-"))
	useStart     = grammar.Alnum
	useChar      = grammar.Or(grammar.Alnum, grammar.Set("+_@-"))
	repoChar     = grammar.Or(grammar.Alnum, grammar.Set("_-"))

	// pvChar covers both package names and versions; the run is split into
	// the two afterwards.
	pvChar = grammar.Or(grammar.Alnum, grammar.Set("+_.-"))
)

// ValidCategory reports whether s is a valid category name.
func ValidCategory(s string) bool {
	return badCategory(s) < 0
}

// ValidPackage reports whether s is a valid package name.
func ValidPackage(s string) bool {
	return badPackage(s) < 0
}

// ValidUseFlag reports whether s is a valid USE flag name.
func ValidUseFlag(s string) bool {
	return s != "" && useStart(s[0]) && useChar.All(s)
}

// ValidSlot reports whether s is a valid slot or subslot name.
func ValidSlot(s string) bool {
	return ValidCategory(s)
}

// ValidRepo reports whether s is a valid repository name.
func ValidRepo(s string) bool {
	return badRepo(s) < 0
}

// badCategory returns the offset of the first invalid byte in a category
// name, or -1 when the name is valid.
func badCategory(s string) int {
	if s == "" || !nameStart(s[0]) {
		return 0
	}
	for i := 1; i < len(s); i++ {
		if !categoryChar(s[i]) {
			return i
		}
	}
	return -1
}

// badPackage returns the offset of the first invalid part of a package name,
// or -1 when the name is valid. A name may not end in a hyphen followed by
// something that parses as a version.
func badPackage(s string) int {
	if s == "" || !nameStart(s[0]) {
		return 0
	}
	for i := 1; i < len(s); i++ {
		if !packageChar(s[i]) {
			return i
		}
	}
	for i := 0; i < len(s); i++ {
		if s[i] == '-' && version.Valid(s[i+1:]) {
			return i
		}
	}
	return -1
}

func badRepo(s string) int {
	if s == "" || !nameStart(s[0]) {
		return 0
	}
	for i := 1; i < len(s); i++ {
		if !repoChar(s[i]) {
			return i
		}
	}
	for i := 0; i < len(s); i++ {
		if s[i] == '-' && version.Valid(s[i+1:]) {
			return i
		}
	}
	return -1
}

// splitPV splits "name-version" at the leftmost hyphen whose remainder is a
// complete version and whose prefix is a valid package name. It returns the
// hyphen offset, or -1.
func splitPV(s string) (string, version.Version, int) {
	for i := strings.IndexByte(s, '-'); i >= 0; {
		if v, err := version.Parse(s[i+1:]); err == nil && badPackage(s[:i]) < 0 {
			return s[:i], v, i
		}
		next := strings.IndexByte(s[i+1:], '-')
		if next < 0 {
			break
		}
		i += next + 1
	}
	return "", version.Version{}, -1
}
