// SPDX-License-Identifier: MPL-2.0

package atom

import (
	"strings"

	"pkgkit/internal/grammar"
	"pkgkit/pkg/version"
)

// CPV identifies one concrete package: category, package name and version.
type CPV struct {
	Category string
	Package  string
	Version  version.Version
}

// ParseCPV parses "category/package-version".
func ParseCPV(s string) (CPV, error) {
	sc := grammar.NewScanner("cpv", s)

	category := sc.AcceptRun(categoryChar)
	if off := badCategory(category); off >= 0 {
		return CPV{}, invalid(s, sc.ErrorAt(off, "category name", ""))
	}
	if err := sc.Expect("/"); err != nil {
		return CPV{}, invalid(s, err)
	}

	pvStart := sc.Pos()
	pv := sc.AcceptRun(pvChar)
	name, v, hyphen := splitPV(pv)
	if hyphen < 0 {
		return CPV{}, invalid(s, sc.ErrorAt(pvStart, "package name followed by -version", ""))
	}
	if err := sc.ExpectEOF(); err != nil {
		return CPV{}, invalid(s, err)
	}
	return CPV{Category: category, Package: name, Version: v}, nil
}

// MustParseCPV is like ParseCPV but panics on invalid input.
func MustParseCPV(s string) CPV {
	c, err := ParseCPV(s)
	if err != nil {
		panic(err)
	}
	return c
}

// String returns "category/package-version".
func (c CPV) String() string {
	return c.Category + "/" + c.PV()
}

// PV returns "package-version".
func (c CPV) PV() string {
	return c.Package + "-" + c.Version.String()
}

// Key returns "category/package".
func (c CPV) Key() string {
	return c.Category + "/" + c.Package
}

// IsZero reports whether c is the zero CPV.
func (c CPV) IsZero() bool {
	return c.Category == "" && c.Package == "" && c.Version.IsZero()
}

// Compare orders CPVs by category, package name and then version.
func (c CPV) Compare(o CPV) int {
	if r := strings.Compare(c.Category, o.Category); r != 0 {
		return r
	}
	if r := strings.Compare(c.Package, o.Package); r != 0 {
		return r
	}
	return c.Version.Compare(o.Version)
}

// CompareCPV is the function form of CPV.Compare for slices.SortFunc.
func CompareCPV(a, b CPV) int { return a.Compare(b) }
