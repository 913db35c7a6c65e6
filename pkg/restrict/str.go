// SPDX-License-Identifier: MPL-2.0

package restrict

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

const (
	strEqual strKind = iota
	strPrefix
	strSuffix
	strSubstr
	strRegex
	strLength
)

type (
	strKind int

	// Str is a restriction on a single string.
	Str struct {
		kind strKind
		s    string
		re   *regexp.Regexp
		n    int
		ords []int
	}
)

// Equal matches s exactly.
func Equal(s string) Str { return Str{kind: strEqual, s: s} }

// Prefix matches strings starting with s.
func Prefix(s string) Str { return Str{kind: strPrefix, s: s} }

// Suffix matches strings ending with s.
func Suffix(s string) Str { return Str{kind: strSuffix, s: s} }

// Substr matches strings containing s.
func Substr(s string) Str { return Str{kind: strSubstr, s: s} }

// Regex matches strings containing a match of the RE2 pattern.
func Regex(pattern string) (Str, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Str{}, fmt.Errorf("invalid regex %q: %w", pattern, err)
	}
	return Str{kind: strRegex, s: pattern, re: re}, nil
}

// Length matches strings whose byte length, compared with n as by
// cmp.Compare, gives one of orderings (-1, 0 or 1). Length(3, 0, 1)
// matches strings at least three bytes long.
func Length(n int, orderings ...int) Str {
	ords := slices.Clone(orderings)
	slices.Sort(ords)
	return Str{kind: strLength, n: n, ords: slices.Compact(ords)}
}

// Matches reports whether v satisfies the restriction.
func (r Str) Matches(v string) bool {
	switch r.kind {
	case strEqual:
		return v == r.s
	case strPrefix:
		return strings.HasPrefix(v, r.s)
	case strSuffix:
		return strings.HasSuffix(v, r.s)
	case strSubstr:
		return strings.Contains(v, r.s)
	case strRegex:
		return r.re.MatchString(v)
	case strLength:
		return slices.Contains(r.ords, cmp.Compare(len(v), r.n))
	}
	return false
}

// String renders the operator and operand, e.g. `== "0"` or `=~ "^lib"`.
func (r Str) String() string {
	q := quote(r.s)
	switch r.kind {
	case strEqual:
		return "== " + q
	case strPrefix:
		return "prefix " + q
	case strSuffix:
		return "suffix " + q
	case strSubstr:
		return "substr " + q
	case strRegex:
		return "=~ " + q
	case strLength:
		return "len " + lengthOp(r.ords) + " " + strconv.Itoa(r.n)
	}
	return "?"
}

func lengthOp(ords []int) string {
	switch fmt.Sprint(ords) {
	case "[-1]":
		return "<"
	case "[-1 0]":
		return "<="
	case "[0]":
		return "=="
	case "[-1 1]":
		return "!="
	case "[0 1]":
		return ">="
	case "[1]":
		return ">"
	case "[-1 0 1]":
		return "any"
	}
	return "none"
}
