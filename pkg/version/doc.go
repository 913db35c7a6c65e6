// SPDX-License-Identifier: MPL-2.0

// Package version parses and orders package version strings.
//
// The accepted syntax is
//
//	digits('.'digits)*[a-z]?('_'suffix digits?)*('-r'digits)?
//
// where suffix is one of alpha, beta, pre, rc or p. Versions are ordered by
// the distribution rules rather than by semantic versioning: numeric
// components compare as integers except that a component with a leading zero
// compares as a decimal fraction, a shorter component list sorts first, the
// pre-release suffixes sort before the bare version while _p sorts after it,
// and an absent revision equals -r0.
package version
