// SPDX-License-Identifier: MPL-2.0

// Package metadata holds the parsed metadata of one package version and the
// codecs that produce it.
//
// Metadata comes from two sources. Repository metadata caches store one
// "KEY=value" line per key (the md5-cache layout); DecodeCache reads them.
// When no cache entry is available, Extract reads literal top-level
// assignments straight out of the package build script using a shell parser
// without executing anything; values that need evaluation (command
// substitution, eclass code) are left unset.
package metadata
