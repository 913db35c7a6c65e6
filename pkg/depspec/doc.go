// SPDX-License-Identifier: MPL-2.0

// Package depspec models dependency expressions as trees.
//
// The same tree type serves every metadata key that uses the group syntax:
// dependency classes hold *atom.Atom leaves, LICENSE, RESTRICT and PROPERTIES
// hold plain strings, and REQUIRED_USE holds UseFlag leaves. The text form is
// a whitespace separated token stream:
//
//	a/b                    leaf
//	( ... )                all of
//	|| ( ... )             any of
//	^^ ( ... )             exactly one of
//	?? ( ... )             at most one of
//	flag? ( ... )          children apply when flag is enabled
//	!flag? ( ... )         children apply when flag is disabled
//
// Groups may not be empty and nesting is limited to a configurable depth so
// that hostile input cannot exhaust the stack of later tree walks.
package depspec
