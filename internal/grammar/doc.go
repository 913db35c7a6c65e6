// SPDX-License-Identifier: MPL-2.0

// Package grammar provides the small recursive-descent toolkit shared by the
// version, atom, and dependency-expression parsers.
//
// All three grammars are written against the same Scanner and character
// classes so that an atom embedded in a dependency string is accepted by
// exactly the same rules as a standalone atom. Failures are reported as
// *SyntaxError values carrying the byte offset and a description of the
// token that was expected, which is enough to render a caret diagnostic.
package grammar
