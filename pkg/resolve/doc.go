// SPDX-License-Identifier: MPL-2.0

// Package resolve answers package queries against an ordered set of
// repositories.
//
// Query picks packages for a single atom. Resolve satisfies a dependency tree
// depth-first: any-of and exactly-one-of groups take the first alternative
// whose subtree, together with everything after it, resolves; a leaf takes
// the best candidate that keeps the rest of the tree resolvable. Resolve only
// looks at the tree it is given. ResolveDeep repeats the search through the
// dependencies of every chosen package and orders the result for merging.
package resolve
