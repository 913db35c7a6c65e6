// SPDX-License-Identifier: MPL-2.0

// Package atom parses package specifiers ("atoms") and matches them against
// packages.
//
// The atom syntax is
//
//	[!|!!][op]category/package[-version][*][:slot[/subslot][=] | :* | :=][[use,...]][::repo]
//
// where op is one of <, <=, =, ~, >=, > and a trailing * after the version is
// only valid with =. A CPV is the fully qualified category/package-version
// identity of a concrete package.
package atom
