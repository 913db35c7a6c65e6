// SPDX-License-Identifier: MPL-2.0

// Package restrict builds predicates over package metadata and parses them
// from a small query language used by package search.
//
// Restrictions compose with And, Or, Xor and Not. The query grammar is:
//
//	query   = term { op term }          op is one of && || ^^
//	term    = "!" term | "(" query ")" | expr
//	expr    = attr "is None"
//	        | attr cmp string
//	        | list "contains" [ "==" | "=~" ] string
//	        | "maintainers contains" [ "!" ] field ( "is None" | cmp string )
//	        | "atom" ( "==" | "!=" ) string
//	cmp     = "==" | "!=" | "=~" | "!~"
//	string  = '"' chars '"' | "'" chars "'"
//
// One query level uses a single operator; mixing && with || needs
// parentheses. Strings are non-empty and have no escapes. Regular
// expressions use RE2 syntax and match anywhere in the value.
//
// Single-valued attributes are category, package, version, repo, eapi,
// description, slot, subslot and long_description. List attributes are
// homepage, keywords, inherited, defined_phases and iuse. Maintainer fields
// are email, name, description, type and proxied.
//
//	slot == "0" && keywords contains "amd64"
//	(description =~ "(?i)crypto" || maintainers contains email == "crypto@example.org")
package restrict
