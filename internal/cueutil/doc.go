// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates CUE documents against an embedded schema and
// decodes them into Go values.
//
// Every caller follows the same three steps: compile the schema, unify the
// user document with one of its definitions, then validate and decode.
//
//	//go:embed config_schema.cue
//	var schema []byte
//
//	result, err := cueutil.ParseAndDecode[map[string]any](
//	    schema, data, "#Config",
//	    cueutil.Named(path),
//	    cueutil.Partial(),
//	)
//
// Errors carry the CUE path of the offending field, e.g.
// "config.cue: repos[0].priority: conflicting values".
package cueutil
