// SPDX-License-Identifier: MPL-2.0

package metadata

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/syntax"

	"pkgkit/pkg/atom"
)

// phasePrefixes are the function name prefixes of package phase functions.
var phasePrefixes = []string{"src_", "pkg_"}

// Extract reads metadata from a build script without running it. Only
// top-level assignments whose values expand statically are honored; the
// expansion environment starts with the standard package variables (P, PN,
// PV, PR, PVR, PF, CATEGORY) and grows with each assignment. The inherit
// command contributes INHERITED and top-level phase function definitions
// contribute DEFINED_PHASES.
func Extract(cpv atom.CPV, repo string, script []byte, opts ...Option) (*Package, error) {
	file, err := syntax.NewParser(syntax.Variant(syntax.LangBash)).Parse(bytes.NewReader(script), cpv.PV()+".ebuild")
	if err != nil {
		return nil, &ParseError{CPV: cpv.String(), Err: fmt.Errorf("build script syntax: %w", err)}
	}

	env := packageEnv(cpv)
	cfg := &expand.Config{Env: expand.FuncEnviron(func(name string) string { return env[name] })}

	values := make(map[Key]string)
	var inherited, phases []string

	for _, stmt := range file.Stmts {
		switch cmd := stmt.Cmd.(type) {
		case *syntax.CallExpr:
			if len(cmd.Args) == 0 {
				for _, as := range cmd.Assigns {
					assign(cfg, env, values, as)
				}
				continue
			}
			if name := cmd.Args[0].Lit(); name == "inherit" {
				for _, w := range cmd.Args[1:] {
					if s, err := expand.Literal(cfg, w); err == nil {
						inherited = append(inherited, strings.Fields(s)...)
					}
				}
			}
		case *syntax.FuncDecl:
			name := cmd.Name.Value
			for _, prefix := range phasePrefixes {
				if strings.HasPrefix(name, prefix) {
					phases = append(phases, strings.TrimPrefix(name, prefix))
				}
			}
		}
	}

	if len(inherited) > 0 {
		values[KeyInherit] = strings.Join(inherited, " ")
	}
	if len(phases) > 0 {
		values[KeyDefinedPhases] = strings.Join(phases, " ")
	}

	return build(cpv, repo, values, Fingerprint(script), collect(opts))
}

// assign records one top-level assignment. Array assignments and values that
// need command substitution or arithmetic are skipped.
func assign(cfg *expand.Config, env map[string]string, values map[Key]string, as *syntax.Assign) {
	if as.Name == nil || as.Array != nil || as.Index != nil || as.Naked {
		return
	}
	name := as.Name.Value

	value := ""
	if as.Value != nil {
		s, err := expand.Literal(cfg, as.Value)
		if err != nil {
			slog.Debug("skipping non-static assignment", "name", name, "error", err)
			return
		}
		value = s
	}
	if as.Append {
		value = env[name] + value
	}

	env[name] = value
	if knownKeys[Key(name)] {
		values[Key(name)] = strings.Join(strings.Fields(value), " ")
	}
}

func packageEnv(cpv atom.CPV) map[string]string {
	v := cpv.Version
	pv := v.Base().String()
	pr := "r" + v.Revision()
	pvr := pv
	if v.HasRevision() {
		pvr = v.String()
	}
	return map[string]string{
		"CATEGORY": cpv.Category,
		"PN":       cpv.Package,
		"PV":       pv,
		"PR":       pr,
		"PVR":      pvr,
		"P":        cpv.Package + "-" + pv,
		"PF":       cpv.Package + "-" + pvr,
	}
}
