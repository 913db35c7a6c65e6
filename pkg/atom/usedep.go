// SPDX-License-Identifier: MPL-2.0

package atom

import (
	"pkgkit/internal/grammar"
)

// USE dependency kinds.
const (
	// UseEnabled is "flag": the flag must be enabled.
	UseEnabled UseDepKind = iota
	// UseDisabled is "-flag": the flag must be disabled.
	UseDisabled
	// UseEqual is "flag=": same state as in the depending package.
	UseEqual
	// UseNotEqual is "!flag=": opposite state to the depending package.
	UseNotEqual
	// UseEnabledIf is "flag?": enabled if enabled in the depending package.
	UseEnabledIf
	// UseDisabledIf is "!flag?": disabled if disabled in the depending package.
	UseDisabledIf
)

// Defaults applied when the target package does not declare the flag.
const (
	UseDefaultNone UseDefault = iota
	UseDefaultEnabled
	UseDefaultDisabled
)

type (
	// UseDepKind is the form of a USE dependency.
	UseDepKind int

	// UseDefault is the "(+)" or "(-)" marker of a USE dependency.
	UseDefault int

	// UseDep is one entry of an atom's "[...]" USE dependency list.
	UseDep struct {
		Flag    string
		Kind    UseDepKind
		Default UseDefault
	}

	// Flags reports the USE state of the package that holds a dependency.
	Flags interface {
		Enabled(flag string) bool
	}
)

// Conditional reports whether the dependency depends on the flags of the
// depending package and must be evaluated before matching.
func (u UseDep) Conditional() bool {
	return u.Kind >= UseEqual
}

// String renders the USE dependency.
func (u UseDep) String() string {
	var prefix, suffix string
	switch u.Kind {
	case UseDisabled:
		prefix = "-"
	case UseEqual:
		suffix = "="
	case UseNotEqual:
		prefix, suffix = "!", "="
	case UseEnabledIf:
		suffix = "?"
	case UseDisabledIf:
		prefix, suffix = "!", "?"
	}
	var def string
	switch u.Default {
	case UseDefaultEnabled:
		def = "(+)"
	case UseDefaultDisabled:
		def = "(-)"
	}
	return prefix + u.Flag + def + suffix
}

// scanUseDeps parses the comma separated list after an opening '['. It
// consumes the closing ']'.
func scanUseDeps(sc *grammar.Scanner) ([]UseDep, error) {
	var deps []UseDep
	for {
		u, err := scanUseDep(sc)
		if err != nil {
			return nil, err
		}
		deps = append(deps, u)
		if sc.Accept("]") {
			return deps, nil
		}
		if !sc.Accept(",") {
			return nil, sc.Errorf("',' or ']'")
		}
	}
}

func scanUseDep(sc *grammar.Scanner) (UseDep, error) {
	var u UseDep
	negated := sc.Accept("!")
	disabled := !negated && sc.Accept("-")

	start := sc.Pos()
	if !sc.AcceptByte(useStart) {
		return u, sc.Errorf("USE flag name")
	}
	sc.AcceptRun(useChar)
	u.Flag = sc.Input()[start:sc.Pos()]

	switch {
	case sc.Accept("(+)"):
		u.Default = UseDefaultEnabled
	case sc.Accept("(-)"):
		u.Default = UseDefaultDisabled
	}

	switch {
	case negated:
		switch {
		case sc.Accept("="):
			u.Kind = UseNotEqual
		case sc.Accept("?"):
			u.Kind = UseDisabledIf
		default:
			return u, sc.Errorf("'=' or '?' after negated USE flag")
		}
	case disabled:
		u.Kind = UseDisabled
	case sc.Accept("="):
		u.Kind = UseEqual
	case sc.Accept("?"):
		u.Kind = UseEnabledIf
	default:
		u.Kind = UseEnabled
	}
	return u, nil
}

// EvaluateUseDeps resolves conditional USE dependencies against the flags
// of the depending package and returns an atom holding only UseEnabled and
// UseDisabled entries. Atoms without conditional entries are returned as is.
func (a *Atom) EvaluateUseDeps(parent Flags) *Atom {
	conditional := false
	for _, u := range a.useDeps {
		if u.Conditional() {
			conditional = true
			break
		}
	}
	if !conditional {
		return a
	}

	deps := make([]UseDep, 0, len(a.useDeps))
	for _, u := range a.useDeps {
		on := parent.Enabled(u.Flag)
		switch u.Kind {
		case UseEnabled, UseDisabled:
		case UseEqual:
			u.Kind = pick(on, UseEnabled, UseDisabled)
		case UseNotEqual:
			u.Kind = pick(on, UseDisabled, UseEnabled)
		case UseEnabledIf:
			if !on {
				continue
			}
			u.Kind = UseEnabled
		case UseDisabledIf:
			if on {
				continue
			}
			u.Kind = UseDisabled
		}
		deps = append(deps, u)
	}

	c := *a
	c.useDeps = nil
	if len(deps) > 0 {
		c.useDeps = deps
	}
	return &c
}

func pick(cond bool, yes, no UseDepKind) UseDepKind {
	if cond {
		return yes
	}
	return no
}
