// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"errors"
	"strings"

	"pkgkit/pkg/atom"
)

// ErrUnresolvable is the sentinel error wrapped by UnresolvableError.
var ErrUnresolvable = errors.New("unresolvable dependency")

// UnresolvableError reports a dependency that no candidate satisfies, or a
// choice group whose alternatives all failed.
type UnresolvableError struct {
	// Atom is the failing leaf; nil when a group failed.
	Atom *atom.Atom
	// Group is the rendered group when a group failed.
	Group  string
	Reason string
	// Err is the failure of the last alternative tried, if any.
	Err error
}

// Error implements the error interface.
func (e *UnresolvableError) Error() string {
	var b strings.Builder
	b.WriteString("unresolvable dependency ")
	switch {
	case e.Atom != nil:
		b.WriteString(e.Atom.String())
	default:
		b.WriteString(e.Group)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes ErrUnresolvable and the cause.
func (e *UnresolvableError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUnresolvable}
	}
	return []error{ErrUnresolvable, e.Err}
}

func unresolvable(a *atom.Atom, reason string, cause error) error {
	return &UnresolvableError{Atom: a, Reason: reason, Err: cause}
}
