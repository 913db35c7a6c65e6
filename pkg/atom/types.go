// SPDX-License-Identifier: MPL-2.0

package atom

import (
	"errors"
	"fmt"

	"pkgkit/internal/grammar"
)

// ErrInvalidAtom is the sentinel error wrapped by InvalidAtomError.
var ErrInvalidAtom = errors.New("invalid atom")

// Version operators.
const (
	OpNone Operator = iota
	OpLess
	OpLessOrEqual
	OpEqual
	OpApproximate
	OpGreaterOrEqual
	OpGreater
	// OpEqualGlob is "=" with a trailing "*" after the version.
	OpEqualGlob
)

// Blocker strengths.
const (
	BlockerNone Blocker = iota
	BlockerWeak
	BlockerStrong
)

// Slot operators.
const (
	SlotOpNone SlotOp = iota
	// SlotOpEqual is ":=" or ":slot=", rebuild on slot/subslot change.
	SlotOpEqual
	// SlotOpStar is ":*", any slot and no rebuild.
	SlotOpStar
)

type (
	// Operator is the version comparison requested by an atom.
	Operator int

	// Blocker marks an atom as a negative dependency.
	Blocker int

	// SlotOp is the slot operator of an atom.
	SlotOp int

	// InvalidAtomError is returned when a string is not a valid atom or CPV.
	InvalidAtomError struct {
		Value  string
		Syntax *grammar.SyntaxError
	}
)

var operatorStrings = map[Operator]string{
	OpNone:           "",
	OpLess:           "<",
	OpLessOrEqual:    "<=",
	OpEqual:          "=",
	OpApproximate:    "~",
	OpGreaterOrEqual: ">=",
	OpGreater:        ">",
	OpEqualGlob:      "=",
}

// String returns the operator as written in an atom. OpEqualGlob renders as
// "=" since its "*" follows the version.
func (o Operator) String() string { return operatorStrings[o] }

// String returns "!", "!!" or the empty string.
func (b Blocker) String() string {
	switch b {
	case BlockerWeak:
		return "!"
	case BlockerStrong:
		return "!!"
	default:
		return ""
	}
}

// Name returns a human readable name for the blocker strength.
func (b Blocker) Name() string {
	switch b {
	case BlockerWeak:
		return "weak"
	case BlockerStrong:
		return "strong"
	default:
		return "none"
	}
}

// String returns "=", "*" or the empty string.
func (s SlotOp) String() string {
	switch s {
	case SlotOpEqual:
		return "="
	case SlotOpStar:
		return "*"
	default:
		return ""
	}
}

// Error implements the error interface.
func (e *InvalidAtomError) Error() string {
	if e.Syntax != nil {
		return e.Syntax.Error()
	}
	return fmt.Sprintf("invalid atom %q", e.Value)
}

// Unwrap exposes both ErrInvalidAtom and the positional syntax error.
func (e *InvalidAtomError) Unwrap() []error {
	if e.Syntax == nil {
		return []error{ErrInvalidAtom}
	}
	return []error{ErrInvalidAtom, e.Syntax}
}
