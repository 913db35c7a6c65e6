// SPDX-License-Identifier: MPL-2.0

package depspec

import (
	"errors"
	"fmt"
	"strings"

	"pkgkit/pkg/atom"
)

// ErrRequiredUse is the sentinel error wrapped by RequiredUseError.
var ErrRequiredUse = errors.New("REQUIRED_USE not satisfied")

type (
	// UseFlag is a REQUIRED_USE leaf: a flag that must be enabled, or
	// disabled when Negated.
	UseFlag struct {
		Name    string
		Negated bool
	}

	// RequiredUseError names the top-level REQUIRED_USE constraint that a
	// flag assignment violates.
	RequiredUseError struct {
		Constraint string
	}
)

// String renders the leaf.
func (u UseFlag) String() string {
	if u.Negated {
		return "!" + u.Name
	}
	return u.Name
}

// Error implements the error interface.
func (e *RequiredUseError) Error() string {
	return fmt.Sprintf("REQUIRED_USE not satisfied: %s", e.Constraint)
}

// Unwrap returns ErrRequiredUse.
func (e *RequiredUseError) Unwrap() error { return ErrRequiredUse }

func parseUseFlag(s string) (UseFlag, error) {
	u := UseFlag{Name: strings.TrimPrefix(s, "!")}
	u.Negated = len(u.Name) != len(s)
	if !atom.ValidUseFlag(u.Name) {
		return UseFlag{}, fmt.Errorf("invalid USE flag %q", s)
	}
	return u, nil
}

// CheckRequiredUse evaluates a REQUIRED_USE tree against flags and reports
// the first top-level constraint that does not hold.
func CheckRequiredUse(t Tree[UseFlag], flags FlagSet) error {
	for _, n := range t.Evaluate(flags) {
		if !satisfied(n, flags) {
			return &RequiredUseError{Constraint: n.String()}
		}
	}
	return nil
}

func satisfied(root *Node[UseFlag], flags FlagSet) bool {
	holds := func(u UseFlag) bool { return flags.Enabled(u.Name) != u.Negated }
	if root.Kind == KindLeaf {
		return holds(root.Leaf)
	}

	type frame struct {
		n     *Node[UseFlag]
		next  int
		count int
	}
	stack := []*frame{{n: root}}
	for {
		f := stack[len(stack)-1]
		if f.next < len(f.n.Children) {
			c := f.n.Children[f.next]
			f.next++
			switch {
			case c.Kind != KindLeaf:
				stack = append(stack, &frame{n: c})
			case holds(c.Leaf):
				f.count++
			}
			continue
		}

		stack = stack[:len(stack)-1]
		ok := groupHolds(f.n.Kind, f.count, len(f.n.Children))
		if len(stack) == 0 {
			return ok
		}
		if ok {
			stack[len(stack)-1].count++
		}
	}
}

// groupHolds reports whether a group with count of its children satisfied
// holds.
func groupHolds(kind Kind, count, children int) bool {
	switch kind {
	case KindAnyOf:
		return count > 0
	case KindExactlyOneOf:
		return count == 1
	case KindAtMostOneOf:
		return count <= 1
	default:
		return count == children
	}
}
