// SPDX-License-Identifier: MPL-2.0

package depspec

import (
	"iter"
	"slices"
)

// Unknown flag policies for Evaluate.
const (
	// UnknownFlagsDisabled treats a flag outside the known universe as
	// disabled, so "!flag? ( ... )" applies and "flag? ( ... )" does not.
	UnknownFlagsDisabled UnknownFlagPolicy = iota
	// UnknownFlagsDrop removes every use-conditional group on an unknown
	// flag, whatever its polarity.
	UnknownFlagsDrop
)

type (
	// FlagSet is the flag assignment a tree is evaluated against.
	FlagSet interface {
		// Enabled reports whether flag is enabled.
		Enabled(flag string) bool
		// Known reports whether flag belongs to the evaluation's flag
		// universe.
		Known(flag string) bool
	}

	// UnknownFlagPolicy selects how use-conditionals on unknown flags are
	// reduced.
	UnknownFlagPolicy int

	// EvalOption configures Evaluate.
	EvalOption func(*evalOptions)

	evalOptions struct {
		unknown  UnknownFlagPolicy
		defaults map[string]bool
	}
)

// WithUnknownFlags selects the policy for flags outside the known universe.
func WithUnknownFlags(p UnknownFlagPolicy) EvalOption {
	return func(o *evalOptions) { o.unknown = p }
}

// WithDefaultFlags lists unknown flags that evaluate as enabled instead of
// falling under the unknown flag policy.
func WithDefaultFlags(flags ...string) EvalOption {
	return func(o *evalOptions) {
		if o.defaults == nil {
			o.defaults = make(map[string]bool, len(flags))
		}
		for _, f := range flags {
			o.defaults[f] = true
		}
	}
}

// Evaluate resolves every use-conditional group against flags. A group whose
// condition holds is replaced by its children; inside an any-of, exactly-one-of
// or at-most-one-of group the children are kept together as one all-of
// alternative. Groups left empty by the reduction are removed, since an empty
// group is trivially satisfied. Evaluating an already reduced tree returns an
// equal tree.
func (t Tree[T]) Evaluate(flags FlagSet, opts ...EvalOption) Tree[T] {
	var o evalOptions
	for _, opt := range opts {
		opt(&o)
	}
	return Tree[T](evaluateChildren(t, flags, &o))
}

// evaluateChildren reduces nodes bottom-up. Each frame collects the reduced
// children of one group; kind is the group a use-conditional's children are
// spliced into.
func evaluateChildren[T any](nodes []*Node[T], flags FlagSet, o *evalOptions) []*Node[T] {
	type frame struct {
		owner *Node[T]
		kind  Kind
		nodes []*Node[T]
		next  int
		out   []*Node[T]
	}
	stack := []*frame{{kind: KindAllOf, nodes: nodes}}
	for {
		f := stack[len(stack)-1]
		if f.next < len(f.nodes) {
			n := f.nodes[f.next]
			f.next++
			switch {
			case n.Kind == KindLeaf:
				f.out = append(f.out, n)
			case n.Kind.IsUseConditional():
				if applies(n, flags, o) {
					stack = append(stack, &frame{owner: n, kind: KindAllOf, nodes: n.Children})
				}
			default:
				stack = append(stack, &frame{owner: n, kind: n.Kind, nodes: n.Children})
			}
			continue
		}

		stack = stack[:len(stack)-1]
		if f.owner == nil {
			return f.out
		}
		parent := stack[len(stack)-1]
		children := f.out
		if !f.owner.Kind.IsUseConditional() {
			if len(children) > 0 {
				parent.out = append(parent.out, &Node[T]{Kind: f.owner.Kind, Children: children})
			}
			continue
		}
		switch {
		case len(children) == 0:
		case parent.kind == KindAllOf:
			parent.out = append(parent.out, children...)
		case len(children) == 1:
			parent.out = append(parent.out, children[0])
		default:
			parent.out = append(parent.out, AllOf(children...))
		}
	}
}

// applies reports whether a use-conditional group's condition holds.
func applies[T any](n *Node[T], flags FlagSet, o *evalOptions) bool {
	var on bool
	switch {
	case flags != nil && flags.Known(n.Flag):
		on = flags.Enabled(n.Flag)
	case o.defaults[n.Flag]:
		on = true
	case o.unknown == UnknownFlagsDrop:
		return false
	}
	return on != (n.Kind == KindUseDisabled)
}

// Leaves yields every leaf in depth-first declaration order, including those
// under unreduced conditionals and choice groups. The walk uses an explicit
// stack.
func (t Tree[T]) Leaves() iter.Seq[T] {
	return func(yield func(T) bool) {
		stack := slices.Clone(t)
		slices.Reverse(stack)
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if n.Kind == KindLeaf {
				if !yield(n.Leaf) {
					return
				}
				continue
			}
			for i := len(n.Children) - 1; i >= 0; i-- {
				stack = append(stack, n.Children[i])
			}
		}
	}
}

// Flatten returns every leaf in depth-first declaration order. Blocker atoms
// are kept; callers separate them by inspecting the leaves.
func (t Tree[T]) Flatten() []T {
	return slices.Collect(t.Leaves())
}

// Choices yields each way of satisfying the tree: one child picked from every
// any-of and exactly-one-of group (or none from an at-most-one-of group),
// crossed with all children of all-of groups. Use-conditional groups are
// treated as all-of, so trees should be evaluated first. The product is
// computed lazily; stopping the iteration stops the enumeration. The walk
// recurses per group level: parsed trees are bounded by their depth limit,
// and hand-built trees deeper than DefaultMaxDepth yield nothing.
func (t Tree[T]) Choices() iter.Seq[[]T] {
	return func(yield func([]T) bool) {
		if t.Depth() > DefaultMaxDepth {
			return
		}
		product(t, nil, yield)
	}
}

func product[T any](nodes []*Node[T], prefix []T, yield func([]T) bool) bool {
	if len(nodes) == 0 {
		return yield(slices.Clone(prefix))
	}
	for alt := range alternatives(nodes[0]) {
		if !product(nodes[1:], append(prefix[:len(prefix):len(prefix)], alt...), yield) {
			return false
		}
	}
	return true
}

func alternatives[T any](n *Node[T]) iter.Seq[[]T] {
	return func(yield func([]T) bool) {
		switch n.Kind {
		case KindLeaf:
			yield([]T{n.Leaf})
		case KindAnyOf, KindExactlyOneOf, KindAtMostOneOf:
			if n.Kind == KindAtMostOneOf && !yield(nil) {
				return
			}
			for _, c := range n.Children {
				for alt := range alternatives(c) {
					if !yield(alt) {
						return
					}
				}
			}
		default:
			product(n.Children, nil, yield)
		}
	}
}
