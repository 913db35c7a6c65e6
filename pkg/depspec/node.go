// SPDX-License-Identifier: MPL-2.0

package depspec

import (
	"fmt"
	"strings"
)

// Node kinds.
const (
	KindLeaf Kind = iota
	KindAllOf
	KindAnyOf
	KindExactlyOneOf
	KindAtMostOneOf
	KindUseEnabled
	KindUseDisabled
)

type (
	// Kind tags the variant held by a Node.
	Kind int

	// Node is one element of a dependency tree. Leaf nodes carry a value in
	// Leaf; use-conditional nodes carry the flag name in Flag; every other
	// kind only has Children. Trees returned by this package are never
	// mutated afterwards and may be shared between goroutines.
	Node[T any] struct {
		Kind     Kind
		Leaf     T
		Flag     string
		Children []*Node[T]
	}

	// Tree is a sequence of nodes that must all be satisfied.
	Tree[T any] []*Node[T]
)

// String returns a name for the kind.
func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindAllOf:
		return "all-of"
	case KindAnyOf:
		return "any-of"
	case KindExactlyOneOf:
		return "exactly-one-of"
	case KindAtMostOneOf:
		return "at-most-one-of"
	case KindUseEnabled:
		return "use-enabled"
	case KindUseDisabled:
		return "use-disabled"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// IsGroup reports whether nodes of this kind hold children.
func (k Kind) IsGroup() bool { return k != KindLeaf }

// IsUseConditional reports whether the kind is a use-conditional group.
func (k Kind) IsUseConditional() bool {
	return k == KindUseEnabled || k == KindUseDisabled
}

// The builders below do not bound nesting. String, Len, Depth, Evaluate
// and CheckRequiredUse walk trees with explicit stacks and accept any depth;
// Choices recurses once per group level, so a hand-built tree should be
// checked against DefaultMaxDepth with Depth before enumerating it.

// Leaf returns a leaf node.
func Leaf[T any](v T) *Node[T] {
	return &Node[T]{Kind: KindLeaf, Leaf: v}
}

// AllOf returns an all-of group.
func AllOf[T any](children ...*Node[T]) *Node[T] {
	return &Node[T]{Kind: KindAllOf, Children: children}
}

// AnyOf returns an any-of group.
func AnyOf[T any](children ...*Node[T]) *Node[T] {
	return &Node[T]{Kind: KindAnyOf, Children: children}
}

// ExactlyOneOf returns an exactly-one-of group.
func ExactlyOneOf[T any](children ...*Node[T]) *Node[T] {
	return &Node[T]{Kind: KindExactlyOneOf, Children: children}
}

// AtMostOneOf returns an at-most-one-of group.
func AtMostOneOf[T any](children ...*Node[T]) *Node[T] {
	return &Node[T]{Kind: KindAtMostOneOf, Children: children}
}

// UseEnabled returns a group that applies when flag is enabled.
func UseEnabled[T any](flag string, children ...*Node[T]) *Node[T] {
	return &Node[T]{Kind: KindUseEnabled, Flag: flag, Children: children}
}

// UseDisabled returns a group that applies when flag is disabled.
func UseDisabled[T any](flag string, children ...*Node[T]) *Node[T] {
	return &Node[T]{Kind: KindUseDisabled, Flag: flag, Children: children}
}

// String renders the node in dependency text form.
func (n *Node[T]) String() string {
	var b strings.Builder
	n.write(&b)
	return b.String()
}

func (n *Node[T]) write(b *strings.Builder) {
	type frame struct {
		n    *Node[T]
		next int
	}
	stack := []frame{{n: n, next: -1}}
	for len(stack) > 0 {
		f := &stack[len(stack)-1]
		if f.next < 0 {
			if f.n.Kind == KindLeaf {
				fmt.Fprint(b, f.n.Leaf)
				stack = stack[:len(stack)-1]
				continue
			}
			writeOpen(b, f.n)
			f.next = 0
		}
		if f.next == len(f.n.Children) {
			b.WriteString(" )")
			stack = stack[:len(stack)-1]
			continue
		}
		c := f.n.Children[f.next]
		f.next++
		b.WriteByte(' ')
		stack = append(stack, frame{n: c, next: -1})
	}
}

func writeOpen[T any](b *strings.Builder, n *Node[T]) {
	switch n.Kind {
	case KindAnyOf:
		b.WriteString("|| ")
	case KindExactlyOneOf:
		b.WriteString("^^ ")
	case KindAtMostOneOf:
		b.WriteString("?? ")
	case KindUseEnabled:
		b.WriteString(n.Flag + "? ")
	case KindUseDisabled:
		b.WriteString("!" + n.Flag + "? ")
	}
	b.WriteString("(")
}

// String renders the tree in dependency text form.
func (t Tree[T]) String() string {
	var b strings.Builder
	for i, n := range t {
		if i > 0 {
			b.WriteByte(' ')
		}
		n.write(&b)
	}
	return b.String()
}

// Len returns the number of leaves in the tree.
func (t Tree[T]) Len() int {
	n := 0
	for range t.Leaves() {
		n++
	}
	return n
}

// Depth returns the deepest group nesting in the tree. A tree of bare
// leaves has depth zero.
func (t Tree[T]) Depth() int {
	type item struct {
		n     *Node[T]
		depth int
	}
	stack := make([]item, 0, len(t))
	for _, n := range t {
		stack = append(stack, item{n: n, depth: 1})
	}
	deepest := 0
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if it.n.Kind == KindLeaf {
			continue
		}
		deepest = max(deepest, it.depth)
		for _, c := range it.n.Children {
			stack = append(stack, item{n: c, depth: it.depth + 1})
		}
	}
	return deepest
}
