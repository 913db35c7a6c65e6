// SPDX-License-Identifier: MPL-2.0

package restrict

import (
	"fmt"
	"strings"
)

type (
	// Restrict is a predicate over values of type T. Restrictions hold no
	// mutable state and may be shared between goroutines.
	Restrict[T any] interface {
		Matches(v T) bool
		// String renders the restriction; restrictions built by Parse
		// render back into query text.
		String() string
	}

	boolean[T any] bool

	and[T any] []Restrict[T]
	or[T any]  []Restrict[T]
	xor[T any] []Restrict[T]

	not[T any] struct{ r Restrict[T] }

	fn[T any] struct {
		name string
		f    func(T) bool
	}
)

// True matches every value.
func True[T any]() Restrict[T] { return boolean[T](true) }

// False matches nothing.
func False[T any]() Restrict[T] { return boolean[T](false) }

// Func wraps f as a restriction rendered as name.
func Func[T any](name string, f func(T) bool) Restrict[T] {
	return fn[T]{name: name, f: f}
}

// And matches values matched by every restriction. Nested And restrictions
// are flattened, a single restriction is returned as is, and And() matches
// everything.
func And[T any](rs ...Restrict[T]) Restrict[T] {
	var out and[T]
	for _, r := range rs {
		if inner, ok := r.(and[T]); ok {
			out = append(out, inner...)
			continue
		}
		out = append(out, r)
	}
	switch len(out) {
	case 0:
		return True[T]()
	case 1:
		return out[0]
	}
	return out
}

// Or matches values matched by at least one restriction. Nested Or
// restrictions are flattened, a single restriction is returned as is, and
// Or() matches nothing.
func Or[T any](rs ...Restrict[T]) Restrict[T] {
	var out or[T]
	for _, r := range rs {
		if inner, ok := r.(or[T]); ok {
			out = append(out, inner...)
			continue
		}
		out = append(out, r)
	}
	switch len(out) {
	case 0:
		return False[T]()
	case 1:
		return out[0]
	}
	return out
}

// Xor matches values that some restrictions match and others do not. A
// value matched by all of them, or by none, fails. Nested Xor restrictions
// are flattened.
func Xor[T any](rs ...Restrict[T]) Restrict[T] {
	var out xor[T]
	for _, r := range rs {
		if inner, ok := r.(xor[T]); ok {
			out = append(out, inner...)
			continue
		}
		out = append(out, r)
	}
	return out
}

// Not inverts r. Not(Not(r)) returns r.
func Not[T any](r Restrict[T]) Restrict[T] {
	if n, ok := r.(not[T]); ok {
		return n.r
	}
	return not[T]{r: r}
}

func (b boolean[T]) Matches(T) bool { return bool(b) }

func (b boolean[T]) String() string {
	if b {
		return "true"
	}
	return "false"
}

func (rs and[T]) Matches(v T) bool {
	for _, r := range rs {
		if !r.Matches(v) {
			return false
		}
	}
	return true
}

func (rs and[T]) String() string { return join(rs, "&&") }

func (rs or[T]) Matches(v T) bool {
	for _, r := range rs {
		if r.Matches(v) {
			return true
		}
	}
	return false
}

func (rs or[T]) String() string { return join(rs, "||") }

func (rs xor[T]) Matches(v T) bool {
	for i, r := range rs {
		if i > 0 && r.Matches(v) != rs[0].Matches(v) {
			return true
		}
	}
	return false
}

func (rs xor[T]) String() string { return join(rs, "^^") }

func (n not[T]) Matches(v T) bool { return !n.r.Matches(v) }

func (n not[T]) String() string { return "!" + n.r.String() }

func (f fn[T]) Matches(v T) bool { return f.f(v) }

func (f fn[T]) String() string { return f.name }

func join[T any](rs []Restrict[T], op string) string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = r.String()
	}
	return fmt.Sprintf("(%s)", strings.Join(parts, " "+op+" "))
}
