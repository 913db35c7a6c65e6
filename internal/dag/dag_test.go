// SPDX-License-Identifier: MPL-2.0

package dag

import (
	"errors"
	"slices"
	"testing"
)

func TestTopologicalSort_EmptyGraph(t *testing.T) {
	t.Parallel()
	g := New()
	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order != nil {
		t.Errorf("expected nil, got %v", order)
	}
}

func TestTopologicalSort_LinearChain(t *testing.T) {
	t.Parallel()
	g := New()
	// libc is merged first, then openssl, then curl.
	g.AddEdge("sys-libs/glibc-2.40", "dev-libs/openssl-3.3")
	g.AddEdge("dev-libs/openssl-3.3", "net-misc/curl-8.10")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []string{"sys-libs/glibc-2.40", "dev-libs/openssl-3.3", "net-misc/curl-8.10"}
	if !slices.Equal(order, expected) {
		t.Errorf("expected %v, got %v", expected, order)
	}
}

func TestTopologicalSort_Diamond(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("a", "b")
	g.AddEdge("a", "c")
	g.AddEdge("b", "d")
	g.AddEdge("c", "d")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(order, []string{"a", "b", "c", "d"}) {
		t.Errorf("expected insertion-ordered levels, got %v", order)
	}
	if g.Len() != 4 {
		t.Errorf("Len() = %d, want 4", g.Len())
	}
}

func TestTopologicalSort_Cycles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		edges [][2]string
		want  []string
	}{
		{"self loop", [][2]string{{"a", "a"}}, []string{"a", "a"}},
		{"two nodes", [][2]string{{"a", "b"}, {"b", "a"}}, []string{"b", "a", "b"}},
		{"three nodes", [][2]string{{"a", "b"}, {"b", "c"}, {"c", "a"}}, []string{"b", "c", "a", "b"}},
		{
			"cycle behind a placed prefix",
			[][2]string{{"root", "x"}, {"x", "y"}, {"y", "z"}, {"z", "x"}},
			[]string{"y", "z", "x", "y"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := New()
			for _, e := range tt.edges {
				g.AddEdge(e[0], e[1])
			}
			_, err := g.TopologicalSort()
			var cycleErr *CycleError
			if !errors.As(err, &cycleErr) || !errors.Is(err, ErrCycle) {
				t.Fatalf("expected *CycleError, got %T: %v", err, err)
			}
			if !slices.Equal(cycleErr.Cycle, tt.want) {
				t.Errorf("Cycle = %v, want %v", cycleErr.Cycle, tt.want)
			}
		})
	}
}

func TestTopologicalSort_DisconnectedComponents(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("a", "b")
	g.AddNode("c")
	g.AddNode("d")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 4 {
		t.Errorf("expected 4 nodes, got %d: %v", len(order), order)
	}
	if slices.Index(order, "a") >= slices.Index(order, "b") {
		t.Errorf("a must come before b in %v", order)
	}
}

func TestAddEdge_Duplicate(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("a", "b")
	g.AddEdge("a", "b")

	if got := g.adjacency["a"]; !slices.Equal(got, []string{"b"}) {
		t.Errorf("adjacency[a] = %v, want [b]", got)
	}
	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(order, []string{"a", "b"}) {
		t.Errorf("expected [a b], got %v", order)
	}
}

func TestCycleError_Message(t *testing.T) {
	t.Parallel()
	err := &CycleError{Cycle: []string{"a", "b", "a"}}
	expected := "dependency cycle detected: a -> b -> a"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
}
