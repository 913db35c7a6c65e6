// SPDX-License-Identifier: MPL-2.0

// Package dag orders the packages of a deep resolution so that every package
// is merged after the packages it needs at build time.
package dag

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrCycle is the sentinel error wrapped by CycleError.
var ErrCycle = errors.New("dependency cycle")

type (
	// CycleError indicates that the graph contains a cycle, preventing a
	// merge order.
	CycleError struct {
		// Cycle is one closed path through the graph; the first node is
		// repeated at the end.
		Cycle []string
	}

	// Graph is a directed graph for topological sorting. Nodes are
	// identified by string keys. An edge from A to B means A must be merged
	// before B.
	Graph struct {
		// adjacency maps each node to the nodes that must follow it.
		adjacency map[string][]string
		// nodes tracks all nodes in insertion order for deterministic output.
		nodes   []string
		nodeSet map[string]bool
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// Unwrap returns ErrCycle.
func (e *CycleError) Unwrap() error { return ErrCycle }

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		adjacency: make(map[string][]string),
		nodeSet:   make(map[string]bool),
	}
}

// AddNode adds a node to the graph. If the node already exists, this is a no-op.
func (g *Graph) AddNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// AddEdge adds a directed edge from -> to, meaning "from" must be merged
// before "to". Both nodes are implicitly added; repeated edges are ignored.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	if slices.Contains(g.adjacency[from], to) {
		return
	}
	g.adjacency[from] = append(g.adjacency[from], to)
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// TopologicalSort returns a valid merge order using Kahn's algorithm.
// Returns CycleError if the graph contains a cycle.
// The returned order is deterministic: nodes at the same topological level
// appear in the order they were first added to the graph.
func (g *Graph) TopologicalSort() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[string]int, len(g.nodes))
	for _, node := range g.nodes {
		inDegree[node] = 0
	}
	for _, neighbors := range g.adjacency {
		for _, neighbor := range neighbors {
			inDegree[neighbor]++
		}
	}

	queue := make([]string, 0)
	for _, node := range g.nodes {
		if inDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	var result []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, neighbor := range g.adjacency[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
			}
		}
	}

	if len(result) != len(g.nodes) {
		return nil, &CycleError{Cycle: g.findCycle(inDegree)}
	}
	return result, nil
}

// findCycle walks the nodes Kahn's algorithm could not place. Each of them
// has a predecessor among the unplaced nodes, so following predecessors must
// revisit a node; the revisited stretch is the cycle.
func (g *Graph) findCycle(inDegree map[string]int) []string {
	preds := make(map[string]string)
	for _, from := range g.nodes {
		if inDegree[from] == 0 {
			continue
		}
		for _, to := range g.adjacency[from] {
			if _, ok := preds[to]; !ok && inDegree[to] > 0 {
				preds[to] = from
			}
		}
	}

	var start string
	for _, node := range g.nodes {
		if inDegree[node] > 0 {
			start = node
			break
		}
	}

	seen := make(map[string]int)
	var path []string
	for node := start; ; node = preds[node] {
		if i, ok := seen[node]; ok {
			cycle := slices.Clone(path[i:])
			slices.Reverse(cycle)
			return append(cycle, cycle[0])
		}
		seen[node] = len(path)
		path = append(path, node)
	}
}
