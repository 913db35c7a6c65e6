// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"context"
	"fmt"

	"pkgkit/internal/dag"
	"pkgkit/pkg/atom"
	"pkgkit/pkg/depspec"
	"pkgkit/pkg/flags"
)

// ResolveDeep satisfies tree and, for every package chosen along the way,
// the dependency classes selected with WithClasses, evaluated against that
// package's own flags. The search backtracks across the whole graph, so a
// choice deep in one package's dependencies can revise an earlier one.
//
// Packages are returned in merge order: a package comes after everything it
// needs at build or install time (DEPEND, BDEPEND, IDEPEND). Runtime and
// post-merge dependencies do not constrain the order. A cycle among the
// build-time classes fails with *dag.CycleError.
func (r *Resolver) ResolveDeep(ctx context.Context, tree depspec.Tree[*atom.Atom], parent flags.Assignment) (*Plan, error) {
	s := r.newSolver(ctx, true)
	if err := s.run(tree, parent); err != nil {
		return nil, err
	}

	g := dag.New()
	for _, c := range s.plan.Packages {
		g.AddNode(c.String())
	}
	for _, e := range s.planEdges {
		g.AddEdge(s.plan.Packages[e.dep].String(), s.plan.Packages[e.dependent].String())
	}
	order, err := g.TopologicalSort()
	if err != nil {
		return nil, fmt.Errorf("ordering resolved packages: %w", err)
	}

	byName := make(map[string]Result, len(s.plan.Packages))
	for _, c := range s.plan.Packages {
		byName[c.String()] = c
	}
	ordered := make([]Result, len(order))
	for i, name := range order {
		ordered[i] = byName[name]
	}
	s.plan.Packages = ordered
	return s.plan, nil
}
