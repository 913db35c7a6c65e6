// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"pkgkit/pkg/atom"
	"pkgkit/pkg/depspec"
	"pkgkit/pkg/flags"
	"pkgkit/pkg/metadata"
	"pkgkit/pkg/repo"
)

type (
	// Plan is the outcome of a resolution.
	Plan struct {
		// Packages are the chosen packages. Resolve lists them in the order
		// they were chosen; ResolveDeep lists them in merge order.
		Packages []Result
		// Uninstall lists installed packages that weak blockers require to
		// be removed.
		Uninstall []atom.CPV
	}

	// cont is the rest of the search after the current node is satisfied.
	cont func() error

	// frame is the package whose dependencies are being satisfied.
	frame struct {
		flags depspec.FlagSet
		// owner indexes solver.chosen; -1 for the caller's tree.
		owner int
		class metadata.Class
	}

	blocker struct {
		atom  *atom.Atom
		owner int
	}

	// edge means chosen[dep] must be merged before chosen[dependent].
	edge struct {
		dep, dependent int
	}

	// solver holds the partial solution. Every mutation is undone by
	// truncation when a continuation fails.
	solver struct {
		ctx   context.Context
		r     *Resolver
		snaps []*repo.Snapshot
		deep  bool

		chosen    []Result
		blockers  []blocker
		uninstall []atom.CPV
		edges     []edge

		plan      *Plan
		planEdges []edge
	}
)

func (r *Resolver) newSolver(ctx context.Context, deep bool) *solver {
	return &solver{ctx: ctx, r: r, snaps: r.repos.Snapshots(), deep: deep}
}

// Resolve satisfies tree, whose use-conditionals are evaluated against
// parent. It does not follow the dependencies of the chosen packages.
func (r *Resolver) Resolve(ctx context.Context, tree depspec.Tree[*atom.Atom], parent flags.Assignment) (*Plan, error) {
	s := r.newSolver(ctx, false)
	if err := s.run(tree, parent); err != nil {
		return nil, err
	}
	return s.plan, nil
}

// ResolveAtoms resolves a list of atoms as one all-of group, using the
// provider's global flags for conditional USE dependencies.
func (r *Resolver) ResolveAtoms(ctx context.Context, atoms ...*atom.Atom) (*Plan, error) {
	tree := make(depspec.Tree[*atom.Atom], len(atoms))
	for i, a := range atoms {
		tree[i] = depspec.Leaf(a)
	}
	return r.Resolve(ctx, tree, r.flags.Global())
}

func (s *solver) run(tree depspec.Tree[*atom.Atom], parent flags.Assignment) error {
	f := frame{flags: parent, owner: -1}
	reduced := tree.Evaluate(parent, depspec.WithUnknownFlags(s.r.opts.unknown))
	return s.all(reduced, f, func() error {
		s.plan = &Plan{
			Packages:  slices.Clone(s.chosen),
			Uninstall: slices.Clone(s.uninstall),
		}
		s.planEdges = slices.Clone(s.edges)
		return nil
	})
}

// all satisfies every node in order, then k.
func (s *solver) all(nodes []*depspec.Node[*atom.Atom], f frame, k cont) error {
	if len(nodes) == 0 {
		return k()
	}
	return s.node(nodes[0], f, func() error {
		return s.all(nodes[1:], f, k)
	})
}

func (s *solver) node(n *depspec.Node[*atom.Atom], f frame, k cont) error {
	switch n.Kind {
	case depspec.KindLeaf:
		return s.leaf(n.Leaf, f, k)
	case depspec.KindAllOf:
		return s.all(n.Children, f, k)
	case depspec.KindAnyOf, depspec.KindExactlyOneOf:
		return s.choose(n, f, k)
	case depspec.KindAtMostOneOf:
		// Choosing none of the alternatives satisfies the group.
		return k()
	default:
		return fmt.Errorf("unreduced %s group in dependency tree", n.Kind)
	}
}

// choose tries the alternatives of n in declaration order.
func (s *solver) choose(n *depspec.Node[*atom.Atom], f frame, k cont) error {
	var last error
	for _, alt := range n.Children {
		if err := s.ctx.Err(); err != nil {
			return err
		}
		err := s.node(alt, f, k)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrUnresolvable) {
			return err
		}
		last = err
	}
	return &UnresolvableError{Group: n.String(), Reason: "no alternative resolves", Err: last}
}

func (s *solver) leaf(a *atom.Atom, f frame, k cont) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}
	a = a.EvaluateUseDeps(f.flags)
	if a.IsBlocker() {
		return s.block(a, f, k)
	}

	// A package already in the solution satisfies the atom without adding
	// anything.
	for i, c := range s.chosen {
		if a.Matches(c.configured()) {
			mark := len(s.edges)
			s.link(i, f)
			err := k()
			if err != nil {
				s.edges = s.edges[:mark]
			}
			return err
		}
	}

	var last, skipped error
	for c, err := range s.r.candidates(s.ctx, s.snaps, a) {
		if err != nil {
			if !errors.Is(err, metadata.ErrParse) {
				return err
			}
			skipped = err
			continue
		}
		if reason := s.conflict(c); reason != "" {
			last = unresolvable(a, c.String()+" "+reason, nil)
			continue
		}
		err := s.pick(c, f, k)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrUnresolvable) {
			return err
		}
		last = err
		if err := s.ctx.Err(); err != nil {
			return err
		}
	}
	if last != nil {
		return last
	}
	return unresolvable(a, "no matching package", skipped)
}

// pick adds c to the solution and continues; on failure the solution is
// restored.
func (s *solver) pick(c Result, f frame, k cont) error {
	chosenMark, edgeMark := len(s.chosen), len(s.edges)
	s.chosen = append(s.chosen, c)
	idx := len(s.chosen) - 1
	s.link(idx, f)

	var err error
	if s.deep {
		err = s.expand(idx, k)
	} else {
		err = k()
	}
	if err != nil {
		s.chosen = s.chosen[:chosenMark]
		s.edges = s.edges[:edgeMark]
	}
	return err
}

// expand satisfies the dependencies of chosen[idx] class by class before
// continuing.
func (s *solver) expand(idx int, k cont) error {
	c := s.chosen[idx]
	classes := s.r.opts.classes
	var step func(i int) error
	step = func(i int) error {
		if i == len(classes) {
			return k()
		}
		tree := c.Package.Dependencies(classes[i]).Evaluate(c.Flags, depspec.WithUnknownFlags(s.r.opts.unknown))
		f := frame{flags: c.Flags, owner: idx, class: classes[i]}
		return s.all(tree, f, func() error { return step(i + 1) })
	}
	return step(0)
}

// link records that the frame's owner needs chosen[dep] merged first. Only
// build and install time classes order the merge.
func (s *solver) link(dep int, f frame) {
	if f.owner < 0 || f.owner == dep || !ordersMerge(f.class) {
		return
	}
	s.edges = append(s.edges, edge{dep: dep, dependent: f.owner})
}

// conflict explains why c cannot join the solution, or returns "".
func (s *solver) conflict(c Result) string {
	key, slot := c.CPV().Key(), c.Package.Slot()
	for _, o := range s.chosen {
		if o.CPV().Key() == key && o.Package.Slot() == slot {
			return fmt.Sprintf("conflicts with %s in slot %s", o, slot)
		}
	}
	for _, b := range s.blockers {
		if b.owner >= 0 && s.chosen[b.owner].Package == c.Package {
			continue
		}
		if b.atom.Matches(c.configured()) {
			return "is blocked by " + b.atom.String()
		}
	}
	return ""
}

// block records blocker a. Packages already chosen must not match it; an
// installed match fails a strong blocker and is scheduled for removal by a
// weak one.
func (s *solver) block(a *atom.Atom, f frame, k cont) error {
	for i, c := range s.chosen {
		if i == f.owner {
			continue
		}
		if a.Matches(c.configured()) {
			return unresolvable(a, "blocks "+c.String(), nil)
		}
	}

	uninstallMark := len(s.uninstall)
	for _, p := range s.r.opts.installed {
		if f.owner >= 0 && s.chosen[f.owner].CPV().Key() == p.CPV().Key() {
			// A package never blocks the installed copy it replaces.
			continue
		}
		if !a.Matches(p) {
			continue
		}
		if a.Blocker() == atom.BlockerStrong {
			return unresolvable(a, "blocks installed "+p.CPV().String(), nil)
		}
		if !slices.ContainsFunc(s.uninstall, func(c atom.CPV) bool { return c.Compare(p.CPV()) == 0 }) {
			s.uninstall = append(s.uninstall, p.CPV())
		}
	}

	s.blockers = append(s.blockers, blocker{atom: a, owner: f.owner})
	err := k()
	if err != nil {
		s.blockers = s.blockers[:len(s.blockers)-1]
		s.uninstall = s.uninstall[:uninstallMark]
	}
	return err
}

func ordersMerge(c metadata.Class) bool {
	switch c {
	case metadata.ClassDepend, metadata.ClassBDepend, metadata.ClassIDepend:
		return true
	default:
		return false
	}
}
