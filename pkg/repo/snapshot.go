// SPDX-License-Identifier: MPL-2.0

package repo

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"pkgkit/pkg/atom"
	"pkgkit/pkg/metadata"
)

type (
	// Snapshot is one immutable generation of a repository. It is safe for
	// concurrent use.
	Snapshot struct {
		name       string
		generation uint64
		view       View
		opts       []metadata.Option

		entries    []*entry
		byKey      map[string][]*entry
		categories []string

		// flight collapses concurrent first reads of one entry.
		flight singleflight.Group
	}

	// entry is an arena slot. parsed is written at most once.
	entry struct {
		cpv    atom.CPV
		parsed atomic.Pointer[result]
	}

	result struct {
		pkg         *metadata.Package
		err         error
		fingerprint uint64
	}
)

func newSnapshot(name string, generation uint64, view View, opts []metadata.Option) *Snapshot {
	cpvs := slices.Clone(view.List())
	slices.SortStableFunc(cpvs, atom.CompareCPV)

	s := &Snapshot{
		name:       name,
		generation: generation,
		view:       view,
		opts:       opts,
		byKey:      make(map[string][]*entry),
	}
	for i, cpv := range cpvs {
		if i > 0 && cpv.Compare(cpvs[i-1]) == 0 {
			slog.Warn("duplicate package version ignored", "repo", name, "cpv", cpv.String(), "kept", cpvs[i-1].String())
			continue
		}
		e := &entry{cpv: cpv}
		s.entries = append(s.entries, e)
		key := cpv.Key()
		s.byKey[key] = append(s.byKey[key], e)
		if n := len(s.categories); n == 0 || s.categories[n-1] != cpv.Category {
			s.categories = append(s.categories, cpv.Category)
		}
	}
	return s
}

// Name returns the repository name.
func (s *Snapshot) Name() string { return s.name }

// Generation returns the snapshot's generation, starting at one.
func (s *Snapshot) Generation() uint64 { return s.generation }

// Len returns the number of package versions.
func (s *Snapshot) Len() int { return len(s.entries) }

// List yields every package version in category, name and version order,
// restricted to the given categories when any are passed. The sequence is
// finite and may be iterated any number of times.
func (s *Snapshot) List(categories ...string) iter.Seq[atom.CPV] {
	return func(yield func(atom.CPV) bool) {
		for _, e := range s.entries {
			if len(categories) > 0 && !slices.Contains(categories, e.cpv.Category) {
				continue
			}
			if !yield(e.cpv) {
				return
			}
		}
	}
}

// Categories returns the categories that contain at least one package.
func (s *Snapshot) Categories() []string { return slices.Clone(s.categories) }

// Packages returns the package names in category, sorted.
func (s *Snapshot) Packages(category string) []string {
	var names []string
	for cpv := range s.List(category) {
		if n := len(names); n == 0 || names[n-1] != cpv.Package {
			names = append(names, cpv.Package)
		}
	}
	return names
}

// Versions returns the versions of category/pkg in ascending order.
func (s *Snapshot) Versions(key string) []atom.CPV {
	entries := s.byKey[key]
	cpvs := make([]atom.CPV, len(entries))
	for i, e := range entries {
		cpvs[i] = e.cpv
	}
	return cpvs
}

// Contains reports whether the snapshot has cpv.
func (s *Snapshot) Contains(cpv atom.CPV) bool {
	return s.lookup(cpv) != nil
}

func (s *Snapshot) lookup(cpv atom.CPV) *entry {
	entries := s.byKey[cpv.Key()]
	i, ok := slices.BinarySearchFunc(entries, cpv, func(e *entry, c atom.CPV) int {
		return e.cpv.Compare(c)
	})
	if !ok {
		return nil
	}
	return entries[i]
}

// Metadata returns the parsed metadata of cpv. Parse results, including
// parse errors, are computed once per snapshot; read errors from the
// location are returned without being remembered.
func (s *Snapshot) Metadata(ctx context.Context, cpv atom.CPV) (*metadata.Package, error) {
	e := s.lookup(cpv)
	if e == nil {
		return nil, &NotFoundError{Repo: s.name, CPV: cpv.String()}
	}
	if r := e.parsed.Load(); r != nil {
		return r.pkg, r.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The shared read outlives any one caller; each caller still stops
	// waiting when its own context ends.
	readCtx := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(e.cpv.String(), func() (any, error) {
		if r := e.parsed.Load(); r != nil {
			return r, nil
		}
		src, err := s.view.Read(readCtx, e.cpv)
		if err != nil {
			return nil, fmt.Errorf("read %s::%s: %w", e.cpv, s.name, err)
		}
		r := s.parse(e.cpv, src)
		e.parsed.CompareAndSwap(nil, r)
		return e.parsed.Load(), nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		r := res.Val.(*result)
		return r.pkg, r.err
	}
}

func (s *Snapshot) parse(cpv atom.CPV, src Source) *result {
	r := &result{fingerprint: src.Fingerprint()}
	if !src.Declared.IsZero() && src.Declared.Compare(cpv) != 0 {
		r.err = &metadata.ParseError{CPV: cpv.String(), Err: fmt.Errorf("%w: %s declares %s", ErrMismatch, src.Path, src.Declared)}
		return r
	}

	opts := s.opts
	if len(src.PackageXML) > 0 {
		// A broken metadata.xml loses maintainer data, not the package.
		if x, err := metadata.ParsePackageXML(src.PackageXML); err != nil {
			slog.Warn("ignoring metadata.xml", "repo", s.name, "cpv", cpv.String(), "error", err)
		} else {
			opts = append(slices.Clip(s.opts), metadata.WithPackageXML(x))
		}
	}

	switch src.Format {
	case FormatCache:
		r.pkg, r.err = metadata.DecodeCache(cpv, s.name, src.Data, opts...)
	case FormatEbuild:
		r.pkg, r.err = metadata.Extract(cpv, s.name, src.Data, opts...)
	default:
		r.err = &metadata.ParseError{CPV: cpv.String(), Err: fmt.Errorf("unsupported source format %d", src.Format)}
	}
	if r.err != nil {
		slog.Debug("metadata parse failed", "repo", s.name, "cpv", cpv.String(), "error", r.err)
	}
	return r
}

// Warm parses every entry with at most limit concurrent readers and returns
// the parse errors joined. A read error aborts the warm-up.
func (s *Snapshot) Warm(ctx context.Context, limit int) error {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	parseErrs := make([]error, len(s.entries))
	for i, e := range s.entries {
		g.Go(func() error {
			_, err := s.Metadata(gctx, e.cpv)
			if errors.Is(err, metadata.ErrParse) {
				parseErrs[i] = err
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return errors.Join(parseErrs...)
}
