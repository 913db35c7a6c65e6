// SPDX-License-Identifier: MPL-2.0

package repo

import (
	"context"
	"iter"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"pkgkit/pkg/atom"
	"pkgkit/pkg/metadata"
)

type (
	// Repository is a named package source with an atomically replaced
	// current snapshot.
	Repository struct {
		loc      Location
		priority int
		opts     []metadata.Option
		workers  int

		// syncMu serializes Sync; readers never take it.
		syncMu  sync.Mutex
		current atomic.Pointer[Snapshot]
	}

	// Option configures a Repository.
	Option func(*Repository)

	// Delta describes what one Sync changed. Changed lists packages whose
	// definition differs from the one parsed in the previous generation;
	// packages never read before the sync are only reported when added or
	// removed.
	Delta struct {
		From    uint64
		To      uint64
		Added   []atom.CPV
		Removed []atom.CPV
		Changed []atom.CPV
	}
)

// WithPriority sets the repository priority; higher values are searched
// first by a Set.
func WithPriority(p int) Option {
	return func(r *Repository) { r.priority = p }
}

// WithMetadataOptions passes decoding options to every metadata parse.
func WithMetadataOptions(opts ...metadata.Option) Option {
	return func(r *Repository) { r.opts = append(r.opts, opts...) }
}

// WithWorkers bounds the concurrent reads performed by Sync.
func WithWorkers(n int) Option {
	return func(r *Repository) {
		if n > 0 {
			r.workers = n
		}
	}
}

// Open indexes the location as generation one. Metadata is not parsed.
func Open(ctx context.Context, loc Location, opts ...Option) (*Repository, error) {
	r := &Repository{loc: loc, workers: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(r)
	}

	view, err := loc.View(ctx)
	if err != nil {
		return nil, &SyncError{Repo: loc.Name(), Err: err}
	}
	snap := newSnapshot(loc.Name(), 1, view, r.opts)
	r.current.Store(snap)
	slog.Debug("repository opened", "repo", loc.Name(), "packages", snap.Len())
	return r, nil
}

// Name returns the repository name.
func (r *Repository) Name() string { return r.loc.Name() }

// Priority returns the repository priority.
func (r *Repository) Priority() int { return r.priority }

// Location returns the underlying location.
func (r *Repository) Location() Location { return r.loc }

// Snapshot returns the current generation.
func (r *Repository) Snapshot() *Snapshot { return r.current.Load() }

// List is shorthand for Snapshot().List.
func (r *Repository) List(categories ...string) iter.Seq[atom.CPV] {
	return r.Snapshot().List(categories...)
}

// Metadata is shorthand for Snapshot().Metadata.
func (r *Repository) Metadata(ctx context.Context, cpv atom.CPV) (*metadata.Package, error) {
	return r.Snapshot().Metadata(ctx, cpv)
}

// Sync refreshes the location and advances the generation. Readers holding
// the previous snapshot keep seeing its contents. Parsed entries whose
// definition fingerprint is unchanged are carried into the new generation
// without being parsed again. On failure the current snapshot is kept.
func (r *Repository) Sync(ctx context.Context) (Delta, error) {
	r.syncMu.Lock()
	defer r.syncMu.Unlock()

	name := r.loc.Name()
	if err := r.loc.Sync(ctx); err != nil {
		return Delta{}, &SyncError{Repo: name, Err: err}
	}
	view, err := r.loc.View(ctx)
	if err != nil {
		return Delta{}, &SyncError{Repo: name, Err: err}
	}

	old := r.current.Load()
	next := newSnapshot(name, old.generation+1, view, r.opts)
	delta := Delta{From: old.generation, To: next.generation}

	for _, e := range next.entries {
		if old.lookup(e.cpv) == nil {
			delta.Added = append(delta.Added, e.cpv)
		}
	}
	for _, e := range old.entries {
		if next.lookup(e.cpv) == nil {
			delta.Removed = append(delta.Removed, e.cpv)
		}
	}

	changed, err := r.carry(ctx, old, next)
	if err != nil {
		return Delta{}, &SyncError{Repo: name, Err: err}
	}
	delta.Changed = changed

	r.current.Store(next)
	slog.Debug("repository synced", "repo", name, "generation", next.generation,
		"added", len(delta.Added), "removed", len(delta.Removed), "changed", len(delta.Changed))
	return delta, nil
}

// carry re-reads every entry parsed in old that survives into next. Equal
// fingerprints reuse the old result; anything else is reported as changed.
func (r *Repository) carry(ctx context.Context, old, next *Snapshot) ([]atom.CPV, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	var mu sync.Mutex
	var changed []atom.CPV
	for _, oe := range old.entries {
		prev := oe.parsed.Load()
		if prev == nil {
			continue
		}
		ne := next.lookup(oe.cpv)
		if ne == nil {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			src, err := next.view.Read(gctx, ne.cpv)
			if err == nil && src.Fingerprint() == prev.fingerprint {
				ne.parsed.CompareAndSwap(nil, prev)
				return nil
			}
			mu.Lock()
			changed = append(changed, ne.cpv)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	slices.SortFunc(changed, atom.CompareCPV)
	return changed, nil
}

// Empty reports whether the sync changed nothing.
func (d Delta) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}
