// SPDX-License-Identifier: MPL-2.0

package repo

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Set is an ordered group of repositories, searched first to last.
type Set struct {
	repos []*Repository
}

// NewSet orders repos by descending priority; equal priorities keep the
// order given.
func NewSet(repos ...*Repository) Set {
	sorted := slices.Clone(repos)
	slices.SortStableFunc(sorted, func(a, b *Repository) int {
		return cmp.Compare(b.priority, a.priority)
	})
	return Set{repos: sorted}
}

// Repositories returns the repositories in search order.
func (s Set) Repositories() []*Repository { return slices.Clone(s.repos) }

// Len returns the number of repositories.
func (s Set) Len() int { return len(s.repos) }

// Get returns the repository called name.
func (s Set) Get(name string) (*Repository, bool) {
	for _, r := range s.repos {
		if r.Name() == name {
			return r, true
		}
	}
	return nil, false
}

// Snapshots captures the current generation of every repository, in search
// order. A query that works against the result sees one consistent view.
func (s Set) Snapshots() []*Snapshot {
	snaps := make([]*Snapshot, len(s.repos))
	for i, r := range s.repos {
		snaps[i] = r.Snapshot()
	}
	return snaps
}

// Sync syncs every repository concurrently. Deltas are returned in search
// order; failed repositories get a zero Delta and their errors are joined.
func (s Set) Sync(ctx context.Context) ([]Delta, error) {
	deltas := make([]Delta, len(s.repos))
	var mu sync.Mutex
	var errs []error

	var g errgroup.Group
	for i, r := range s.repos {
		g.Go(func() error {
			d, err := r.Sync(ctx)
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil
			}
			deltas[i] = d
			return nil
		})
	}
	_ = g.Wait()
	return deltas, errors.Join(errs...)
}
