// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"pkgkit/pkg/repo"
)

// Repositories builds a Watcher over every repository in set whose location
// lives in a directory. Each batch of changes under a root syncs the
// repository owning it; onSync, when set, receives the resulting delta.
// Repositories without a directory, such as in-memory fakes, are skipped.
func Repositories(set repo.Set, cfg Config, onSync func(*repo.Repository, repo.Delta)) (*Watcher, error) {
	byRoot := make(map[string]*repo.Repository)
	cfg.Roots = nil
	for _, r := range set.Repositories() {
		rooted, ok := r.Location().(repo.Rooted)
		if !ok {
			continue
		}
		root, err := filepath.Abs(rooted.Root())
		if err != nil {
			return nil, fmt.Errorf("watch: resolve root of %s: %w", r.Name(), err)
		}
		byRoot[root] = r
		cfg.Roots = append(cfg.Roots, root)
	}
	if len(cfg.Roots) == 0 {
		return nil, errors.New("watch: no repository has an on-disk root")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg.OnChange = func(ctx context.Context, root string, changed []string) error {
		r, ok := byRoot[root]
		if !ok {
			return fmt.Errorf("watch: no repository at %s", root)
		}
		delta, err := r.Sync(ctx)
		if err != nil {
			return err
		}
		logger.Info("repository synced",
			"repo", r.Name(),
			"generation", delta.To,
			"files", len(changed),
			"added", len(delta.Added),
			"removed", len(delta.Removed),
			"changed", len(delta.Changed),
		)
		if onSync != nil {
			onSync(r, delta)
		}
		return nil
	}
	return New(cfg)
}
