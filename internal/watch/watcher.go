// SPDX-License-Identifier: MPL-2.0

// Package watch re-syncs repositories when their files change on disk.
//
// A Watcher monitors one or more root directories and invokes a callback per
// root after a debounce period. Events within the window are coalesced so the
// callback fires once with every changed path under that root.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// defaultIgnores are never watched: VCS metadata, distfiles fetched into the
// tree, and editor swap files.
var defaultIgnores = []string{
	"**/.git/**",
	"**/.svn/**",
	"distfiles/**",
	"packages/**",
	"**/*.swp",
	"**/*~",
}

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Roots are the directories to watch. Patterns and ignores match
		// paths relative to the root an event falls under.
		Roots []string

		// Patterns select which files trigger callbacks. Empty matches every
		// file that is not ignored.
		Patterns []string

		// Ignore is merged with the built-in default ignores.
		Ignore []string

		// Debounce is the quiet period after the last event under a root.
		// Zero or negative values fall back to 500ms.
		Debounce time.Duration

		// OnChange receives the root and the sorted changed paths relative to
		// it. Callbacks for one root never overlap.
		OnChange func(ctx context.Context, root string, changed []string) error

		// Logger receives diagnostics. nil uses slog.Default().
		Logger *slog.Logger
	}

	// Watcher monitors roots and fires debounced callbacks. Run must be
	// called exactly once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		roots    []string
		ignores  []string
		debounce time.Duration
		log      *slog.Logger
		started  atomic.Bool
	}

	// rootState batches the events of one root.
	rootState struct {
		mu      sync.Mutex
		pending map[string]struct{}
		timer   *time.Timer
		running atomic.Bool
	}
)

// New validates cfg, resolves every root to an absolute path and registers
// all non-ignored directories below them.
func New(cfg Config) (*Watcher, error) {
	if len(cfg.Roots) == 0 {
		return nil, errors.New("watch: no roots to watch")
	}
	if err := validatePatterns(cfg.Patterns, "watch"); err != nil {
		return nil, err
	}
	if err := validatePatterns(cfg.Ignore, "ignore"); err != nil {
		return nil, err
	}

	roots := make([]string, 0, len(cfg.Roots))
	for _, r := range cfg.Roots {
		abs, err := filepath.Abs(r)
		if err != nil {
			return nil, fmt.Errorf("watch: resolve root %q: %w", r, err)
		}
		roots = append(roots, abs)
	}
	// Longest first so nested roots claim their own events.
	slices.SortFunc(roots, func(a, b string) int { return len(b) - len(a) })

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		roots:    roots,
		ignores:  append(slices.Clone(defaultIgnores), cfg.Ignore...),
		debounce: debounce,
		log:      logger.With("component", "watch"),
	}

	for _, root := range roots {
		if err := w.addDirectories(root); err != nil {
			if closeErr := fsw.Close(); closeErr != nil {
				w.log.Warn("close after init failure", "err", closeErr)
			}
			return nil, err
		}
	}

	return w, nil
}

// Roots returns the absolute roots being watched.
func (w *Watcher) Roots() []string { return slices.Clone(w.roots) }

// Run blocks until ctx is cancelled, dispatching debounced callbacks. It
// returns nil on cancellation and an error when the watcher breaks.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("watch: Run called more than once")
	}

	states := make(map[string]*rootState, len(w.roots))
	for _, r := range w.roots {
		states[r] = &rootState{pending: make(map[string]struct{})}
	}

	defer func() {
		for _, st := range states {
			st.mu.Lock()
			if st.timer != nil {
				st.timer.Stop()
			}
			st.mu.Unlock()
		}
		if err := w.fsw.Close(); err != nil {
			w.log.Warn("close fsnotify", "err", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: fsnotify event channel closed unexpectedly")
			}
			root, rel, ok := w.locate(evt.Name)
			if !ok || w.isIgnored(rel) {
				continue
			}
			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(root, evt.Name)
			}
			if !w.matchesPatterns(rel) {
				continue
			}
			w.log.Debug("change", "root", root, "path", rel, "op", evt.Op.String())

			st := states[root]
			st.mu.Lock()
			st.pending[rel] = struct{}{}
			if st.timer == nil {
				st.timer = time.AfterFunc(w.debounce, func() { w.fire(ctx, root, st) })
			} else {
				st.timer.Reset(w.debounce)
			}
			st.mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: fsnotify error channel closed unexpectedly")
			}
			if isFatal(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.log.Warn("fsnotify error", "err", err)
		}
	}
}

// fire drains a root's pending set and invokes OnChange. A callback still
// running for the same root defers the batch by one debounce period.
func (w *Watcher) fire(ctx context.Context, root string, st *rootState) {
	if ctx.Err() != nil {
		return
	}
	if !st.running.CompareAndSwap(false, true) {
		w.log.Debug("previous callback still running, deferring", "root", root)
		st.mu.Lock()
		st.timer.Reset(w.debounce)
		st.mu.Unlock()
		return
	}
	defer st.running.Store(false)

	st.mu.Lock()
	changed := slices.Sorted(maps.Keys(st.pending))
	clear(st.pending)
	st.mu.Unlock()
	if len(changed) == 0 || w.cfg.OnChange == nil {
		return
	}

	if err := w.cfg.OnChange(ctx, root, changed); err != nil {
		w.log.Error("change callback failed", "root", root, "err", err)
	}
}

// locate returns the root containing path and path relative to it.
func (w *Watcher) locate(path string) (root, rel string, ok bool) {
	for _, r := range w.roots {
		rel, err := filepath.Rel(r, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		return r, filepath.ToSlash(rel), true
	}
	return "", "", false
}

// addDirectories registers every non-ignored directory below root. Pattern
// filtering happens when events arrive.
func (w *Watcher) addDirectories(root string) error {
	walkErr := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			w.log.Warn("skipping inaccessible path", "path", path, "err", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil //nolint:nilerr // skip paths that cannot be made relative
		}
		if rel != "." && w.isDirIgnored(filepath.ToSlash(rel)) {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, addErr)
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("watch: walk %s: %w", root, walkErr)
	}
	return nil
}

// maybeAddDir extends the watch to a directory created after startup, such
// as a new category or package directory.
func (w *Watcher) maybeAddDir(root, path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || w.isDirIgnored(filepath.ToSlash(rel)) {
		return
	}
	if err := w.addDirectories(path); err != nil {
		w.log.Warn("add new directory", "path", path, "err", err)
	}
}

func (w *Watcher) isDirIgnored(rel string) bool {
	return w.isIgnored(rel) || w.isIgnored(rel+"/")
}

func (w *Watcher) isIgnored(rel string) bool {
	return matchAny(w.ignores, rel)
}

func (w *Watcher) matchesPatterns(rel string) bool {
	return len(w.cfg.Patterns) == 0 || matchAny(w.cfg.Patterns, rel)
}

func matchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if matched, err := doublestar.Match(pat, rel); err == nil && matched {
			return true
		}
	}
	return false
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}

func validatePatterns(patterns []string, label string) error {
	for _, pat := range patterns {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("watch: invalid %s pattern %q", label, pat)
		}
	}
	return nil
}

// isFatal reports resource exhaustion, after which the watcher cannot
// recover: the inotify watch limit (ENOSPC) or file descriptor limits.
func isFatal(err error) bool {
	return errors.Is(err, syscall.ENOSPC) ||
		errors.Is(err, syscall.EMFILE) ||
		errors.Is(err, syscall.ENFILE)
}
