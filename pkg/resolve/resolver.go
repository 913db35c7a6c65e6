// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"slices"

	"pkgkit/pkg/atom"
	"pkgkit/pkg/depspec"
	"pkgkit/pkg/flags"
	"pkgkit/pkg/metadata"
	"pkgkit/pkg/repo"
)

type (
	// Resolver answers queries against a repository set. It holds no
	// mutable state and is safe for concurrent use.
	Resolver struct {
		repos repo.Set
		flags flags.Provider
		opts  options
	}

	// Option configures a Resolver.
	Option func(*options)

	options struct {
		allMatches     bool
		acceptKeywords []string
		installed      []atom.Package
		unknown        depspec.UnknownFlagPolicy
		classes        []metadata.Class
	}

	// Result is one chosen package with the flags it is configured with.
	Result struct {
		Package *metadata.Package
		Flags   flags.Assignment
	}
)

// WithAllMatches makes Query return every matching package instead of the
// best one.
func WithAllMatches() Option {
	return func(o *options) { o.allMatches = true }
}

// WithAcceptKeywords restricts candidates to packages whose KEYWORDS pass
// the list.
func WithAcceptKeywords(accept ...string) Option {
	return func(o *options) { o.acceptKeywords = append(o.acceptKeywords, accept...) }
}

// WithInstalled declares the packages already present on the target, which
// blockers are checked against.
func WithInstalled(pkgs ...atom.Package) Option {
	return func(o *options) { o.installed = append(o.installed, pkgs...) }
}

// WithUnknownFlags sets how use-conditionals on undeclared flags reduce.
func WithUnknownFlags(p depspec.UnknownFlagPolicy) Option {
	return func(o *options) { o.unknown = p }
}

// WithClasses selects the dependency classes ResolveDeep follows. The
// default is every class.
func WithClasses(classes ...metadata.Class) Option {
	return func(o *options) { o.classes = classes }
}

// New returns a resolver over repos. provider supplies the flags of every
// candidate package.
func New(repos repo.Set, provider flags.Provider, opts ...Option) *Resolver {
	r := &Resolver{repos: repos, flags: provider}
	for _, opt := range opts {
		opt(&r.opts)
	}
	if len(r.opts.classes) == 0 {
		r.opts.classes = metadata.Classes()
	}
	return r
}

// CPV returns the package's CPV.
func (r Result) CPV() atom.CPV { return r.Package.CPV() }

// Repo returns the repository the package came from.
func (r Result) Repo() string { return r.Package.Repo() }

// String renders "cat/pkg-ver::repo".
func (r Result) String() string { return r.Package.String() }

// configured adapts the result for atom matching.
func (r Result) configured() metadata.Configured {
	return metadata.Configure(r.Package, r.Flags)
}

// Query returns the best package matching a: the highest matching version
// from the first repository, in priority order, that has one. With
// WithAllMatches every match is returned, by repository priority and then
// descending version. Conditional USE dependencies are evaluated against
// the provider's global flags.
func (r *Resolver) Query(ctx context.Context, a *atom.Atom) ([]Result, error) {
	if a.IsBlocker() {
		return nil, unresolvable(a, "blockers cannot be queried", nil)
	}
	a = a.EvaluateUseDeps(r.flags.Global())

	var results []Result
	var skipped error
	for c, err := range r.candidates(ctx, r.repos.Snapshots(), a) {
		if err != nil {
			if !errors.Is(err, metadata.ErrParse) {
				return nil, err
			}
			skipped = err
			continue
		}
		results = append(results, c)
		if !r.opts.allMatches {
			break
		}
	}
	if len(results) == 0 {
		return nil, unresolvable(a, "no matching package", skipped)
	}
	return results, nil
}

// candidates yields the packages matching a in preference order: repository
// priority first, then descending version. Packages whose metadata fails to
// parse are yielded as errors so callers can skip them; any other error
// ends the sequence.
func (r *Resolver) candidates(ctx context.Context, snaps []*repo.Snapshot, a *atom.Atom) iter.Seq2[Result, error] {
	return func(yield func(Result, error) bool) {
		for _, snap := range snaps {
			if a.Repo() != "" && a.Repo() != snap.Name() {
				continue
			}
			versions := snap.Versions(a.Key())
			for _, cpv := range slices.Backward(versions) {
				if !a.MatchesCPV(cpv) {
					continue
				}
				pkg, err := snap.Metadata(ctx, cpv)
				if err != nil {
					if errors.Is(err, metadata.ErrParse) {
						slog.Warn("skipping package with invalid metadata", "cpv", cpv.String(), "repo", snap.Name(), "error", err)
					}
					if !yield(Result{}, err) {
						return
					}
					continue
				}
				if !acceptsKeywords(pkg.Keywords(), r.opts.acceptKeywords) {
					continue
				}
				res := Result{Package: pkg, Flags: r.flags.For(pkg)}
				if !a.Matches(res.configured()) {
					continue
				}
				if !yield(res, nil) {
					return
				}
			}
		}
	}
}
