// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"pkgkit/internal/config"
	"pkgkit/internal/issue"
	"pkgkit/pkg/atom"
	"pkgkit/pkg/flags"
	"pkgkit/pkg/metadata"
	"pkgkit/pkg/repo"
	"pkgkit/pkg/resolve"
)

type (
	// workspace is the configuration with its repositories opened.
	workspace struct {
		cfg      *config.Config
		repos    repo.Set
		provider *flags.Static
	}

	// installedPackage stands in for an installed package none of the
	// repositories carries any more.
	installedPackage struct {
		cpv atom.CPV
	}
)

// openWorkspace loads the configuration and opens every repository it lists.
func (app *App) openWorkspace(ctx context.Context, rf *rootFlagValues) (*workspace, error) {
	cfg, err := app.loadConfig(ctx, rf)
	if err != nil {
		return nil, err
	}
	if len(cfg.Repos) == 0 {
		return nil, issue.NewErrorContext().
			WithOperation("open repositories").
			WithSuggestion("Add a repository to the 'repos' list of the configuration").
			WithSuggestion("Run 'pkgkit config path' to find the configuration file").
			WithIssue(issue.RepositoryNotFoundId).
			Wrap(errors.New("no repositories configured")).
			BuildError()
	}

	set, err := openRepositories(ctx, cfg.Repos)
	if err != nil {
		return nil, err
	}

	pkgUse := make([]flags.PackageUse, 0, len(cfg.PackageUse))
	for _, line := range cfg.PackageUse {
		pu, err := flags.ParsePackageUse(line)
		if err != nil {
			return nil, err
		}
		pkgUse = append(pkgUse, pu)
	}

	return &workspace{
		cfg:      cfg,
		repos:    set,
		provider: flags.NewStatic(cfg.Use, pkgUse),
	}, nil
}

// openRepositories opens the entries concurrently. The set orders them by
// priority regardless of completion order.
func openRepositories(ctx context.Context, entries []config.RepoEntry) (repo.Set, error) {
	opened := make([]*repo.Repository, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	for i, e := range entries {
		g.Go(func() error {
			r, err := openRepository(gctx, e)
			if err != nil {
				return err
			}
			opened[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return repo.Set{}, err
	}
	return repo.NewSet(opened...), nil
}

func openRepository(ctx context.Context, e config.RepoEntry) (*repo.Repository, error) {
	fail := func(err error, suggestion string) error {
		return issue.NewErrorContext().
			WithOperation("open repository").
			WithResource(e.Location).
			WithSuggestion(suggestion).
			WithIssue(issue.RepositoryNotFoundId).
			Wrap(err).
			BuildError()
	}

	var loc repo.Location
	switch e.Format {
	case config.FormatFake:
		fake, err := repo.LoadFakeLocation(e.Location)
		if err != nil {
			return nil, fail(err, "Check that the file exists and is valid TOML")
		}
		loc = fake
	default:
		ebuild, err := repo.NewEbuildLocation(e.Location)
		if err != nil {
			return nil, fail(err, "Check that the directory contains profiles/repo_name")
		}
		loc = ebuild
	}
	if e.Name != "" && e.Name != loc.Name() {
		return nil, fail(
			fmt.Errorf("repository calls itself %q, configured as %q", loc.Name(), e.Name),
			"Make the configured name match the repository's own name",
		)
	}

	r, err := repo.Open(ctx, loc, repo.WithPriority(e.Priority))
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("open repository").
			WithResource(loc.Name()).
			WithIssue(issue.RepositorySyncFailedId).
			Wrap(err).
			BuildError()
	}
	slog.Debug("repository opened", "repo", r.Name(), "priority", r.Priority(), "packages", r.Snapshot().Len())
	return r, nil
}

// resolver builds a resolver from the configuration. extra options are
// applied after the configured ones.
func (ws *workspace) resolver(ctx context.Context, extra ...resolve.Option) (*resolve.Resolver, error) {
	policy, err := unknownFlagPolicy(ws.cfg.UnknownFlags)
	if err != nil {
		return nil, err
	}
	opts := []resolve.Option{resolve.WithUnknownFlags(policy)}
	if len(ws.cfg.AcceptKeywords) > 0 {
		opts = append(opts, resolve.WithAcceptKeywords(ws.cfg.AcceptKeywords...))
	}

	installed, err := ws.installed(ctx)
	if err != nil {
		return nil, err
	}
	if len(installed) > 0 {
		opts = append(opts, resolve.WithInstalled(installed...))
	}

	return resolve.New(ws.repos, ws.provider, append(opts, extra...)...), nil
}

// installed looks the configured installed CPVs up in the repositories so
// blockers can match their slots and flags. A CPV no repository carries is
// matched by name and version only.
func (ws *workspace) installed(ctx context.Context) ([]atom.Package, error) {
	pkgs := make([]atom.Package, 0, len(ws.cfg.Installed))
	for _, s := range ws.cfg.Installed {
		cpv, err := atom.ParseCPV(s)
		if err != nil {
			return nil, err
		}
		pkgs = append(pkgs, ws.lookupInstalled(ctx, cpv))
	}
	return pkgs, nil
}

func (ws *workspace) lookupInstalled(ctx context.Context, cpv atom.CPV) atom.Package {
	for _, r := range ws.repos.Repositories() {
		p, err := r.Metadata(ctx, cpv)
		if err == nil {
			return metadata.Configure(p, ws.provider.For(p))
		}
		if !errors.Is(err, repo.ErrNotFound) {
			slog.Warn("installed package metadata unreadable", "cpv", cpv, "repo", r.Name(), "err", err)
		}
	}
	return installedPackage{cpv: cpv}
}

func (p installedPackage) CPV() atom.CPV                       { return p.cpv }
func (p installedPackage) Slot() string                        { return "0" }
func (p installedPackage) Subslot() string                     { return "" }
func (p installedPackage) Repo() string                        { return "" }
func (p installedPackage) Use(string) (enabled, declared bool) { return false, false }
