// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"pkgkit/internal/issue"
	"pkgkit/internal/watch"
	"pkgkit/pkg/atom"
	"pkgkit/pkg/metadata"
	"pkgkit/pkg/repo"
)

func newRepoCommand(app *App, rf *rootFlagValues) *cobra.Command {
	repoCmd := &cobra.Command{
		Use:   "repo",
		Short: "Inspect, sync and watch the configured repositories",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	repoCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List repositories in search order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := app.openWorkspace(cmd.Context(), rf)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, r := range ws.repos.Repositories() {
				snap := r.Snapshot()
				fmt.Fprintf(w, "%s %s\n", TitleStyle.Render(r.Name()), SubtitleStyle.Render(fmt.Sprintf("(priority %d)", r.Priority())))
				if rooted, ok := r.Location().(repo.Rooted); ok {
					fmt.Fprintf(w, "  %s: %s\n", KeyStyle.Render("location"), rooted.Root())
				}
				fmt.Fprintf(w, "  %s: %d\n", KeyStyle.Render("packages"), snap.Len())
				fmt.Fprintf(w, "  %s: %d\n", KeyStyle.Render("categories"), len(snap.Categories()))
			}
			return nil
		},
	})

	repoCmd.AddCommand(&cobra.Command{
		Use:   "packages <repo> [category]...",
		Short: "List the package versions of a repository",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := app.openWorkspace(cmd.Context(), rf)
			if err != nil {
				return err
			}
			r, err := ws.repository(args[0])
			if err != nil {
				return err
			}
			for cpv := range r.List(args[1:]...) {
				fmt.Fprintln(cmd.OutOrStdout(), cpv)
			}
			return nil
		},
	})

	var showRepo string
	showCmd := &cobra.Command{
		Use:   "show <cpv>",
		Short: "Show the metadata of a package version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cpv, err := atom.ParseCPV(args[0])
			if err != nil {
				return err
			}
			ws, err := app.openWorkspace(cmd.Context(), rf)
			if err != nil {
				return err
			}
			p, err := ws.metadata(cmd.Context(), cpv, showRepo)
			if err != nil {
				return err
			}
			printPackage(cmd.OutOrStdout(), p)
			return nil
		},
	}
	showCmd.Flags().StringVar(&showRepo, "repo", "", "read from this repository only")
	repoCmd.AddCommand(showCmd)

	repoCmd.AddCommand(&cobra.Command{
		Use:   "sync",
		Short: "Rescan every repository and report what changed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := app.openWorkspace(cmd.Context(), rf)
			if err != nil {
				return err
			}
			deltas, syncErr := ws.repos.Sync(cmd.Context())
			for i, r := range ws.repos.Repositories() {
				printDelta(cmd.OutOrStdout(), r.Name(), deltas[i])
			}
			if syncErr != nil {
				return issue.NewErrorContext().
					WithOperation("sync repositories").
					WithSuggestion("Check that every repository location is still readable").
					WithIssue(issue.RepositorySyncFailedId).
					Wrap(syncErr).
					BuildError()
			}
			return nil
		},
	})

	repoCmd.AddCommand(&cobra.Command{
		Use:   "watch",
		Short: "Sync repositories whenever their files change",
		Long: `Sync repositories whenever their files change.

Only on-disk repositories are watched. The watch section of the configuration
selects the files that trigger a sync and the debounce period. Stop with Ctrl+C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), app, rf, cmd.OutOrStdout())
		},
	})

	return repoCmd
}

func runWatch(ctx context.Context, app *App, rf *rootFlagValues, out io.Writer) error {
	ws, err := app.openWorkspace(ctx, rf)
	if err != nil {
		return err
	}
	w, err := watch.Repositories(ws.repos, watch.Config{
		Patterns: ws.cfg.Watch.Patterns,
		Ignore:   ws.cfg.Watch.Ignore,
		Debounce: ws.cfg.Watch.Debounce,
	}, func(r *repo.Repository, d repo.Delta) {
		printDelta(out, r.Name(), d)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %s\n", SubtitleStyle.Render("watching"), strings.Join(w.Roots(), ", "))
	return w.Run(ctx)
}

// repository returns the repository called name.
func (ws *workspace) repository(name string) (*repo.Repository, error) {
	r, ok := ws.repos.Get(name)
	if !ok {
		return nil, issue.NewErrorContext().
			WithOperation("find repository").
			WithResource(name).
			WithSuggestion("Run 'pkgkit repo list' to see the configured repositories").
			WithIssue(issue.RepositoryNotFoundId).
			Wrap(errors.New("no such repository")).
			BuildError()
	}
	return r, nil
}

// metadata reads cpv from repoName, or from the first repository that has it.
func (ws *workspace) metadata(ctx context.Context, cpv atom.CPV, repoName string) (*metadata.Package, error) {
	if repoName != "" {
		r, err := ws.repository(repoName)
		if err != nil {
			return nil, err
		}
		return r.Metadata(ctx, cpv)
	}
	for _, r := range ws.repos.Repositories() {
		p, err := r.Metadata(ctx, cpv)
		if errors.Is(err, repo.ErrNotFound) {
			continue
		}
		return p, err
	}
	return nil, fmt.Errorf("%s: %w", cpv, repo.ErrNotFound)
}

func printPackage(w io.Writer, p *metadata.Package) {
	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render(name), value)
		}
	}

	fmt.Fprintln(w, TitleStyle.Render(p.CPV().String())+repoStyle.Render("::"+p.Repo()))
	field("EAPI", p.EAPI())
	field("DESCRIPTION", p.Description())
	field("HOMEPAGE", strings.Join(p.Homepage(), " "))
	slot := p.Slot()
	if p.Subslot() != "" && p.Subslot() != p.Slot() {
		slot += "/" + p.Subslot()
	}
	field("SLOT", slot)
	field("KEYWORDS", strings.Join(p.Keywords(), " "))
	iuse := make([]string, 0, len(p.IUse()))
	for _, u := range p.IUse() {
		iuse = append(iuse, u.String())
	}
	field("IUSE", strings.Join(iuse, " "))
	field("LICENSE", p.License().String())
	field("REQUIRED_USE", p.RequiredUse().String())
	for _, c := range metadata.Classes() {
		field(c.String(), p.Dependencies(c).String())
	}
	field("INHERIT", strings.Join(p.Inherited(), " "))
	for _, m := range p.Maintainers() {
		who := m.Email
		if m.Name != "" {
			who = m.Name + " <" + m.Email + ">"
		}
		field("MAINTAINER", who+" ("+string(m.Type)+")")
	}
	field("LONG_DESCRIPTION", p.LongDescription())
}

func printDelta(w io.Writer, name string, d repo.Delta) {
	if d.Empty() {
		fmt.Fprintf(w, "%s %s\n", TitleStyle.Render(name), SubtitleStyle.Render("unchanged"))
		return
	}
	fmt.Fprintf(w, "%s %s\n", TitleStyle.Render(name), SubtitleStyle.Render(fmt.Sprintf("generation %d", d.To)))
	for _, cpv := range d.Added {
		fmt.Fprintln(w, SuccessStyle.Render("  + ")+cpv.String())
	}
	for _, cpv := range d.Removed {
		fmt.Fprintln(w, ErrorStyle.Render("  - ")+cpv.String())
	}
	for _, cpv := range d.Changed {
		fmt.Fprintln(w, WarningStyle.Render("  ~ ")+cpv.String())
	}
}
