// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"pkgkit/internal/issue"
	"pkgkit/pkg/atom"
	"pkgkit/pkg/metadata"
	"pkgkit/pkg/restrict"
)

func newSearchCommand(app *App, rf *rootFlagValues) *cobra.Command {
	var match string
	cmd := &cobra.Command{
		Use:   "search <query>...",
		Short: "Find packages by their metadata",
		Long: `Find packages by their metadata.

The arguments are joined into one query comparing package attributes with
quoted strings, for example:

  pkgkit search 'description =~ "(?i)tls" && keywords contains "amd64"'
  pkgkit search 'maintainers contains email == "crypto@example.org"'
  pkgkit search --match '>=dev-libs/openssl-3' 'homepage is None'

Attributes: ` + strings.Join(restrict.Attributes(), ", ") + `.

Every version of every package in every repository is checked, so accept
keywords do not apply. Run 'pkgkit issue invalid-query' for the grammar.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			text := strings.Join(args, " ")
			q, err := restrict.Parse(text)
			if err != nil {
				return searchFailure(err, text)
			}
			if match != "" {
				a, err := atom.Parse(match)
				if err != nil {
					return err
				}
				q = restrict.And(restrict.Atom(a), q)
			}

			ws, err := app.openWorkspace(ctx, rf)
			if err != nil {
				return err
			}
			r, err := ws.resolver(ctx)
			if err != nil {
				return err
			}
			found, err := r.Search(ctx, q)
			if err != nil {
				return err
			}
			if len(found) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), WarningStyle.Render("no packages match "+q.String()))
				return &ExitError{Code: 1}
			}
			for _, p := range found {
				printMatch(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&match, "match", "m", "", "only search packages matching this atom")
	return cmd
}

func searchFailure(err error, query string) error {
	return issue.NewErrorContext().
		WithOperation("parse search query").
		WithResource(query).
		WithSuggestion("Quote each string and wrap mixed && and || terms in parentheses").
		WithIssue(issue.InvalidQueryId).
		Wrap(err).
		BuildError()
}

func printMatch(w io.Writer, p *metadata.Package) {
	line := KeyStyle.Render(p.CPV().String()) + repoStyle.Render("::"+p.Repo())
	if d := p.Description(); d != "" {
		line += " " + SubtitleStyle.Render(d)
	}
	fmt.Fprintln(w, line)
}
