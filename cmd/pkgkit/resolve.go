// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"pkgkit/internal/issue"
	"pkgkit/pkg/atom"
	"pkgkit/pkg/depspec"
	"pkgkit/pkg/metadata"
	"pkgkit/pkg/resolve"
)

type resolveFlagValues struct {
	deep    bool
	expr    bool
	classes []string
}

func newQueryCommand(app *App, rf *rootFlagValues) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "query <atom>",
		Short: "Find the packages matching an atom",
		Long: `Find the packages matching an atom.

The best match is the highest version in the highest priority repository
that has any match. With --all every match is listed, by repository priority
and then descending version.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := atom.Parse(args[0])
			if err != nil {
				return err
			}
			ws, err := app.openWorkspace(cmd.Context(), rf)
			if err != nil {
				return err
			}
			var extra []resolve.Option
			if all {
				extra = append(extra, resolve.WithAllMatches())
			}
			r, err := ws.resolver(cmd.Context(), extra...)
			if err != nil {
				return err
			}
			results, err := r.Query(cmd.Context(), a)
			if err != nil {
				return resolveFailure(err, a.String())
			}
			for _, res := range results {
				printResult(cmd.OutOrStdout(), res)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "list every match instead of the best one")
	return cmd
}

func newResolveCommand(app *App, rf *rootFlagValues) *cobra.Command {
	flags := &resolveFlagValues{}
	cmd := &cobra.Command{
		Use:   "resolve <atom>... | --expr <expression>",
		Short: "Choose packages satisfying atoms or a dependency expression",
		Long: `Choose packages satisfying atoms or a dependency expression.

Without --deep only the given dependencies are satisfied. With --deep the
dependencies of every chosen package are followed too, and the plan is
printed in merge order.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var tree depspec.Tree[*atom.Atom]
			if flags.expr {
				t, err := depspec.ParseDependencies(strings.Join(args, " "))
				if err != nil {
					return err
				}
				tree = t
			} else {
				for _, s := range args {
					a, err := atom.Parse(s)
					if err != nil {
						return err
					}
					tree = append(tree, depspec.Leaf(a))
				}
			}

			var extra []resolve.Option
			if len(flags.classes) > 0 {
				classes := make([]metadata.Class, 0, len(flags.classes))
				for _, name := range flags.classes {
					c, ok := metadata.ParseClass(strings.ToUpper(name))
					if !ok {
						return fmt.Errorf("unknown dependency class %q", name)
					}
					classes = append(classes, c)
				}
				extra = append(extra, resolve.WithClasses(classes...))
			}

			ws, err := app.openWorkspace(ctx, rf)
			if err != nil {
				return err
			}
			r, err := ws.resolver(ctx, extra...)
			if err != nil {
				return err
			}

			global := ws.provider.Global()
			var plan *resolve.Plan
			if flags.deep {
				plan, err = r.ResolveDeep(ctx, tree, global)
			} else {
				plan, err = r.Resolve(ctx, tree, global)
			}
			if err != nil {
				return resolveFailure(err, tree.String())
			}
			printPlan(cmd.OutOrStdout(), plan)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&flags.deep, "deep", "D", false, "follow the dependencies of chosen packages")
	cmd.Flags().BoolVarP(&flags.expr, "expr", "e", false, "treat the arguments as one dependency expression")
	cmd.Flags().StringSliceVar(&flags.classes, "class", nil, "dependency classes followed by --deep (default all)")
	return cmd
}

// resolveFailure wraps a resolution error with its catalog entry.
func resolveFailure(err error, resource string) error {
	return issue.NewErrorContext().
		WithOperation("resolve dependencies").
		WithResource(resource).
		WithSuggestion("Run 'pkgkit query --all <atom>' to list the candidates").
		WithSuggestion("Check accept_keywords and use in the configuration").
		WithIssue(classifyError(err)).
		Wrap(err).
		BuildError()
}

func printResult(w io.Writer, res resolve.Result) {
	line := KeyStyle.Render(res.CPV().String()) + repoStyle.Render("::"+res.Repo())
	if use := res.Flags.String(); use != "" {
		line += fmt.Sprintf(" USE=%q", use)
	}
	fmt.Fprintln(w, line)
}

func printPlan(w io.Writer, plan *resolve.Plan) {
	fmt.Fprintln(w, TitleStyle.Render(fmt.Sprintf("%d package(s)", len(plan.Packages))))
	for _, res := range plan.Packages {
		fmt.Fprint(w, SuccessStyle.Render("  + "))
		printResult(w, res)
	}
	if len(plan.Uninstall) > 0 {
		fmt.Fprintln(w, WarningStyle.Render("uninstall:"))
		for _, cpv := range plan.Uninstall {
			fmt.Fprintln(w, WarningStyle.Render("  - ")+cpv.String())
		}
	}
}
