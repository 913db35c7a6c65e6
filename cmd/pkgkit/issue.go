// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pkgkit/internal/config"
	"pkgkit/internal/issue"
)

func newIssueCommand(app *App, rf *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:       "issue [name]",
		Short:     "Explain an error class and how to fix it",
		Long:      "Explain an error class and how to fix it. Without a name, list the known issues.",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: issue.Names(),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, name := range issue.Names() {
					fmt.Fprintln(w, KeyStyle.Render(name))
				}
				return nil
			}

			it, ok := issue.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown issue %q (known: %s)", args[0], strings.Join(issue.Names(), ", "))
			}

			scheme := config.ColorSchemeAuto
			if cfg, err := app.loadConfig(cmd.Context(), rf); err == nil {
				scheme = cfg.UI.ColorScheme
			}
			rendered, err := it.Render(glamourStyle(w, scheme))
			if err != nil {
				return fmt.Errorf("render issue %s: %w", args[0], err)
			}
			fmt.Fprint(w, rendered)
			return nil
		},
	}
}
