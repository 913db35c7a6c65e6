// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"pkgkit/pkg/atom"
)

func newAtomCommand() *cobra.Command {
	atomCmd := &cobra.Command{
		Use:   "atom",
		Short: "Parse and match package atoms",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	atomCmd.AddCommand(&cobra.Command{
		Use:   "parse <atom>",
		Short: "Show the components of an atom",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := atom.Parse(args[0])
			if err != nil {
				return err
			}
			printAtom(cmd.OutOrStdout(), a)
			return nil
		},
	})

	atomCmd.AddCommand(&cobra.Command{
		Use:   "match <atom> <cpv>...",
		Short: "Print the CPVs an atom's name and version constraint accept",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := atom.Parse(args[0])
			if err != nil {
				return err
			}
			for _, s := range args[1:] {
				cpv, err := atom.ParseCPV(s)
				if err != nil {
					return err
				}
				if a.MatchesCPV(cpv) {
					fmt.Fprintln(cmd.OutOrStdout(), cpv)
				}
			}
			return nil
		},
	})

	return atomCmd
}

func printAtom(w io.Writer, a *atom.Atom) {
	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render(name), value)
		}
	}

	field("atom", a.String())
	if a.IsBlocker() {
		field("blocker", a.Blocker().Name())
	}
	field("operator", a.Op().String())
	field("category", a.Category())
	field("package", a.Package())
	if v, ok := a.Version(); ok {
		field("version", v.String())
	}
	field("slot", a.Slot())
	field("subslot", a.Subslot())
	field("slot operator", a.SlotOp().String())
	field("repository", a.Repo())
	for _, u := range a.UseDeps() {
		field("use", u.String())
	}
}
