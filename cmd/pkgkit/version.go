// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"pkgkit/pkg/version"
)

func newVersionCommand() *cobra.Command {
	verCmd := &cobra.Command{
		Use:   "version",
		Short: "Parse, compare and sort package versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	verCmd.AddCommand(&cobra.Command{
		Use:   "compare <a> <b>",
		Short: "Print <, = or > for two versions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := version.Parse(args[0])
			if err != nil {
				return err
			}
			b, err := version.Parse(args[1])
			if err != nil {
				return err
			}
			op := "="
			switch c := a.Compare(b); {
			case c < 0:
				op = "<"
			case c > 0:
				op = ">"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", a, op, b)
			return nil
		},
	})

	verCmd.AddCommand(&cobra.Command{
		Use:   "sort <version>...",
		Short: "Print versions in ascending order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vs := make([]version.Version, 0, len(args))
			for _, s := range args {
				v, err := version.Parse(s)
				if err != nil {
					return err
				}
				vs = append(vs, v)
			}
			version.Sort(vs)
			for _, v := range vs {
				fmt.Fprintln(cmd.OutOrStdout(), v)
			}
			return nil
		},
	})

	return verCmd
}
