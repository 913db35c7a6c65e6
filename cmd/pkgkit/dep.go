// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"pkgkit/internal/config"
	"pkgkit/pkg/atom"
	"pkgkit/pkg/depspec"
	"pkgkit/pkg/flags"
)

// depFlagValues holds the flag assignment shared by the dep subcommands.
type depFlagValues struct {
	use     []string
	known   []string
	unknown string
	limit   int
}

func (f *depFlagValues) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.use, "use", nil, "enabled USE flags")
	cmd.Flags().StringSliceVar(&f.known, "known", nil, "additional known flags that are disabled")
	cmd.Flags().StringVar(&f.unknown, "unknown", string(config.UnknownFlagsDisabled), "policy for flags outside the known set: disabled or drop")
}

func (f *depFlagValues) assignment() (flags.Assignment, error) {
	for _, k := range append(slices.Clone(f.use), f.known...) {
		if !atom.ValidUseFlag(k) {
			return flags.Assignment{}, fmt.Errorf("%w: %q", flags.ErrInvalidUse, k)
		}
	}
	return flags.NewAssignment(f.use, f.known...), nil
}

func (f *depFlagValues) policy() (depspec.UnknownFlagPolicy, error) {
	return unknownFlagPolicy(config.UnknownFlags(f.unknown))
}

// unknownFlagPolicy converts the configuration value to the evaluator's.
func unknownFlagPolicy(u config.UnknownFlags) (depspec.UnknownFlagPolicy, error) {
	if ok, errs := u.IsValid(); !ok {
		return 0, errs[0]
	}
	if u == config.UnknownFlagsDrop {
		return depspec.UnknownFlagsDrop, nil
	}
	return depspec.UnknownFlagsDisabled, nil
}

func (f *depFlagValues) evaluate(expr string) (depspec.Tree[*atom.Atom], error) {
	tree, err := depspec.ParseDependencies(expr)
	if err != nil {
		return nil, err
	}
	assign, err := f.assignment()
	if err != nil {
		return nil, err
	}
	policy, err := f.policy()
	if err != nil {
		return nil, err
	}
	return tree.Evaluate(assign, depspec.WithUnknownFlags(policy)), nil
}

func newDepCommand() *cobra.Command {
	depCmd := &cobra.Command{
		Use:   "dep",
		Short: "Parse and evaluate dependency expressions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	evalFlags := &depFlagValues{}
	evalCmd := &cobra.Command{
		Use:   "eval <expression>",
		Short: "Reduce use-conditionals against a flag assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := evalFlags.evaluate(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tree.String())
			return nil
		},
	}
	evalFlags.register(evalCmd)

	flattenFlags := &depFlagValues{}
	flattenCmd := &cobra.Command{
		Use:   "flatten <expression>",
		Short: "List every atom of the evaluated expression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := flattenFlags.evaluate(args[0])
			if err != nil {
				return err
			}
			for _, a := range tree.Flatten() {
				fmt.Fprintln(cmd.OutOrStdout(), a)
			}
			return nil
		},
	}
	flattenFlags.register(flattenCmd)

	choiceFlags := &depFlagValues{}
	choicesCmd := &cobra.Command{
		Use:   "choices <expression>",
		Short: "Enumerate the ways of satisfying the evaluated expression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := choiceFlags.evaluate(args[0])
			if err != nil {
				return err
			}
			n := 0
			for choice := range tree.Choices() {
				if choiceFlags.limit > 0 && n == choiceFlags.limit {
					break
				}
				n++
				parts := make([]string, len(choice))
				for i, a := range choice {
					parts[i] = a.String()
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d: %s\n", n, strings.Join(parts, " "))
			}
			return nil
		},
	}
	choiceFlags.register(choicesCmd)
	choicesCmd.Flags().IntVar(&choiceFlags.limit, "limit", 0, "stop after this many choices (0 for all)")

	reqFlags := &depFlagValues{}
	requiredUseCmd := &cobra.Command{
		Use:   "required-use <expression>",
		Short: "Check a REQUIRED_USE expression against a flag assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := depspec.ParseRequiredUse(args[0])
			if err != nil {
				return err
			}
			assign, err := reqFlags.assignment()
			if err != nil {
				return err
			}
			if err := depspec.CheckRequiredUse(tree, assign); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("satisfied"))
			return nil
		},
	}
	reqFlags.register(requiredUseCmd)

	depCmd.AddCommand(evalCmd, flattenCmd, choicesCmd, requiredUseCmd)
	return depCmd
}
