package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zoobzio/chainz"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured pipelines",
		Long:  "Display the pipelines defined in the config file with their expressions.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := newRegistry(a.config.Pipelines)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			names := reg.names()
			if len(names) == 0 {
				fmt.Fprintln(out, "No pipelines configured.")
				return nil
			}
			fmt.Fprintln(out, "Configured pipelines:")
			fmt.Fprintln(out)
			for _, name := range names {
				fmt.Fprintf(out, "  %-12s %s\n", name, reg.source(name))
			}
			return nil
		},
	}
}

func newStepsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "steps <expr>",
		Short: "Show the steps an expression compiles to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := chainz.Compile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, step := range p.Steps() {
				fmt.Fprintf(out, "%d\t%s\t%s\n", i, step.Kind, step)
			}
			return nil
		},
	}
}

func newNamesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "names",
		Short: "List the reserved operation names",
		Long: `List the names reserved for pipeline operations. In expressions
these names are read as operations, never as members; use brackets,
for example ["run"], to read a member that carries one of them.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, name := range chainz.ProtectedNames() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}
