package main

import (
	"flag"
	"fmt"
	"testing"

	"github.com/spf13/cobra"
	"github.com/zoobzio/chainz"
)

func newBenchCmd(a *app) *cobra.Command {
	var (
		input     string
		benchTime string
	)

	cmd := &cobra.Command{
		Use:     "benchmark <expr>",
		Aliases: []string{"bench"},
		Short:   "Measure how fast an expression runs",
		Long: `Compile a pipeline expression and benchmark Pipeline.Run against
the given JSON input, reporting time and allocations per run.`,
		Example: `  chainz bench --input '"  Hello World "' 'TrimSpace.ToLower.Fields.Join("-")'`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := chainz.Compile(args[0])
			if err != nil {
				return err
			}
			value, err := a.readInput(input)
			if err != nil {
				return err
			}

			testing.Init()
			if err := flag.Set("test.benchtime", benchTime); err != nil {
				return fmt.Errorf("invalid --time %q: %w", benchTime, err)
			}

			a.logger.Debug().Str("pipeline", p.String()).Str("benchtime", benchTime).Msg("benchmarking")
			result := testing.Benchmark(func(b *testing.B) {
				b.ReportAllocs()
				for i := 0; i < b.N; i++ {
					_ = p.Run(value)
				}
			})

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", p)
			fmt.Fprintf(out, "%s\t%s\n", result.String(), result.MemString())
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "JSON input (read from stdin when omitted)")
	cmd.Flags().StringVar(&benchTime, "time", "1s", "Benchmark duration, or a run count such as 100x")
	return cmd
}
