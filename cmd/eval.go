package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/zoobzio/chainz"
)

// runOptions are the flags shared by eval and run.
type runOptions struct {
	input   string
	workers int
	verbose bool
	each    bool
}

func (o *runOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.input, "input", "i", "", "JSON input (read from stdin when omitted)")
	cmd.Flags().BoolVarP(&o.verbose, "verbose", "v", false, "Log step faults and fallbacks")
	cmd.Flags().BoolVarP(&o.each, "each", "e", false, "Run the pipeline once per element of a JSON array input")
	cmd.Flags().IntVarP(&o.workers, "workers", "w", 4, "Concurrent runs with --each")
}

func newEvalCmd(a *app) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "eval <expr>",
		Short: "Evaluate an expression against JSON input",
		Long: `Compile a pipeline expression and run it against a JSON value.

The input is taken from --input, or read from stdin when the flag is
omitted. The result is printed as JSON; a pipeline that ends with a
nullish value prints null.`,
		Example: `  echo '"  Hello World "' | chainz eval 'TrimSpace.ToLower.Fields.Join("-")'
  chainz eval --input '{"user": null}' 'user.name.fallback("anonymous")'
  chainz eval --each --input '["a b", null]' 'Fields.Join("_").fallback("")'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := chainz.Compile(args[0])
			if err != nil {
				return err
			}
			return a.evaluate(cmd, "eval", p, opts)
		},
	}

	opts.register(cmd)
	return cmd
}

func newRunCmd(a *app) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run <name>",
		Short: "Run a pipeline named in the config file",
		Long: `Run a pipeline defined under the pipelines key of the config file:

  pipelines:
    slug: 'TrimSpace.ToLower.Fields.Join("-")'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := newRegistry(a.config.Pipelines)
			if err != nil {
				return err
			}
			p, ok := reg.get(args[0])
			if !ok {
				return fmt.Errorf("unknown pipeline: %s\n\nRun 'chainz list' to see configured pipelines", args[0])
			}
			return a.evaluate(cmd, args[0], p, opts)
		},
	}

	opts.register(cmd)
	return cmd
}

// evaluate runs p through an instrumented runner and prints the result.
func (a *app) evaluate(cmd *cobra.Command, name string, p *chainz.Pipeline, opts runOptions) error {
	value, err := a.readInput(opts.input)
	if err != nil {
		return err
	}
	var batch []any
	if opts.each {
		var ok bool
		if batch, ok = value.([]any); !ok {
			return errors.New("--each requires a JSON array input")
		}
	}

	logger := a.logger.With().Str("command", cmd.Name()).Logger()
	if opts.verbose && logger.GetLevel() > zerolog.DebugLevel {
		logger = logger.Level(zerolog.DebugLevel)
	}

	runner := chainz.NewRunner(name, p).WithWorkers(opts.workers)
	defer runner.Close()
	if err := chainz.LogEvents(runner, logger); err != nil {
		return fmt.Errorf("failed to attach logger: %w", err)
	}

	logger.Debug().Str("pipeline", p.String()).Int("steps", p.Len()).Msg("running pipeline")
	if !opts.each {
		return writeOutput(cmd.OutOrStdout(), runner.Run(cmd.Context(), value))
	}

	outputs, err := runner.RunAll(cmd.Context(), batch)
	if err != nil {
		return err
	}
	for i, out := range outputs {
		if chainz.IsNullish(out) {
			outputs[i] = nil
		}
	}
	return writeOutput(cmd.OutOrStdout(), outputs)
}

func (a *app) readInput(raw string) (any, error) {
	if raw == "" && a.stdin != nil {
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		raw = string(data)
	}
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, fmt.Errorf("invalid JSON input: %w", err)
	}
	return value, nil
}

// writeOutput prints v as JSON, or with %v when v has no JSON form.
func writeOutput(w io.Writer, v any) error {
	if chainz.IsNullish(v) {
		v = nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		_, err = fmt.Fprintf(w, "%v\n", v)
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
