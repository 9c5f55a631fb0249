package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd(os.Stdin).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app carries the state shared by all commands of one invocation.
type app struct {
	viper  *viper.Viper
	stdin  io.Reader
	logger zerolog.Logger
	config Config
}

func newRootCmd(stdin io.Reader) *cobra.Command {
	a := &app{viper: viper.New(), stdin: stdin, logger: zerolog.Nop()}
	var configFile string

	rootCmd := &cobra.Command{
		Use:   "chainz",
		Short: "Evaluate deferred member-access pipelines",
		Long: `chainz is a CLI tool for building and evaluating pipelines of member
accesses, method calls and fallbacks against JSON input.

Pipelines are written in chained member syntax, for example
  TrimSpace.ToLower.Fields.Join("-")
and can be given inline or named in a config file.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(a.viper, configFile)
			if err != nil {
				return err
			}
			a.config = *cfg
			a.logger = newLogger(cfg.Log, cmd.ErrOrStderr())
			return nil
		},
	}

	// Disable default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Config file (yaml, json or toml)")
	flags.String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	flags.String("log-format", "console", "Log format (console or json)")
	_ = a.viper.BindPFlag("log.level", flags.Lookup("log-level"))   //nolint:errcheck
	_ = a.viper.BindPFlag("log.format", flags.Lookup("log-format")) //nolint:errcheck

	rootCmd.AddCommand(
		newEvalCmd(a),
		newRunCmd(a),
		newListCmd(a),
		newStepsCmd(),
		newNamesCmd(),
		newBenchCmd(a),
	)
	return rootCmd
}
