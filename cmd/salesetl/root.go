package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"salesetl/internal/config"
	"salesetl/internal/logging"
	"salesetl/internal/pipeline"
)

// execute runs the command line and returns the process exit status.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return pipeline.ExitCode(err)
}

// globalOpts are the flags that are not configuration values themselves.
type globalOpts struct {
	configFile string
	envFile    string
	verbose    bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var g globalOpts

	root := &cobra.Command{
		Use:   "salesetl",
		Short: "Load quarterly sales and clients into a database and report revenue",
		Long: `salesetl verifies the sales CSV and the client workbook, loads both,
drops sales with a non-numeric amount, joins sales to clients on client_id,
writes the result to one table in a single transaction, and prints a summary.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLoad(cmd, g)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return pipeline.ConfigError(err)
	})

	pf := root.PersistentFlags()
	pf.StringVar(&g.configFile, "config", "", "YAML config file (default: ./salesetl.yaml if present)")
	pf.StringVar(&g.envFile, "env-file", "", "dotenv file with DB_PASSWORD (default: ./.env if present)")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "debug logging (same as --log-level=debug)")
	config.RegisterFlags(pf)

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run the load (default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runLoad(cmd, g)
			},
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Validate the configuration and exit",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := loadConfig(cmd, g)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid (driver=%s target=%s)\n", cfg.DB.Driver, cfg.DB.Redacted())
				return nil
			},
		},
	)
	return root
}

// loadConfig assembles and validates the configuration, printing every issue
// to stderr. Any error-severity issue fails with a config error.
func loadConfig(cmd *cobra.Command, g globalOpts) (config.Config, error) {
	flags := cmd.Flags()
	cfg, err := config.Load(config.LoadOptions{File: g.configFile, EnvFile: g.envFile, Flags: flags})
	if err != nil {
		return cfg, pipeline.ConfigError(err)
	}
	if g.verbose && !changed(flags, "log-level") {
		cfg.Log.Level = zerolog.LevelDebugValue
	}

	issues := config.Validate(cfg)
	for _, iss := range issues {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if err := config.Err(issues); err != nil {
		return cfg, pipeline.ConfigError(err)
	}
	return cfg, nil
}

func changed(fs *pflag.FlagSet, name string) bool {
	f := fs.Lookup(name)
	return f != nil && f.Changed
}

func runLoad(cmd *cobra.Command, g globalOpts) error {
	cfg, err := loadConfig(cmd, g)
	if err != nil {
		return err
	}

	w, closeLog, err := logging.Open(cfg.Log.Output)
	if err != nil {
		return pipeline.ConfigError(err)
	}
	defer closeLog()

	log, err := logging.New(w, logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Job: cfg.Job})
	if err != nil {
		return pipeline.ConfigError(err)
	}
	ctx := logging.WithContext(cmd.Context(), log)

	flush, err := setupMetrics(cfg.Job, cfg.Metrics)
	if err != nil {
		log.Warn().Err(err).Msg("metrics disabled")
	}
	defer func() {
		if err := flush(); err != nil {
			log.Warn().Err(err).Msg("metrics flush failed")
		}
	}()

	_, err = pipeline.Run(ctx, cfg, cmd.OutOrStdout())
	return err
}
