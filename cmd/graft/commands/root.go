package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xraph/graft"
	"github.com/xraph/graft/config"
)

type globalOptions struct {
	configPath string
	mode       string
	verbose    bool
	noColor    bool
}

// Execute runs the root command.
func Execute(ctx context.Context, commit, buildDate string) error {
	return newRootCommand(commit, buildDate).ExecuteContext(ctx)
}

func newRootCommand(commit, buildDate string) *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "graft",
		Short: "Inspect and launch dependency graphs",
		Long: `graft assembles scopes of services described in a YAML manifest,
reports unresolved dependencies and exports, and launches the result.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			configureColors(opts.noColor)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file path (default: discover graft.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.mode, "mode", "", "requirement mode override: manual or contract")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(newCheckCommand(opts))
	rootCmd.AddCommand(newLaunchCommand(opts))
	rootCmd.AddCommand(newVersionCommand(commit, buildDate))

	return rootCmd
}

// loadConfig reads --config, or discovers a config file from the working
// directory, then applies the command line overrides.
func (o *globalOptions) loadConfig() (config.Config, error) {
	var (
		cfg  config.Config
		path = o.configPath
		err  error
	)
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, path, err = config.Discover(config.DefaultDiscoveryConfig())
	}
	if err != nil {
		return config.Config{}, err
	}

	if o.mode != "" {
		cfg.Requirements = o.mode
	}
	if o.verbose {
		cfg.Logging = graft.LoggingConfig{Level: "debug", Format: "console", Environment: "development"}
	} else if path == "" {
		// no file: keep the report readable
		cfg.Logging.Level = "error"
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

func newVersionCommand(commit, buildDate string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "graft %s (commit: %s, built: %s)\n", graft.Version, commit, buildDate)
		},
	}
}
