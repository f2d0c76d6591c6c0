package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xraph/graft"
)

func newCheckCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <manifest>",
		Short: "Build a manifest and report unresolved dependencies and exports",
		Long: `Build every scope of a manifest without launching it.

The report lists each scope with its services and exports, every
unresolved dependency with the sites requesting it, and every export
that could not be resolved or was declared more than once.`,
		Example: `  # Check a manifest with the discovered configuration
  graft check app.yaml

  # Report requirements instead of failing on them
  graft check --mode contract app.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := assemble(opts, args[0])
			if err != nil {
				return err
			}
			defer func() { _ = a.Logger().Sync() }()

			out := cmd.OutOrStdout()
			buildErr := a.Build()
			printScopes(out, a)
			printRequirements(out, a.Requirements())

			if buildErr != nil {
				printError(out, buildErr)
				return fmt.Errorf("check failed")
			}
			fmt.Fprintln(out, boldGreen("ok"))
			return nil
		},
	}
}

func assemble(opts *globalOptions, path string) (*graft.Assembly, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}
	m, err := LoadManifest(path)
	if err != nil {
		return nil, err
	}
	return m.Assemble(graft.WithConfig(cfg))
}
