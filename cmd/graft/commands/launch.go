package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLaunchCommand(opts *globalOptions) *cobra.Command {
	var repeat int

	cmd := &cobra.Command{
		Use:   "launch <manifest>",
		Short: "Launch a manifest and print every exported value",
		Example: `  # Print each root export once
  graft launch app.yaml

  # Request each export three times to see prototypes change
  graft launch --repeat 3 app.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if repeat < 1 {
				return fmt.Errorf("--repeat must be at least 1")
			}
			a, err := assemble(opts, args[0])
			if err != nil {
				return err
			}
			defer func() { _ = a.Logger().Sync() }()

			out := cmd.OutOrStdout()
			loc, err := a.Launch(cmd.Context())
			if err != nil {
				printError(out, err)
				return fmt.Errorf("launch failed")
			}

			fmt.Fprintf(out, "%s %s\n", bold("launch"), gray(loc.Launch().ID()))
			for _, k := range loc.Keys() {
				for range repeat {
					v, err := loc.Get(k)
					if err != nil {
						printError(out, err)
						return fmt.Errorf("launch failed")
					}
					fmt.Fprintf(out, "  %s = %s\n", cyan(displayName(k)), green(fmt.Sprint(v)))
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&repeat, "repeat", "n", 1, "number of times each export is requested")
	return cmd
}
