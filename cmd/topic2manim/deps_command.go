package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"topic2manim/internal/deps"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Check the local manim and ffmpeg installation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := deps.CheckBinaries(deps.Requirements(cfg))
			missing := deps.Missing(statuses)
			if jsonOut {
				if err := writeJSON(cmd.OutOrStdout(), statuses); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				printDependencies(out, statuses)
				fmt.Fprintf(out, "OpenAI credential: %s\n", yesNo(cfg.HasOpenAI()))
				fmt.Fprintf(out, "Claude credential: %s\n", yesNo(cfg.HasClaude()))
				fmt.Fprintf(out, "Narration: %s\n", yesNo(cfg.NarrationAvailable()))
			}
			if len(missing) > 0 {
				return fmt.Errorf("%d required dependencies missing", len(missing))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}
