package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"topic2manim/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the progress of one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			id := strings.TrimSpace(args[0])
			rec, err := client.Progress(cmd.Context(), id)
			if errors.Is(err, api.ErrJobNotFound) {
				return fmt.Errorf("job %s not found (finished jobs are evicted after the retention window)", id)
			}
			if err != nil {
				return wrapConnError(err, client.BaseURL())
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), rec)
			}
			out := cmd.OutOrStdout()
			for _, line := range recordLines(rec, client.MediaURL(rec.VideoURL), shouldColorize(out)) {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}
