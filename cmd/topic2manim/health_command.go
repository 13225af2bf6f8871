package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"topic2manim/internal/deps"
	"topic2manim/internal/stage"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show the server's stage readiness and job counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			health, err := client.Health(cmd.Context())
			if err != nil {
				return wrapConnError(err, client.BaseURL())
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), health)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			heading := fmt.Sprintf("%s: %s", health.Service, health.Status)
			if colorize {
				style := okStyle
				if !health.Healthy() {
					style = errorStyle
				}
				heading = style.Render(heading)
			}
			fmt.Fprintln(out, heading)
			wf := health.Workflow
			fmt.Fprintf(out, "Workflow running: %s\n", yesNo(wf.Running))
			fmt.Fprintf(out, "Jobs: %d total, %d queued, %d running, %d completed, %d failed\n",
				wf.Jobs.Total, wf.Jobs.Queued, wf.Jobs.Running, wf.Jobs.Completed, wf.Jobs.Failed)
			if wf.LastError != "" {
				fmt.Fprintf(out, "Last error: %s\n", wf.LastError)
			}
			printStageHealth(out, wf.StageHealth)
			printDependencies(out, health.Dependencies)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}

func printStageHealth(out io.Writer, health []stage.Health) {
	if len(health) == 0 {
		return
	}
	tbl := newListTable("Stage", "State", "Detail")
	for _, h := range health {
		tbl.addRow(h.Name, h.State(), h.Detail)
	}
	fmt.Fprintln(out, tbl.render())
}

func printDependencies(out io.Writer, statuses []deps.Status) {
	if len(statuses) == 0 {
		return
	}
	tbl := newListTable("Dependency", "Command", "Available", "Path")
	for _, s := range statuses {
		location := s.Path
		if !s.Available {
			location = s.Detail
		}
		tbl.addRow(s.Name, s.Command, yesNo(s.Available), location)
	}
	if missing := len(deps.Missing(statuses)); missing > 0 {
		tbl.setFooter(fmt.Sprintf("%d missing", missing))
	}
	fmt.Fprintln(out, tbl.render())
}
