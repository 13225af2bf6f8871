package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"topic2manim/internal/jobs"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var statusFilter []string

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List jobs known to the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := make(map[jobs.Status]struct{}, len(statusFilter))
			for _, value := range statusFilter {
				status, ok := jobs.ParseStatus(value)
				if !ok {
					return fmt.Errorf("unknown status %q", value)
				}
				filter[status] = struct{}{}
			}

			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			list, err := client.Jobs(cmd.Context())
			if err != nil {
				return wrapConnError(err, client.BaseURL())
			}
			if len(filter) > 0 {
				kept := list[:0]
				for _, rec := range list {
					if _, ok := filter[rec.Status]; ok {
						kept = append(kept, rec)
					}
				}
				list = kept
			}

			if jsonOut {
				if list == nil {
					list = []jobs.Record{}
				}
				return writeJSON(cmd.OutOrStdout(), list)
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No jobs")
				return nil
			}
			colorize := shouldColorize(out)
			tbl := newListTable("ID", "Topic", "Status", "Progress", "Step", "Provider", "Created").alignRight(3)
			for _, rec := range list {
				tbl.addRow(
					rec.ID,
					truncate(rec.Topic, 32),
					renderStatus(rec.Status, colorize),
					strconv.Itoa(rec.Progress)+"%",
					string(rec.CurrentStep),
					rec.Provider,
					rec.CreatedAt.Local().Format(time.DateTime),
				)
			}
			tbl.setFooter(plural(len(list), "job"))
			fmt.Fprintln(out, tbl.render())
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	cmd.Flags().StringSliceVarP(&statusFilter, "status", "s", nil, "Only show jobs with these statuses")
	return cmd
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
