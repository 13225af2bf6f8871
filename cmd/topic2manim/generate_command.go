package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"topic2manim/internal/api"
	"topic2manim/internal/jobs"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var noTTS bool
	var provider string
	var watch bool
	var jsonOut bool
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "generate [topic]",
		Short: "Submit a topic for video generation",
		Long: "Submit a topic to a running server. Without a topic on an interactive terminal\n" +
			"you are prompted for one and its progress is shown live.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			interactive := shouldColorize(out) && !jsonOut

			req := api.GenerateRequest{LLMProvider: strings.TrimSpace(provider)}
			if noTTS {
				off := false
				req.EnableTTS = &off
			}
			submit := func(topic string) (string, error) {
				req.Topic = topic
				ack, err := client.Generate(cmd.Context(), req)
				if err != nil {
					return "", wrapConnError(err, client.BaseURL())
				}
				return ack.JobID, nil
			}

			topic := ""
			if len(args) == 1 {
				topic = strings.TrimSpace(args[0])
			}
			if topic == "" {
				if !interactive {
					return errors.New("a topic is required")
				}
				rec, err := runWatchTUI(newWatchModel(cmd.Context(), client, submit, ""))
				if err != nil {
					return err
				}
				return jobOutcome(rec)
			}

			req.Topic = topic
			ack, err := client.Generate(cmd.Context(), req)
			if err != nil {
				return wrapConnError(err, client.BaseURL())
			}

			if !watch {
				if jsonOut {
					return writeJSON(cmd.OutOrStdout(), ack)
				}
				fmt.Fprintf(out, "Submitted job %s (%s)\n", ack.JobID, ack.Message)
				fmt.Fprintf(out, "Follow it with: topic2manim status %s\n", ack.JobID)
				return nil
			}

			var rec jobs.Record
			if interactive {
				rec, err = runWatchTUI(newWatchModel(cmd.Context(), client, nil, ack.JobID))
			} else {
				if !jsonOut {
					fmt.Fprintf(out, "Submitted job %s\n", ack.JobID)
				}
				rec, err = pollUntilDone(cmd.Context(), client, ack.JobID, interval, func(r jobs.Record) {
					if !jsonOut {
						printProgressLine(out, r)
					}
				})
			}
			if err != nil {
				return err
			}
			if jsonOut {
				if err := writeJSON(cmd.OutOrStdout(), rec); err != nil {
					return err
				}
			} else if rec.Status == jobs.StatusCompleted {
				fmt.Fprintf(out, "Video: %s\n", client.MediaURL(rec.VideoURL))
			}
			return jobOutcome(rec)
		},
	}

	cmd.Flags().BoolVar(&noTTS, "no-tts", false, "Skip narration for this job")
	cmd.Flags().StringVar(&provider, "provider", "", "LLM provider: auto, openai or claude (defaults to the server setting)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Follow the job until it finishes")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	cmd.Flags().DurationVar(&interval, "interval", defaultPollInterval, "Polling interval while watching")
	return cmd
}

func printProgressLine(out io.Writer, rec jobs.Record) {
	step := string(rec.CurrentStep)
	if step == "" {
		step = "-"
	}
	fmt.Fprintf(out, "[%3d%%] %-9s %-6s %s\n", rec.Progress, rec.Status, step, rec.Message)
}

// jobOutcome turns a failed job into a command error.
func jobOutcome(rec jobs.Record) error {
	if rec.Status == jobs.StatusFailed {
		return fmt.Errorf("job %s failed: %s", rec.ID, rec.Error)
	}
	return nil
}
