package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"topic2manim/internal/daemon"
	"topic2manim/internal/deps"
	"topic2manim/internal/jobs"
	"topic2manim/internal/logging"
	"topic2manim/internal/workflow"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server and the video workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if bind != "" {
				cfg.Paths.APIBind = bind
			}

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			if missing := deps.Missing(deps.CheckBinaries(deps.Requirements(cfg))); len(missing) > 0 {
				for _, status := range missing {
					logging.WarnWithContext(logger, "required binary unavailable", "dependency_missing",
						logging.String("dependency", status.Name),
						logging.String("command", status.Command),
						logging.String(logging.FieldImpact, "jobs will fail at the stage that needs it"),
						logging.String(logging.FieldErrorHint, "install it or set its path in the config file"),
					)
				}
			}
			if !cfg.HasOpenAI() && !cfg.HasClaude() {
				logging.WarnWithContext(logger, "no llm credential configured", "config_warning",
					logging.String(logging.FieldImpact, "generation requests will be rejected"),
					logging.String(logging.FieldErrorHint, "set CLAUDE_API_KEY or OPENAI_API_KEY"),
				)
			}

			mgr := workflow.NewManager(cfg, jobs.NewRegistry(), logger)
			registerStages(mgr, cfg, logger)

			d, err := daemon.New(cfg, mgr, logger)
			if err != nil {
				return err
			}
			if err := d.Start(runCtx); err != nil {
				mgr.Stop()
				return err
			}
			defer d.Stop()

			fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s (Ctrl+C to stop)\n", d.Status(runCtx).Address)
			<-runCtx.Done()
			logger.Info("topic2manim shutting down")
			return nil
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Override the configured api_bind address")
	return cmd
}

