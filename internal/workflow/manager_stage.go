package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"topic2manim/internal/logging"
	"topic2manim/internal/services"
	"topic2manim/internal/stage"
)

func (m *Manager) executeStage(ctx context.Context, stg pipelineStage, job *stage.Job) (err error) {
	requestID := uuid.NewString()
	stageCtx := withStageContext(ctx, stg.name, requestID)
	stageLogger := logging.WithContext(stageCtx, m.logger)

	if skipper, ok := stg.handler.(stage.Skipper); ok && skipper.Skip(job) {
		stageLogger.Debug("stage skipped", logging.String(logging.FieldEventType, "stage_skip"))
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			stageLogger.Error("stage panicked",
				logging.Any("panic", r),
				logging.String(logging.FieldEventType, "stage_panic"),
			)
			err = services.Wrap(services.ErrTransient, stg.name, "execute", fmt.Sprintf("%s stage crashed: %v", stg.name, r), nil)
		}
	}()

	stageStart := time.Now()
	stageLogger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("step", string(stg.step)),
		logging.String("topic", job.Topic),
	)

	if err := stg.handler.Prepare(stageCtx, job); err != nil {
		return m.stageError(stageCtx, stageLogger, stg, err)
	}
	if err := stg.handler.Execute(stageCtx, job); err != nil {
		return m.stageError(stageCtx, stageLogger, stg, err)
	}

	stageLogger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", time.Since(stageStart)),
		logging.Int("scene_count", len(job.Scenes)),
		logging.Int("scenes_rendered", len(job.Clips())),
	)
	return nil
}

// stageError normalizes a handler error. Work cut short by Stop is reported as
// an interruption rather than as the stage's own failure.
func (m *Manager) stageError(ctx context.Context, logger *slog.Logger, stg pipelineStage, err error) error {
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		logger.Debug("stage interrupted by shutdown")
		return services.Wrap(services.ErrTransient, stg.name, "execute", "Job interrupted by shutdown", err)
	}
	return err
}

func withStageContext(ctx context.Context, stageName, requestID string) context.Context {
	ctx = services.WithStage(ctx, stageName)
	if requestID != "" {
		ctx = services.WithRequestID(ctx, requestID)
	}
	return ctx
}
