package workflow

import (
	"context"
	"fmt"
	"strings"

	"topic2manim/internal/jobs"
	"topic2manim/internal/logging"
	"topic2manim/internal/services"
	"topic2manim/internal/stage"
)

func (m *Manager) handleStageFailure(ctx context.Context, stageName string, job *stage.Job, stageErr error) {
	logger := logging.WithContext(services.WithStage(ctx, stageName), m.logger)

	message := classifyStageFailure(stageName, stageErr)
	m.setLastError(stageErr)

	details := services.Details(stageErr)
	attrs := []logging.Attr{
		logging.String("resolved_status", string(jobs.StatusFailed)),
		logging.String("error_message", message),
		logging.String(logging.FieldErrorKind, string(details.Kind)),
		logging.String(logging.FieldErrorOperation, details.Operation),
		logging.String(logging.FieldErrorHint, details.Hint),
	}
	if details.Cause != nil {
		attrs = append(attrs, logging.Error(details.Cause))
	} else {
		attrs = append(attrs, logging.Error(stageErr))
	}
	attrs = append(attrs, logging.String(logging.FieldEventType, "stage_failure"))
	logger.Error("stage failed", logging.Args(attrs...)...)

	mutation := jobs.Failed(message).WithScenes(len(job.Scenes), len(job.Clips()))
	if _, err := m.registry.Update(job.ID, mutation); err != nil {
		logger.Error("failed to record stage failure", logging.Error(err))
	}
}

func classifyStageFailure(stageName string, stageErr error) string {
	if stageErr == nil {
		return stageFailureMessage(stageName, "failed without error detail")
	}
	message := strings.TrimSpace(services.Details(stageErr).Message)
	if message == "" {
		message = strings.TrimSpace(stageErr.Error())
	}
	if message == "" {
		message = stageFailureMessage(stageName, "failed")
	}
	return message
}

func stageFailureMessage(stageName, defaultMsg string) string {
	if stageName != "" {
		return fmt.Sprintf("%s %s", stageName, defaultMsg)
	}
	return fmt.Sprintf("workflow %s", defaultMsg)
}
