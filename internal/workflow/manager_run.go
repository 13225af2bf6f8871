package workflow

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"topic2manim/internal/fileutil"
	"topic2manim/internal/jobs"
	"topic2manim/internal/logging"
	"topic2manim/internal/services"
	"topic2manim/internal/stage"
)

const completedMessage = "Video generation completed!"

func (m *Manager) runJob(ctx context.Context, cancel context.CancelFunc, stages []pipelineStage, job *stage.Job) {
	defer m.wg.Done()
	defer cancel()

	jobCtx := services.WithJobID(ctx, job.ID)
	logger := logging.WithContext(jobCtx, m.logger)
	job.Progress = m.progressReporter(job, logger)
	defer m.cleanup(job, logger)

	started := time.Now()
	for _, stg := range stages {
		if err := m.executeStage(jobCtx, stg, job); err != nil {
			m.handleStageFailure(jobCtx, stg.name, job, err)
			return
		}
	}
	m.completeJob(jobCtx, job, logger, started)
}

func (m *Manager) completeJob(ctx context.Context, job *stage.Job, logger *slog.Logger, started time.Time) {
	if job.VideoPath == "" {
		err := services.Wrap(services.ErrValidation, "workflow", "complete", "No output video was produced", nil)
		m.handleStageFailure(ctx, "assembly", job, err)
		return
	}
	url := "/media/" + filepath.Base(job.VideoPath)
	mutation := jobs.Completed(url, completedMessage, job.Narrated).WithScenes(len(job.Scenes), len(job.Clips()))
	if _, err := m.registry.Update(job.ID, mutation); err != nil {
		logger.Error("failed to record job completion", logging.Error(err))
		return
	}
	logger.Info("job completed",
		logging.String("video_url", url),
		logging.Int("scene_count", len(job.Scenes)),
		logging.Int("scenes_rendered", len(job.Clips())),
		logging.Bool("narrated", job.Narrated),
		logging.Duration("job_duration", time.Since(started)),
		logging.String(logging.FieldEventType, "job_complete"),
	)
}

// progressReporter maps stage milestones onto registry updates. It runs on the
// job goroutine only, so reading job state here needs no locking.
func (m *Manager) progressReporter(job *stage.Job, logger *slog.Logger) stage.Reporter {
	sampler := logging.NewProgressSampler(10)
	return stage.ReporterFunc(func(step jobs.Step, percent int, message string) {
		mutation := jobs.Progress(step, percent, message).WithScenes(len(job.Scenes), len(job.Clips()))
		rec, err := m.registry.Update(job.ID, mutation)
		if err != nil {
			logger.Warn("progress update rejected",
				logging.String("step", string(step)),
				logging.Int(logging.FieldProgressPercent, percent),
				logging.Error(err),
			)
			return
		}
		if sampler.ShouldLog(float64(rec.Progress), string(step)) {
			logger.Info("job progress",
				logging.String("step", string(step)),
				logging.Int(logging.FieldProgressPercent, rec.Progress),
				logging.String("message", message),
				logging.String(logging.FieldEventType, "job_progress"),
			)
		}
	})
}

func (m *Manager) cleanup(job *stage.Job, logger *slog.Logger) {
	if len(job.Artifacts) == 0 {
		return
	}
	if err := fileutil.RemoveFiles(job.Artifacts...); err != nil {
		logging.WarnWithContext(logger, "intermediate file cleanup incomplete", "cleanup_failed",
			logging.Int("artifact_count", len(job.Artifacts)),
			logging.String(logging.FieldImpact, "intermediate files remain on disk"),
			logging.Error(err),
		)
		return
	}
	logger.Debug("intermediate files removed", logging.Int("artifact_count", len(job.Artifacts)))
}
