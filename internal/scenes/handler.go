package scenes

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"topic2manim/internal/deps"
	"topic2manim/internal/jobs"
	"topic2manim/internal/logging"
	"topic2manim/internal/services"
	"topic2manim/internal/stage"
)

// Handler is the code stage wrapping the scene pipeline.
type Handler struct {
	pipeline    *Pipeline
	mediaDir    string
	manimBinary string
	keepSources bool
	logger      *slog.Logger
}

// HandlerOptions configure the code stage.
type HandlerOptions struct {
	MediaDir    string
	ManimBinary string
	KeepSources bool
}

// NewHandler constructs the code stage.
func NewHandler(pipeline *Pipeline, opts HandlerOptions, logger *slog.Logger) *Handler {
	return &Handler{
		pipeline:    pipeline,
		mediaDir:    opts.MediaDir,
		manimBinary: opts.ManimBinary,
		keepSources: opts.KeepSources,
		logger:      logging.NewComponentLogger(logger, "code"),
	}
}

func (h *Handler) Prepare(ctx context.Context, job *stage.Job) error {
	job.Report(jobs.StepCode, 45, "Generating Manim code...")
	if err := os.MkdirAll(h.pipeline.contentDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "code", "prepare", "content directory is not writable", err)
	}
	return nil
}

func (h *Handler) Execute(ctx context.Context, job *stage.Job) error {
	rendered, err := h.pipeline.Run(ctx, job)
	if !h.keepSources {
		h.trackRenderFiles(job)
	}
	if err != nil {
		return err
	}
	if rendered == 0 {
		return services.Wrap(services.ErrExternalTool, "code", "render", "No videos were generated", nil)
	}
	logging.WithContext(ctx, h.logger).Info("scenes rendered",
		logging.String(logging.FieldEventType, "scenes_rendered"),
		logging.Int("rendered", rendered),
		logging.Int("scene_count", len(job.Scenes)),
	)
	return nil
}

// trackRenderFiles schedules the scene sources and manim's per-source media
// folders for removal once the job is finished.
func (h *Handler) trackRenderFiles(job *stage.Job) {
	for _, scene := range job.Scenes {
		if scene.SourcePath == "" {
			continue
		}
		stem := strings.TrimSuffix(filepath.Base(scene.SourcePath), filepath.Ext(scene.SourcePath))
		job.Track(scene.SourcePath, filepath.Join(h.mediaDir, "videos", stem))
	}
}

func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	const name = "code"
	if h.pipeline == nil || h.pipeline.generator == nil || h.pipeline.renderer == nil {
		return stage.Unhealthy(name, "scene pipeline not configured")
	}
	if h.manimBinary != "" {
		status := deps.CheckBinaries([]deps.Requirement{{Name: "Manim", Command: h.manimBinary}})[0]
		if !status.Available {
			return stage.Unhealthy(name, status.Detail)
		}
	}
	return stage.Healthy(name)
}
