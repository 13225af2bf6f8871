package scripting

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"topic2manim/internal/jobs"
	"topic2manim/internal/logging"
	"topic2manim/internal/services"
	"topic2manim/internal/services/llm"
	"topic2manim/internal/stage"
)

// ProviderLister reports which providers have credentials.
type ProviderLister interface {
	Available() []llm.Provider
}

// Handler is the script stage: it turns the topic into scenes and persists
// them as the job's script file.
type Handler struct {
	generator  stage.ScriptGenerator
	providers  ProviderLister
	contentDir string
	logger     *slog.Logger
}

// NewHandler constructs the script stage. providers may be nil, in which case
// the health check only validates the content directory.
func NewHandler(generator stage.ScriptGenerator, providers ProviderLister, contentDir string, logger *slog.Logger) *Handler {
	return &Handler{
		generator:  generator,
		providers:  providers,
		contentDir: contentDir,
		logger:     logging.NewComponentLogger(logger, "script"),
	}
}

// ScriptPath is the per-job script file under contentDir.
func ScriptPath(contentDir, jobID string) string {
	return filepath.Join(contentDir, fmt.Sprintf("video-output-%s.json", jobID))
}

func (h *Handler) Prepare(ctx context.Context, job *stage.Job) error {
	job.Report(jobs.StepScript, 5, "Setting up LLM client...")
	if err := os.MkdirAll(h.contentDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "script", "prepare", "content directory is not writable", err)
	}
	return nil
}

func (h *Handler) Execute(ctx context.Context, job *stage.Job) error {
	logger := logging.WithContext(ctx, h.logger)
	job.Reportf(jobs.StepScript, 10, "Generating script with %s...", job.Provider)

	scenes, err := h.generator.Generate(ctx, job.Provider, job.Topic)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "script", "generate", "Could not generate script", err)
	}
	if len(scenes) == 0 {
		return services.Wrap(services.ErrValidation, "script", "generate", "Could not generate script: no scenes returned", nil)
	}

	path := ScriptPath(h.contentDir, job.ID)
	data, err := json.MarshalIndent(scenes, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrValidation, "script", "persist", "encode script", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return services.Wrap(services.ErrConfiguration, "script", "persist", "write script file", err)
	}
	job.Scenes = scenes
	job.ScriptPath = path
	job.Track(path)

	logger.Info("script generated",
		logging.String(logging.FieldEventType, "script_generated"),
		logging.Int("scene_count", len(scenes)),
		logging.String("script_path", path),
	)
	job.Reportf(jobs.StepScript, 25, "Script generated with %d scenes", len(scenes))
	return nil
}

func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	const name = "script"
	if h.generator == nil {
		return stage.Unhealthy(name, "script generator not configured")
	}
	if h.providers != nil && len(h.providers.Available()) == 0 {
		return stage.Unhealthy(name, llm.MissingKeyMessage)
	}
	return stage.Healthy(name)
}
