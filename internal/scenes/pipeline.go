// Package scenes implements the code stage: a fold over the script's scenes
// that generates Manim source for each one, renders it, and threads the last
// successful scene forward as continuity for the next.
package scenes

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"topic2manim/internal/jobs"
	"topic2manim/internal/logging"
	"topic2manim/internal/services"
	"topic2manim/internal/stage"
)

const (
	progressStart = 45
	progressSpan  = 30
)

// Pipeline generates and renders scenes one at a time.
type Pipeline struct {
	generator  stage.CodeGenerator
	renderer   stage.Renderer
	contentDir string
	logger     *slog.Logger
}

// NewPipeline constructs a scene pipeline writing sources into contentDir.
func NewPipeline(generator stage.CodeGenerator, renderer stage.Renderer, contentDir string, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		generator:  generator,
		renderer:   renderer,
		contentDir: contentDir,
		logger:     logging.NewComponentLogger(logger, "scenes"),
	}
}

// SourcePath names the source file of scene index for a job. The job id keeps
// concurrent jobs on the same topic apart.
func SourcePath(contentDir, slug, jobID string, index int) string {
	return filepath.Join(contentDir, fmt.Sprintf("%s-%s-%d.py", slug, jobID, index))
}

// Run processes every scene of job in order and returns how many rendered.
// A scene that fails is logged and skipped; continuity stays with the last
// scene that rendered. Only cancellation of ctx stops the fold early.
func (p *Pipeline) Run(ctx context.Context, job *stage.Job) (int, error) {
	logger := logging.WithContext(ctx, p.logger)
	total := len(job.Scenes)
	var previous stage.Continuity
	rendered := 0

	for i := range job.Scenes {
		index := i + 1
		job.Reportf(jobs.StepCode, progressStart+index*progressSpan/total, "Processing scene %d/%d...", index, total)
		if err := ctx.Err(); err != nil {
			return rendered, services.Wrap(services.ErrTimeout, "code", "render", "scene processing interrupted", err)
		}

		scene := &job.Scenes[i]
		err := p.processScene(ctx, job, scene, index, previous)
		if err != nil {
			if ctx.Err() != nil {
				return rendered, services.Wrap(services.ErrTimeout, "code", "render", "scene processing interrupted", ctx.Err())
			}
			details := services.Details(err)
			logging.WarnWithContext(logger, "scene skipped", "scene_failed",
				logging.Int(logging.FieldSceneIndex, index),
				logging.String("error_kind", string(details.Kind)),
				logging.String("error_message", details.Message),
				logging.String(logging.FieldImpact, "scene is left out of the final video"),
				logging.Error(err),
			)
			continue
		}
		rendered++
		previous = stage.Continuity{Text: scene.Text, Animation: scene.Animation, Code: scene.Code}
		logger.Info("scene rendered",
			logging.String(logging.FieldEventType, "scene_rendered"),
			logging.Int(logging.FieldSceneIndex, index),
			logging.String("class_name", scene.ClassName),
			logging.String("clip_path", scene.ClipPath),
		)
	}
	return rendered, nil
}

func (p *Pipeline) processScene(ctx context.Context, job *stage.Job, scene *stage.Scene, index int, previous stage.Continuity) error {
	className, code, err := p.generator.Generate(ctx, stage.SceneRequest{
		Provider:      job.Provider,
		Index:         index,
		Text:          scene.Text,
		Animation:     scene.Animation,
		AudioDuration: scene.AudioDuration,
		Previous:      previous,
	})
	if err != nil {
		return err
	}
	source := SourcePath(p.contentDir, job.Slug, job.ID, index)
	if err := os.WriteFile(source, []byte(code), 0o644); err != nil {
		return services.Wrap(services.ErrConfiguration, "code", "write source", "scene source not writable", err)
	}
	scene.ClassName = className
	scene.Code = code
	scene.SourcePath = source

	clip, err := p.renderer.Compile(ctx, source, className)
	if err != nil {
		return err
	}
	scene.ClipPath = clip
	return nil
}
