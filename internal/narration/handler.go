// Package narration implements the optional speech stage. Every scene's
// narration is synthesized to its own fragment so code generation can pace
// each animation to its audio, then the fragments are joined into one track.
// Narration is best effort: any failure leaves the job silent instead of
// failing it.
package narration

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"topic2manim/internal/jobs"
	"topic2manim/internal/logging"
	"topic2manim/internal/services"
	"topic2manim/internal/stage"
)

const silentImpact = "video will be produced without narration"

// Handler is the narration stage. A nil synthesizer means no speech
// credential is configured.
type Handler struct {
	synth    stage.Synthesizer
	mediaDir string
	logger   *slog.Logger
}

// NewHandler constructs the narration stage.
func NewHandler(synth stage.Synthesizer, mediaDir string, logger *slog.Logger) *Handler {
	return &Handler{synth: synth, mediaDir: mediaDir, logger: logging.NewComponentLogger(logger, "narration")}
}

// FragmentDir is where a job's per-scene audio fragments are written.
func FragmentDir(mediaDir, jobID string) string {
	return filepath.Join(mediaDir, "audio_fragments", jobID)
}

// AudioPath is the joined narration track for a job.
func AudioPath(mediaDir, jobID string) string {
	return filepath.Join(mediaDir, fmt.Sprintf("audio_%s.mp3", jobID))
}

func (h *Handler) Prepare(ctx context.Context, job *stage.Job) error {
	if job.NarrationRequested && h.synth != nil {
		job.Report(jobs.StepTTS, 30, "Generating audio with TTS...")
	}
	return nil
}

func (h *Handler) Execute(ctx context.Context, job *stage.Job) error {
	logger := logging.WithContext(ctx, h.logger)
	switch {
	case !job.NarrationRequested:
		job.Report(jobs.StepCode, 40, "Skipping TTS (disabled)")
		return nil
	case h.synth == nil:
		job.Report(jobs.StepTTS, 40, "Skipping TTS (no OpenAI key)")
		return nil
	}

	dir := FragmentDir(h.mediaDir, job.ID)
	job.Track(dir)
	var fragments []string
	for i := range job.Scenes {
		if err := ctx.Err(); err != nil {
			return services.Wrap(services.ErrTimeout, "tts", "synthesize", "narration interrupted", err)
		}
		scene := &job.Scenes[i]
		index := i + 1
		if scene.Text == "" {
			logging.WarnWithContext(logger, "scene has no narration text", "narration_fragment_skipped",
				logging.Int(logging.FieldSceneIndex, index),
				logging.String(logging.FieldImpact, "scene is not narrated"),
			)
			continue
		}
		dest := filepath.Join(dir, fmt.Sprintf("fragment_%d.mp3", index))
		duration, err := h.synth.Synthesize(ctx, scene.Text, dest)
		if err != nil {
			if ctx.Err() != nil {
				return services.Wrap(services.ErrTimeout, "tts", "synthesize", "narration interrupted", ctx.Err())
			}
			logging.WarnWithContext(logger, "narration fragment failed", "narration_fragment_failed",
				logging.Int(logging.FieldSceneIndex, index),
				logging.String(logging.FieldImpact, "scene is not narrated"),
				logging.Error(err),
			)
			continue
		}
		scene.AudioDuration = duration
		fragments = append(fragments, dest)
	}

	if len(fragments) == 0 {
		h.degrade(job, logger, "no narration fragments were produced", nil)
		return nil
	}
	audio := AudioPath(h.mediaDir, job.ID)
	if err := h.synth.Concatenate(ctx, fragments, audio); err != nil {
		h.degrade(job, logger, "narration fragments could not be joined", err)
		return nil
	}
	job.AudioPath = audio
	job.Track(audio)
	logger.Info("narration ready",
		logging.String(logging.FieldEventType, "narration_ready"),
		logging.Int("fragments", len(fragments)),
		logging.Int("scene_count", len(job.Scenes)),
	)
	job.Report(jobs.StepTTS, 40, "Audio generated successfully")
	return nil
}

// degrade drops per-scene pacing and records that the job continues silent.
func (h *Handler) degrade(job *stage.Job, logger *slog.Logger, reason string, err error) {
	for i := range job.Scenes {
		job.Scenes[i].AudioDuration = 0
	}
	job.AudioPath = ""
	attrs := []logging.Attr{
		logging.String("reason", reason),
		logging.String(logging.FieldImpact, silentImpact),
		logging.String(logging.FieldErrorHint, "check the OpenAI key and ffmpeg installation"),
	}
	if err != nil {
		attrs = append(attrs, logging.Error(err))
	}
	logging.WarnWithContext(logger, "narration unavailable", "narration_degraded", attrs...)
	job.Report(jobs.StepTTS, 40, "Audio generation failed, continuing without narration")
}

func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	if h.synth == nil {
		return stage.Degraded("narration", "no OpenAI key configured; videos will be silent")
	}
	return stage.Healthy("narration")
}
