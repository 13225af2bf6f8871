// Package assembly implements the video stage: rendered clips are joined in
// script order, narration is muxed on when present, and the result is
// checked with ffprobe before the job completes.
package assembly

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"topic2manim/internal/deps"
	"topic2manim/internal/fileutil"
	"topic2manim/internal/jobs"
	"topic2manim/internal/logging"
	"topic2manim/internal/media/ffprobe"
	"topic2manim/internal/services"
	"topic2manim/internal/stage"
)

// ProbeFunc inspects a media file.
type ProbeFunc func(ctx context.Context, path string) (ffprobe.Result, error)

// Options configure the video stage.
type Options struct {
	MediaDir      string
	FFmpegBinary  string
	FFprobeBinary string
	// Probe overrides the output check; nil uses ffprobe at FFprobeBinary.
	Probe ProbeFunc
}

// Handler is the video stage.
type Handler struct {
	assembler stage.Assembler
	opts      Options
	probe     ProbeFunc
	logger    *slog.Logger
}

// NewHandler constructs the video stage.
func NewHandler(assembler stage.Assembler, opts Options, logger *slog.Logger) *Handler {
	probe := opts.Probe
	if probe == nil {
		binary := opts.FFprobeBinary
		probe = func(ctx context.Context, path string) (ffprobe.Result, error) {
			return ffprobe.Inspect(ctx, binary, path)
		}
	}
	return &Handler{
		assembler: assembler,
		opts:      opts,
		probe:     probe,
		logger:    logging.NewComponentLogger(logger, "video"),
	}
}

// SilentPath is the joined clip sequence before narration.
func SilentPath(mediaDir, jobID string) string {
	return filepath.Join(mediaDir, fmt.Sprintf("output_silent_%s.mp4", jobID))
}

// OutputPath is the final artifact of a job.
func OutputPath(mediaDir, jobID string) string {
	return filepath.Join(mediaDir, fmt.Sprintf("output_%s.mp4", jobID))
}

// RemoveArtifacts deletes the videos a job may have left in mediaDir. Missing
// files are not an error.
func RemoveArtifacts(mediaDir, jobID string) error {
	var errs []error
	for _, path := range []string{OutputPath(mediaDir, jobID), SilentPath(mediaDir, jobID)} {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *Handler) Prepare(ctx context.Context, job *stage.Job) error {
	job.Report(jobs.StepVideo, 80, "Concatenating video scenes...")
	if err := os.MkdirAll(h.opts.MediaDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "video", "prepare", "media directory is not writable", err)
	}
	return nil
}

func (h *Handler) Execute(ctx context.Context, job *stage.Job) error {
	logger := logging.WithContext(ctx, h.logger)
	clips := job.Clips()
	if len(clips) == 0 {
		return services.Wrap(services.ErrValidation, "video", "concat", "No videos were generated", nil)
	}

	silent := SilentPath(h.opts.MediaDir, job.ID)
	if err := h.assembler.Concat(ctx, clips, silent); err != nil {
		return services.Wrap(services.ErrExternalTool, "video", "concat", "Failed to concatenate videos", err)
	}

	final := OutputPath(h.opts.MediaDir, job.ID)
	narrated := false
	if job.AudioPath != "" {
		job.Report(jobs.StepVideo, 90, "Merging audio with video...")
		if err := h.assembler.Mux(ctx, silent, job.AudioPath, final); err != nil {
			if ctx.Err() != nil {
				return services.Wrap(services.ErrTimeout, "video", "mux", "assembly interrupted", ctx.Err())
			}
			logging.WarnWithContext(logger, "narration merge failed", "mux_degraded",
				logging.String(logging.FieldImpact, "video is delivered without narration"),
				logging.String(logging.FieldErrorHint, "inspect the narration track with ffprobe"),
				logging.Error(err),
			)
			final = silent
		} else {
			narrated = true
			job.Track(silent)
		}
	} else if err := fileutil.MoveFile(silent, final); err != nil {
		logging.WarnWithContext(logger, "could not rename silent video", "rename_failed",
			logging.String(logging.FieldImpact, "video is served under its silent name"),
			logging.Error(err),
		)
		final = silent
	}

	result, err := h.probe(ctx, final)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "video", "verify", "Final video could not be inspected", err)
	}
	if result.VideoStreamCount() == 0 {
		return services.Wrap(services.ErrValidation, "video", "verify", "Final video has no video stream", nil)
	}

	job.VideoPath = final
	job.Narrated = narrated
	logger.Info("video assembled",
		logging.String(logging.FieldEventType, "video_assembled"),
		logging.String("video_path", final),
		logging.Int("clips", len(clips)),
		logging.Bool("narrated", narrated),
		logging.Float64("duration_seconds", result.DurationSeconds()),
	)
	return nil
}

func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	const name = "video"
	if h.assembler == nil {
		return stage.Unhealthy(name, "assembler not configured")
	}
	var reqs []deps.Requirement
	if h.opts.FFmpegBinary != "" {
		reqs = append(reqs, deps.Requirement{Name: "FFmpeg", Command: h.opts.FFmpegBinary})
	}
	if h.opts.FFprobeBinary != "" {
		reqs = append(reqs, deps.Requirement{Name: "FFprobe", Command: h.opts.FFprobeBinary})
	}
	if missing := deps.Missing(deps.CheckBinaries(reqs)); len(missing) > 0 {
		return stage.Unhealthy(name, missing[0].Detail)
	}
	return stage.Healthy(name)
}
