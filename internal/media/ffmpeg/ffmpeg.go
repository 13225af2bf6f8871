// Package ffmpeg joins rendered clips and narration fragments with the ffmpeg
// concat demuxer and muxes narration onto the joined video.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"topic2manim/internal/services"
)

const (
	defaultBinary = "ffmpeg"
	stderrLimit   = 2048
)

// Runner executes ffmpeg.
type Runner struct {
	Binary string
}

// New returns a Runner for binary, defaulting to "ffmpeg" on PATH.
func New(binary string) *Runner {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = defaultBinary
	}
	return &Runner{Binary: binary}
}

// Concat joins inputs in order into dest without re-encoding. Every input
// must exist. The concat list is written beside dest and removed afterwards.
func (r *Runner) Concat(ctx context.Context, inputs []string, dest string) error {
	if len(inputs) == 0 {
		return services.Wrap(services.ErrValidation, "ffmpeg", "concat", "no inputs to concatenate", nil)
	}
	listPath, err := writeConcatList(inputs, dest)
	if err != nil {
		return err
	}
	defer os.Remove(listPath)

	args := []string{"-hide_banner", "-loglevel", "error", "-y",
		"-f", "concat", "-safe", "0", "-i", listPath,
		"-c", "copy", dest}
	return r.run(ctx, "concat", dest, args)
}

// Mux combines the first video stream of video with the first audio stream
// of audio, stopping at the shorter of the two.
func (r *Runner) Mux(ctx context.Context, video, audio, dest string) error {
	for _, in := range []string{video, audio} {
		if _, err := os.Stat(in); err != nil {
			return services.Wrap(services.ErrNotFound, "ffmpeg", "mux", "input missing", err)
		}
	}
	args := []string{"-hide_banner", "-loglevel", "error", "-y",
		"-i", video, "-i", audio,
		"-c:v", "copy", "-c:a", "aac",
		"-map", "0:v:0", "-map", "1:a:0",
		"-shortest", dest}
	return r.run(ctx, "mux", dest, args)
}

func (r *Runner) run(ctx context.Context, op, dest string, args []string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "ffmpeg", op, "create output directory", err)
	}
	cmd := exec.CommandContext(ctx, r.Binary, args...)
	stderr := &stderrTail{limit: stderrLimit}
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		_ = os.Remove(dest)
		if ctx.Err() != nil {
			return services.Wrap(services.ErrTimeout, "ffmpeg", op, "ffmpeg interrupted", ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = "ffmpeg exited with an error"
		}
		return services.Wrap(services.ErrExternalTool, "ffmpeg", op, msg, err)
	}
	if info, err := os.Stat(dest); err != nil || info.Size() == 0 {
		if err == nil {
			err = errors.New("empty output")
		}
		return services.Wrap(services.ErrExternalTool, "ffmpeg", op, "ffmpeg produced no output", err)
	}
	return nil
}

func writeConcatList(inputs []string, dest string) (string, error) {
	var b strings.Builder
	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			return "", services.Wrap(services.ErrValidation, "ffmpeg", "concat", "resolve input path", err)
		}
		if _, err := os.Stat(abs); err != nil {
			return "", services.Wrap(services.ErrNotFound, "ffmpeg", "concat", fmt.Sprintf("input %s missing", filepath.Base(in)), err)
		}
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(abs, "'", `'\''`))
		b.WriteString("'\n")
	}
	listPath := strings.TrimSuffix(dest, filepath.Ext(dest)) + "_list.txt"
	if err := os.MkdirAll(filepath.Dir(listPath), 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "ffmpeg", "concat", "create list directory", err)
	}
	if err := os.WriteFile(listPath, []byte(b.String()), 0o644); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "ffmpeg", "concat", "write concat list", err)
	}
	return listPath, nil
}

// stderrTail keeps the last limit bytes of ffmpeg's stderr. With -loglevel
// error the failing input or codec is reported last.
type stderrTail struct {
	buf   []byte
	limit int
}

func (w *stderrTail) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	if over := len(w.buf) - w.limit; over > 0 {
		w.buf = append(w.buf[:0], w.buf[over:]...)
	}
	return len(p), nil
}

func (w *stderrTail) String() string { return string(w.buf) }
