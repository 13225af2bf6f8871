// Package manim compiles generated scene sources into video clips with the
// manim command line.
package manim

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"topic2manim/internal/services"
)

const (
	defaultTimeout = 300 * time.Second
	stderrTail     = 1500
)

var qualityDirs = map[string]string{
	"l": "480p15",
	"m": "720p30",
	"h": "1080p60",
	"p": "1440p60",
	"k": "2160p60",
}

// QualityDir returns the directory manim writes clips of quality into.
func QualityDir(quality string) (string, bool) {
	dir, ok := qualityDirs[strings.ToLower(strings.TrimSpace(quality))]
	return dir, ok
}

// Config captures renderer settings.
type Config struct {
	Binary   string
	Quality  string
	Timeout  time.Duration
	MediaDir string
}

// Renderer runs manim once per scene.
type Renderer struct {
	binary   string
	quality  string
	timeout  time.Duration
	mediaDir string
}

// New constructs a Renderer.
func New(cfg Config) *Renderer {
	r := &Renderer{
		binary:   strings.TrimSpace(cfg.Binary),
		quality:  strings.ToLower(strings.TrimSpace(cfg.Quality)),
		timeout:  cfg.Timeout,
		mediaDir: cfg.MediaDir,
	}
	if r.binary == "" {
		r.binary = "manim"
	}
	if _, ok := qualityDirs[r.quality]; !ok {
		r.quality = "l"
	}
	if r.timeout <= 0 {
		r.timeout = defaultTimeout
	}
	return r
}

// Binary returns the configured manim executable.
func (r *Renderer) Binary() string { return r.binary }

// ClipPath returns where manim places the clip for sourcePath and className.
func (r *Renderer) ClipPath(sourcePath, className string) string {
	stem := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	return filepath.Join(r.mediaDir, "videos", stem, qualityDirs[r.quality], className+".mp4")
}

// Compile renders className from sourcePath and returns the clip path. The
// render is bounded by the configured timeout; on expiry the whole process
// group is killed so LaTeX and ffmpeg children do not linger.
func (r *Renderer) Compile(ctx context.Context, sourcePath, className string) (string, error) {
	className = strings.TrimSpace(className)
	if className == "" {
		return "", services.Wrap(services.ErrValidation, "manim", "compile", "scene class name is empty", nil)
	}
	if _, err := os.Stat(sourcePath); err != nil {
		return "", services.Wrap(services.ErrNotFound, "manim", "compile", "scene source missing", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args := []string{"-q" + r.quality, "--media_dir", r.mediaDir, sourcePath, className}
	cmd := exec.CommandContext(runCtx, r.binary, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
	cmd.WaitDelay = 5 * time.Second
	var stderr tailBuffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		return "", services.Wrap(services.ErrTimeout, "manim", "compile",
			fmt.Sprintf("render of %s exceeded %s", className, r.timeout), runCtx.Err())
	case ctx.Err() != nil:
		return "", services.Wrap(services.ErrTimeout, "manim", "compile", "render cancelled", ctx.Err())
	case err != nil:
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = "manim exited with an error"
		}
		return "", services.Wrap(services.ErrExternalTool, "manim", "compile", msg, err)
	}

	clip := r.ClipPath(sourcePath, className)
	if info, err := os.Stat(clip); err != nil || info.IsDir() {
		if err == nil {
			err = errors.New("clip path is a directory")
		}
		return "", services.Wrap(services.ErrNotFound, "manim", "compile", "rendered clip not found", err)
	}
	return clip, nil
}

// tailBuffer keeps the last stderrTail bytes written to it; manim prints the
// traceback at the end.
type tailBuffer struct {
	buf []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - stderrTail; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string { return string(b.buf) }
