package ffmpeg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"topic2manim/internal/services"
)

// stubFFmpeg records its arguments and the concat list it was handed, then
// writes a placeholder to the final argument.
func stubFFmpeg(t *testing.T, exitCode int) (string, string) {
	t.Helper()
	dir := t.TempDir()
	argsLog := filepath.Join(dir, "args.log")
	script := `#!/bin/sh
echo "$@" > "` + argsLog + `"
prev=""
for a in "$@"; do
  if [ "$prev" = "-i" ] && [ -f "$a" ] && [ "${a%_list.txt}" != "$a" ]; then cp "$a" "` + argsLog + `.list"; fi
  prev="$a"
  last="$a"
done
if [ ` + strconv.Itoa(exitCode) + ` -ne 0 ]; then echo "Invalid data found" >&2; exit ` + strconv.Itoa(exitCode) + `; fi
echo video > "$last"
`
	bin := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return bin, argsLog
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestConcatWritesOrderedList(t *testing.T) {
	bin, argsLog := stubFFmpeg(t, 0)
	dir := t.TempDir()
	clips := []string{filepath.Join(dir, "Scene1.mp4"), filepath.Join(dir, "it's Scene2.mp4")}
	for _, c := range clips {
		touch(t, c)
	}
	dest := filepath.Join(dir, "out", "output_silent_job.mp4")

	if err := New(bin).Concat(context.Background(), clips, dest); err != nil {
		t.Fatalf("Concat returned error: %v", err)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("expected output: %v", err)
	}
	list, err := os.ReadFile(argsLog + ".list")
	if err != nil {
		t.Fatalf("read list: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(list)), "\n")
	if len(lines) != 2 || !strings.Contains(lines[0], "Scene1.mp4") || !strings.Contains(lines[1], `it'\''s Scene2.mp4`) {
		t.Fatalf("unexpected concat list:\n%s", list)
	}
	args, _ := os.ReadFile(argsLog)
	if !strings.Contains(string(args), "-f concat -safe 0") || !strings.Contains(string(args), "-c copy") {
		t.Fatalf("unexpected args: %s", args)
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "output_silent_job_list.txt")); !os.IsNotExist(err) {
		t.Fatal("concat list should be removed")
	}
}

func TestConcatMissingInput(t *testing.T) {
	bin, _ := stubFFmpeg(t, 0)
	dir := t.TempDir()
	err := New(bin).Concat(context.Background(), []string{filepath.Join(dir, "gone.mp4")}, filepath.Join(dir, "out.mp4"))
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := New(bin).Concat(context.Background(), nil, filepath.Join(dir, "out.mp4")); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for no inputs, got %v", err)
	}
}

func TestMuxArguments(t *testing.T) {
	bin, argsLog := stubFFmpeg(t, 0)
	dir := t.TempDir()
	video := filepath.Join(dir, "silent.mp4")
	audio := filepath.Join(dir, "audio.mp3")
	touch(t, video)
	touch(t, audio)
	dest := filepath.Join(dir, "output.mp4")

	if err := New(bin).Mux(context.Background(), video, audio, dest); err != nil {
		t.Fatalf("Mux returned error: %v", err)
	}
	args, _ := os.ReadFile(argsLog)
	for _, want := range []string{"-c:v copy", "-c:a aac", "-map 0:v:0", "-map 1:a:0", "-shortest"} {
		if !strings.Contains(string(args), want) {
			t.Fatalf("missing %q in args: %s", want, args)
		}
	}
}

func TestMuxFailureSurfacesStderr(t *testing.T) {
	bin, _ := stubFFmpeg(t, 1)
	dir := t.TempDir()
	video := filepath.Join(dir, "silent.mp4")
	audio := filepath.Join(dir, "audio.mp3")
	touch(t, video)
	touch(t, audio)

	err := New(bin).Mux(context.Background(), video, audio, filepath.Join(dir, "output.mp4"))
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if !strings.Contains(services.Details(err).Message, "Invalid data found") {
		t.Fatalf("expected stderr in message, got %q", services.Details(err).Message)
	}
	if err := New(bin).Mux(context.Background(), video, filepath.Join(dir, "none.mp3"), filepath.Join(dir, "o.mp4")); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for missing audio, got %v", err)
	}
}

func TestStderrTailKeepsLastBytes(t *testing.T) {
	w := &stderrTail{limit: stderrLimit}
	_, _ = w.Write([]byte(strings.Repeat("w", stderrLimit)))
	_, _ = w.Write([]byte("Conversion failed!"))
	got := w.String()
	if len(got) != stderrLimit || !strings.HasSuffix(got, "Conversion failed!") {
		t.Fatalf("expected last %d bytes ending in the failure, got %d bytes", stderrLimit, len(got))
	}
}

func TestConcatFailureReportsFinalStderrLine(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "ffmpeg")
	script := `#!/bin/sh
i=0
while [ $i -lt 200 ]; do echo "warning: non-monotonic DTS in output stream 0:0" >&2; i=$((i+1)); done
echo "Conversion failed!" >&2
exit 1
`
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	clip := filepath.Join(dir, "scene_1.mp4")
	touch(t, clip)

	err := New(bin).Concat(context.Background(), []string{clip}, filepath.Join(dir, "out", "silent.mp4"))
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	msg := services.Details(err).Message
	if !strings.HasSuffix(msg, "Conversion failed!") {
		t.Fatalf("expected message to end with the final stderr line, got %q", msg)
	}
	if len(msg) > stderrLimit {
		t.Fatalf("expected message bounded to %d bytes, got %d", stderrLimit, len(msg))
	}
}

func TestNewDefaultsBinary(t *testing.T) {
	if New("  ").Binary != "ffmpeg" {
		t.Fatal("expected default binary")
	}
}
