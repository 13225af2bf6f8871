package ffprobe

import (
	"context"
	"math"
	"strings"
	"testing"

	"topic2manim/internal/testsupport"
)

func writeStub(t *testing.T, body string) string {
	t.Helper()
	return testsupport.WriteScript(t, t.TempDir(), "ffprobe", body)
}

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video"},
			{CodecType: "audio"},
			{CodecType: "Audio"},
		},
		Format: Format{Duration: "42.5"},
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", result.AudioStreamCount())
	}
	if result.DurationSeconds() != 42.5 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if !math.IsNaN((Result{Format: Format{Duration: "bad"}}).DurationSeconds()) {
		t.Fatal("expected NaN for unparsable duration")
	}
}

func TestInspectDecodesStubOutput(t *testing.T) {
	stub := writeStub(t, `echo '{"streams":[{"index":0,"codec_type":"video","width":854,"height":480}],"format":{"duration":"12.0"}}'`+"\n")
	result, err := Inspect(context.Background(), stub, "/tmp/clip.mp4")
	if err != nil {
		t.Fatalf("Inspect returned error: %v", err)
	}
	if result.VideoStreamCount() != 1 || result.Streams[0].Width != 854 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestInspectReportsStderr(t *testing.T) {
	stub := writeStub(t, "echo 'moov atom not found' >&2\nexit 1\n")
	_, err := Inspect(context.Background(), stub, "/tmp/broken.mp4")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); !strings.Contains(got, "moov atom not found") {
		t.Fatalf("expected stderr in error, got %q", got)
	}
}

func TestDuration(t *testing.T) {
	stub := writeStub(t, "echo 3.480000\n")
	got, err := Duration(context.Background(), stub, "/tmp/fragment.mp3")
	if err != nil {
		t.Fatalf("Duration returned error: %v", err)
	}
	if got != 3.48 {
		t.Fatalf("unexpected duration %v", got)
	}

	bad := writeStub(t, "echo N/A\n")
	if _, err := Duration(context.Background(), bad, "/tmp/fragment.mp3"); err == nil {
		t.Fatal("expected error for unusable duration")
	}
	if _, err := Duration(context.Background(), stub, " "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
