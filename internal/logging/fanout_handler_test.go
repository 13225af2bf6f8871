package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
)

func TestNewFanoutHandlerCollapses(t *testing.T) {
	if _, ok := newFanoutHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every handler is nil")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newFanoutHandler(nil, inner); h != inner {
		t.Fatal("expected single non-nil handler to be returned unwrapped")
	}
}

func TestFanoutHandlerRoutesByLevel(t *testing.T) {
	var consoleBuf, fileBuf bytes.Buffer
	console := slog.NewJSONHandler(&consoleBuf, &slog.HandlerOptions{Level: slog.LevelWarn})
	file := slog.NewJSONHandler(&fileBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	h := newFanoutHandler(console, file)
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected fanout enabled when any handler accepts debug")
	}

	logger := slog.New(h)
	logger.Debug("scene source written")
	if consoleBuf.Len() != 0 {
		t.Fatal("warn handler must not receive debug records")
	}
	if fileBuf.Len() == 0 {
		t.Fatal("debug handler should receive debug records")
	}

	logger.Warn("scene render failed", slog.Int(FieldSceneIndex, 4))
	if !bytes.Contains(consoleBuf.Bytes(), []byte(`"scene_index":4`)) {
		t.Fatalf("expected warning with attrs in console output, got %s", consoleBuf.String())
	}
}

func TestFanoutHandlerWithAttrsAndGroup(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h := newFanoutHandler(slog.NewJSONHandler(&buf1, nil), slog.NewJSONHandler(&buf2, nil))

	logger := slog.New(h.WithAttrs([]slog.Attr{slog.String(FieldJobID, "abc")}).WithGroup("render"))
	logger.Info("compiled", slog.String("class", "Scene1"))

	for i, buf := range []*bytes.Buffer{&buf1, &buf2} {
		if !bytes.Contains(buf.Bytes(), []byte(`"job_id":"abc"`)) {
			t.Fatalf("handler %d missing job attr: %s", i, buf.String())
		}
		if !bytes.Contains(buf.Bytes(), []byte(`"render":{"class":"Scene1"}`)) {
			t.Fatalf("handler %d missing group: %s", i, buf.String())
		}
	}
}
