package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"topic2manim/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "assembly", "concat", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"assembly", "concat", "failed", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestDetailsExtractsMessage(t *testing.T) {
	err := services.WithHint(
		services.Wrap(services.ErrConfiguration, "script", "resolve provider", "no api key configured", nil),
		"set OPENAI_API_KEY or CLAUDE_API_KEY",
	)
	details := services.Details(err)
	if details.Kind != services.KindConfiguration {
		t.Fatalf("expected configuration kind, got %s", details.Kind)
	}
	if details.Message != "no api key configured" {
		t.Fatalf("unexpected message %q", details.Message)
	}
	if details.Hint == "" {
		t.Fatal("expected hint to survive")
	}
}

func TestDetailsPlainError(t *testing.T) {
	details := services.Details(errors.New("  plain failure "))
	if details.Message != "plain failure" {
		t.Fatalf("unexpected message %q", details.Message)
	}
	if details.Kind != services.KindTransient {
		t.Fatalf("expected transient kind, got %s", details.Kind)
	}
	if got := services.Details(nil); got.Message != "" {
		t.Fatalf("expected empty details for nil, got %+v", got)
	}
}

func TestDetailsFallsBackToCause(t *testing.T) {
	err := services.Wrap(services.ErrTimeout, "code", "render", "", context.DeadlineExceeded)
	details := services.Details(err)
	if details.Message != context.DeadlineExceeded.Error() {
		t.Fatalf("expected cause text, got %q", details.Message)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("expected cause to be reachable")
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithJobID(ctx, "job-42")
	ctx = services.WithStage(ctx, "code")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.JobIDFromContext(ctx); !ok || id != "job-42" {
		t.Fatalf("unexpected job id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "code" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
	if _, ok := services.StageFromContext(services.WithStage(context.Background(), "")); ok {
		t.Fatal("expected no stage value for blank stage")
	}
}
