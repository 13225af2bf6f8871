package jobs_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"topic2manim/internal/jobs"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func TestCreateQueuesJob(t *testing.T) {
	clock := newClock()
	reg := jobs.NewRegistry(jobs.WithClock(clock.Now))

	rec, err := reg.Create("  Photosynthesis ", "claude")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("expected job id")
	}
	if rec.Topic != "Photosynthesis" || rec.Provider != "claude" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Status != jobs.StatusQueued || rec.Progress != 0 {
		t.Fatalf("expected queued job at 0%%, got %s %d", rec.Status, rec.Progress)
	}
	if !rec.CreatedAt.Equal(clock.Now()) || !rec.UpdatedAt.Equal(rec.CreatedAt) {
		t.Fatalf("unexpected timestamps: %+v", rec)
	}

	got, ok := reg.Get(rec.ID)
	if !ok || got.ID != rec.ID {
		t.Fatalf("expected Get to return created record")
	}

	if _, err := reg.Create("   ", ""); err == nil {
		t.Fatal("expected error for blank topic")
	}
}

func TestUpdateUnknownJob(t *testing.T) {
	reg := jobs.NewRegistry()
	_, err := reg.Update("missing", jobs.Progress(jobs.StepScript, 5, "Setting up LLM client..."))
	if !errors.Is(err, jobs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if reg.Len() != 0 {
		t.Fatal("update must not create records")
	}
}

func TestUpdateRefreshesTimestampAndClampsProgress(t *testing.T) {
	clock := newClock()
	reg := jobs.NewRegistry(jobs.WithClock(clock.Now))
	rec, _ := reg.Create("Gravity", "openai")

	clock.Advance(time.Second)
	updated, err := reg.Update(rec.ID, jobs.Progress(jobs.StepScript, 25, "Script generated with 6 scenes"))
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Status != jobs.StatusRunning || updated.Progress != 25 {
		t.Fatalf("unexpected record after update: %+v", updated)
	}
	if !updated.UpdatedAt.After(rec.UpdatedAt) {
		t.Fatal("expected updated_at to advance")
	}

	updated, err = reg.Update(rec.ID, jobs.Progress(jobs.StepTTS, 10, "late report"))
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Progress != 25 {
		t.Fatalf("progress must not decrease, got %d", updated.Progress)
	}
	if updated.CurrentStep != jobs.StepTTS || updated.Message != "late report" {
		t.Fatalf("other fields should still apply: %+v", updated)
	}

	updated, _ = reg.Update(rec.ID, jobs.Progress(jobs.StepCode, 250, "overflow"))
	if updated.Progress != 100 {
		t.Fatalf("progress should clamp to 100, got %d", updated.Progress)
	}
}

func TestTerminalRecordsAreImmutable(t *testing.T) {
	reg := jobs.NewRegistry()
	rec, _ := reg.Create("Entropy", "claude")
	if _, err := reg.Update(rec.ID, jobs.Progress(jobs.StepVideo, 90, "Merging audio with video...")); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	done, err := reg.Update(rec.ID, jobs.Completed("/media/output_"+rec.ID+".mp4", "Video generation completed!", false))
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Progress != 100 || done.VideoURL == "" || done.Error != "" || done.CompletedAt == nil {
		t.Fatalf("unexpected completed record: %+v", done)
	}

	if _, err := reg.Update(rec.ID, jobs.Failed("late failure")); !errors.Is(err, jobs.ErrTerminal) {
		t.Fatalf("expected ErrTerminal, got %v", err)
	}
	got, _ := reg.Get(rec.ID)
	if got.Status != jobs.StatusCompleted || got.Error != "" {
		t.Fatalf("terminal record changed: %+v", got)
	}
}

func TestInvariantViolationsAreRejected(t *testing.T) {
	reg := jobs.NewRegistry()
	rec, _ := reg.Create("Magnetism", "openai")

	if _, err := reg.Update(rec.ID, jobs.Completed("/media/x.mp4", "done", false)); !errors.Is(err, jobs.ErrInvalidTransition) {
		t.Fatalf("queued job cannot complete directly, got %v", err)
	}

	running, _ := reg.Update(rec.ID, jobs.Progress(jobs.StepScript, 5, "Setting up LLM client..."))

	queued := jobs.StatusQueued
	if _, err := reg.Update(rec.ID, jobs.Mutation{Status: &queued}); !errors.Is(err, jobs.ErrInvalidTransition) {
		t.Fatalf("running job cannot return to queued, got %v", err)
	}

	errText := "boom"
	if _, err := reg.Update(rec.ID, jobs.Mutation{Error: &errText}); !errors.Is(err, jobs.ErrInvalidTransition) {
		t.Fatalf("error without failure should be rejected, got %v", err)
	}

	failed := jobs.StatusFailed
	if _, err := reg.Update(rec.ID, jobs.Mutation{Status: &failed}); !errors.Is(err, jobs.ErrInvalidTransition) {
		t.Fatalf("failure without error should be rejected, got %v", err)
	}

	got, _ := reg.Get(rec.ID)
	if got.Status != running.Status || got.Progress != running.Progress || got.Error != "" {
		t.Fatalf("rejected updates must not change the record: %+v", got)
	}
}

func TestFailedSetsErrorAndMessage(t *testing.T) {
	reg := jobs.NewRegistry()
	rec, _ := reg.Create("Optics", "openai")
	failed, err := reg.Update(rec.ID, jobs.Failed("Failed to generate script"))
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if failed.Status != jobs.StatusFailed || failed.Error != "Failed to generate script" {
		t.Fatalf("unexpected failed record: %+v", failed)
	}
	if failed.Message != "Error: Failed to generate script" {
		t.Fatalf("unexpected message %q", failed.Message)
	}
	if failed.VideoURL != "" {
		t.Fatal("failed job must not carry a video url")
	}
}

func TestGetReturnsCopies(t *testing.T) {
	reg := jobs.NewRegistry()
	rec, _ := reg.Create("Waves", "openai")
	snapshot, _ := reg.Get(rec.ID)
	snapshot.Status = jobs.StatusFailed
	snapshot.Message = "tampered"
	again, _ := reg.Get(rec.ID)
	if again.Status != jobs.StatusQueued || again.Message == "tampered" {
		t.Fatalf("mutating a snapshot leaked into the registry: %+v", again)
	}
}

func TestListNewestFirstAndSummary(t *testing.T) {
	clock := newClock()
	reg := jobs.NewRegistry(jobs.WithClock(clock.Now))
	first, _ := reg.Create("first", "openai")
	clock.Advance(time.Minute)
	second, _ := reg.Create("second", "openai")
	_, _ = reg.Update(second.ID, jobs.Failed("nope"))

	list := reg.List()
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("unexpected order: %+v", list)
	}
	summary := reg.Summary()
	if summary.Total != 2 || summary.Queued != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestCancelUsesAttachedFunc(t *testing.T) {
	reg := jobs.NewRegistry()
	rec, _ := reg.Create("Tides", "openai")
	if reg.Cancel(rec.ID) {
		t.Fatal("cancel without attached func should report false")
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := reg.Attach(rec.ID, cancel); err != nil {
		t.Fatalf("Attach returned error: %v", err)
	}
	if !reg.Cancel(rec.ID) {
		t.Fatal("expected cancel to run")
	}
	if ctx.Err() == nil {
		t.Fatal("expected context to be cancelled")
	}
	if err := reg.Attach("missing", cancel); !errors.Is(err, jobs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEvictOnlyRemovesExpiredTerminalJobs(t *testing.T) {
	clock := newClock()
	reg := jobs.NewRegistry(jobs.WithClock(clock.Now))
	old, _ := reg.Create("old", "openai")
	_, _ = reg.Update(old.ID, jobs.Failed("x"))
	stuck, _ := reg.Create("stuck", "openai")
	_, _ = reg.Update(stuck.ID, jobs.Progress(jobs.StepCode, 50, "Processing scene 2/4..."))

	clock.Advance(2 * time.Hour)
	recent, _ := reg.Create("recent", "openai")
	_, _ = reg.Update(recent.ID, jobs.Failed("y"))

	removed := reg.Evict(clock.Now().Add(-time.Hour))
	if len(removed) != 1 || removed[0].ID != old.ID {
		t.Fatalf("expected only the old finished job to be evicted, got %+v", removed)
	}
	if _, ok := reg.Get(stuck.ID); !ok {
		t.Fatal("running jobs must never be evicted")
	}
	if _, ok := reg.Get(recent.ID); !ok {
		t.Fatal("recent finished job should remain")
	}
}

func TestConcurrentCreateAndUpdate(t *testing.T) {
	reg := jobs.NewRegistry()
	const workers = 32
	ids := make(chan string, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := reg.Create("Same topic", "openai")
			if err != nil {
				t.Errorf("Create: %v", err)
				return
			}
			for p := 5; p <= 100; p += 5 {
				if _, err := reg.Update(rec.ID, jobs.Progress(jobs.StepCode, p, fmt.Sprintf("worker %d", i))); err != nil {
					t.Errorf("Update: %v", err)
					return
				}
				_, _ = reg.Get(rec.ID)
				_ = reg.List()
			}
			ids <- rec.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]struct{})
	for id := range ids {
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = struct{}{}
		rec, _ := reg.Get(id)
		if rec.Progress != 100 {
			t.Fatalf("expected final progress 100, got %d", rec.Progress)
		}
	}
	if len(seen) != workers {
		t.Fatalf("expected %d ids, got %d", workers, len(seen))
	}
}

func TestParseStatus(t *testing.T) {
	if s, ok := jobs.ParseStatus(" Completed "); !ok || s != jobs.StatusCompleted {
		t.Fatalf("unexpected parse result: %v %v", s, ok)
	}
	if _, ok := jobs.ParseStatus("paused"); ok {
		t.Fatal("expected unknown status to fail")
	}
}
