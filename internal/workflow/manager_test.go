package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"topic2manim/internal/assembly"
	"topic2manim/internal/config"
	"topic2manim/internal/jobs"
	"topic2manim/internal/logging"
	"topic2manim/internal/media/ffprobe"
	"topic2manim/internal/narration"
	"topic2manim/internal/scenes"
	"topic2manim/internal/scripting"
	"topic2manim/internal/services"
	"topic2manim/internal/services/llm"
	"topic2manim/internal/stage"
	"topic2manim/internal/testsupport"
	"topic2manim/internal/workflow"
)

type fakeScript struct {
	scenes []stage.Scene
	err    error
}

func (f *fakeScript) Generate(_ context.Context, _ llm.Provider, topic string) ([]stage.Scene, error) {
	if f.err != nil {
		return nil, f.err
	}
	return append([]stage.Scene(nil), f.scenes...), nil
}

type fakeSynth struct {
	fail bool
}

func (f *fakeSynth) Synthesize(_ context.Context, text, dest string) (float64, error) {
	if f.fail {
		return 0, errors.New("speech api unavailable")
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, err
	}
	return 4.5, os.WriteFile(dest, []byte(text), 0o644)
}

func (f *fakeSynth) Concatenate(_ context.Context, fragments []string, dest string) error {
	return os.WriteFile(dest, []byte(strings.Join(fragments, "\n")), 0o644)
}

type fakeCode struct{}

func (fakeCode) Generate(_ context.Context, req stage.SceneRequest) (string, string, error) {
	name := fmt.Sprintf("Scene%d", req.Index)
	return name, fmt.Sprintf("class %s(Scene):\n    pass\n", name), nil
}

// fakeRenderer writes a clip next to the source unless the class is listed
// in timeouts.
type fakeRenderer struct {
	timeouts map[string]bool
}

func (f *fakeRenderer) Compile(_ context.Context, source, className string) (string, error) {
	if f.timeouts[className] {
		return "", services.Wrap(services.ErrTimeout, "code", "render", "render timed out after 300s", nil)
	}
	clip := strings.TrimSuffix(source, ".py") + "-" + className + ".mp4"
	return clip, os.WriteFile(clip, []byte(className), 0o644)
}

type fakeAssembler struct {
	mu      sync.Mutex
	concats map[string][]string
}

func (f *fakeAssembler) Concat(_ context.Context, inputs []string, dest string) error {
	f.mu.Lock()
	if f.concats == nil {
		f.concats = make(map[string][]string)
	}
	f.concats[dest] = append([]string(nil), inputs...)
	f.mu.Unlock()
	return os.WriteFile(dest, []byte("video"), 0o644)
}

func (f *fakeAssembler) Mux(_ context.Context, video, audio, dest string) error {
	return os.WriteFile(dest, []byte("video+audio"), 0o644)
}

func (f *fakeAssembler) inputsFor(dest string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.concats[dest]
}

type harness struct {
	cfg       *config.Config
	mgr       *workflow.Manager
	script    *fakeScript
	synth     *fakeSynth
	renderer  *fakeRenderer
	assembler *fakeAssembler
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return testsupport.NewConfig(t)
}

func newHarness(t *testing.T, sceneCount int) *harness {
	t.Helper()
	cfg := testConfig(t)
	h := &harness{
		cfg:       cfg,
		script:    &fakeScript{scenes: makeScenes(sceneCount)},
		synth:     &fakeSynth{},
		renderer:  &fakeRenderer{timeouts: map[string]bool{}},
		assembler: &fakeAssembler{},
	}
	logger := logging.NewNop()
	probe := func(context.Context, string) (ffprobe.Result, error) {
		return ffprobe.Result{Streams: []ffprobe.Stream{{CodecType: "video"}}, Format: ffprobe.Format{Duration: "42.0"}}, nil
	}
	pipeline := scenes.NewPipeline(fakeCode{}, h.renderer, cfg.Paths.ContentDir, logger)

	h.mgr = workflow.NewManager(cfg, jobs.NewRegistry(), logger)
	h.mgr.ConfigureStages(workflow.StageSet{
		Script:    scripting.NewHandler(h.script, nil, cfg.Paths.ContentDir, logger),
		Narration: narration.NewHandler(h.synth, cfg.Paths.MediaDir, logger),
		Scenes:    scenes.NewHandler(pipeline, scenes.HandlerOptions{MediaDir: cfg.Paths.MediaDir}, logger),
		Assembly:  assembly.NewHandler(h.assembler, assembly.Options{MediaDir: cfg.Paths.MediaDir, Probe: probe}, logger),
	})
	t.Cleanup(h.mgr.Stop)
	return h
}

func makeScenes(n int) []stage.Scene {
	out := make([]stage.Scene, n)
	for i := range out {
		out[i] = stage.Scene{
			Text:      fmt.Sprintf("Narration for part %d.", i+1),
			Animation: fmt.Sprintf("Draw diagram %d", i+1),
		}
	}
	return out
}

// waitTerminal polls until the job finishes and returns every distinct
// progress value observed along the way.
func waitTerminal(t *testing.T, mgr *workflow.Manager, id string) (jobs.Record, []int) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	var seen []int
	for time.Now().Before(deadline) {
		rec, ok := mgr.Status(id)
		if !ok {
			t.Fatalf("job %s disappeared", id)
		}
		if len(seen) == 0 || seen[len(seen)-1] != rec.Progress {
			seen = append(seen, rec.Progress)
		}
		if rec.IsTerminal() {
			return rec, seen
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for job %s", id)
	return jobs.Record{}, nil
}

func TestPhotosynthesisSceneTimeoutProducesSilentVideo(t *testing.T) {
	h := newHarness(t, 7)
	h.renderer.timeouts["Scene4"] = true

	id, err := h.mgr.Submit(context.Background(), "Photosynthesis", workflow.SubmitOptions{Narration: false})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	rec, progress := waitTerminal(t, h.mgr, id)

	if rec.Status != jobs.StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", rec.Status, rec.Error)
	}
	if rec.VideoURL != "/media/output_"+id+".mp4" {
		t.Fatalf("unexpected video url %q", rec.VideoURL)
	}
	if rec.Narrated {
		t.Fatal("narration was disabled")
	}
	if rec.SceneCount != 7 || rec.ScenesRendered != 6 {
		t.Fatalf("expected 6 of 7 scenes rendered, got %d of %d", rec.ScenesRendered, rec.SceneCount)
	}
	if rec.Message != "Video generation completed!" || rec.Progress != 100 {
		t.Fatalf("unexpected final record: %+v", rec)
	}
	for i := 1; i < len(progress); i++ {
		if progress[i] < progress[i-1] {
			t.Fatalf("progress decreased: %v", progress)
		}
	}

	inputs := h.assembler.inputsFor(assembly.SilentPath(h.cfg.Paths.MediaDir, id))
	if len(inputs) != 6 {
		t.Fatalf("expected 6 clips concatenated, got %d", len(inputs))
	}
	for _, clip := range inputs {
		if strings.Contains(clip, "Scene4") {
			t.Fatalf("timed out scene must not be assembled: %v", inputs)
		}
	}
	if !strings.HasSuffix(inputs[3], "Scene5.mp4") {
		t.Fatalf("clips out of order: %v", inputs)
	}
	if _, err := os.Stat(filepath.Join(h.cfg.Paths.MediaDir, "output_"+id+".mp4")); err != nil {
		t.Fatalf("expected final video on disk: %v", err)
	}
	if _, err := os.Stat(scripting.ScriptPath(h.cfg.Paths.ContentDir, id)); !os.IsNotExist(err) {
		t.Fatalf("script file should be cleaned up, stat err = %v", err)
	}
	if _, err := os.Stat(scenes.SourcePath(h.cfg.Paths.ContentDir, "photosynthesis", id, 1)); !os.IsNotExist(err) {
		t.Fatalf("scene sources should be cleaned up, stat err = %v", err)
	}
}

func TestNarratedJobCompletes(t *testing.T) {
	h := newHarness(t, 3)
	id, err := h.mgr.Submit(context.Background(), "Gravity", workflow.SubmitOptions{Narration: true})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	rec, _ := waitTerminal(t, h.mgr, id)
	if rec.Status != jobs.StatusCompleted || !rec.Narrated {
		t.Fatalf("expected narrated completion, got %+v", rec)
	}
	if _, err := os.Stat(narration.AudioPath(h.cfg.Paths.MediaDir, id)); !os.IsNotExist(err) {
		t.Fatalf("narration track should be cleaned up, stat err = %v", err)
	}
	if _, err := os.Stat(assembly.SilentPath(h.cfg.Paths.MediaDir, id)); !os.IsNotExist(err) {
		t.Fatalf("silent intermediate should be cleaned up, stat err = %v", err)
	}
}

func TestNarrationFailureDegradesToSilentVideo(t *testing.T) {
	h := newHarness(t, 2)
	h.synth.fail = true
	id, err := h.mgr.Submit(context.Background(), "Tides", workflow.SubmitOptions{Narration: true})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	rec, _ := waitTerminal(t, h.mgr, id)
	if rec.Status != jobs.StatusCompleted {
		t.Fatalf("narration failure must not fail the job: %+v", rec)
	}
	if rec.Narrated {
		t.Fatal("degraded job should be silent")
	}
}

func TestScriptFailureFailsJob(t *testing.T) {
	h := newHarness(t, 0)
	h.script.err = errors.New("rate limited")
	id, err := h.mgr.Submit(context.Background(), "Entropy", workflow.SubmitOptions{})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	rec, _ := waitTerminal(t, h.mgr, id)
	if rec.Status != jobs.StatusFailed || rec.Error == "" || rec.VideoURL != "" {
		t.Fatalf("expected failed job without video, got %+v", rec)
	}
	if !strings.HasPrefix(rec.Message, "Error: ") {
		t.Fatalf("unexpected message %q", rec.Message)
	}
	if summary := h.mgr.Health(context.Background()); summary.LastError == "" {
		t.Fatal("expected last error to be recorded")
	}
}

func TestZeroScenesFailsJob(t *testing.T) {
	h := newHarness(t, 0)
	id, _ := h.mgr.Submit(context.Background(), "Nothing", workflow.SubmitOptions{})
	rec, _ := waitTerminal(t, h.mgr, id)
	if rec.Status != jobs.StatusFailed || rec.VideoURL != "" {
		t.Fatalf("expected failure for empty script, got %+v", rec)
	}
}

func TestAllScenesFailingFailsJob(t *testing.T) {
	h := newHarness(t, 2)
	h.renderer.timeouts["Scene1"] = true
	h.renderer.timeouts["Scene2"] = true
	id, _ := h.mgr.Submit(context.Background(), "Optics", workflow.SubmitOptions{})
	rec, _ := waitTerminal(t, h.mgr, id)
	if rec.Status != jobs.StatusFailed {
		t.Fatalf("expected failure, got %+v", rec)
	}
	if !strings.Contains(strings.ToLower(rec.Error), "no videos were generated") {
		t.Fatalf("unexpected error %q", rec.Error)
	}
}

func TestConcurrentSameTopicSubmissionsAreIsolated(t *testing.T) {
	h := newHarness(t, 3)
	const n = 8
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := h.mgr.Submit(context.Background(), "Magnetism", workflow.SubmitOptions{Narration: i%2 == 0})
			if err != nil {
				t.Errorf("Submit: %v", err)
				return
			}
			ids[i] = id
		}()
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, id := range ids {
		if id == "" || seen[id] {
			t.Fatalf("expected distinct ids, got %v", ids)
		}
		seen[id] = true
		rec, _ := waitTerminal(t, h.mgr, id)
		if rec.Status != jobs.StatusCompleted {
			t.Fatalf("job %s did not complete: %+v", id, rec)
		}
		inputs := h.assembler.inputsFor(assembly.SilentPath(h.cfg.Paths.MediaDir, id))
		if len(inputs) != 3 {
			t.Fatalf("job %s assembled %d clips", id, len(inputs))
		}
		for _, clip := range inputs {
			if !strings.Contains(clip, id) {
				t.Fatalf("job %s picked up a foreign clip %s", id, clip)
			}
		}
	}
	if got := len(h.mgr.Jobs()); got != n {
		t.Fatalf("expected %d jobs listed, got %d", n, got)
	}
}

func TestSubmitWithoutCredentialsCreatesNoJob(t *testing.T) {
	h := newHarness(t, 1)
	h.cfg.LLM.OpenAIAPIKey = ""
	h.cfg.LLM.ClaudeAPIKey = ""
	_, err := h.mgr.Submit(context.Background(), "Waves", workflow.SubmitOptions{Provider: llm.PreferAuto})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if len(h.mgr.Jobs()) != 0 {
		t.Fatal("no job should be created without credentials")
	}
	if _, err := h.mgr.Submit(context.Background(), "  ", workflow.SubmitOptions{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for blank topic, got %v", err)
	}
}

func TestSubmitRecordsResolvedProvider(t *testing.T) {
	h := newHarness(t, 1)
	h.cfg.LLM.ClaudeAPIKey = "sk-ant-test"
	id, err := h.mgr.Submit(context.Background(), "Orbits", workflow.SubmitOptions{Provider: llm.PreferOpenAI})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	rec, _ := waitTerminal(t, h.mgr, id)
	if rec.Provider != "openai" {
		t.Fatalf("explicit preference should win, got %q", rec.Provider)
	}
	id, _ = h.mgr.Submit(context.Background(), "Orbits", workflow.SubmitOptions{Provider: llm.PreferAuto})
	rec, _ = waitTerminal(t, h.mgr, id)
	if rec.Provider != "claude" {
		t.Fatalf("auto should prefer claude, got %q", rec.Provider)
	}
}

type panicStage struct{}

func (panicStage) Prepare(context.Context, *stage.Job) error { return nil }
func (panicStage) Execute(context.Context, *stage.Job) error { panic("boom") }
func (panicStage) HealthCheck(context.Context) stage.Health  { return stage.Healthy("panic") }

func TestStagePanicIsRecordedAsFailure(t *testing.T) {
	cfg := testConfig(t)
	mgr := workflow.NewManager(cfg, jobs.NewRegistry(), logging.NewNop())
	mgr.ConfigureStages(workflow.StageSet{Script: panicStage{}})
	t.Cleanup(mgr.Stop)

	id, err := mgr.Submit(context.Background(), "Chaos", workflow.SubmitOptions{})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	rec, _ := waitTerminal(t, mgr, id)
	if rec.Status != jobs.StatusFailed || !strings.Contains(rec.Error, "boom") {
		t.Fatalf("expected panic to fail the job, got %+v", rec)
	}
}

type blockingStage struct {
	started chan struct{}
}

func (b *blockingStage) Prepare(context.Context, *stage.Job) error { return nil }
func (b *blockingStage) Execute(ctx context.Context, _ *stage.Job) error {
	close(b.started)
	<-ctx.Done()
	return ctx.Err()
}
func (b *blockingStage) HealthCheck(context.Context) stage.Health { return stage.Healthy("blocking") }

func TestStopInterruptsRunningJobs(t *testing.T) {
	cfg := testConfig(t)
	reg := jobs.NewRegistry()
	mgr := workflow.NewManager(cfg, reg, logging.NewNop())
	blocker := &blockingStage{started: make(chan struct{})}
	mgr.ConfigureStages(workflow.StageSet{Script: blocker})

	id, err := mgr.Submit(context.Background(), "Long topic", workflow.SubmitOptions{})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	<-blocker.started
	mgr.Stop()

	rec, _ := reg.Get(id)
	if rec.Status != jobs.StatusFailed || !strings.Contains(rec.Error, "interrupted") {
		t.Fatalf("expected interrupted failure, got %+v", rec)
	}
	if _, err := mgr.Submit(context.Background(), "late", workflow.SubmitOptions{}); !errors.Is(err, workflow.ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}

type skipStage struct {
	executed bool
}

func (s *skipStage) Skip(*stage.Job) bool                      { return true }
func (s *skipStage) Prepare(context.Context, *stage.Job) error { return nil }
func (s *skipStage) Execute(context.Context, *stage.Job) error {
	s.executed = true
	return nil
}
func (s *skipStage) HealthCheck(context.Context) stage.Health { return stage.Unhealthy("skip", "never ready") }

func TestSkippedStageAndHealthSummary(t *testing.T) {
	h := newHarness(t, 1)
	skipper := &skipStage{}
	cfg := testConfig(t)
	mgr := workflow.NewManager(cfg, jobs.NewRegistry(), logging.NewNop())
	mgr.ConfigureStages(workflow.StageSet{
		Script:    &fakeScriptStage{},
		Narration: skipper,
	})
	t.Cleanup(mgr.Stop)

	id, _ := mgr.Submit(context.Background(), "Skipping", workflow.SubmitOptions{})
	rec, _ := waitTerminal(t, mgr, id)
	if skipper.executed {
		t.Fatal("skipped stage must not execute")
	}
	if rec.Status != jobs.StatusCompleted {
		t.Fatalf("expected completion, got %+v", rec)
	}

	summary := mgr.Health(context.Background())
	if summary.Ready() || summary.StageHealth["narration"].Ready {
		t.Fatalf("unhealthy stage should be reported: %+v", summary)
	}
	if summary.Jobs.Completed != 1 || !summary.Running {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if !h.mgr.Health(context.Background()).StageHealth["script"].Ready {
		t.Fatal("script stage with a content dir should be healthy")
	}
}

// fakeScriptStage finishes a job on its own so manager behaviour can be
// exercised without the real stages.
type fakeScriptStage struct{}

func (fakeScriptStage) Prepare(_ context.Context, job *stage.Job) error {
	job.Report(jobs.StepScript, 5, "Setting up LLM client...")
	return nil
}

func (fakeScriptStage) Execute(_ context.Context, job *stage.Job) error {
	job.VideoPath = "/tmp/output_" + job.ID + ".mp4"
	return nil
}

func (fakeScriptStage) HealthCheck(context.Context) stage.Health { return stage.Healthy("script") }
