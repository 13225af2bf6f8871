package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"topic2manim/internal/config"
	"topic2manim/internal/daemon"
	"topic2manim/internal/jobs"
	"topic2manim/internal/logging"
	"topic2manim/internal/stage"
	"topic2manim/internal/testsupport"
	"topic2manim/internal/workflow"
)

// renderStage stands in for the whole pipeline: it writes a placeholder video
// unless the topic asks it to fail.
type renderStage struct {
	mediaDir string
}

func (s renderStage) Prepare(_ context.Context, job *stage.Job) error {
	job.Report(jobs.StepScript, 5, "Generating script...")
	return nil
}

func (s renderStage) Execute(_ context.Context, job *stage.Job) error {
	if strings.Contains(job.Topic, "explode") {
		return errors.New("renderer exploded")
	}
	path := filepath.Join(s.mediaDir, fmt.Sprintf("output_%s.mp4", job.ID))
	if err := os.WriteFile(path, []byte("mp4"), 0o644); err != nil {
		return err
	}
	job.VideoPath = path
	return nil
}

func (s renderStage) HealthCheck(context.Context) stage.Health {
	return stage.Healthy("script")
}

// syncBuffer is a thread-safe wrapper around bytes.Buffer for use in tests.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

var _ io.Writer = (*syncBuffer)(nil)

type cliTestEnv struct {
	cfg        *config.Config
	manager    *workflow.Manager
	daemon     *daemon.Daemon
	configPath string
	serverAddr string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries(), testsupport.WithNarration(false))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	configPath := filepath.Join(homeDir, ".config", "topic2manim", "config.toml")
	writeTestConfig(t, configPath, cfg)

	logger := logging.NewNop()
	mgr := workflow.NewManager(cfg, jobs.NewRegistry(), logger)
	mgr.ConfigureStages(workflow.StageSet{Script: renderStage{mediaDir: cfg.Paths.MediaDir}})

	d, err := daemon.New(cfg, mgr, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon start: %v", err)
	}
	t.Cleanup(d.Stop)

	return &cliTestEnv{
		cfg:        cfg,
		manager:    mgr,
		daemon:     d,
		configPath: configPath,
		serverAddr: d.Status(context.Background()).Address,
	}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, args, e.serverAddr, e.configPath)
}

func runCLI(t *testing.T, args []string, server, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if server != "" {
		flags = append(flags, "--server", server)
	}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
