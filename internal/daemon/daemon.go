package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"topic2manim/internal/api"
	"topic2manim/internal/assembly"
	"topic2manim/internal/config"
	"topic2manim/internal/deps"
	"topic2manim/internal/jobs"
	"topic2manim/internal/logging"
	"topic2manim/internal/services/llm"
	"topic2manim/internal/workflow"
)

// LockFileName is created in the log directory while a server is running.
const LockFileName = "topic2manim.lock"

// Daemon coordinates the server components and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	workflow *workflow.Manager
	sweeper  *jobs.Sweeper
	server   *api.Server

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Address      string
	LockFilePath string
	Workflow     workflow.StatusSummary
}

// New constructs a daemon around an already configured workflow manager.
func New(cfg *config.Config, wf *workflow.Manager, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || wf == nil || logger == nil {
		return nil, errors.New("daemon requires config, workflow manager, and logger")
	}

	pref, err := llm.ParsePreference(cfg.LLM.DefaultProvider)
	if err != nil {
		return nil, err
	}

	retention := time.Duration(cfg.Workflow.RetentionHours) * time.Hour
	lockPath := filepath.Join(cfg.Paths.LogDir, LockFileName)
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		workflow: wf,
		sweeper:  jobs.NewSweeper(wf.Registry(), retention, cfg.Workflow.SweepSchedule, logger),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	mediaDir := cfg.Paths.MediaDir
	d.sweeper.OnEvict(func(rec jobs.Record) error {
		return assembly.RemoveArtifacts(mediaDir, rec.ID)
	})
	d.server = api.NewServer(wf, api.Options{
		Bind:             cfg.Paths.APIBind,
		MediaDir:         cfg.Paths.MediaDir,
		NarrationDefault: cfg.TTS.Enabled,
		DefaultProvider:  pref,
		Requirements:     deps.Requirements(cfg),
	}, logger)
	return d, nil
}

// Start acquires the lock, schedules retention sweeps, and starts the API.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another topic2manim server instance is already running")
	}

	if err := d.sweeper.Start(); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("start job sweeper: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.server.Start(runCtx); err != nil {
		cancel()
		d.sweeper.Stop()
		_ = d.lock.Unlock()
		return fmt.Errorf("start api server: %w", err)
	}

	d.cancel = cancel
	d.running = true
	d.logger.Info("topic2manim server started",
		logging.String("address", d.server.Addr()),
		logging.String("lock", d.lockPath),
	)
	return nil
}

// Stop shuts the API down, interrupts running jobs, and releases the lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return
	}

	d.server.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	d.sweeper.Stop()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release server lock", "lock_release",
			logging.String("lock", d.lockPath),
			logging.Error(err),
		)
	}
	d.running = false
	d.logger.Info("topic2manim server stopped")
}

// Status reports the current daemon state.
func (d *Daemon) Status(ctx context.Context) Status {
	d.mu.Lock()
	running := d.running
	d.mu.Unlock()
	addr := ""
	if running {
		addr = d.server.Addr()
	}
	return Status{
		Running:      running,
		Address:      addr,
		LockFilePath: d.lockPath,
		Workflow:     d.workflow.Health(ctx),
	}
}

// Sweeper exposes the retention sweeper.
func (d *Daemon) Sweeper() *jobs.Sweeper {
	return d.sweeper
}
