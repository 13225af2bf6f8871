package workflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"topic2manim/internal/config"
	"topic2manim/internal/fileutil"
	"topic2manim/internal/jobs"
	"topic2manim/internal/logging"
	"topic2manim/internal/services"
	"topic2manim/internal/services/llm"
	"topic2manim/internal/stage"
)

// ErrStopped is returned by Submit after Stop has been called.
var ErrStopped = errors.New("workflow manager stopped")

// Manager coordinates job execution across the configured stages.
type Manager struct {
	cfg      *config.Config
	registry *jobs.Registry
	logger   *slog.Logger

	mu      sync.RWMutex
	stages  []pipelineStage
	running bool
	lastErr error
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager constructs a manager that records jobs in registry.
func NewManager(cfg *config.Config, registry *jobs.Registry, logger *slog.Logger) *Manager {
	if registry == nil {
		registry = jobs.NewRegistry()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:      cfg,
		registry: registry,
		logger:   logging.NewComponentLogger(logger, "workflow-manager"),
		running:  true,
		baseCtx:  ctx,
		cancel:   cancel,
	}
}

// ConfigureStages registers the workflow handlers. Nil handlers are skipped.
func (m *Manager) ConfigureStages(set StageSet) {
	candidates := []pipelineStage{
		{name: "script", step: jobs.StepScript, handler: set.Script},
		{name: "narration", step: jobs.StepTTS, handler: set.Narration},
		{name: "scenes", step: jobs.StepCode, handler: set.Scenes},
		{name: "assembly", step: jobs.StepVideo, handler: set.Assembly},
	}
	stages := make([]pipelineStage, 0, len(candidates))
	for _, stg := range candidates {
		if stg.handler != nil {
			stages = append(stages, stg)
		}
	}

	m.mu.Lock()
	m.stages = stages
	m.mu.Unlock()
}

// Registry exposes the job registry backing the manager.
func (m *Manager) Registry() *jobs.Registry {
	return m.registry
}

// Submit queues topic and starts its job in the background, returning the new
// job id. The job outlives ctx; only Stop interrupts it. Without any LLM
// credential no job is created and a configuration error is returned.
func (m *Manager) Submit(ctx context.Context, topic string, opts SubmitOptions) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", services.Wrap(services.ErrValidation, "workflow", "submit", "No topic provided", nil)
	}

	var hasOpenAI, hasClaude bool
	if m.cfg != nil {
		hasOpenAI, hasClaude = m.cfg.HasOpenAI(), m.cfg.HasClaude()
	}
	provider, err := llm.Resolve(opts.Provider, hasOpenAI, hasClaude)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return "", ErrStopped
	}
	if len(m.stages) == 0 {
		return "", services.Wrap(services.ErrConfiguration, "workflow", "submit", "workflow stages not configured", nil)
	}

	rec, err := m.registry.Create(topic, string(provider))
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "workflow", "submit", "could not create job", err)
	}
	jobCtx, cancel := context.WithCancel(m.baseCtx)
	if err := m.registry.Attach(rec.ID, cancel); err != nil {
		cancel()
		return "", err
	}

	job := &stage.Job{
		ID:                 rec.ID,
		Topic:              rec.Topic,
		Slug:               fileutil.Slug(rec.Topic),
		Provider:           provider,
		NarrationRequested: opts.Narration,
	}
	stages := append([]pipelineStage(nil), m.stages...)

	logging.WithContext(ctx, m.logger).Info("job submitted",
		logging.String(logging.FieldJobID, rec.ID),
		logging.String("topic", rec.Topic),
		logging.String("llm_provider", string(provider)),
		logging.Bool("narration", opts.Narration),
		logging.String(logging.FieldEventType, "job_submitted"),
	)

	m.wg.Add(1)
	go m.runJob(jobCtx, cancel, stages, job)
	return rec.ID, nil
}

// Stop cancels every running job and waits for their goroutines to finish.
// Interrupted jobs are recorded as failed.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}
