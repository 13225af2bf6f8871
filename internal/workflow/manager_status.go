package workflow

import (
	"context"

	"topic2manim/internal/jobs"
	"topic2manim/internal/stage"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running     bool                    `json:"running"`
	LastError   string                  `json:"last_error,omitempty"`
	Jobs        jobs.Summary            `json:"jobs"`
	StageHealth map[string]stage.Health `json:"stages"`
}

// Ready reports whether every registered stage is healthy.
func (s StatusSummary) Ready() bool {
	return stage.AllReady(s.StageHealth)
}

// Status returns a snapshot of the job record.
func (m *Manager) Status(id string) (jobs.Record, bool) {
	return m.registry.Get(id)
}

// Jobs lists every retained job, newest first.
func (m *Manager) Jobs() []jobs.Record {
	return m.registry.List()
}

// Health runs each stage's health check and summarizes the registry.
func (m *Manager) Health(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	stages := append([]pipelineStage(nil), m.stages...)
	m.mu.RUnlock()

	health := make(map[string]stage.Health, len(stages))
	for _, stg := range stages {
		health[stg.name] = stg.handler.HealthCheck(ctx)
	}

	summary := StatusSummary{Running: running, Jobs: m.registry.Summary(), StageHealth: health}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	return summary
}
