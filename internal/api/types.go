package api

import (
	"topic2manim/internal/deps"
	"topic2manim/internal/jobs"
	"topic2manim/internal/stage"
	"topic2manim/internal/workflow"
)

// ServiceName identifies the API in health responses.
const ServiceName = "Topic2Manim API"

// GenerateRequest is the body of POST /api/generate. EnableTTS is a pointer so
// an absent field falls back to the configured default.
type GenerateRequest struct {
	Topic       string `json:"topic"`
	LLMProvider string `json:"llm_provider,omitempty"`
	EnableTTS   *bool  `json:"enable_tts,omitempty"`
}

// GenerateResponse acknowledges an accepted submission.
type GenerateResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// JobListResponse wraps the retained jobs, newest first.
type JobListResponse struct {
	Jobs []jobs.Record `json:"jobs"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running     bool           `json:"running"`
	Jobs        jobs.Summary   `json:"jobs"`
	LastError   string         `json:"last_error,omitempty"`
	StageHealth []stage.Health `json:"stage_health"`
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status       string         `json:"status"`
	Service      string         `json:"service"`
	Workflow     WorkflowStatus `json:"workflow"`
	Dependencies []deps.Status  `json:"dependencies"`
}

// Healthy reports whether every stage and required dependency is ready.
func (h HealthResponse) Healthy() bool {
	return h.Status == "healthy"
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}

// FromStatusSummary converts the manager's summary into its wire form.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	return WorkflowStatus{
		Running:     summary.Running,
		Jobs:        summary.Jobs,
		LastError:   summary.LastError,
		StageHealth: stage.Sorted(summary.StageHealth),
	}
}

