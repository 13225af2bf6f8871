package workflow

import (
	"topic2manim/internal/jobs"
	"topic2manim/internal/services/llm"
	"topic2manim/internal/stage"
)

// StageSet bundles the concrete workflow handlers the manager orchestrates.
// Narration may be nil, in which case jobs are always silent.
type StageSet struct {
	Script    stage.Handler
	Narration stage.Handler
	Scenes    stage.Handler
	Assembly  stage.Handler
}

type pipelineStage struct {
	name    string
	step    jobs.Step
	handler stage.Handler
}

// SubmitOptions carries the per-request choices of a submission.
type SubmitOptions struct {
	Narration bool
	Provider  llm.Preference
}
