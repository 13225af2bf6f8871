// Package workflow runs submitted topics through the generation stages.
//
// The Manager allocates a job record in the shared registry, then starts one
// goroutine per job that drives the registered stage handlers in order
// (script, narration, scenes, assembly). Each handler reports progress
// through the job's Reporter, which the manager turns into registry updates
// and sampled progress logs. A stage error, a recovered panic, or shutdown
// moves the job to failed; otherwise the job completes with the URL of the
// assembled video. Intermediate files tracked on the job are removed once it
// reaches a terminal state.
//
// Jobs never share working state; the registry is the only structure more
// than one goroutine touches, and every file a job writes is namespaced by
// its id.
package workflow
