// Package stage defines the contract between the workflow manager and the
// stages of a generation job, plus the collaborator interfaces the stages
// consume (script writing, speech, code generation, rendering, assembly).
//
// A Job is the per-request working state threaded through every stage. It
// lives on the job goroutine only; the jobs.Registry holds the public view.
package stage
