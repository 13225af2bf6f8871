// Package services defines shared utilities consumed by the workflow stage
// handlers and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so stage failures carry a
//     consistent message onto the job record.
//
// The subpackages wrap the external collaborators the workflow drives: the
// language-model providers (llm), speech synthesis (tts), and the Manim
// renderer (manim).
package services
