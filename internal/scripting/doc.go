// Package scripting implements the script stage: an LLM writes 6-8 scenes of
// narration plus animation descriptions for the topic, and the result is
// saved as video-output-<job id>.json in the content directory until the job
// finishes.
package scripting
