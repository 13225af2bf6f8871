// Package api exposes the workflow over HTTP and provides the matching client.
//
// # Routes
//
//	POST /api/generate        submit {topic, llm_provider, enable_tts}; 202 with the job id
//	GET  /api/progress/{id}   poll one job record; 404 when unknown or evicted
//	GET  /api/jobs            list retained jobs, newest first
//	GET  /api/health          stage readiness, job counts, and binary availability
//	GET  /media/{file}        generated videos served from the media directory
//
// Job records are written with the snake_case field names the web frontend
// polls for (job_id, status, progress, current_step, message, error,
// video_url). Failures inside a job never surface as HTTP errors; callers see
// status "failed" and the error text on the record.
//
// Client wraps the same routes for the CLI.
package api
