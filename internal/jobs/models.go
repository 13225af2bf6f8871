package jobs

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Step names the stage a running job is executing.
type Step string

const (
	StepScript Step = "script"
	StepTTS    Step = "tts"
	StepCode   Step = "code"
	StepVideo  Step = "video"
)

var allStatuses = []Status{StatusQueued, StatusRunning, StatusCompleted, StatusFailed}

var stepOrder = map[Step]int{
	StepScript: 0,
	StepTTS:    1,
	StepCode:   2,
	StepVideo:  3,
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// IsTerminal reports whether no further transitions may occur.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether the step is one of the known stages.
func (s Step) Valid() bool {
	_, ok := stepOrder[s]
	return ok
}

// Record is the poll-able state of one job. Values returned by the registry are
// copies; mutating them has no effect on the stored job.
type Record struct {
	ID             string     `json:"job_id"`
	Topic          string     `json:"topic"`
	Status         Status     `json:"status"`
	Progress       int        `json:"progress"`
	CurrentStep    Step       `json:"current_step"`
	Message        string     `json:"message"`
	Error          string     `json:"error,omitempty"`
	VideoURL       string     `json:"video_url,omitempty"`
	Provider       string     `json:"llm_provider,omitempty"`
	SceneCount     int        `json:"scene_count,omitempty"`
	ScenesRendered int        `json:"scenes_rendered,omitempty"`
	Narrated       bool       `json:"narrated"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// IsTerminal reports whether the job has finished.
func (r Record) IsTerminal() bool {
	return r.Status.IsTerminal()
}

// Summary is the counts of jobs per lifecycle state.
type Summary struct {
	Total     int `json:"total"`
	Queued    int `json:"queued"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}
