package stage

import (
	"fmt"

	"topic2manim/internal/jobs"
	"topic2manim/internal/services/llm"
)

// Reporter publishes progress for the job currently running. Implementations
// must be safe to call from the job goroutine only.
type Reporter interface {
	Report(step jobs.Step, percent int, message string)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(step jobs.Step, percent int, message string)

// Report implements Reporter.
func (f ReporterFunc) Report(step jobs.Step, percent int, message string) {
	if f != nil {
		f(step, percent, message)
	}
}

// Scene is one segment of the generated script. Text is the narration,
// Animation the visual description handed to code generation.
type Scene struct {
	Text          string  `json:"text"`
	Animation     string  `json:"animation"`
	AudioDuration float64 `json:"audio_duration,omitempty"`
	ClassName     string  `json:"-"`
	Code          string  `json:"-"`
	SourcePath    string  `json:"-"`
	ClipPath      string  `json:"-"`
}

// Rendered reports whether the scene produced a clip.
func (s Scene) Rendered() bool {
	return s.ClipPath != ""
}

// Continuity carries the previous successful scene into the next code
// generation request.
type Continuity struct {
	Text      string
	Animation string
	Code      string
}

// Empty reports whether no scene has succeeded yet.
func (c Continuity) Empty() bool {
	return c.Code == "" && c.Text == "" && c.Animation == ""
}

// Job is the working state of one generation request. It is owned by the
// goroutine running the job and never shared with readers; readers see
// jobs.Record snapshots instead.
type Job struct {
	ID       string
	Topic    string
	Slug     string
	Provider llm.Provider

	NarrationRequested bool

	Scenes     []Scene
	ScriptPath string
	AudioPath  string
	VideoPath  string
	Narrated   bool

	// Artifacts lists intermediate files removed when the job finishes.
	Artifacts []string

	Progress Reporter
}

// Report forwards progress to the job's reporter when one is attached.
func (j *Job) Report(step jobs.Step, percent int, message string) {
	if j == nil || j.Progress == nil {
		return
	}
	j.Progress.Report(step, percent, message)
}

// Reportf is Report with a formatted message.
func (j *Job) Reportf(step jobs.Step, percent int, format string, args ...any) {
	j.Report(step, percent, fmt.Sprintf(format, args...))
}

// Clips returns the clip paths of rendered scenes in script order.
func (j *Job) Clips() []string {
	if j == nil {
		return nil
	}
	clips := make([]string, 0, len(j.Scenes))
	for _, scene := range j.Scenes {
		if scene.Rendered() {
			clips = append(clips, scene.ClipPath)
		}
	}
	return clips
}

// Track records an intermediate file for cleanup.
func (j *Job) Track(paths ...string) {
	for _, p := range paths {
		if p != "" {
			j.Artifacts = append(j.Artifacts, p)
		}
	}
}
