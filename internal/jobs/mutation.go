package jobs

// Mutation lists the fields an update changes. Nil fields are left untouched.
type Mutation struct {
	Status         *Status
	Step           *Step
	Progress       *int
	Message        *string
	Error          *string
	VideoURL       *string
	SceneCount     *int
	ScenesRendered *int
	Narrated       *bool
}

// Progress reports a running milestone.
func Progress(step Step, percent int, message string) Mutation {
	status := StatusRunning
	return Mutation{Status: &status, Step: &step, Progress: &percent, Message: &message}
}

// Completed finishes a job with its artifact location.
func Completed(videoURL, message string, narrated bool) Mutation {
	status := StatusCompleted
	percent := 100
	return Mutation{
		Status:   &status,
		Progress: &percent,
		Message:  &message,
		VideoURL: &videoURL,
		Narrated: &narrated,
	}
}

// Failed finishes a job with the failure description.
func Failed(reason string) Mutation {
	status := StatusFailed
	message := "Error: " + reason
	return Mutation{Status: &status, Error: &reason, Message: &message}
}

// WithScenes returns a copy of m that also records scene counts. Negative
// values leave the corresponding field unchanged.
func (m Mutation) WithScenes(total, rendered int) Mutation {
	if total >= 0 {
		m.SceneCount = &total
	}
	if rendered >= 0 {
		m.ScenesRendered = &rendered
	}
	return m
}
