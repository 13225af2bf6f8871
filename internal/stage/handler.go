package stage

import (
	"context"
)

// Handler describes the contract the workflow manager needs from each stage.
// Prepare runs before Execute and is where a stage announces itself; Execute
// does the work and mutates the job in place.
type Handler interface {
	Prepare(context.Context, *Job) error
	Execute(context.Context, *Job) error
	HealthCheck(context.Context) Health
}

// Skipper is implemented by optional stages that can decide not to run.
// A skipped stage never has Prepare or Execute called.
type Skipper interface {
	Skip(*Job) bool
}
