package jobs

import "errors"

var (
	// ErrNotFound is returned when no job exists for an id.
	ErrNotFound = errors.New("job not found")
	// ErrTerminal is returned when a finished job is mutated.
	ErrTerminal = errors.New("job already finished")
	// ErrInvalidTransition is returned when a mutation would break the record invariants.
	ErrInvalidTransition = errors.New("invalid job transition")
)
