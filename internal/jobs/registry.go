package jobs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type entry struct {
	record Record
	cancel context.CancelFunc
}

// Registry is the process-wide store of job records. All access goes through
// its methods; the underlying map is never exposed.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	now     func() time.Time
	newID   func() string
}

// Option customizes a Registry.
type Option func(*Registry)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRegistry constructs an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		entries: make(map[string]*entry),
		now:     func() time.Time { return time.Now().UTC() },
		newID:   func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create allocates a queued job for topic and returns a snapshot of it.
func (r *Registry) Create(topic, provider string) (Record, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Record{}, fmt.Errorf("%w: topic is required", ErrInvalidTransition)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.newID()
	for {
		if _, exists := r.entries[id]; !exists {
			break
		}
		id = r.newID()
	}
	now := r.now()
	rec := Record{
		ID:          id,
		Topic:       topic,
		Status:      StatusQueued,
		CurrentStep: StepScript,
		Message:     "Job queued",
		Provider:    provider,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.entries[id] = &entry{record: rec}
	return rec, nil
}

// Update applies m to the job and returns the resulting snapshot. Unknown ids
// yield ErrNotFound and finished jobs yield ErrTerminal. Progress never moves
// backwards: a lower value is ignored.
func (r *Registry) Update(id string, m Mutation) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if e.record.IsTerminal() {
		return e.record, fmt.Errorf("%w: %s is %s", ErrTerminal, id, e.record.Status)
	}

	next := e.record
	if err := apply(&next, m); err != nil {
		return e.record, err
	}
	now := r.now()
	next.UpdatedAt = now
	if next.IsTerminal() {
		completed := now
		next.CompletedAt = &completed
	}
	e.record = next
	return next, nil
}

func apply(rec *Record, m Mutation) error {
	target := rec.Status
	if m.Status != nil {
		target = *m.Status
	}
	switch target {
	case StatusQueued:
		if rec.Status != StatusQueued {
			return fmt.Errorf("%w: %s cannot return to queued", ErrInvalidTransition, rec.Status)
		}
	case StatusCompleted:
		if rec.Status != StatusRunning && rec.Status != StatusCompleted {
			return fmt.Errorf("%w: %s cannot complete", ErrInvalidTransition, rec.Status)
		}
	case StatusRunning, StatusFailed:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, target)
	}

	if m.Error != nil && target != StatusFailed {
		return fmt.Errorf("%w: error is only recorded on failure", ErrInvalidTransition)
	}
	if m.VideoURL != nil && target != StatusCompleted {
		return fmt.Errorf("%w: video url is only recorded on completion", ErrInvalidTransition)
	}
	if target == StatusFailed && (m.Error == nil || strings.TrimSpace(*m.Error) == "") {
		return fmt.Errorf("%w: failure requires an error description", ErrInvalidTransition)
	}
	if target == StatusCompleted && (m.VideoURL == nil || strings.TrimSpace(*m.VideoURL) == "") {
		return fmt.Errorf("%w: completion requires a video url", ErrInvalidTransition)
	}
	if m.Step != nil && !m.Step.Valid() {
		return fmt.Errorf("%w: unknown step %q", ErrInvalidTransition, *m.Step)
	}

	rec.Status = target
	if m.Step != nil {
		rec.CurrentStep = *m.Step
	}
	if m.Progress != nil {
		percent := min(max(*m.Progress, 0), 100)
		if percent > rec.Progress {
			rec.Progress = percent
		}
	}
	if target == StatusCompleted {
		rec.Progress = 100
	}
	if m.Message != nil {
		rec.Message = *m.Message
	}
	if m.Error != nil {
		rec.Error = strings.TrimSpace(*m.Error)
	}
	if m.VideoURL != nil {
		rec.VideoURL = strings.TrimSpace(*m.VideoURL)
	}
	if m.SceneCount != nil {
		rec.SceneCount = *m.SceneCount
	}
	if m.ScenesRendered != nil {
		rec.ScenesRendered = *m.ScenesRendered
	}
	if m.Narrated != nil {
		rec.Narrated = *m.Narrated
	}
	return nil
}

// Get returns a snapshot of the job.
func (r *Registry) Get(id string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return Record{}, false
	}
	return e.record, true
}

// List returns snapshots of every job, newest first.
func (r *Registry) List() []Record {
	r.mu.RLock()
	out := make([]Record, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.record)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Summary counts jobs per status.
func (r *Registry) Summary() Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var s Summary
	for _, e := range r.entries {
		s.Total++
		switch e.record.Status {
		case StatusQueued:
			s.Queued++
		case StatusRunning:
			s.Running++
		case StatusCompleted:
			s.Completed++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}

// Attach stores the cancel function of the goroutine running the job.
func (r *Registry) Attach(id string, cancel context.CancelFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	e.cancel = cancel
	return nil
}

// Cancel invokes the job's cancel function. It reports false when the job is
// unknown, finished, or has no attached cancel function.
func (r *Registry) Cancel(id string) bool {
	r.mu.RLock()
	e, ok := r.entries[id]
	var cancel context.CancelFunc
	if ok && !e.record.IsTerminal() {
		cancel = e.cancel
	}
	r.mu.RUnlock()
	if cancel == nil {
		return false
	}
	cancel()
	return true
}

// Evict removes finished jobs whose last update is before cutoff and returns
// the removed snapshots. Unfinished jobs are never evicted.
func (r *Registry) Evict(cutoff time.Time) []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []Record
	for id, e := range r.entries {
		if !e.record.IsTerminal() || !e.record.UpdatedAt.Before(cutoff) {
			continue
		}
		removed = append(removed, e.record)
		delete(r.entries, id)
	}
	return removed
}

// Len returns the number of stored jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
