package jobs

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"topic2manim/internal/logging"
)

// Sweeper evicts finished jobs older than the retention window on a cron schedule.
type Sweeper struct {
	registry  *Registry
	retention time.Duration
	schedule  string
	logger    *slog.Logger
	now       func() time.Time
	onEvict   func(Record) error

	mu   sync.Mutex
	cron *cron.Cron
}

// NewSweeper builds a sweeper. A zero retention disables eviction.
func NewSweeper(registry *Registry, retention time.Duration, schedule string, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		registry:  registry,
		retention: retention,
		schedule:  strings.TrimSpace(schedule),
		logger:    logging.NewComponentLogger(logger, "jobs-sweeper"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// OnEvict registers fn to run for every evicted job, typically to delete the
// job's video from the media directory. Errors are logged and do not stop the
// sweep. Must be called before Start.
func (s *Sweeper) OnEvict(fn func(Record) error) {
	if s == nil {
		return
	}
	s.onEvict = fn
}

// Start registers the sweep with cron and starts the scheduler. Starting a
// sweeper with zero retention is a no-op.
func (s *Sweeper) Start() error {
	if s == nil || s.registry == nil || s.retention <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() { s.SweepOnce() }); err != nil {
		return fmt.Errorf("schedule job sweep %q: %w", s.schedule, err)
	}
	c.Start()
	s.cron = c
	s.logger.Info("job retention sweep scheduled",
		logging.String("schedule", s.schedule),
		logging.Duration("retention", s.retention),
	)
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	ctx := c.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
	}
}

// SweepOnce evicts expired jobs immediately and returns how many were removed.
func (s *Sweeper) SweepOnce() int {
	if s == nil || s.registry == nil || s.retention <= 0 {
		return 0
	}
	removed := s.registry.Evict(s.now().Add(-s.retention))
	if s.onEvict != nil {
		for _, rec := range removed {
			if err := s.onEvict(rec); err != nil {
				logging.WarnWithContext(s.logger, "evicted job artifacts not removed", "evict_cleanup_failed",
					logging.String(logging.FieldJobID, rec.ID),
					logging.String(logging.FieldImpact, "video stays on disk after the job is forgotten"),
					logging.Error(err),
				)
			}
		}
	}
	if len(removed) > 0 {
		s.logger.Info("evicted finished jobs",
			logging.Int("count", len(removed)),
			logging.Int("remaining", s.registry.Len()),
		)
	}
	return len(removed)
}
