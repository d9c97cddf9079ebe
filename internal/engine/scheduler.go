package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// sweepTimeout caps a single scheduled sweep.
const sweepTimeout = 5 * time.Minute

// Scheduler runs periodic matching sweeps.
type Scheduler struct {
	cron    *cron.Cron
	matcher *Matcher
	log     *slog.Logger
}

// NewScheduler creates a Scheduler that sweeps on the given interval.
func NewScheduler(
	m *Matcher,
	sweepInterval time.Duration,
	log *slog.Logger,
) (*Scheduler, error) {
	c := cron.New()

	s := &Scheduler{
		cron:    c,
		matcher: m,
		log:     log,
	}

	if _, err := c.AddFunc(
		"@every "+sweepInterval.String(),
		s.runSweep,
	); err != nil {
		return nil, err
	}

	return s, nil
}

// Start begins running scheduled sweeps.
func (s *Scheduler) Start() {
	s.log.Info("scheduler started")
	s.cron.Start()
}

// Stop gracefully stops the scheduler, waiting for running jobs to finish.
func (s *Scheduler) Stop() context.Context {
	s.log.Info("scheduler stopping")
	return s.cron.Stop()
}

// Entries returns the registered cron entries for inspection.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

func (s *Scheduler) runSweep() {
	// Bounded so a stalled dependency cannot pile up sweep goroutines
	// across cron ticks.
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	s.log.Info("scheduled sweep starting")
	if err := s.matcher.Sweep(ctx); err != nil {
		s.log.Error("scheduled sweep failed", "error", err)
	}
}
