package reminder

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSpec fires daily at 08:00 library time.
const DefaultSpec = "0 8 * * *"

// Scheduler owns the cron loop driving the job. Start at service startup, Stop on shutdown.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler registers job under a standard five-field cron spec evaluated in loc.
func NewScheduler(job *Job, spec string, loc *time.Location) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSpec
	}
	logger := cron.PrintfLogger(log.Default())
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{cron: c, ctx: ctx, cancel: cancel}

	if _, err := c.AddFunc(spec, func() { job.Run(s.ctx) }); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

// Start begins firing in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("reminder scheduler started, next run %s", s.Next().Format(time.RFC3339))
}

// Next reports the next scheduled run, zero before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Stop halts scheduling and waits for a running job until ctx expires, then cancels it.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}
