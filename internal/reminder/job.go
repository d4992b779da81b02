package reminder

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"campuslibrary/internal/calendar"
	"campuslibrary/internal/ledger"
	"campuslibrary/internal/metrics"
	"campuslibrary/internal/notify"
)

// Source is the read side of the lending ledger the job scans.
type Source interface {
	BorrowsDueOn(ctx context.Context, day time.Time) ([]ledger.DueBorrow, error)
}

// Report summarizes one run.
type Report struct {
	Day         time.Time
	DueTomorrow int
	Overdue     int
	Sent        int
	Failed      int
	Err         error
}

// Job sends due-tomorrow reminders and overdue notices. Matching is by exact date:
// a book due two days ago is not flagged again.
type Job struct {
	src         Source
	gw          notify.Gateway
	clock       *calendar.Clock
	sendTimeout time.Duration
	concurrency int
}

// NewJob creates a job. concurrency bounds in-flight sends.
func NewJob(src Source, gw notify.Gateway, clock *calendar.Clock, sendTimeout time.Duration, concurrency int) *Job {
	if sendTimeout <= 0 {
		sendTimeout = 20 * time.Second
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Job{src: src, gw: gw, clock: clock, sendTimeout: sendTimeout, concurrency: concurrency}
}

// Run performs one scan. A store failure ends the run early; the next schedule retries.
func (j *Job) Run(ctx context.Context) Report {
	today := j.clock.Today()
	report := Report{Day: today}
	tomorrow, yesterday := j.clock.Tomorrow(), j.clock.Yesterday()
	log.Printf("reminder run for %s: checking due %s and overdue %s",
		calendar.FormatDate(today), calendar.FormatDate(tomorrow), calendar.FormatDate(yesterday))

	dueSoon, err := j.src.BorrowsDueOn(ctx, tomorrow)
	if err != nil {
		return j.abort(report, err)
	}
	overdue, err := j.src.BorrowsDueOn(ctx, yesterday)
	if err != nil {
		return j.abort(report, err)
	}
	report.DueTomorrow, report.Overdue = len(dueSoon), len(overdue)

	messages := make([]notify.Message, 0, len(dueSoon)+len(overdue))
	for _, b := range dueSoon {
		messages = append(messages, notify.DueTomorrow(b))
	}
	for _, b := range overdue {
		messages = append(messages, notify.Overdue(b))
	}

	var sent, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(j.concurrency)
	for _, msg := range messages {
		msg := msg
		g.Go(func() error {
			sendCtx, cancel := context.WithTimeout(ctx, j.sendTimeout)
			defer cancel()
			err := j.gw.Send(sendCtx, msg)
			metrics.Notification(msg.Kind, err)
			if err != nil {
				failed.Add(1)
				log.Printf("%s notice to %s failed: %v", msg.Kind, msg.To, err)
				return nil
			}
			sent.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	report.Sent, report.Failed = int(sent.Load()), int(failed.Load())
	result := "ok"
	if report.Failed > 0 {
		result = "partial"
	}
	metrics.ReminderRun(result)
	log.Printf("reminder run complete: %d due tomorrow, %d overdue, %d sent, %d failed",
		report.DueTomorrow, report.Overdue, report.Sent, report.Failed)
	return report
}

func (j *Job) abort(report Report, err error) Report {
	report.Err = err
	metrics.ReminderRun("store_failure")
	log.Printf("reminder run aborted, will retry next schedule: %v", err)
	return report
}
