// Package scheduler fires the Fetcher on an interval and daily/weekly
// report triggers at fixed UTC times, per spec.md §4.10. It generalizes
// the teacher's provider/healthpoller.go background-loop shape (run
// immediately, then tick, with graceful context cancellation) from
// "poll provider health" to "fire a named task on a schedule."
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultFetchInterval is used when no interval is configured.
const DefaultFetchInterval = 15 * time.Minute

// ReportTrigger fires a report job once per day at a fixed UTC
// hour:minute. Weekly triggers additionally pin a weekday.
type ReportTrigger struct {
	Name    string
	Hour    int
	Minute  int
	Weekday time.Weekday // only checked when Weekly is true
	Weekly  bool
	Fire    func(ctx context.Context)
}

// Scheduler runs the periodic Fetcher job and any configured report
// triggers concurrently, each on its own goroutine, until Stop is called.
type Scheduler struct {
	fetchInterval time.Duration
	fetchFn       func(ctx context.Context)
	triggers      []ReportTrigger
	logger        zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a Scheduler. fetchInterval <= 0 uses DefaultFetchInterval.
func New(fetchInterval time.Duration, fetchFn func(ctx context.Context), triggers []ReportTrigger, logger zerolog.Logger) *Scheduler {
	if fetchInterval <= 0 {
		fetchInterval = DefaultFetchInterval
	}
	return &Scheduler{
		fetchInterval: fetchInterval,
		fetchFn:       fetchFn,
		triggers:      triggers,
		logger:        logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start begins the background loops. Call Stop for a graceful shutdown.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.logger.Info().Dur("fetch_interval", s.fetchInterval).Int("report_triggers", len(s.triggers)).Msg("starting scheduler")

	s.wg.Add(1)
	go s.fetchLoop(ctx)

	for _, trig := range s.triggers {
		s.wg.Add(1)
		go s.triggerLoop(ctx, trig)
	}
}

// Stop cancels all loops and waits for them to exit.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info().Msg("scheduler stopped")
}

func (s *Scheduler) fetchLoop(ctx context.Context) {
	defer s.wg.Done()

	s.runFetch(ctx)

	ticker := time.NewTicker(s.fetchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runFetch(ctx)
		}
	}
}

func (s *Scheduler) runFetch(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Msg("fetch job panicked")
		}
	}()
	s.fetchFn(ctx)
}

// triggerLoop sleeps until the trigger's next scheduled fire, fires it,
// then recomputes the next occurrence. A fire that would have happened
// while the process was down is never replayed — only forward-looking
// occurrences are scheduled, per spec.md §4.10.
func (s *Scheduler) triggerLoop(ctx context.Context, trig ReportTrigger) {
	defer s.wg.Done()

	for {
		wait := nextOccurrence(time.Now().UTC(), trig)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.logger.Info().Str("trigger", trig.Name).Msg("firing report trigger")
			s.runTrigger(ctx, trig)
		}
	}
}

func (s *Scheduler) runTrigger(ctx context.Context, trig ReportTrigger) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("trigger", trig.Name).Interface("panic", r).Msg("report trigger panicked")
		}
	}()
	trig.Fire(ctx)
}

// nextOccurrence computes the duration until trig's next fixed UTC
// hour:minute (and, for weekly triggers, weekday), strictly after now.
func nextOccurrence(now time.Time, trig ReportTrigger) time.Duration {
	candidate := time.Date(now.Year(), now.Month(), now.Day(), trig.Hour, trig.Minute, 0, 0, time.UTC)

	if trig.Weekly {
		for candidate.Weekday() != trig.Weekday || !candidate.After(now) {
			candidate = candidate.AddDate(0, 0, 1)
		}
	} else {
		if !candidate.After(now) {
			candidate = candidate.AddDate(0, 0, 1)
		}
	}

	return candidate.Sub(now)
}
