// Package jobs runs the periodic maintenance of the auth core: pruning
// expired sessions and refreshing Instagram tokens before they lapse.
//
// Schedules use robfig/cron syntax, so both "@hourly" and "0 3 * * *" work.
// Every job runs behind cron.Recover and cron.SkipIfStillRunning: a panic is
// logged instead of killing the process, and a slow run is never overlapped
// by the next tick.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sakif/catchme/internal/logger"
)

// Scheduler owns one cron instance and the named jobs registered on it.
type Scheduler struct {
	log  *logger.Logger
	cron *cron.Cron

	mu   sync.Mutex
	jobs map[string]cron.EntryID
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(log *logger.Logger) *Scheduler {
	log = log.With("component", "scheduler")
	cl := cronLogger{log}
	return &Scheduler{
		log: log,
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		jobs: map[string]cron.EntryID{},
	}
}

// Add schedules job under a unique name.
func (s *Scheduler) Add(name, spec string, job cron.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("jobs: job %q already registered", name)
	}

	id, err := s.cron.AddJob(spec, job)
	if err != nil {
		return fmt.Errorf("jobs: scheduling %q with spec %q: %w", name, spec, err)
	}

	s.jobs[name] = id
	s.log.Info().Str("job", name).Str("spec", spec).Msg("scheduled job added")
	return nil
}

// NextRun returns when the named job fires next. The zero time means the job
// is unknown or the scheduler has not been started.
func (s *Scheduler) NextRun(name string) time.Time {
	s.mu.Lock()
	id, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}
	}
	return s.cron.Entry(id).Next
}

func (s *Scheduler) Start() {
	s.log.Info().Int("jobs", len(s.cron.Entries())).Msg("starting scheduler")
	s.cron.Start()
}

// Stop stops scheduling new runs and waits for running ones to finish, or
// for ctx to end, whichever comes first.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.log.Info().Msg("stopping scheduler")
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("jobs: waiting for running jobs: %w", ctx.Err())
	}
}

// cronLogger adapts *logger.Logger to cron.Logger. cron reports every wakeup
// through Info, so those go to debug.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
