// Package scheduler runs the journal maintenance jobs (retention pruning,
// cloud backups) on cron schedules.
package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is a unit of scheduled maintenance work.
type Job interface {
	Run() error
	Name() string
}

// Scheduler wraps a cron runner and logs every job execution with its
// outcome and duration.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// New creates an idle scheduler; call Start once jobs are registered.
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// Start begins dispatching registered jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop halts dispatch and waits for any running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a job under a cron schedule ("@daily", "0 */6 * * *",
// "@every 30m", ...). A failing job is logged and retried at its next
// scheduled slot; there is no backoff beyond the schedule itself.
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		start := time.Now()

		if err := job.Run(); err != nil {
			s.log.Error().
				Err(err).
				Str("job", job.Name()).
				Dur("duration", time.Since(start)).
				Msg("Job failed")
			return
		}

		s.log.Debug().
			Str("job", job.Name()).
			Dur("duration", time.Since(start)).
			Msg("Job completed")
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")
	return nil
}

// RunNow executes a job immediately, outside its schedule.
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("Running job immediately")
	return job.Run()
}
