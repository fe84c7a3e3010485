package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const DefaultSchedule = "@every 6h"

// Runner is satisfied by *Manager.
type Runner interface {
	ScrapeJobs(ctx context.Context, query, location string) (int, error)
}

// Scheduler triggers a scrape on a cron spec. Overlapping ticks are skipped
// while a run is still in progress.
type Scheduler struct {
	cron     *cron.Cron
	runner   Runner
	spec     string
	query    string
	location string
	log      zerolog.Logger
}

func NewScheduler(runner Runner, spec, query, location string, logger zerolog.Logger) *Scheduler {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		spec = DefaultSchedule
	}
	cronLog := cronLogger{log: logger.With().Str("component", "scheduler").Logger()}
	return &Scheduler{
		cron:     cron.New(cron.WithLogger(cronLog), cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog))),
		runner:   runner,
		spec:     spec,
		query:    query,
		location: location,
		log:      logger,
	}
}

// Start registers the job, starts the cron loop and runs one scrape right
// away without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	id, err := s.cron.AddFunc(s.spec, func() { s.runOnce(ctx) })
	if err != nil {
		return fmt.Errorf("schedule %q: %w", s.spec, err)
	}

	s.cron.Start()
	s.log.Info().Str("spec", s.spec).Msg("scheduler started")

	go s.cron.Entry(id).WrappedJob.Run()
	return nil
}

// Stop halts the loop and returns a context that is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	done := s.cron.Stop()
	s.log.Info().Msg("scheduler stopped")
	return done
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	created, err := s.runner.ScrapeJobs(ctx, s.query, s.location)
	if err != nil {
		s.log.Error().Err(err).Msg("scheduled scrape failed")
		return
	}
	s.log.Info().Int("created", created).Msg("scheduled scrape complete")
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
