package service

import (
	"context"
	"errors"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// JobRunner is the part of IngestService the worker drives.
type JobRunner interface {
	Run(ctx context.Context, trigger string) error
}

// runnerFunc adapts IngestService.Run to JobRunner.
type runnerFunc func(ctx context.Context, trigger string) error

func (f runnerFunc) Run(ctx context.Context, trigger string) error { return f(ctx, trigger) }

// AsRunner exposes the service as a JobRunner, discarding the job record.
func (s *IngestService) AsRunner() JobRunner {
	return runnerFunc(func(ctx context.Context, trigger string) error {
		_, err := s.Run(ctx, trigger)
		return err
	})
}

// IngestWorker fires ingestion runs on a cron schedule. Overlapping ticks are
// skipped while a run is still in progress.
type IngestWorker struct {
	runner   JobRunner
	schedule string
	cron     *cron.Cron

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewIngestWorker validates schedule (standard five-field syntax, or
// descriptors such as "@hourly").
func NewIngestWorker(runner JobRunner, schedule string) (*IngestWorker, error) {
	if schedule == "" {
		return nil, errors.New("ingest worker: empty schedule")
	}
	logger := cronLogger{}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	w := &IngestWorker{runner: runner, schedule: schedule, cron: c}
	if _, err := c.AddFunc(schedule, w.tick); err != nil {
		return nil, err
	}
	return w, nil
}

// Start begins scheduling. Runs use ctx as their parent.
func (w *IngestWorker) Start(ctx context.Context) {
	w.mu.Lock()
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	log.Info().Str("schedule", w.schedule).Msg("ingest-worker: starting")
	w.cron.Start()
}

// Stop halts scheduling and waits for an in-flight run to finish.
func (w *IngestWorker) Stop() {
	done := w.cron.Stop()
	<-done.Done()
	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
	}
	w.mu.Unlock()
	log.Info().Msg("ingest-worker: stopped")
}

func (w *IngestWorker) tick() {
	w.mu.Lock()
	ctx := w.ctx
	w.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := w.runner.Run(ctx, TriggerCron); err != nil {
		if errors.Is(err, ErrIngestNotConfigured) {
			log.Warn().Msg("ingest-worker: no provider configured, skipping")
			return
		}
		log.Error().Err(err).Msg("ingest-worker: run failed")
	}
}

// cronLogger routes cron's internal logging through zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
