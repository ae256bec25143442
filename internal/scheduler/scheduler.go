package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/weather-station-ingest/internal/logger"
	"github.com/i474232898/weather-station-ingest/internal/weather"
)

// Runner is the part of weather.BatchRunner the scheduler needs.
type Runner interface {
	Run(ctx context.Context, req weather.IngestRequest) (weather.IngestReport, error)
}

// Scheduler runs the past and future batches once a day.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    Runner
	at        string
	timeout   time.Duration
	log       logger.Logger
}

// New creates a Scheduler firing every day at the given UTC "HH:MM".
// timeout bounds one daily run; zero means no limit.
func New(runner Runner, at string, timeout time.Duration, log logger.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		runner:    runner,
		at:        at,
		timeout:   timeout,
		log:       log.WithField("component", "scheduler"),
	}
}

// Start schedules the daily job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(1).Day().At(s.at).Do(func() {
		ctx := context.Background()
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		s.runDaily(ctx)
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.log.Infof("Daily batches scheduled at %s UTC", s.at)
	return nil
}

// runDaily runs the past batch, then the future batch. A failing batch does not
// prevent the other one.
func (s *Scheduler) runDaily(ctx context.Context) {
	s.log.Info("Running daily weather batches")

	for _, kind := range []weather.BatchKind{weather.KindPast, weather.KindFuture} {
		report, err := s.runner.Run(ctx, weather.IngestRequest{Kind: kind})
		switch {
		case errors.Is(err, weather.ErrBatchRunning):
			s.log.Warnf("Skipping %s batch: another batch is running", kind)
		case err != nil:
			s.log.Errorf("%s batch failed: %v", kind, err)
		default:
			s.log.Infof("%s batch done: %d/%d stations, %d inserted, %d updated",
				kind, report.Succeeded, report.Total, report.Inserted, report.Updated)
		}
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
