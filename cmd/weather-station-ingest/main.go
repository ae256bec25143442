package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/weather-station-ingest/internal/api/http"
	"github.com/i474232898/weather-station-ingest/internal/config"
	"github.com/i474232898/weather-station-ingest/internal/logger"
	"github.com/i474232898/weather-station-ingest/internal/report"
	"github.com/i474232898/weather-station-ingest/internal/scheduler"
	"github.com/i474232898/weather-station-ingest/internal/store"
	"github.com/i474232898/weather-station-ingest/internal/weather"
	"github.com/i474232898/weather-station-ingest/internal/weather/providers"
)

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func main() {
	runOnce := flag.String("run", "", "run a single batch (past or future) and exit")
	flag.Parse()

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	appLog, closer, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("failed to set up logging: %v", err)
	}
	defer closer.Close()

	if err := run(cfg, appLog, *runOnce); err != nil {
		appLog.Errorf("%v", err)
		closer.Close()
		os.Exit(1)
	}
}

func newLogger(cfg *config.AppConfig) (logger.Logger, io.Closer, error) {
	if cfg.LogDir == "" {
		return logger.New(cfg.LogLevel, cfg.AppEnv), nopCloser{}, nil
	}
	return logger.NewWithFile(cfg.LogLevel, cfg.AppEnv, cfg.LogDir, time.Now())
}

func run(cfg *config.AppConfig, appLog logger.Logger, runOnce string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.StoreDriver, cfg.DSN(), appLog)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.StoreDriver, err)
	}
	defer st.Close()

	// Shared HTTP client for the station archive.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	source := providers.NewMeteostatProvider(httpClient, providers.MeteostatConfig{
		BaseURL:      cfg.MeteostatBaseURL,
		StationsPath: cfg.MeteostatStationsPath,
		HourlyPath:   cfg.MeteostatHourlyPath,
		StationLimit: cfg.StationLimit,
		Backoff: providers.BackoffConfig{
			MaxRetries:      cfg.FetchMaxRetries,
			InitialInterval: cfg.FetchRetryInterval,
			MaxInterval:     30 * time.Second,
		},
		RatePerSecond: cfg.FetchRatePerSec,
	}, appLog)

	// Core service orchestrating the source and the store.
	service := weather.NewService(st, source,
		weather.StationFilter{Country: cfg.StationCountry, Region: cfg.StationRegion},
		weather.WithReporter(report.NewFailureReporter(cfg.ReportDir)),
		weather.WithLogger(appLog),
	)
	if err := service.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize tables: %w", err)
	}

	runner := weather.NewBatchRunner(service, cfg.PastDays, cfg.FutureDays, appLog)

	if runOnce != "" {
		kind, err := weather.ParseBatchKind(runOnce)
		if err != nil {
			return err
		}
		rep, err := runner.Run(ctx, weather.IngestRequest{Kind: kind})
		if err != nil {
			return fmt.Errorf("%s batch failed: %w", kind, err)
		}
		appLog.Infof("Done: %d/%d stations, %d rows inserted, %d updated, %d skipped",
			rep.Succeeded, rep.Total, rep.Inserted, rep.Updated, rep.RowErrors)
		return nil
	}

	if cfg.ScheduleEnabled {
		sched := scheduler.New(runner, cfg.ScheduleAt, 0, appLog)
		if err := sched.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer sched.Stop()
	}

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "weather-station-ingest",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          60 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(fiberlogger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		status := fiber.Map{
			"status":  "ok",
			"service": "weather-station-ingest",
			"store":   cfg.StoreDriver,
		}
		if hc, ok := st.(healthChecker); ok {
			if err := hc.HealthCheck(c.UserContext()); err != nil {
				status["status"] = "degraded"
				return c.Status(fiber.StatusServiceUnavailable).JSON(status)
			}
		}
		return c.JSON(status)
	})

	// API routes.
	httpapi.RegisterRoutes(app, service, runner)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			appLog.Errorf("fiber server stopped: %v", err)
		}
	}()
	appLog.Infof("Listening on :%s", cfg.Port)

	// Wait for termination signal
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		appLog.Warnf("error during shutdown: %v", err)
	}
	return nil
}
