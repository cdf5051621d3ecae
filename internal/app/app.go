// Package app wires configuration into the running application.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fundingmonitor/internal/config"
	"fundingmonitor/internal/detect"
	"fundingmonitor/internal/domain"
	"fundingmonitor/internal/infrastructure/email"
	"fundingmonitor/internal/infrastructure/feed"
	"fundingmonitor/internal/infrastructure/scheduler"
	"fundingmonitor/internal/infrastructure/storage"
	"fundingmonitor/internal/logging"
	"fundingmonitor/internal/ports"
	"fundingmonitor/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg        config.Config
	logger     *slog.Logger
	repository *storage.SQLiteRepository
	pipeline   *usecase.Pipeline
	scheduler  *usecase.Scheduler
}

// New builds a runnable application instance. Pattern compilation and
// database setup failures are returned to the caller; they are not
// recoverable at runtime.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	registry, err := detect.NewRegistry(cfg.Detector)
	if err != nil {
		return nil, fmt.Errorf("build detection registry: %w", err)
	}
	detector := detect.NewDetector(registry, cfg.Detector.Threshold, baseLogger.With("component", "detector"))

	repository, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	source := feed.NewFetcher(cfg.Fetcher, cfg.Feeds, baseLogger.With("component", "feeds"))

	var sender ports.DigestSender
	if s, err := email.NewSender(cfg.Email, baseLogger.With("component", "email")); err != nil {
		baseLogger.Warn("digest delivery disabled", "reason", err)
	} else {
		sender = s
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:        source,
		Detector:      detector,
		Repository:    repository,
		Sender:        sender,
		DigestKind:    domain.DigestKind(cfg.Email.DigestType),
		LookbackDays:  cfg.Detector.LookbackDays,
		RetentionDays: cfg.Database.CleanupDays,
		Logger:        baseLogger.With("component", "pipeline"),
	})

	driver := scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location())
	sched := usecase.NewScheduler(driver, pipeline, baseLogger.With("component", "scheduler"))

	return &Application{
		cfg:        cfg,
		logger:     baseLogger,
		repository: repository,
		pipeline:   pipeline,
		scheduler:  sched,
	}, nil
}

// Run performs an immediate pipeline pass and, when a cron expression is
// configured, keeps running on schedule until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	now := time.Now().In(a.cfg.Scheduler.Location())
	if err := a.pipeline.Run(ctx, now); err != nil {
		return fmt.Errorf("initial run: %w", err)
	}

	if a.cfg.Scheduler.CronExpression == "" {
		return nil
	}

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started", "cron", a.cfg.Scheduler.CronExpression, "timezone", a.cfg.Scheduler.Timezone)

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.scheduler.Stop(stopCtx); err != nil {
		a.logger.Warn("scheduler stop timed out", "error", err)
	}

	return nil
}

// Close releases held resources.
func (a *Application) Close() error {
	if a.repository == nil {
		return nil
	}
	return a.repository.Close()
}
