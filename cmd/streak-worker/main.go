package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ms-lokesh/cohort-summit-api/internal/repository"
	"github.com/ms-lokesh/cohort-summit-api/internal/service"
	"github.com/ms-lokesh/cohort-summit-api/internal/worker"
	"github.com/ms-lokesh/cohort-summit-api/pkg/config"
	"github.com/ms-lokesh/cohort-summit-api/pkg/database"
	"github.com/ms-lokesh/cohort-summit-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr.Named("streak-worker")); err != nil {
		logr.Fatal("worker failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	metrics := service.NewMetricsService()
	seasonRepo := repository.NewSeasonRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	legacySvc := service.NewLegacyService(repository.NewLegacyRepository(db), logr)

	seasonSvc := service.NewSeasonService(seasonRepo, repository.NewEpisodeRepository(db), repository.NewProgressRepository(db),
		studentRepo, legacySvc, db, validator.New(), logr)
	provider := service.NewStreakProviderClient(service.StreakProviderConfig{
		BaseURL:        cfg.Streak.ProviderURL,
		Timeout:        cfg.Streak.Timeout,
		MaxAttempts:    cfg.Streak.MaxAttempts,
		InitialBackoff: cfg.Streak.InitialBackoff,
	}, metrics, logr)
	streakSvc := service.NewStreakService(seasonRepo, studentRepo, repository.NewStreakRepository(db), provider, db, metrics, logr,
		service.StreakSyncConfig{Workers: cfg.Streak.Workers})

	scheduler := worker.NewStreakScheduler(seasonSvc, streakSvc, cfg.Streak.SyncInterval, logr)
	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	<-ctx.Done()
	logr.Info("shutdown signal received, waiting for running sync")
	if err := scheduler.Stop(); err != nil {
		return fmt.Errorf("stop scheduler: %w", err)
	}
	logr.Info("worker stopped")
	return nil
}
