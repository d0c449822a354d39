package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/ms-lokesh/cohort-summit-api/api/swagger"
	"github.com/ms-lokesh/cohort-summit-api/internal/handler"
	internalmiddleware "github.com/ms-lokesh/cohort-summit-api/internal/middleware"
	"github.com/ms-lokesh/cohort-summit-api/internal/repository"
	"github.com/ms-lokesh/cohort-summit-api/internal/service"
	"github.com/ms-lokesh/cohort-summit-api/pkg/cache"
	"github.com/ms-lokesh/cohort-summit-api/pkg/config"
	"github.com/ms-lokesh/cohort-summit-api/pkg/database"
	"github.com/ms-lokesh/cohort-summit-api/pkg/logger"
	corsmiddleware "github.com/ms-lokesh/cohort-summit-api/pkg/middleware/cors"
	reqidmiddleware "github.com/ms-lokesh/cohort-summit-api/pkg/middleware/requestid"
)

// @title Cohort Summit API
// @version 1.0.0
// @description Progression, scoring and rewards engine for the Cohort Summit seasons.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

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

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	var cacheRepo service.CacheRepository
	cacheEnabled := cfg.Leaderboard.CacheEnabled
	if cacheEnabled {
		redisClient, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, podium cache disabled", zap.Error(err))
			cacheEnabled = false
		} else {
			defer redisClient.Close()
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	seasonRepo := repository.NewSeasonRepository(db)
	episodeRepo := repository.NewEpisodeRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	scoreRepo := repository.NewScoreRepository(db)
	approvalRepo := repository.NewApprovalRepository(db)
	streakRepo := repository.NewStreakRepository(db)
	outcomeRepo := repository.NewOutcomeRepository(db)
	legacyRepo := repository.NewLegacyRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	leaderboardRepo := repository.NewLeaderboardRepository(db)
	titleRepo := repository.NewTitleRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Leaderboard.CacheTTL, logr, cacheEnabled)
	ledgerSvc := service.NewLedgerService(walletRepo, metrics, logr)
	legacySvc := service.NewLegacyService(legacyRepo, logr)
	leaderboardSvc := service.NewLeaderboardService(leaderboardRepo, scoreRepo, seasonRepo, db, cacheSvc, metrics, logr,
		service.LeaderboardConfig{CacheTTL: cfg.Leaderboard.CacheTTL})
	scoringSvc := service.NewScoringService(seasonRepo, progressRepo, scoreRepo, approvalRepo, streakRepo, outcomeRepo,
		legacySvc, ledgerSvc, leaderboardSvc, db, metrics, validate, logr,
		service.ScoringConfig{StreakGraceDays: cfg.Season.StreakGraceDays})
	progressionSvc := service.NewProgressionService(seasonRepo, episodeRepo, progressRepo, studentRepo, scoringSvc, db, metrics, validate, logr)
	seasonSvc := service.NewSeasonService(seasonRepo, episodeRepo, progressRepo, studentRepo, legacySvc, db, validate, logr)
	titleSvc := service.NewTitleService(titleRepo, ledgerSvc, db, metrics, validate, logr)
	provider := service.NewStreakProviderClient(service.StreakProviderConfig{
		BaseURL:        cfg.Streak.ProviderURL,
		Timeout:        cfg.Streak.Timeout,
		MaxAttempts:    cfg.Streak.MaxAttempts,
		InitialBackoff: cfg.Streak.InitialBackoff,
	}, metrics, logr)
	streakSvc := service.NewStreakService(seasonRepo, studentRepo, streakRepo, provider, db, metrics, logr,
		service.StreakSyncConfig{Workers: cfg.Streak.Workers})
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Seasons:  seasonSvc,
		Progress: progressionSvc,
		Scores:   scoringSvc,
		Legacy:   legacySvc,
		Wallets:  ledgerSvc,
		Ranking:  leaderboardSvc,
		Titles:   titleSvc,
		Logger:   logr,
	})
	authSvc := service.NewAuthService(service.AuthConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics, db)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.EnableDocs && cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.Register(r.Group(cfg.APIPrefix), handler.Handlers{
		Seasons:     handler.NewSeasonHandler(seasonSvc),
		Progress:    handler.NewProgressHandler(progressionSvc),
		Scores:      handler.NewScoreHandler(scoringSvc),
		Leaderboard: handler.NewLeaderboardHandler(leaderboardSvc),
		Titles:      handler.NewTitleHandler(titleSvc),
		Students:    handler.NewStudentHandler(dashboardSvc, ledgerSvc, legacySvc),
		Streaks:     handler.NewStreakHandler(streakSvc),
		Audit:       auditRepo,
	}, authSvc)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutdown signal received, draining connections", zap.Duration("timeout", shutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logr.Info("server stopped")
	return nil
}
