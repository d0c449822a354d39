package worker

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/ms-lokesh/cohort-summit-api/internal/dto"
	"github.com/ms-lokesh/cohort-summit-api/internal/models"
	appErrors "github.com/ms-lokesh/cohort-summit-api/pkg/errors"
)

type activeSeasonFinder interface {
	GetActive(ctx context.Context) (*models.Season, error)
}

type seasonSyncer interface {
	SyncAll(ctx context.Context, seasonID string) (*dto.StreakSyncSummary, error)
}

// StreakScheduler periodically mirrors provider activity for the active season.
type StreakScheduler struct {
	seasons    activeSeasonFinder
	streaks    seasonSyncer
	interval   time.Duration
	runTimeout time.Duration
	logger     *zap.Logger

	scheduler gocron.Scheduler
}

// NewStreakScheduler constructs the scheduler. interval defaults to a day.
func NewStreakScheduler(seasons activeSeasonFinder, streaks seasonSyncer, interval time.Duration, logger *zap.Logger) *StreakScheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreakScheduler{
		seasons:    seasons,
		streaks:    streaks,
		interval:   interval,
		runTimeout: interval,
		logger:     logger,
	}
}

// RunOnce syncs the active season. A missing active season is not an error.
func (s *StreakScheduler) RunOnce(ctx context.Context) (*dto.StreakSyncSummary, error) {
	season, err := s.seasons.GetActive(ctx)
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			s.logger.Info("no active season, skipping streak sync")
			return nil, nil
		}
		return nil, err
	}

	summary, err := s.streaks.SyncAll(ctx, season.ID)
	if err != nil {
		return nil, err
	}
	for _, warning := range summary.Warnings {
		s.logger.Warn("streak sync warning", zap.String("season_id", season.ID), zap.String("warning", warning))
	}
	return summary, nil
}

// Start schedules RunOnce every interval, beginning immediately. Overlapping
// runs are rescheduled rather than stacked.
func (s *StreakScheduler) Start(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
			defer cancel()
			if _, err := s.RunOnce(runCtx); err != nil {
				s.logger.Error("scheduled streak sync failed", zap.Error(err))
			}
		}),
		gocron.WithName("streak-sync"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return err
	}

	s.scheduler = scheduler
	scheduler.Start()
	s.logger.Info("streak scheduler started", zap.Duration("interval", s.interval))
	return nil
}

// Stop waits for a running sync to finish and halts the scheduler.
func (s *StreakScheduler) Stop() error {
	if s.scheduler == nil {
		return nil
	}
	err := s.scheduler.Shutdown()
	s.scheduler = nil
	return err
}
