package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ms-lokesh/cohort-summit-api/internal/dto"
	"github.com/ms-lokesh/cohort-summit-api/internal/models"
	appErrors "github.com/ms-lokesh/cohort-summit-api/pkg/errors"
	"github.com/ms-lokesh/cohort-summit-api/pkg/jobs"
)

const streakSyncJobType = "streak_sync"

type streakRepository interface {
	Find(ctx context.Context, exec sqlx.ExtContext, studentID, seasonID string) (*models.StreakRecord, error)
	LockForUpdate(ctx context.Context, exec sqlx.ExtContext, studentID, seasonID string) (*models.StreakRecord, error)
	Update(ctx context.Context, exec sqlx.ExtContext, record *models.StreakRecord) error
}

type activityFetcher interface {
	FetchActivity(ctx context.Context, handle string) (*models.ProviderActivity, error)
}

// StreakSyncConfig sizes the season-wide fan-out.
type StreakSyncConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// StreakService mirrors provider activity into per-season streak records.
// Provider failures are reported as warnings and never change stored state.
type StreakService struct {
	seasons  seasonLookup
	students studentDirectory
	streaks  streakRepository
	provider activityFetcher
	tx       txProvider
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      StreakSyncConfig
	now      func() time.Time
}

// NewStreakService constructs the streak sync service.
func NewStreakService(
	seasons seasonLookup,
	students studentDirectory,
	streaks streakRepository,
	provider activityFetcher,
	tx txProvider,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg StreakSyncConfig,
) *StreakService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	return &StreakService{
		seasons:  seasons,
		students: students,
		streaks:  streaks,
		provider: provider,
		tx:       tx,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// SyncStudent pulls the student's provider activity into the season's streak record.
func (s *StreakService) SyncStudent(ctx context.Context, seasonID, studentID string) (*dto.StreakSyncResult, error) {
	if _, err := s.loadSeason(ctx, seasonID); err != nil {
		return nil, err
	}
	student, err := s.students.FindByID(ctx, nil, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to load student")
	}
	return s.sync(ctx, seasonID, student)
}

// SyncAll fans a sync out to every active student through a worker queue.
func (s *StreakService) SyncAll(ctx context.Context, seasonID string) (*dto.StreakSyncSummary, error) {
	if _, err := s.loadSeason(ctx, seasonID); err != nil {
		return nil, err
	}
	students, err := s.students.ListActive(ctx, nil)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list students")
	}

	summary := &dto.StreakSyncSummary{SeasonID: seasonID}
	var mu sync.Mutex

	queue := jobs.NewQueue(streakSyncJobType, func(ctx context.Context, job jobs.Job) error {
		student, ok := job.Payload.(models.Student)
		if !ok {
			return fmt.Errorf("unexpected payload %T", job.Payload)
		}
		result, err := s.sync(ctx, seasonID, &student)
		if err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		if result.Synced {
			summary.Synced++
		} else {
			summary.Failed++
		}
		for _, warning := range result.Warnings {
			summary.Warnings = append(summary.Warnings, student.ID+": "+warning)
		}
		return nil
	}, jobs.QueueConfig{
		Workers:    s.cfg.Workers,
		BufferSize: len(students) + 1,
		MaxRetries: s.cfg.MaxRetries,
		RetryDelay: s.cfg.RetryDelay,
		Logger:     s.logger,
		DeadLetter: func(job jobs.Job, err error) {
			mu.Lock()
			defer mu.Unlock()
			summary.Failed++
			summary.Warnings = append(summary.Warnings, job.ID+": "+err.Error())
		},
	})
	queue.Start(ctx)
	defer queue.Stop()

	for _, student := range students {
		if err := queue.Enqueue(jobs.Job{ID: student.ID, Type: streakSyncJobType, Payload: student}); err != nil {
			return nil, appErrors.Internal(err, "failed to queue streak sync")
		}
		summary.Queued++
	}
	if err := queue.Drain(ctx); err != nil {
		return nil, appErrors.Internal(err, "streak sync interrupted")
	}

	mu.Lock()
	defer mu.Unlock()
	s.logger.Info("streak sync finished",
		zap.String("season_id", seasonID),
		zap.Int("queued", summary.Queued),
		zap.Int("synced", summary.Synced),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

// GetStreak returns the stored record, or an empty one when the student never synced.
func (s *StreakService) GetStreak(ctx context.Context, seasonID, studentID string) (*models.StreakRecord, error) {
	record, err := s.streaks.Find(ctx, nil, studentID, seasonID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.StreakRecord{StudentID: studentID, SeasonID: seasonID}, nil
		}
		return nil, appErrors.Internal(err, "failed to load streak")
	}
	return record, nil
}

func (s *StreakService) sync(ctx context.Context, seasonID string, student *models.Student) (*dto.StreakSyncResult, error) {
	result := &dto.StreakSyncResult{StudentID: student.ID}
	if student.CodingHandle == nil || *student.CodingHandle == "" {
		result.Warnings = append(result.Warnings, "no coding handle on profile")
		return s.withLastRecord(ctx, seasonID, result)
	}

	activity, err := s.provider.FetchActivity(ctx, *student.CodingHandle)
	if err != nil {
		s.metrics.RecordStreakSync(false)
		s.logger.Warn("streak provider unavailable",
			zap.String("student_id", student.ID),
			zap.String("season_id", seasonID),
			zap.Error(err))
		providerErr := appErrors.Wrap(err, appErrors.ErrExternalDependency.Code, appErrors.ErrExternalDependency.Status, "streak provider unavailable")
		result.Warnings = append(result.Warnings, providerErr.Message)
		return s.withLastRecord(ctx, seasonID, result)
	}

	record, err := s.apply(ctx, seasonID, student.ID, *activity)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordStreakSync(true)
	result.Synced = true
	result.Record = record
	return result, nil
}

func (s *StreakService) apply(ctx context.Context, seasonID, studentID string, activity models.ProviderActivity) (*models.StreakRecord, error) {
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	record, err := s.streaks.LockForUpdate(ctx, tx, studentID, seasonID)
	if err != nil {
		err = appErrors.Internal(err, "failed to lock streak record")
		return nil, err
	}
	record.ApplyActivity(activity, s.now().UTC())
	if err = s.streaks.Update(ctx, tx, record); err != nil {
		err = appErrors.Internal(err, "failed to update streak record")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Internal(err, "failed to commit streak record")
		return nil, err
	}
	return record, nil
}

func (s *StreakService) withLastRecord(ctx context.Context, seasonID string, result *dto.StreakSyncResult) (*dto.StreakSyncResult, error) {
	record, err := s.streaks.Find(ctx, nil, result.StudentID, seasonID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return result, nil
		}
		return nil, appErrors.Internal(err, "failed to load streak")
	}
	result.Record = record
	return result, nil
}

func (s *StreakService) loadSeason(ctx context.Context, seasonID string) (*models.Season, error) {
	season, err := s.seasons.FindByID(ctx, nil, seasonID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "season not found")
		}
		return nil, appErrors.Internal(err, "failed to load season")
	}
	return season, nil
}
