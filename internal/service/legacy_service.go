package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ms-lokesh/cohort-summit-api/internal/models"
	appErrors "github.com/ms-lokesh/cohort-summit-api/pkg/errors"
)

type legacyRepository interface {
	Ensure(ctx context.Context, exec sqlx.ExtContext, studentID string) error
	LockForUpdate(ctx context.Context, exec sqlx.ExtContext, studentID string) (*models.LegacyScore, error)
	FindByStudent(ctx context.Context, studentID string) (*models.LegacyScore, error)
	Update(ctx context.Context, exec sqlx.ExtContext, legacy *models.LegacyScore) error
}

// LegacyService accumulates finalized season totals into the lifetime score.
type LegacyService struct {
	repo   legacyRepository
	logger *zap.Logger
}

// NewLegacyService constructs the accumulator.
func NewLegacyService(repo legacyRepository, logger *zap.Logger) *LegacyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LegacyService{repo: repo, logger: logger}
}

// Ensure opens the student's legacy record.
func (s *LegacyService) Ensure(ctx context.Context, studentID string) (*models.LegacyScore, error) {
	if err := s.repo.Ensure(ctx, nil, studentID); err != nil {
		return nil, appErrors.Internal(err, "failed to open legacy score")
	}
	return s.Get(ctx, studentID)
}

// Apply folds a season total into the legacy record under a row lock and returns
// the ascension bonus. Callers guarantee it runs once per (student, season).
func (s *LegacyService) Apply(ctx context.Context, exec sqlx.ExtContext, studentID string, seasonTotal int) (*models.LegacyScore, int, error) {
	if err := s.repo.Ensure(ctx, exec, studentID); err != nil {
		return nil, 0, appErrors.Internal(err, "failed to open legacy score")
	}
	legacy, err := s.repo.LockForUpdate(ctx, exec, studentID)
	if err != nil {
		return nil, 0, appErrors.Internal(err, "failed to lock legacy score")
	}
	bonus := legacy.ApplySeasonResult(seasonTotal)
	if err := s.repo.Update(ctx, exec, legacy); err != nil {
		return nil, 0, appErrors.Internal(err, "failed to update legacy score")
	}
	s.logger.Debug("legacy score applied",
		zap.String("student_id", studentID),
		zap.Int("season_total", seasonTotal),
		zap.Int("bonus", bonus),
		zap.Int("total_points", legacy.TotalPoints))
	return legacy, bonus, nil
}

// Get returns the student's legacy record, zero-valued when none exists yet.
func (s *LegacyService) Get(ctx context.Context, studentID string) (*models.LegacyScore, error) {
	legacy, err := s.repo.FindByStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.LegacyScore{StudentID: studentID}, nil
		}
		return nil, appErrors.Internal(err, "failed to load legacy score")
	}
	return legacy, nil
}
