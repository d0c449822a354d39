package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ms-lokesh/cohort-summit-api/internal/models"
)

const streakColumns = `id, student_id, season_id, current_streak, longest_streak, season_streak_days,
last_synced_at, created_at, updated_at`

// StreakRepository persists synced coding-practice streaks.
type StreakRepository struct {
	db *sqlx.DB
}

// NewStreakRepository constructs the repository.
func NewStreakRepository(db *sqlx.DB) *StreakRepository {
	return &StreakRepository{db: db}
}

func (r *StreakRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Find returns the (student, season) streak record.
func (r *StreakRepository) Find(ctx context.Context, exec sqlx.ExtContext, studentID, seasonID string) (*models.StreakRecord, error) {
	query := `SELECT ` + streakColumns + ` FROM streak_records WHERE student_id = $1 AND season_id = $2`
	var record models.StreakRecord
	if err := sqlx.GetContext(ctx, r.exec(exec), &record, query, studentID, seasonID); err != nil {
		return nil, err
	}
	return &record, nil
}

// LockForUpdate ensures and locks the (student, season) streak record.
func (r *StreakRepository) LockForUpdate(ctx context.Context, exec sqlx.ExtContext, studentID, seasonID string) (*models.StreakRecord, error) {
	target := r.exec(exec)
	now := time.Now().UTC()
	const ensure = `INSERT INTO streak_records (id, student_id, season_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $4)
ON CONFLICT (student_id, season_id) DO NOTHING`
	if _, err := target.ExecContext(ctx, ensure, uuid.NewString(), studentID, seasonID, now); err != nil {
		return nil, fmt.Errorf("ensure streak record: %w", err)
	}
	query := `SELECT ` + streakColumns + ` FROM streak_records WHERE student_id = $1 AND season_id = $2 FOR UPDATE`
	var record models.StreakRecord
	if err := sqlx.GetContext(ctx, target, &record, query, studentID, seasonID); err != nil {
		return nil, fmt.Errorf("lock streak record: %w", err)
	}
	return &record, nil
}

// Update writes the synced counters.
func (r *StreakRepository) Update(ctx context.Context, exec sqlx.ExtContext, record *models.StreakRecord) error {
	record.UpdatedAt = time.Now().UTC()
	const query = `UPDATE streak_records SET current_streak = $1, longest_streak = $2, season_streak_days = $3,
last_synced_at = $4, updated_at = $5 WHERE id = $6`
	if _, err := r.exec(exec).ExecContext(ctx, query, record.CurrentStreak, record.LongestStreak, record.SeasonStreakDays,
		record.LastSyncedAt, record.UpdatedAt, record.ID); err != nil {
		return fmt.Errorf("update streak record: %w", err)
	}
	return nil
}
