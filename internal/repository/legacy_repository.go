package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ms-lokesh/cohort-summit-api/internal/models"
)

const legacyColumns = `id, student_id, total_points, ascension_bonus_total, seasons_completed,
highest_season_score, last_season_score, created_at, updated_at`

// LegacyRepository persists lifetime legacy scores.
type LegacyRepository struct {
	db *sqlx.DB
}

// NewLegacyRepository constructs the repository.
func NewLegacyRepository(db *sqlx.DB) *LegacyRepository {
	return &LegacyRepository{db: db}
}

func (r *LegacyRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Ensure creates the student's legacy row unless it exists.
func (r *LegacyRepository) Ensure(ctx context.Context, exec sqlx.ExtContext, studentID string) error {
	now := time.Now().UTC()
	const query = `INSERT INTO legacy_scores (id, student_id, created_at, updated_at)
VALUES ($1, $2, $3, $3)
ON CONFLICT (student_id) DO NOTHING`
	if _, err := r.exec(exec).ExecContext(ctx, query, uuid.NewString(), studentID, now); err != nil {
		return fmt.Errorf("ensure legacy score: %w", err)
	}
	return nil
}

// LockForUpdate loads the student's legacy row holding a row lock.
func (r *LegacyRepository) LockForUpdate(ctx context.Context, exec sqlx.ExtContext, studentID string) (*models.LegacyScore, error) {
	query := `SELECT ` + legacyColumns + ` FROM legacy_scores WHERE student_id = $1 FOR UPDATE`
	var legacy models.LegacyScore
	if err := sqlx.GetContext(ctx, r.exec(exec), &legacy, query, studentID); err != nil {
		return nil, err
	}
	return &legacy, nil
}

// FindByStudent loads the student's legacy row.
func (r *LegacyRepository) FindByStudent(ctx context.Context, studentID string) (*models.LegacyScore, error) {
	query := `SELECT ` + legacyColumns + ` FROM legacy_scores WHERE student_id = $1`
	var legacy models.LegacyScore
	if err := r.db.GetContext(ctx, &legacy, query, studentID); err != nil {
		return nil, err
	}
	return &legacy, nil
}

// Update writes the accumulated totals. Totals only move forward.
func (r *LegacyRepository) Update(ctx context.Context, exec sqlx.ExtContext, legacy *models.LegacyScore) error {
	legacy.UpdatedAt = time.Now().UTC()
	const query = `UPDATE legacy_scores SET total_points = $1, ascension_bonus_total = $2, seasons_completed = $3,
highest_season_score = $4, last_season_score = $5, updated_at = $6
WHERE id = $7 AND total_points <= $1`
	result, err := r.exec(exec).ExecContext(ctx, query, legacy.TotalPoints, legacy.AscensionBonusTotal, legacy.SeasonsCompleted,
		legacy.HighestSeasonScore, legacy.LastSeasonScore, legacy.UpdatedAt, legacy.ID)
	if err != nil {
		return fmt.Errorf("update legacy score: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("legacy score rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update legacy score: total would decrease or row missing")
	}
	return nil
}
