package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ms-lokesh/cohort-summit-api/internal/models"
)

// OutcomeRepository stores externally verified season outcome scores.
type OutcomeRepository struct {
	db *sqlx.DB
}

// NewOutcomeRepository constructs the repository.
func NewOutcomeRepository(db *sqlx.DB) *OutcomeRepository {
	return &OutcomeRepository{db: db}
}

func (r *OutcomeRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Upsert records or replaces the outcome for (student, season).
func (r *OutcomeRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, outcome *models.SeasonOutcome) error {
	const query = `INSERT INTO season_outcomes (student_id, season_id, score, note, recorded_by, recorded_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (student_id, season_id) DO UPDATE
SET score = EXCLUDED.score, note = EXCLUDED.note, recorded_by = EXCLUDED.recorded_by, recorded_at = EXCLUDED.recorded_at`
	if _, err := r.exec(exec).ExecContext(ctx, query, outcome.StudentID, outcome.SeasonID, outcome.Score,
		outcome.Note, outcome.RecordedBy, outcome.RecordedAt); err != nil {
		return fmt.Errorf("upsert season outcome: %w", err)
	}
	return nil
}

// Find returns the recorded outcome for (student, season).
func (r *OutcomeRepository) Find(ctx context.Context, exec sqlx.ExtContext, studentID, seasonID string) (*models.SeasonOutcome, error) {
	const query = `SELECT student_id, season_id, score, note, recorded_by, recorded_at
FROM season_outcomes WHERE student_id = $1 AND season_id = $2`
	var outcome models.SeasonOutcome
	if err := sqlx.GetContext(ctx, r.exec(exec), &outcome, query, studentID, seasonID); err != nil {
		return nil, err
	}
	return &outcome, nil
}
