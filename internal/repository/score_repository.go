package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ms-lokesh/cohort-summit-api/internal/models"
)

const scoreColumns = `id, student_id, season_id, learning_score, networking_score, coding_score, career_score,
outcome_score, total_score, season_completed, completed_at, created_at, updated_at`

// ScoreRepository persists season scores.
type ScoreRepository struct {
	db *sqlx.DB
}

// NewScoreRepository constructs the repository.
func NewScoreRepository(db *sqlx.DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

func (r *ScoreRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Ensure creates an empty score row for (student, season) unless one exists.
func (r *ScoreRepository) Ensure(ctx context.Context, exec sqlx.ExtContext, studentID, seasonID string) error {
	now := time.Now().UTC()
	const query = `INSERT INTO season_scores (id, student_id, season_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $4)
ON CONFLICT (student_id, season_id) DO NOTHING`
	if _, err := r.exec(exec).ExecContext(ctx, query, uuid.NewString(), studentID, seasonID, now); err != nil {
		return fmt.Errorf("ensure season score: %w", err)
	}
	return nil
}

// LockForUpdate loads the (student, season) score holding a row lock.
func (r *ScoreRepository) LockForUpdate(ctx context.Context, exec sqlx.ExtContext, studentID, seasonID string) (*models.SeasonScore, error) {
	query := `SELECT ` + scoreColumns + ` FROM season_scores WHERE student_id = $1 AND season_id = $2 FOR UPDATE`
	var score models.SeasonScore
	if err := sqlx.GetContext(ctx, r.exec(exec), &score, query, studentID, seasonID); err != nil {
		return nil, err
	}
	return &score, nil
}

// FindByStudentSeason loads the (student, season) score.
func (r *ScoreRepository) FindByStudentSeason(ctx context.Context, studentID, seasonID string) (*models.SeasonScore, error) {
	query := `SELECT ` + scoreColumns + ` FROM season_scores WHERE student_id = $1 AND season_id = $2`
	var score models.SeasonScore
	if err := r.db.GetContext(ctx, &score, query, studentID, seasonID); err != nil {
		return nil, err
	}
	return &score, nil
}

// Update writes sub-scores, total and completion state.
func (r *ScoreRepository) Update(ctx context.Context, exec sqlx.ExtContext, score *models.SeasonScore) error {
	score.UpdatedAt = time.Now().UTC()
	const query = `UPDATE season_scores SET learning_score = $1, networking_score = $2, coding_score = $3,
career_score = $4, outcome_score = $5, total_score = $6, season_completed = $7, completed_at = $8, updated_at = $9
WHERE id = $10`
	if _, err := r.exec(exec).ExecContext(ctx, query, score.LearningScore, score.NetworkingScore, score.CodingScore,
		score.CareerScore, score.OutcomeScore, score.TotalScore, score.SeasonCompleted, score.CompletedAt,
		score.UpdatedAt, score.ID); err != nil {
		return fmt.Errorf("update season score: %w", err)
	}
	return nil
}

// ListCompletedBySeason returns every finalized score of a season in ranking order.
func (r *ScoreRepository) ListCompletedBySeason(ctx context.Context, exec sqlx.ExtContext, seasonID string) ([]models.SeasonScore, error) {
	query := `SELECT ` + scoreColumns + ` FROM season_scores
WHERE season_id = $1 AND season_completed = TRUE
ORDER BY total_score DESC, student_id ASC`
	var scores []models.SeasonScore
	if err := sqlx.SelectContext(ctx, r.exec(exec), &scores, query, seasonID); err != nil {
		return nil, fmt.Errorf("list completed season scores: %w", err)
	}
	return scores, nil
}
