package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ms-lokesh/cohort-summit-api/internal/models"
)

const progressColumns = `p.id, p.student_id, p.episode_id, p.status,
p.learning_certificate_done, p.coding_streak_done, p.career_resume_done, p.career_linkedin_done,
p.networking_connect_done, p.career_outreach_done, p.networking_event_done, p.coding_streak_week3_done,
p.career_application_done, p.social_impact_done, p.coding_streak_week4_done,
p.started_at, p.completed_at, p.created_at, p.updated_at`

// ProgressRepository persists per-student episode progress rows.
type ProgressRepository struct {
	db *sqlx.DB
}

// NewProgressRepository constructs the repository.
func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

func (r *ProgressRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Ensure creates the (student, episode) row with the given status unless it already exists.
// It reports whether a row was inserted.
func (r *ProgressRepository) Ensure(ctx context.Context, exec sqlx.ExtContext, studentID, episodeID string, status models.EpisodeStatus) (bool, error) {
	now := time.Now().UTC()
	const query = `INSERT INTO episode_progress (id, student_id, episode_id, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
ON CONFLICT (student_id, episode_id) DO NOTHING`
	result, err := r.exec(exec).ExecContext(ctx, query, uuid.NewString(), studentID, episodeID, status, now)
	if err != nil {
		return false, fmt.Errorf("ensure episode progress: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("episode progress rows affected: %w", err)
	}
	return affected > 0, nil
}

// LockForUpdate loads the (student, episode) row holding a row lock until the transaction ends.
func (r *ProgressRepository) LockForUpdate(ctx context.Context, exec sqlx.ExtContext, studentID, episodeID string) (*models.EpisodeProgress, error) {
	query := `SELECT ` + progressColumns + ` FROM episode_progress p WHERE p.student_id = $1 AND p.episode_id = $2 FOR UPDATE`
	var progress models.EpisodeProgress
	if err := sqlx.GetContext(ctx, r.exec(exec), &progress, query, studentID, episodeID); err != nil {
		return nil, err
	}
	return &progress, nil
}

// Update writes status, task flags and timestamps.
func (r *ProgressRepository) Update(ctx context.Context, exec sqlx.ExtContext, progress *models.EpisodeProgress) error {
	progress.UpdatedAt = time.Now().UTC()
	const query = `UPDATE episode_progress SET status = $1,
learning_certificate_done = $2, coding_streak_done = $3, career_resume_done = $4, career_linkedin_done = $5,
networking_connect_done = $6, career_outreach_done = $7, networking_event_done = $8, coding_streak_week3_done = $9,
career_application_done = $10, social_impact_done = $11, coding_streak_week4_done = $12,
started_at = $13, completed_at = $14, updated_at = $15
WHERE id = $16`
	if _, err := r.exec(exec).ExecContext(ctx, query, progress.Status,
		progress.LearningCertificateDone, progress.CodingStreakDone, progress.CareerResumeDone, progress.CareerLinkedInDone,
		progress.NetworkingConnectDone, progress.CareerOutreachDone, progress.NetworkingEventDone, progress.CodingStreakWeek3Done,
		progress.CareerApplicationDone, progress.SocialImpactDone, progress.CodingStreakWeek4Done,
		progress.StartedAt, progress.CompletedAt, progress.UpdatedAt, progress.ID); err != nil {
		return fmt.Errorf("update episode progress: %w", err)
	}
	return nil
}

// Unlock raises a locked row to unlocked. Rows already past locked are left untouched.
func (r *ProgressRepository) Unlock(ctx context.Context, exec sqlx.ExtContext, studentID, episodeID string) (bool, error) {
	const query = `UPDATE episode_progress SET status = $1, updated_at = $2
WHERE student_id = $3 AND episode_id = $4 AND status = $5`
	result, err := r.exec(exec).ExecContext(ctx, query, models.EpisodeStatusUnlocked, time.Now().UTC(), studentID, episodeID, models.EpisodeStatusLocked)
	if err != nil {
		return false, fmt.Errorf("unlock episode progress: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("episode progress rows affected: %w", err)
	}
	return affected > 0, nil
}

// ListBySeasonStudent returns a student's progress rows for a season joined with their episodes.
func (r *ProgressRepository) ListBySeasonStudent(ctx context.Context, exec sqlx.ExtContext, seasonID, studentID string) ([]models.EpisodeProgressDetail, error) {
	query := `SELECT ` + progressColumns + `, e.season_id, e.ordinal AS episode_ordinal
FROM episode_progress p
JOIN episodes e ON e.id = p.episode_id
WHERE e.season_id = $1 AND p.student_id = $2
ORDER BY e.ordinal ASC`
	var rows []models.EpisodeProgressDetail
	if err := sqlx.SelectContext(ctx, r.exec(exec), &rows, query, seasonID, studentID); err != nil {
		return nil, fmt.Errorf("list season progress: %w", err)
	}
	return rows, nil
}

// CountCompleted counts a student's completed episodes in a season.
func (r *ProgressRepository) CountCompleted(ctx context.Context, exec sqlx.ExtContext, seasonID, studentID string) (int, error) {
	const query = `SELECT COUNT(*) FROM episode_progress p
JOIN episodes e ON e.id = p.episode_id
WHERE e.season_id = $1 AND p.student_id = $2 AND p.status = $3`
	var count int
	if err := sqlx.GetContext(ctx, r.exec(exec), &count, query, seasonID, studentID, models.EpisodeStatusCompleted); err != nil {
		return 0, fmt.Errorf("count completed episodes: %w", err)
	}
	return count, nil
}

// Enrolled reports whether the student has any progress row in the season.
func (r *ProgressRepository) Enrolled(ctx context.Context, exec sqlx.ExtContext, seasonID, studentID string) (bool, error) {
	const query = `SELECT COUNT(*) FROM episode_progress p
JOIN episodes e ON e.id = p.episode_id
WHERE e.season_id = $1 AND p.student_id = $2`
	var count int
	if err := sqlx.GetContext(ctx, r.exec(exec), &count, query, seasonID, studentID); err != nil {
		return false, fmt.Errorf("check season enrollment: %w", err)
	}
	return count > 0, nil
}
