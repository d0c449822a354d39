package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ms-lokesh/cohort-summit-api/internal/models"
)

// LeaderboardRepository persists podium entries and percentile brackets.
type LeaderboardRepository struct {
	db *sqlx.DB
}

// NewLeaderboardRepository constructs the repository.
func NewLeaderboardRepository(db *sqlx.DB) *LeaderboardRepository {
	return &LeaderboardRepository{db: db}
}

func (r *LeaderboardRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// LockSeason takes a transaction-scoped advisory lock keyed on the season so
// concurrent rebuilds of one season run one after another. exec must be a tx.
func (r *LeaderboardRepository) LockSeason(ctx context.Context, exec sqlx.ExtContext, seasonID string) error {
	if _, err := r.exec(exec).ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "leaderboard:"+seasonID); err != nil {
		return fmt.Errorf("lock leaderboard season: %w", err)
	}
	return nil
}

// DeleteBySeason removes every podium entry and bracket of a season.
func (r *LeaderboardRepository) DeleteBySeason(ctx context.Context, exec sqlx.ExtContext, seasonID string) error {
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, `DELETE FROM leaderboard_entries WHERE season_id = $1`, seasonID); err != nil {
		return fmt.Errorf("delete leaderboard entries: %w", err)
	}
	if _, err := target.ExecContext(ctx, `DELETE FROM percentile_brackets WHERE season_id = $1`, seasonID); err != nil {
		return fmt.Errorf("delete percentile brackets: %w", err)
	}
	return nil
}

// InsertEntries writes podium rows.
func (r *LeaderboardRepository) InsertEntries(ctx context.Context, exec sqlx.ExtContext, entries []models.LeaderboardEntry) error {
	target := r.exec(exec)
	const query = `INSERT INTO leaderboard_entries (id, season_id, rank, student_id, score, rank_title, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for i := range entries {
		e := &entries[i]
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if _, err := target.ExecContext(ctx, query, e.ID, e.SeasonID, e.Rank, e.StudentID, e.Score, e.RankTitle, e.CreatedAt); err != nil {
			return fmt.Errorf("insert leaderboard entry: %w", err)
		}
	}
	return nil
}

// InsertBrackets writes percentile rows.
func (r *LeaderboardRepository) InsertBrackets(ctx context.Context, exec sqlx.ExtContext, brackets []models.PercentileBracket) error {
	target := r.exec(exec)
	const query = `INSERT INTO percentile_brackets (id, season_id, student_id, position, bucket, score, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for i := range brackets {
		b := &brackets[i]
		if b.ID == "" {
			b.ID = uuid.NewString()
		}
		if _, err := target.ExecContext(ctx, query, b.ID, b.SeasonID, b.StudentID, b.Position, b.Bucket, b.Score, b.CreatedAt); err != nil {
			return fmt.Errorf("insert percentile bracket: %w", err)
		}
	}
	return nil
}

// ListPodium returns a season's podium ordered by rank.
func (r *LeaderboardRepository) ListPodium(ctx context.Context, seasonID string) ([]models.LeaderboardEntry, error) {
	const query = `SELECT id, season_id, rank, student_id, score, rank_title, created_at
FROM leaderboard_entries WHERE season_id = $1 ORDER BY rank ASC`
	var entries []models.LeaderboardEntry
	if err := r.db.SelectContext(ctx, &entries, query, seasonID); err != nil {
		return nil, fmt.Errorf("list podium: %w", err)
	}
	return entries, nil
}

// FindEntry returns the student's podium entry for a season.
func (r *LeaderboardRepository) FindEntry(ctx context.Context, seasonID, studentID string) (*models.LeaderboardEntry, error) {
	const query = `SELECT id, season_id, rank, student_id, score, rank_title, created_at
FROM leaderboard_entries WHERE season_id = $1 AND student_id = $2`
	var entry models.LeaderboardEntry
	if err := r.db.GetContext(ctx, &entry, query, seasonID, studentID); err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindBracket returns the student's percentile bracket for a season.
func (r *LeaderboardRepository) FindBracket(ctx context.Context, seasonID, studentID string) (*models.PercentileBracket, error) {
	const query = `SELECT id, season_id, student_id, position, bucket, score, created_at
FROM percentile_brackets WHERE season_id = $1 AND student_id = $2`
	var bracket models.PercentileBracket
	if err := r.db.GetContext(ctx, &bracket, query, seasonID, studentID); err != nil {
		return nil, err
	}
	return &bracket, nil
}

// Standings returns the full season ranking, podium first, with student names.
func (r *LeaderboardRepository) Standings(ctx context.Context, seasonID string) ([]models.Standing, error) {
	const query = `SELECT position, student_id, student_name, score, label FROM (
    SELECT le.rank AS position, le.student_id, COALESCE(s.full_name, '') AS student_name, le.score, le.rank_title AS label
    FROM leaderboard_entries le LEFT JOIN students s ON s.id = le.student_id
    WHERE le.season_id = $1
    UNION ALL
    SELECT pb.position, pb.student_id, COALESCE(s.full_name, '') AS student_name, pb.score, pb.bucket AS label
    FROM percentile_brackets pb LEFT JOIN students s ON s.id = pb.student_id
    WHERE pb.season_id = $1
) standings ORDER BY position ASC`
	var rows []models.Standing
	if err := r.db.SelectContext(ctx, &rows, query, seasonID); err != nil {
		return nil, fmt.Errorf("list standings: %w", err)
	}
	return rows, nil
}
