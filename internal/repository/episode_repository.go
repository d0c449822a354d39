package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ms-lokesh/cohort-summit-api/internal/models"
)

const episodeColumns = `id, season_id, ordinal, start_date, end_date, created_at`

// EpisodeRepository handles persistence of season episodes.
type EpisodeRepository struct {
	db *sqlx.DB
}

// NewEpisodeRepository constructs the repository.
func NewEpisodeRepository(db *sqlx.DB) *EpisodeRepository {
	return &EpisodeRepository{db: db}
}

func (r *EpisodeRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// CreateBatch inserts the episodes of a season.
func (r *EpisodeRepository) CreateBatch(ctx context.Context, exec sqlx.ExtContext, episodes []models.Episode) error {
	if len(episodes) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()

	const query = `INSERT INTO episodes (id, season_id, ordinal, start_date, end_date, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	for i := range episodes {
		ep := &episodes[i]
		if ep.ID == "" {
			ep.ID = uuid.NewString()
		}
		if ep.CreatedAt.IsZero() {
			ep.CreatedAt = now
		}
		if _, err := target.ExecContext(ctx, query, ep.ID, ep.SeasonID, ep.Ordinal, ep.StartDate, ep.EndDate, ep.CreatedAt); err != nil {
			return fmt.Errorf("insert episode %d: %w", ep.Ordinal, err)
		}
	}
	return nil
}

// UpdateWindows rewrites the start and end dates of existing episodes.
func (r *EpisodeRepository) UpdateWindows(ctx context.Context, exec sqlx.ExtContext, episodes []models.Episode) error {
	target := r.exec(exec)
	const query = `UPDATE episodes SET start_date = $2, end_date = $3 WHERE id = $1`
	for _, ep := range episodes {
		if _, err := target.ExecContext(ctx, query, ep.ID, ep.StartDate, ep.EndDate); err != nil {
			return fmt.Errorf("update episode %d window: %w", ep.Ordinal, err)
		}
	}
	return nil
}

// FindByID returns an episode by id.
func (r *EpisodeRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Episode, error) {
	query := `SELECT ` + episodeColumns + ` FROM episodes WHERE id = $1`
	var episode models.Episode
	if err := sqlx.GetContext(ctx, r.exec(exec), &episode, query, id); err != nil {
		return nil, err
	}
	return &episode, nil
}

// FindBySeasonOrdinal returns the episode with ordinal inside a season.
func (r *EpisodeRepository) FindBySeasonOrdinal(ctx context.Context, exec sqlx.ExtContext, seasonID string, ordinal int) (*models.Episode, error) {
	query := `SELECT ` + episodeColumns + ` FROM episodes WHERE season_id = $1 AND ordinal = $2`
	var episode models.Episode
	if err := sqlx.GetContext(ctx, r.exec(exec), &episode, query, seasonID, ordinal); err != nil {
		return nil, err
	}
	return &episode, nil
}

// ListBySeason returns a season's episodes ordered by ordinal.
func (r *EpisodeRepository) ListBySeason(ctx context.Context, exec sqlx.ExtContext, seasonID string) ([]models.Episode, error) {
	query := `SELECT ` + episodeColumns + ` FROM episodes WHERE season_id = $1 ORDER BY ordinal ASC`
	var episodes []models.Episode
	if err := sqlx.SelectContext(ctx, r.exec(exec), &episodes, query, seasonID); err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	return episodes, nil
}
