package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ms-lokesh/cohort-summit-api/internal/models"
)

const seasonColumns = `id, ordinal, name, start_date, end_date, is_active, created_at, updated_at`

// SeasonRepository handles persistence of seasons.
type SeasonRepository struct {
	db *sqlx.DB
}

// NewSeasonRepository constructs the repository.
func NewSeasonRepository(db *sqlx.DB) *SeasonRepository {
	return &SeasonRepository{db: db}
}

func (r *SeasonRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns seasons ordered by ordinal descending.
func (r *SeasonRepository) List(ctx context.Context, filter models.SeasonFilter) ([]models.Season, int, error) {
	var conditions []string
	var args []interface{}
	if filter.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)+1))
		args = append(args, *filter.IsActive)
	}
	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.PageRequest.Normalize()
	query := fmt.Sprintf(`SELECT %s FROM seasons%s ORDER BY ordinal DESC LIMIT %d OFFSET %d`,
		seasonColumns, clause, page.PageSize, page.Offset())

	var seasons []models.Season
	if err := r.db.SelectContext(ctx, &seasons, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list seasons: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM seasons"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count seasons: %w", err)
	}
	return seasons, total, nil
}

// FindByID returns a season by id.
func (r *SeasonRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Season, error) {
	query := `SELECT ` + seasonColumns + ` FROM seasons WHERE id = $1`
	var season models.Season
	if err := sqlx.GetContext(ctx, r.exec(exec), &season, query, id); err != nil {
		return nil, err
	}
	return &season, nil
}

// FindActive returns the single active season.
func (r *SeasonRepository) FindActive(ctx context.Context, exec sqlx.ExtContext) (*models.Season, error) {
	query := `SELECT ` + seasonColumns + ` FROM seasons WHERE is_active = TRUE ORDER BY ordinal DESC LIMIT 1`
	var season models.Season
	if err := sqlx.GetContext(ctx, r.exec(exec), &season, query); err != nil {
		return nil, err
	}
	return &season, nil
}

// LockActive locks every active season row except excludeID so concurrent activations serialize.
func (r *SeasonRepository) LockActive(ctx context.Context, exec sqlx.ExtContext, excludeID string) ([]string, error) {
	const query = `SELECT id FROM seasons WHERE is_active = TRUE AND id <> $1 FOR UPDATE`
	var ids []string
	if err := sqlx.SelectContext(ctx, r.exec(exec), &ids, query, excludeID); err != nil {
		return nil, fmt.Errorf("lock active seasons: %w", err)
	}
	return ids, nil
}

// ExistsByOrdinal reports whether a season already uses ordinal.
func (r *SeasonRepository) ExistsByOrdinal(ctx context.Context, exec sqlx.ExtContext, ordinal int) (bool, error) {
	const query = `SELECT 1 FROM seasons WHERE ordinal = $1 LIMIT 1`
	var exists int
	if err := sqlx.GetContext(ctx, r.exec(exec), &exists, query, ordinal); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check season ordinal: %w", err)
	}
	return true, nil
}

// Create inserts a season.
func (r *SeasonRepository) Create(ctx context.Context, exec sqlx.ExtContext, season *models.Season) error {
	if season.ID == "" {
		season.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if season.CreatedAt.IsZero() {
		season.CreatedAt = now
	}
	season.UpdatedAt = now

	const query = `INSERT INTO seasons (id, ordinal, name, start_date, end_date, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.exec(exec).ExecContext(ctx, query, season.ID, season.Ordinal, season.Name, season.StartDate,
		season.EndDate, season.IsActive, season.CreatedAt, season.UpdatedAt); err != nil {
		return fmt.Errorf("insert season: %w", err)
	}
	return nil
}

// Update persists date and active flag edits.
func (r *SeasonRepository) Update(ctx context.Context, exec sqlx.ExtContext, season *models.Season) error {
	season.UpdatedAt = time.Now().UTC()
	const query = `UPDATE seasons SET start_date = $1, end_date = $2, is_active = $3, updated_at = $4 WHERE id = $5`
	result, err := r.exec(exec).ExecContext(ctx, query, season.StartDate, season.EndDate, season.IsActive, season.UpdatedAt, season.ID)
	if err != nil {
		return fmt.Errorf("update season: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("season rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetActive flips the active flag of a season.
func (r *SeasonRepository) SetActive(ctx context.Context, exec sqlx.ExtContext, id string, active bool) error {
	const query = `UPDATE seasons SET is_active = $1, updated_at = $2 WHERE id = $3`
	result, err := r.exec(exec).ExecContext(ctx, query, active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set season active: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("season rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
