package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ms-lokesh/cohort-summit-api/internal/models"
)

// TitleRepository persists the title catalog and student ownership.
type TitleRepository struct {
	db *sqlx.DB
}

// NewTitleRepository constructs the repository.
func NewTitleRepository(db *sqlx.DB) *TitleRepository {
	return &TitleRepository{db: db}
}

func (r *TitleRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns the catalog ordered by cost.
func (r *TitleRepository) List(ctx context.Context) ([]models.Title, error) {
	const query = `SELECT id, name, description, cost, rarity, created_at FROM titles ORDER BY cost ASC, name ASC`
	var titles []models.Title
	if err := r.db.SelectContext(ctx, &titles, query); err != nil {
		return nil, fmt.Errorf("list titles: %w", err)
	}
	return titles, nil
}

// FindByID returns a catalog item.
func (r *TitleRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Title, error) {
	const query = `SELECT id, name, description, cost, rarity, created_at FROM titles WHERE id = $1`
	var title models.Title
	if err := sqlx.GetContext(ctx, r.exec(exec), &title, query, id); err != nil {
		return nil, err
	}
	return &title, nil
}

// ExistsByName reports whether the catalog already has a title called name.
func (r *TitleRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, `SELECT 1 FROM titles WHERE LOWER(name) = LOWER($1) LIMIT 1`, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check title name: %w", err)
	}
	return true, nil
}

// Create inserts a catalog item.
func (r *TitleRepository) Create(ctx context.Context, title *models.Title) error {
	if title.ID == "" {
		title.ID = uuid.NewString()
	}
	if title.CreatedAt.IsZero() {
		title.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO titles (id, name, description, cost, rarity, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, query, title.ID, title.Name, title.Description, title.Cost, title.Rarity, title.CreatedAt); err != nil {
		return fmt.Errorf("insert title: %w", err)
	}
	return nil
}

// FindOwnership returns the student's ownership row for a title.
func (r *TitleRepository) FindOwnership(ctx context.Context, exec sqlx.ExtContext, studentID, titleID string) (*models.StudentTitle, error) {
	const query = `SELECT id, student_id, title_id, is_equipped, redeemed_at FROM student_titles
WHERE student_id = $1 AND title_id = $2`
	var owned models.StudentTitle
	if err := sqlx.GetContext(ctx, r.exec(exec), &owned, query, studentID, titleID); err != nil {
		return nil, err
	}
	return &owned, nil
}

// CreateOwnership records a redemption.
func (r *TitleRepository) CreateOwnership(ctx context.Context, exec sqlx.ExtContext, owned *models.StudentTitle) error {
	if owned.ID == "" {
		owned.ID = uuid.NewString()
	}
	if owned.RedeemedAt.IsZero() {
		owned.RedeemedAt = time.Now().UTC()
	}
	const query = `INSERT INTO student_titles (id, student_id, title_id, is_equipped, redeemed_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.exec(exec).ExecContext(ctx, query, owned.ID, owned.StudentID, owned.TitleID, owned.IsEquipped, owned.RedeemedAt); err != nil {
		return fmt.Errorf("insert student title: %w", err)
	}
	return nil
}

// UnequipAll clears the equipped flag on every title the student owns.
func (r *TitleRepository) UnequipAll(ctx context.Context, exec sqlx.ExtContext, studentID string) error {
	const query = `UPDATE student_titles SET is_equipped = FALSE WHERE student_id = $1 AND is_equipped = TRUE`
	if _, err := r.exec(exec).ExecContext(ctx, query, studentID); err != nil {
		return fmt.Errorf("unequip titles: %w", err)
	}
	return nil
}

// Equip sets the equipped flag on one ownership row.
func (r *TitleRepository) Equip(ctx context.Context, exec sqlx.ExtContext, ownershipID string) error {
	const query = `UPDATE student_titles SET is_equipped = TRUE WHERE id = $1`
	result, err := r.exec(exec).ExecContext(ctx, query, ownershipID)
	if err != nil {
		return fmt.Errorf("equip title: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("student title rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListOwned returns the student's titles with catalog detail.
func (r *TitleRepository) ListOwned(ctx context.Context, studentID string) ([]models.OwnedTitle, error) {
	const query = `SELECT st.id, st.student_id, st.title_id, st.is_equipped, st.redeemed_at, t.name, t.rarity
FROM student_titles st JOIN titles t ON t.id = st.title_id
WHERE st.student_id = $1 ORDER BY st.redeemed_at DESC`
	var owned []models.OwnedTitle
	if err := r.db.SelectContext(ctx, &owned, query, studentID); err != nil {
		return nil, fmt.Errorf("list student titles: %w", err)
	}
	return owned, nil
}

// FindEquipped returns the student's equipped title.
func (r *TitleRepository) FindEquipped(ctx context.Context, studentID string) (*models.OwnedTitle, error) {
	const query = `SELECT st.id, st.student_id, st.title_id, st.is_equipped, st.redeemed_at, t.name, t.rarity
FROM student_titles st JOIN titles t ON t.id = st.title_id
WHERE st.student_id = $1 AND st.is_equipped = TRUE`
	var owned models.OwnedTitle
	if err := r.db.GetContext(ctx, &owned, query, studentID); err != nil {
		return nil, err
	}
	return &owned, nil
}
