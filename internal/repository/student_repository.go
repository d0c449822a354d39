package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ms-lokesh/cohort-summit-api/internal/models"
)

const studentColumns = `id, full_name, email, coding_handle, active, created_at`

// StudentRepository reads cohort student profiles owned by the accounts service.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

func (r *StudentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByID returns a student by id.
func (r *StudentRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`
	var student models.Student
	if err := sqlx.GetContext(ctx, r.exec(exec), &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// ListActive returns every active student ordered by id.
func (r *StudentRepository) ListActive(ctx context.Context, exec sqlx.ExtContext) ([]models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE active = TRUE ORDER BY id ASC`
	var students []models.Student
	if err := sqlx.SelectContext(ctx, r.exec(exec), &students, query); err != nil {
		return nil, fmt.Errorf("list active students: %w", err)
	}
	return students, nil
}
