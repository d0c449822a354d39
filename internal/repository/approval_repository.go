package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ms-lokesh/cohort-summit-api/internal/models"
)

// ApprovalRepository reads approved pillar submissions owned by the submissions service.
// The engine never writes to pillar_submissions.
type ApprovalRepository struct {
	db *sqlx.DB
}

// NewApprovalRepository constructs the repository.
func NewApprovalRepository(db *sqlx.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

func (r *ApprovalRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// CountApproved counts approved submissions of a pillar inside the window.
func (r *ApprovalRepository) CountApproved(ctx context.Context, exec sqlx.ExtContext, studentID string, pillar models.Pillar, window models.DateWindow) (int, error) {
	const query = `SELECT COUNT(*) FROM pillar_submissions
WHERE student_id = $1 AND pillar = $2 AND status = $3 AND approved_at >= $4 AND approved_at < $5`
	var count int
	if err := sqlx.GetContext(ctx, r.exec(exec), &count, query, studentID, pillar, models.SubmissionStatusApproved, window.Start, window.End); err != nil {
		return 0, fmt.Errorf("count approved %s submissions: %w", pillar, err)
	}
	return count, nil
}

// CountDistinctApprovedTypes counts distinct approved task types of a pillar inside the window.
func (r *ApprovalRepository) CountDistinctApprovedTypes(ctx context.Context, exec sqlx.ExtContext, studentID string, pillar models.Pillar, window models.DateWindow) (int, error) {
	const query = `SELECT COUNT(DISTINCT task_type) FROM pillar_submissions
WHERE student_id = $1 AND pillar = $2 AND status = $3 AND approved_at >= $4 AND approved_at < $5`
	var count int
	if err := sqlx.GetContext(ctx, r.exec(exec), &count, query, studentID, pillar, models.SubmissionStatusApproved, window.Start, window.End); err != nil {
		return 0, fmt.Errorf("count distinct %s task types: %w", pillar, err)
	}
	return count, nil
}
