package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTitleRepositoryFindOwnershipMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTitleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM student_titles")).
		WithArgs("student-1", "title-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "title_id", "is_equipped", "redeemed_at"}))

	_, err := repo.FindOwnership(context.Background(), nil, "student-1", "title-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestTitleRepositoryEquipSequence(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTitleRepository(db)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE student_titles SET is_equipped = FALSE WHERE student_id = $1")).
		WithArgs("student-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE student_titles SET is_equipped = TRUE WHERE id = $1")).
		WithArgs("own-2").WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UnequipAll(ctx, nil, "student-1"))
	require.NoError(t, repo.Equip(ctx, nil, "own-2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTitleRepositoryListOwned(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTitleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM student_titles st JOIN titles t ON t.id = st.title_id")).
		WithArgs("student-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "title_id", "is_equipped", "redeemed_at", "name", "rarity"}).
			AddRow("own-1", "student-1", "title-1", true, time.Now(), "Trailblazer", "rare"))

	owned, err := repo.ListOwned(context.Background(), "student-1")
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.True(t, owned[0].IsEquipped)
	assert.Equal(t, "Trailblazer", owned[0].Name)
}
