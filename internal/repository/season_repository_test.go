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

	"github.com/ms-lokesh/cohort-summit-api/internal/models"
)

var seasonRowColumns = []string{"id", "ordinal", "name", "start_date", "end_date", "is_active", "created_at", "updated_at"}

func TestSeasonRepositoryFindActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSeasonRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM seasons WHERE is_active = TRUE")).
		WillReturnRows(sqlmock.NewRows(seasonRowColumns).AddRow("season-1", 1, "Season 1", now, now.AddDate(0, 1, 0), true, now, now))

	season, err := repo.FindActive(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "season-1", season.ID)
	assert.True(t, season.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeasonRepositoryFindActiveNone(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSeasonRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM seasons WHERE is_active = TRUE")).
		WillReturnRows(sqlmock.NewRows(seasonRowColumns))

	_, err := repo.FindActive(context.Background(), nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSeasonRepositoryExistsByOrdinal(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSeasonRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM seasons WHERE ordinal = $1")).
		WithArgs(2).
		WillReturnError(sql.ErrNoRows)

	exists, err := repo.ExistsByOrdinal(context.Background(), nil, 2)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSeasonRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSeasonRepository(db)

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	season := &models.Season{Ordinal: 3, Name: "Season 3", StartDate: start, EndDate: start.AddDate(0, 0, 27)}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO seasons")).
		WithArgs(sqlmock.AnyArg(), 3, "Season 3", start, start.AddDate(0, 0, 27), false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Create(context.Background(), nil, season))
	assert.NotEmpty(t, season.ID)
	assert.False(t, season.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeasonRepositorySetActiveMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSeasonRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE seasons SET is_active = $1")).
		WithArgs(true, sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetActive(context.Background(), nil, "missing", true)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSeasonRepositoryLockActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSeasonRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM seasons WHERE is_active = TRUE AND id <> $1 FOR UPDATE")).
		WithArgs("season-2").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("season-1"))

	ids, err := repo.LockActive(context.Background(), nil, "season-2")
	require.NoError(t, err)
	assert.Equal(t, []string{"season-1"}, ids)
}
