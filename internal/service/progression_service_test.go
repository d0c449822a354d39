package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ms-lokesh/cohort-summit-api/internal/dto"
	"github.com/ms-lokesh/cohort-summit-api/internal/models"
	appErrors "github.com/ms-lokesh/cohort-summit-api/pkg/errors"
)

func enrollFixtureStudent(f *summitFixture, studentID string) {
	for ordinal := 1; ordinal <= models.EpisodesPerSeason; ordinal++ {
		id := fmt.Sprintf("%s-ep%d", fixtureSeason.ID, ordinal)
		_, _ = f.progress.Ensure(context.Background(), nil, studentID, id, models.InitialStatus(ordinal))
	}
}

func approve(t *testing.T, f *summitFixture, episodeID string, task models.EpisodeTask) *dto.TaskCompletionResult {
	t.Helper()
	result, err := f.progression.RecordTaskCompletion(context.Background(), episodeID, dto.ApproveTaskRequest{StudentID: "stu-1", Task: string(task)})
	require.NoError(t, err)
	return result
}

func TestProgressionCompletesEpisodeAndUnlocksNext(t *testing.T) {
	txProvider, mock := newTxProviderMock(t)
	f := newSummitFixture(t, txProvider)
	enrollFixtureStudent(f, "stu-1")

	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	first := approve(t, f, "season-1-ep1", models.TaskLearningCertificate)
	assert.True(t, first.Changed)
	assert.False(t, first.EpisodeCompleted)
	assert.Equal(t, models.EpisodeStatusInProgress, first.Progress.Status)
	require.NotNil(t, first.Progress.StartedAt)
	startedAt := *first.Progress.StartedAt

	second := approve(t, f, "season-1-ep1", models.TaskCodingStreak)
	assert.True(t, second.EpisodeCompleted)
	assert.Equal(t, models.EpisodeStatusCompleted, second.Progress.Status)
	require.NotNil(t, second.Progress.CompletedAt)
	assert.Equal(t, startedAt, *second.Progress.StartedAt)
	require.NotNil(t, second.UnlockedEpisode)
	assert.Equal(t, 2, *second.UnlockedEpisode)
	assert.Nil(t, second.Finalize)

	assert.Equal(t, models.EpisodeStatusUnlocked, f.progress.rows[progressKey("stu-1", "season-1-ep2")].Status)
	assert.Equal(t, models.EpisodeStatusLocked, f.progress.rows[progressKey("stu-1", "season-1-ep3")].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProgressionRepeatedApprovalIsNoop(t *testing.T) {
	txProvider, mock := newTxProviderMock(t)
	f := newSummitFixture(t, txProvider)
	enrollFixtureStudent(f, "stu-1")

	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	approve(t, f, "season-1-ep1", models.TaskLearningCertificate)
	repeat := approve(t, f, "season-1-ep1", models.TaskLearningCertificate)
	assert.False(t, repeat.Changed)
	assert.False(t, repeat.EpisodeCompleted)
	assert.Equal(t, 1, f.progress.updates)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProgressionUnknownTaskForOrdinal(t *testing.T) {
	txProvider, _ := newTxProviderMock(t)
	f := newSummitFixture(t, txProvider)
	enrollFixtureStudent(f, "stu-1")

	_, err := f.progression.RecordTaskCompletion(context.Background(), "season-1-ep1", dto.ApproveTaskRequest{StudentID: "stu-1", Task: string(models.TaskCareerResume)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))

	_, err = f.progression.RecordTaskCompletion(context.Background(), "season-1-ep1", dto.ApproveTaskRequest{StudentID: "stu-1", Task: "juggling"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))
	assert.Zero(t, f.progress.updates)
}

func TestProgressionMissingEpisode(t *testing.T) {
	txProvider, _ := newTxProviderMock(t)
	f := newSummitFixture(t, txProvider)

	_, err := f.progression.RecordTaskCompletion(context.Background(), "nope", dto.ApproveTaskRequest{StudentID: "stu-1", Task: string(models.TaskCodingStreak)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(err))
}

func TestProgressionRejectsStudentNotEnrolled(t *testing.T) {
	txProvider, mock := newTxProviderMock(t)
	f := newSummitFixture(t, txProvider)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := f.progression.RecordTaskCompletion(context.Background(), "season-1-ep1", dto.ApproveTaskRequest{StudentID: "stu-1", Task: string(models.TaskCodingStreak)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))
	assert.Empty(t, f.progress.rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProgressionCompletedEpisodeIsNeverDowngraded(t *testing.T) {
	txProvider, mock := newTxProviderMock(t)
	f := newSummitFixture(t, txProvider)
	f.progress.completeAll(fixtureSeason.ID, "stu-1")
	f.scores.scores[scoreKey("stu-1", fixtureSeason.ID)] = &models.SeasonScore{StudentID: "stu-1", SeasonID: fixtureSeason.ID, SeasonCompleted: true}

	mock.ExpectBegin()
	mock.ExpectCommit()

	result := approve(t, f, "season-1-ep1", models.TaskCodingStreak)
	assert.True(t, result.Changed)
	assert.False(t, result.EpisodeCompleted)
	assert.Equal(t, models.EpisodeStatusCompleted, result.Progress.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProgressionFinalEpisodeFinalizesSeason(t *testing.T) {
	txProvider, mock := newTxProviderMock(t)
	f := newSummitFixture(t, txProvider)
	f.progress.completeAll(fixtureSeason.ID, "stu-1")
	f.progress.rows[progressKey("stu-1", "season-1-ep4")] = &models.EpisodeProgress{
		ID:                    progressKey("stu-1", "season-1-ep4"),
		StudentID:             "stu-1",
		EpisodeID:             "season-1-ep4",
		Status:                models.EpisodeStatusInProgress,
		CareerApplicationDone: true,
		SocialImpactDone:      true,
	}
	f.perfectSeason("stu-1")

	mock.ExpectBegin()
	mock.ExpectCommit()

	result := approve(t, f, "season-1-ep4", models.TaskCodingStreakWeek4)
	assert.True(t, result.EpisodeCompleted)
	assert.Nil(t, result.UnlockedEpisode)
	require.NotNil(t, result.Finalize)
	assert.Equal(t, dto.FinalizeStatusFinalized, result.Finalize.Status)
	assert.Equal(t, 1200, result.Finalize.Score.TotalScore)
	assert.Equal(t, 120, f.wallets.wallets["stu-1"].Available)
	assert.Equal(t, 1200, f.legacyRepo.scores["stu-1"].TotalPoints)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProgressionFinalizeFailureRollsBackApproval(t *testing.T) {
	txProvider, mock := newTxProviderMock(t)
	f := newSummitFixture(t, txProvider)
	f.progress.completeAll(fixtureSeason.ID, "stu-1")
	f.progress.rows[progressKey("stu-1", "season-1-ep4")] = &models.EpisodeProgress{
		ID:                    progressKey("stu-1", "season-1-ep4"),
		StudentID:             "stu-1",
		EpisodeID:             "season-1-ep4",
		Status:                models.EpisodeStatusInProgress,
		CareerApplicationDone: true,
		SocialImpactDone:      true,
	}
	f.perfectSeason("stu-1")
	f.board.insertErr = assert.AnError

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := f.progression.RecordTaskCompletion(context.Background(), "season-1-ep4", dto.ApproveTaskRequest{StudentID: "stu-1", Task: string(models.TaskCodingStreakWeek4)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, errorCode(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProgressionGetProgressAndCurrentEpisode(t *testing.T) {
	txProvider, mock := newTxProviderMock(t)
	f := newSummitFixture(t, txProvider)
	enrollFixtureStudent(f, "stu-1")

	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()
	approve(t, f, "season-1-ep1", models.TaskLearningCertificate)
	approve(t, f, "season-1-ep1", models.TaskCodingStreak)

	view, err := f.progression.GetProgress(context.Background(), fixtureSeason.ID, "stu-1")
	require.NoError(t, err)
	require.Len(t, view.Episodes, models.EpisodesPerSeason)
	assert.Equal(t, models.EpisodeStatusCompleted, view.Episodes[0].Status)
	require.Len(t, view.Episodes[1].Tasks, 3)
	assert.Equal(t, models.TaskCareerResume, view.Episodes[1].Tasks[0].Task)
	assert.False(t, view.Episodes[1].Tasks[0].Completed)

	current, err := f.progression.CurrentEpisode(context.Background(), fixtureSeason.ID, "stu-1")
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, 2, *current)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProgressionGetProgressNotEnrolled(t *testing.T) {
	txProvider, _ := newTxProviderMock(t)
	f := newSummitFixture(t, txProvider)

	_, err := f.progression.GetProgress(context.Background(), fixtureSeason.ID, "stu-2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(err))
}
