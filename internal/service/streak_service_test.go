package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ms-lokesh/cohort-summit-api/internal/models"
	appErrors "github.com/ms-lokesh/cohort-summit-api/pkg/errors"
)

type providerStub struct {
	mu       sync.Mutex
	activity map[string]models.ProviderActivity
	failFor  map[string]bool
	calls    int
}

func (p *providerStub) FetchActivity(ctx context.Context, handle string) (*models.ProviderActivity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.failFor[handle] {
		return nil, errors.New("provider timeout")
	}
	activity := p.activity[handle]
	return &activity, nil
}

func handle(value string) *string { return &value }

func newStreakFixture(t *testing.T, provider *providerStub) (*StreakService, *streakStoreStub, txProvider) {
	t.Helper()
	txProvider, _ := newTxProviderMock(t)
	students := newStudentStore(
		models.Student{ID: "stu-1", FullName: "Ada", Active: true, CodingHandle: handle("ada")},
		models.Student{ID: "stu-2", FullName: "Lin", Active: true, CodingHandle: handle("lin")},
		models.Student{ID: "stu-3", FullName: "Kai", Active: true},
	)
	streaks := newStreakStore()
	svc := NewStreakService(newSeasonStore(fixtureSeason), students, streaks, provider, txProvider, nil, nil,
		StreakSyncConfig{Workers: 1, MaxRetries: 0, RetryDelay: time.Millisecond})
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }
	return svc, streaks, txProvider
}

func TestStreakServiceSyncStudentAppliesActivity(t *testing.T) {
	provider := &providerStub{activity: map[string]models.ProviderActivity{"ada": {Handle: "ada", CurrentStreak: 5, ActiveToday: true}}}
	svc, streaks, txProvider := newStreakFixture(t, provider)
	mock := txProvider.(*txProviderMock).mock

	mock.ExpectBegin()
	mock.ExpectCommit()

	result, err := svc.SyncStudent(context.Background(), fixtureSeason.ID, "stu-1")
	require.NoError(t, err)
	assert.True(t, result.Synced)
	assert.Empty(t, result.Warnings)
	require.NotNil(t, result.Record)
	assert.Equal(t, 5, result.Record.CurrentStreak)
	assert.Equal(t, 5, result.Record.LongestStreak)
	assert.Equal(t, 1, result.Record.SeasonStreakDays)
	assert.Equal(t, 1, streaks.updates)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Two successful syncs on one calendar day both count toward the season total.
func TestStreakServiceSameDaySyncsCountTwice(t *testing.T) {
	provider := &providerStub{activity: map[string]models.ProviderActivity{"ada": {Handle: "ada", CurrentStreak: 3, ActiveToday: true}}}
	svc, _, txProvider := newStreakFixture(t, provider)
	mock := txProvider.(*txProviderMock).mock

	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	_, err := svc.SyncStudent(context.Background(), fixtureSeason.ID, "stu-1")
	require.NoError(t, err)
	result, err := svc.SyncStudent(context.Background(), fixtureSeason.ID, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Record.SeasonStreakDays)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStreakServiceProviderFailureKeepsRecord(t *testing.T) {
	provider := &providerStub{failFor: map[string]bool{"ada": true}}
	svc, streaks, txProvider := newStreakFixture(t, provider)
	mock := txProvider.(*txProviderMock).mock
	streaks.records[scoreKey("stu-1", fixtureSeason.ID)] = &models.StreakRecord{
		ID: "streak-1", StudentID: "stu-1", SeasonID: fixtureSeason.ID, CurrentStreak: 4, SeasonStreakDays: 6,
	}

	result, err := svc.SyncStudent(context.Background(), fixtureSeason.ID, "stu-1")
	require.NoError(t, err)
	assert.False(t, result.Synced)
	assert.Equal(t, []string{"streak provider unavailable"}, result.Warnings)
	require.NotNil(t, result.Record)
	assert.Equal(t, 6, result.Record.SeasonStreakDays)
	assert.Equal(t, 0, streaks.updates)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStreakServiceSyncWithoutHandle(t *testing.T) {
	provider := &providerStub{}
	svc, _, _ := newStreakFixture(t, provider)

	result, err := svc.SyncStudent(context.Background(), fixtureSeason.ID, "stu-3")
	require.NoError(t, err)
	assert.False(t, result.Synced)
	assert.Equal(t, []string{"no coding handle on profile"}, result.Warnings)
	assert.Nil(t, result.Record)
	assert.Equal(t, 0, provider.calls)
}

func TestStreakServiceSyncStudentNotFound(t *testing.T) {
	svc, _, _ := newStreakFixture(t, &providerStub{})

	_, err := svc.SyncStudent(context.Background(), fixtureSeason.ID, "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(err))

	_, err = svc.SyncStudent(context.Background(), "missing", "stu-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(err))
}

func TestStreakServiceSyncAllSummarizes(t *testing.T) {
	provider := &providerStub{
		activity: map[string]models.ProviderActivity{"ada": {Handle: "ada", CurrentStreak: 2, ActiveToday: true}},
		failFor:  map[string]bool{"lin": true},
	}
	svc, streaks, txProvider := newStreakFixture(t, provider)
	mock := txProvider.(*txProviderMock).mock

	mock.ExpectBegin()
	mock.ExpectCommit()

	summary, err := svc.SyncAll(context.Background(), fixtureSeason.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Queued)
	assert.Equal(t, 1, summary.Synced)
	assert.Equal(t, 2, summary.Failed)
	assert.ElementsMatch(t, []string{
		"stu-2: streak provider unavailable",
		"stu-3: no coding handle on profile",
	}, summary.Warnings)
	assert.Equal(t, 1, streaks.updates)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStreakServiceGetStreakDefaultsToEmpty(t *testing.T) {
	svc, _, _ := newStreakFixture(t, &providerStub{})

	record, err := svc.GetStreak(context.Background(), fixtureSeason.ID, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "stu-1", record.StudentID)
	assert.Equal(t, 0, record.SeasonStreakDays)
}
