package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ms-lokesh/cohort-summit-api/internal/dto"
	"github.com/ms-lokesh/cohort-summit-api/internal/models"
	appErrors "github.com/ms-lokesh/cohort-summit-api/pkg/errors"
)

type dashboardSourcesStub struct {
	season    *models.Season
	progress  *dto.SeasonProgressView
	score     *models.SeasonScore
	walletErr error
}

func (d *dashboardSourcesStub) GetActive(ctx context.Context) (*models.Season, error) {
	if d.season == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no active season")
	}
	return d.season, nil
}

func (d *dashboardSourcesStub) GetProgress(ctx context.Context, seasonID, studentID string) (*dto.SeasonProgressView, error) {
	if d.progress == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student is not enrolled in this season")
	}
	return d.progress, nil
}

func (d *dashboardSourcesStub) GetSeasonScore(ctx context.Context, seasonID, studentID string) (*models.SeasonScore, error) {
	if d.score == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "season score not found")
	}
	return d.score, nil
}

func (d *dashboardSourcesStub) Get(ctx context.Context, studentID string) (*models.LegacyScore, error) {
	return &models.LegacyScore{StudentID: studentID, TotalPoints: 2400}, nil
}

func (d *dashboardSourcesStub) GetWallet(ctx context.Context, studentID string) (*models.RewardWallet, error) {
	if d.walletErr != nil {
		return nil, d.walletErr
	}
	return &models.RewardWallet{StudentID: studentID, Available: 90}, nil
}

func (d *dashboardSourcesStub) Position(ctx context.Context, seasonID, studentID string) (*models.LeaderboardPosition, error) {
	pos := models.UnrankedPosition(seasonID, studentID)
	return &pos, nil
}

func (d *dashboardSourcesStub) Equipped(ctx context.Context, studentID string) (string, error) {
	return "Comet", nil
}

func newDashboard(sources *dashboardSourcesStub) *DashboardService {
	return NewDashboardService(DashboardServiceParams{
		Seasons:  sources,
		Progress: sources,
		Scores:   sources,
		Legacy:   sources,
		Wallets:  sources,
		Ranking:  sources,
		Titles:   sources,
	})
}

func TestDashboardServiceStudentWithActiveSeason(t *testing.T) {
	season := fixtureSeason
	current := 2
	sources := &dashboardSourcesStub{
		season:   &season,
		progress: &dto.SeasonProgressView{SeasonID: season.ID, StudentID: "stu-1", CurrentEpisode: &current},
		score:    &models.SeasonScore{StudentID: "stu-1", SeasonID: season.ID, TotalScore: 640},
	}

	view, err := newDashboard(sources).Student(context.Background(), "stu-1")
	require.NoError(t, err)
	require.NotNil(t, view.Season)
	assert.Equal(t, season.ID, view.Season.ID)
	require.NotNil(t, view.Progress.CurrentEpisode)
	assert.Equal(t, 2, *view.Progress.CurrentEpisode)
	assert.Equal(t, 640, view.Score.TotalScore)
	assert.Equal(t, 2400, view.Legacy.TotalPoints)
	assert.Equal(t, 90, view.Wallet.Available)
	assert.Equal(t, models.PositionNotRanked, view.Position.Status)
	assert.Equal(t, "Comet", view.EquippedTag)
}

func TestDashboardServiceStudentWithoutSeason(t *testing.T) {
	view, err := newDashboard(&dashboardSourcesStub{}).Student(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Nil(t, view.Season)
	assert.Nil(t, view.Progress)
	assert.Nil(t, view.Position)
	assert.NotNil(t, view.Wallet)
}

func TestDashboardServiceStudentNotEnrolled(t *testing.T) {
	season := fixtureSeason
	view, err := newDashboard(&dashboardSourcesStub{season: &season}).Student(context.Background(), "stu-9")
	require.NoError(t, err)
	assert.Nil(t, view.Progress)
	assert.Nil(t, view.Score)
	assert.NotNil(t, view.Position)
}

func TestDashboardServiceStudentPropagatesFailure(t *testing.T) {
	sources := &dashboardSourcesStub{walletErr: appErrors.Clone(appErrors.ErrInternal, "failed to load wallet")}
	_, err := newDashboard(sources).Student(context.Background(), "stu-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, errorCode(err))
}
