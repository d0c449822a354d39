package service

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ms-lokesh/cohort-summit-api/internal/dto"
	"github.com/ms-lokesh/cohort-summit-api/internal/models"
	appErrors "github.com/ms-lokesh/cohort-summit-api/pkg/errors"
)

type activeSeasonFinder interface {
	GetActive(ctx context.Context) (*models.Season, error)
}

type progressReader interface {
	GetProgress(ctx context.Context, seasonID, studentID string) (*dto.SeasonProgressView, error)
}

type seasonScoreReader interface {
	GetSeasonScore(ctx context.Context, seasonID, studentID string) (*models.SeasonScore, error)
}

type legacyReader interface {
	Get(ctx context.Context, studentID string) (*models.LegacyScore, error)
}

type walletReader interface {
	GetWallet(ctx context.Context, studentID string) (*models.RewardWallet, error)
}

type positionReader interface {
	Position(ctx context.Context, seasonID, studentID string) (*models.LeaderboardPosition, error)
}

type equippedTitleReader interface {
	Equipped(ctx context.Context, studentID string) (string, error)
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Seasons  activeSeasonFinder
	Progress progressReader
	Scores   seasonScoreReader
	Legacy   legacyReader
	Wallets  walletReader
	Ranking  positionReader
	Titles   equippedTitleReader
	Logger   *zap.Logger
}

// DashboardService composes the student home view from the other services.
type DashboardService struct {
	seasons  activeSeasonFinder
	progress progressReader
	scores   seasonScoreReader
	legacy   legacyReader
	wallets  walletReader
	ranking  positionReader
	titles   equippedTitleReader
	logger   *zap.Logger
}

// NewDashboardService constructs the dashboard composer.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		seasons:  params.Seasons,
		progress: params.Progress,
		scores:   params.Scores,
		legacy:   params.Legacy,
		wallets:  params.Wallets,
		ranking:  params.Ranking,
		titles:   params.Titles,
		logger:   logger,
	}
}

// Student loads the dashboard for studentID. Season-scoped sections are omitted
// when no season is active or the student is not enrolled in it.
func (s *DashboardService) Student(ctx context.Context, studentID string) (*dto.StudentDashboard, error) {
	out := &dto.StudentDashboard{}

	season, err := s.seasons.GetActive(ctx)
	switch {
	case err == nil:
		out.Season = season
	case isNotFound(err):
	default:
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		legacy, err := s.legacy.Get(gctx, studentID)
		if err != nil {
			return err
		}
		out.Legacy = legacy
		return nil
	})
	g.Go(func() error {
		wallet, err := s.wallets.GetWallet(gctx, studentID)
		if err != nil {
			return err
		}
		out.Wallet = wallet
		return nil
	})
	g.Go(func() error {
		name, err := s.titles.Equipped(gctx, studentID)
		if err != nil {
			return err
		}
		out.EquippedTag = name
		return nil
	})

	if season != nil {
		seasonID := season.ID
		g.Go(func() error {
			progress, err := s.progress.GetProgress(gctx, seasonID, studentID)
			if err != nil {
				if isNotFound(err) {
					return nil
				}
				return err
			}
			out.Progress = progress
			return nil
		})
		g.Go(func() error {
			score, err := s.scores.GetSeasonScore(gctx, seasonID, studentID)
			if err != nil {
				if isNotFound(err) {
					return nil
				}
				return err
			}
			out.Score = score
			return nil
		})
		g.Go(func() error {
			position, err := s.ranking.Position(gctx, seasonID, studentID)
			if err != nil {
				return err
			}
			out.Position = position
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Warn("dashboard load failed", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}
	return out, nil
}

func isNotFound(err error) bool {
	appErr := appErrors.FromError(err)
	return appErr != nil && appErr.Code == appErrors.ErrNotFound.Code
}
