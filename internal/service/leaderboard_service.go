package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ms-lokesh/cohort-summit-api/internal/models"
	appErrors "github.com/ms-lokesh/cohort-summit-api/pkg/errors"
	"github.com/ms-lokesh/cohort-summit-api/pkg/export"
)

type leaderboardRepository interface {
	LockSeason(ctx context.Context, exec sqlx.ExtContext, seasonID string) error
	DeleteBySeason(ctx context.Context, exec sqlx.ExtContext, seasonID string) error
	InsertEntries(ctx context.Context, exec sqlx.ExtContext, entries []models.LeaderboardEntry) error
	InsertBrackets(ctx context.Context, exec sqlx.ExtContext, brackets []models.PercentileBracket) error
	ListPodium(ctx context.Context, seasonID string) ([]models.LeaderboardEntry, error)
	FindEntry(ctx context.Context, seasonID, studentID string) (*models.LeaderboardEntry, error)
	FindBracket(ctx context.Context, seasonID, studentID string) (*models.PercentileBracket, error)
	Standings(ctx context.Context, seasonID string) ([]models.Standing, error)
}

type completedScoreLister interface {
	ListCompletedBySeason(ctx context.Context, exec sqlx.ExtContext, seasonID string) ([]models.SeasonScore, error)
}

type seasonLookup interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Season, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFormat selects the standings export encoding.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportFile is a rendered standings document.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// LeaderboardConfig tunes podium caching.
type LeaderboardConfig struct {
	CacheTTL time.Duration
}

// LeaderboardService ranks finalized season scores into a podium and percentile brackets.
type LeaderboardService struct {
	repo    leaderboardRepository
	scores  completedScoreLister
	seasons seasonLookup
	tx      txProvider
	cache   *CacheService
	metrics *MetricsService
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
	cfg     LeaderboardConfig
	now     func() time.Time
}

// NewLeaderboardService wires the ranker.
func NewLeaderboardService(
	repo leaderboardRepository,
	scores completedScoreLister,
	seasons seasonLookup,
	tx txProvider,
	cache *CacheService,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg LeaderboardConfig,
) *LeaderboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaderboardService{
		repo:    repo,
		scores:  scores,
		seasons: seasons,
		tx:      tx,
		cache:   cache,
		metrics: metrics,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Rebuild recomputes the season ranking inside exec. The season lock is held
// until exec commits, so the score read sees every earlier rebuild's commit.
func (s *LeaderboardService) Rebuild(ctx context.Context, exec sqlx.ExtContext, seasonID string) (*models.Ranking, error) {
	start := time.Now()
	if err := s.repo.LockSeason(ctx, exec, seasonID); err != nil {
		return nil, appErrors.Internal(err, "failed to lock season leaderboard")
	}
	scores, err := s.scores.ListCompletedBySeason(ctx, exec, seasonID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load season scores")
	}
	ranking := models.BuildRanking(seasonID, scores, s.now().UTC())

	if err := s.repo.DeleteBySeason(ctx, exec, seasonID); err != nil {
		return nil, appErrors.Internal(err, "failed to clear leaderboard")
	}
	if err := s.repo.InsertEntries(ctx, exec, ranking.Podium); err != nil {
		return nil, appErrors.Internal(err, "failed to write podium")
	}
	if err := s.repo.InsertBrackets(ctx, exec, ranking.Brackets); err != nil {
		return nil, appErrors.Internal(err, "failed to write percentile brackets")
	}
	s.metrics.ObserveRebuild(time.Since(start))
	s.logger.Debug("leaderboard rebuilt",
		zap.String("season_id", seasonID),
		zap.Int("podium", len(ranking.Podium)),
		zap.Int("brackets", len(ranking.Brackets)))
	return &ranking, nil
}

// RebuildSeason recomputes a season ranking in its own transaction.
func (s *LeaderboardService) RebuildSeason(ctx context.Context, seasonID string) (*models.Ranking, error) {
	if _, err := s.loadSeason(ctx, seasonID); err != nil {
		return nil, err
	}
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	ranking, err := s.Rebuild(ctx, tx, seasonID)
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Internal(err, "failed to commit leaderboard rebuild")
		return nil, err
	}
	s.InvalidatePodium(ctx, seasonID)
	return ranking, nil
}

// InvalidatePodium drops the cached podium after a committed rebuild.
func (s *LeaderboardService) InvalidatePodium(ctx context.Context, seasonID string) {
	if err := s.cache.EvictPodium(ctx, seasonID); err != nil {
		s.logger.Warn("podium cache eviction failed", zap.String("season_id", seasonID), zap.Error(err))
	}
}

// Podium returns up to three ranked entries for a season.
func (s *LeaderboardService) Podium(ctx context.Context, seasonID string) ([]models.LeaderboardEntry, error) {
	if _, err := s.loadSeason(ctx, seasonID); err != nil {
		return nil, err
	}
	if cached, ok := s.cache.LoadPodium(ctx, seasonID); ok {
		return cached, nil
	}

	entries, err := s.repo.ListPodium(ctx, seasonID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load podium")
	}
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}
	s.cache.StorePodium(ctx, seasonID, entries, s.cfg.CacheTTL)
	return entries, nil
}

// Position returns the student's podium rank, percentile bucket, or not_ranked.
func (s *LeaderboardService) Position(ctx context.Context, seasonID, studentID string) (*models.LeaderboardPosition, error) {
	entry, err := s.repo.FindEntry(ctx, seasonID, studentID)
	if err == nil {
		pos := models.PodiumPosition(*entry)
		return &pos, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "failed to load podium entry")
	}

	bracket, err := s.repo.FindBracket(ctx, seasonID, studentID)
	if err == nil {
		pos := models.BracketPosition(*bracket)
		return &pos, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "failed to load percentile bracket")
	}
	pos := models.UnrankedPosition(seasonID, studentID)
	return &pos, nil
}

// Standings returns the full season ranking.
func (s *LeaderboardService) Standings(ctx context.Context, seasonID string) ([]models.Standing, error) {
	if _, err := s.loadSeason(ctx, seasonID); err != nil {
		return nil, err
	}
	rows, err := s.repo.Standings(ctx, seasonID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load standings")
	}
	return rows, nil
}

// ExportStandings renders the season standings as CSV or PDF.
func (s *LeaderboardService) ExportStandings(ctx context.Context, seasonID string, format ExportFormat) (*ExportFile, error) {
	season, err := s.loadSeason(ctx, seasonID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.Standings(ctx, seasonID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load standings")
	}

	dataset := export.Dataset{Headers: []string{"Position", "Student", "Student ID", "Score", "Standing"}}
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, []string{
			strconv.Itoa(row.Position),
			row.StudentName,
			row.StudentID,
			strconv.Itoa(row.Score),
			standingLabel(row.Label),
		})
	}

	base := fmt.Sprintf("season_%d_standings_%s", season.Ordinal, s.now().UTC().Format("20060102"))
	var body []byte
	switch format {
	case ExportFormatCSV, "":
		body, err = s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to render csv")
		}
		return &ExportFile{Filename: base + ".csv", ContentType: "text/csv", Body: body}, nil
	case ExportFormatPDF:
		dataset.Subtitle = fmt.Sprintf("%s standings, %d completed", season.Name, len(rows))
		body, err = s.pdf.Render(dataset, season.Name)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to render pdf")
		}
		return &ExportFile{Filename: base + ".pdf", ContentType: "application/pdf", Body: body}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

func (s *LeaderboardService) loadSeason(ctx context.Context, seasonID string) (*models.Season, error) {
	season, err := s.seasons.FindByID(ctx, nil, seasonID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "season not found")
		}
		return nil, appErrors.Internal(err, "failed to load season")
	}
	return season, nil
}

func standingLabel(label string) string {
	switch label {
	case models.RankTitleTopPerformer:
		return "Top performer"
	case models.RankTitleElite:
		return "Elite"
	}
	if strings.HasPrefix(label, "top_") {
		return "Top " + strings.TrimPrefix(label, "top_") + "%"
	}
	if label == string(models.BucketBelow50) {
		return "Below 50%"
	}
	return label
}
