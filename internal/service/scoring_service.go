package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ms-lokesh/cohort-summit-api/internal/dto"
	"github.com/ms-lokesh/cohort-summit-api/internal/models"
	appErrors "github.com/ms-lokesh/cohort-summit-api/pkg/errors"
)

type scoreRepository interface {
	Ensure(ctx context.Context, exec sqlx.ExtContext, studentID, seasonID string) error
	LockForUpdate(ctx context.Context, exec sqlx.ExtContext, studentID, seasonID string) (*models.SeasonScore, error)
	FindByStudentSeason(ctx context.Context, studentID, seasonID string) (*models.SeasonScore, error)
	Update(ctx context.Context, exec sqlx.ExtContext, score *models.SeasonScore) error
}

type completionCounter interface {
	CountCompleted(ctx context.Context, exec sqlx.ExtContext, seasonID, studentID string) (int, error)
}

type approvalReader interface {
	CountApproved(ctx context.Context, exec sqlx.ExtContext, studentID string, pillar models.Pillar, window models.DateWindow) (int, error)
	CountDistinctApprovedTypes(ctx context.Context, exec sqlx.ExtContext, studentID string, pillar models.Pillar, window models.DateWindow) (int, error)
}

type streakReader interface {
	Find(ctx context.Context, exec sqlx.ExtContext, studentID, seasonID string) (*models.StreakRecord, error)
}

type outcomeRepository interface {
	Upsert(ctx context.Context, exec sqlx.ExtContext, outcome *models.SeasonOutcome) error
	Find(ctx context.Context, exec sqlx.ExtContext, studentID, seasonID string) (*models.SeasonOutcome, error)
}

type legacyApplier interface {
	Apply(ctx context.Context, exec sqlx.ExtContext, studentID string, seasonTotal int) (*models.LegacyScore, int, error)
}

type ledgerCreditor interface {
	Credit(ctx context.Context, exec sqlx.ExtContext, studentID string, amount int, reason string) (*models.RewardWallet, error)
	RecordMovement(txType models.TransactionType, amount int)
}

type leaderboardRebuilder interface {
	Rebuild(ctx context.Context, exec sqlx.ExtContext, seasonID string) (*models.Ranking, error)
	InvalidatePodium(ctx context.Context, seasonID string)
}

// ScoringConfig carries season scoring knobs.
type ScoringConfig struct {
	StreakGraceDays int
}

// ScoringService finalizes seasons: it scores the student, feeds the legacy
// accumulator, credits the wallet and re-ranks the season as one unit.
type ScoringService struct {
	seasons     seasonLookup
	progress    completionCounter
	scores      scoreRepository
	approvals   approvalReader
	streaks     streakReader
	outcomes    outcomeRepository
	legacy      legacyApplier
	ledger      ledgerCreditor
	leaderboard leaderboardRebuilder
	tx          txProvider
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         ScoringConfig
	now         func() time.Time
}

// NewScoringService wires the scoring engine.
func NewScoringService(
	seasons seasonLookup,
	progress completionCounter,
	scores scoreRepository,
	approvals approvalReader,
	streaks streakReader,
	outcomes outcomeRepository,
	legacy legacyApplier,
	ledger ledgerCreditor,
	leaderboard leaderboardRebuilder,
	tx txProvider,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg ScoringConfig,
) *ScoringService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.StreakGraceDays < 0 {
		cfg.StreakGraceDays = models.DefaultStreakGraceDays
	}
	return &ScoringService{
		seasons:     seasons,
		progress:    progress,
		scores:      scores,
		approvals:   approvals,
		streaks:     streaks,
		outcomes:    outcomes,
		legacy:      legacy,
		ledger:      ledger,
		leaderboard: leaderboard,
		tx:          tx,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// FinalizeSeason is the manual entry point. A second call for the same student
// and season returns the stored score without side effects.
func (s *ScoringService) FinalizeSeason(ctx context.Context, seasonID, studentID string) (*dto.FinalizeResult, error) {
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

	season, err := s.seasons.FindByID(ctx, tx, seasonID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrNotFound, "season not found")
			return nil, err
		}
		err = appErrors.Internal(err, "failed to load season")
		return nil, err
	}

	result, err := s.FinalizeWithin(ctx, tx, season, studentID)
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Internal(err, "failed to commit season finalization")
		return nil, err
	}
	s.AfterCommit(ctx, seasonID, result)
	return result, nil
}

// FinalizeWithin runs finalization inside the caller's transaction. Any error
// means the caller must roll back.
func (s *ScoringService) FinalizeWithin(ctx context.Context, exec sqlx.ExtContext, season *models.Season, studentID string) (*dto.FinalizeResult, error) {
	completed, err := s.progress.CountCompleted(ctx, exec, season.ID, studentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count completed episodes")
	}
	if completed < models.EpisodesPerSeason {
		return &dto.FinalizeResult{Status: dto.FinalizeStatusNotComplete, CompletedEpisodes: completed}, nil
	}

	if err := s.scores.Ensure(ctx, exec, studentID, season.ID); err != nil {
		return nil, appErrors.Internal(err, "failed to open season score")
	}
	score, err := s.scores.LockForUpdate(ctx, exec, studentID, season.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to lock season score")
	}
	if score.SeasonCompleted {
		return &dto.FinalizeResult{Status: dto.FinalizeStatusAlreadyFinalized, CompletedEpisodes: completed, Score: score}, nil
	}

	breakdown, err := s.computeBreakdown(ctx, exec, season, studentID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	score.Apply(breakdown)
	score.SeasonCompleted = true
	score.CompletedAt = &now
	if !score.Consistent() {
		return nil, appErrors.Clone(appErrors.ErrInternal, "season score out of bounds")
	}
	if err := s.scores.Update(ctx, exec, score); err != nil {
		return nil, appErrors.Internal(err, "failed to persist season score")
	}

	_, bonus, err := s.legacy.Apply(ctx, exec, studentID, score.TotalScore)
	if err != nil {
		return nil, err
	}

	credits := models.SeasonCreditsFor(score.TotalScore)
	if credits > 0 {
		if _, err := s.ledger.Credit(ctx, exec, studentID, credits, season.RewardReason()); err != nil {
			return nil, err
		}
	}

	if _, err := s.leaderboard.Rebuild(ctx, exec, season.ID); err != nil {
		return nil, err
	}

	s.logger.Info("season finalized",
		zap.String("season_id", season.ID),
		zap.String("student_id", studentID),
		zap.Int("total", score.TotalScore),
		zap.Int("credits", credits),
		zap.Int("ascension_bonus", bonus))

	return &dto.FinalizeResult{
		Status:            dto.FinalizeStatusFinalized,
		CompletedEpisodes: completed,
		Score:             score,
		CreditsAwarded:    credits,
		AscensionBonus:    bonus,
	}, nil
}

// AfterCommit publishes the effects of a committed finalization.
func (s *ScoringService) AfterCommit(ctx context.Context, seasonID string, result *dto.FinalizeResult) {
	if result == nil {
		return
	}
	s.metrics.RecordFinalize(string(result.Status))
	if result.Status != dto.FinalizeStatusFinalized {
		return
	}
	s.ledger.RecordMovement(models.TransactionEarn, result.CreditsAwarded)
	s.leaderboard.InvalidatePodium(ctx, seasonID)
}

func (s *ScoringService) computeBreakdown(ctx context.Context, exec sqlx.ExtContext, season *models.Season, studentID string) (models.ScoreBreakdown, error) {
	window := season.Window()
	var b models.ScoreBreakdown

	certificates, err := s.approvals.CountApproved(ctx, exec, studentID, models.PillarLearning, window)
	if err != nil {
		return b, appErrors.Internal(err, "failed to read learning approvals")
	}
	b.Learning = models.LearningScoreFor(certificates)

	networking, err := s.approvals.CountDistinctApprovedTypes(ctx, exec, studentID, models.PillarNetworking, window)
	if err != nil {
		return b, appErrors.Internal(err, "failed to read networking approvals")
	}
	b.Networking = models.NetworkingScoreFor(networking)

	career, err := s.approvals.CountDistinctApprovedTypes(ctx, exec, studentID, models.PillarCareer, window)
	if err != nil {
		return b, appErrors.Internal(err, "failed to read career approvals")
	}
	b.Career = models.CareerScoreFor(career)

	streakDays := 0
	record, err := s.streaks.Find(ctx, exec, studentID, season.ID)
	switch {
	case err == nil:
		streakDays = record.SeasonStreakDays
	case errors.Is(err, sql.ErrNoRows):
	default:
		return b, appErrors.Internal(err, "failed to read streak record")
	}
	b.Coding = models.CodingScoreFor(streakDays, season.LengthDays(), s.cfg.StreakGraceDays)

	outcome, err := s.outcomes.Find(ctx, exec, studentID, season.ID)
	switch {
	case err == nil:
		b.Outcome = outcome.Score
	case errors.Is(err, sql.ErrNoRows):
	default:
		return b, appErrors.Internal(err, "failed to read season outcome")
	}
	return b, nil
}

// RecordOutcome stores the externally verified outcome score. It is rejected
// once the season score has been finalized.
func (s *ScoringService) RecordOutcome(ctx context.Context, seasonID, studentID, recordedBy string, req dto.RecordOutcomeRequest) (*models.SeasonOutcome, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid outcome payload")
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

	if _, err = s.seasons.FindByID(ctx, tx, seasonID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrNotFound, "season not found")
			return nil, err
		}
		err = appErrors.Internal(err, "failed to load season")
		return nil, err
	}
	if err = s.scores.Ensure(ctx, tx, studentID, seasonID); err != nil {
		err = appErrors.Internal(err, "failed to open season score")
		return nil, err
	}
	score, err := s.scores.LockForUpdate(ctx, tx, studentID, seasonID)
	if err != nil {
		err = appErrors.Internal(err, "failed to lock season score")
		return nil, err
	}
	if score.SeasonCompleted {
		err = appErrors.Clone(appErrors.ErrConflict, "season already finalized for student")
		return nil, err
	}

	outcome := &models.SeasonOutcome{
		StudentID:  studentID,
		SeasonID:   seasonID,
		Score:      req.Score,
		Note:       req.Note,
		RecordedBy: recordedBy,
		RecordedAt: s.now().UTC(),
	}
	if err = s.outcomes.Upsert(ctx, tx, outcome); err != nil {
		err = appErrors.Internal(err, "failed to record outcome")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Internal(err, "failed to commit outcome")
		return nil, err
	}
	return outcome, nil
}

// GetSeasonScore returns the stored score for (student, season).
func (s *ScoringService) GetSeasonScore(ctx context.Context, seasonID, studentID string) (*models.SeasonScore, error) {
	score, err := s.scores.FindByStudentSeason(ctx, studentID, seasonID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "season score not found")
		}
		return nil, appErrors.Internal(err, "failed to load season score")
	}
	return score, nil
}
