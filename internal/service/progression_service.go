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

type episodeRepository interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Episode, error)
	FindBySeasonOrdinal(ctx context.Context, exec sqlx.ExtContext, seasonID string, ordinal int) (*models.Episode, error)
	ListBySeason(ctx context.Context, exec sqlx.ExtContext, seasonID string) ([]models.Episode, error)
}

type progressRepository interface {
	Ensure(ctx context.Context, exec sqlx.ExtContext, studentID, episodeID string, status models.EpisodeStatus) (bool, error)
	LockForUpdate(ctx context.Context, exec sqlx.ExtContext, studentID, episodeID string) (*models.EpisodeProgress, error)
	Update(ctx context.Context, exec sqlx.ExtContext, progress *models.EpisodeProgress) error
	Unlock(ctx context.Context, exec sqlx.ExtContext, studentID, episodeID string) (bool, error)
	ListBySeasonStudent(ctx context.Context, exec sqlx.ExtContext, seasonID, studentID string) ([]models.EpisodeProgressDetail, error)
	CountCompleted(ctx context.Context, exec sqlx.ExtContext, seasonID, studentID string) (int, error)
	Enrolled(ctx context.Context, exec sqlx.ExtContext, seasonID, studentID string) (bool, error)
}

type studentLookup interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Student, error)
}

type seasonFinalizer interface {
	FinalizeWithin(ctx context.Context, exec sqlx.ExtContext, season *models.Season, studentID string) (*dto.FinalizeResult, error)
	AfterCommit(ctx context.Context, seasonID string, result *dto.FinalizeResult)
}

// ProgressionService drives the per-student episode state machine.
type ProgressionService struct {
	seasons   seasonLookup
	episodes  episodeRepository
	progress  progressRepository
	students  studentLookup
	finalizer seasonFinalizer
	tx        txProvider
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewProgressionService wires the state machine.
func NewProgressionService(
	seasons seasonLookup,
	episodes episodeRepository,
	progress progressRepository,
	students studentLookup,
	finalizer seasonFinalizer,
	tx txProvider,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *ProgressionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressionService{
		seasons:   seasons,
		episodes:  episodes,
		progress:  progress,
		students:  students,
		finalizer: finalizer,
		tx:        tx,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// RecordTaskCompletion applies a mentor approval for one episode task. The
// progress row is locked for the whole unit so the completion cascade and any
// season finalization run exactly once per episode.
func (s *ProgressionService) RecordTaskCompletion(ctx context.Context, episodeID string, req dto.ApproveTaskRequest) (*dto.TaskCompletionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid approval payload")
	}
	episode, err := s.episodes.FindByID(ctx, nil, episodeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "episode not found")
		}
		return nil, appErrors.Internal(err, "failed to load episode")
	}
	task, err := models.ParseEpisodeTask(episode.Ordinal, req.Task)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
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

	if _, err = s.students.FindByID(ctx, tx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrNotFound, "student not found")
			return nil, err
		}
		err = appErrors.Internal(err, "failed to load student")
		return nil, err
	}
	enrolled, err := s.progress.Enrolled(ctx, tx, episode.SeasonID, req.StudentID)
	if err != nil {
		err = appErrors.Internal(err, "failed to check enrollment")
		return nil, err
	}
	if !enrolled {
		err = appErrors.Clone(appErrors.ErrValidation, "student is not enrolled in the episode's season")
		return nil, err
	}

	if _, err = s.progress.Ensure(ctx, tx, req.StudentID, episode.ID, models.InitialStatus(episode.Ordinal)); err != nil {
		err = appErrors.Internal(err, "failed to open episode progress")
		return nil, err
	}
	progress, err := s.progress.LockForUpdate(ctx, tx, req.StudentID, episode.ID)
	if err != nil {
		err = appErrors.Internal(err, "failed to lock episode progress")
		return nil, err
	}

	now := s.now().UTC()
	result := &dto.TaskCompletionResult{}
	result.Changed = progress.MarkTask(task, now)
	if progress.Satisfied(episode.Ordinal) {
		result.EpisodeCompleted = progress.Complete(now)
	}
	if result.Changed || result.EpisodeCompleted {
		if err = s.progress.Update(ctx, tx, progress); err != nil {
			err = appErrors.Internal(err, "failed to update episode progress")
			return nil, err
		}
	}

	if result.EpisodeCompleted {
		if err = s.cascade(ctx, tx, episode, req.StudentID, result); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Internal(err, "failed to commit task approval")
		return nil, err
	}

	if result.EpisodeCompleted {
		s.metrics.RecordEpisodeCompleted(episode.Ordinal)
		s.logger.Info("episode completed",
			zap.String("student_id", req.StudentID),
			zap.String("season_id", episode.SeasonID),
			zap.Int("ordinal", episode.Ordinal))
	}
	if result.Finalize != nil {
		s.finalizer.AfterCommit(ctx, episode.SeasonID, result.Finalize)
	}
	result.Progress = progressView(episode.ID, episode.Ordinal, progress)
	return result, nil
}

// cascade unlocks the next episode and finalizes the season once all four are complete.
func (s *ProgressionService) cascade(ctx context.Context, exec sqlx.ExtContext, episode *models.Episode, studentID string, result *dto.TaskCompletionResult) error {
	if !episode.IsLast() {
		next, err := s.episodes.FindBySeasonOrdinal(ctx, exec, episode.SeasonID, episode.Ordinal+1)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrInternal, "season is missing its next episode")
			}
			return appErrors.Internal(err, "failed to load next episode")
		}
		created, err := s.progress.Ensure(ctx, exec, studentID, next.ID, models.EpisodeStatusUnlocked)
		if err != nil {
			return appErrors.Internal(err, "failed to open next episode")
		}
		unlocked := created
		if !created {
			if unlocked, err = s.progress.Unlock(ctx, exec, studentID, next.ID); err != nil {
				return appErrors.Internal(err, "failed to unlock next episode")
			}
		}
		if unlocked {
			ordinal := next.Ordinal
			result.UnlockedEpisode = &ordinal
		}
	}

	completed, err := s.progress.CountCompleted(ctx, exec, episode.SeasonID, studentID)
	if err != nil {
		return appErrors.Internal(err, "failed to count completed episodes")
	}
	if completed < models.EpisodesPerSeason {
		return nil
	}

	season, err := s.seasons.FindByID(ctx, exec, episode.SeasonID)
	if err != nil {
		return appErrors.Internal(err, "failed to load season")
	}
	finalize, err := s.finalizer.FinalizeWithin(ctx, exec, season, studentID)
	if err != nil {
		return err
	}
	result.Finalize = finalize
	return nil
}

// GetProgress returns the student's four episode records for a season.
func (s *ProgressionService) GetProgress(ctx context.Context, seasonID, studentID string) (*dto.SeasonProgressView, error) {
	if _, err := s.seasons.FindByID(ctx, nil, seasonID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "season not found")
		}
		return nil, appErrors.Internal(err, "failed to load season")
	}
	rows, err := s.progress.ListBySeasonStudent(ctx, nil, seasonID, studentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load progress")
	}
	if len(rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student is not enrolled in season")
	}

	view := &dto.SeasonProgressView{SeasonID: seasonID, StudentID: studentID, Episodes: make([]dto.EpisodeProgressView, 0, len(rows))}
	for i := range rows {
		row := rows[i]
		view.Episodes = append(view.Episodes, progressView(row.EpisodeID, row.EpisodeOrdinal, &row.EpisodeProgress))
	}
	view.CurrentEpisode = currentEpisode(rows)
	return view, nil
}

// CurrentEpisode returns the lowest ordinal the student can work on, or nil
// when every episode is completed or still locked.
func (s *ProgressionService) CurrentEpisode(ctx context.Context, seasonID, studentID string) (*int, error) {
	view, err := s.GetProgress(ctx, seasonID, studentID)
	if err != nil {
		return nil, err
	}
	return view.CurrentEpisode, nil
}

func currentEpisode(rows []models.EpisodeProgressDetail) *int {
	var current *int
	for i := range rows {
		row := rows[i]
		if row.Status != models.EpisodeStatusUnlocked && row.Status != models.EpisodeStatusInProgress {
			continue
		}
		if current == nil || row.EpisodeOrdinal < *current {
			ordinal := row.EpisodeOrdinal
			current = &ordinal
		}
	}
	return current
}

func progressView(episodeID string, ordinal int, p *models.EpisodeProgress) dto.EpisodeProgressView {
	tasks, _ := models.TasksForOrdinal(ordinal)
	states := make([]dto.TaskState, 0, len(tasks))
	for _, task := range tasks {
		states = append(states, dto.TaskState{Task: task, Completed: p.TaskDone(task)})
	}
	return dto.EpisodeProgressView{
		EpisodeID:   episodeID,
		Ordinal:     ordinal,
		Status:      p.Status,
		Tasks:       states,
		StartedAt:   p.StartedAt,
		CompletedAt: p.CompletedAt,
	}
}
