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

type seasonRepository interface {
	List(ctx context.Context, filter models.SeasonFilter) ([]models.Season, int, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Season, error)
	FindActive(ctx context.Context, exec sqlx.ExtContext) (*models.Season, error)
	LockActive(ctx context.Context, exec sqlx.ExtContext, excludeID string) ([]string, error)
	ExistsByOrdinal(ctx context.Context, exec sqlx.ExtContext, ordinal int) (bool, error)
	Create(ctx context.Context, exec sqlx.ExtContext, season *models.Season) error
	Update(ctx context.Context, exec sqlx.ExtContext, season *models.Season) error
	SetActive(ctx context.Context, exec sqlx.ExtContext, id string, active bool) error
}

type episodeWriter interface {
	CreateBatch(ctx context.Context, exec sqlx.ExtContext, episodes []models.Episode) error
	UpdateWindows(ctx context.Context, exec sqlx.ExtContext, episodes []models.Episode) error
	ListBySeason(ctx context.Context, exec sqlx.ExtContext, seasonID string) ([]models.Episode, error)
}

type progressSeeder interface {
	Ensure(ctx context.Context, exec sqlx.ExtContext, studentID, episodeID string, status models.EpisodeStatus) (bool, error)
}

type studentDirectory interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Student, error)
	ListActive(ctx context.Context, exec sqlx.ExtContext) ([]models.Student, error)
}

type legacyOnboarder interface {
	Ensure(ctx context.Context, studentID string) (*models.LegacyScore, error)
}

// SeasonService administers seasons, their episodes and enrollment.
type SeasonService struct {
	seasons   seasonRepository
	episodes  episodeWriter
	progress  progressSeeder
	students  studentDirectory
	legacy    legacyOnboarder
	tx        txProvider
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSeasonService constructs the season administration service.
func NewSeasonService(
	seasons seasonRepository,
	episodes episodeWriter,
	progress progressSeeder,
	students studentDirectory,
	legacy legacyOnboarder,
	tx txProvider,
	validate *validator.Validate,
	logger *zap.Logger,
) *SeasonService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeasonService{
		seasons:   seasons,
		episodes:  episodes,
		progress:  progress,
		students:  students,
		legacy:    legacy,
		tx:        tx,
		validator: validate,
		logger:    logger,
	}
}

// List returns seasons with pagination.
func (s *SeasonService) List(ctx context.Context, filter models.SeasonFilter) ([]models.Season, *models.Pagination, error) {
	filter.PageRequest = filter.PageRequest.Normalize()
	seasons, total, err := s.seasons.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list seasons")
	}
	return seasons, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns a season by id.
func (s *SeasonService) Get(ctx context.Context, id string) (*models.Season, error) {
	season, err := s.seasons.FindByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "season not found")
		}
		return nil, appErrors.Internal(err, "failed to load season")
	}
	return season, nil
}

// GetActive returns the single active season.
func (s *SeasonService) GetActive(ctx context.Context) (*models.Season, error) {
	season, err := s.seasons.FindActive(ctx, nil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active season")
		}
		return nil, appErrors.Internal(err, "failed to load active season")
	}
	return season, nil
}

// Create inserts a season with its four episodes and opens progress rows for every
// active student, all in one transaction.
func (s *SeasonService) Create(ctx context.Context, req dto.CreateSeasonRequest) (*models.Season, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid season payload")
	}
	if err := validateSeasonDates(req.StartDate, req.EndDate); err != nil {
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

	exists, err := s.seasons.ExistsByOrdinal(ctx, tx, req.Ordinal)
	if err != nil {
		err = appErrors.Internal(err, "failed to check season ordinal")
		return nil, err
	}
	if exists {
		err = appErrors.Clone(appErrors.ErrConflict, "season ordinal already exists")
		return nil, err
	}
	if req.IsActive {
		if err = s.ensureNoOtherActive(ctx, tx, ""); err != nil {
			return nil, err
		}
	}

	season := &models.Season{
		Ordinal:   req.Ordinal,
		Name:      req.Name,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		IsActive:  req.IsActive,
	}
	if err = s.seasons.Create(ctx, tx, season); err != nil {
		err = appErrors.Internal(err, "failed to create season")
		return nil, err
	}

	episodes := make([]models.Episode, 0, models.EpisodesPerSeason)
	for i := 1; i <= models.EpisodesPerSeason; i++ {
		episodes = append(episodes, models.Episode{SeasonID: season.ID, Ordinal: i})
	}
	splitEpisodes(*season, episodes)
	if err = s.episodes.CreateBatch(ctx, tx, episodes); err != nil {
		err = appErrors.Internal(err, "failed to create episodes")
		return nil, err
	}

	students, err := s.students.ListActive(ctx, tx)
	if err != nil {
		err = appErrors.Internal(err, "failed to list students")
		return nil, err
	}
	for _, student := range students {
		if _, err = s.seed(ctx, tx, student.ID, episodes); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Internal(err, "failed to commit season")
		return nil, err
	}

	s.logger.Info("season created",
		zap.String("season_id", season.ID),
		zap.Int("ordinal", season.Ordinal),
		zap.Int("students", len(students)),
		zap.Bool("active", season.IsActive))
	return season, nil
}

// Update edits the dates and active flag of a season.
func (s *SeasonService) Update(ctx context.Context, id string, req dto.UpdateSeasonRequest) (*models.Season, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid season payload")
	}
	if err := validateSeasonDates(req.StartDate, req.EndDate); err != nil {
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

	season, err := s.seasons.FindByID(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrNotFound, "season not found")
			return nil, err
		}
		err = appErrors.Internal(err, "failed to load season")
		return nil, err
	}
	season.StartDate = req.StartDate
	season.EndDate = req.EndDate
	if req.IsActive != nil {
		if *req.IsActive && !season.IsActive {
			if err = s.ensureNoOtherActive(ctx, tx, season.ID); err != nil {
				return nil, err
			}
		}
		season.IsActive = *req.IsActive
	}
	if err = s.seasons.Update(ctx, tx, season); err != nil {
		err = appErrors.Internal(err, "failed to update season")
		return nil, err
	}

	episodes, err := s.episodes.ListBySeason(ctx, tx, season.ID)
	if err != nil {
		err = appErrors.Internal(err, "failed to load episodes")
		return nil, err
	}
	splitEpisodes(*season, episodes)
	if err = s.episodes.UpdateWindows(ctx, tx, episodes); err != nil {
		err = appErrors.Internal(err, "failed to update episode windows")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Internal(err, "failed to commit season")
		return nil, err
	}
	return season, nil
}

// Activate makes the season the active one. Another active season is a conflict.
func (s *SeasonService) Activate(ctx context.Context, id string) (*models.Season, error) {
	return s.setActive(ctx, id, true)
}

// Deactivate clears the active flag.
func (s *SeasonService) Deactivate(ctx context.Context, id string) (*models.Season, error) {
	return s.setActive(ctx, id, false)
}

func (s *SeasonService) setActive(ctx context.Context, id string, active bool) (*models.Season, error) {
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

	season, err := s.seasons.FindByID(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrNotFound, "season not found")
			return nil, err
		}
		err = appErrors.Internal(err, "failed to load season")
		return nil, err
	}
	if season.IsActive == active {
		if err = tx.Commit(); err != nil {
			err = appErrors.Internal(err, "failed to commit season")
			return nil, err
		}
		return season, nil
	}
	if active {
		if err = s.ensureNoOtherActive(ctx, tx, season.ID); err != nil {
			return nil, err
		}
	}
	if err = s.seasons.SetActive(ctx, tx, season.ID, active); err != nil {
		err = appErrors.Internal(err, "failed to update season")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Internal(err, "failed to commit season")
		return nil, err
	}
	season.IsActive = active
	s.logger.Info("season activation changed", zap.String("season_id", season.ID), zap.Bool("active", active))
	return season, nil
}

// EnrollStudent opens the four progress rows for a student who joined after the
// season was created. Existing rows are left alone so the call can be retried.
func (s *SeasonService) EnrollStudent(ctx context.Context, seasonID, studentID string) (*dto.EnrollmentResult, error) {
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
	if _, err = s.students.FindByID(ctx, tx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrNotFound, "student not found")
			return nil, err
		}
		err = appErrors.Internal(err, "failed to load student")
		return nil, err
	}
	episodes, err := s.episodes.ListBySeason(ctx, tx, seasonID)
	if err != nil {
		err = appErrors.Internal(err, "failed to list episodes")
		return nil, err
	}
	created, err := s.seed(ctx, tx, studentID, episodes)
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Internal(err, "failed to commit enrollment")
		return nil, err
	}

	if s.legacy != nil {
		if _, lerr := s.legacy.Ensure(ctx, studentID); lerr != nil {
			s.logger.Warn("legacy onboarding failed", zap.String("student_id", studentID), zap.Error(lerr))
		}
	}
	return &dto.EnrollmentResult{SeasonID: seasonID, StudentID: studentID, Created: created}, nil
}

func (s *SeasonService) seed(ctx context.Context, exec sqlx.ExtContext, studentID string, episodes []models.Episode) (int, error) {
	created := 0
	for _, episode := range episodes {
		ok, err := s.progress.Ensure(ctx, exec, studentID, episode.ID, models.InitialStatus(episode.Ordinal))
		if err != nil {
			return 0, appErrors.Internal(err, "failed to open episode progress")
		}
		if ok {
			created++
		}
	}
	return created, nil
}

func (s *SeasonService) ensureNoOtherActive(ctx context.Context, exec sqlx.ExtContext, excludeID string) error {
	active, err := s.seasons.LockActive(ctx, exec, excludeID)
	if err != nil {
		return appErrors.Internal(err, "failed to check active seasons")
	}
	if len(active) > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "another season is already active")
	}
	return nil
}

// validateSeasonDates requires at least one calendar day per episode.
func validateSeasonDates(start, end time.Time) error {
	if !start.Before(end) {
		return appErrors.Clone(appErrors.ErrValidation, "start_date must be before end_date")
	}
	span := models.Season{StartDate: start, EndDate: end}
	if span.LengthDays() < models.EpisodesPerSeason {
		return appErrors.Clone(appErrors.ErrValidation, "season must span at least one day per episode")
	}
	return nil
}

// splitEpisodes assigns each episode its slice of the season by ordinal. Episode
// end dates are inclusive.
func splitEpisodes(season models.Season, episodes []models.Episode) {
	windows := season.EpisodeWindows()
	for i := range episodes {
		ordinal := episodes[i].Ordinal
		if ordinal < 1 || ordinal > models.EpisodesPerSeason {
			continue
		}
		window := windows[ordinal-1]
		episodes[i].StartDate = window.Start
		episodes[i].EndDate = window.End.AddDate(0, 0, -1)
	}
}
