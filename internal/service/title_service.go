package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/ms-lokesh/cohort-summit-api/internal/dto"
	"github.com/ms-lokesh/cohort-summit-api/internal/models"
	appErrors "github.com/ms-lokesh/cohort-summit-api/pkg/errors"
)

type titleRepository interface {
	List(ctx context.Context) ([]models.Title, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Title, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, title *models.Title) error
	FindOwnership(ctx context.Context, exec sqlx.ExtContext, studentID, titleID string) (*models.StudentTitle, error)
	CreateOwnership(ctx context.Context, exec sqlx.ExtContext, owned *models.StudentTitle) error
	UnequipAll(ctx context.Context, exec sqlx.ExtContext, studentID string) error
	Equip(ctx context.Context, exec sqlx.ExtContext, ownershipID string) error
	ListOwned(ctx context.Context, studentID string) ([]models.OwnedTitle, error)
	FindEquipped(ctx context.Context, studentID string) (*models.OwnedTitle, error)
}

type ledgerDebitor interface {
	Debit(ctx context.Context, exec sqlx.ExtContext, studentID string, amount int, reason string) (bool, *models.RewardWallet, error)
	RecordMovement(txType models.TransactionType, amount int)
}

// TitleService runs the title catalog and the spend side of the reward economy.
type TitleService struct {
	titles    titleRepository
	ledger    ledgerDebitor
	tx        txProvider
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTitleService constructs the title economy service.
func NewTitleService(titles titleRepository, ledger ledgerDebitor, tx txProvider, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *TitleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TitleService{titles: titles, ledger: ledger, tx: tx, metrics: metrics, validator: validate, logger: logger}
}

// List returns the catalog.
func (s *TitleService) List(ctx context.Context) ([]models.Title, error) {
	titles, err := s.titles.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list titles")
	}
	return titles, nil
}

// Create adds a catalog item.
func (s *TitleService) Create(ctx context.Context, req dto.CreateTitleRequest) (*models.Title, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid title payload")
	}
	exists, err := s.titles.ExistsByName(ctx, req.Name)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check title name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "title name already exists")
	}
	title := &models.Title{Name: req.Name, Description: req.Description, Cost: req.Cost, Rarity: req.Rarity}
	if err := s.titles.Create(ctx, title); err != nil {
		return nil, appErrors.Internal(err, "failed to create title")
	}
	return title, nil
}

// Redeem buys a title with reward credits. An insufficient balance rolls the
// whole unit back so neither the wallet nor the ledger changes.
func (s *TitleService) Redeem(ctx context.Context, studentID, titleID string) (*dto.RedeemResult, error) {
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

	title, err := s.titles.FindByID(ctx, tx, titleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrNotFound, "title not found")
			return nil, err
		}
		err = appErrors.Internal(err, "failed to load title")
		return nil, err
	}
	if err = s.ensureNotOwned(ctx, tx, studentID, titleID); err != nil {
		return nil, err
	}

	ok, wallet, err := s.ledger.Debit(ctx, tx, studentID, title.Cost, models.RedeemReason(*title))
	if err != nil {
		return nil, err
	}
	if !ok {
		err = appErrors.Clone(appErrors.ErrInsufficientBalance, "insufficient reward credits to redeem "+title.Name)
		return nil, err
	}
	// Debit holds the wallet row lock, so a redemption committed by a
	// concurrent request for the same student is visible from here on.
	if err = s.ensureNotOwned(ctx, tx, studentID, titleID); err != nil {
		return nil, err
	}

	owned := &models.StudentTitle{StudentID: studentID, TitleID: title.ID}
	if err = s.titles.CreateOwnership(ctx, tx, owned); err != nil {
		if isUniqueViolation(err) {
			err = appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "title already owned")
			return nil, err
		}
		err = appErrors.Internal(err, "failed to record title ownership")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Internal(err, "failed to commit redemption")
		return nil, err
	}

	s.ledger.RecordMovement(models.TransactionSpend, title.Cost)
	s.metrics.RecordTitleRedeemed()
	s.logger.Info("title redeemed",
		zap.String("student_id", studentID),
		zap.String("title_id", title.ID),
		zap.Int("cost", title.Cost),
		zap.Int("available", wallet.Available))
	return &dto.RedeemResult{Title: *owned, Wallet: *wallet}, nil
}

func (s *TitleService) ensureNotOwned(ctx context.Context, exec sqlx.ExtContext, studentID, titleID string) error {
	_, err := s.titles.FindOwnership(ctx, exec, studentID, titleID)
	if err == nil {
		return appErrors.Clone(appErrors.ErrConflict, "title already owned")
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Internal(err, "failed to check ownership")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// Equip makes an owned title the student's single equipped title.
func (s *TitleService) Equip(ctx context.Context, studentID, titleID string) (*models.StudentTitle, error) {
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

	owned, err := s.titles.FindOwnership(ctx, tx, studentID, titleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrForbidden, "title is not owned")
			return nil, err
		}
		err = appErrors.Internal(err, "failed to check ownership")
		return nil, err
	}
	if err = s.titles.UnequipAll(ctx, tx, studentID); err != nil {
		err = appErrors.Internal(err, "failed to unequip titles")
		return nil, err
	}
	if err = s.titles.Equip(ctx, tx, owned.ID); err != nil {
		err = appErrors.Internal(err, "failed to equip title")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Internal(err, "failed to commit equip")
		return nil, err
	}
	owned.IsEquipped = true
	return owned, nil
}

// ListOwned returns the student's titles.
func (s *TitleService) ListOwned(ctx context.Context, studentID string) ([]models.OwnedTitle, error) {
	owned, err := s.titles.ListOwned(ctx, studentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list owned titles")
	}
	return owned, nil
}

// Equipped returns the name of the student's equipped title, or "" when none.
func (s *TitleService) Equipped(ctx context.Context, studentID string) (string, error) {
	owned, err := s.titles.FindEquipped(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", appErrors.Internal(err, "failed to load equipped title")
	}
	return owned.Name, nil
}
