package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ms-lokesh/cohort-summit-api/internal/models"
	appErrors "github.com/ms-lokesh/cohort-summit-api/pkg/errors"
)

type walletRepository interface {
	Ensure(ctx context.Context, exec sqlx.ExtContext, studentID string) error
	LockForUpdate(ctx context.Context, exec sqlx.ExtContext, studentID string) (*models.RewardWallet, error)
	FindByStudent(ctx context.Context, studentID string) (*models.RewardWallet, error)
	ApplyBalance(ctx context.Context, exec sqlx.ExtContext, wallet *models.RewardWallet) error
	InsertTransaction(ctx context.Context, exec sqlx.ExtContext, txn *models.RewardTransaction) error
	ListTransactions(ctx context.Context, walletID string, page models.PageRequest) ([]models.RewardTransaction, int, error)
	LedgerTotals(ctx context.Context, walletID string) (*models.LedgerTotals, error)
}

// LedgerService keeps reward wallets and their transaction log in step.
// Credit and Debit run inside the caller's transaction.
type LedgerService struct {
	wallets walletRepository
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewLedgerService constructs the ledger.
func NewLedgerService(wallets walletRepository, metrics *MetricsService, logger *zap.Logger) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{wallets: wallets, metrics: metrics, logger: logger, now: time.Now}
}

// Credit adds amount to the student's wallet and appends an earn row.
func (s *LedgerService) Credit(ctx context.Context, exec sqlx.ExtContext, studentID string, amount int, reason string) (*models.RewardWallet, error) {
	if amount <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "credit amount must be positive")
	}
	wallet, err := s.lockWallet(ctx, exec, studentID)
	if err != nil {
		return nil, err
	}
	wallet.Available += amount
	wallet.LifetimeEarned += amount
	if err := s.persist(ctx, exec, wallet, models.TransactionEarn, amount, reason); err != nil {
		return nil, err
	}
	return wallet, nil
}

// Debit removes amount from the student's wallet. It returns false without
// touching any row when the balance is insufficient.
func (s *LedgerService) Debit(ctx context.Context, exec sqlx.ExtContext, studentID string, amount int, reason string) (bool, *models.RewardWallet, error) {
	if amount <= 0 {
		return false, nil, appErrors.Clone(appErrors.ErrValidation, "debit amount must be positive")
	}
	wallet, err := s.lockWallet(ctx, exec, studentID)
	if err != nil {
		return false, nil, err
	}
	if wallet.Available < amount {
		return false, wallet, nil
	}
	wallet.Available -= amount
	wallet.LifetimeSpent += amount
	if err := s.persist(ctx, exec, wallet, models.TransactionSpend, amount, reason); err != nil {
		return false, nil, err
	}
	return true, wallet, nil
}

// RecordMovement reports a committed wallet movement to metrics.
func (s *LedgerService) RecordMovement(txType models.TransactionType, amount int) {
	s.metrics.RecordCredits(txType, amount)
}

// GetWallet returns the student's wallet, or an empty one when none was opened yet.
func (s *LedgerService) GetWallet(ctx context.Context, studentID string) (*models.RewardWallet, error) {
	wallet, err := s.wallets.FindByStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.RewardWallet{StudentID: studentID}, nil
		}
		return nil, appErrors.Internal(err, "failed to load wallet")
	}
	return wallet, nil
}

// ListTransactions returns a page of the student's ledger.
func (s *LedgerService) ListTransactions(ctx context.Context, studentID string, page models.PageRequest) ([]models.RewardTransaction, *models.Pagination, error) {
	page = page.Normalize()
	wallet, err := s.wallets.FindByStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []models.RewardTransaction{}, &models.Pagination{Page: page.Page, PageSize: page.PageSize}, nil
		}
		return nil, nil, appErrors.Internal(err, "failed to load wallet")
	}
	txns, total, err := s.wallets.ListTransactions(ctx, wallet.ID, page)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list transactions")
	}
	return txns, &models.Pagination{Page: page.Page, PageSize: page.PageSize, TotalCount: total}, nil
}

// Reconcile compares the wallet counters with the sums of its transaction log.
func (s *LedgerService) Reconcile(ctx context.Context, studentID string) (*models.Reconciliation, error) {
	wallet, err := s.wallets.FindByStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "wallet not found")
		}
		return nil, appErrors.Internal(err, "failed to load wallet")
	}
	totals, err := s.wallets.LedgerTotals(ctx, wallet.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to sum ledger")
	}
	balanced := wallet.Balanced() && totals.Earned == wallet.LifetimeEarned && totals.Spent == wallet.LifetimeSpent
	if !balanced {
		s.logger.Error("wallet out of balance with ledger",
			zap.String("student_id", studentID),
			zap.Int("available", wallet.Available),
			zap.Int("earned", wallet.LifetimeEarned),
			zap.Int("spent", wallet.LifetimeSpent),
			zap.Int("ledger_earned", totals.Earned),
			zap.Int("ledger_spent", totals.Spent))
	}
	return &models.Reconciliation{Wallet: *wallet, Ledger: *totals, Balanced: balanced}, nil
}

func (s *LedgerService) lockWallet(ctx context.Context, exec sqlx.ExtContext, studentID string) (*models.RewardWallet, error) {
	if err := s.wallets.Ensure(ctx, exec, studentID); err != nil {
		return nil, appErrors.Internal(err, "failed to open wallet")
	}
	wallet, err := s.wallets.LockForUpdate(ctx, exec, studentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to lock wallet")
	}
	return wallet, nil
}

func (s *LedgerService) persist(ctx context.Context, exec sqlx.ExtContext, wallet *models.RewardWallet, txType models.TransactionType, amount int, reason string) error {
	if !wallet.Balanced() {
		return appErrors.Clone(appErrors.ErrInternal, "wallet invariant violated")
	}
	if err := s.wallets.ApplyBalance(ctx, exec, wallet); err != nil {
		return appErrors.Internal(err, "failed to update wallet")
	}
	txn := &models.RewardTransaction{
		WalletID:  wallet.ID,
		Type:      txType,
		Amount:    amount,
		Reason:    reason,
		CreatedAt: s.now().UTC(),
	}
	if err := s.wallets.InsertTransaction(ctx, exec, txn); err != nil {
		return appErrors.Internal(err, "failed to append ledger row")
	}
	return nil
}
