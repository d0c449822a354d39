package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ms-lokesh/cohort-summit-api/internal/models"
)

const walletColumns = `id, student_id, available, lifetime_earned, lifetime_spent, created_at, updated_at`

// WalletRepository persists reward wallets and their append-only transaction log.
type WalletRepository struct {
	db *sqlx.DB
}

// NewWalletRepository constructs the repository.
func NewWalletRepository(db *sqlx.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Ensure creates the student's wallet unless it exists.
func (r *WalletRepository) Ensure(ctx context.Context, exec sqlx.ExtContext, studentID string) error {
	now := time.Now().UTC()
	const query = `INSERT INTO reward_wallets (id, student_id, created_at, updated_at)
VALUES ($1, $2, $3, $3)
ON CONFLICT (student_id) DO NOTHING`
	if _, err := r.exec(exec).ExecContext(ctx, query, uuid.NewString(), studentID, now); err != nil {
		return fmt.Errorf("ensure reward wallet: %w", err)
	}
	return nil
}

// LockForUpdate loads the student's wallet holding a row lock.
func (r *WalletRepository) LockForUpdate(ctx context.Context, exec sqlx.ExtContext, studentID string) (*models.RewardWallet, error) {
	query := `SELECT ` + walletColumns + ` FROM reward_wallets WHERE student_id = $1 FOR UPDATE`
	var wallet models.RewardWallet
	if err := sqlx.GetContext(ctx, r.exec(exec), &wallet, query, studentID); err != nil {
		return nil, err
	}
	return &wallet, nil
}

// FindByStudent loads the student's wallet.
func (r *WalletRepository) FindByStudent(ctx context.Context, studentID string) (*models.RewardWallet, error) {
	query := `SELECT ` + walletColumns + ` FROM reward_wallets WHERE student_id = $1`
	var wallet models.RewardWallet
	if err := r.db.GetContext(ctx, &wallet, query, studentID); err != nil {
		return nil, err
	}
	return &wallet, nil
}

// ApplyBalance writes the wallet counters.
func (r *WalletRepository) ApplyBalance(ctx context.Context, exec sqlx.ExtContext, wallet *models.RewardWallet) error {
	wallet.UpdatedAt = time.Now().UTC()
	const query = `UPDATE reward_wallets SET available = $1, lifetime_earned = $2, lifetime_spent = $3, updated_at = $4
WHERE id = $5`
	if _, err := r.exec(exec).ExecContext(ctx, query, wallet.Available, wallet.LifetimeEarned, wallet.LifetimeSpent,
		wallet.UpdatedAt, wallet.ID); err != nil {
		return fmt.Errorf("update reward wallet: %w", err)
	}
	return nil
}

// InsertTransaction appends a ledger row.
func (r *WalletRepository) InsertTransaction(ctx context.Context, exec sqlx.ExtContext, txn *models.RewardTransaction) error {
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO reward_transactions (id, wallet_id, type, amount, reason, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.exec(exec).ExecContext(ctx, query, txn.ID, txn.WalletID, txn.Type, txn.Amount, txn.Reason, txn.CreatedAt); err != nil {
		return fmt.Errorf("insert reward transaction: %w", err)
	}
	return nil
}

// ListTransactions returns a page of a wallet's ledger, newest first.
func (r *WalletRepository) ListTransactions(ctx context.Context, walletID string, page models.PageRequest) ([]models.RewardTransaction, int, error) {
	page = page.Normalize()
	query := fmt.Sprintf(`SELECT id, wallet_id, type, amount, reason, created_at FROM reward_transactions
WHERE wallet_id = $1 ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d`, page.PageSize, page.Offset())
	var txns []models.RewardTransaction
	if err := r.db.SelectContext(ctx, &txns, query, walletID); err != nil {
		return nil, 0, fmt.Errorf("list reward transactions: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM reward_transactions WHERE wallet_id = $1`, walletID); err != nil {
		return nil, 0, fmt.Errorf("count reward transactions: %w", err)
	}
	return txns, total, nil
}

// LedgerTotals sums the wallet's earn and spend rows.
func (r *WalletRepository) LedgerTotals(ctx context.Context, walletID string) (*models.LedgerTotals, error) {
	const query = `SELECT
COALESCE(SUM(CASE WHEN type = 'earn' THEN amount ELSE 0 END), 0) AS earned,
COALESCE(SUM(CASE WHEN type = 'spend' THEN amount ELSE 0 END), 0) AS spent
FROM reward_transactions WHERE wallet_id = $1`
	var totals models.LedgerTotals
	if err := r.db.GetContext(ctx, &totals, query, walletID); err != nil {
		return nil, fmt.Errorf("sum reward transactions: %w", err)
	}
	return &totals, nil
}
