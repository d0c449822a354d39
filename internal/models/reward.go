package models

import "time"

// RewardWallet holds a student's spendable credits. Available always equals
// LifetimeEarned minus LifetimeSpent.
type RewardWallet struct {
	ID             string    `db:"id" json:"id"`
	StudentID      string    `db:"student_id" json:"student_id"`
	Available      int       `db:"available" json:"available"`
	LifetimeEarned int       `db:"lifetime_earned" json:"lifetime_earned"`
	LifetimeSpent  int       `db:"lifetime_spent" json:"lifetime_spent"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Balanced checks the wallet invariant.
func (w RewardWallet) Balanced() bool {
	return w.Available == w.LifetimeEarned-w.LifetimeSpent && w.Available >= 0
}

// TransactionType distinguishes ledger rows.
type TransactionType string

const (
	TransactionEarn  TransactionType = "earn"
	TransactionSpend TransactionType = "spend"
)

// RewardTransaction is an append-only ledger row.
type RewardTransaction struct {
	ID        string          `db:"id" json:"id"`
	WalletID  string          `db:"wallet_id" json:"wallet_id"`
	Type      TransactionType `db:"type" json:"type"`
	Amount    int             `db:"amount" json:"amount"`
	Reason    string          `db:"reason" json:"reason"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// LedgerTotals are the per-type sums of a wallet's transaction log.
type LedgerTotals struct {
	Earned int `db:"earned" json:"earned"`
	Spent  int `db:"spent" json:"spent"`
}

// Reconciliation compares a wallet with its ledger.
type Reconciliation struct {
	Wallet   RewardWallet `json:"wallet"`
	Ledger   LedgerTotals `json:"ledger"`
	Balanced bool         `json:"balanced"`
}
