package models

import "time"

// TransactionType distinguishes wallet credits from debits.
type TransactionType string

const (
	TransactionRecharge  TransactionType = "recharge"
	TransactionDeduction TransactionType = "deduction"
)

// Transaction is an immutable wallet ledger entry.
type Transaction struct {
	ID            string          `db:"id" json:"id"`
	StudentID     string          `db:"student_id" json:"studentId"`
	Amount        int64           `db:"amount" json:"amount"`
	Type          TransactionType `db:"type" json:"type"`
	Description   string          `db:"description" json:"description"`
	BalanceAfter  int64           `db:"balance_after" json:"balanceAfter"`
	TransactionID string          `db:"transaction_id" json:"transactionId"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
}

// RechargeRequest tops up a wallet.
type RechargeRequest struct {
	Amount int64 `json:"amount" validate:"gt=0"`
}

// WalletSummary is the wallet overview of a student.
type WalletSummary struct {
	Balance        int64   `json:"balance"`
	TotalSpent     int64   `json:"totalSpent"`
	TotalRecharged int64   `json:"totalRecharged"`
	Presets        []int64 `json:"presets"`
}
