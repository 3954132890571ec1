package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/admission-agent-api/internal/models"
)

var (
	// ErrAlreadyPaid is returned when an application already carries a fee payment.
	ErrAlreadyPaid = errors.New("application already paid")
	// ErrReferenceTaken is returned when every generated transaction
	// reference collided with an existing ledger row.
	ErrReferenceTaken = errors.New("transaction reference already in use")
)

const maxReferenceAttempts = 5

type namedExecer interface {
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

// LedgerRepository applies wallet mutations atomically.
type LedgerRepository struct {
	db *sqlx.DB
}

// NewLedgerRepository constructs a LedgerRepository.
func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// PaymentParams describes an application fee deduction.
type PaymentParams struct {
	ApplicationID string
	StudentID     string
	Fee           int64
	Reference     string
	// NextReference replaces Reference after a collision. Nil disables retries.
	NextReference func() string
	Description   string
	Notification  models.Notification
	Now           time.Time
}

// PaymentResult reports every record written by ApplyPayment.
type PaymentResult struct {
	Application  models.Application
	Transaction  *models.Transaction
	Notification models.Notification
	BalanceAfter int64
}

// RechargeParams describes a wallet top-up.
type RechargeParams struct {
	StudentID     string
	Amount        int64
	Reference     string
	NextReference func() string
	Description   string
	Now           time.Time
}

// ApplyPayment deducts the fee, appends the deduction, submits the application
// and records the payment notification in one transaction. Balances may go
// negative. A zero fee still records a zero-amount deduction.
func (r *LedgerRepository) ApplyPayment(ctx context.Context, params PaymentParams) (result *PaymentResult, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin payment transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	lockApp := fmt.Sprintf("SELECT %s FROM applications WHERE id = $1 AND student_id = $2 FOR UPDATE", applicationColumns)
	var app models.Application
	if err = tx.GetContext(ctx, &app, lockApp, params.ApplicationID, params.StudentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock application: %w", err)
	}
	if app.HasPayment() || app.Status != models.ApplicationStatusPending {
		err = ErrAlreadyPaid
		return nil, err
	}

	var balance int64
	if err = tx.GetContext(ctx, &balance, `SELECT current_balance FROM students WHERE id = $1 FOR UPDATE`, params.StudentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock student balance: %w", err)
	}

	now := params.Now.UTC()
	result = &PaymentResult{BalanceAfter: balance - params.Fee}
	txn := &models.Transaction{
		ID:            uuid.NewString(),
		StudentID:     params.StudentID,
		Amount:        params.Fee,
		Type:          models.TransactionDeduction,
		Description:   params.Description,
		BalanceAfter:  result.BalanceAfter,
		TransactionID: params.Reference,
		CreatedAt:     now,
	}
	if err = appendLedgerEntry(ctx, tx, txn, params.NextReference); err != nil {
		return nil, err
	}
	if _, err = tx.ExecContext(ctx, `UPDATE students SET current_balance = $2, updated_at = $3 WHERE id = $1`, params.StudentID, result.BalanceAfter, now); err != nil {
		return nil, fmt.Errorf("update student balance: %w", err)
	}
	result.Transaction = txn

	reference := txn.TransactionID
	const submit = `UPDATE applications SET status = $2, applied_at = $3, transaction_id = $4, updated_at = $3 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, submit, app.ID, models.ApplicationStatusSubmitted, now, reference); err != nil {
		return nil, fmt.Errorf("submit application: %w", err)
	}
	app.Status = models.ApplicationStatusSubmitted
	app.AppliedAt = &now
	app.TransactionID = &reference
	app.UpdatedAt = now
	result.Application = app

	notification := params.Notification
	notification.StudentID = params.StudentID
	notification.TransactionID = &reference
	notification.CreatedAt = now
	if err = insertNotification(ctx, tx, &notification); err != nil {
		return nil, err
	}
	result.Notification = notification

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit payment: %w", err)
	}
	return result, nil
}

// ApplyRecharge credits the wallet and appends the recharge entry in one transaction.
func (r *LedgerRepository) ApplyRecharge(ctx context.Context, params RechargeParams) (txn *models.Transaction, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin recharge transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var balance int64
	if err = tx.GetContext(ctx, &balance, `SELECT current_balance FROM students WHERE id = $1 FOR UPDATE`, params.StudentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock student balance: %w", err)
	}

	now := params.Now.UTC()
	txn = &models.Transaction{
		ID:            uuid.NewString(),
		StudentID:     params.StudentID,
		Amount:        params.Amount,
		Type:          models.TransactionRecharge,
		Description:   params.Description,
		BalanceAfter:  balance + params.Amount,
		TransactionID: params.Reference,
		CreatedAt:     now,
	}
	if err = appendLedgerEntry(ctx, tx, txn, params.NextReference); err != nil {
		return nil, err
	}
	if _, err = tx.ExecContext(ctx, `UPDATE students SET current_balance = $2, updated_at = $3 WHERE id = $1`, params.StudentID, txn.BalanceAfter, now); err != nil {
		return nil, fmt.Errorf("update student balance: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit recharge: %w", err)
	}
	return txn, nil
}

// ListTransactions returns a student's ledger, newest first.
func (r *LedgerRepository) ListTransactions(ctx context.Context, studentID string) ([]models.Transaction, error) {
	const query = `SELECT id, student_id, amount, type, description, balance_after, transaction_id, created_at FROM transactions WHERE student_id = $1 ORDER BY created_at DESC`
	var txns []models.Transaction
	if err := r.db.SelectContext(ctx, &txns, query, studentID); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txns, nil
}

// appendLedgerEntry inserts txn, drawing a fresh reference from next while the
// current one is already taken.
func appendLedgerEntry(ctx context.Context, exec namedExecer, txn *models.Transaction, next func() string) error {
	for attempt := 1; ; attempt++ {
		inserted, err := insertTransaction(ctx, exec, txn)
		if err != nil {
			return err
		}
		if inserted {
			return nil
		}
		if next == nil || attempt == maxReferenceAttempts {
			return fmt.Errorf("insert transaction %s: %w", txn.TransactionID, ErrReferenceTaken)
		}
		txn.TransactionID = next()
	}
}

// insertTransaction reports false when the reference already exists. The
// conflict is absorbed so the surrounding transaction stays usable.
func insertTransaction(ctx context.Context, exec namedExecer, txn *models.Transaction) (bool, error) {
	const query = `INSERT INTO transactions (id, student_id, amount, type, description, balance_after, transaction_id, created_at)
VALUES (:id, :student_id, :amount, :type, :description, :balance_after, :transaction_id, :created_at)
ON CONFLICT (transaction_id) DO NOTHING`
	res, err := exec.NamedExecContext(ctx, query, txn)
	if err != nil {
		return false, fmt.Errorf("insert transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert transaction: %w", err)
	}
	return affected > 0, nil
}
