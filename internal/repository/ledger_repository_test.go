package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admission-agent-api/internal/models"
)

var applicationRowColumns = []string{"id", "student_id", "university_id", "status", "auto_apply_enabled", "applied_at", "transaction_id", "marks_required", "marks_obtained", "created_at", "updated_at"}

func paymentParams() PaymentParams {
	return PaymentParams{
		ApplicationID: "app-1",
		StudentID:     "stu-1",
		Fee:           500,
		Reference:     "TXN-20240115-000042",
		Description:   "Application fee - Dhaka University",
		Notification: models.Notification{
			Type:    models.NotificationPayment,
			Title:   "Payment Successful",
			Message: "Application fee paid for Dhaka University. Transaction completed successfully.",
		},
		Now: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
	}
}

func TestLedgerApplyPaymentDeductsAndSubmits(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLedgerRepository(db)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM applications WHERE id = \\$1 AND student_id = \\$2 FOR UPDATE").
		WithArgs("app-1", "stu-1").
		WillReturnRows(sqlmock.NewRows(applicationRowColumns).AddRow("app-1", "stu-1", "uni-1", "pending", true, nil, nil, 60, 70, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT current_balance FROM students WHERE id = $1 FOR UPDATE")).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"current_balance"}).AddRow(2000))
	mock.ExpectExec("INSERT INTO transactions").
		WithArgs(sqlmock.AnyArg(), "stu-1", int64(500), "deduction", "Application fee - Dhaka University", int64(1500), "TXN-20240115-000042", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET current_balance = $2")).
		WithArgs("stu-1", int64(1500), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE applications SET status = $2, applied_at = $3, transaction_id = $4")).
		WithArgs("app-1", "submitted", sqlmock.AnyArg(), "TXN-20240115-000042").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO notifications").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	result, err := repo.ApplyPayment(context.Background(), paymentParams())
	require.NoError(t, err)
	assert.Equal(t, int64(1500), result.BalanceAfter)
	require.NotNil(t, result.Transaction)
	assert.Equal(t, models.TransactionDeduction, result.Transaction.Type)
	assert.Equal(t, models.ApplicationStatusSubmitted, result.Application.Status)
	assert.Equal(t, "stu-1", result.Notification.StudentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerApplyPaymentAllowsNegativeBalance(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLedgerRepository(db)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM applications").
		WillReturnRows(sqlmock.NewRows(applicationRowColumns).AddRow("app-1", "stu-1", "uni-1", "pending", true, nil, nil, 60, 70, now, now))
	mock.ExpectQuery("SELECT current_balance FROM students").
		WillReturnRows(sqlmock.NewRows([]string{"current_balance"}).AddRow(100))
	mock.ExpectExec("INSERT INTO transactions").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE students SET current_balance").
		WithArgs("stu-1", int64(-400), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE applications SET status").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO notifications").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	result, err := repo.ApplyPayment(context.Background(), paymentParams())
	require.NoError(t, err)
	assert.Equal(t, int64(-400), result.BalanceAfter)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerApplyPaymentRejectsPaidApplication(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLedgerRepository(db)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM applications").
		WillReturnRows(sqlmock.NewRows(applicationRowColumns).AddRow("app-1", "stu-1", "uni-1", "submitted", true, now, "TXN-20240101-000001", 60, 70, now, now))
	mock.ExpectRollback()

	_, err := repo.ApplyPayment(context.Background(), paymentParams())
	assert.ErrorIs(t, err, ErrAlreadyPaid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerApplyPaymentRollsBackOnNotificationFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLedgerRepository(db)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM applications").
		WillReturnRows(sqlmock.NewRows(applicationRowColumns).AddRow("app-1", "stu-1", "uni-1", "pending", true, nil, nil, 60, 70, now, now))
	mock.ExpectQuery("SELECT current_balance FROM students").
		WillReturnRows(sqlmock.NewRows([]string{"current_balance"}).AddRow(2000))
	mock.ExpectExec("INSERT INTO transactions").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE students SET current_balance").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE applications SET status").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO notifications").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := repo.ApplyPayment(context.Background(), paymentParams())
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerApplyRecharge(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLedgerRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT current_balance FROM students").
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"current_balance"}).AddRow(10000))
	mock.ExpectExec("INSERT INTO transactions").
		WithArgs(sqlmock.AnyArg(), "stu-1", int64(2500), "recharge", "Wallet recharge via bKash", int64(12500), "TXN-20240115-000001", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE students SET current_balance").
		WithArgs("stu-1", int64(12500), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	txn, err := repo.ApplyRecharge(context.Background(), RechargeParams{
		StudentID:   "stu-1",
		Amount:      2500,
		Reference:   "TXN-20240115-000001",
		Description: "Wallet recharge via bKash",
		Now:         time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(12500), txn.BalanceAfter)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerApplyPaymentRetriesTakenReference(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLedgerRepository(db)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM applications").
		WillReturnRows(sqlmock.NewRows(applicationRowColumns).AddRow("app-1", "stu-1", "uni-1", "pending", true, nil, nil, 60, 70, now, now))
	mock.ExpectQuery("SELECT current_balance FROM students").
		WillReturnRows(sqlmock.NewRows([]string{"current_balance"}).AddRow(2000))
	mock.ExpectExec(`(?s)INSERT INTO transactions.+ON CONFLICT \(transaction_id\) DO NOTHING`).
		WithArgs(sqlmock.AnyArg(), "stu-1", int64(500), "deduction", sqlmock.AnyArg(), int64(1500), "TXN-20240115-000042", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO transactions").
		WithArgs(sqlmock.AnyArg(), "stu-1", int64(500), "deduction", sqlmock.AnyArg(), int64(1500), "TXN-20240115-777777", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE students SET current_balance").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE applications SET status").
		WithArgs("app-1", "submitted", sqlmock.AnyArg(), "TXN-20240115-777777").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO notifications").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	params := paymentParams()
	params.NextReference = func() string { return "TXN-20240115-777777" }
	result, err := repo.ApplyPayment(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, "TXN-20240115-777777", result.Transaction.TransactionID)
	require.NotNil(t, result.Application.TransactionID)
	assert.Equal(t, "TXN-20240115-777777", *result.Application.TransactionID)
	require.NotNil(t, result.Notification.TransactionID)
	assert.Equal(t, "TXN-20240115-777777", *result.Notification.TransactionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerApplyRechargeGivesUpAfterRepeatedCollisions(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLedgerRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT current_balance FROM students").
		WillReturnRows(sqlmock.NewRows([]string{"current_balance"}).AddRow(10000))
	for i := 0; i < maxReferenceAttempts; i++ {
		mock.ExpectExec("INSERT INTO transactions").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectRollback()

	_, err := repo.ApplyRecharge(context.Background(), RechargeParams{
		StudentID:     "stu-1",
		Amount:        2500,
		Reference:     "TXN-20240115-000001",
		NextReference: func() string { return "TXN-20240115-000001" },
		Description:   "Wallet recharge via bKash",
		Now:           time.Now(),
	})
	assert.ErrorIs(t, err, ErrReferenceTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerApplyPaymentRecordsZeroFee(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLedgerRepository(db)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM applications").
		WillReturnRows(sqlmock.NewRows(applicationRowColumns).AddRow("app-1", "stu-1", "uni-1", "pending", true, nil, nil, 60, 70, now, now))
	mock.ExpectQuery("SELECT current_balance FROM students").
		WillReturnRows(sqlmock.NewRows([]string{"current_balance"}).AddRow(2000))
	mock.ExpectExec("INSERT INTO transactions").
		WithArgs(sqlmock.AnyArg(), "stu-1", int64(0), "deduction", sqlmock.AnyArg(), int64(2000), "TXN-20240115-000042", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE students SET current_balance").
		WithArgs("stu-1", int64(2000), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE applications SET status").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO notifications").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	params := paymentParams()
	params.Fee = 0
	result, err := repo.ApplyPayment(context.Background(), params)
	require.NoError(t, err)
	require.NotNil(t, result.Transaction)
	assert.Equal(t, *result.Application.TransactionID, result.Transaction.TransactionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
