package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/admission-agent-api/internal/models"
	"github.com/noah-isme/admission-agent-api/internal/repository"
	"github.com/noah-isme/admission-agent-api/pkg/config"
	appErrors "github.com/noah-isme/admission-agent-api/pkg/errors"
	"github.com/noah-isme/admission-agent-api/pkg/export"
)

const defaultRechargeDescription = "Wallet recharge via bKash"

var defaultRechargePresets = []int64{1000, 2500, 5000, 10000}

type walletLedger interface {
	ApplyRecharge(ctx context.Context, params repository.RechargeParams) (*models.Transaction, error)
	ListTransactions(ctx context.Context, studentID string) ([]models.Transaction, error)
}

type profileFinder interface {
	FindByUserID(ctx context.Context, userID string) (*models.StudentProfile, error)
}

type datasetCSVRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type datasetPDFRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// Statement is a rendered ledger export.
type Statement struct {
	Filename    string
	ContentType string
	Body        []byte
}

// WalletService manages student balances and the transaction ledger.
type WalletService struct {
	ledger    walletLedger
	students  profileFinder
	metrics   *MetricsService
	csv       datasetCSVRenderer
	pdf       datasetPDFRenderer
	cfg       config.WalletConfig
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	reference ReferenceGenerator
}

// NewWalletService constructs a WalletService.
func NewWalletService(ledger walletLedger, students profileFinder, metrics *MetricsService, cfg config.WalletConfig, validate *validator.Validate, logger *zap.Logger) *WalletService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.Presets) == 0 {
		cfg.Presets = defaultRechargePresets
	}
	if cfg.RechargeDescription == "" {
		cfg.RechargeDescription = defaultRechargeDescription
	}
	return &WalletService{
		ledger:    ledger,
		students:  students,
		metrics:   metrics,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		cfg:       cfg,
		validator: validate,
		logger:    logger,
		now:       time.Now,
		reference: NewTransactionReference,
	}
}

// Presets lists the quick recharge amounts.
func (s *WalletService) Presets() []int64 {
	out := make([]int64, len(s.cfg.Presets))
	copy(out, s.cfg.Presets)
	return out
}

// ParseCustomAmount reads a user-typed amount. Anything that is not an
// integer yields 0.
func ParseCustomAmount(raw string) int64 {
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return value
}

// Recharge credits the signed-in student's wallet after the gateway delay.
func (s *WalletService) Recharge(ctx context.Context, userID string, req models.RechargeRequest) (*models.Transaction, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "amount must be greater than zero")
	}
	student, err := s.profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.cfg.RechargeDelay > 0 {
		timer := time.NewTimer(s.cfg.RechargeDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, appErrors.Wrap(ctx.Err(), appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "recharge cancelled")
		case <-timer.C:
		}
	}

	now := s.now()
	txn, err := s.ledger.ApplyRecharge(ctx, repository.RechargeParams{
		StudentID:     student.ID,
		Amount:        req.Amount,
		Reference:     s.reference(now),
		NextReference: func() string { return s.reference(now) },
		Description:   s.cfg.RechargeDescription,
		Now:           now,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrProfileNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to recharge wallet")
	}
	s.metrics.ObserveWalletTransaction(models.TransactionRecharge)
	s.logger.Sugar().Infow("wallet recharged",
		"student_id", student.ID,
		"amount", req.Amount,
		"balance_after", txn.BalanceAfter,
		"transaction_id", txn.TransactionID,
	)
	return txn, nil
}

// Transactions returns the ledger of the signed-in student, newest first.
func (s *WalletService) Transactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	student, err := s.profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	txns, err := s.ledger.ListTransactions(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list transactions")
	}
	if txns == nil {
		txns = []models.Transaction{}
	}
	return txns, nil
}

// Summary reports balance and lifetime totals.
func (s *WalletService) Summary(ctx context.Context, userID string) (*models.WalletSummary, error) {
	student, err := s.profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	txns, err := s.ledger.ListTransactions(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list transactions")
	}
	return &models.WalletSummary{
		Balance:        student.CurrentBalance,
		TotalSpent:     TotalSpent(txns),
		TotalRecharged: TotalRecharged(txns),
		Presets:        s.Presets(),
	}, nil
}

// Statement renders the ledger as csv or pdf.
func (s *WalletService) Statement(ctx context.Context, userID, format string) (*Statement, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	txns, err := s.Transactions(ctx, userID)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Headers:  []string{"Date", "Reference", "Type", "Description", "Amount", "Balance After"},
		Numeric:  []string{"Amount", "Balance After"},
		Subtitle: "Generated " + s.now().UTC().Format("2006-01-02 15:04") + " UTC",
	}
	var recharged, spent int64
	for _, txn := range txns {
		if txn.Type == models.TransactionRecharge {
			recharged += txn.Amount
		} else {
			spent += txn.Amount
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Date":          txn.CreatedAt.UTC().Format("2006-01-02 15:04"),
			"Reference":     txn.TransactionID,
			"Type":          string(txn.Type),
			"Description":   txn.Description,
			"Amount":        strconv.FormatInt(txn.Amount, 10),
			"Balance After": strconv.FormatInt(txn.BalanceAfter, 10),
		})
	}

	closing := int64(0)
	if len(txns) > 0 {
		closing = txns[0].BalanceAfter
	}
	dataset.Footer = map[string]string{
		"Description":   fmt.Sprintf("Recharged %d / Spent %d", recharged, spent),
		"Balance After": strconv.FormatInt(closing, 10),
	}

	stamp := s.now().UTC().Format("20060102")
	statement := &Statement{Filename: fmt.Sprintf("wallet-statement-%s.%s", stamp, format)}
	if format == "pdf" {
		statement.ContentType = "application/pdf"
		statement.Body, err = s.pdf.Render(dataset, "Wallet Statement")
	} else {
		statement.ContentType = "text/csv"
		statement.Body, err = s.csv.Render(dataset)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render statement")
	}
	return statement, nil
}

func (s *WalletService) profile(ctx context.Context, userID string) (*models.StudentProfile, error) {
	return loadProfile(ctx, s.students, userID)
}

func loadProfile(ctx context.Context, students profileFinder, userID string) (*models.StudentProfile, error) {
	student, err := students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrProfileNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}
	return student, nil
}
