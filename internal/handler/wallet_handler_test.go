package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admission-agent-api/internal/models"
	"github.com/noah-isme/admission-agent-api/internal/service"
	appErrors "github.com/noah-isme/admission-agent-api/pkg/errors"
)

type fakeWalletSrv struct {
	recharged []int64
	format    string
}

func (f *fakeWalletSrv) Summary(context.Context, string) (*models.WalletSummary, error) {
	return &models.WalletSummary{Balance: 1500}, nil
}

func (f *fakeWalletSrv) Transactions(context.Context, string) ([]models.Transaction, error) {
	return []models.Transaction{}, nil
}

func (f *fakeWalletSrv) Recharge(_ context.Context, _ string, req models.RechargeRequest) (*models.Transaction, error) {
	if req.Amount <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount must be greater than zero")
	}
	f.recharged = append(f.recharged, req.Amount)
	return &models.Transaction{Amount: req.Amount, Type: models.TransactionRecharge}, nil
}

func (f *fakeWalletSrv) Statement(_ context.Context, _ string, format string) (*service.Statement, error) {
	f.format = format
	return &service.Statement{Filename: "wallet-statement-20240301.csv", ContentType: "text/csv", Body: []byte("Date,Reference\n")}, nil
}

func TestWalletHandlerRechargeAcceptsCustomAmount(t *testing.T) {
	srv := &fakeWalletSrv{}
	handler := NewWalletHandler(srv)

	c, rec := newGinContext(http.MethodPost, "/wallet/recharge", []byte(`{"customAmount":" 1500 "}`))
	asStudent(c)
	handler.Recharge(c)
	require.Equal(t, http.StatusCreated, rec.Code)

	c, rec = newGinContext(http.MethodPost, "/wallet/recharge", []byte(`{"amount":2500}`))
	asStudent(c)
	handler.Recharge(c)
	require.Equal(t, http.StatusCreated, rec.Code)

	c, rec = newGinContext(http.MethodPost, "/wallet/recharge", []byte(`{"customAmount":"abc"}`))
	asStudent(c)
	handler.Recharge(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, []int64{1500, 2500}, srv.recharged)
}

func TestWalletHandlerStatementAttachment(t *testing.T) {
	srv := &fakeWalletSrv{}
	handler := NewWalletHandler(srv)

	c, rec := newGinContext(http.MethodGet, "/wallet/statement?format=csv", nil)
	asStudent(c)
	handler.Statement(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "csv", srv.format)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "wallet-statement-20240301.csv")
	assert.Equal(t, "Date,Reference\n", rec.Body.String())
}
