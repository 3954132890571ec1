package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admission-agent-api/internal/models"
	"github.com/noah-isme/admission-agent-api/internal/service"
	"github.com/noah-isme/admission-agent-api/pkg/response"
)

type walletService interface {
	Summary(ctx context.Context, userID string) (*models.WalletSummary, error)
	Transactions(ctx context.Context, userID string) ([]models.Transaction, error)
	Recharge(ctx context.Context, userID string, req models.RechargeRequest) (*models.Transaction, error)
	Statement(ctx context.Context, userID, format string) (*service.Statement, error)
}

// WalletHandler exposes the student wallet.
type WalletHandler struct {
	service walletService
}

// NewWalletHandler constructs the handler.
func NewWalletHandler(service walletService) *WalletHandler {
	return &WalletHandler{service: service}
}

type rechargePayload struct {
	Amount       int64  `json:"amount"`
	CustomAmount string `json:"customAmount"`
}

// Summary godoc
// @Summary Wallet balance and totals
// @Tags Wallet
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /wallet [get]
func (h *WalletHandler) Summary(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	summary, err := h.service.Summary(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Transactions godoc
// @Summary Wallet ledger
// @Tags Wallet
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /wallet/transactions [get]
func (h *WalletHandler) Transactions(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	txns, err := h.service.Transactions(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, txns, nil)
}

// Recharge godoc
// @Summary Recharge wallet
// @Description Accepts a preset amount or a typed customAmount
// @Tags Wallet
// @Accept json
// @Produce json
// @Param payload body rechargePayload true "Recharge"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /wallet/recharge [post]
func (h *WalletHandler) Recharge(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var payload rechargePayload
	if !bindJSON(c, &payload, "invalid payload") {
		return
	}
	amount := payload.Amount
	if amount == 0 && payload.CustomAmount != "" {
		amount = service.ParseCustomAmount(payload.CustomAmount)
	}
	txn, err := h.service.Recharge(c.Request.Context(), claims.UserID, models.RechargeRequest{Amount: amount})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, txn)
}

// Statement godoc
// @Summary Download wallet statement
// @Tags Wallet
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /wallet/statement [get]
func (h *WalletHandler) Statement(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	statement, err := h.service.Statement(c.Request.Context(), claims.UserID, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, statement.Filename, statement.ContentType, statement.Body)
}
