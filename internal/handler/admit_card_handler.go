package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admission-agent-api/internal/models"
	"github.com/noah-isme/admission-agent-api/internal/service"
	appErrors "github.com/noah-isme/admission-agent-api/pkg/errors"
	"github.com/noah-isme/admission-agent-api/pkg/response"
)

type admitCardService interface {
	Link(ctx context.Context, userID, applicationID string) (*models.AdmitCard, error)
	Download(ctx context.Context, token string) (*service.AdmitCardFile, error)
}

// AdmitCardHandler serves rendered admit cards.
type AdmitCardHandler struct {
	service admitCardService
}

// NewAdmitCardHandler constructs the handler.
func NewAdmitCardHandler(service admitCardService) *AdmitCardHandler {
	return &AdmitCardHandler{service: service}
}

// Link godoc
// @Summary Signed admit card link
// @Tags Admit Cards
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /applications/{id}/admit-card [get]
func (h *AdmitCardHandler) Link(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "admit cards not configured"))
		return
	}
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	card, err := h.service.Link(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, card, nil)
}

// Download godoc
// @Summary Download an admit card
// @Tags Admit Cards
// @Produce application/pdf
// @Param token query string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /admit-cards/download [get]
func (h *AdmitCardHandler) Download(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "admit cards not configured"))
		return
	}
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	file, err := h.service.Download(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
