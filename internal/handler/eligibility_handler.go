package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admission-agent-api/internal/models"
	"github.com/noah-isme/admission-agent-api/internal/service"
	"github.com/noah-isme/admission-agent-api/pkg/response"
)

type eligibilityService interface {
	List(ctx context.Context, userID string, query service.EligibilityQuery) ([]models.CircularEligibility, error)
	Check(ctx context.Context, userID, circularID string) (*models.CircularEligibility, error)
}

// EligibilityHandler evaluates circulars for the signed-in student.
type EligibilityHandler struct {
	service eligibilityService
}

// NewEligibilityHandler constructs the handler.
func NewEligibilityHandler(service eligibilityService) *EligibilityHandler {
	return &EligibilityHandler{service: service}
}

// List godoc
// @Summary Eligibility across universities
// @Tags Eligibility
// @Produce json
// @Param filter query string false "all, eligible or not-eligible"
// @Param search query string false "University name"
// @Success 200 {object} response.Envelope
// @Router /eligibility [get]
func (h *EligibilityHandler) List(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	query := service.EligibilityQuery{
		Filter: models.EligibilityFilter(strings.TrimSpace(c.Query("filter"))),
		Search: c.Query("search"),
	}
	items, err := h.service.List(c.Request.Context(), claims.UserID, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	eligible := 0
	for _, item := range items {
		if item.Eligibility.Eligible {
			eligible++
		}
	}
	response.JSON(c, http.StatusOK, items, nil, map[string]interface{}{
		"total":    len(items),
		"eligible": eligible,
	})
}

// Check godoc
// @Summary Eligibility for one university
// @Tags Eligibility
// @Produce json
// @Param id path string true "University ID"
// @Success 200 {object} response.Envelope
// @Router /eligibility/{id} [get]
func (h *EligibilityHandler) Check(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	result, err := h.service.Check(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
