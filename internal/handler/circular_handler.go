package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admission-agent-api/internal/models"
	"github.com/noah-isme/admission-agent-api/pkg/response"
)

type circularService interface {
	List(ctx context.Context, filter models.CircularFilter) (*models.Page[models.AdmissionCircular], error)
	Get(ctx context.Context, id string) (*models.AdmissionCircular, error)
}

// CircularHandler serves the university catalog.
type CircularHandler struct {
	service circularService
}

// NewCircularHandler constructs the handler.
func NewCircularHandler(service circularService) *CircularHandler {
	return &CircularHandler{service: service}
}

// List godoc
// @Summary List universities
// @Tags Universities
// @Produce json
// @Param search query string false "University name"
// @Param status query string false "pending, completed or failed"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /universities [get]
func (h *CircularHandler) List(c *gin.Context) {
	filter := models.CircularFilter{
		Search: strings.TrimSpace(c.Query("search")),
		Status: strings.TrimSpace(c.Query("status")),
	}
	filter.Page, filter.PageSize = pageParams(c)
	page, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, page, nil)
}

// Get godoc
// @Summary Get university circular
// @Tags Universities
// @Produce json
// @Param id path string true "University ID"
// @Success 200 {object} response.Envelope
// @Router /universities/{id} [get]
func (h *CircularHandler) Get(c *gin.Context) {
	circular, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, circular, nil)
}
