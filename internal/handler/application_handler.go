package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admission-agent-api/internal/models"
	"github.com/noah-isme/admission-agent-api/pkg/response"
)

type applicationService interface {
	List(ctx context.Context, userID string) ([]models.Application, error)
	Search(ctx context.Context, filter models.ApplicationFilter) (*models.Page[models.Application], error)
	Get(ctx context.Context, userID, id string) (*models.Application, error)
	Create(ctx context.Context, userID string, req models.CreateApplicationRequest) (*models.Application, error)
	ToggleAutoApply(ctx context.Context, userID, id string) (*models.Application, error)
	Submit(ctx context.Context, userID, id string) (*models.WorkflowSnapshot, error)
	UpdateStatus(ctx context.Context, id string, req models.UpdateApplicationStatusRequest) (*models.Application, error)
	Stats(ctx context.Context, userID string) (*models.ApplicationStats, error)
}

// ApplicationHandler exposes university selections.
type ApplicationHandler struct {
	service applicationService
}

// NewApplicationHandler constructs the handler.
func NewApplicationHandler(service applicationService) *ApplicationHandler {
	return &ApplicationHandler{service: service}
}

// List godoc
// @Summary List own applications
// @Tags Applications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /applications [get]
func (h *ApplicationHandler) List(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	apps, err := h.service.List(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, apps, nil)
}

// Stats godoc
// @Summary Application counters
// @Tags Applications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /applications/stats [get]
func (h *ApplicationHandler) Stats(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	stats, err := h.service.Stats(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Get godoc
// @Summary Get own application
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /applications/{id} [get]
func (h *ApplicationHandler) Get(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	app, err := h.service.Get(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}

// Create godoc
// @Summary Select a university
// @Tags Applications
// @Accept json
// @Produce json
// @Param payload body models.CreateApplicationRequest true "Selection"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /applications [post]
func (h *ApplicationHandler) Create(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req models.CreateApplicationRequest
	if !bindJSON(c, &req, "invalid payload") {
		return
	}
	app, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, app)
}

// ToggleAutoApply godoc
// @Summary Toggle auto-apply
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/auto-apply [patch]
func (h *ApplicationHandler) ToggleAutoApply(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	app, err := h.service.ToggleAutoApply(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}

// Submit godoc
// @Summary Hand an application to the agent
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 202 {object} response.Envelope
// @Router /applications/{id}/submit [post]
func (h *ApplicationHandler) Submit(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	snapshot, err := h.service.Submit(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, snapshot)
}

// Search godoc
// @Summary Search applications
// @Tags Admin
// @Produce json
// @Param studentId query string false "Student ID"
// @Param universityId query string false "University ID"
// @Param status query string false "Status"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/applications [get]
func (h *ApplicationHandler) Search(c *gin.Context) {
	filter := models.ApplicationFilter{
		StudentID:    strings.TrimSpace(c.Query("studentId")),
		UniversityID: strings.TrimSpace(c.Query("universityId")),
		Status:       strings.TrimSpace(c.Query("status")),
	}
	filter.Page, filter.PageSize = pageParams(c)
	page, err := h.service.Search(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, page, nil)
}

// UpdateStatus godoc
// @Summary Advance an application status
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body models.UpdateApplicationStatusRequest true "Status"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/applications/{id}/status [patch]
func (h *ApplicationHandler) UpdateStatus(c *gin.Context) {
	var req models.UpdateApplicationStatusRequest
	if !bindJSON(c, &req, "invalid payload") {
		return
	}
	app, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}
