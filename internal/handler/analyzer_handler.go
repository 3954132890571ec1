package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admission-agent-api/internal/models"
	"github.com/noah-isme/admission-agent-api/internal/service"
	appErrors "github.com/noah-isme/admission-agent-api/pkg/errors"
	"github.com/noah-isme/admission-agent-api/pkg/response"
)

const maxJobWait = 30 * time.Second

type analyzerService interface {
	CreateJob(ctx context.Context, actorID string, req models.AnalyzeRequest) (*models.AnalysisJobStatus, error)
	GetJob(ctx context.Context, id string) (*models.AnalysisJobStatus, error)
	WaitForJob(ctx context.Context, id string, policy service.PollPolicy) (*models.AnalysisJobStatus, error)
	ListResults(ctx context.Context, filter models.CircularFilter) (*models.Page[models.AdmissionCircular], error)
	GetResult(ctx context.Context, id string) (*models.AdmissionCircular, error)
}

// AnalyzerHandler exposes circular ingestion jobs.
type AnalyzerHandler struct {
	service analyzerService
	policy  service.PollPolicy
}

// NewAnalyzerHandler constructs the handler.
func NewAnalyzerHandler(svc analyzerService) *AnalyzerHandler {
	return &AnalyzerHandler{service: svc}
}

// Create godoc
// @Summary Queue circular URLs for analysis
// @Tags Analyzer
// @Accept json
// @Produce json
// @Param payload body models.AnalyzeRequest true "URLs"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /analyze [post]
func (h *AnalyzerHandler) Create(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req models.AnalyzeRequest
	if !bindJSON(c, &req, "invalid payload") {
		return
	}
	status, err := h.service.CreateJob(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, status)
}

// Get godoc
// @Summary Analysis job status
// @Description With wait (e.g. 10s, capped at 30s) the call blocks until the job finishes or the wait elapses
// @Tags Analyzer
// @Produce json
// @Param id path string true "Job ID"
// @Param wait query string false "Maximum wait duration"
// @Success 200 {object} response.Envelope
// @Router /analyze/{id} [get]
func (h *AnalyzerHandler) Get(c *gin.Context) {
	id := c.Param("id")
	raw := strings.TrimSpace(c.Query("wait"))
	if raw == "" {
		status, err := h.service.GetJob(c.Request.Context(), id)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, status, nil)
		return
	}

	wait, err := time.ParseDuration(raw)
	if err != nil || wait <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "wait must be a positive duration such as 10s"))
		return
	}
	if wait > maxJobWait {
		wait = maxJobWait
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), wait)
	defer cancel()

	status, err := h.service.WaitForJob(ctx, id, h.policy)
	if err != nil && !(errors.Is(err, context.DeadlineExceeded) && status != nil) {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil, map[string]interface{}{
		"terminal": status.Status.Terminal(),
	})
}

// ListResults godoc
// @Summary List analyzed circulars
// @Tags Analyzer
// @Produce json
// @Param status query string false "pending, completed or failed"
// @Param jobId query string false "Job ID"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /analyze/results [get]
func (h *AnalyzerHandler) ListResults(c *gin.Context) {
	filter := models.CircularFilter{
		Status: strings.TrimSpace(c.Query("status")),
		JobID:  strings.TrimSpace(c.Query("jobId")),
	}
	filter.Page, filter.PageSize = pageParams(c)
	page, err := h.service.ListResults(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, page, nil)
}

// GetResult godoc
// @Summary Get an analyzed circular
// @Tags Analyzer
// @Produce json
// @Param id path string true "Result ID"
// @Success 200 {object} response.Envelope
// @Router /analyze/results/{id} [get]
func (h *AnalyzerHandler) GetResult(c *gin.Context) {
	row, err := h.service.GetResult(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, row, nil)
}
