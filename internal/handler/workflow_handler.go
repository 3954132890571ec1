package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admission-agent-api/internal/models"
	"github.com/noah-isme/admission-agent-api/pkg/response"
)

type workflowService interface {
	Start(ctx context.Context, userID string, req models.StartWorkflowRequest) (*models.WorkflowSnapshot, error)
	Status(ctx context.Context, userID, applicationID string) (*models.WorkflowSnapshot, error)
	Cancel(ctx context.Context, userID, applicationID string) (*models.WorkflowSnapshot, error)
}

// WorkflowHandler drives the auto-apply agent.
type WorkflowHandler struct {
	service workflowService
}

// NewWorkflowHandler constructs the handler.
func NewWorkflowHandler(service workflowService) *WorkflowHandler {
	return &WorkflowHandler{service: service}
}

// Stages godoc
// @Summary List agent stages
// @Tags Workflow
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /workflow/stages [get]
func (h *WorkflowHandler) Stages(c *gin.Context) {
	response.JSON(c, http.StatusOK, models.WorkflowStages, nil)
}

// Start godoc
// @Summary Start the agent for a university
// @Description Resolves the application and schedules the stage timeline. Starting again returns the active run.
// @Tags Workflow
// @Accept json
// @Produce json
// @Param payload body models.StartWorkflowRequest true "Workflow request"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /workflow/start [post]
func (h *WorkflowHandler) Start(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req models.StartWorkflowRequest
	if !bindJSON(c, &req, "invalid payload") {
		return
	}
	snapshot, err := h.service.Start(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusAccepted
	if snapshot.Status != models.WorkflowRunning {
		status = http.StatusOK
	}
	response.JSON(c, status, snapshot, nil)
}

// Status godoc
// @Summary Agent progress for an application
// @Tags Workflow
// @Produce json
// @Param applicationId path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /workflow/{applicationId} [get]
func (h *WorkflowHandler) Status(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	snapshot, err := h.service.Status(c.Request.Context(), claims.UserID, c.Param("applicationId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// Cancel godoc
// @Summary Cancel a running agent
// @Tags Workflow
// @Produce json
// @Param applicationId path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /workflow/{applicationId}/cancel [post]
func (h *WorkflowHandler) Cancel(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	snapshot, err := h.service.Cancel(c.Request.Context(), claims.UserID, c.Param("applicationId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}
