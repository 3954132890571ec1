package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admission-agent-api/internal/models"
	"github.com/noah-isme/admission-agent-api/pkg/response"
)

type requirementCheckService interface {
	Create(ctx context.Context, userID string, req models.RequirementCheckRequest) (*models.RequirementCheck, error)
	Get(ctx context.Context, userID, id string) (*models.RequirementCheck, error)
}

// RequirementCheckHandler runs department level requirement checks.
type RequirementCheckHandler struct {
	service requirementCheckService
}

// NewRequirementCheckHandler constructs the handler.
func NewRequirementCheckHandler(service requirementCheckService) *RequirementCheckHandler {
	return &RequirementCheckHandler{service: service}
}

// Create godoc
// @Summary Check requirements for a department
// @Tags Requirement Checks
// @Accept json
// @Produce json
// @Param payload body models.RequirementCheckRequest true "Check request"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /requirement-checks [post]
func (h *RequirementCheckHandler) Create(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req models.RequirementCheckRequest
	if !bindJSON(c, &req, "invalid payload") {
		return
	}
	check, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, check)
}

// Get godoc
// @Summary Get a requirement check
// @Tags Requirement Checks
// @Produce json
// @Param id path string true "Check ID"
// @Success 200 {object} response.Envelope
// @Router /requirement-checks/{id} [get]
func (h *RequirementCheckHandler) Get(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	check, err := h.service.Get(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, check, nil)
}
