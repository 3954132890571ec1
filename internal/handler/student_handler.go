package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admission-agent-api/internal/models"
	appErrors "github.com/noah-isme/admission-agent-api/pkg/errors"
	"github.com/noah-isme/admission-agent-api/pkg/response"
)

type studentService interface {
	Me(ctx context.Context, userID string) (*models.StudentProfile, error)
	Create(ctx context.Context, userID, email string, req models.StudentProfileRequest) (*models.StudentProfile, error)
	Update(ctx context.Context, userID string, req models.StudentProfileRequest) (*models.StudentProfile, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentProfile, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.StudentProfile, error)
	FetchBoardResult(ctx context.Context, req models.BoardResultRequest) (*models.BoardResultResponse, error)
}

// StudentHandler serves student profiles and board result lookups.
type StudentHandler struct {
	students studentService
}

func NewStudentHandler(students studentService) *StudentHandler {
	return &StudentHandler{students: students}
}

// Me godoc
// @Summary Get own student profile
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/me [get]
func (h *StudentHandler) Me(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	student, err := h.students.Me(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Create godoc
// @Summary Create own student profile
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body models.StudentProfileRequest true "Profile payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students/me [post]
func (h *StudentHandler) Create(c *gin.Context) {
	h.saveProfile(c, http.StatusCreated, func(ctx context.Context, claims *models.JWTClaims, req models.StudentProfileRequest) (*models.StudentProfile, error) {
		return h.students.Create(ctx, claims.UserID, claims.Email, req)
	})
}

// Update godoc
// @Summary Update own student profile
// @Description Omitted fields keep their stored values.
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body models.StudentProfileRequest true "Profile payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/me [put]
func (h *StudentHandler) Update(c *gin.Context) {
	h.saveProfile(c, http.StatusOK, func(ctx context.Context, claims *models.JWTClaims, req models.StudentProfileRequest) (*models.StudentProfile, error) {
		return h.students.Update(ctx, claims.UserID, req)
	})
}

type profileWriter func(ctx context.Context, claims *models.JWTClaims, req models.StudentProfileRequest) (*models.StudentProfile, error)

func (h *StudentHandler) saveProfile(c *gin.Context, status int, write profileWriter) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req models.StudentProfileRequest
	if !bindJSON(c, &req, "invalid profile payload") {
		return
	}
	profile, err := write(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, status, profile, nil)
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Param search query string false "Search by name or email"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	var filter models.StudentFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	filter.Search = strings.TrimSpace(filter.Search)

	students, pagination, err := h.students.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Get godoc
// @Summary Get student detail
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// BoardResult godoc
// @Summary Look up an education board result
// @Description Lookup failures are reported with success=false in the payload
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body models.BoardResultRequest true "Board result query"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students/board-result [post]
func (h *StudentHandler) BoardResult(c *gin.Context) {
	var req models.BoardResultRequest
	if !bindJSON(c, &req, "invalid payload") {
		return
	}
	result, err := h.students.FetchBoardResult(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
