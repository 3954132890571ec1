package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admission-agent-api/internal/middleware"
	"github.com/noah-isme/admission-agent-api/internal/models"
	appErrors "github.com/noah-isme/admission-agent-api/pkg/errors"
	"github.com/noah-isme/admission-agent-api/pkg/response"
)

// requireClaims writes 401 and returns nil when the request carries no session.
func requireClaims(c *gin.Context) *models.JWTClaims {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil
	}
	return claims
}

// bindJSON decodes the request body into dest, answering 400 with message on
// failure.
func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

func clientInfo(c *gin.Context) models.ClientInfo {
	return models.ClientInfo{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", c.DefaultQuery("limit", "20")))
	return page, size
}
