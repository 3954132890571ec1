package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admission-agent-api/internal/models"
	appErrors "github.com/noah-isme/admission-agent-api/pkg/errors"
)

type stubValidator map[string]*models.JWTClaims

func (s stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

type recordingAudit struct {
	logs []*models.AuditLog
}

func (r *recordingAudit) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	r.logs = append(r.logs, log)
	return nil
}

func newGuardedRouter(audit AuditWriter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	validator := stubValidator{
		"student-token": {UserID: "user-1", Role: models.RoleStudent},
		"admin-token":   {UserID: "admin-1", Role: models.RoleAdmin},
	}
	router := gin.New()
	router.GET("/me", JWT(validator), func(c *gin.Context) {
		claims := c.MustGet(ContextUserKey).(*models.JWTClaims)
		c.String(http.StatusOK, claims.UserID)
	})
	router.PATCH("/admin/:id", JWT(validator), RequireRoles(models.RoleAdmin), Audit(audit, models.AuditActionStatusChange, "applications"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func serve(router *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestJWTRequiresBearerToken(t *testing.T) {
	router := newGuardedRouter(nil)

	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/me", "bogus").Code)

	rec := serve(router, http.MethodGet, "/me", "student-token")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", rec.Body.String())
}

func TestRequireRolesAndAudit(t *testing.T) {
	audit := &recordingAudit{}
	router := newGuardedRouter(audit)

	assert.Equal(t, http.StatusForbidden, serve(router, http.MethodPatch, "/admin/app-1", "student-token").Code)
	assert.Empty(t, audit.logs)

	rec := serve(router, http.MethodPatch, "/admin/app-1", "admin-token")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, "admin-1", *audit.logs[0].UserID)
	assert.Equal(t, "app-1", *audit.logs[0].ResourceID)
	assert.Equal(t, models.AuditActionStatusChange, audit.logs[0].Action)
}

func TestBearerToken(t *testing.T) {
	token, ok := bearerToken("bearer  abc.def ")
	require.True(t, ok)
	assert.Equal(t, "abc.def", token)

	for _, header := range []string{"Bearer", "Bearer   ", "Basic abc", "abc"} {
		_, ok := bearerToken(header)
		assert.False(t, ok, header)
	}
}

func TestJWTExposesUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/id", JWT(stubValidator{"t": {UserID: "user-9"}}), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextUserIDKey))
	})
	rec := serve(router, http.MethodGet, "/id", "t")
	assert.Equal(t, "user-9", rec.Body.String())
}
