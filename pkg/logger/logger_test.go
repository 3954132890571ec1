package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedRouter() (*gin.Engine, *observer.ObservedLogs) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	r := gin.New()
	r.Use(GinMiddleware(zap.New(core), "/health"))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) {
		c.Set("user_id", "user-1")
		c.Status(http.StatusBadGateway)
	})
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	return r, logs
}

func hit(r *gin.Engine, path string) {
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
}

func TestGinMiddlewareSkipsHealthyProbes(t *testing.T) {
	r, logs := newObservedRouter()
	hit(r, "/health")
	assert.Equal(t, 0, logs.Len())
}

func TestGinMiddlewareLevelsByStatus(t *testing.T) {
	r, logs := newObservedRouter()
	hit(r, "/boom")
	hit(r, "/missing")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "user-1", entries[0].ContextMap()["user_id"])
	assert.Equal(t, "/boom", entries[0].ContextMap()["route"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}
