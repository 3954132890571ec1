package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/admission-agent-api/pkg/errors"
)

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, rec
}

func TestJSONDropsEmptyMeta(t *testing.T) {
	c, rec := newContext()
	JSON(c, http.StatusOK, gin.H{"ok": true}, nil, map[string]interface{}{})

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotContains(t, body, "meta")
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestAccepted(t *testing.T) {
	c, rec := newContext()
	Accepted(c, gin.H{"id": "job-1"})
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestErrorUsesAppErrorStatus(t *testing.T) {
	c, rec := newContext()
	Error(c, appErrors.Clone(appErrors.ErrNotFound, "application not found"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	c, rec = newContext()
	Error(c, errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAttachment(t *testing.T) {
	c, rec := newContext()
	Attachment(c, "wallet statement.csv", "", []byte("a,b\n"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="wallet statement.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "a,b\n", rec.Body.String())
}
