package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admission-agent-api/internal/models"
	"github.com/noah-isme/admission-agent-api/internal/service"
	appErrors "github.com/noah-isme/admission-agent-api/pkg/errors"
)

type fakeAdmitCardSrv struct{}

func (fakeAdmitCardSrv) Link(_ context.Context, _ string, applicationID string) (*models.AdmitCard, error) {
	if applicationID != "app-1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
	}
	return &models.AdmitCard{ApplicationID: applicationID, URL: "/api/v1/admit-cards/download?token=abc"}, nil
}

func (fakeAdmitCardSrv) Download(_ context.Context, token string) (*service.AdmitCardFile, error) {
	if token != "abc" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download token")
	}
	return &service.AdmitCardFile{Filename: "admit-card-app-1.pdf", ContentType: "application/pdf", Body: []byte("%PDF-1.3")}, nil
}

func TestAdmitCardHandlerLink(t *testing.T) {
	handler := NewAdmitCardHandler(fakeAdmitCardSrv{})

	c, rec := newGinContext(http.MethodGet, "/applications/app-1/admit-card", nil)
	c.Params = gin.Params{{Key: "id", Value: "app-1"}}
	asStudent(c)
	handler.Link(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/api/v1/admit-cards/download?token=abc", decodeEnvelope(t, rec).Data["url"])

	c, rec = newGinContext(http.MethodGet, "/applications/app-2/admit-card", nil)
	c.Params = gin.Params{{Key: "id", Value: "app-2"}}
	asStudent(c)
	handler.Link(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdmitCardHandlerDownload(t *testing.T) {
	handler := NewAdmitCardHandler(fakeAdmitCardSrv{})

	c, rec := newGinContext(http.MethodGet, "/admit-cards/download", nil)
	handler.Download(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newGinContext(http.MethodGet, "/admit-cards/download?token=nope", nil)
	handler.Download(c)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	c, rec = newGinContext(http.MethodGet, "/admit-cards/download?token=abc", nil)
	handler.Download(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "admit-card-app-1.pdf")
	assert.Equal(t, "%PDF-1.3", rec.Body.String())
}
