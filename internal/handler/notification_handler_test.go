package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admission-agent-api/internal/models"
	appErrors "github.com/noah-isme/admission-agent-api/pkg/errors"
)

type fakeNotificationSrv struct {
	kind       models.NotificationType
	unreadOnly bool
	reminders  []models.CreateReminderRequest
}

func (f *fakeNotificationSrv) List(_ context.Context, _ string, kind models.NotificationType, unreadOnly bool) (*models.NotificationList, error) {
	f.kind = kind
	f.unreadOnly = unreadOnly
	return &models.NotificationList{Items: []models.Notification{}, UnreadTotal: 3}, nil
}

func (f *fakeNotificationSrv) MarkRead(_ context.Context, _ string, id string) error {
	if id != "n1" {
		return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	return nil
}

func (f *fakeNotificationSrv) MarkAllRead(context.Context, string) (int64, error) {
	return 4, nil
}

func (f *fakeNotificationSrv) CreateReminder(_ context.Context, _ string, req models.CreateReminderRequest) (*models.Notification, error) {
	f.reminders = append(f.reminders, req)
	return &models.Notification{ID: "n9", Type: models.NotificationManualReminder, Message: req.Message}, nil
}

func TestNotificationHandlerListFilters(t *testing.T) {
	srv := &fakeNotificationSrv{}
	handler := NewNotificationHandler(srv)

	c, rec := newGinContext(http.MethodGet, "/notifications?type=all&unread=true", nil)
	asStudent(c)
	handler.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.NotificationType(""), srv.kind)
	assert.True(t, srv.unreadOnly)
	assert.Equal(t, float64(3), decodeEnvelope(t, rec).Data["unreadTotal"])

	c, _ = newGinContext(http.MethodGet, "/notifications?type=deadline", nil)
	asStudent(c)
	handler.List(c)
	assert.Equal(t, models.NotificationDeadline, srv.kind)
	assert.False(t, srv.unreadOnly)
}

func TestNotificationHandlerMarkRead(t *testing.T) {
	handler := NewNotificationHandler(&fakeNotificationSrv{})

	c, rec := newGinContext(http.MethodPatch, "/notifications/n1/read", nil)
	c.Params = gin.Params{{Key: "id", Value: "n1"}}
	asStudent(c)
	handler.MarkRead(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, rec.Code)

	c, rec = newGinContext(http.MethodPatch, "/notifications/n2/read", nil)
	c.Params = gin.Params{{Key: "id", Value: "n2"}}
	asStudent(c)
	handler.MarkRead(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	c, rec = newGinContext(http.MethodPost, "/notifications/read-all", nil)
	asStudent(c)
	handler.MarkAllRead(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(4), decodeEnvelope(t, rec).Data["updated"])
}

func TestNotificationHandlerCreateReminder(t *testing.T) {
	srv := &fakeNotificationSrv{}
	handler := NewNotificationHandler(srv)

	c, rec := newGinContext(http.MethodPost, "/notifications/reminders", []byte(`{"universityId":"uni-1","message":"Collect documents"}`))
	asStudent(c)
	handler.CreateReminder(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, srv.reminders, 1)
	assert.Equal(t, "uni-1", srv.reminders[0].UniversityID)
}
