package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admission-agent-api/internal/models"
	appErrors "github.com/noah-isme/admission-agent-api/pkg/errors"
)

type stubStarter struct {
	requests []models.StartWorkflowRequest
}

func (s *stubStarter) Start(ctx context.Context, userID string, req models.StartWorkflowRequest) (*models.WorkflowSnapshot, error) {
	s.requests = append(s.requests, req)
	return &models.WorkflowSnapshot{ApplicationID: req.ApplicationID, Status: models.WorkflowRunning}, nil
}

func newApplicationFixture() (*admissionStore, *stubStarter, *ApplicationService) {
	store := newAdmissionStore()
	store.addStudent("stu-1", "user-1", 0)
	store.addStudent("stu-2", "user-2", 0)
	store.addCircular("uni-1", "Dhaka University", "500")
	starter := &stubStarter{}
	svc := NewApplicationService(applicationTable{store}, store, circularTable{store}, store, starter, 60, nil, nil)
	return store, starter, svc
}

func TestApplicationCreateSelectsUniversity(t *testing.T) {
	_, _, svc := newApplicationFixture()

	app, err := svc.Create(context.Background(), "user-1", models.CreateApplicationRequest{UniversityID: "uni-1"})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusPending, app.Status)
	assert.False(t, app.AutoApplyEnabled)
	assert.Equal(t, 0, app.MarksObtained)
	assert.Equal(t, 60, app.MarksRequired)

	_, err = svc.Create(context.Background(), "user-1", models.CreateApplicationRequest{UniversityID: "uni-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), "user-1", models.CreateApplicationRequest{UniversityID: "uni-404"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestApplicationToggleAutoApplyAndOwnership(t *testing.T) {
	_, _, svc := newApplicationFixture()
	app, err := svc.Create(context.Background(), "user-1", models.CreateApplicationRequest{UniversityID: "uni-1"})
	require.NoError(t, err)

	toggled, err := svc.ToggleAutoApply(context.Background(), "user-1", app.ID)
	require.NoError(t, err)
	assert.True(t, toggled.AutoApplyEnabled)
	toggled, err = svc.ToggleAutoApply(context.Background(), "user-1", app.ID)
	require.NoError(t, err)
	assert.False(t, toggled.AutoApplyEnabled)

	_, err = svc.Get(context.Background(), "user-2", app.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestApplicationSubmitStartsWorkflow(t *testing.T) {
	_, starter, svc := newApplicationFixture()
	app, err := svc.Create(context.Background(), "user-1", models.CreateApplicationRequest{UniversityID: "uni-1"})
	require.NoError(t, err)

	snapshot, err := svc.Submit(context.Background(), "user-1", app.ID)
	require.NoError(t, err)
	assert.Equal(t, app.ID, snapshot.ApplicationID)
	require.Len(t, starter.requests, 1)
	assert.Equal(t, models.StartWorkflowRequest{UniversityID: "uni-1", ApplicationID: app.ID}, starter.requests[0])
}

func TestApplicationUpdateStatusIsLinear(t *testing.T) {
	store, _, svc := newApplicationFixture()
	txn := "TXN-20240301-000001"
	store.addApplication(models.Application{ID: "app-1", StudentID: "stu-1", UniversityID: "uni-1", Status: models.ApplicationStatusSubmitted, TransactionID: &txn})
	store.addApplication(models.Application{ID: "app-2", StudentID: "stu-1", UniversityID: "uni-1", Status: models.ApplicationStatusPending})

	_, err := svc.UpdateStatus(context.Background(), "app-1", models.UpdateApplicationStatusRequest{Status: models.ApplicationStatusAccepted})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	app, err := svc.UpdateStatus(context.Background(), "app-1", models.UpdateApplicationStatusRequest{Status: models.ApplicationStatusUnderReview})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusUnderReview, app.Status)

	app, err = svc.UpdateStatus(context.Background(), "app-1", models.UpdateApplicationStatusRequest{Status: models.ApplicationStatusAccepted})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusAccepted, app.Status)

	notes := store.notificationsOf(models.NotificationApplicationStatus)
	require.Len(t, notes, 2)
	assert.Equal(t, "Your application to Dhaka University is now under review.", notes[0].Message)
	assert.Equal(t, "stu-1", notes[1].StudentID)

	_, err = svc.UpdateStatus(context.Background(), "app-2", models.UpdateApplicationStatusRequest{Status: models.ApplicationStatusSubmitted})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestApplicationStats(t *testing.T) {
	store, _, svc := newApplicationFixture()
	store.addApplication(models.Application{ID: "a", StudentID: "stu-1", Status: models.ApplicationStatusPending, AutoApplyEnabled: true})
	store.addApplication(models.Application{ID: "b", StudentID: "stu-1", Status: models.ApplicationStatusSubmitted})
	store.addApplication(models.Application{ID: "c", StudentID: "stu-1", Status: models.ApplicationStatusAccepted})

	stats, err := svc.Stats(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 4, stats.HoursSaved)
}

func TestApplicationCreateConflictsWithConcurrentInsert(t *testing.T) {
	store := newAdmissionStore()
	store.addStudent("stu-1", "user-1", 0)
	store.addCircular("uni-1", "Dhaka University", "500")
	svc := NewApplicationService(&racingApplications{applicationTable: applicationTable{store}}, store, circularTable{store}, store, &stubStarter{}, 60, nil, nil)

	_, err := svc.Create(context.Background(), "user-1", models.CreateApplicationRequest{UniversityID: "uni-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Len(t, store.applications, 1)
}
