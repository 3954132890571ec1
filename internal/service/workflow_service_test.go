package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admission-agent-api/internal/models"
	"github.com/noah-isme/admission-agent-api/pkg/config"
	appErrors "github.com/noah-isme/admission-agent-api/pkg/errors"
)

const (
	testInterval   = 2500 * time.Millisecond
	testCompletion = 1500 * time.Millisecond
	testRetention  = time.Minute
	testReference  = "TXN-20240301-000042"
)

type fakeAdmitCards struct {
	issued []string
	err    error
}

func (f *fakeAdmitCards) Issue(ctx context.Context, applicationID string) (*models.AdmitCard, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.issued = append(f.issued, applicationID)
	return &models.AdmitCard{ApplicationID: applicationID, URL: "/api/v1/admit-cards/download?token=abc"}, nil
}

type workflowFixture struct {
	store     *admissionStore
	scheduler *manualScheduler
	cards     *fakeAdmitCards
	svc       *WorkflowService
}

func newWorkflowFixture(balance int64, fee string) *workflowFixture {
	store := newAdmissionStore()
	store.addStudent("stu-1", "user-1", balance)
	store.addCircular("uni-1", "Dhaka University", fee)
	scheduler := &manualScheduler{}
	cards := &fakeAdmitCards{}
	svc := NewWorkflowService(
		applicationTable{store},
		studentTable{store},
		circularTable{store},
		store,
		cards,
		nil,
		scheduler,
		config.WorkflowConfig{StageInterval: testInterval, CompletionDelay: testCompletion, RunRetention: testRetention, MarksRequired: 60, DefaultMarksObtained: 70},
		nil,
		nil,
	)
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }
	svc.reference = func(time.Time) string { return testReference }
	return &workflowFixture{store: store, scheduler: scheduler, cards: cards, svc: svc}
}

func stageAt(index int) time.Duration {
	return time.Duration(index+1) * testInterval
}

func runToCompletion(f *workflowFixture) {
	f.scheduler.Advance(time.Duration(len(models.WorkflowStages))*testInterval + testCompletion)
}

func TestWorkflowPaymentStageDeductsFeeOnce(t *testing.T) {
	f := newWorkflowFixture(5000, "500")

	snapshot, err := f.svc.Start(context.Background(), "user-1", models.StartWorkflowRequest{UniversityID: "uni-1"})
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowCreate, snapshot.Decision)
	assert.Equal(t, models.WorkflowRunning, snapshot.Status)
	assert.Equal(t, 9, f.scheduler.count())

	f.scheduler.Advance(stageAt(models.StageIndex(models.StagePayment)))

	assert.Equal(t, int64(4500), f.store.balance("stu-1"))
	deductions := f.store.deductions()
	require.Len(t, deductions, 1)
	assert.Equal(t, int64(500), deductions[0].Amount)
	assert.Equal(t, int64(4500), deductions[0].BalanceAfter)
	assert.Equal(t, "Application fee - Dhaka University", deductions[0].Description)
	assert.Equal(t, testReference, deductions[0].TransactionID)

	app := f.store.application(snapshot.ApplicationID)
	assert.Equal(t, models.ApplicationStatusSubmitted, app.Status)
	require.NotNil(t, app.TransactionID)
	assert.Equal(t, testReference, *app.TransactionID)
	require.NotNil(t, app.AppliedAt)

	notes := f.store.notificationsOf(models.NotificationPayment)
	require.Len(t, notes, 1)
	assert.Equal(t, "Payment Successful", notes[0].Title)
	assert.Equal(t, "Application fee paid for Dhaka University. Transaction completed successfully.", notes[0].Message)
	require.NotNil(t, notes[0].ActionURL)
	assert.Equal(t, "/applications", *notes[0].ActionURL)

	status, err := f.svc.Status(context.Background(), "user-1", snapshot.ApplicationID)
	require.NoError(t, err)
	assert.Equal(t, models.StageIndex(models.StagePayment), status.CurrentStage)
	assert.Equal(t, models.StageCurrent, status.Stages[5].State)
	assert.Equal(t, models.StageCompleted, status.Stages[4].State)
	assert.Equal(t, models.StagePending, status.Stages[6].State)

	runToCompletion(f)
	status, err = f.svc.Status(context.Background(), "user-1", snapshot.ApplicationID)
	require.NoError(t, err)
	assert.True(t, status.Complete)
	assert.Equal(t, models.WorkflowComplete, status.Status)
	require.NotNil(t, status.AdmitCardURL)
	assert.Equal(t, []string{snapshot.ApplicationID}, f.cards.issued)
	assert.Len(t, f.store.deductions(), 1)
}

func TestWorkflowReentryNeverPaysTwice(t *testing.T) {
	f := newWorkflowFixture(5000, "500")
	first, err := f.svc.Start(context.Background(), "user-1", models.StartWorkflowRequest{UniversityID: "uni-1"})
	require.NoError(t, err)
	runToCompletion(f)

	for i := 0; i < 2; i++ {
		entry, err := f.svc.Resolve(context.Background(), "stu-1", "uni-1", "")
		require.NoError(t, err)
		assert.Equal(t, models.WorkflowAlreadyComplete, entry.Decision)
		assert.Equal(t, first.ApplicationID, entry.Application.ID)
	}

	again, err := f.svc.Start(context.Background(), "user-1", models.StartWorkflowRequest{UniversityID: "uni-1"})
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowAlreadyComplete, again.Decision)
	assert.True(t, again.Complete)
	runToCompletion(f)

	assert.Len(t, f.store.deductions(), 1)
	assert.Equal(t, int64(4500), f.store.balance("stu-1"))
}

func TestWorkflowAllowsNegativeBalance(t *testing.T) {
	f := newWorkflowFixture(100, "Tk. 500")
	_, err := f.svc.Start(context.Background(), "user-1", models.StartWorkflowRequest{UniversityID: "uni-1"})
	require.NoError(t, err)
	runToCompletion(f)

	assert.Equal(t, int64(-400), f.store.balance("stu-1"))
	deductions := f.store.deductions()
	require.Len(t, deductions, 1)
	assert.Equal(t, int64(-400), deductions[0].BalanceAfter)
}

func TestWorkflowPaymentFeeFromSmallerBalance(t *testing.T) {
	f := newWorkflowFixture(2000, "500")
	_, err := f.svc.Start(context.Background(), "user-1", models.StartWorkflowRequest{UniversityID: "uni-1"})
	require.NoError(t, err)
	runToCompletion(f)
	assert.Equal(t, int64(1500), f.store.balance("stu-1"))
}

func TestWorkflowCreatesApplicationWithMarks(t *testing.T) {
	f := newWorkflowFixture(0, "0")
	marks := 85
	f.store.students["stu-1"].HSCMarks = &marks

	entry, err := f.svc.Resolve(context.Background(), "stu-1", "uni-1", "")
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowCreate, entry.Decision)
	assert.Equal(t, models.ApplicationStatusPending, entry.Application.Status)
	assert.True(t, entry.Application.AutoApplyEnabled)
	assert.Equal(t, 60, entry.Application.MarksRequired)
	assert.Equal(t, 85, entry.Application.MarksObtained)

	f.store.addStudent("stu-2", "user-2", 0)
	entry, err = f.svc.Resolve(context.Background(), "stu-2", "uni-1", "")
	require.NoError(t, err)
	assert.Equal(t, 70, entry.Application.MarksObtained)
}

func TestWorkflowResolveDecisions(t *testing.T) {
	f := newWorkflowFixture(1000, "500")
	txn := "TXN-20240101-000001"
	f.store.addApplication(models.Application{ID: "app-paid", StudentID: "stu-1", UniversityID: "uni-1", Status: models.ApplicationStatusPending, TransactionID: &txn})

	entry, err := f.svc.Resolve(context.Background(), "stu-1", "uni-1", "app-paid")
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowCompleteWithoutSimulation, entry.Decision)

	snapshot, err := f.svc.Start(context.Background(), "user-1", models.StartWorkflowRequest{UniversityID: "uni-1", ApplicationID: "app-paid"})
	require.NoError(t, err)
	assert.True(t, snapshot.Complete)
	assert.Equal(t, 1, f.scheduler.count(), "only the retention timer")
	assert.Empty(t, f.store.deductions())

	f.scheduler.Advance(testRetention)
	status, err := f.svc.Status(context.Background(), "user-1", "app-paid")
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowCompleteWithoutSimulation, status.Decision)
	assert.True(t, status.Complete)

	f.store.addApplication(models.Application{ID: "app-open", StudentID: "stu-1", UniversityID: "uni-2", Status: models.ApplicationStatusPending})
	entry, err = f.svc.Resolve(context.Background(), "stu-1", "uni-2", "")
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowResume, entry.Decision)

	_, err = f.svc.Resolve(context.Background(), "stu-1", "uni-1", "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestWorkflowStartReturnsActiveRun(t *testing.T) {
	f := newWorkflowFixture(5000, "500")
	first, err := f.svc.Start(context.Background(), "user-1", models.StartWorkflowRequest{UniversityID: "uni-1"})
	require.NoError(t, err)
	f.scheduler.Advance(stageAt(1))

	second, err := f.svc.Start(context.Background(), "user-1", models.StartWorkflowRequest{UniversityID: "uni-1"})
	require.NoError(t, err)
	assert.Equal(t, first.RunID, second.RunID)
	assert.Equal(t, 1, second.CurrentStage)
	assert.Equal(t, 9, f.scheduler.count())
}

func TestWorkflowCancelStopsPendingStages(t *testing.T) {
	f := newWorkflowFixture(5000, "500")
	snapshot, err := f.svc.Start(context.Background(), "user-1", models.StartWorkflowRequest{UniversityID: "uni-1"})
	require.NoError(t, err)
	f.scheduler.Advance(stageAt(2))

	cancelled, err := f.svc.Cancel(context.Background(), "user-1", snapshot.ApplicationID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowCancelled, cancelled.Status)

	runToCompletion(f)
	assert.Empty(t, f.store.deductions())
	assert.Equal(t, int64(5000), f.store.balance("stu-1"))
	assert.Equal(t, models.ApplicationStatusPending, f.store.application(snapshot.ApplicationID).Status)
	assert.Empty(t, f.cards.issued)
}

func TestWorkflowPaymentFailureFailsRun(t *testing.T) {
	f := newWorkflowFixture(5000, "500")
	f.store.paymentErr = errors.New("connection reset")
	snapshot, err := f.svc.Start(context.Background(), "user-1", models.StartWorkflowRequest{UniversityID: "uni-1"})
	require.NoError(t, err)
	runToCompletion(f)

	status, err := f.svc.Status(context.Background(), "user-1", snapshot.ApplicationID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowFailed, status.Status)
	assert.False(t, status.Complete)
	require.NotNil(t, status.Error)
	assert.Equal(t, models.StageIndex(models.StagePayment), status.CurrentStage)
	assert.Empty(t, f.cards.issued)
	assert.Equal(t, int64(5000), f.store.balance("stu-1"))
}

func TestWorkflowStartRequiresProfile(t *testing.T) {
	f := newWorkflowFixture(0, "500")
	_, err := f.svc.Start(context.Background(), "stranger", models.StartWorkflowRequest{UniversityID: "uni-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrProfileNotFound.Code, appErrors.FromError(err).Code)

	_, err = f.svc.Start(context.Background(), "user-1", models.StartWorkflowRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestWorkflowShutdownCancelsRuns(t *testing.T) {
	f := newWorkflowFixture(5000, "500")
	snapshot, err := f.svc.Start(context.Background(), "user-1", models.StartWorkflowRequest{UniversityID: "uni-1"})
	require.NoError(t, err)

	f.svc.Shutdown()
	runToCompletion(f)

	status, err := f.svc.Status(context.Background(), "user-1", snapshot.ApplicationID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowCancelled, status.Status)
	assert.Empty(t, f.store.deductions())
}

func TestStageViews(t *testing.T) {
	views := StageViews(3, false)
	require.Len(t, views, 8)
	assert.Equal(t, models.StageCompleted, views[2].State)
	assert.Equal(t, models.StageCurrent, views[3].State)
	assert.Equal(t, models.StagePending, views[4].State)

	done := StageViews(7, true)
	for _, view := range done {
		assert.Equal(t, models.StageCompleted, view.State)
	}
}

func TestWorkflowReleasesFinishedRuns(t *testing.T) {
	f := newWorkflowFixture(5000, "500")
	snapshot, err := f.svc.Start(context.Background(), "user-1", models.StartWorkflowRequest{UniversityID: "uni-1"})
	require.NoError(t, err)
	runToCompletion(f)

	f.svc.mu.Lock()
	assert.Len(t, f.svc.runs, 1)
	f.svc.mu.Unlock()

	f.scheduler.Advance(time.Duration(len(models.WorkflowStages))*testInterval + testCompletion + testRetention)
	f.svc.mu.Lock()
	assert.Empty(t, f.svc.runs)
	f.svc.mu.Unlock()

	status, err := f.svc.Status(context.Background(), "user-1", snapshot.ApplicationID)
	require.NoError(t, err)
	assert.True(t, status.Complete)
	assert.Equal(t, models.WorkflowAlreadyComplete, status.Decision)
	assert.Equal(t, models.ApplicationStatusSubmitted, status.Application.Status)
}

func TestWorkflowReleasesCancelledRuns(t *testing.T) {
	f := newWorkflowFixture(5000, "500")
	snapshot, err := f.svc.Start(context.Background(), "user-1", models.StartWorkflowRequest{UniversityID: "uni-1"})
	require.NoError(t, err)
	_, err = f.svc.Cancel(context.Background(), "user-1", snapshot.ApplicationID)
	require.NoError(t, err)

	f.scheduler.Advance(testRetention)
	f.svc.mu.Lock()
	assert.Empty(t, f.svc.runs)
	f.svc.mu.Unlock()

	_, err = f.svc.Status(context.Background(), "user-1", snapshot.ApplicationID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestWorkflowAdmitCardFailureFailsRun(t *testing.T) {
	f := newWorkflowFixture(5000, "500")
	f.cards.err = errors.New("storage down")
	snapshot, err := f.svc.Start(context.Background(), "user-1", models.StartWorkflowRequest{UniversityID: "uni-1"})
	require.NoError(t, err)
	runToCompletion(f)

	status, err := f.svc.Status(context.Background(), "user-1", snapshot.ApplicationID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowFailed, status.Status)
	assert.False(t, status.Complete)
	assert.Nil(t, status.AdmitCardURL)
	require.NotNil(t, status.Error)
	assert.Equal(t, "admit card issue failed", *status.Error)
	assert.Equal(t, models.StageIndex(models.StageDownload), status.CurrentStage)
	assert.Len(t, f.store.deductions(), 1)
}

func TestWorkflowResolveAdoptsConcurrentlyCreatedApplication(t *testing.T) {
	f := newWorkflowFixture(5000, "500")
	apps := &racingApplications{applicationTable: applicationTable{f.store}}
	f.svc.applications = apps

	entry, err := f.svc.Resolve(context.Background(), "stu-1", "uni-1", "")
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowResume, entry.Decision)
	assert.Equal(t, "app-rival", entry.Application.ID)

	all, err := apps.ListByStudentAndUniversity(context.Background(), "stu-1", "uni-1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestWorkflowZeroFeeStillRecordsLedgerEntry(t *testing.T) {
	f := newWorkflowFixture(1000, "Free")
	snapshot, err := f.svc.Start(context.Background(), "user-1", models.StartWorkflowRequest{UniversityID: "uni-1"})
	require.NoError(t, err)
	runToCompletion(f)

	deductions := f.store.deductions()
	require.Len(t, deductions, 1)
	assert.Equal(t, int64(0), deductions[0].Amount)
	assert.Equal(t, int64(1000), f.store.balance("stu-1"))

	app := f.store.application(snapshot.ApplicationID)
	require.NotNil(t, app.TransactionID)
	assert.Equal(t, deductions[0].TransactionID, *app.TransactionID)
	notes := f.store.notificationsOf(models.NotificationPayment)
	require.Len(t, notes, 1)
	require.NotNil(t, notes[0].TransactionID)
	assert.Equal(t, deductions[0].TransactionID, *notes[0].TransactionID)
}
