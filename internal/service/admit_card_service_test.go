package service

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admission-agent-api/internal/models"
	appErrors "github.com/noah-isme/admission-agent-api/pkg/errors"
	"github.com/noah-isme/admission-agent-api/pkg/storage"
)

func newAdmitCardFixture(t *testing.T) (*admissionStore, *storage.LocalStorage, *AdmitCardService) {
	t.Helper()
	store := newAdmissionStore()
	store.addStudent("stu-1", "user-1", 0)
	store.addStudent("stu-2", "user-2", 0)
	circular := store.addCircular("uni-1", "Dhaka University", "500")
	examDate := "2024-05-10"
	circular.Data.ExamDate = &examDate

	txn := "TXN-20240301-000042"
	applied := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	store.addApplication(models.Application{ID: "app-paid", StudentID: "stu-1", UniversityID: "uni-1", Status: models.ApplicationStatusSubmitted, TransactionID: &txn, AppliedAt: &applied})
	store.addApplication(models.Application{ID: "app-pending", StudentID: "stu-1", UniversityID: "uni-1", Status: models.ApplicationStatusPending})

	objects, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	svc := NewAdmitCardService(applicationTable{store}, studentTable{store}, circularTable{store}, objects, signer, nil, time.Hour, nil)
	return store, objects, svc
}

func tokenFrom(t *testing.T, link string) string {
	t.Helper()
	parsed, err := url.Parse(link)
	require.NoError(t, err)
	return parsed.Query().Get("token")
}

func TestAdmitCardIssueAndDownload(t *testing.T) {
	_, _, svc := newAdmitCardFixture(t)

	card, err := svc.Issue(context.Background(), "app-paid")
	require.NoError(t, err)
	assert.Equal(t, "app-paid", card.ApplicationID)
	assert.True(t, strings.HasPrefix(card.URL, "/api/v1/admit-cards/download?token="))

	file, err := svc.Download(context.Background(), tokenFrom(t, card.URL))
	require.NoError(t, err)
	assert.Equal(t, "admit-card-app-paid.pdf", file.Filename)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Body), "%PDF"))

	_, err = svc.Download(context.Background(), "garbage")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAdmitCardRequiresPayment(t *testing.T) {
	_, _, svc := newAdmitCardFixture(t)

	_, err := svc.Issue(context.Background(), "app-pending")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)

	_, err = svc.Issue(context.Background(), "app-404")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAdmitCardLinkReissuesMissingCard(t *testing.T) {
	_, objects, svc := newAdmitCardFixture(t)

	card, err := svc.Link(context.Background(), "user-1", "app-paid")
	require.NoError(t, err)
	_, err = objects.Get(context.Background(), "admit-cards/app-paid.pdf")
	require.NoError(t, err)
	_, err = svc.Download(context.Background(), tokenFrom(t, card.URL))
	require.NoError(t, err)

	_, err = svc.Link(context.Background(), "user-2", "app-paid")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAdmitCardCleanupKeepsFreshCards(t *testing.T) {
	_, objects, svc := newAdmitCardFixture(t)
	_, err := svc.Issue(context.Background(), "app-paid")
	require.NoError(t, err)

	require.NoError(t, svc.Cleanup(context.Background()))
	_, err = objects.Get(context.Background(), "admit-cards/app-paid.pdf")
	require.NoError(t, err)
}
