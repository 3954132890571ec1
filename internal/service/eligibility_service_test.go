package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admission-agent-api/internal/models"
	appErrors "github.com/noah-isme/admission-agent-api/pkg/errors"
)

func newEligibilityFixture() (*admissionStore, *EligibilityService) {
	store := newAdmissionStore()
	student := store.addStudent("stu-1", "user-1", 0)
	student.SSCGPA = strPtr("4.50")
	student.HSCGPA = strPtr("4.00")

	store.addCircular("uni-a", "Alpha University", "500")
	store.circulars["uni-a"].Data.GeneralGpaRequirements = models.GpaRequirement{SSC: floatPtr(5.0)}
	store.addCircular("uni-b", "Beta Institute", "300")
	store.addCircular("uni-c", "Gamma University", "700")
	store.circulars["uni-c"].Data.GeneralGpaRequirements = models.GpaRequirement{SSC: floatPtr(5.0), HSC: floatPtr(5.0)}
	start, end := "2024-02-01", "2024-03-31"
	store.circulars["uni-b"].Data.ApplicationPeriod = models.ApplicationPeriod{Start: &start, End: &end}

	svc := NewEligibilityService(circularTable{store}, store, nil, 0, nil)
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }
	return store, svc
}

func TestEligibilityListSortsByScore(t *testing.T) {
	_, svc := newEligibilityFixture()

	items, err := svc.List(context.Background(), "user-1", EligibilityQuery{})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "uni-b", items[0].Circular.ID)
	assert.Equal(t, 100, items[0].Eligibility.Score)
	assert.True(t, items[0].IsOpen)
	assert.Equal(t, "uni-a", items[1].Circular.ID)
	assert.Equal(t, 70, items[1].Eligibility.Score)
	assert.Equal(t, "uni-c", items[2].Circular.ID)
	assert.Equal(t, 40, items[2].Eligibility.Score)
}

func TestEligibilityListFiltersAndSearches(t *testing.T) {
	_, svc := newEligibilityFixture()

	eligible, err := svc.List(context.Background(), "user-1", EligibilityQuery{Filter: models.EligibilityEligible})
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	assert.Equal(t, "uni-b", eligible[0].Circular.ID)

	notEligible, err := svc.List(context.Background(), "user-1", EligibilityQuery{Filter: models.EligibilityNotEligible, Search: "UNIVERSITY"})
	require.NoError(t, err)
	assert.Len(t, notEligible, 2)

	_, err = svc.List(context.Background(), "user-1", EligibilityQuery{Filter: "maybe"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEligibilityCheckMemoizes(t *testing.T) {
	_, svc := newEligibilityFixture()

	first, err := svc.Check(context.Background(), "user-1", "uni-a")
	require.NoError(t, err)
	assert.False(t, first.Eligibility.Eligible)
	assert.Equal(t, []string{"SSC GPA: Required 5, yours 4.5"}, first.Eligibility.Reasons)

	second, err := svc.Check(context.Background(), "user-1", "uni-a")
	require.NoError(t, err)
	assert.Equal(t, first.Eligibility, second.Eligibility)
	assert.Len(t, svc.memo, 1)

	_, err = svc.Check(context.Background(), "user-1", "uni-404")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEligibilityListRecomputesOpenWindowOnCachedSnapshot(t *testing.T) {
	store, _ := newEligibilityFixture()
	repo := &stubCacheRepo{}
	svc := NewEligibilityService(circularTable{store}, store, NewCacheService(repo, nil, time.Minute, nil, true), time.Hour, nil)
	svc.now = func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) }

	items, err := svc.List(context.Background(), "user-1", EligibilityQuery{Search: "beta"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].IsOpen)
	require.Len(t, repo.store, 1)

	svc.now = func() time.Time { return time.Date(2024, 4, 1, 0, 0, 1, 0, time.UTC) }
	items, err = svc.List(context.Background(), "user-1", EligibilityQuery{Search: "beta"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.False(t, items[0].IsOpen)
}
