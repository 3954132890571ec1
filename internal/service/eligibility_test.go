package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/admission-agent-api/internal/models"
)

func strPtr(v string) *string { return &v }

func floatPtr(v float64) *float64 { return &v }

func gpaCircular(ssc, hsc, total float64) models.AdmissionCircularData {
	return models.AdmissionCircularData{
		UniversityName: "Dhaka University",
		GeneralGpaRequirements: models.GpaRequirement{
			SSC:   floatPtr(ssc),
			HSC:   floatPtr(hsc),
			Total: floatPtr(total),
		},
	}
}

func TestEvaluateEligibilityAllRequirementsMet(t *testing.T) {
	profile := &models.StudentProfile{SSCGPA: strPtr("4.50"), HSCGPA: strPtr("4.80")}

	result := EvaluateEligibility(profile, gpaCircular(4.0, 4.0, 8.0))

	assert.True(t, result.Eligible)
	assert.Equal(t, 100, result.Score)
	assert.Equal(t, []string{"All requirements met"}, result.Reasons)
}

func TestEvaluateEligibilityFailsEveryGPACheck(t *testing.T) {
	profile := &models.StudentProfile{SSCGPA: strPtr("3.00"), HSCGPA: strPtr("3.00")}

	result := EvaluateEligibility(profile, gpaCircular(4.0, 4.0, 8.0))

	assert.False(t, result.Eligible)
	assert.Equal(t, 20, result.Score)
	assert.Equal(t, []string{
		"SSC GPA: Required 4, yours 3",
		"HSC GPA: Required 4, yours 3",
		"Total GPA: Required 8, yours 6.00",
	}, result.Reasons)
}

func TestEvaluateEligibilityScoreFloorsAtZero(t *testing.T) {
	profile := &models.StudentProfile{
		SSCGPA:  strPtr("2.50"),
		HSCGPA:  strPtr("2.75"),
		SSCYear: strPtr("2019"),
		HSCYear: strPtr("2021"),
	}
	circular := gpaCircular(3.5, 3.5, 8.0)
	circular.YearRequirements = models.YearRequirement{SSCYears: []string{"2022", "2023"}, HSCYears: []string{"2024"}}

	result := EvaluateEligibility(profile, circular)

	assert.False(t, result.Eligible)
	assert.Equal(t, 0, result.Score)
	assert.Len(t, result.Reasons, 5)
	assert.Equal(t, "SSC GPA: Required 3.5, yours 2.5", result.Reasons[0])
	assert.Equal(t, "Total GPA: Required 8, yours 5.25", result.Reasons[2])
	assert.Equal(t, "SSC year must be: 2022, 2023", result.Reasons[3])
	assert.Equal(t, "HSC year must be: 2024", result.Reasons[4])
}

func TestEvaluateEligibilityMissingProfile(t *testing.T) {
	for _, circular := range []models.AdmissionCircularData{{}, gpaCircular(5, 5, 10)} {
		result := EvaluateEligibility(nil, circular)
		assert.Equal(t, models.EligibilityResult{Eligible: false, Reasons: []string{"Student profile not found"}, Score: 0}, result)
	}
}

func TestEvaluateEligibilitySkipsAbsentValues(t *testing.T) {
	// unparsable and zero GPAs count as absent, as does an empty year
	profile := &models.StudentProfile{SSCGPA: strPtr("n/a"), HSCGPA: strPtr("0"), HSCYear: strPtr("")}
	circular := gpaCircular(4.0, 4.0, 8.0)
	circular.YearRequirements.HSCYears = []string{"2024"}

	result := EvaluateEligibility(profile, circular)

	assert.True(t, result.Eligible)
	assert.Equal(t, 100, result.Score)
	assert.Equal(t, []string{"All requirements met"}, result.Reasons)
}

func TestEvaluateEligibilityIgnoresZeroRequirement(t *testing.T) {
	profile := &models.StudentProfile{SSCGPA: strPtr("3.00"), HSCGPA: strPtr("3.00")}

	result := EvaluateEligibility(profile, gpaCircular(0, 0, 0))

	assert.True(t, result.Eligible)
	assert.Equal(t, []string{"All requirements met"}, result.Reasons)
}
