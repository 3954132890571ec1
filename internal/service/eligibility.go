package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/noah-isme/admission-agent-api/internal/models"
)

const (
	penaltySSCGPA   = 30
	penaltyHSCGPA   = 30
	penaltyTotalGPA = 20
	penaltyYear     = 10
)

const (
	reasonProfileMissing = "Student profile not found"
	reasonAllMet         = "All requirements met"
)

// EvaluateEligibility compares a profile with a circular's general GPA and
// passing-year requirements. Every failed check is reported; only a missing
// profile short-circuits.
func EvaluateEligibility(profile *models.StudentProfile, circular models.AdmissionCircularData) models.EligibilityResult {
	if profile == nil {
		return models.EligibilityResult{Eligible: false, Reasons: []string{reasonProfileMissing}, Score: 0}
	}

	result := models.EligibilityResult{Eligible: true, Reasons: []string{}, Score: 100}
	penalize := func(points int, reason string) {
		result.Eligible = false
		result.Score -= points
		if result.Score < 0 {
			result.Score = 0
		}
		result.Reasons = append(result.Reasons, reason)
	}

	ssc, hasSSC := profile.SSC()
	hsc, hasHSC := profile.HSC()
	total, hasTotal := ssc+hsc, hasSSC && hasHSC

	req := circular.GeneralGpaRequirements
	if want, ok := requirement(req.SSC); ok && hasSSC && ssc < want {
		penalize(penaltySSCGPA, fmt.Sprintf("SSC GPA: Required %s, yours %s", formatNumber(want), formatNumber(ssc)))
	}
	if want, ok := requirement(req.HSC); ok && hasHSC && hsc < want {
		penalize(penaltyHSCGPA, fmt.Sprintf("HSC GPA: Required %s, yours %s", formatNumber(want), formatNumber(hsc)))
	}
	if want, ok := requirement(req.Total); ok && hasTotal && total < want {
		penalize(penaltyTotalGPA, fmt.Sprintf("Total GPA: Required %s, yours %.2f", formatNumber(want), total))
	}

	years := circular.YearRequirements
	if yearRejected(years.SSCYears, profile.SSCYear) {
		penalize(penaltyYear, "SSC year must be: "+strings.Join(years.SSCYears, ", "))
	}
	if yearRejected(years.HSCYears, profile.HSCYear) {
		penalize(penaltyYear, "HSC year must be: "+strings.Join(years.HSCYears, ", "))
	}

	if result.Eligible && len(result.Reasons) == 0 {
		result.Reasons = append(result.Reasons, reasonAllMet)
	}
	return result
}

// requirement treats a missing or zero minimum as undeclared.
func requirement(v *float64) (float64, bool) {
	if v == nil || *v == 0 {
		return 0, false
	}
	return *v, true
}

func yearRejected(allowed []string, year *string) bool {
	if len(allowed) == 0 || year == nil || strings.TrimSpace(*year) == "" {
		return false
	}
	candidate := strings.TrimSpace(*year)
	for _, y := range allowed {
		if strings.TrimSpace(y) == candidate {
			return false
		}
	}
	return true
}

// formatNumber prints the shortest decimal form, so 8.0 renders as "8".
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
