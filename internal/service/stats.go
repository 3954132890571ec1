package service

import (
	"math"
	"time"

	"github.com/noah-isme/admission-agent-api/internal/models"
)

// hoursPerApplication is the manual effort one automated application replaces.
const hoursPerApplication = 1.2

// TotalSpent sums deduction amounts.
func TotalSpent(txns []models.Transaction) int64 {
	return sumByType(txns, models.TransactionDeduction)
}

// TotalRecharged sums recharge amounts.
func TotalRecharged(txns []models.Transaction) int64 {
	return sumByType(txns, models.TransactionRecharge)
}

func sumByType(txns []models.Transaction, kind models.TransactionType) int64 {
	var total int64
	for _, t := range txns {
		if t.Type == kind {
			total += t.Amount
		}
	}
	return total
}

// HoursSaved estimates time saved by n applications, rounded half away from zero.
func HoursSaved(n int) int {
	return int(math.Round(float64(n) * hoursPerApplication))
}

// IsOpen reports whether now falls inside the period, bounds inclusive.
// A period missing either bound is never open.
func IsOpen(period models.ApplicationPeriod, now time.Time) bool {
	start, end, ok := period.Bounds()
	if !ok {
		return false
	}
	return !now.Before(start) && !now.After(end)
}

// EligibleCount counts circulars the profile is eligible for.
func EligibleCount(profile *models.StudentProfile, circulars []models.AdmissionCircularData) int {
	count := 0
	for _, c := range circulars {
		if EvaluateEligibility(profile, c).Eligible {
			count++
		}
	}
	return count
}

// OpenNowCount counts circulars currently accepting applications.
func OpenNowCount(circulars []models.AdmissionCircularData, now time.Time) int {
	count := 0
	for _, c := range circulars {
		if IsOpen(c.ApplicationPeriod, now) {
			count++
		}
	}
	return count
}

// SummarizeApplications folds a student's applications into ApplicationStats.
func SummarizeApplications(apps []models.Application) models.ApplicationStats {
	stats := models.ApplicationStats{Total: len(apps), HoursSaved: HoursSaved(len(apps))}
	for _, app := range apps {
		switch {
		case app.Status == models.ApplicationStatusPending:
			stats.Pending++
		case app.Status.IsFinalized():
			stats.Submitted++
		}
		if app.AutoApplyEnabled {
			stats.AutoApply++
		}
	}
	return stats
}
