package dto

import (
	"time"

	"github.com/noah-isme/admission-agent-api/internal/models"
)

// AdminDashboardResponse captures the aggregated admin dashboard payload.
type AdminDashboardResponse struct {
	Students        int                       `json:"students"`
	Applications    map[string]int            `json:"applications"`
	Circulars       map[string]int            `json:"circulars"`
	Ledger          models.LedgerTotals       `json:"ledger"`
	TopUniversities []models.UniversityDemand `json:"topUniversities"`
	GeneratedAt     time.Time                 `json:"generatedAt"`
}

// StudentDashboardResponse is the signed-in student's overview.
type StudentDashboardResponse struct {
	FullName            string                       `json:"fullName"`
	Wallet              models.WalletSummary         `json:"wallet"`
	Applications        models.ApplicationStats      `json:"applications"`
	EligibleCount       int                          `json:"eligibleCount"`
	OpenNowCount        int                          `json:"openNowCount"`
	UnreadNotifications int                          `json:"unreadNotifications"`
	Recommended         []models.CircularEligibility `json:"recommended"`
	UpcomingDeadlines   []DeadlineItem               `json:"upcomingDeadlines"`
}

// DeadlineItem is a pending application whose circular closes soon.
type DeadlineItem struct {
	ApplicationID  string    `json:"applicationId"`
	UniversityID   string    `json:"universityId"`
	UniversityName string    `json:"universityName"`
	ClosesAt       time.Time `json:"closesAt"`
}
