package models

// EligibilityResult is the verdict of comparing a profile with a circular.
type EligibilityResult struct {
	Eligible bool     `json:"eligible"`
	Reasons  []string `json:"reasons"`
	Score    int      `json:"score"`
}

// EligibilityFilter selects circulars by verdict.
type EligibilityFilter string

const (
	EligibilityAll         EligibilityFilter = "all"
	EligibilityEligible    EligibilityFilter = "eligible"
	EligibilityNotEligible EligibilityFilter = "not-eligible"
)

// CircularEligibility pairs a circular with its verdict for the caller.
type CircularEligibility struct {
	Circular    AdmissionCircular `json:"circular"`
	Eligibility EligibilityResult `json:"eligibility"`
	IsOpen      bool              `json:"isOpen"`
}
