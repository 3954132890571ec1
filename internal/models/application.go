package models

import "time"

// ApplicationStatus enumerates the application lifecycle.
type ApplicationStatus string

const (
	ApplicationStatusPending     ApplicationStatus = "pending"
	ApplicationStatusSubmitted   ApplicationStatus = "submitted"
	ApplicationStatusUnderReview ApplicationStatus = "under_review"
	ApplicationStatusAccepted    ApplicationStatus = "accepted"
)

// IsFinalized reports whether the application has already been paid and sent.
func (s ApplicationStatus) IsFinalized() bool {
	switch s {
	case ApplicationStatusSubmitted, ApplicationStatusUnderReview, ApplicationStatusAccepted:
		return true
	}
	return false
}

// Next returns the only status reachable from s, if any.
func (s ApplicationStatus) Next() (ApplicationStatus, bool) {
	switch s {
	case ApplicationStatusPending:
		return ApplicationStatusSubmitted, true
	case ApplicationStatusSubmitted:
		return ApplicationStatusUnderReview, true
	case ApplicationStatusUnderReview:
		return ApplicationStatusAccepted, true
	}
	return "", false
}

// Application joins a student with a university circular.
type Application struct {
	ID               string            `db:"id" json:"id"`
	StudentID        string            `db:"student_id" json:"studentId"`
	UniversityID     string            `db:"university_id" json:"universityId"`
	Status           ApplicationStatus `db:"status" json:"status"`
	AutoApplyEnabled bool              `db:"auto_apply_enabled" json:"autoApplyEnabled"`
	AppliedAt        *time.Time        `db:"applied_at" json:"appliedAt"`
	TransactionID    *string           `db:"transaction_id" json:"transactionId"`
	MarksRequired    int               `db:"marks_required" json:"marksRequired"`
	MarksObtained    int               `db:"marks_obtained" json:"marksObtained"`
	CreatedAt        time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updatedAt"`
}

// HasPayment reports whether a fee transaction is attached.
func (a *Application) HasPayment() bool {
	return a.TransactionID != nil && *a.TransactionID != ""
}

// ApplicationFilter narrows application listings.
type ApplicationFilter struct {
	StudentID    string
	UniversityID string
	Status       string
	Page         int
	PageSize     int
}

// CreateApplicationRequest selects a university for a student.
type CreateApplicationRequest struct {
	UniversityID string `json:"universityId" validate:"required"`
}

// UpdateApplicationStatusRequest moves an application along its lifecycle.
type UpdateApplicationStatusRequest struct {
	Status ApplicationStatus `json:"status" validate:"required,oneof=submitted under_review accepted"`
}

// ApplicationStats summarises a student's applications.
type ApplicationStats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Submitted  int `json:"submitted"`
	AutoApply  int `json:"autoApply"`
	HoursSaved int `json:"hoursSaved"`
}
