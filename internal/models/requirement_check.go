package models

import (
	"time"

	"github.com/lib/pq"
)

// RequirementStatus is the overall verdict of a requirement check.
type RequirementStatus string

const (
	RequirementEligible    RequirementStatus = "eligible"
	RequirementNotEligible RequirementStatus = "not_eligible"
	RequirementConditional RequirementStatus = "conditional"
)

// RequirementCheck is a persisted, detailed eligibility check.
type RequirementCheck struct {
	ID                          string            `db:"id" json:"id"`
	StudentID                   string            `db:"student_id" json:"student_id"`
	CircularID                  string            `db:"circular_id" json:"circular_id"`
	DepartmentCode              *string           `db:"department_code" json:"department_code,omitempty"`
	MeetsGeneralGPA             *bool             `db:"meets_general_gpa" json:"meets_general_gpa"`
	MeetsDepartmentGPA          *bool             `db:"meets_department_gpa" json:"meets_department_gpa"`
	MeetsYearRequirement        *bool             `db:"meets_year_requirement" json:"meets_year_requirement"`
	MeetsAgeRequirement         *bool             `db:"meets_age_requirement" json:"meets_age_requirement"`
	MeetsNationalityRequirement *bool             `db:"meets_nationality_requirement" json:"meets_nationality_requirement"`
	Status                      RequirementStatus `db:"status" json:"status"`
	Score                       int               `db:"score" json:"score"`
	MissingRequirements         pq.StringArray    `db:"missing_requirements" json:"missing_requirements"`
	GPADifference               *float64          `db:"gpa_difference" json:"gpa_difference,omitempty"`
	CreatedAt                   time.Time         `db:"created_at" json:"created_at"`
}

// RequirementCheckRequest asks for a check against a circular.
type RequirementCheckRequest struct {
	StudentID      string `json:"student_id"`
	CircularID     string `json:"circular_id" validate:"required"`
	DepartmentCode string `json:"department_code" validate:"omitempty,max=64"`
}
