package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CircularStatus tracks ingestion of a single circular URL.
type CircularStatus string

const (
	CircularStatusPending   CircularStatus = "pending"
	CircularStatusCompleted CircularStatus = "completed"
	CircularStatusFailed    CircularStatus = "failed"
)

// GpaRequirement holds optional minimum GPAs. Zero means not declared.
type GpaRequirement struct {
	SSC            *float64 `json:"ssc,omitempty" yaml:"ssc"`
	HSC            *float64 `json:"hsc,omitempty" yaml:"hsc"`
	Total          *float64 `json:"total,omitempty" yaml:"total"`
	With4thSubject *bool    `json:"with4thSubject,omitempty" yaml:"with4thSubject"`
}

// YearRequirement lists accepted passing years. An empty list is unrestricted.
type YearRequirement struct {
	SSCYears []string `json:"sscYears" yaml:"sscYears"`
	HSCYears []string `json:"hscYears" yaml:"hscYears"`
}

// ApplicationPeriod bounds the application window. Bounds are ISO-8601
// strings as published; either may be absent.
type ApplicationPeriod struct {
	Start *string `json:"start,omitempty" yaml:"start"`
	End   *string `json:"end,omitempty" yaml:"end"`
}

var periodLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

// Bounds parses both ends of the period. ok is false unless both parse.
func (p ApplicationPeriod) Bounds() (start, end time.Time, ok bool) {
	start, okStart := parsePeriodTime(p.Start)
	end, okEnd := parsePeriodTime(p.End)
	return start, end, okStart && okEnd
}

// EndTime parses the closing bound alone.
func (p ApplicationPeriod) EndTime() (time.Time, bool) {
	return parsePeriodTime(p.End)
}

func parsePeriodTime(raw *string) (time.Time, bool) {
	if raw == nil {
		return time.Time{}, false
	}
	value := strings.TrimSpace(*raw)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range periodLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DepartmentRequirement captures per-department minimums.
type DepartmentRequirement struct {
	DepartmentName        string   `json:"departmentName" yaml:"departmentName"`
	DepartmentCode        *string  `json:"departmentCode,omitempty" yaml:"departmentCode"`
	MinGpaSSC             *float64 `json:"minGpaSSC,omitempty" yaml:"minGpaSSC"`
	MinGpaHSC             *float64 `json:"minGpaHSC,omitempty" yaml:"minGpaHSC"`
	MinGpaTotal           *float64 `json:"minGpaTotal,omitempty" yaml:"minGpaTotal"`
	RequiredSubjects      []string `json:"requiredSubjects,omitempty" yaml:"requiredSubjects"`
	SpecialConditions     *string  `json:"specialConditions,omitempty" yaml:"specialConditions"`
	SeatsTotal            *int     `json:"seatsTotal,omitempty" yaml:"seatsTotal"`
	AdmissionTestSubjects []string `json:"admissionTestSubjects,omitempty" yaml:"admissionTestSubjects"`
	AdmissionTestFormat   *string  `json:"admissionTestFormat,omitempty" yaml:"admissionTestFormat"`
}

// AdmissionCircularData is the structured content of a university circular.
type AdmissionCircularData struct {
	UniversityName             string                  `json:"universityName" yaml:"universityName"`
	CircularLink               string                  `json:"circularLink" yaml:"circularLink"`
	WebsiteID                  string                  `json:"websiteId" yaml:"websiteId"`
	ApplicationPeriod          ApplicationPeriod       `json:"applicationPeriod" yaml:"applicationPeriod"`
	ExamDate                   *string                 `json:"examDate,omitempty" yaml:"examDate"`
	ExamTime                   *string                 `json:"examTime,omitempty" yaml:"examTime"`
	ExamVenue                  *string                 `json:"examVenue,omitempty" yaml:"examVenue"`
	ExamDuration               *string                 `json:"examDuration,omitempty" yaml:"examDuration"`
	GeneralGpaRequirements     GpaRequirement          `json:"generalGpaRequirements" yaml:"generalGpaRequirements"`
	YearRequirements           YearRequirement         `json:"yearRequirements" yaml:"yearRequirements"`
	DepartmentWiseRequirements []DepartmentRequirement `json:"departmentWiseRequirements" yaml:"departmentWiseRequirements"`
	ApplicationFeeText         *string                 `json:"applicationFee,omitempty" yaml:"applicationFee"`
	RawSummary                 *string                 `json:"rawSummary,omitempty" yaml:"rawSummary"`
	AgeLimitMin                *int                    `json:"ageLimitMin,omitempty" yaml:"ageLimitMin"`
	AgeLimitMax                *int                    `json:"ageLimitMax,omitempty" yaml:"ageLimitMax"`
	NationalityRequirement     *string                 `json:"nationalityRequirement,omitempty" yaml:"nationalityRequirement"`
	GenderRequirement          *string                 `json:"genderRequirement,omitempty" yaml:"genderRequirement"`
	ContactEmail               *string                 `json:"contactEmail,omitempty" yaml:"contactEmail"`
	ContactPhone               *string                 `json:"contactPhone,omitempty" yaml:"contactPhone"`
	RequiredDocuments          []string                `json:"requiredDocuments,omitempty" yaml:"requiredDocuments"`
	AdditionalNotes            *string                 `json:"additionalNotes,omitempty" yaml:"additionalNotes"`
}

// ApplicationFee extracts the numeric fee from the free-text fee field,
// e.g. "Tk. 1,200" or "৳ ১,২০০" yields 1200. Only the first run of digits
// counts. Missing or digit-free values yield 0.
func (d AdmissionCircularData) ApplicationFee() int64 {
	if d.ApplicationFeeText == nil {
		return 0
	}
	var digits strings.Builder
	for _, r := range *d.ApplicationFeeText {
		if digit, ok := feeDigit(r); ok {
			digits.WriteByte(digit)
			continue
		}
		if r == ',' && digits.Len() > 0 {
			continue
		}
		if digits.Len() > 0 {
			break
		}
	}
	if digits.Len() == 0 {
		return 0
	}
	fee, err := strconv.ParseInt(digits.String(), 10, 64)
	if err != nil {
		return 0
	}
	return fee
}

// feeDigit maps ASCII and Bengali digits to their ASCII form.
func feeDigit(r rune) (byte, bool) {
	switch {
	case r >= '0' && r <= '9':
		return byte(r), true
	case r >= '০' && r <= '৯':
		return byte('0' + (r - '০')), true
	}
	return 0, false
}

// Value implements driver.Valuer for JSONB storage.
func (d AdmissionCircularData) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan implements sql.Scanner for JSONB storage.
func (d *AdmissionCircularData) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = AdmissionCircularData{}
		return nil
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return fmt.Errorf("unsupported circular data type %T", src)
	}
}

// AdmissionCircular is one analyzed circular row, the "result" of an analyze job.
type AdmissionCircular struct {
	ID        string                 `db:"id" json:"id"`
	JobID     *string                `db:"job_id" json:"job_id,omitempty"`
	URL       string                 `db:"url" json:"url"`
	Status    CircularStatus         `db:"status" json:"status"`
	Data      *AdmissionCircularData `db:"data" json:"data,omitempty"`
	Error     *string                `db:"error" json:"error,omitempty"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
	UpdatedAt time.Time              `db:"updated_at" json:"updated_at"`
}

// UniversityName returns the circular's university name when known.
func (c *AdmissionCircular) UniversityName() string {
	if c == nil || c.Data == nil {
		return ""
	}
	return c.Data.UniversityName
}

// CircularFilter narrows result listings.
type CircularFilter struct {
	Status   string
	Search   string
	JobID    string
	Page     int
	PageSize int
}
