package models

import (
	"strconv"
	"strings"
	"time"
)

// StudentStatus marks the lifecycle of a student profile.
type StudentStatus string

const (
	StudentStatusActive   StudentStatus = "active"
	StudentStatusInactive StudentStatus = "inactive"
)

// StudentProfile is the academic and personal record of an applicant.
type StudentProfile struct {
	ID              string        `db:"id" json:"id"`
	UserID          string        `db:"user_id" json:"userId"`
	FullName        string        `db:"full_name" json:"fullName"`
	Email           string        `db:"email" json:"email"`
	Phone           *string       `db:"phone" json:"phone,omitempty"`
	FatherName      *string       `db:"father_name" json:"fatherName,omitempty"`
	MotherName      *string       `db:"mother_name" json:"motherName,omitempty"`
	DateOfBirth     *string       `db:"date_of_birth" json:"dateOfBirth,omitempty"`
	Gender          *string       `db:"gender" json:"gender,omitempty"`
	Nationality     *string       `db:"nationality" json:"nationality,omitempty"`
	SSCRoll         *string       `db:"ssc_roll" json:"sscRoll,omitempty"`
	SSCRegistration *string       `db:"ssc_registration" json:"sscRegistration,omitempty"`
	SSCBoard        *string       `db:"ssc_board" json:"sscBoard,omitempty"`
	SSCYear         *string       `db:"ssc_year" json:"sscYear,omitempty"`
	SSCGPA          *string       `db:"ssc_gpa" json:"sscGpa,omitempty"`
	HSCRoll         *string       `db:"hsc_roll" json:"hscRoll,omitempty"`
	HSCRegistration *string       `db:"hsc_registration" json:"hscRegistration,omitempty"`
	HSCBoard        *string       `db:"hsc_board" json:"hscBoard,omitempty"`
	HSCYear         *string       `db:"hsc_year" json:"hscYear,omitempty"`
	HSCGPA          *string       `db:"hsc_gpa" json:"hscGpa,omitempty"`
	HSCMarks        *int          `db:"hsc_marks" json:"hscMarks,omitempty"`
	CurrentBalance  int64         `db:"current_balance" json:"currentBalance"`
	Status          StudentStatus `db:"status" json:"status"`
	CreatedAt       time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updatedAt"`
}

// ParseGPA converts a stored GPA string. Empty, unparsable and zero values
// are reported as absent.
func ParseGPA(raw *string) (float64, bool) {
	if raw == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(*raw), 64)
	if err != nil || value == 0 {
		return 0, false
	}
	return value, true
}

// SSC returns the parsed SSC GPA.
func (s *StudentProfile) SSC() (float64, bool) { return ParseGPA(s.SSCGPA) }

// HSC returns the parsed HSC GPA.
func (s *StudentProfile) HSC() (float64, bool) { return ParseGPA(s.HSCGPA) }

// StudentFilter captures filtering criteria for listing students.
type StudentFilter struct {
	Search   string `form:"search"`
	Status   string `form:"status"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// StudentProfileRequest is the create/update payload for a profile.
type StudentProfileRequest struct {
	FullName        *string `json:"fullName" validate:"omitempty,min=1,max=200"`
	Email           *string `json:"email" validate:"omitempty,email"`
	Phone           *string `json:"phone" validate:"omitempty,max=32"`
	FatherName      *string `json:"fatherName" validate:"omitempty,max=200"`
	MotherName      *string `json:"motherName" validate:"omitempty,max=200"`
	DateOfBirth     *string `json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
	Gender          *string `json:"gender" validate:"omitempty,max=16"`
	Nationality     *string `json:"nationality" validate:"omitempty,max=64"`
	SSCRoll         *string `json:"sscRoll" validate:"omitempty,max=32"`
	SSCRegistration *string `json:"sscRegistration" validate:"omitempty,max=32"`
	SSCBoard        *string `json:"sscBoard" validate:"omitempty,max=64"`
	SSCYear         *string `json:"sscYear" validate:"omitempty,len=4,numeric"`
	SSCGPA          *string `json:"sscGpa" validate:"omitempty,numeric"`
	HSCRoll         *string `json:"hscRoll" validate:"omitempty,max=32"`
	HSCRegistration *string `json:"hscRegistration" validate:"omitempty,max=32"`
	HSCBoard        *string `json:"hscBoard" validate:"omitempty,max=64"`
	HSCYear         *string `json:"hscYear" validate:"omitempty,len=4,numeric"`
	HSCGPA          *string `json:"hscGpa" validate:"omitempty,numeric"`
	HSCMarks        *int    `json:"hscMarks" validate:"omitempty,min=0,max=1300"`
}
