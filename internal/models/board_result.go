package models

// BoardResultRequest identifies an SSC/HSC result on the education board site.
type BoardResultRequest struct {
	Examination  string `json:"examination" validate:"required,oneof=SSC HSC ssc hsc"`
	Year         string `json:"year" validate:"required,len=4,numeric"`
	Board        string `json:"board" validate:"required"`
	Roll         string `json:"roll" validate:"required,numeric"`
	Registration string `json:"registration" validate:"required,numeric"`
}

// BoardResultResponse is the scraped result.
type BoardResultResponse struct {
	Success     bool    `json:"success"`
	GPA         *string `json:"gpa,omitempty"`
	StudentName *string `json:"student_name,omitempty"`
	FatherName  *string `json:"father_name,omitempty"`
	MotherName  *string `json:"mother_name,omitempty"`
	Error       *string `json:"error,omitempty"`
}
