package models

import (
	"time"

	"github.com/lib/pq"
)

// AnalysisStatus captures the analyze job state machine.
type AnalysisStatus string

const (
	AnalysisStatusPending    AnalysisStatus = "pending"
	AnalysisStatusProcessing AnalysisStatus = "processing"
	AnalysisStatusCompleted  AnalysisStatus = "completed"
	AnalysisStatusFailed     AnalysisStatus = "failed"
)

// Terminal reports whether no further transitions will happen.
func (s AnalysisStatus) Terminal() bool {
	return s == AnalysisStatusCompleted || s == AnalysisStatusFailed
}

// AnalysisJob is a batch of circular URLs submitted for ingestion.
type AnalysisJob struct {
	ID          string         `db:"id" json:"job_id"`
	Status      AnalysisStatus `db:"status" json:"status"`
	URLs        pq.StringArray `db:"urls" json:"urls"`
	URLsCount   int            `db:"urls_count" json:"urls_count"`
	CreatedBy   string         `db:"created_by" json:"created_by"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	CompletedAt *time.Time     `db:"completed_at" json:"completed_at,omitempty"`
}

// AnalyzeRequest submits one or more URLs.
type AnalyzeRequest struct {
	URLs []string `json:"urls" validate:"required,min=1,max=50,dive,required,url"`
}

// AnalysisJobStatus bundles a job with its results grouped by outcome.
type AnalysisJobStatus struct {
	AnalysisJob
	Results []AdmissionCircular `json:"results"`
	Errors  []AdmissionCircular `json:"errors"`
	Pending []AdmissionCircular `json:"pending"`
}
