package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/admission-agent-api/internal/models"
)

// AnalysisJobRepository persists circular analyze jobs.
type AnalysisJobRepository struct {
	db *sqlx.DB
}

// NewAnalysisJobRepository constructs an AnalysisJobRepository.
func NewAnalysisJobRepository(db *sqlx.DB) *AnalysisJobRepository {
	return &AnalysisJobRepository{db: db}
}

// CreateWithResults inserts the job and one pending circular row per URL.
func (r *AnalysisJobRepository) CreateWithResults(ctx context.Context, job *models.AnalysisJob) (results []models.AdmissionCircular, err error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if job.Status == "" {
		job.Status = models.AnalysisStatusPending
	}
	job.URLsCount = len(job.URLs)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin analysis job transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertJob = `INSERT INTO analysis_jobs (id, status, urls, urls_count, created_by, created_at, completed_at)
VALUES (:id, :status, :urls, :urls_count, :created_by, :created_at, :completed_at)`
	if _, err = tx.NamedExecContext(ctx, insertJob, job); err != nil {
		return nil, fmt.Errorf("insert analysis job: %w", err)
	}

	const insertResult = `INSERT INTO circulars (id, job_id, url, status, data, error, created_at, updated_at)
VALUES (:id, :job_id, :url, :status, :data, :error, :created_at, :updated_at)`
	results = make([]models.AdmissionCircular, 0, len(job.URLs))
	for _, url := range job.URLs {
		jobID := job.ID
		row := models.AdmissionCircular{
			ID:        uuid.NewString(),
			JobID:     &jobID,
			URL:       url,
			Status:    models.CircularStatusPending,
			CreatedAt: job.CreatedAt,
			UpdatedAt: job.CreatedAt,
		}
		if _, err = tx.NamedExecContext(ctx, insertResult, &row); err != nil {
			return nil, fmt.Errorf("insert analysis result: %w", err)
		}
		results = append(results, row)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit analysis job: %w", err)
	}
	return results, nil
}

// FindByID returns a job by id.
func (r *AnalysisJobRepository) FindByID(ctx context.Context, id string) (*models.AnalysisJob, error) {
	const query = `SELECT id, status, urls, urls_count, created_by, created_at, completed_at FROM analysis_jobs WHERE id = $1`
	var job models.AnalysisJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find analysis job: %w", err)
	}
	return &job, nil
}

// UpdateStatus records a job state change; completedAt is set for terminal states.
func (r *AnalysisJobRepository) UpdateStatus(ctx context.Context, id string, status models.AnalysisStatus, completedAt *time.Time) error {
	const query = `UPDATE analysis_jobs SET status = $2, completed_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, completedAt); err != nil {
		return fmt.Errorf("update analysis job status: %w", err)
	}
	return nil
}
