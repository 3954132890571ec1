package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/admission-agent-api/internal/models"
)

const circularColumns = `id, job_id, url, status, data, error, created_at, updated_at`

// CircularRepository persists analyzed admission circulars.
type CircularRepository struct {
	db *sqlx.DB
}

// NewCircularRepository constructs a CircularRepository.
func NewCircularRepository(db *sqlx.DB) *CircularRepository {
	return &CircularRepository{db: db}
}

// FindByID returns a circular by id.
func (r *CircularRepository) FindByID(ctx context.Context, id string) (*models.AdmissionCircular, error) {
	query := fmt.Sprintf("SELECT %s FROM circulars WHERE id = $1", circularColumns)
	var circular models.AdmissionCircular
	if err := r.db.GetContext(ctx, &circular, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find circular: %w", err)
	}
	return &circular, nil
}

// FindByLink returns a completed circular by its published link.
func (r *CircularRepository) FindByLink(ctx context.Context, link string) (*models.AdmissionCircular, error) {
	query := fmt.Sprintf("SELECT %s FROM circulars WHERE data->>'circularLink' = $1 ORDER BY created_at DESC LIMIT 1", circularColumns)
	var circular models.AdmissionCircular
	if err := r.db.GetContext(ctx, &circular, query, link); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find circular by link: %w", err)
	}
	return &circular, nil
}

func buildCircularWhere(filter models.CircularFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.JobID != "" {
		args = append(args, filter.JobID)
		conditions = append(conditions, fmt.Sprintf("job_id = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("LOWER(data->>'universityName') LIKE $%d", len(args)))
	}
	where := "WHERE 1=1"
	if len(conditions) > 0 {
		where += " AND " + strings.Join(conditions, " AND ")
	}
	return where, args
}

// List returns a page of circulars and the total count.
func (r *CircularRepository) List(ctx context.Context, filter models.CircularFilter) ([]models.AdmissionCircular, int, error) {
	where, args := buildCircularWhere(filter)
	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s FROM circulars %s ORDER BY created_at DESC LIMIT %d OFFSET %d", circularColumns, where, size, (page-1)*size)

	var circulars []models.AdmissionCircular
	if err := r.db.SelectContext(ctx, &circulars, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list circulars: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) FROM circulars %s", where), args...); err != nil {
		return nil, 0, fmt.Errorf("count circulars: %w", err)
	}
	return circulars, total, nil
}

// ListCompleted returns every successfully analyzed circular.
func (r *CircularRepository) ListCompleted(ctx context.Context) ([]models.AdmissionCircular, error) {
	query := fmt.Sprintf("SELECT %s FROM circulars WHERE status = $1 ORDER BY created_at DESC", circularColumns)
	var circulars []models.AdmissionCircular
	if err := r.db.SelectContext(ctx, &circulars, query, models.CircularStatusCompleted); err != nil {
		return nil, fmt.Errorf("list completed circulars: %w", err)
	}
	return circulars, nil
}

// ListByJob returns every circular row created for an analyze job.
func (r *CircularRepository) ListByJob(ctx context.Context, jobID string) ([]models.AdmissionCircular, error) {
	query := fmt.Sprintf("SELECT %s FROM circulars WHERE job_id = $1 ORDER BY created_at ASC", circularColumns)
	var circulars []models.AdmissionCircular
	if err := r.db.SelectContext(ctx, &circulars, query, jobID); err != nil {
		return nil, fmt.Errorf("list circulars by job: %w", err)
	}
	return circulars, nil
}

// Create inserts a circular row.
func (r *CircularRepository) Create(ctx context.Context, circular *models.AdmissionCircular) error {
	if circular.ID == "" {
		circular.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if circular.CreatedAt.IsZero() {
		circular.CreatedAt = now
	}
	circular.UpdatedAt = now
	if circular.Status == "" {
		circular.Status = models.CircularStatusPending
	}
	const query = `INSERT INTO circulars (id, job_id, url, status, data, error, created_at, updated_at)
VALUES (:id, :job_id, :url, :status, :data, :error, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, circular); err != nil {
		return fmt.Errorf("create circular: %w", err)
	}
	return nil
}

// SaveResult records the outcome of analyzing one circular URL.
func (r *CircularRepository) SaveResult(ctx context.Context, id string, status models.CircularStatus, data *models.AdmissionCircularData, errMsg *string) error {
	const query = `UPDATE circulars SET status = $2, data = $3, error = $4, updated_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, data, errMsg, time.Now().UTC()); err != nil {
		return fmt.Errorf("save circular result: %w", err)
	}
	return nil
}
