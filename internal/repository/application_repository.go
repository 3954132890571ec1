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

const (
	applicationColumns     = `id, student_id, university_id, status, auto_apply_enabled, applied_at, transaction_id, marks_required, marks_obtained, created_at, updated_at`
	applicationUniqueIndex = "uq_applications_student_university"
)

// ApplicationRepository persists student applications.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs an ApplicationRepository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// FindByID returns an application by id.
func (r *ApplicationRepository) FindByID(ctx context.Context, id string) (*models.Application, error) {
	query := fmt.Sprintf("SELECT %s FROM applications WHERE id = $1", applicationColumns)
	var app models.Application
	if err := r.db.GetContext(ctx, &app, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find application: %w", err)
	}
	return &app, nil
}

// ListByStudentAndUniversity returns a student's applications for one university, newest first.
func (r *ApplicationRepository) ListByStudentAndUniversity(ctx context.Context, studentID, universityID string) ([]models.Application, error) {
	query := fmt.Sprintf("SELECT %s FROM applications WHERE student_id = $1 AND university_id = $2 ORDER BY created_at DESC", applicationColumns)
	var apps []models.Application
	if err := r.db.SelectContext(ctx, &apps, query, studentID, universityID); err != nil {
		return nil, fmt.Errorf("list applications for university: %w", err)
	}
	return apps, nil
}

// List returns applications matching the filter along with the total count.
func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, int, error) {
	var conditions []string
	var args []interface{}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.UniversityID != "" {
		args = append(args, filter.UniversityID)
		conditions = append(conditions, fmt.Sprintf("university_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	where := "WHERE 1=1"
	if len(conditions) > 0 {
		where += " AND " + strings.Join(conditions, " AND ")
	}

	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s FROM applications %s ORDER BY created_at DESC LIMIT %d OFFSET %d", applicationColumns, where, size, (page-1)*size)
	var apps []models.Application
	if err := r.db.SelectContext(ctx, &apps, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) FROM applications %s", where), args...); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}
	return apps, total, nil
}

// ListAllByStudent returns every application of a student, newest first.
func (r *ApplicationRepository) ListAllByStudent(ctx context.Context, studentID string) ([]models.Application, error) {
	query := fmt.Sprintf("SELECT %s FROM applications WHERE student_id = $1 ORDER BY created_at DESC", applicationColumns)
	var apps []models.Application
	if err := r.db.SelectContext(ctx, &apps, query, studentID); err != nil {
		return nil, fmt.Errorf("list student applications: %w", err)
	}
	return apps, nil
}

// ListPending returns every pending application across students.
func (r *ApplicationRepository) ListPending(ctx context.Context) ([]models.Application, error) {
	query := fmt.Sprintf("SELECT %s FROM applications WHERE status = $1", applicationColumns)
	var apps []models.Application
	if err := r.db.SelectContext(ctx, &apps, query, models.ApplicationStatusPending); err != nil {
		return nil, fmt.Errorf("list pending applications: %w", err)
	}
	return apps, nil
}

// Create inserts an application.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.Application) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if app.CreatedAt.IsZero() {
		app.CreatedAt = now
	}
	app.UpdatedAt = now
	const query = `INSERT INTO applications (id, student_id, university_id, status, auto_apply_enabled, applied_at, transaction_id, marks_required, marks_obtained, created_at, updated_at)
VALUES (:id, :student_id, :university_id, :status, :auto_apply_enabled, :applied_at, :transaction_id, :marks_required, :marks_obtained, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, app); err != nil {
		if isUniqueViolation(err, applicationUniqueIndex) {
			return ErrApplicationExists
		}
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// SetAutoApply updates the auto-apply flag.
func (r *ApplicationRepository) SetAutoApply(ctx context.Context, id string, enabled bool) error {
	const query = `UPDATE applications SET auto_apply_enabled = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, enabled, time.Now().UTC()); err != nil {
		return fmt.Errorf("set auto apply: %w", err)
	}
	return nil
}

// TransitionStatus moves an application from one status to the next. It
// returns sql.ErrNoRows when the application is no longer in the from status.
func (r *ApplicationRepository) TransitionStatus(ctx context.Context, id string, from, to models.ApplicationStatus) error {
	const query = `UPDATE applications SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`
	result, err := r.db.ExecContext(ctx, query, id, from, to, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("transition application status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition application status: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
