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

const studentColumns = `id, user_id, full_name, email, phone, father_name, mother_name, date_of_birth, gender, nationality,
ssc_roll, ssc_registration, ssc_board, ssc_year, ssc_gpa, hsc_roll, hsc_registration, hsc_board, hsc_year, hsc_gpa,
hsc_marks, current_balance, status, created_at, updated_at`

// StudentRepository handles persistence of student profiles.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID returns a profile by id.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentProfile, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE id = $1", studentColumns)
	var student models.StudentProfile
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by id: %w", err)
	}
	return &student, nil
}

// FindByUserID returns the profile owned by a user account.
func (r *StudentRepository) FindByUserID(ctx context.Context, userID string) (*models.StudentProfile, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE user_id = $1", studentColumns)
	var student models.StudentProfile
	if err := r.db.GetContext(ctx, &student, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by user: %w", err)
	}
	return &student, nil
}

// List returns profiles matching the filter along with the total count.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentProfile, int, error) {
	var conditions []string
	var args []interface{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(full_name) LIKE $%d OR LOWER(email) LIKE $%d)", len(args), len(args)))
	}
	where := "WHERE 1=1"
	if len(conditions) > 0 {
		where += " AND " + strings.Join(conditions, " AND ")
	}

	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s FROM students %s ORDER BY created_at DESC LIMIT %d OFFSET %d", studentColumns, where, size, (page-1)*size)

	var students []models.StudentProfile
	if err := r.db.SelectContext(ctx, &students, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) FROM students %s", where), args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// ListIDs returns the ids of all active students.
func (r *StudentRepository) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM students WHERE status = $1`, models.StudentStatusActive); err != nil {
		return nil, fmt.Errorf("list student ids: %w", err)
	}
	return ids, nil
}

// Create inserts a new profile.
func (r *StudentRepository) Create(ctx context.Context, student *models.StudentProfile) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	if student.Status == "" {
		student.Status = models.StudentStatusActive
	}

	const query = `INSERT INTO students (id, user_id, full_name, email, phone, father_name, mother_name, date_of_birth, gender, nationality,
ssc_roll, ssc_registration, ssc_board, ssc_year, ssc_gpa, hsc_roll, hsc_registration, hsc_board, hsc_year, hsc_gpa,
hsc_marks, current_balance, status, created_at, updated_at)
VALUES (:id, :user_id, :full_name, :email, :phone, :father_name, :mother_name, :date_of_birth, :gender, :nationality,
:ssc_roll, :ssc_registration, :ssc_board, :ssc_year, :ssc_gpa, :hsc_roll, :hsc_registration, :hsc_board, :hsc_year, :hsc_gpa,
:hsc_marks, :current_balance, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update writes the mutable profile fields. The wallet balance is owned by
// the ledger and never written here.
func (r *StudentRepository) Update(ctx context.Context, student *models.StudentProfile) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET full_name = :full_name, email = :email, phone = :phone, father_name = :father_name,
mother_name = :mother_name, date_of_birth = :date_of_birth, gender = :gender, nationality = :nationality,
ssc_roll = :ssc_roll, ssc_registration = :ssc_registration, ssc_board = :ssc_board, ssc_year = :ssc_year, ssc_gpa = :ssc_gpa,
hsc_roll = :hsc_roll, hsc_registration = :hsc_registration, hsc_board = :hsc_board, hsc_year = :hsc_year, hsc_gpa = :hsc_gpa,
hsc_marks = :hsc_marks, status = :status, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
