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

// RequirementCheckRepository persists requirement checks.
type RequirementCheckRepository struct {
	db *sqlx.DB
}

// NewRequirementCheckRepository constructs a RequirementCheckRepository.
func NewRequirementCheckRepository(db *sqlx.DB) *RequirementCheckRepository {
	return &RequirementCheckRepository{db: db}
}

// Create inserts a requirement check.
func (r *RequirementCheckRepository) Create(ctx context.Context, check *models.RequirementCheck) error {
	if check.ID == "" {
		check.ID = uuid.NewString()
	}
	if check.CreatedAt.IsZero() {
		check.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO requirement_checks (id, student_id, circular_id, department_code, meets_general_gpa, meets_department_gpa,
meets_year_requirement, meets_age_requirement, meets_nationality_requirement, status, score, missing_requirements, gpa_difference, created_at)
VALUES (:id, :student_id, :circular_id, :department_code, :meets_general_gpa, :meets_department_gpa,
:meets_year_requirement, :meets_age_requirement, :meets_nationality_requirement, :status, :score, :missing_requirements, :gpa_difference, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, check); err != nil {
		return fmt.Errorf("create requirement check: %w", err)
	}
	return nil
}

// FindByID returns a requirement check by id.
func (r *RequirementCheckRepository) FindByID(ctx context.Context, id string) (*models.RequirementCheck, error) {
	const query = `SELECT id, student_id, circular_id, department_code, meets_general_gpa, meets_department_gpa, meets_year_requirement,
meets_age_requirement, meets_nationality_requirement, status, score, missing_requirements, gpa_difference, created_at
FROM requirement_checks WHERE id = $1`
	var check models.RequirementCheck
	if err := r.db.GetContext(ctx, &check, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find requirement check: %w", err)
	}
	return &check, nil
}
