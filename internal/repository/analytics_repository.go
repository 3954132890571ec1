package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/admission-agent-api/internal/models"
)

// AnalyticsRepository exposes read-only aggregates for the admin dashboard.
type AnalyticsRepository struct {
	db *sqlx.DB
}

// NewAnalyticsRepository instantiates the repository.
func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// StudentCount returns the number of student profiles.
func (r *AnalyticsRepository) StudentCount(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM students`); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return total, nil
}

// ApplicationStatusCounts groups applications by status.
func (r *AnalyticsRepository) ApplicationStatusCounts(ctx context.Context) ([]models.StatusCount, error) {
	const query = `SELECT status, COUNT(*) AS count FROM applications GROUP BY status ORDER BY status`
	var rows []models.StatusCount
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count applications by status: %w", err)
	}
	return rows, nil
}

// CircularStatusCounts groups circular rows by ingestion status.
func (r *AnalyticsRepository) CircularStatusCounts(ctx context.Context) ([]models.StatusCount, error) {
	const query = `SELECT status, COUNT(*) AS count FROM circulars GROUP BY status ORDER BY status`
	var rows []models.StatusCount
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count circulars by status: %w", err)
	}
	return rows, nil
}

// LedgerTotals sums recharges and deductions.
func (r *AnalyticsRepository) LedgerTotals(ctx context.Context) (*models.LedgerTotals, error) {
	const query = `SELECT
        COALESCE(SUM(CASE WHEN type = 'recharge' THEN amount ELSE 0 END), 0) AS recharged,
        COALESCE(SUM(CASE WHEN type = 'deduction' THEN amount ELSE 0 END), 0) AS spent,
        COUNT(*) AS transactions
        FROM transactions`
	var totals models.LedgerTotals
	if err := r.db.GetContext(ctx, &totals, query); err != nil {
		return nil, fmt.Errorf("sum ledger: %w", err)
	}
	return &totals, nil
}

// TopUniversities ranks universities by number of applications.
func (r *AnalyticsRepository) TopUniversities(ctx context.Context, limit int) ([]models.UniversityDemand, error) {
	if limit <= 0 {
		limit = 5
	}
	const query = `SELECT a.university_id, COALESCE(c.data->>'universityName', '') AS university_name, COUNT(*) AS applications
        FROM applications a
        LEFT JOIN circulars c ON c.id = a.university_id
        GROUP BY a.university_id, c.data->>'universityName'
        ORDER BY applications DESC, a.university_id
        LIMIT $1`
	var rows []models.UniversityDemand
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("rank universities: %w", err)
	}
	return rows, nil
}
