package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/admission-agent-api/internal/models"
)

const notificationColumns = `id, student_id, type, title, message, related_university_id, read, action_url, transaction_id, created_at`

// NotificationRepository persists student notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs a NotificationRepository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create appends a notification.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	return insertNotification(ctx, r.db, n)
}

// List returns a student's notifications, newest first.
func (r *NotificationRepository) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error) {
	args := []interface{}{filter.StudentID}
	conditions := []string{"student_id = $1"}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.UnreadOnly {
		conditions = append(conditions, "read = FALSE")
	}
	query := fmt.Sprintf("SELECT %s FROM notifications WHERE %s ORDER BY created_at DESC", notificationColumns, strings.Join(conditions, " AND "))
	var items []models.Notification
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return items, nil
}

// CountUnreadByType returns unread counts keyed by type.
func (r *NotificationRepository) CountUnreadByType(ctx context.Context, studentID string) (map[models.NotificationType]int, error) {
	var rows []struct {
		Type  models.NotificationType `db:"type"`
		Count int                     `db:"count"`
	}
	const query = `SELECT type, COUNT(*) AS count FROM notifications WHERE student_id = $1 AND read = FALSE GROUP BY type`
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("count unread notifications: %w", err)
	}
	counts := make(map[models.NotificationType]int, len(rows))
	for _, row := range rows {
		counts[row.Type] = row.Count
	}
	return counts, nil
}

// MarkRead flags one notification as read. It reports whether a row matched.
func (r *NotificationRepository) MarkRead(ctx context.Context, studentID, id string) (bool, error) {
	const query = `UPDATE notifications SET read = TRUE WHERE id = $1 AND student_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, studentID)
	if err != nil {
		return false, fmt.Errorf("mark notification read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark notification read: %w", err)
	}
	return rows > 0, nil
}

// MarkAllRead flags every unread notification of a student and returns the count.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, studentID string) (int64, error) {
	const query = `UPDATE notifications SET read = TRUE WHERE student_id = $1 AND read = FALSE`
	result, err := r.db.ExecContext(ctx, query, studentID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return rows, nil
}

// ExistsSince reports whether a notification of the given type and university
// was already sent to the student after since.
func (r *NotificationRepository) ExistsSince(ctx context.Context, studentID string, notificationType models.NotificationType, universityID string, since time.Time) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM notifications WHERE student_id = $1 AND type = $2 AND related_university_id = $3 AND created_at >= $4)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, studentID, notificationType, universityID, since); err != nil {
		return false, fmt.Errorf("check notification exists: %w", err)
	}
	return exists, nil
}

func insertNotification(ctx context.Context, exec namedExecer, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notifications (id, student_id, type, title, message, related_university_id, read, action_url, transaction_id, created_at)
VALUES (:id, :student_id, :type, :title, :message, :related_university_id, :read, :action_url, :transaction_id, :created_at)`
	if _, err := exec.NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}
