package models

import "time"

// NotificationType enumerates notification categories.
type NotificationType string

const (
	NotificationPayment           NotificationType = "payment"
	NotificationCircularScrape    NotificationType = "circular_scrape"
	NotificationApplicationStatus NotificationType = "application_status"
	NotificationDeadline          NotificationType = "deadline"
	NotificationManualReminder    NotificationType = "manual_reminder"
	NotificationSystem            NotificationType = "system"
)

// NotificationTypes lists every valid notification type.
var NotificationTypes = []NotificationType{
	NotificationPayment,
	NotificationCircularScrape,
	NotificationApplicationStatus,
	NotificationDeadline,
	NotificationManualReminder,
	NotificationSystem,
}

// Valid reports whether t is a known type.
func (t NotificationType) Valid() bool {
	for _, known := range NotificationTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Notification is an append-only event addressed to one student.
type Notification struct {
	ID                  string           `db:"id" json:"id"`
	StudentID           string           `db:"student_id" json:"studentId"`
	Type                NotificationType `db:"type" json:"type"`
	Title               string           `db:"title" json:"title"`
	Message             string           `db:"message" json:"message"`
	RelatedUniversityID *string          `db:"related_university_id" json:"relatedUniversityId,omitempty"`
	Read                bool             `db:"read" json:"read"`
	ActionURL           *string          `db:"action_url" json:"actionUrl,omitempty"`
	TransactionID       *string          `db:"transaction_id" json:"transactionId,omitempty"`
	CreatedAt           time.Time        `db:"created_at" json:"createdAt"`
}

// NotificationFilter narrows notification listings.
type NotificationFilter struct {
	StudentID  string
	Type       NotificationType
	UnreadOnly bool
}

// CreateReminderRequest lets a student schedule a manual reminder.
type CreateReminderRequest struct {
	UniversityID string `json:"universityId" validate:"required"`
	Message      string `json:"message" validate:"required,max=500"`
}

// NotificationList is a filtered listing with unread counters.
type NotificationList struct {
	Items          []Notification           `json:"items"`
	UnreadTotal    int                      `json:"unreadTotal"`
	UnreadFiltered int                      `json:"unreadFiltered"`
	UnreadByType   map[NotificationType]int `json:"unreadByType"`
}
