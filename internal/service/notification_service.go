package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/admission-agent-api/internal/models"
	appErrors "github.com/noah-isme/admission-agent-api/pkg/errors"
)

type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error)
	CountUnreadByType(ctx context.Context, studentID string) (map[models.NotificationType]int, error)
	MarkRead(ctx context.Context, studentID, id string) (bool, error)
	MarkAllRead(ctx context.Context, studentID string) (int64, error)
}

// NotificationService serves a student's notification feed.
type NotificationService struct {
	repo      notificationStore
	students  profileFinder
	circulars circularReader
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(repo notificationStore, students profileFinder, circulars circularReader, validate *validator.Validate, logger *zap.Logger) *NotificationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, students: students, circulars: circulars, validator: validate, logger: logger, now: time.Now}
}

// List returns notifications of one type (or all) with unread counters.
func (s *NotificationService) List(ctx context.Context, userID string, notificationType models.NotificationType, unreadOnly bool) (*models.NotificationList, error) {
	if notificationType != "" && !notificationType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown notification type")
	}
	student, err := loadProfile(ctx, s.students, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.List(ctx, models.NotificationFilter{StudentID: student.ID, Type: notificationType, UnreadOnly: unreadOnly})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	counts, err := s.repo.CountUnreadByType(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count notifications")
	}
	if items == nil {
		items = []models.Notification{}
	}
	if counts == nil {
		counts = map[models.NotificationType]int{}
	}

	list := &models.NotificationList{Items: items, UnreadByType: counts}
	for _, n := range counts {
		list.UnreadTotal += n
	}
	if notificationType == "" {
		list.UnreadFiltered = list.UnreadTotal
	} else {
		list.UnreadFiltered = counts[notificationType]
	}
	return list, nil
}

// MarkRead flags one notification as read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	student, err := loadProfile(ctx, s.students, userID)
	if err != nil {
		return err
	}
	ok, err := s.repo.MarkRead(ctx, student.ID, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	return nil
}

// MarkAllRead flags every unread notification as read and returns how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	student, err := loadProfile(ctx, s.students, userID)
	if err != nil {
		return 0, err
	}
	n, err := s.repo.MarkAllRead(ctx, student.ID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notifications")
	}
	return n, nil
}

// CreateReminder records a manual reminder about a university.
func (s *NotificationService) CreateReminder(ctx context.Context, userID string, req models.CreateReminderRequest) (*models.Notification, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reminder payload")
	}
	student, err := loadProfile(ctx, s.students, userID)
	if err != nil {
		return nil, err
	}
	circular, err := s.circulars.FindByID(ctx, req.UniversityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "university not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load university")
	}

	universityID := circular.ID
	notification := &models.Notification{
		StudentID:           student.ID,
		Type:                models.NotificationManualReminder,
		Title:               "Reminder: " + circular.UniversityName(),
		Message:             req.Message,
		RelatedUniversityID: &universityID,
		CreatedAt:           s.now().UTC(),
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create reminder")
	}
	return notification, nil
}
