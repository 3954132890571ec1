package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/admission-agent-api/internal/models"
	"github.com/noah-isme/admission-agent-api/pkg/config"
)

const (
	defaultReminderSchedule = "0 0 8 * * *"
	reminderLockTTL         = 24 * time.Hour
	reminderSweepTimeout    = 5 * time.Minute
)

type pendingApplicationLister interface {
	ListPending(ctx context.Context) ([]models.Application, error)
}

type reminderNotifications interface {
	Create(ctx context.Context, n *models.Notification) error
	ExistsSince(ctx context.Context, studentID string, notificationType models.NotificationType, universityID string, since time.Time) (bool, error)
}

// ReminderService owns the cron scheduler and emits deadline reminders for
// pending applications whose circular closes soon.
type ReminderService struct {
	applications  pendingApplicationLister
	circulars     circularReader
	notifications reminderNotifications
	cache         *CacheService
	metrics       *MetricsService
	cfg           config.ReminderConfig
	logger        *zap.Logger
	now           func() time.Time

	cron    *cron.Cron
	mu      sync.Mutex
	started bool
}

// NewReminderService constructs a ReminderService. The cron parser accepts a
// leading seconds field.
func NewReminderService(
	applications pendingApplicationLister,
	circulars circularReader,
	notifications reminderNotifications,
	cache *CacheService,
	metrics *MetricsService,
	cfg config.ReminderConfig,
	logger *zap.Logger,
) *ReminderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Schedule == "" {
		cfg.Schedule = defaultReminderSchedule
	}
	if cfg.DeadlineWindow <= 0 {
		cfg.DeadlineWindow = 72 * time.Hour
	}
	return &ReminderService{
		applications:  applications,
		circulars:     circulars,
		notifications: notifications,
		cache:         cache,
		metrics:       metrics,
		cfg:           cfg,
		logger:        logger,
		now:           time.Now,
		cron:          cron.New(cron.WithSeconds()),
	}
}

// Register adds a named job to the shared scheduler.
func (s *ReminderService) Register(spec, name string, fn func(ctx context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), reminderSweepTimeout)
		defer cancel()
		started := time.Now()
		if err := fn(ctx); err != nil {
			s.logger.Sugar().Warnw("scheduled job failed", "job", name, "error", err)
			return
		}
		s.logger.Sugar().Infow("scheduled job finished", "job", name, "duration", time.Since(started).String())
	})
	if err != nil {
		return fmt.Errorf("register %s (%s): %w", name, spec, err)
	}
	return nil
}

// Start registers the deadline sweep and starts the scheduler.
func (s *ReminderService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	if err := s.Register(s.cfg.Schedule, "deadline_reminders", func(ctx context.Context) error {
		_, err := s.Sweep(ctx)
		return err
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.started = true
	s.logger.Sugar().Infow("reminder scheduler started", "schedule", s.cfg.Schedule, "window", s.cfg.DeadlineWindow.String())
	return nil
}

// Stop halts the scheduler and waits for running jobs.
func (s *ReminderService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	<-s.cron.Stop().Done()
	s.started = false
	s.logger.Sugar().Infow("reminder scheduler stopped")
}

// Sweep emits at most one deadline notification per pending application per
// UTC day and returns how many were sent.
func (s *ReminderService) Sweep(ctx context.Context) (int, error) {
	apps, err := s.applications.ListPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending applications: %w", err)
	}

	now := s.now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	horizon := now.Add(s.cfg.DeadlineWindow)
	circulars := make(map[string]*models.AdmissionCircular)

	sent := 0
	for _, app := range apps {
		circular, ok := circulars[app.UniversityID]
		if !ok {
			circular, err = s.circulars.FindByID(ctx, app.UniversityID)
			if err != nil {
				s.logger.Warn("reminder skipped, circular unavailable", zap.String("application_id", app.ID), zap.Error(err))
				circular = nil
			}
			circulars[app.UniversityID] = circular
		}
		if circular == nil || circular.Data == nil {
			continue
		}
		deadline, ok := circular.Data.ApplicationPeriod.EndTime()
		if !ok || deadline.Before(now) || deadline.After(horizon) {
			continue
		}

		exists, err := s.notifications.ExistsSince(ctx, app.StudentID, models.NotificationDeadline, app.UniversityID, dayStart)
		if err != nil {
			return sent, fmt.Errorf("check reminder: %w", err)
		}
		if exists {
			continue
		}
		lock := fmt.Sprintf("reminder:%s:%s", app.ID, dayStart.Format("20060102"))
		if acquired, err := s.cache.Acquire(ctx, lock, reminderLockTTL); err == nil && !acquired {
			continue
		}

		universityID := app.UniversityID
		actionURL := paymentActionURL
		notification := &models.Notification{
			StudentID:           app.StudentID,
			Type:                models.NotificationDeadline,
			Title:               "Application Deadline Approaching",
			Message:             fmt.Sprintf("%s closes applications on %s. Complete your application before the deadline.", circular.UniversityName(), deadline.Format("Jan 2, 2006")),
			RelatedUniversityID: &universityID,
			ActionURL:           &actionURL,
		}
		if err := s.notifications.Create(ctx, notification); err != nil {
			s.logger.Warn("failed to record notification", zap.String("application_id", app.ID), zap.Error(err))
			continue
		}
		sent++
	}
	s.metrics.ObserveReminders(sent)
	if sent > 0 {
		s.logger.Sugar().Infow("deadline reminders sent", "count", sent)
	}
	return sent, nil
}
