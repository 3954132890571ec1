package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/admission-agent-api/internal/models"
	"github.com/noah-isme/admission-agent-api/internal/repository"
	appErrors "github.com/noah-isme/admission-agent-api/pkg/errors"
)

type applicationStore interface {
	FindByID(ctx context.Context, id string) (*models.Application, error)
	ListByStudentAndUniversity(ctx context.Context, studentID, universityID string) ([]models.Application, error)
	ListAllByStudent(ctx context.Context, studentID string) ([]models.Application, error)
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, int, error)
	Create(ctx context.Context, app *models.Application) error
	SetAutoApply(ctx context.Context, id string, enabled bool) error
	TransitionStatus(ctx context.Context, id string, from, to models.ApplicationStatus) error
}

type notificationWriter interface {
	Create(ctx context.Context, n *models.Notification) error
}

type workflowStarter interface {
	Start(ctx context.Context, userID string, req models.StartWorkflowRequest) (*models.WorkflowSnapshot, error)
}

// ApplicationService manages a student's university selections.
type ApplicationService struct {
	repo          applicationStore
	students      profileFinder
	circulars     circularReader
	notifications notificationWriter
	workflow      workflowStarter
	marksRequired int
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewApplicationService constructs an ApplicationService.
func NewApplicationService(
	repo applicationStore,
	students profileFinder,
	circulars circularReader,
	notifications notificationWriter,
	workflow workflowStarter,
	marksRequired int,
	validate *validator.Validate,
	logger *zap.Logger,
) *ApplicationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if marksRequired <= 0 {
		marksRequired = defaultMarksRequired
	}
	return &ApplicationService{
		repo:          repo,
		students:      students,
		circulars:     circulars,
		notifications: notifications,
		workflow:      workflow,
		marksRequired: marksRequired,
		validator:     validate,
		logger:        logger,
	}
}

// List returns every application of the signed-in student.
func (s *ApplicationService) List(ctx context.Context, userID string) ([]models.Application, error) {
	student, err := loadProfile(ctx, s.students, userID)
	if err != nil {
		return nil, err
	}
	apps, err := s.repo.ListAllByStudent(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	if apps == nil {
		apps = []models.Application{}
	}
	return apps, nil
}

// Search lists applications across students for administrators.
func (s *ApplicationService) Search(ctx context.Context, filter models.ApplicationFilter) (*models.Page[models.Application], error) {
	filter.Page, filter.PageSize = models.NormalizePage(filter.Page, filter.PageSize)
	apps, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	if apps == nil {
		apps = []models.Application{}
	}
	return &models.Page[models.Application]{Items: apps, Total: total, Page: filter.Page, PageSize: filter.PageSize}, nil
}

// Get returns one of the signed-in student's applications.
func (s *ApplicationService) Get(ctx context.Context, userID, id string) (*models.Application, error) {
	student, err := loadProfile(ctx, s.students, userID)
	if err != nil {
		return nil, err
	}
	return s.owned(ctx, student.ID, id)
}

// Create selects a university without starting the agent. Selecting the
// same university twice is a conflict.
func (s *ApplicationService) Create(ctx context.Context, userID string, req models.CreateApplicationRequest) (*models.Application, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid application payload")
	}
	student, err := loadProfile(ctx, s.students, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.circulars.FindByID(ctx, req.UniversityID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "university not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load university")
	}
	existing, err := s.repo.ListByStudentAndUniversity(ctx, student.ID, req.UniversityID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load applications")
	}
	if len(existing) > 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, "application already exists for this university")
	}

	app := &models.Application{
		StudentID:     student.ID,
		UniversityID:  req.UniversityID,
		Status:        models.ApplicationStatusPending,
		MarksRequired: s.marksRequired,
	}
	if err := s.repo.Create(ctx, app); err != nil {
		if errors.Is(err, repository.ErrApplicationExists) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "application already exists for this university")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create application")
	}
	return app, nil
}

// ToggleAutoApply flips the auto-apply flag.
func (s *ApplicationService) ToggleAutoApply(ctx context.Context, userID, id string) (*models.Application, error) {
	student, err := loadProfile(ctx, s.students, userID)
	if err != nil {
		return nil, err
	}
	app, err := s.owned(ctx, student.ID, id)
	if err != nil {
		return nil, err
	}
	enabled := !app.AutoApplyEnabled
	if err := s.repo.SetAutoApply(ctx, app.ID, enabled); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update auto apply")
	}
	app.AutoApplyEnabled = enabled
	return app, nil
}

// Submit hands a pending application to the agent workflow.
func (s *ApplicationService) Submit(ctx context.Context, userID, id string) (*models.WorkflowSnapshot, error) {
	student, err := loadProfile(ctx, s.students, userID)
	if err != nil {
		return nil, err
	}
	app, err := s.owned(ctx, student.ID, id)
	if err != nil {
		return nil, err
	}
	return s.workflow.Start(ctx, userID, models.StartWorkflowRequest{UniversityID: app.UniversityID, ApplicationID: app.ID})
}

// UpdateStatus advances a paid application one step along
// submitted, under_review, accepted and notifies the student.
func (s *ApplicationService) UpdateStatus(ctx context.Context, id string, req models.UpdateApplicationStatusRequest) (*models.Application, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status")
	}
	app, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	if app.Status == models.ApplicationStatusPending {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "pending applications are submitted by paying the fee")
	}
	next, ok := app.Status.Next()
	if !ok || next != req.Status {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("cannot move application from %s to %s", app.Status, req.Status))
	}
	if err := s.repo.TransitionStatus(ctx, app.ID, app.Status, next); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "application status changed concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update application status")
	}
	app.Status = next

	name := app.UniversityID
	if circular, err := s.circulars.FindByID(ctx, app.UniversityID); err == nil && circular.UniversityName() != "" {
		name = circular.UniversityName()
	}
	universityID := app.UniversityID
	actionURL := paymentActionURL
	notification := &models.Notification{
		StudentID:           app.StudentID,
		Type:                models.NotificationApplicationStatus,
		Title:               "Application Status Updated",
		Message:             fmt.Sprintf("Your application to %s is now %s.", name, statusLabel(next)),
		RelatedUniversityID: &universityID,
		ActionURL:           &actionURL,
	}
	if err := s.notifications.Create(ctx, notification); err != nil {
		s.logger.Warn("failed to record notification", zap.String("application_id", app.ID), zap.Error(err))
	}
	return app, nil
}

// Stats summarises the signed-in student's applications.
func (s *ApplicationService) Stats(ctx context.Context, userID string) (*models.ApplicationStats, error) {
	apps, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats := SummarizeApplications(apps)
	return &stats, nil
}

func (s *ApplicationService) owned(ctx context.Context, studentID, id string) (*models.Application, error) {
	app, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	if app.StudentID != studentID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
	}
	return app, nil
}

func statusLabel(status models.ApplicationStatus) string {
	switch status {
	case models.ApplicationStatusUnderReview:
		return "under review"
	default:
		return string(status)
	}
}
