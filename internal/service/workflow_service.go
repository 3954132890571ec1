package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/admission-agent-api/internal/models"
	"github.com/noah-isme/admission-agent-api/internal/repository"
	"github.com/noah-isme/admission-agent-api/pkg/config"
	appErrors "github.com/noah-isme/admission-agent-api/pkg/errors"
)

const (
	paymentNotificationTitle = "Payment Successful"
	paymentActionURL         = "/applications"
	defaultStageInterval     = 2500 * time.Millisecond
	defaultCompletionDelay   = 1500 * time.Millisecond
	defaultRunRetention      = 10 * time.Minute
	defaultMarksRequired     = 60
	defaultMarksObtained     = 70
)

// Timer is a pending scheduled callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs fn once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

type clockScheduler struct{}

func (clockScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

type workflowApplicationStore interface {
	FindByID(ctx context.Context, id string) (*models.Application, error)
	ListByStudentAndUniversity(ctx context.Context, studentID, universityID string) ([]models.Application, error)
	Create(ctx context.Context, app *models.Application) error
}

type workflowStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.StudentProfile, error)
	FindByUserID(ctx context.Context, userID string) (*models.StudentProfile, error)
}

type circularReader interface {
	FindByID(ctx context.Context, id string) (*models.AdmissionCircular, error)
}

type paymentLedger interface {
	ApplyPayment(ctx context.Context, params repository.PaymentParams) (*repository.PaymentResult, error)
}

type admitCardIssuer interface {
	Issue(ctx context.Context, applicationID string) (*models.AdmitCard, error)
}

// WorkflowEntry is the outcome of resolving which application a run targets.
type WorkflowEntry struct {
	Decision    models.WorkflowDecision
	Application *models.Application
}

type workflowRun struct {
	step sync.Mutex

	mu       sync.Mutex
	snapshot models.WorkflowSnapshot
	timers   []Timer
	cancel   context.CancelFunc
	ctx      context.Context

	studentID string
	circular  *models.AdmissionCircular
}

func (r *workflowRun) active() bool {
	return r.snapshot.Status == models.WorkflowRunning
}

func (r *workflowRun) view() *models.WorkflowSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot := r.snapshot
	snapshot.Stages = StageViews(snapshot.CurrentStage, snapshot.Complete)
	if snapshot.Application != nil {
		app := *snapshot.Application
		snapshot.Application = &app
	}
	return &snapshot
}

// WorkflowService drives the automated application agent.
type WorkflowService struct {
	applications workflowApplicationStore
	students     workflowStudentReader
	circulars    circularReader
	ledger       paymentLedger
	admitCards   admitCardIssuer
	metrics      *MetricsService
	scheduler    Scheduler
	reference    ReferenceGenerator
	cfg          config.WorkflowConfig
	validator    *validator.Validate
	logger       *zap.Logger
	now          func() time.Time

	startMu sync.Mutex
	mu      sync.Mutex
	runs    map[string]*workflowRun
}

// NewWorkflowService wires the agent with its collaborators. A nil scheduler
// uses wall-clock timers.
func NewWorkflowService(
	applications workflowApplicationStore,
	students workflowStudentReader,
	circulars circularReader,
	ledger paymentLedger,
	admitCards admitCardIssuer,
	metrics *MetricsService,
	scheduler Scheduler,
	cfg config.WorkflowConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *WorkflowService {
	if scheduler == nil {
		scheduler = clockScheduler{}
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.StageInterval <= 0 {
		cfg.StageInterval = defaultStageInterval
	}
	if cfg.CompletionDelay <= 0 {
		cfg.CompletionDelay = defaultCompletionDelay
	}
	if cfg.RunRetention <= 0 {
		cfg.RunRetention = defaultRunRetention
	}
	if cfg.MarksRequired <= 0 {
		cfg.MarksRequired = defaultMarksRequired
	}
	if cfg.DefaultMarksObtained <= 0 {
		cfg.DefaultMarksObtained = defaultMarksObtained
	}
	return &WorkflowService{
		applications: applications,
		students:     students,
		circulars:    circulars,
		ledger:       ledger,
		admitCards:   admitCards,
		metrics:      metrics,
		scheduler:    scheduler,
		reference:    NewTransactionReference,
		cfg:          cfg,
		validator:    validate,
		logger:       logger,
		now:          time.Now,
		runs:         make(map[string]*workflowRun),
	}
}

// StageViews annotates every stage relative to the pointer.
func StageViews(pointer int, complete bool) []models.WorkflowStageView {
	views := make([]models.WorkflowStageView, len(models.WorkflowStages))
	for i, stage := range models.WorkflowStages {
		state := models.StagePending
		switch {
		case i < pointer || (complete && i == pointer):
			state = models.StageCompleted
		case i == pointer:
			state = models.StageCurrent
		}
		views[i] = models.WorkflowStageView{WorkflowStage: stage, Index: i, State: state}
	}
	return views
}

// Resolve decides how a run for studentID at universityID must proceed. An
// explicit applicationID wins over lookup; when nothing exists a pending
// application is created.
func (s *WorkflowService) Resolve(ctx context.Context, studentID, universityID, applicationID string) (*WorkflowEntry, error) {
	var app *models.Application
	if applicationID != "" {
		found, err := s.applications.FindByID(ctx, applicationID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
		}
		if found.StudentID != studentID || found.UniversityID != universityID {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		app = found
	} else {
		existing, err := s.applications.ListByStudentAndUniversity(ctx, studentID, universityID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load applications")
		}
		if len(existing) > 0 {
			app = &existing[0]
		}
	}

	if app == nil {
		created, err := s.createApplication(ctx, studentID, universityID)
		if err == nil {
			return &WorkflowEntry{Decision: models.WorkflowCreate, Application: created}, nil
		}
		if !errors.Is(err, repository.ErrApplicationExists) {
			return nil, err
		}
		// Another request created it first.
		existing, err := s.applications.ListByStudentAndUniversity(ctx, studentID, universityID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load applications")
		}
		if len(existing) == 0 {
			return nil, appErrors.Clone(appErrors.ErrConflict, "application already exists for this university")
		}
		app = &existing[0]
	}

	switch {
	case app.Status.IsFinalized():
		return &WorkflowEntry{Decision: models.WorkflowAlreadyComplete, Application: app}, nil
	case app.HasPayment():
		return &WorkflowEntry{Decision: models.WorkflowCompleteWithoutSimulation, Application: app}, nil
	default:
		return &WorkflowEntry{Decision: models.WorkflowResume, Application: app}, nil
	}
}

func (s *WorkflowService) createApplication(ctx context.Context, studentID, universityID string) (*models.Application, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrProfileNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}
	obtained := s.cfg.DefaultMarksObtained
	if student.HSCMarks != nil && *student.HSCMarks > 0 {
		obtained = *student.HSCMarks
	}
	app := &models.Application{
		StudentID:        studentID,
		UniversityID:     universityID,
		Status:           models.ApplicationStatusPending,
		AutoApplyEnabled: true,
		MarksRequired:    s.cfg.MarksRequired,
		MarksObtained:    obtained,
	}
	if err := s.applications.Create(ctx, app); err != nil {
		if errors.Is(err, repository.ErrApplicationExists) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create application")
	}
	return app, nil
}

// Start resolves the target application for the signed-in student and, when
// payment is still outstanding, schedules the agent stages. Starting an
// application that already has an active run returns that run.
func (s *WorkflowService) Start(ctx context.Context, userID string, req models.StartWorkflowRequest) (*models.WorkflowSnapshot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid workflow request")
	}
	student, err := s.profile(ctx, userID)
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
	if circular.Data == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "circular has not been analyzed")
	}

	s.startMu.Lock()
	defer s.startMu.Unlock()

	entry, err := s.Resolve(ctx, student.ID, req.UniversityID, req.ApplicationID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if existing, ok := s.runs[entry.Application.ID]; ok {
		existing.mu.Lock()
		running := existing.active()
		existing.mu.Unlock()
		if running {
			s.mu.Unlock()
			return existing.view(), nil
		}
	}
	s.mu.Unlock()

	started := s.now().UTC()
	run := &workflowRun{
		studentID: student.ID,
		circular:  circular,
		snapshot: models.WorkflowSnapshot{
			RunID:         uuid.NewString(),
			ApplicationID: entry.Application.ID,
			UniversityID:  req.UniversityID,
			Decision:      entry.Decision,
			Application:   entry.Application,
			TransactionID: entry.Application.TransactionID,
			StartedAt:     &started,
		},
	}

	if !entry.Decision.Simulates() {
		run.snapshot.Status = models.WorkflowComplete
		run.snapshot.Complete = true
		run.snapshot.CurrentStage = len(models.WorkflowStages) - 1
		run.snapshot.CompletedAt = &started
		s.register(run)
		s.retire(run)
		return run.view(), nil
	}

	run.snapshot.Status = models.WorkflowRunning
	run.ctx, run.cancel = context.WithCancel(context.Background())
	s.register(run)
	s.metrics.RunStarted()

	run.mu.Lock()
	for i := range models.WorkflowStages {
		index := i
		delay := time.Duration(index+1) * s.cfg.StageInterval
		run.timers = append(run.timers, s.scheduler.AfterFunc(delay, func() { s.advance(run, index) }))
	}
	completion := time.Duration(len(models.WorkflowStages))*s.cfg.StageInterval + s.cfg.CompletionDelay
	run.timers = append(run.timers, s.scheduler.AfterFunc(completion, func() { s.complete(run) }))
	run.mu.Unlock()

	s.logger.Sugar().Infow("workflow started",
		"run_id", run.snapshot.RunID,
		"application_id", entry.Application.ID,
		"decision", entry.Decision,
	)
	return run.view(), nil
}

func (s *WorkflowService) register(run *workflowRun) {
	s.mu.Lock()
	s.runs[run.snapshot.ApplicationID] = run
	s.mu.Unlock()
}

// retire drops a finished run from memory once RunRetention has passed.
// Status answers from the application row afterwards.
func (s *WorkflowService) retire(run *workflowRun) {
	s.scheduler.AfterFunc(s.cfg.RunRetention, func() {
		s.mu.Lock()
		if current, ok := s.runs[run.snapshot.ApplicationID]; ok && current == run {
			delete(s.runs, run.snapshot.ApplicationID)
		}
		s.mu.Unlock()
	})
}

func (s *WorkflowService) advance(run *workflowRun, index int) {
	run.step.Lock()
	defer run.step.Unlock()

	run.mu.Lock()
	if !run.active() {
		run.mu.Unlock()
		return
	}
	if index > run.snapshot.CurrentStage {
		run.snapshot.CurrentStage = index
	}
	stage := models.WorkflowStages[index].ID
	applicationID := run.snapshot.ApplicationID
	ctx := run.ctx
	run.mu.Unlock()

	s.metrics.ObserveStage(stage)

	switch stage {
	case models.StagePayment:
		if err := s.pay(ctx, run); err != nil {
			s.fail(run, err)
		}
	case models.StageDownload:
		if s.admitCards == nil {
			return
		}
		card, err := s.admitCards.Issue(ctx, applicationID)
		if err != nil {
			s.fail(run, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "admit card issue failed"))
			return
		}
		run.mu.Lock()
		url := card.URL
		run.snapshot.AdmitCardURL = &url
		run.mu.Unlock()
	}
}

func (s *WorkflowService) pay(ctx context.Context, run *workflowRun) error {
	run.mu.Lock()
	applicationID := run.snapshot.ApplicationID
	universityID := run.snapshot.UniversityID
	run.mu.Unlock()

	name := run.circular.UniversityName()
	var fee int64
	if run.circular.Data != nil {
		fee = run.circular.Data.ApplicationFee()
	}
	now := s.now()
	actionURL := paymentActionURL

	result, err := s.ledger.ApplyPayment(ctx, repository.PaymentParams{
		ApplicationID: applicationID,
		StudentID:     run.studentID,
		Fee:           fee,
		Reference:     s.reference(now),
		NextReference: func() string { return s.reference(now) },
		Description:   "Application fee - " + name,
		Notification: models.Notification{
			Type:                models.NotificationPayment,
			Title:               paymentNotificationTitle,
			Message:             fmt.Sprintf("Application fee paid for %s. Transaction completed successfully.", name),
			RelatedUniversityID: &universityID,
			ActionURL:           &actionURL,
		},
		Now: now,
	})
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyPaid) {
			return appErrors.Wrap(err, appErrors.ErrAlreadyPaid.Code, appErrors.ErrAlreadyPaid.Status, appErrors.ErrAlreadyPaid.Message)
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "payment failed")
	}
	s.metrics.ObserveWalletTransaction(models.TransactionDeduction)
	reference := result.Transaction.TransactionID

	run.mu.Lock()
	app := result.Application
	run.snapshot.Application = &app
	run.snapshot.TransactionID = &reference
	run.mu.Unlock()

	s.logger.Sugar().Infow("application fee paid",
		"application_id", applicationID,
		"fee", fee,
		"balance_after", result.BalanceAfter,
		"transaction_id", reference,
	)
	return nil
}

func (s *WorkflowService) fail(run *workflowRun, cause error) {
	run.mu.Lock()
	if !run.active() {
		run.mu.Unlock()
		return
	}
	message := appErrors.FromError(cause).Message
	run.snapshot.Status = models.WorkflowFailed
	run.snapshot.Error = &message
	s.stop(run)
	run.mu.Unlock()

	s.metrics.RunFinished()
	s.retire(run)
	s.logger.Warn("workflow failed", zap.String("application_id", run.snapshot.ApplicationID), zap.Error(cause))
}

func (s *WorkflowService) complete(run *workflowRun) {
	run.step.Lock()
	defer run.step.Unlock()

	run.mu.Lock()
	if !run.active() {
		run.mu.Unlock()
		return
	}
	completed := s.now().UTC()
	run.snapshot.Status = models.WorkflowComplete
	run.snapshot.Complete = true
	run.snapshot.CompletedAt = &completed
	run.snapshot.CurrentStage = len(models.WorkflowStages) - 1
	run.cancel()
	run.mu.Unlock()

	s.metrics.RunFinished()
	s.retire(run)
	s.logger.Sugar().Infow("workflow complete", "application_id", run.snapshot.ApplicationID)
}

// stop cancels every pending timer. Callers hold run.mu.
func (s *WorkflowService) stop(run *workflowRun) {
	for _, timer := range run.timers {
		timer.Stop()
	}
	if run.cancel != nil {
		run.cancel()
	}
}

// Status reports the run for an application owned by the signed-in student.
func (s *WorkflowService) Status(ctx context.Context, userID, applicationID string) (*models.WorkflowSnapshot, error) {
	student, err := s.profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if run := s.lookup(student.ID, applicationID); run != nil {
		return run.view(), nil
	}

	app, err := s.applications.FindByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	if app.StudentID != student.ID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
	}
	decision := models.WorkflowAlreadyComplete
	switch {
	case app.Status.IsFinalized():
	case app.HasPayment():
		decision = models.WorkflowCompleteWithoutSimulation
	default:
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no workflow run for application")
	}
	last := len(models.WorkflowStages) - 1
	return &models.WorkflowSnapshot{
		ApplicationID: app.ID,
		UniversityID:  app.UniversityID,
		Decision:      decision,
		Status:        models.WorkflowComplete,
		CurrentStage:  last,
		Complete:      true,
		Stages:        StageViews(last, true),
		Application:   app,
		TransactionID: app.TransactionID,
	}, nil
}

// Cancel stops a running workflow. No stage fires after Cancel returns.
func (s *WorkflowService) Cancel(ctx context.Context, userID, applicationID string) (*models.WorkflowSnapshot, error) {
	student, err := s.profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	run := s.lookup(student.ID, applicationID)
	if run == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no workflow run for application")
	}
	s.cancelRun(run)
	return run.view(), nil
}

func (s *WorkflowService) cancelRun(run *workflowRun) {
	run.mu.Lock()
	if !run.active() {
		run.mu.Unlock()
		return
	}
	run.snapshot.Status = models.WorkflowCancelled
	s.stop(run)
	run.mu.Unlock()
	s.metrics.RunFinished()
	s.retire(run)
}

// Shutdown cancels every running workflow.
func (s *WorkflowService) Shutdown() {
	s.mu.Lock()
	runs := make([]*workflowRun, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	s.mu.Unlock()
	for _, run := range runs {
		s.cancelRun(run)
	}
}

func (s *WorkflowService) lookup(studentID, applicationID string) *workflowRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[applicationID]
	if !ok || run.studentID != studentID {
		return nil
	}
	return run
}

func (s *WorkflowService) profile(ctx context.Context, userID string) (*models.StudentProfile, error) {
	return loadProfile(ctx, s.students, userID)
}
