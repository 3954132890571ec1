package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/admission-agent-api/internal/models"
	"github.com/noah-isme/admission-agent-api/pkg/circularparse"
	appErrors "github.com/noah-isme/admission-agent-api/pkg/errors"
	"github.com/noah-isme/admission-agent-api/pkg/fetch"
	"github.com/noah-isme/admission-agent-api/pkg/jobs"
)

// AnalyzeJobType tags circular ingestion jobs on the queue.
const AnalyzeJobType = "analyze_circulars"

type analysisJobStore interface {
	CreateWithResults(ctx context.Context, job *models.AnalysisJob) ([]models.AdmissionCircular, error)
	FindByID(ctx context.Context, id string) (*models.AnalysisJob, error)
	UpdateStatus(ctx context.Context, id string, status models.AnalysisStatus, completedAt *time.Time) error
}

type analysisResultStore interface {
	FindByID(ctx context.Context, id string) (*models.AdmissionCircular, error)
	List(ctx context.Context, filter models.CircularFilter) ([]models.AdmissionCircular, int, error)
	ListByJob(ctx context.Context, jobID string) ([]models.AdmissionCircular, error)
	SaveResult(ctx context.Context, id string, status models.CircularStatus, data *models.AdmissionCircularData, errMsg *string) error
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type documentFetcher interface {
	Get(ctx context.Context, url string) (*fetch.Document, error)
}

type studentDirectory interface {
	ListIDs(ctx context.Context) ([]string, error)
}

// PollPolicy controls WaitForJob. The interval grows by Multiplier after
// every poll up to MaxInterval.
type PollPolicy struct {
	Interval    time.Duration
	MaxInterval time.Duration
	Multiplier  float64
}

func (p PollPolicy) normalized() PollPolicy {
	if p.Interval <= 0 {
		p.Interval = 500 * time.Millisecond
	}
	if p.MaxInterval < p.Interval {
		p.MaxInterval = 5 * time.Second
		if p.MaxInterval < p.Interval {
			p.MaxInterval = p.Interval
		}
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1.5
	}
	return p
}

// AnalyzerService accepts circular URLs for ingestion and reports progress.
type AnalyzerService struct {
	jobs      analysisJobStore
	results   analysisResultStore
	queue     jobDispatcher
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAnalyzerService constructs an AnalyzerService.
func NewAnalyzerService(jobStore analysisJobStore, results analysisResultStore, queue jobDispatcher, validate *validator.Validate, logger *zap.Logger) *AnalyzerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyzerService{jobs: jobStore, results: results, queue: queue, validator: validate, logger: logger}
}

// CreateJob stores a pending job with one pending result per URL and
// enqueues it for the analyze workers.
func (s *AnalyzerService) CreateJob(ctx context.Context, actorID string, req models.AnalyzeRequest) (*models.AnalysisJobStatus, error) {
	urls := make([]string, 0, len(req.URLs))
	seen := make(map[string]struct{}, len(req.URLs))
	for _, raw := range req.URLs {
		url := strings.TrimSpace(raw)
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}
		urls = append(urls, url)
	}
	req.URLs = urls
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid analyze payload")
	}

	job := &models.AnalysisJob{Status: models.AnalysisStatusPending, URLs: urls, CreatedBy: actorID}
	results, err := s.jobs.CreateWithResults(ctx, job)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create analyze job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: AnalyzeJobType}); err != nil {
		now := time.Now().UTC()
		if updateErr := s.jobs.UpdateStatus(ctx, job.ID, models.AnalysisStatusFailed, &now); updateErr != nil {
			s.logger.Warn("analyze job status update failed", zap.String("job_id", job.ID), zap.Error(updateErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue analyze job")
	}
	s.logger.Sugar().Infow("analyze job queued", "job_id", job.ID, "urls", len(urls))
	return &models.AnalysisJobStatus{AnalysisJob: *job, Results: []models.AdmissionCircular{}, Errors: []models.AdmissionCircular{}, Pending: results}, nil
}

// GetJob returns the job with its results split by outcome.
func (s *AnalyzerService) GetJob(ctx context.Context, id string) (*models.AnalysisJobStatus, error) {
	job, err := s.jobs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "analyze job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load analyze job")
	}
	rows, err := s.results.ListByJob(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load analyze results")
	}
	status := &models.AnalysisJobStatus{AnalysisJob: *job, Results: []models.AdmissionCircular{}, Errors: []models.AdmissionCircular{}, Pending: []models.AdmissionCircular{}}
	for _, row := range rows {
		switch row.Status {
		case models.CircularStatusCompleted:
			status.Results = append(status.Results, row)
		case models.CircularStatusFailed:
			status.Errors = append(status.Errors, row)
		default:
			status.Pending = append(status.Pending, row)
		}
	}
	return status, nil
}

// WaitForJob polls until the job reaches a terminal state or ctx ends. On
// cancellation the last observed status is returned together with ctx.Err().
func (s *AnalyzerService) WaitForJob(ctx context.Context, id string, policy PollPolicy) (*models.AnalysisJobStatus, error) {
	policy = policy.normalized()
	interval := policy.Interval
	for {
		status, err := s.GetJob(ctx, id)
		if err != nil {
			return nil, err
		}
		if status.Status.Terminal() {
			return status, nil
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return status, ctx.Err()
		case <-timer.C:
		}
		interval = time.Duration(float64(interval) * policy.Multiplier)
		if interval > policy.MaxInterval {
			interval = policy.MaxInterval
		}
	}
}

// ListResults pages over analyzed circular rows.
func (s *AnalyzerService) ListResults(ctx context.Context, filter models.CircularFilter) (*models.Page[models.AdmissionCircular], error) {
	filter.Page, filter.PageSize = models.NormalizePage(filter.Page, filter.PageSize)
	switch models.CircularStatus(filter.Status) {
	case "", models.CircularStatusPending, models.CircularStatusCompleted, models.CircularStatusFailed:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be pending, completed or failed")
	}
	items, total, err := s.results.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list analyze results")
	}
	if items == nil {
		items = []models.AdmissionCircular{}
	}
	return &models.Page[models.AdmissionCircular]{Items: items, Total: total, Page: filter.Page, PageSize: filter.PageSize}, nil
}

// GetResult returns one analyzed circular row.
func (s *AnalyzerService) GetResult(ctx context.Context, id string) (*models.AdmissionCircular, error) {
	row, err := s.results.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "analyze result not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load analyze result")
	}
	return row, nil
}

// AnalyzeWorker bridges queue jobs to document fetching and parsing.
type AnalyzeWorker struct {
	jobs          analysisJobStore
	results       analysisResultStore
	fetcher       documentFetcher
	students      studentDirectory
	notifications notificationWriter
	cache         *CacheService
	metrics       *MetricsService
	logger        *zap.Logger
	now           func() time.Time
}

// NewAnalyzeWorker constructs a worker.
func NewAnalyzeWorker(
	jobStore analysisJobStore,
	results analysisResultStore,
	fetcher documentFetcher,
	students studentDirectory,
	notifications notificationWriter,
	cache *CacheService,
	metrics *MetricsService,
	logger *zap.Logger,
) *AnalyzeWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyzeWorker{
		jobs:          jobStore,
		results:       results,
		fetcher:       fetcher,
		students:      students,
		notifications: notifications,
		cache:         cache,
		metrics:       metrics,
		logger:        logger,
		now:           time.Now,
	}
}

// Handle processes one analyze job. Per-URL failures are recorded on the
// result rows; only bookkeeping failures are returned for a queue retry.
func (w *AnalyzeWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.jobs.FindByID(ctx, job.ID)
	if err != nil {
		return err
	}
	if record.Status.Terminal() {
		return nil
	}
	if err := w.jobs.UpdateStatus(ctx, record.ID, models.AnalysisStatusProcessing, nil); err != nil {
		return err
	}
	rows, err := w.results.ListByJob(ctx, record.ID)
	if err != nil {
		return err
	}

	succeeded, failed := 0, 0
	var analyzed []models.AdmissionCircular
	for _, row := range rows {
		switch row.Status {
		case models.CircularStatusCompleted:
			succeeded++
			continue
		case models.CircularStatusFailed:
			failed++
			continue
		}
		data, analyzeErr := w.analyze(ctx, row.URL)
		if analyzeErr != nil {
			msg := analyzeErr.Error()
			if err := w.results.SaveResult(ctx, row.ID, models.CircularStatusFailed, nil, &msg); err != nil {
				return err
			}
			failed++
			w.metrics.ObserveCircular(models.CircularStatusFailed)
			w.logger.Warn("circular analysis failed", zap.String("job_id", record.ID), zap.String("url", row.URL), zap.Error(analyzeErr))
			continue
		}
		if err := w.results.SaveResult(ctx, row.ID, models.CircularStatusCompleted, data, nil); err != nil {
			return err
		}
		succeeded++
		w.metrics.ObserveCircular(models.CircularStatusCompleted)
		row.Data = data
		row.Status = models.CircularStatusCompleted
		analyzed = append(analyzed, row)
	}

	final := models.AnalysisStatusFailed
	if succeeded > 0 {
		final = models.AnalysisStatusCompleted
	}
	completedAt := w.now().UTC()
	if err := w.jobs.UpdateStatus(ctx, record.ID, final, &completedAt); err != nil {
		return err
	}

	if len(analyzed) > 0 {
		if err := w.cache.Invalidate(ctx, eligibilityCachePattern); err != nil {
			w.logger.Warn("eligibility cache not invalidated", zap.String("job_id", record.ID), zap.Error(err))
		}
		w.announce(ctx, analyzed)
	}
	w.logger.Sugar().Infow("analyze job finished", "job_id", record.ID, "status", final, "succeeded", succeeded, "failed", failed)
	return nil
}

// DeadLetter closes a job whose handler kept failing so pollers see a
// terminal status.
func (w *AnalyzeWorker) DeadLetter(ctx context.Context, job jobs.Job, cause error) {
	completedAt := w.now().UTC()
	if err := w.jobs.UpdateStatus(ctx, job.ID, models.AnalysisStatusFailed, &completedAt); err != nil {
		w.logger.Error("failed to close dead analyze job", zap.String("job_id", job.ID), zap.Error(err))
		return
	}
	w.logger.Warn("analyze job abandoned", zap.String("job_id", job.ID), zap.Int("attempts", job.Attempt), zap.Error(cause))
}

func (w *AnalyzeWorker) analyze(ctx context.Context, url string) (*models.AdmissionCircularData, error) {
	doc, err := w.fetcher.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	data, err := circularparse.Parse(doc.ContentType, doc.URL, doc.Body)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return data, nil
}

// announce tells every student about newly analyzed circulars.
func (w *AnalyzeWorker) announce(ctx context.Context, circulars []models.AdmissionCircular) {
	if w.students == nil || w.notifications == nil {
		return
	}
	studentIDs, err := w.students.ListIDs(ctx)
	if err != nil {
		w.logger.Warn("failed to list students for circular announcement", zap.Error(err))
		return
	}
	for _, circular := range circulars {
		universityID := circular.ID
		for _, studentID := range studentIDs {
			notification := &models.Notification{
				StudentID:           studentID,
				Type:                models.NotificationCircularScrape,
				Title:               "New Admission Circular",
				Message:             fmt.Sprintf("%s has published a new admission circular.", circular.UniversityName()),
				RelatedUniversityID: &universityID,
			}
			if err := w.notifications.Create(ctx, notification); err != nil {
				w.logger.Warn("failed to record notification", zap.String("student_id", studentID), zap.Error(err))
			}
		}
	}
}
