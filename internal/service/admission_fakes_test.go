package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/admission-agent-api/internal/models"
	"github.com/noah-isme/admission-agent-api/internal/repository"
)

// admissionStore is an in-memory stand-in for the student, application,
// circular, ledger and notification tables.
type admissionStore struct {
	mu            sync.Mutex
	students      map[string]*models.StudentProfile
	applications  map[string]*models.Application
	circulars     map[string]*models.AdmissionCircular
	transactions  []models.Transaction
	notifications []models.Notification
	paymentErr    error
	seq           int
}

func newAdmissionStore() *admissionStore {
	return &admissionStore{
		students:     make(map[string]*models.StudentProfile),
		applications: make(map[string]*models.Application),
		circulars:    make(map[string]*models.AdmissionCircular),
	}
}

func (s *admissionStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *admissionStore) addStudent(id, userID string, balance int64) *models.StudentProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	student := &models.StudentProfile{ID: id, UserID: userID, FullName: "Student " + id, CurrentBalance: balance, Status: models.StudentStatusActive}
	s.students[id] = student
	return student
}

func (s *admissionStore) addCircular(id, name, fee string) *models.AdmissionCircular {
	s.mu.Lock()
	defer s.mu.Unlock()
	circular := &models.AdmissionCircular{
		ID:     id,
		URL:    "https://example.edu/" + id,
		Status: models.CircularStatusCompleted,
		Data:   &models.AdmissionCircularData{UniversityName: name, ApplicationFeeText: &fee},
	}
	s.circulars[id] = circular
	return circular
}

func (s *admissionStore) addApplication(app models.Application) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := app
	s.applications[app.ID] = &copied
}

func (s *admissionStore) balance(studentID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.students[studentID].CurrentBalance
}

func (s *admissionStore) application(id string) models.Application {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.applications[id]
}

// students

func (s *admissionStore) FindByUserID(ctx context.Context, userID string) (*models.StudentProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, student := range s.students {
		if student.UserID == userID {
			copied := *student
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

type studentTable struct{ *admissionStore }

func (t studentTable) FindByID(ctx context.Context, id string) (*models.StudentProfile, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	student, ok := t.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *student
	return &copied, nil
}

func (t studentTable) FindByUserID(ctx context.Context, userID string) (*models.StudentProfile, error) {
	return t.admissionStore.FindByUserID(ctx, userID)
}

// circulars

type circularTable struct{ *admissionStore }

func (t circularTable) FindByID(ctx context.Context, id string) (*models.AdmissionCircular, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	circular, ok := t.circulars[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *circular
	return &copied, nil
}

func (t circularTable) ListCompleted(ctx context.Context) ([]models.AdmissionCircular, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []models.AdmissionCircular
	for _, circular := range t.circulars {
		if circular.Status == models.CircularStatusCompleted {
			out = append(out, *circular)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// applications

type applicationTable struct{ *admissionStore }

func (t applicationTable) FindByID(ctx context.Context, id string) (*models.Application, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	app, ok := t.applications[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *app
	return &copied, nil
}

func (t applicationTable) ListByStudentAndUniversity(ctx context.Context, studentID, universityID string) ([]models.Application, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []models.Application
	for _, app := range t.applications {
		if app.StudentID == studentID && app.UniversityID == universityID {
			out = append(out, *app)
		}
	}
	return out, nil
}

// racingApplications hides existing rows from the first lookup and inserts a
// competing application, as a concurrent request would.
type racingApplications struct {
	applicationTable
	raced bool
}

func (t *racingApplications) ListByStudentAndUniversity(ctx context.Context, studentID, universityID string) ([]models.Application, error) {
	if !t.raced {
		t.raced = true
		t.addApplication(models.Application{ID: "app-rival", StudentID: studentID, UniversityID: universityID, Status: models.ApplicationStatusPending})
		return nil, nil
	}
	return t.applicationTable.ListByStudentAndUniversity(ctx, studentID, universityID)
}

func (t applicationTable) ListAllByStudent(ctx context.Context, studentID string) ([]models.Application, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []models.Application
	for _, app := range t.applications {
		if app.StudentID == studentID {
			out = append(out, *app)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t applicationTable) List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, int, error) {
	all, _ := t.ListAllByStudent(ctx, filter.StudentID)
	if filter.StudentID == "" {
		t.mu.Lock()
		all = all[:0]
		for _, app := range t.applications {
			all = append(all, *app)
		}
		t.mu.Unlock()
	}
	return all, len(all), nil
}

func (t applicationTable) ListPending(ctx context.Context) ([]models.Application, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []models.Application
	for _, app := range t.applications {
		if app.Status == models.ApplicationStatusPending {
			out = append(out, *app)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t applicationTable) Create(ctx context.Context, app *models.Application) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, existing := range t.applications {
		if existing.StudentID == app.StudentID && existing.UniversityID == app.UniversityID {
			return repository.ErrApplicationExists
		}
	}
	app.ID = t.nextID("app")
	app.CreatedAt = time.Now().UTC()
	app.UpdatedAt = app.CreatedAt
	copied := *app
	t.applications[app.ID] = &copied
	return nil
}

func (t applicationTable) SetAutoApply(ctx context.Context, id string, enabled bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	app, ok := t.applications[id]
	if !ok {
		return sql.ErrNoRows
	}
	app.AutoApplyEnabled = enabled
	return nil
}

func (t applicationTable) TransitionStatus(ctx context.Context, id string, from, to models.ApplicationStatus) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	app, ok := t.applications[id]
	if !ok || app.Status != from {
		return sql.ErrNoRows
	}
	app.Status = to
	return nil
}

// ledger

func (s *admissionStore) ApplyPayment(ctx context.Context, params repository.PaymentParams) (*repository.PaymentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paymentErr != nil {
		return nil, s.paymentErr
	}
	app, ok := s.applications[params.ApplicationID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if app.HasPayment() || app.Status != models.ApplicationStatusPending {
		return nil, repository.ErrAlreadyPaid
	}
	student := s.students[params.StudentID]
	now := params.Now.UTC()
	student.CurrentBalance -= params.Fee
	txn := models.Transaction{
		ID:            s.nextID("txn"),
		StudentID:     params.StudentID,
		Amount:        params.Fee,
		Type:          models.TransactionDeduction,
		Description:   params.Description,
		BalanceAfter:  student.CurrentBalance,
		TransactionID: params.Reference,
		CreatedAt:     now,
	}
	s.transactions = append(s.transactions, txn)
	result := &repository.PaymentResult{BalanceAfter: student.CurrentBalance, Transaction: &txn}
	reference := params.Reference
	app.Status = models.ApplicationStatusSubmitted
	app.AppliedAt = &now
	app.TransactionID = &reference
	result.Application = *app

	notification := params.Notification
	notification.ID = s.nextID("ntf")
	notification.StudentID = params.StudentID
	notification.TransactionID = &reference
	notification.CreatedAt = now
	s.notifications = append(s.notifications, notification)
	result.Notification = notification
	return result, nil
}

func (s *admissionStore) ApplyRecharge(ctx context.Context, params repository.RechargeParams) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	student, ok := s.students[params.StudentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	student.CurrentBalance += params.Amount
	txn := models.Transaction{
		ID:            s.nextID("txn"),
		StudentID:     params.StudentID,
		Amount:        params.Amount,
		Type:          models.TransactionRecharge,
		Description:   params.Description,
		BalanceAfter:  student.CurrentBalance,
		TransactionID: params.Reference,
		CreatedAt:     params.Now.UTC(),
	}
	s.transactions = append(s.transactions, txn)
	return &txn, nil
}

func (s *admissionStore) ListTransactions(ctx context.Context, studentID string) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Transaction
	for i := len(s.transactions) - 1; i >= 0; i-- {
		if s.transactions[i].StudentID == studentID {
			out = append(out, s.transactions[i])
		}
	}
	return out, nil
}

// notifications

func (s *admissionStore) Create(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ID = s.nextID("ntf")
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	s.notifications = append(s.notifications, *n)
	return nil
}

func (s *admissionStore) ExistsSince(ctx context.Context, studentID string, notificationType models.NotificationType, universityID string, since time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notifications {
		if n.StudentID == studentID && n.Type == notificationType && n.RelatedUniversityID != nil &&
			*n.RelatedUniversityID == universityID && !n.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (s *admissionStore) notificationsOf(notificationType models.NotificationType) []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, n := range s.notifications {
		if n.Type == notificationType {
			out = append(out, n)
		}
	}
	return out
}

func (s *admissionStore) deductions() []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Transaction
	for _, txn := range s.transactions {
		if txn.Type == models.TransactionDeduction {
			out = append(out, txn)
		}
	}
	return out
}

// manualScheduler fires callbacks only when the test advances its clock.
type manualScheduler struct {
	mu      sync.Mutex
	elapsed time.Duration
	timers  []*manualTimer
}

type manualTimer struct {
	at      time.Duration
	fn      func()
	fired   bool
	stopped bool
}

func (t *manualTimer) Stop() bool {
	pending := !t.fired && !t.stopped
	t.stopped = true
	return pending
}

func (m *manualScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	timer := &manualTimer{at: m.elapsed + d, fn: fn}
	m.timers = append(m.timers, timer)
	return timer
}

// Advance moves the clock to d and fires due timers in order.
func (m *manualScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	m.elapsed = d
	due := make([]*manualTimer, 0, len(m.timers))
	for _, timer := range m.timers {
		if timer.at <= d {
			due = append(due, timer)
		}
	}
	m.mu.Unlock()
	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, timer := range due {
		if timer.fired || timer.stopped {
			continue
		}
		timer.fired = true
		timer.fn()
	}
}

func (m *manualScheduler) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

func paymentParams(applicationID, studentID string, fee int64) repository.PaymentParams {
	return repository.PaymentParams{
		ApplicationID: applicationID,
		StudentID:     studentID,
		Fee:           fee,
		Reference:     "TXN-20240301-000001",
		Description:   "Application fee",
		Notification:  models.Notification{Type: models.NotificationPayment, Title: "Payment Successful"},
		Now:           time.Now(),
	}
}
