package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/admission-agent-api/internal/models"
	appErrors "github.com/noah-isme/admission-agent-api/pkg/errors"
	"github.com/noah-isme/admission-agent-api/pkg/export"
	"github.com/noah-isme/admission-agent-api/pkg/storage"
)

const (
	admitCardDownloadPath = "/api/v1/admit-cards/download"
	admitCardContentType  = "application/pdf"
)

type applicationFinder interface {
	FindByID(ctx context.Context, id string) (*models.Application, error)
}

type admitCardRenderer interface {
	RenderAdmitCard(card export.AdmitCard) ([]byte, error)
}

type expiringObjectStore interface {
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// AdmitCardFile is a resolved admit card download.
type AdmitCardFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// AdmitCardService renders admit cards for paid applications and serves
// them through signed download tokens.
type AdmitCardService struct {
	applications applicationFinder
	students     workflowStudentReader
	circulars    circularReader
	store        storage.ObjectStore
	signer       *storage.SignedURLSigner
	renderer     admitCardRenderer
	retention    time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

// NewAdmitCardService constructs an AdmitCardService.
func NewAdmitCardService(
	applications applicationFinder,
	students workflowStudentReader,
	circulars circularReader,
	store storage.ObjectStore,
	signer *storage.SignedURLSigner,
	renderer admitCardRenderer,
	retention time.Duration,
	logger *zap.Logger,
) *AdmitCardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if renderer == nil {
		renderer = export.NewPDFExporter()
	}
	return &AdmitCardService{
		applications: applications,
		students:     students,
		circulars:    circulars,
		store:        store,
		signer:       signer,
		renderer:     renderer,
		retention:    retention,
		logger:       logger,
		now:          time.Now,
	}
}

// Issue renders and stores the admit card of a finalized application and
// returns a signed download link.
func (s *AdmitCardService) Issue(ctx context.Context, applicationID string) (*models.AdmitCard, error) {
	app, err := s.loadApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if !app.Status.IsFinalized() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "admit cards are issued after the application fee is paid")
	}
	student, err := s.students.FindByID(ctx, app.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	circular, err := s.circulars.FindByID(ctx, app.UniversityID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load circular")
	}

	card := export.AdmitCard{
		ApplicationID:  app.ID,
		StudentName:    student.FullName,
		Email:          student.Email,
		SSCRoll:        trimmed(student.SSCRoll),
		HSCRoll:        trimmed(student.HSCRoll),
		UniversityName: circular.UniversityName(),
		TransactionID:  trimmed(app.TransactionID),
		IssuedAt:       s.now().UTC(),
	}
	if app.AppliedAt != nil {
		card.AppliedAt = *app.AppliedAt
	}
	if circular.Data != nil {
		card.ExamDate = trimmed(circular.Data.ExamDate)
		card.ExamTime = trimmed(circular.Data.ExamTime)
		card.ExamVenue = trimmed(circular.Data.ExamVenue)
	}
	body, err := s.renderer.RenderAdmitCard(card)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render admit card")
	}
	key := admitCardKey(app.ID)
	if err := s.store.Put(ctx, key, body, admitCardContentType); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store admit card")
	}
	s.logger.Sugar().Infow("admit card issued", "application_id", app.ID, "key", key)
	return s.sign(app.ID, key)
}

// Link returns a fresh download link for one of the signed-in student's
// applications, rendering the card again when the stored copy is gone.
func (s *AdmitCardService) Link(ctx context.Context, userID, applicationID string) (*models.AdmitCard, error) {
	student, err := loadProfile(ctx, s.students, userID)
	if err != nil {
		return nil, err
	}
	app, err := s.loadApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.StudentID != student.ID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
	}
	if !app.Status.IsFinalized() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "admit cards are issued after the application fee is paid")
	}
	key := admitCardKey(app.ID)
	if _, err := s.store.Get(ctx, key); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return s.Issue(ctx, app.ID)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read admit card")
	}
	return s.sign(app.ID, key)
}

// Download resolves a signed token to the stored PDF.
func (s *AdmitCardService) Download(ctx context.Context, token string) (*AdmitCardFile, error) {
	obj, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download token")
	}
	body, err := s.store.Get(ctx, obj.Key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "admit card not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read admit card")
	}
	return &AdmitCardFile{
		Filename:    fmt.Sprintf("admit-card-%s.pdf", obj.Subject),
		ContentType: admitCardContentType,
		Body:        body,
	}, nil
}

// Cleanup removes stored cards older than the retention period when the
// backend supports it.
func (s *AdmitCardService) Cleanup(ctx context.Context) error {
	store, ok := s.store.(expiringObjectStore)
	if !ok || s.retention <= 0 {
		return nil
	}
	deleted, err := store.CleanupOlderThan(s.retention)
	if err != nil {
		return err
	}
	if len(deleted) > 0 {
		s.logger.Sugar().Infow("admit cards cleaned up", "count", len(deleted))
	}
	return nil
}

func (s *AdmitCardService) sign(applicationID, key string) (*models.AdmitCard, error) {
	token, expiresAt, err := s.signer.Generate(applicationID, key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign admit card link")
	}
	return &models.AdmitCard{
		ApplicationID: applicationID,
		URL:           admitCardDownloadPath + "?token=" + url.QueryEscape(token),
		ExpiresAt:     expiresAt,
	}, nil
}

func (s *AdmitCardService) loadApplication(ctx context.Context, id string) (*models.Application, error) {
	app, err := s.applications.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	return app, nil
}

func admitCardKey(applicationID string) string {
	return path.Join("admit-cards", applicationID+".pdf")
}
