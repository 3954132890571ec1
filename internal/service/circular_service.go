package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/admission-agent-api/internal/models"
	"github.com/noah-isme/admission-agent-api/pkg/circularparse"
	appErrors "github.com/noah-isme/admission-agent-api/pkg/errors"
)

type circularStore interface {
	FindByID(ctx context.Context, id string) (*models.AdmissionCircular, error)
	FindByLink(ctx context.Context, link string) (*models.AdmissionCircular, error)
	List(ctx context.Context, filter models.CircularFilter) ([]models.AdmissionCircular, int, error)
	Create(ctx context.Context, circular *models.AdmissionCircular) error
}

// CircularService exposes analyzed circulars as the university catalog.
type CircularService struct {
	repo   circularStore
	cache  *CacheService
	logger *zap.Logger
}

// NewCircularService constructs a CircularService.
func NewCircularService(repo circularStore, cache *CacheService, logger *zap.Logger) *CircularService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CircularService{repo: repo, cache: cache, logger: logger}
}

// List returns a page of circulars.
func (s *CircularService) List(ctx context.Context, filter models.CircularFilter) (*models.Page[models.AdmissionCircular], error) {
	filter.Page, filter.PageSize = models.NormalizePage(filter.Page, filter.PageSize)
	if filter.Status != "" {
		switch models.CircularStatus(filter.Status) {
		case models.CircularStatusPending, models.CircularStatusCompleted, models.CircularStatusFailed:
		default:
			return nil, appErrors.Clone(appErrors.ErrValidation, "status must be pending, completed or failed")
		}
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list circulars")
	}
	if items == nil {
		items = []models.AdmissionCircular{}
	}
	return &models.Page[models.AdmissionCircular]{Items: items, Total: total, Page: filter.Page, PageSize: filter.PageSize}, nil
}

// Get returns one circular.
func (s *CircularService) Get(ctx context.Context, id string) (*models.AdmissionCircular, error) {
	circular, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "circular not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load circular")
	}
	return circular, nil
}

// SeedCatalog loads circulars from a YAML or JSON catalog file. Entries whose
// circular link is already stored are skipped.
func (s *CircularService) SeedCatalog(ctx context.Context, path string) (int, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read catalog %s: %w", path, err)
	}
	entries, err := circularparse.ParseCatalog(body)
	if err != nil {
		return 0, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	created := 0
	for i := range entries {
		entry := entries[i]
		if strings.TrimSpace(entry.UniversityName) == "" {
			s.logger.Warn("catalog entry without university name skipped", zap.Int("index", i))
			continue
		}
		if entry.CircularLink != "" {
			if _, err := s.repo.FindByLink(ctx, entry.CircularLink); err == nil {
				continue
			} else if !errors.Is(err, sql.ErrNoRows) {
				return created, err
			}
		}
		circular := &models.AdmissionCircular{
			URL:    entry.CircularLink,
			Status: models.CircularStatusCompleted,
			Data:   &entry,
		}
		if err := s.repo.Create(ctx, circular); err != nil {
			return created, err
		}
		created++
	}
	if created > 0 {
		if err := s.cache.Invalidate(ctx, eligibilityCachePattern); err != nil {
			s.logger.Warn("eligibility cache not invalidated", zap.String("path", path), zap.Error(err))
		}
	}
	s.logger.Sugar().Infow("circular catalog seeded", "path", path, "created", created, "entries", len(entries))
	return created, nil
}
