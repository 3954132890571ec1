package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/admission-agent-api/internal/models"
	appErrors "github.com/noah-isme/admission-agent-api/pkg/errors"
)

const (
	eligibilityCachePattern = "eligibility:*"
	maxMemoEntries          = 10000
)

type completedCircularLister interface {
	FindByID(ctx context.Context, id string) (*models.AdmissionCircular, error)
	ListCompleted(ctx context.Context) ([]models.AdmissionCircular, error)
}

// EligibilityQuery narrows the eligibility listing.
type EligibilityQuery struct {
	Filter models.EligibilityFilter
	Search string
}

// EligibilityService evaluates circulars against the signed-in student.
type EligibilityService struct {
	circulars completedCircularLister
	students  profileFinder
	cache     *CacheService
	ttl       time.Duration
	logger    *zap.Logger
	now       func() time.Time

	mu   sync.Mutex
	memo map[string]models.EligibilityResult
}

// NewEligibilityService constructs an EligibilityService.
func NewEligibilityService(circulars completedCircularLister, students profileFinder, cache *CacheService, ttl time.Duration, logger *zap.Logger) *EligibilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &EligibilityService{
		circulars: circulars,
		students:  students,
		cache:     cache,
		ttl:       ttl,
		logger:    logger,
		now:       time.Now,
		memo:      make(map[string]models.EligibilityResult),
	}
}

// Check evaluates a single circular.
func (s *EligibilityService) Check(ctx context.Context, userID, circularID string) (*models.CircularEligibility, error) {
	profile, err := loadProfile(ctx, s.students, userID)
	if err != nil {
		return nil, err
	}
	circular, err := s.circulars.FindByID(ctx, circularID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "circular not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load circular")
	}
	if circular.Data == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "circular has not been analyzed")
	}
	return &models.CircularEligibility{
		Circular:    *circular,
		Eligibility: s.evaluate(profile, *circular.Data),
		IsOpen:      IsOpen(circular.Data.ApplicationPeriod, s.now()),
	}, nil
}

// List evaluates every analyzed circular, applies the verdict filter and the
// case-insensitive name search, and orders by score descending.
func (s *EligibilityService) List(ctx context.Context, userID string, query EligibilityQuery) ([]models.CircularEligibility, error) {
	switch query.Filter {
	case "":
		query.Filter = models.EligibilityAll
	case models.EligibilityAll, models.EligibilityEligible, models.EligibilityNotEligible:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "filter must be all, eligible or not-eligible")
	}
	profile, err := loadProfile(ctx, s.students, userID)
	if err != nil {
		return nil, err
	}

	all, err := s.snapshot(ctx, profile)
	if err != nil {
		return nil, err
	}

	search := strings.ToLower(strings.TrimSpace(query.Search))
	now := s.now()
	out := make([]models.CircularEligibility, 0, len(all))
	for _, item := range all {
		item.IsOpen = item.Circular.Data != nil && IsOpen(item.Circular.Data.ApplicationPeriod, now)
		switch query.Filter {
		case models.EligibilityEligible:
			if !item.Eligibility.Eligible {
				continue
			}
		case models.EligibilityNotEligible:
			if item.Eligibility.Eligible {
				continue
			}
		}
		if search != "" && !strings.Contains(strings.ToLower(item.Circular.UniversityName()), search) {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *EligibilityService) snapshot(ctx context.Context, profile *models.StudentProfile) ([]models.CircularEligibility, error) {
	key := fmt.Sprintf("eligibility:%s:%s", profile.ID, profileFingerprint(profile))
	items, _, err := Remember(ctx, s.cache, key, s.ttl, func(ctx context.Context) ([]models.CircularEligibility, error) {
		return s.rank(ctx, profile)
	})
	return items, err
}

func (s *EligibilityService) rank(ctx context.Context, profile *models.StudentProfile) ([]models.CircularEligibility, error) {
	circulars, err := s.circulars.ListCompleted(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list circulars")
	}
	items := make([]models.CircularEligibility, 0, len(circulars))
	for _, circular := range circulars {
		if circular.Data == nil {
			continue
		}
		items = append(items, models.CircularEligibility{
			Circular:    circular,
			Eligibility: s.evaluate(profile, *circular.Data),
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Eligibility.Score > items[j].Eligibility.Score
	})

	return items, nil
}

// evaluate memoizes EvaluateEligibility by the fields it reads.
func (s *EligibilityService) evaluate(profile *models.StudentProfile, circular models.AdmissionCircularData) models.EligibilityResult {
	key := profileFingerprint(profile) + ":" + requirementFingerprint(circular)
	s.mu.Lock()
	if result, ok := s.memo[key]; ok {
		s.mu.Unlock()
		return result
	}
	s.mu.Unlock()

	result := EvaluateEligibility(profile, circular)

	s.mu.Lock()
	if len(s.memo) >= maxMemoEntries {
		s.memo = make(map[string]models.EligibilityResult)
	}
	s.memo[key] = result
	s.mu.Unlock()
	return result
}

func profileFingerprint(profile *models.StudentProfile) string {
	if profile == nil {
		return "none"
	}
	return fingerprint(struct {
		SSC, HSC, SSCYear, HSCYear *string
	}{profile.SSCGPA, profile.HSCGPA, profile.SSCYear, profile.HSCYear})
}

func requirementFingerprint(circular models.AdmissionCircularData) string {
	return fingerprint(struct {
		GPA   models.GpaRequirement
		Years models.YearRequirement
	}{circular.GeneralGpaRequirements, circular.YearRequirements})
}

func fingerprint(v interface{}) string {
	raw, _ := json.Marshal(v)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:12])
}
