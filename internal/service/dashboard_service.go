package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/admission-agent-api/internal/dto"
	"github.com/noah-isme/admission-agent-api/internal/models"
	appErrors "github.com/noah-isme/admission-agent-api/pkg/errors"
)

const adminDashboardCacheKey = "dash:admin"

type adminAggregates interface {
	StudentCount(ctx context.Context) (int, error)
	ApplicationStatusCounts(ctx context.Context) ([]models.StatusCount, error)
	CircularStatusCounts(ctx context.Context) ([]models.StatusCount, error)
	LedgerTotals(ctx context.Context) (*models.LedgerTotals, error)
	TopUniversities(ctx context.Context, limit int) ([]models.UniversityDemand, error)
}

type eligibilityLister interface {
	List(ctx context.Context, userID string, query EligibilityQuery) ([]models.CircularEligibility, error)
}

type studentApplicationLister interface {
	List(ctx context.Context, userID string) ([]models.Application, error)
}

type walletSummarizer interface {
	Summary(ctx context.Context, userID string) (*models.WalletSummary, error)
}

type notificationCounter interface {
	List(ctx context.Context, userID string, notificationType models.NotificationType, unreadOnly bool) (*models.NotificationList, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL         time.Duration
	RecommendedLimit int
	DeadlineHorizon  time.Duration
	TopUniversities  int
}

// DashboardService composes the student and admin overviews.
type DashboardService struct {
	aggregates    adminAggregates
	students      profileFinder
	eligibility   eligibilityLister
	applications  studentApplicationLister
	wallet        walletSummarizer
	notifications notificationCounter
	cache         *CacheService
	logger        *zap.Logger
	now           func() time.Time
	cfg           DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Aggregates    adminAggregates
	Students      profileFinder
	Eligibility   eligibilityLister
	Applications  studentApplicationLister
	Wallet        walletSummarizer
	Notifications notificationCounter
	Cache         *CacheService
	Logger        *zap.Logger
	Config        DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.RecommendedLimit <= 0 {
		cfg.RecommendedLimit = 3
	}
	if cfg.DeadlineHorizon <= 0 {
		cfg.DeadlineHorizon = 14 * 24 * time.Hour
	}
	if cfg.TopUniversities <= 0 {
		cfg.TopUniversities = 5
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		aggregates:    params.Aggregates,
		students:      params.Students,
		eligibility:   params.Eligibility,
		applications:  params.Applications,
		wallet:        params.Wallet,
		notifications: params.Notifications,
		cache:         params.Cache,
		logger:        logger,
		now:           time.Now,
		cfg:           cfg,
	}
}

// Admin returns system-wide totals and reports whether they came from cache.
func (s *DashboardService) Admin(ctx context.Context) (*dto.AdminDashboardResponse, bool, error) {
	if s.aggregates == nil {
		return nil, false, appErrors.Clone(appErrors.ErrInternal, "dashboard aggregates unavailable")
	}
	return Remember(ctx, s.cache, adminDashboardCacheKey, s.cfg.CacheTTL, s.buildAdmin)
}

func (s *DashboardService) buildAdmin(ctx context.Context) (*dto.AdminDashboardResponse, error) {
	students, err := s.aggregates.StudentCount(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	applications, err := s.aggregates.ApplicationStatusCounts(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count applications")
	}
	circulars, err := s.aggregates.CircularStatusCounts(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count circulars")
	}
	ledger, err := s.aggregates.LedgerTotals(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum ledger")
	}
	top, err := s.aggregates.TopUniversities(ctx, s.cfg.TopUniversities)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rank universities")
	}
	if top == nil {
		top = []models.UniversityDemand{}
	}

	summary := &dto.AdminDashboardResponse{
		Students:        students,
		Applications:    countsByStatus(applications),
		Circulars:       countsByStatus(circulars),
		Ledger:          *ledger,
		TopUniversities: top,
		GeneratedAt:     s.now().UTC(),
	}
	return summary, nil
}

// Student composes the signed-in student's overview from the wallet,
// application, eligibility and notification services.
func (s *DashboardService) Student(ctx context.Context, userID string) (*dto.StudentDashboardResponse, error) {
	profile, err := loadProfile(ctx, s.students, userID)
	if err != nil {
		return nil, err
	}
	wallet, err := s.wallet.Summary(ctx, userID)
	if err != nil {
		return nil, err
	}
	apps, err := s.applications.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	evaluated, err := s.eligibility.List(ctx, userID, EligibilityQuery{Filter: models.EligibilityAll})
	if err != nil {
		return nil, err
	}

	now := s.now()
	circulars := make([]models.AdmissionCircularData, 0, len(evaluated))
	byID := make(map[string]models.AdmissionCircular, len(evaluated))
	recommended := make([]models.CircularEligibility, 0, s.cfg.RecommendedLimit)
	for _, item := range evaluated {
		if item.Circular.Data != nil {
			circulars = append(circulars, *item.Circular.Data)
		}
		byID[item.Circular.ID] = item.Circular
		if item.Eligibility.Eligible && item.IsOpen && len(recommended) < s.cfg.RecommendedLimit {
			recommended = append(recommended, item)
		}
	}

	resp := &dto.StudentDashboardResponse{
		FullName:          profile.FullName,
		Wallet:            *wallet,
		Applications:      SummarizeApplications(apps),
		EligibleCount:     EligibleCount(profile, circulars),
		OpenNowCount:      OpenNowCount(circulars, now),
		Recommended:       recommended,
		UpcomingDeadlines: s.deadlines(apps, byID, now),
	}
	if s.notifications != nil {
		if list, err := s.notifications.List(ctx, userID, "", true); err != nil {
			s.logger.Warn("dashboard unread count failed", zap.String("user_id", userID), zap.Error(err))
		} else {
			resp.UnreadNotifications = list.UnreadTotal
		}
	}
	return resp, nil
}

func (s *DashboardService) deadlines(apps []models.Application, circulars map[string]models.AdmissionCircular, now time.Time) []dto.DeadlineItem {
	horizon := now.Add(s.cfg.DeadlineHorizon)
	items := []dto.DeadlineItem{}
	for _, app := range apps {
		if app.Status != models.ApplicationStatusPending {
			continue
		}
		circular, ok := circulars[app.UniversityID]
		if !ok || circular.Data == nil {
			continue
		}
		end, ok := circular.Data.ApplicationPeriod.EndTime()
		if !ok || end.Before(now) || end.After(horizon) {
			continue
		}
		items = append(items, dto.DeadlineItem{
			ApplicationID:  app.ID,
			UniversityID:   app.UniversityID,
			UniversityName: circular.UniversityName(),
			ClosesAt:       end,
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ClosesAt.Before(items[j].ClosesAt) })
	return items
}

func countsByStatus(rows []models.StatusCount) map[string]int {
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out
}
