package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/studenthub/hub-api/internal/models"
	appErrors "github.com/studenthub/hub-api/pkg/errors"
)

type analyticsRepository interface {
	DepartmentCredits(ctx context.Context, institutionID string) ([]models.DepartmentCredits, error)
	AchievementStatusCounts(ctx context.Context, institutionID string) (pending, approved, rejected int, err error)
	ActiveEventCount(ctx context.Context, institutionID string) (int, error)
	TopSkills(ctx context.Context, institutionID string, limit int) ([]models.SkillCount, error)
}

// AnalyticsService aggregates institution-level figures. Results are cached
// in Redis; mutations that change the aggregates invalidate by key pattern.
type AnalyticsService struct {
	repo     analyticsRepository
	cache    *CacheService
	metrics  *MetricsService
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewAnalyticsService constructs AnalyticsService.
func NewAnalyticsService(repo analyticsRepository, cache *CacheService, metrics *MetricsService, cacheTTL time.Duration, logger *zap.Logger) *AnalyticsService {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{repo: repo, cache: cache, metrics: metrics, cacheTTL: cacheTTL, logger: logger}
}

func analyticsCacheKey(institutionID string) string {
	return fmt.Sprintf("analytics:institution:%s", institutionID)
}

// Institution returns the aggregated analytics view for one institution,
// served from cache when fresh. The second return reports a cache hit.
func (s *AnalyticsService) Institution(ctx context.Context, institutionID string) (*models.InstitutionAnalytics, bool, error) {
	key := analyticsCacheKey(institutionID)
	var cached models.InstitutionAnalytics
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, true, nil
	}

	departments, err := s.repo.DepartmentCredits(ctx, institutionID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate department credits")
	}
	pending, approved, rejected, err := s.repo.AchievementStatusCounts(ctx, institutionID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count achievements")
	}
	activeEvents, err := s.repo.ActiveEventCount(ctx, institutionID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count active events")
	}
	topSkills, err := s.repo.TopSkills(ctx, institutionID, 10)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate skills")
	}

	result := &models.InstitutionAnalytics{
		InstitutionID:        institutionID,
		Departments:          departments,
		PendingAchievements:  pending,
		ApprovedAchievements: approved,
		RejectedAchievements: rejected,
		ActiveEvents:         activeEvents,
		TopSkills:            topSkills,
	}
	if err := s.cache.Set(ctx, key, result, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache analytics", zap.String("institution_id", institutionID), zap.Error(err))
	}
	return result, false, nil
}

// Invalidate drops the cached analytics for an institution. Called after
// achievement decisions, event status changes and completions so the next
// read recomputes.
func (s *AnalyticsService) Invalidate(ctx context.Context, institutionID string) {
	if err := s.cache.Invalidate(ctx, analyticsCacheKey(institutionID)); err != nil {
		s.logger.Warn("failed to invalidate analytics cache", zap.String("institution_id", institutionID), zap.Error(err))
	}
}

// System returns the runtime metrics snapshot.
func (s *AnalyticsService) System() models.SystemMetrics {
	return s.metrics.Snapshot()
}
