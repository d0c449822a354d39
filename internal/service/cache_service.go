package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ms-lokesh/cohort-summit-api/internal/models"
	appErrors "github.com/ms-lokesh/cohort-summit-api/pkg/errors"
)

// CacheRepository abstracts the key/value store behind the podium cache.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// PodiumCacheKey is the cache key of a season podium.
func PodiumCacheKey(seasonID string) string {
	return "leaderboard:podium:" + seasonID
}

// CacheService is the read-through cache in front of season podiums. Cache
// failures never fail a request: reads fall back to the database and writes are
// logged and dropped.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs the podium cache. A nil repo disables it.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// LoadPodium returns the cached podium of a season and whether it was present.
func (s *CacheService) LoadPodium(ctx context.Context, seasonID string) ([]models.LeaderboardEntry, bool) {
	if !s.Enabled() {
		return nil, false
	}
	start := time.Now()
	var entries []models.LeaderboardEntry
	err := s.repo.Get(ctx, PodiumCacheKey(seasonID), &entries)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("podium cache read failed", zap.String("season_id", seasonID), zap.Error(err))
		}
		return nil, false
	}
	return entries, true
}

// StorePodium caches a season podium. ttl <= 0 uses the default.
func (s *CacheService) StorePodium(ctx context.Context, seasonID string, entries []models.LeaderboardEntry, ttl time.Duration) {
	if !s.Enabled() {
		return
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, PodiumCacheKey(seasonID), entries, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("podium cache write failed", zap.String("season_id", seasonID), zap.Error(err))
	}
}

// EvictPodium drops the cached podium of a season.
func (s *CacheService) EvictPodium(ctx context.Context, seasonID string) error {
	if !s.Enabled() {
		return nil
	}
	return s.repo.Delete(ctx, PodiumCacheKey(seasonID))
}
