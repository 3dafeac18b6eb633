package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/attendance-tracker-api/internal/dto"
	"github.com/noah-isme/attendance-tracker-api/internal/repository"
	appErrors "github.com/noah-isme/attendance-tracker-api/pkg/errors"
)

// CacheRepository stores encoded payloads under string keys.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
	Counter(ctx context.Context, key string) (int64, error)
	Increment(ctx context.Context, key string) error
}

// CacheService fronts the statistics cache: it records hit, miss and write
// metrics and turns backend failures into logged misses for callers that use
// the stats helpers.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
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

// Get attempts to retrieve a cached entry. It returns true when the cache was hit.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return false, nil
		}
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	return true, nil
}

// Set stores the value in cache.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Invalidate removes cached values for the provided pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	return nil
}

// StatsGeneration reads the invalidation counter of a collection. Snapshots
// are only read and written under the generation observed before computing
// them, so a write that invalidates in between orphans the late store. ok is
// false when the counter cannot be read and the cache must be bypassed.
func (s *CacheService) StatsGeneration(ctx context.Context, collectionID string) (int64, bool) {
	if !s.Enabled() {
		return 0, false
	}
	gen, err := s.repo.Counter(ctx, repository.StatsGenerationKey(collectionID))
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("cache generation read failed", zap.String("collection_id", collectionID), zap.Error(err))
		}
		return 0, false
	}
	return gen, true
}

// LoadStats returns the statistics snapshot of a collection as of day, if
// cached under generation.
func (s *CacheService) LoadStats(ctx context.Context, collectionID, day string, generation int64) (*dto.StatsResponse, bool) {
	var stats dto.StatsResponse
	hit, err := s.Get(ctx, repository.StatsKey(collectionID, day, generation), &stats)
	if err != nil || !hit {
		return nil, false
	}
	if stats.CollectionID != collectionID || stats.AsOf != day {
		s.logger.Warn("cached statistics do not match their key",
			zap.String("collection_id", collectionID), zap.String("as_of", day))
		return nil, false
	}
	stats.Cached = true
	return &stats, true
}

// StoreStats caches a freshly computed snapshot keyed by its collection,
// as-of day and the generation it was computed under.
func (s *CacheService) StoreStats(ctx context.Context, stats *dto.StatsResponse, generation int64, ttl time.Duration) {
	if stats == nil || stats.CollectionID == "" || stats.AsOf == "" {
		return
	}
	_ = s.Set(ctx, repository.StatsKey(stats.CollectionID, stats.AsOf, generation), stats, ttl)
}

// InvalidateCollection bumps the generation of a collection and drops its
// cached statistics. Failures are logged only.
func (s *CacheService) InvalidateCollection(ctx context.Context, collectionID string) {
	if !s.Enabled() {
		return
	}
	if err := s.repo.Increment(ctx, repository.StatsGenerationKey(collectionID)); err != nil {
		s.logger.Warn("cache generation bump failed", zap.String("collection_id", collectionID), zap.Error(err))
	}
	_ = s.Invalidate(ctx, repository.StatsPattern(collectionID))
}
