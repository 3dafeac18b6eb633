package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/attendance-tracker-api/pkg/errors"
)

const (
	statsKeyPrefix      = "attendance:stats"
	statsGenerationBase = "attendance:statsgen"
	scanBatch           = 100
)

// StatsKey identifies cached course statistics of a collection as of a given
// day, computed under the given invalidation generation.
func StatsKey(collectionID, day string, generation int64) string {
	return fmt.Sprintf("%s:%s:%s:%d", statsKeyPrefix, collectionID, day, generation)
}

// StatsGenerationKey holds the invalidation counter of a collection.
func StatsGenerationKey(collectionID string) string {
	return fmt.Sprintf("%s:%s", statsGenerationBase, collectionID)
}

// StatsPattern matches every cached statistics entry of a collection.
func StatsPattern(collectionID string) string {
	return fmt.Sprintf("%s:%s:*", statsKeyPrefix, collectionID)
}

// CacheRepository keeps JSON encoded statistics snapshots in Redis.
type CacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewCacheRepository constructs a cache repository. A nil client turns every read into a miss
// and every write into a no-op.
func NewCacheRepository(client *redis.Client, logger *zap.Logger) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheRepository{client: client, logger: logger}
}

// Get decodes the value stored under key into dest.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return appErrors.ErrCacheMiss
	}
	raw, err := r.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return appErrors.ErrCacheMiss
	case err != nil:
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		// a snapshot written by an older build; drop it and report a miss
		r.client.Del(ctx, key)
		r.logger.Warn("discarded undecodable cache entry", zap.String("key", key), zap.Error(err))
		return appErrors.ErrCacheMiss
	}
	return nil
}

// Set encodes value and stores it under key until ttl elapses.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value for %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Counter reads an integer counter; a missing key reads as zero.
func (r *CacheRepository) Counter(ctx context.Context, key string) (int64, error) {
	if r.client == nil {
		return 0, appErrors.ErrCacheMiss
	}
	n, err := r.client.Get(ctx, key).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("redis get %s: %w", key, err)
	}
	return n, nil
}

// Increment atomically bumps an integer counter.
func (r *CacheRepository) Increment(ctx context.Context, key string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Incr(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis incr %s: %w", key, err)
	}
	return nil
}

// DeleteByPattern unlinks every key matching pattern, one scan page at a time.
func (r *CacheRepository) DeleteByPattern(ctx context.Context, pattern string) error {
	if r.client == nil {
		return nil
	}
	var (
		cursor  uint64
		removed int64
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("redis scan %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			n, err := r.client.Unlink(ctx, keys...).Result()
			if err != nil {
				return fmt.Errorf("redis unlink %s: %w", pattern, err)
			}
			removed += n
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	r.logger.Debug("statistics cache invalidated", zap.String("pattern", pattern), zap.Int64("removed", removed))
	return nil
}

// PingContext checks the Redis connection for the health probe.
func (r *CacheRepository) PingContext(ctx context.Context) error {
	if r.client == nil {
		return errors.New("redis client not configured")
	}
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying Redis connection if present.
func (r *CacheRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
